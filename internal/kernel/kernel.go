// Package kernel talks to running Jupyter kernels.
//
// It exposes two collaborators: a Kernel, which executes code and yields
// MIME-tagged output chunks, and a Locator, which maps a notebook document to
// the kernel currently attached to it. A Handle pairs the two without holding
// on to the kernel itself, so a kernel that has been restarted or shut down
// is detected before any command is sent to it.
package kernel

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrKernelUnavailable is returned when a handle no longer resolves to the
// live kernel of its document.
var ErrKernelUnavailable = errors.New("kernel is not available")

// Kernel is a running interpreter session that can execute code.
type Kernel interface {
	// ID uniquely identifies the kernel on its server.
	ID() string
	// Language is the kernel's language as reported by its kernelspec.
	Language() string
	// Execute runs code and yields output chunks in arrival order. A
	// transport failure is yielded once as the last pair with a zero Output.
	// Cancelling ctx stops the execution stream.
	Execute(ctx context.Context, code string) iter.Seq2[Output, error]
}

// Locator discovers kernels attached to notebook documents.
type Locator interface {
	// Documents lists documents whose kernel runs Python.
	Documents(ctx context.Context) ([]string, error)
	// KernelFor returns the kernel attached to document, or nil if none.
	KernelFor(ctx context.Context, document string) (Kernel, error)
}

// IsPython reports whether a kernel language denotes Python.
func IsPython(language string) bool {
	return strings.EqualFold(language, "python")
}

// Handle is a non-owning reference to the kernel of a document. It stores
// lookup keys only; the kernel is re-resolved through the Locator on use.
type Handle struct {
	Locator  Locator
	Document string
	KernelID string
}

// NewHandle creates a Handle for the kernel currently attached to document.
func NewHandle(loc Locator, document string, k Kernel) Handle {
	return Handle{Locator: loc, Document: document, KernelID: k.ID()}
}

// Resolve returns the live kernel this handle refers to. It fails with
// ErrKernelUnavailable when the document is gone or has a different kernel.
func (h Handle) Resolve(ctx context.Context) (Kernel, error) {
	if h.Locator == nil || h.Document == "" || h.KernelID == "" {
		return nil, ErrKernelUnavailable
	}
	k, err := h.Locator.KernelFor(ctx, h.Document)
	if err != nil || k == nil {
		return nil, ErrKernelUnavailable
	}
	if k.ID() != h.KernelID {
		return nil, ErrKernelUnavailable
	}
	return k, nil
}

// IsValid reports whether the handle still refers to the live kernel of its
// document.
func (h Handle) IsValid(ctx context.Context) bool {
	_, err := h.Resolve(ctx)
	return err == nil
}
