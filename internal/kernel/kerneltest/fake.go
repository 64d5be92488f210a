// Package kerneltest provides scripted Kernel and Locator implementations
// for tests that do not need a server.
package kerneltest

import (
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/barysiuk/kenv/internal/kernel"
)

// Kernel replays scripted outputs for every executed code string.
type Kernel struct {
	KernelID string
	Lang     string
	// Script returns the chunks for code. A non-nil error is yielded after
	// the chunks, as a transport failure would be.
	Script func(code string) ([]kernel.Output, error)

	mu    sync.Mutex
	calls []string
}

// NewKernel creates a Python kernel with the given id and script.
func NewKernel(id string, script func(code string) ([]kernel.Output, error)) *Kernel {
	return &Kernel{KernelID: id, Lang: "python", Script: script}
}

func (k *Kernel) ID() string       { return k.KernelID }
func (k *Kernel) Language() string { return k.Lang }

// Execute records code and yields the scripted outputs.
func (k *Kernel) Execute(ctx context.Context, code string) iter.Seq2[kernel.Output, error] {
	k.mu.Lock()
	k.calls = append(k.calls, code)
	k.mu.Unlock()

	return func(yield func(kernel.Output, error) bool) {
		if k.Script == nil {
			return
		}
		outputs, err := k.Script(code)
		for _, out := range outputs {
			if ctx.Err() != nil {
				yield(kernel.Output{}, ctx.Err())
				return
			}
			if !yield(out, nil) {
				return
			}
		}
		if err != nil {
			yield(kernel.Output{}, err)
		}
	}
}

// Calls returns the code strings executed so far.
func (k *Kernel) Calls() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.calls...)
}

// Locator maps documents to kernels.
type Locator struct {
	mu      sync.Mutex
	kernels map[string]kernel.Kernel
	order   []string
}

// NewLocator creates an empty Locator.
func NewLocator() *Locator {
	return &Locator{kernels: make(map[string]kernel.Kernel)}
}

// Attach sets the kernel of document; a nil kernel detaches it.
func (l *Locator) Attach(document string, k kernel.Kernel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if k == nil {
		delete(l.kernels, document)
		return
	}
	if !slices.Contains(l.order, document) {
		l.order = append(l.order, document)
	}
	l.kernels[document] = k
}

func (l *Locator) Documents(context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var docs []string
	for _, doc := range l.order {
		if k, ok := l.kernels[doc]; ok && kernel.IsPython(k.Language()) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (l *Locator) KernelFor(_ context.Context, document string) (kernel.Kernel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k, ok := l.kernels[document]
	if !ok {
		return nil, nil
	}
	return k, nil
}

// Handle attaches k to document and returns a handle to it.
func Handle(l *Locator, document string, k kernel.Kernel) kernel.Handle {
	l.Attach(document, k)
	return kernel.NewHandle(l, document, k)
}

// Chunk builds an output chunk from items.
func Chunk(items ...kernel.Item) kernel.Output {
	return kernel.Output{Items: items}
}
