package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/barysiuk/kenv/internal/core/pyenv"
	"github.com/barysiuk/kenv/internal/kernel"
)

// maxConcurrentProbes bounds how many kernels are introspected at once.
const maxConcurrentProbes = 4

// ErrIntrospection is returned when a kernel does not report its environment.
var ErrIntrospection = errors.New("could not determine the kernel's python environment")

// Environment introspects the kernel attached to document.
func (s *Service) Environment(ctx context.Context, loc kernel.Locator, document string) (pyenv.RemoteEnvironment, error) {
	k, err := loc.KernelFor(ctx, document)
	if err != nil {
		return pyenv.RemoteEnvironment{}, fmt.Errorf("looking up kernel of %s: %w", document, err)
	}
	if k == nil || !kernel.IsPython(k.Language()) {
		return pyenv.RemoteEnvironment{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, document)
	}
	env := pyenv.Introspect(ctx, k, s.logger)
	if env == nil {
		return pyenv.RemoteEnvironment{}, fmt.Errorf("%w: %s", ErrIntrospection, document)
	}
	return pyenv.RemoteEnvironment{Handle: kernel.NewHandle(loc, document, k), Env: *env}, nil
}

// Environments introspects the kernels of all documents with a Python
// kernel, in document order. Documents whose kernel cannot be introspected
// are logged and left out.
func (s *Service) Environments(ctx context.Context, loc kernel.Locator) ([]pyenv.RemoteEnvironment, error) {
	docs, err := loc.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	found := make([]*pyenv.RemoteEnvironment, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)
	for i, doc := range docs {
		g.Go(func() error {
			renv, err := s.Environment(gctx, loc, doc)
			if err != nil {
				s.logger.Warn("skipping document", zap.String("document", doc), zap.Error(err))
				return nil
			}
			found[i] = &renv
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	envs := make([]pyenv.RemoteEnvironment, 0, len(docs))
	for _, renv := range found {
		if renv != nil {
			envs = append(envs, *renv)
		}
	}
	return envs, nil
}
