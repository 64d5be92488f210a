// Package manager runs package manager commands (pip, conda) inside the
// kernel of a Python environment and parses what they print.
//
// Each package manager is a Manager. Managers register a factory in init()
// and are instantiated together as a Registry, which orders them by
// priority and picks the one responsible for an environment type.
package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/barysiuk/kenv/internal/core/pyenv"
)

// PackageInfo is an installed package. Channel and BaseURL are only known
// for conda packages.
type PackageInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Channel string `json:"channel,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Build   string `json:"build_string,omitempty"`
}

// Export is a file describing the packages of an environment.
type Export struct {
	Contents string `json:"contents"`
	Language string `json:"language"` // e.g. "yaml", "pip-requirements"
	File     string `json:"file"`     // suggested file name
}

// SearchResult is one available version of a package.
type SearchResult struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Channel string `json:"channel,omitempty"`
}

// Manager is a package manager for Python environments.
type Manager interface {
	// Name is the machine name, e.g. "pip".
	Name() string
	// Priority orders managers; on conflicts the higher priority wins.
	Priority() int
	// Types lists the environment types this manager maintains.
	Types() []pyenv.Type

	// List returns the installed packages.
	List(ctx context.Context, renv pyenv.RemoteEnvironment) ([]PackageInfo, error)
	// ListOutdated maps outdated package names to their latest version. A
	// nil map means the manager has no answer for the environment.
	ListOutdated(ctx context.Context, renv pyenv.RemoteEnvironment) (map[string]string, error)

	Update(ctx context.Context, renv pyenv.RemoteEnvironment, pkg string) error
	UpdateAll(ctx context.Context, renv pyenv.RemoteEnvironment) error
	Uninstall(ctx context.Context, renv pyenv.RemoteEnvironment, pkg string) error
	Install(ctx context.Context, renv pyenv.RemoteEnvironment, pkg string) error
	Export(ctx context.Context, renv pyenv.RemoteEnvironment) (*Export, error)
	Search(ctx context.Context, renv pyenv.RemoteEnvironment, query string) ([]SearchResult, error)
}

// Factory creates a Manager that logs to logger and runs commands with opts.
type Factory func(logger *zap.Logger, opts Options) Manager

var (
	factoriesMu sync.Mutex
	factories   []Factory
)

// Register adds a manager factory to the default set.
func Register(f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories = append(factories, f)
}

// Registry is a set of managers ordered by ascending priority.
type Registry struct {
	managers []Manager
}

// Default instantiates every registered manager.
func Default(logger *zap.Logger, opts Options) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	managers := make([]Manager, 0, len(factories))
	for _, f := range factories {
		managers = append(managers, f(logger, opts))
	}
	return NewRegistry(managers...)
}

// NewRegistry creates a Registry. Some manager must maintain
// pyenv.TypeUnknown, since every environment falls back to it.
func NewRegistry(managers ...Manager) (*Registry, error) {
	sorted := append([]Manager(nil), managers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })
	r := &Registry{managers: sorted}
	if r.serving(pyenv.TypeUnknown) == nil {
		return nil, fmt.Errorf("no package manager registered for %s environments", pyenv.TypeUnknown)
	}
	return r, nil
}

// All returns the managers in ascending priority.
func (r *Registry) All() []Manager {
	return append([]Manager(nil), r.managers...)
}

// ForType returns the manager responsible for environments of type t. Types
// nobody maintains are handled by the manager for unknown environments.
func (r *Registry) ForType(t pyenv.Type) Manager {
	switch t {
	case pyenv.TypeConda, pyenv.TypeVirtualEnvironment, pyenv.TypeUnknown:
		if m := r.serving(t); m != nil {
			return m
		}
	}
	return r.serving(pyenv.TypeUnknown)
}

// serving returns the highest priority manager maintaining t.
func (r *Registry) serving(t pyenv.Type) Manager {
	for i := len(r.managers) - 1; i >= 0; i-- {
		for _, mt := range r.managers[i].Types() {
			if mt == t {
				return r.managers[i]
			}
		}
	}
	return nil
}

// Names lists the names of all managers.
func (r *Registry) Names() []string {
	names := make([]string, len(r.managers))
	for i, m := range r.managers {
		names[i] = m.Name()
	}
	return names
}
