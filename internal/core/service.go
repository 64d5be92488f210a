package core

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/barysiuk/kenv/internal/core/manager"
	"github.com/barysiuk/kenv/internal/core/pyenv"
)

// Service dispatches package operations to the package managers of an
// environment. Failures are logged and turned into empty results: no
// method returns an error. Operations that change an environment drop
// its cached listings.
type Service struct {
	registry *manager.Registry
	cache    *PackageCache
	logger   *zap.Logger
}

// NewService creates a Service over the managers of registry.
func NewService(registry *manager.Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: registry, cache: NewPackageCache(), logger: logger}
}

// Cache returns the package cache filled by Refresh and AnnotateOutdated.
func (s *Service) Cache() *PackageCache { return s.cache }

// Packages lists the installed packages of renv as reported by all
// managers at once. When two managers report the same package the higher
// priority one wins. The result is sorted by name, ignoring case.
func (s *Service) Packages(ctx context.Context, renv pyenv.RemoteEnvironment) []manager.PackageInfo {
	managers := s.registry.All()
	results := make([][]manager.PackageInfo, len(managers))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range managers {
		g.Go(func() error {
			pkgs, err := m.List(gctx, renv)
			if err != nil {
				return err
			}
			results[i] = pkgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to get package information", zap.String("env", renv.Env.ID), zap.Error(err))
		return []manager.PackageInfo{}
	}

	// Names keep the position they were first seen at so that the stable
	// sort below breaks ties the same way on every call.
	var order []string
	byName := make(map[string]manager.PackageInfo)
	for _, pkgs := range results {
		for _, pkg := range pkgs {
			if _, ok := byName[pkg.Name]; !ok {
				order = append(order, pkg.Name)
			}
			byName[pkg.Name] = pkg
		}
	}
	merged := make([]manager.PackageInfo, 0, len(order))
	for _, name := range order {
		merged = append(merged, byName[name])
	}
	manager.SortPackages(merged)
	return merged
}

// OutdatedPackages maps outdated packages of renv to their latest version.
// All managers are asked at once; the answer of the highest priority
// manager that has one is used.
func (s *Service) OutdatedPackages(ctx context.Context, renv pyenv.RemoteEnvironment) map[string]string {
	managers := s.registry.All()
	results := make([]map[string]string, len(managers))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range managers {
		g.Go(func() error {
			latest, err := m.ListOutdated(gctx, renv)
			if err != nil {
				return err
			}
			results[i] = latest
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to get latest package information", zap.String("env", renv.Env.ID), zap.Error(err))
		return map[string]string{}
	}

	for i := len(results) - 1; i >= 0; i-- {
		if results[i] != nil {
			return results[i]
		}
	}
	return map[string]string{}
}

func (s *Service) managerFor(renv pyenv.RemoteEnvironment) manager.Manager {
	return s.registry.ForType(pyenv.ResolveType(renv.Env))
}

// UpdatePackage updates pkg to its latest version.
func (s *Service) UpdatePackage(ctx context.Context, renv pyenv.RemoteEnvironment, pkg string) {
	defer s.cache.Forget(renv.Env.ID)
	if err := s.managerFor(renv).Update(ctx, renv, pkg); err != nil {
		s.logger.Error("failed to update package", zap.String("package", pkg), zap.String("env", renv.Env.ID), zap.Error(err))
	}
}

// UpdatePackages updates every package of renv.
func (s *Service) UpdatePackages(ctx context.Context, renv pyenv.RemoteEnvironment) {
	defer s.cache.Forget(renv.Env.ID)
	if err := s.managerFor(renv).UpdateAll(ctx, renv); err != nil {
		s.logger.Error("failed to update packages", zap.String("env", renv.Env.ID), zap.Error(err))
	}
}

// UninstallPackage removes pkg from renv.
func (s *Service) UninstallPackage(ctx context.Context, renv pyenv.RemoteEnvironment, pkg string) {
	defer s.cache.Forget(renv.Env.ID)
	if err := s.managerFor(renv).Uninstall(ctx, renv, pkg); err != nil {
		s.logger.Error("failed to uninstall package", zap.String("package", pkg), zap.String("env", renv.Env.ID), zap.Error(err))
	}
}

// InstallPackage installs pkg into renv. pkg may carry a version
// specifier understood by the package manager.
func (s *Service) InstallPackage(ctx context.Context, renv pyenv.RemoteEnvironment, pkg string) {
	defer s.cache.Forget(renv.Env.ID)
	if err := s.managerFor(renv).Install(ctx, renv, pkg); err != nil {
		s.logger.Error("failed to install a package", zap.String("package", pkg), zap.String("env", renv.Env.ID), zap.Error(err))
	}
}

// ExportPackages describes the packages of renv as a requirements or
// environment file. It returns nil on failure.
func (s *Service) ExportPackages(ctx context.Context, renv pyenv.RemoteEnvironment) *manager.Export {
	exp, err := s.managerFor(renv).Export(ctx, renv)
	if err != nil {
		s.logger.Error("failed to export environment", zap.String("env", renv.Env.ID), zap.Error(err))
		return nil
	}
	return exp
}

// SearchPackage lists the available versions of query.
func (s *Service) SearchPackage(ctx context.Context, renv pyenv.RemoteEnvironment, query string) []manager.SearchResult {
	results, err := s.managerFor(renv).Search(ctx, renv, query)
	if err != nil {
		s.logger.Error("failed to search for a package", zap.String("query", query), zap.String("env", renv.Env.ID), zap.Error(err))
		return []manager.SearchResult{}
	}
	return results
}

// Refresh lists the packages of renv and caches the listing.
func (s *Service) Refresh(ctx context.Context, renv pyenv.RemoteEnvironment) []manager.PackageInfo {
	pkgs := s.Packages(ctx, renv)
	s.cache.SetPackages(renv.Env.ID, pkgs)
	return pkgs
}

// AnnotateOutdated looks up the latest versions for renv, caches them and
// returns the installed packages annotated with them. The cached listing is
// used when there is one.
func (s *Service) AnnotateOutdated(ctx context.Context, renv pyenv.RemoteEnvironment) []PackageStatus {
	pkgs, ok := s.cache.Packages(renv.Env.ID)
	if !ok {
		pkgs = s.Refresh(ctx, renv)
	}
	latest := s.OutdatedPackages(ctx, renv)
	s.cache.SetOutdated(renv.Env.ID, latest)

	statuses := make([]PackageStatus, len(pkgs))
	for i, pkg := range pkgs {
		statuses[i] = PackageStatus{
			Name:    pkg.Name,
			Version: pkg.Version,
			Channel: pkg.Channel,
			Latest:  latest[pkg.Name],
		}
	}
	return statuses
}
