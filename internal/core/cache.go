package core

import (
	"maps"
	"slices"
	"sync"

	"github.com/barysiuk/kenv/internal/core/manager"
)

// PackageCache remembers the last package listing and outdated versions
// of each environment, keyed by environment id. Concurrent writes for the
// same id overwrite each other; the last write wins.
type PackageCache struct {
	mu       sync.RWMutex
	packages map[string][]manager.PackageInfo
	outdated map[string]map[string]string
}

// NewPackageCache creates an empty cache.
func NewPackageCache() *PackageCache {
	return &PackageCache{
		packages: make(map[string][]manager.PackageInfo),
		outdated: make(map[string]map[string]string),
	}
}

// SetPackages stores the installed packages of env.
func (c *PackageCache) SetPackages(envID string, pkgs []manager.PackageInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packages[envID] = slices.Clone(pkgs)
}

// Packages returns the stored packages of env.
func (c *PackageCache) Packages(envID string) ([]manager.PackageInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pkgs, ok := c.packages[envID]
	return slices.Clone(pkgs), ok
}

// SetOutdated stores the latest versions of the outdated packages of env.
func (c *PackageCache) SetOutdated(envID string, latest map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outdated[envID] = maps.Clone(latest)
}

// latest returns the stored outdated versions of env.
func (c *PackageCache) latest(envID string) (map[string]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	latest, ok := c.outdated[envID]
	return maps.Clone(latest), ok
}

// Forget drops everything stored for env.
func (c *PackageCache) Forget(envID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.packages, envID)
	delete(c.outdated, envID)
}
