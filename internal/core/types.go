// Package core provides the business logic for kenv.
// It has zero UI dependencies and is independently testable.
package core

import (
	"errors"
	"time"
)

var (
	// ErrNoServer is returned when no Jupyter Server is configured.
	ErrNoServer = errors.New("no jupyter server configured; run `kenv server add` or set KENV_SERVER_URL")
	// ErrServerNotFound is returned for an unknown server name.
	ErrServerNotFound = errors.New("server not found")
	// ErrDocumentNotFound is returned when a notebook has no Python kernel.
	ErrDocumentNotFound = errors.New("no python kernel is attached to the notebook")
)

const (
	defaultCommandTimeout = 60 * time.Second
	defaultWatchInterval  = 5 * time.Second
)

// Config represents the kenv configuration stored at ~/.kenv/config.json.
type Config struct {
	Servers  []Server `json:"servers"`
	Settings Settings `json:"settings"`
}

// Server is a Jupyter Server kenv can connect to.
type Server struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
}

// Settings holds user preferences. Durations are Go duration strings.
type Settings struct {
	DefaultServer      string `json:"defaultServer,omitempty"`
	CommandTimeout     string `json:"commandTimeout,omitempty"`
	WatchInterval      string `json:"watchInterval,omitempty"`
	ConfirmDestructive *bool  `json:"confirmDestructive,omitempty"`
}

// Timeout is the advisory timeout for package manager commands.
func (s Settings) Timeout() time.Duration {
	return parseDuration(s.CommandTimeout, defaultCommandTimeout)
}

// Interval is how often `kenv watch` polls for kernels.
func (s Settings) Interval() time.Duration {
	return parseDuration(s.WatchInterval, defaultWatchInterval)
}

// Confirm reports whether destructive operations ask first. Defaults to true.
func (s Settings) Confirm() bool {
	return s.ConfirmDestructive == nil || *s.ConfirmDestructive
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// PackageStatus is an installed package annotated with the latest version
// known to be available.
type PackageStatus struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Channel string `json:"channel,omitempty"`
	Latest  string `json:"latest,omitempty"` // empty when up to date or unknown
}

// Outdated reports whether a newer version is available.
func (p PackageStatus) Outdated() bool {
	return p.Latest != "" && p.Latest != p.Version
}
