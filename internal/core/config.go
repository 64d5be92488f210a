package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/tailscale/hujson"
)

const (
	configDirName  = ".kenv"
	configFileName = "config.json"

	// EnvServerURL overrides the configured server.
	EnvServerURL = "KENV_SERVER_URL"
	// EnvToken overrides the token of whichever server is used.
	EnvToken = "KENV_TOKEN"
	// EnvJupyterToken is honoured like EnvToken, after it.
	EnvJupyterToken = "JUPYTER_TOKEN"
)

// ConfigManager handles reading and writing the kenv configuration.
type ConfigManager struct {
	configDir string
	mu        sync.RWMutex
}

// NewConfigManager creates a ConfigManager using the default config path (~/.kenv/).
func NewConfigManager() (*ConfigManager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	return &ConfigManager{
		configDir: filepath.Join(home, configDirName),
	}, nil
}

// NewConfigManagerWithDir creates a ConfigManager using a custom config directory.
// Useful for testing.
func NewConfigManagerWithDir(dir string) *ConfigManager {
	return &ConfigManager{configDir: dir}
}

// ConfigDir returns the configuration directory path.
func (cm *ConfigManager) ConfigDir() string {
	return cm.configDir
}

// ConfigPath returns the full path to the config file.
func (cm *ConfigManager) ConfigPath() string {
	return filepath.Join(cm.configDir, configFileName)
}

// Load reads the config from disk. Returns default config if file doesn't exist.
// The file may contain comments and trailing commas.
func (cm *ConfigManager) Load() (*Config, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.load()
}

func (cm *ConfigManager) load() (*Config, error) {
	data, err := os.ReadFile(cm.ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg := defaultConfig()
	if err := json.Unmarshal(std, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Servers == nil {
		cfg.Servers = []Server{}
	}
	return cfg, nil
}

// Save writes the config to disk, creating the directory if needed.
func (cm *ConfigManager) Save(cfg *Config) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.save(cfg)
}

func (cm *ConfigManager) save(cfg *Config) error {
	if err := os.MkdirAll(cm.configDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Write atomically: write to temp file then rename
	tmpPath := cm.ConfigPath() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmpPath, cm.ConfigPath()); err != nil {
		_ = os.Remove(tmpPath) // clean up on failure
		return fmt.Errorf("saving config: %w", err)
	}

	return nil
}

// update loads the config, applies fn and saves the result.
func (cm *ConfigManager) update(fn func(*Config) error) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cfg, err := cm.load()
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return cm.save(cfg)
}

// AddServer adds a server or replaces the one with the same name. The
// first server added becomes the default.
func (cm *ConfigManager) AddServer(s Server) error {
	if s.Name == "" {
		return fmt.Errorf("server name is required")
	}
	if !strings.HasPrefix(s.URL, "http://") && !strings.HasPrefix(s.URL, "https://") {
		return fmt.Errorf("server URL must start with http:// or https://: %q", s.URL)
	}
	return cm.update(func(cfg *Config) error {
		i := slices.IndexFunc(cfg.Servers, func(e Server) bool { return e.Name == s.Name })
		if i >= 0 {
			cfg.Servers[i] = s
		} else {
			cfg.Servers = append(cfg.Servers, s)
		}
		if cfg.Settings.DefaultServer == "" {
			cfg.Settings.DefaultServer = s.Name
		}
		return nil
	})
}

// RemoveServer removes a server by name.
func (cm *ConfigManager) RemoveServer(name string) error {
	return cm.update(func(cfg *Config) error {
		i := slices.IndexFunc(cfg.Servers, func(e Server) bool { return e.Name == name })
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrServerNotFound, name)
		}
		cfg.Servers = slices.Delete(cfg.Servers, i, i+1)
		if cfg.Settings.DefaultServer == name {
			cfg.Settings.DefaultServer = ""
			if len(cfg.Servers) > 0 {
				cfg.Settings.DefaultServer = cfg.Servers[0].Name
			}
		}
		return nil
	})
}

// SetDefaultServer makes name the default server.
func (cm *ConfigManager) SetDefaultServer(name string) error {
	return cm.update(func(cfg *Config) error {
		if !slices.ContainsFunc(cfg.Servers, func(e Server) bool { return e.Name == name }) {
			return fmt.Errorf("%w: %s", ErrServerNotFound, name)
		}
		cfg.Settings.DefaultServer = name
		return nil
	})
}

// ResolveServer picks the server to talk to. KENV_SERVER_URL wins when no
// name is given; otherwise the named server, the default server or the
// only configured server is used. The token is resolved with the
// EnvResolver of the config directory.
func (cm *ConfigManager) ResolveServer(name string) (Server, error) {
	cfg, err := cm.Load()
	if err != nil {
		return Server{}, err
	}
	env := NewEnvResolver(cm.configDir)

	var s Server
	switch {
	case name == "" && os.Getenv(EnvServerURL) != "":
		s = Server{Name: "env", URL: os.Getenv(EnvServerURL)}
	default:
		if name == "" {
			name = cfg.Settings.DefaultServer
		}
		if name == "" && len(cfg.Servers) == 1 {
			name = cfg.Servers[0].Name
		}
		if name == "" {
			return Server{}, ErrNoServer
		}
		i := slices.IndexFunc(cfg.Servers, func(e Server) bool { return e.Name == name })
		if i < 0 {
			return Server{}, fmt.Errorf("%w: %s", ErrServerNotFound, name)
		}
		s = cfg.Servers[i]
	}

	if token, ok := env.Token(s.Name); ok {
		s.Token = token
	}
	return s, nil
}

func defaultConfig() *Config {
	confirm := true
	return &Config{
		Servers: []Server{},
		Settings: Settings{
			CommandTimeout:     defaultCommandTimeout.String(),
			WatchInterval:      defaultWatchInterval.String(),
			ConfirmDestructive: &confirm,
		},
	}
}
