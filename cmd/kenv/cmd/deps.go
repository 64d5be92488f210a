package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/barysiuk/kenv/internal/core"
	"github.com/barysiuk/kenv/internal/core/manager"
	"github.com/barysiuk/kenv/internal/kernel"
)

// deps holds shared dependencies for CLI commands.
type deps struct {
	config  *core.ConfigManager
	cfg     *core.Config
	server  *kernel.Server
	service *core.Service
}

// newConfigDeps loads the configuration only. Used by commands that do not
// talk to a server.
func newConfigDeps() (*deps, error) {
	config, err := core.NewConfigManager()
	if err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &deps{config: config, cfg: cfg}, nil
}

// newDeps creates shared dependencies, connecting to the server selected by
// --server, $KENV_SERVER_URL or the configuration.
func newDeps(cmd *cobra.Command) (*deps, error) {
	d, err := newConfigDeps()
	if err != nil {
		return nil, err
	}

	name, _ := cmd.Flags().GetString("server")
	srv, err := d.config.ResolveServer(name)
	if err != nil {
		return nil, err
	}
	d.server, err = kernel.NewServer(kernel.ServerOptions{
		URL:    srv.URL,
		Token:  srv.Token,
		Logger: logger.Named("kernel"),
	})
	if err != nil {
		return nil, fmt.Errorf("server %s: %w", srv.Name, err)
	}

	registry, err := manager.Default(logger.Named("manager"), manager.Options{Timeout: d.cfg.Settings.Timeout()})
	if err != nil {
		return nil, err
	}
	logger.Debug("package managers loaded", zap.Strings("managers", registry.Names()))
	d.service = core.NewService(registry, logger.Named("service"))
	return d, nil
}
