package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barysiuk/kenv/internal/core"
	"github.com/barysiuk/kenv/internal/tui"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage Jupyter servers",
	Long: `Manage the Jupyter servers kenv connects to.

Servers are stored in ~/.kenv/config.json. Tokens are kept apart in
~/.kenv/.env.kenv so the config file can be shared.`,
}

var serverAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or replace a server",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newConfigDeps()
		if err != nil {
			return err
		}
		name, url := args[0], args[1]

		if err := d.config.AddServer(core.Server{Name: name, URL: url}); err != nil {
			return err
		}
		if token, _ := cmd.Flags().GetString("token"); token != "" {
			if err := core.WriteEnvVar(d.config.ConfigDir(), core.TokenVar(name), token); err != nil {
				return fmt.Errorf("saving token: %w", err)
			}
		}
		if makeDefault, _ := cmd.Flags().GetBool("default"); makeDefault {
			if err := d.config.SetDefaultServer(name); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added server: %s (%s)\n", name, url)
		return nil
	},
}

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newConfigDeps()
		if err != nil {
			return err
		}
		if len(d.cfg.Servers) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No servers configured. Add one with `kenv server add <name> <url>`.")
			return nil
		}

		env := core.NewEnvResolver(d.config.ConfigDir())
		rows := make([][]string, 0, len(d.cfg.Servers))
		for _, s := range d.cfg.Servers {
			def := ""
			if s.Name == d.cfg.Settings.DefaultServer {
				def = "*"
			}
			token := "-"
			if _, ok := env.Token(s.Name); ok || s.Token != "" {
				token = "set"
			}
			rows = append(rows, []string{s.Name, s.URL, token, def})
		}
		fmt.Fprint(cmd.OutOrStdout(), tui.Table([]string{"Name", "URL", "Token", "Default"}, rows, terminalWidth()))
		return nil
	},
}

var serverRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a server and its stored token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newConfigDeps()
		if err != nil {
			return err
		}
		if err := d.config.RemoveServer(args[0]); err != nil {
			return err
		}
		if err := core.DeleteEnvVar(d.config.ConfigDir(), core.TokenVar(args[0])); err != nil {
			return fmt.Errorf("removing token: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed server: %s\n", args[0])
		return nil
	},
}

var serverDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newConfigDeps()
		if err != nil {
			return err
		}
		if err := d.config.SetDefaultServer(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default server: %s\n", args[0])
		return nil
	},
}

func init() {
	serverAddCmd.Flags().String("token", "", "Token for the server (stored in ~/.kenv/.env.kenv)")
	serverAddCmd.Flags().Bool("default", false, "Make this the default server")
	serverCmd.AddCommand(serverAddCmd, serverListCmd, serverRemoveCmd, serverDefaultCmd)
	rootCmd.AddCommand(serverCmd)
}
