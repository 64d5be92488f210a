package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barysiuk/kenv/internal/core/pyenv"
	"github.com/barysiuk/kenv/internal/tui"
)

// envJSON is the machine-readable form of a notebook's environment.
type envJSON struct {
	Notebook    string            `json:"notebook"`
	KernelID    string            `json:"kernelId"`
	Type        pyenv.Type        `json:"type"`
	Label       string            `json:"label"`
	Environment pyenv.Environment `json:"environment"`
}

func toEnvJSON(renv pyenv.RemoteEnvironment) envJSON {
	return envJSON{
		Notebook:    renv.Handle.Document,
		KernelID:    renv.Handle.KernelID,
		Type:        renv.Type(),
		Label:       pyenv.Label(renv.Env),
		Environment: renv.Env,
	}
}

// typeLabel is the short name of an environment type shown in tables.
func typeLabel(t pyenv.Type) string {
	switch t {
	case pyenv.TypeConda:
		return "conda"
	case pyenv.TypeVirtualEnvironment:
		return "venv"
	default:
		return "global"
	}
}

var envsCmd = &cobra.Command{
	Use:   "envs",
	Short: "List notebooks with a Python kernel and their environments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}

		var envs []pyenv.RemoteEnvironment
		err = progress(cmd, "Inspecting kernels", func(ctx context.Context) error {
			var err error
			envs, err = d.service.Environments(ctx, d.server)
			return err
		})
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			out := make([]envJSON, len(envs))
			for i, renv := range envs {
				out[i] = toEnvJSON(renv)
			}
			return printJSON(cmd, out)
		}

		if len(envs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No notebooks with a Python kernel are running.")
			return nil
		}
		rows := make([][]string, 0, len(envs))
		for _, renv := range envs {
			rows = append(rows, []string{
				renv.Handle.Document,
				pyenv.Label(renv.Env),
				typeLabel(renv.Type()),
				pyenv.VersionString(renv.Env),
				pyenv.Location(renv.Env),
			})
		}
		fmt.Fprint(cmd.OutOrStdout(), tui.Table([]string{"Notebook", "Environment", "Type", "Python", "Location"}, rows, terminalWidth()))
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <notebook>",
	Short: "Show details about the environment of a notebook's kernel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		renv, err := d.environment(cmd, args[0])
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return printJSON(cmd, pyenv.Info(renv.Env))
		}
		md := tui.InfoMarkdown(pyenv.Title(renv.Env), pyenv.Info(renv.Env))
		out, err := tui.RenderMarkdown(md, terminalWidth(), terminalWidth() > 0)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	envsCmd.Flags().Bool("json", false, "Output as JSON for scripting")
	infoCmd.Flags().Bool("json", false, "Output as JSON for scripting")
	rootCmd.AddCommand(envsCmd, infoCmd)
}
