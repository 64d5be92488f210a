package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/barysiuk/kenv/internal/core"
	"github.com/barysiuk/kenv/internal/core/manager"
	"github.com/barysiuk/kenv/internal/core/pyenv"
)

var exportCmd = &cobra.Command{
	Use:   "export <notebook>",
	Short: "Export a notebook's environment as requirements.txt or environment.yml",
	Long: `Export the packages of a notebook's environment.

Pip environments export 'pip freeze' output (requirements.txt); conda
environments export 'conda env export' output (environment.yml). The
export is printed unless -o is given. -o with a directory writes the
conventional file name into it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		renv, err := d.environment(cmd, args[0])
		if err != nil {
			return err
		}

		var exp *manager.Export
		err = progress(cmd, "Exporting "+pyenv.Label(renv.Env), func(ctx context.Context) error {
			exp = d.service.ExportPackages(ctx, renv)
			return nil
		})
		if err != nil {
			return err
		}
		if exp == nil {
			return fmt.Errorf("exporting %s failed", pyenv.Label(renv.Env))
		}

		if strip, _ := cmd.Flags().GetBool("strip-prefix"); strip {
			stripped, err := core.StripPrefix(*exp)
			if err != nil {
				return err
			}
			exp = &stripped
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			fmt.Fprintln(cmd.OutOrStdout(), exp.Contents)
			return nil
		}
		if info, err := os.Stat(output); err == nil && info.IsDir() {
			output = filepath.Join(output, exp.File)
		}
		if err := os.WriteFile(output, []byte(exp.Contents+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Write the export to this file or directory")
	exportCmd.Flags().Bool("strip-prefix", false, "Drop the machine-specific prefix from environment.yml")
	rootCmd.AddCommand(exportCmd)
}
