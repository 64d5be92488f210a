package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barysiuk/kenv/internal/core"
	"github.com/barysiuk/kenv/internal/core/manager"
	"github.com/barysiuk/kenv/internal/core/pyenv"
	"github.com/barysiuk/kenv/internal/tui"
)

var packagesCmd = &cobra.Command{
	Use:   "packages <notebook>",
	Short: "List the packages installed in a notebook's environment",
	Long: `List the packages installed in the environment of a notebook's kernel.

Conda environments list both conda and pip packages; conda wins when a
package is known to both. With --outdated the latest available versions
are looked up as well, which can take a while.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		withOutdated, _ := cmd.Flags().GetBool("outdated")
		return d.listPackages(cmd, args[0], withOutdated, false)
	},
}

var outdatedCmd = &cobra.Command{
	Use:   "outdated <notebook>",
	Short: "Show packages with available updates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		return d.listPackages(cmd, args[0], true, true)
	},
}

// listPackages prints the packages of notebook. onlyOutdated implies
// withOutdated.
func (d *deps) listPackages(cmd *cobra.Command, notebook string, withOutdated, onlyOutdated bool) error {
	renv, err := d.environment(cmd, notebook)
	if err != nil {
		return err
	}
	statuses, err := d.packageStatuses(cmd, renv, withOutdated)
	if err != nil {
		return err
	}
	if onlyOutdated {
		var outdated []core.PackageStatus
		for _, s := range statuses {
			if s.Outdated() {
				outdated = append(outdated, s)
			}
		}
		statuses = outdated
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		if statuses == nil {
			statuses = []core.PackageStatus{}
		}
		return printJSON(cmd, statuses)
	}

	out := cmd.OutOrStdout()
	switch {
	case len(statuses) == 0 && onlyOutdated:
		fmt.Fprintf(out, "All packages in %s are up to date.\n", pyenv.Label(renv.Env))
		return nil
	case len(statuses) == 0:
		fmt.Fprintf(out, "No packages found in %s.\n", pyenv.Label(renv.Env))
		return nil
	}

	if !withOutdated {
		rows := make([][]string, 0, len(statuses))
		for _, s := range statuses {
			rows = append(rows, []string{s.Name, s.Version, tui.Muted(s.Channel)})
		}
		fmt.Fprint(out, tui.Table([]string{"Package", "Version", "Channel"}, rows, terminalWidth()))
		return nil
	}
	fmt.Fprint(out, tui.Table([]string{"Package", "Version", "Latest", "Channel"}, tui.PackageRows(statuses), terminalWidth()))
	return nil
}

// installedPackages lists the packages of renv.
func (d *deps) installedPackages(cmd *cobra.Command, renv pyenv.RemoteEnvironment) ([]manager.PackageInfo, error) {
	var pkgs []manager.PackageInfo
	err := progress(cmd, "Listing packages", func(ctx context.Context) error {
		pkgs = d.service.Refresh(ctx, renv)
		return nil
	})
	return pkgs, err
}

func (d *deps) packageStatuses(cmd *cobra.Command, renv pyenv.RemoteEnvironment, withOutdated bool) ([]core.PackageStatus, error) {
	var statuses []core.PackageStatus
	label := "Listing packages"
	if withOutdated {
		label = "Checking for updates"
	}
	err := progress(cmd, label, func(ctx context.Context) error {
		if withOutdated {
			statuses = d.service.AnnotateOutdated(ctx, renv)
			return nil
		}
		for _, pkg := range d.service.Refresh(ctx, renv) {
			statuses = append(statuses, core.PackageStatus{Name: pkg.Name, Version: pkg.Version, Channel: pkg.Channel})
		}
		return nil
	})
	return statuses, err
}

func init() {
	packagesCmd.Flags().Bool("outdated", false, "Also look up the latest versions")
	packagesCmd.Flags().Bool("json", false, "Output as JSON for scripting")
	outdatedCmd.Flags().Bool("json", false, "Output as JSON for scripting")
	rootCmd.AddCommand(packagesCmd, outdatedCmd)
}
