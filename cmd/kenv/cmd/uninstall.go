package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barysiuk/kenv/internal/core/manager"
	"github.com/barysiuk/kenv/internal/core/pyenv"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <notebook> <package>",
	Short: "Remove a package from a notebook's environment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		renv, err := d.environment(cmd, args[0])
		if err != nil {
			return err
		}
		name := args[1]

		before, err := d.installedPackages(cmd, renv)
		if err != nil {
			return err
		}
		if _, ok := findPackage(before, name); !ok {
			return fmt.Errorf("%s is not installed in %s", name, pyenv.Label(renv.Env))
		}

		if err := d.confirm(cmd, fmt.Sprintf("Uninstall %s from %s?", name, pyenv.Label(renv.Env))); err != nil {
			return err
		}

		var after []manager.PackageInfo
		err = progress(cmd, "Uninstalling "+name, func(ctx context.Context) error {
			d.service.UninstallPackage(ctx, renv, name)
			after = d.service.Refresh(ctx, renv)
			return nil
		})
		if err != nil {
			return err
		}
		if len(after) == 0 && len(before) > 1 {
			return fmt.Errorf("could not list the packages of %s after uninstalling %s", pyenv.Label(renv.Env), name)
		}
		if pkg, ok := findPackage(after, name); ok {
			return fmt.Errorf("%s %s is still installed", pkg.Name, pkg.Version)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uninstalled: %s\n", name)
		return nil
	},
}

var installCmd = &cobra.Command{
	Use:   "install <notebook> <package>",
	Short: "Install a package into a notebook's environment",
	Long: `Install a package into the environment of a notebook's kernel.

The package may carry a version constraint, e.g. "numpy==1.26.0" for pip
or "numpy=1.26" for conda.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		renv, err := d.environment(cmd, args[0])
		if err != nil {
			return err
		}
		spec := args[1]

		var after []manager.PackageInfo
		err = progress(cmd, "Installing "+spec, func(ctx context.Context) error {
			d.service.InstallPackage(ctx, renv, spec)
			after = d.service.Refresh(ctx, renv)
			return nil
		})
		if err != nil {
			return err
		}
		pkg, ok := findPackage(after, packageName(spec))
		if !ok {
			return fmt.Errorf("%s was not installed into %s", spec, pyenv.Label(renv.Env))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Installed: %s %s\n", pkg.Name, pkg.Version)
		return nil
	},
}

func init() {
	addYesFlag(uninstallCmd)
	rootCmd.AddCommand(uninstallCmd, installCmd)
}
