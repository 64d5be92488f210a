package cmd

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barysiuk/kenv/internal/core/manager"
	"github.com/barysiuk/kenv/internal/core/pyenv"
)

var updateCmd = &cobra.Command{
	Use:   "update <notebook> [package]",
	Short: "Update one package, or all outdated packages with --all",
	Long: `Update a package in the environment of a notebook's kernel.

With --all every outdated package is updated. Pip environments update the
packages reported by 'pip list --outdated'; conda environments run
'conda update --all'.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		switch {
		case all && len(args) == 2:
			return fmt.Errorf("cannot combine a package name with --all")
		case !all && len(args) == 1:
			return fmt.Errorf("specify a package to update, or --all")
		}

		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		renv, err := d.environment(cmd, args[0])
		if err != nil {
			return err
		}
		before, err := d.installedPackages(cmd, renv)
		if err != nil {
			return err
		}

		var question, label string
		if all {
			question = fmt.Sprintf("Update all outdated packages in %s?", pyenv.Label(renv.Env))
			label = "Updating packages"
		} else {
			question = fmt.Sprintf("Update %s in %s?", args[1], pyenv.Label(renv.Env))
			label = "Updating " + args[1]
		}
		if err := d.confirm(cmd, question); err != nil {
			return err
		}

		var after []manager.PackageInfo
		err = progress(cmd, label, func(ctx context.Context) error {
			if all {
				d.service.UpdatePackages(ctx, renv)
			} else {
				d.service.UpdatePackage(ctx, renv, args[1])
			}
			after = d.service.Refresh(ctx, renv)
			return nil
		})
		if err != nil {
			return err
		}

		changed := versionChanges(before, after)
		out := cmd.OutOrStdout()
		if !all {
			name := packageName(args[1])
			if c, ok := changed[normalizeName(name)]; ok {
				fmt.Fprintf(out, "Updated %s: %s\n", name, c)
				return nil
			}
			if _, ok := findPackage(after, name); !ok {
				return fmt.Errorf("%s is not installed in %s", name, pyenv.Label(renv.Env))
			}
			fmt.Fprintf(out, "%s is unchanged.\n", name)
			return nil
		}
		if len(changed) == 0 {
			fmt.Fprintln(out, "No packages changed.")
			return nil
		}
		for _, pkg := range after {
			if c, ok := changed[normalizeName(pkg.Name)]; ok {
				fmt.Fprintf(out, "Updated %s: %s\n", pkg.Name, c)
			}
		}
		return nil
	},
}

// packageSpecName matches the distribution name at the start of a
// requirement such as "numpy==1.26" or "rich[jupyter]>=13".
var packageSpecName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*`)

// packageName strips version constraints and extras from a requirement.
func packageName(spec string) string {
	if name := packageSpecName.FindString(strings.TrimSpace(spec)); name != "" {
		return name
	}
	return spec
}

// normalizeName folds case and separators the way package indexes do.
func normalizeName(name string) string {
	return strings.NewReplacer("_", "-", ".", "-").Replace(strings.ToLower(name))
}

func findPackage(pkgs []manager.PackageInfo, name string) (manager.PackageInfo, bool) {
	name = normalizeName(name)
	for _, pkg := range pkgs {
		if normalizeName(pkg.Name) == name {
			return pkg, true
		}
	}
	return manager.PackageInfo{}, false
}

// versionChanges maps the normalized names of packages whose version
// differs between before and after to "old -> new".
func versionChanges(before, after []manager.PackageInfo) map[string]string {
	old := make(map[string]string, len(before))
	for _, pkg := range before {
		old[normalizeName(pkg.Name)] = pkg.Version
	}
	changes := make(map[string]string)
	for _, pkg := range after {
		key := normalizeName(pkg.Name)
		if v, ok := old[key]; ok && v != pkg.Version {
			changes[key] = v + " -> " + pkg.Version
		}
	}
	return changes
}

func init() {
	updateCmd.Flags().Bool("all", false, "Update every outdated package")
	addYesFlag(updateCmd)
	rootCmd.AddCommand(updateCmd)
}
