package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/barysiuk/kenv/internal/core/pyenv"
	"github.com/barysiuk/kenv/internal/tui"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth is the width of stdout, or 0 when it is not a terminal.
func terminalWidth() int {
	if !isTerminal(os.Stdout) {
		return 0
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// progress runs fn with a spinner on stderr when stderr is a terminal.
func progress(cmd *cobra.Command, label string, fn func(context.Context) error) error {
	if !isTerminal(os.Stderr) {
		return fn(cmd.Context())
	}
	return tui.Spin(cmd.Context(), os.Stdin, os.Stderr, label, fn)
}

// confirm asks before a destructive operation. --yes and the
// confirmDestructive setting skip the question; without a terminal the
// question cannot be asked and --yes is required.
func (d *deps) confirm(cmd *cobra.Command, message string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if yes || !d.cfg.Settings.Confirm() {
		return nil
	}
	if !isTerminal(os.Stdin) {
		return fmt.Errorf("stdin is not a terminal; pass --yes to confirm")
	}
	ok, err := tui.Confirm(os.Stdin, os.Stderr, message)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cancelled")
	}
	return nil
}

// environment introspects the kernel of notebook.
func (d *deps) environment(cmd *cobra.Command, notebook string) (pyenv.RemoteEnvironment, error) {
	var renv pyenv.RemoteEnvironment
	err := progress(cmd, "Inspecting the kernel of "+notebook, func(ctx context.Context) error {
		var err error
		renv, err = d.service.Environment(ctx, d.server, notebook)
		return err
	})
	return renv, err
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func addYesFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}
