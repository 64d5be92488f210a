package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barysiuk/kenv/internal/core/manager"
	"github.com/barysiuk/kenv/internal/tui"
)

var searchCmd = &cobra.Command{
	Use:   "search <notebook> <query>",
	Short: "Search the package index of a notebook's environment",
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

		var results []manager.SearchResult
		err = progress(cmd, "Searching for "+args[1], func(ctx context.Context) error {
			results = d.service.SearchPackage(ctx, renv, args[1])
			return nil
		})
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			if results == nil {
				results = []manager.SearchResult{}
			}
			return printJSON(cmd, results)
		}
		if len(results) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No packages found for %q.\n", args[1])
			return nil
		}
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{r.Name, r.Version, r.Channel})
		}
		fmt.Fprint(cmd.OutOrStdout(), tui.Table([]string{"Package", "Version", "Channel"}, rows, terminalWidth()))
		return nil
	},
}

func init() {
	searchCmd.Flags().Bool("json", false, "Output as JSON for scripting")
	rootCmd.AddCommand(searchCmd)
}
