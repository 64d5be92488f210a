package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// logger is built before any command runs. closeLogger releases it.
var (
	logger      = zap.NewNop()
	closeLogger = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "kenv",
	Short: "Manage the Python environments behind remote Jupyter kernels",
	Long: `kenv inspects the Python environment of every notebook kernel running
on a Jupyter Server and manages its packages with pip or conda, by running
%pip and %conda magics inside the kernel itself.

Notebooks are named by their session path on the server, for example
analysis/model.ipynb.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logFile, _ := cmd.Flags().GetString("log-file")
		l, closeLog, err := newLogger(cmd.ErrOrStderr(), verbose, logFile)
		if err != nil {
			return err
		}
		logger, closeLogger = l, closeLog
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "kenv %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("server", "s", "", "Jupyter server to use (default: configured default or $KENV_SERVER_URL)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. An interrupt cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer func() { closeLogger() }()
	return rootCmd.ExecuteContext(ctx)
}
