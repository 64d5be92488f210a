package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/barysiuk/kenv/internal/core/pyenv"
	"github.com/barysiuk/kenv/internal/kernel"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Report notebook kernels as they start and stop",
	Long: `Poll the server for notebook kernels and report each kernel that
starts, with its environment, and each notebook that goes away.

Runs until interrupted. With --once the current kernels are reported and
the command exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			interval = d.cfg.Settings.Interval()
		}
		w := kernel.NewWatcher(d.server, interval, logger.Named("watcher"))

		if once, _ := cmd.Flags().GetBool("once"); once {
			for _, ev := range w.Poll(cmd.Context()) {
				d.reportEvent(cmd, cmd.OutOrStdout(), ev)
			}
			return nil
		}

		logger.Debug("watching for kernels", zap.Duration("interval", interval))
		for ev := range w.Watch(cmd.Context()) {
			d.reportEvent(cmd, cmd.OutOrStdout(), ev)
		}
		return nil
	},
}

func (d *deps) reportEvent(cmd *cobra.Command, out io.Writer, ev kernel.Event) {
	if ev.Kind != kernel.KernelStarted {
		fmt.Fprintf(out, "%s\t%s\n", ev.Kind, ev.Document)
		return
	}
	renv, err := d.service.Environment(cmd.Context(), d.server, ev.Document)
	if err != nil {
		logger.Warn("could not inspect new kernel", zap.String("document", ev.Document), zap.Error(err))
		fmt.Fprintf(out, "%s\t%s\t%s\n", ev.Kind, ev.Document, ev.KernelID)
		return
	}
	fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", ev.Kind, ev.Document, ev.KernelID, pyenv.Title(renv.Env))
}

func init() {
	watchCmd.Flags().Duration("interval", 0, "Polling interval (default: watchInterval setting)")
	watchCmd.Flags().Bool("once", false, "Report the current kernels and exit")
	rootCmd.AddCommand(watchCmd)
}
