package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"AINewsletter/internal/app"
	"AINewsletter/internal/logging"
)

type runOptions struct {
	dryRun bool
	output string
}

func bindRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Render to a file instead of sending; history is not updated")
	cmd.Flags().StringVarP(&opts.output, "output", "o", app.DefaultPreviewPath, "Output file for --dry-run")
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate and send one newsletter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, ctx, opts)
		},
	}
	bindRunFlags(cmd, &opts)
	return cmd
}

func runOnce(cmd *cobra.Command, ctx *commandContext, opts runOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger := logging.NewWithFormat(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(signalCtx, cfg, logger, app.Options{DryRun: opts.dryRun, OutputPath: opts.output})
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.Run(signalCtx)
	if err != nil {
		return fmt.Errorf("run %s: %w", report.RunID, err)
	}

	out := cmd.OutOrStdout()
	if opts.dryRun {
		fmt.Fprintf(out, "Dry run: %d items written to %s (%d duplicates removed)\n", report.Items, opts.output, report.Removed)
		return nil
	}
	fmt.Fprintf(out, "Newsletter sent to %s: %d items, %d duplicates removed, history saved: %s\n",
		cfg.Newsletter.Recipient, report.Items, report.Removed, yesNo(report.HistorySaved))
	return nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
