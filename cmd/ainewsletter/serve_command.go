package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"AINewsletter/internal/app"
	"AINewsletter/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Send a newsletter now and then on every scheduler interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := logging.NewWithFormat(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			application, err := app.New(signalCtx, cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Serve(signalCtx)
		},
	}
}
