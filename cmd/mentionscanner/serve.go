package main

import (
	"github.com/spf13/cobra"

	"MentionScanner/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the chat poller and periodic ingestion",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := setup()

		ctx, stop := signalContext()
		defer stop()

		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		if err := application.Run(ctx); err != nil {
			logger.Error("application stopped", "error", err)
			return err
		}
		logger.Info("application stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
