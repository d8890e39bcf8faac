package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"MentionScanner/internal/app"
)

var ingestFeeds []string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Crawl the configured feeds once and print the run counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := setup()

		ctx, stop := signalContext()
		defer stop()

		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		report := application.Ingest(ctx, ingestFeeds...)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	ingestCmd.Flags().StringArrayVar(&ingestFeeds, "feed", nil, "Additional feed URL (repeatable)")
	rootCmd.AddCommand(ingestCmd)
}
