package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"MentionScanner/internal/app"
	"MentionScanner/internal/domain"
)

var (
	exportOutput   string
	exportText     string
	exportSource   string
	exportCategory string
	exportMinConf  float64
	exportFrom     string
	exportTo       string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored articles as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := setup()

		ctx, stop := signalContext()
		defer stop()

		var out io.Writer = cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("create %s: %w", exportOutput, err)
			}
			defer f.Close()
			out = f
		}

		n, err := app.Export(ctx, cfg, domain.ArticleFilter{
			Text:          exportText,
			Source:        exportSource,
			Category:      exportCategory,
			MinConfidence: exportMinConf,
			PublishedFrom: exportFrom,
			PublishedTo:   exportTo,
			Limit:         domain.ExportLimit,
		}, out)
		if err != nil {
			return err
		}
		logger.Info("export finished", "rows", n, "output", exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	exportCmd.Flags().StringVar(&exportText, "q", "", "Substring of title, content or summary")
	exportCmd.Flags().StringVar(&exportSource, "source", "", "Exact source")
	exportCmd.Flags().StringVar(&exportCategory, "category", "", "Exact category")
	exportCmd.Flags().Float64Var(&exportMinConf, "min-conf", 0, "Minimum confidence")
	exportCmd.Flags().StringVar(&exportFrom, "date-from", "", "Earliest published_at (inclusive)")
	exportCmd.Flags().StringVar(&exportTo, "date-to", "", "Latest published_at (inclusive)")
	rootCmd.AddCommand(exportCmd)
}
