package web

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"MentionScanner/internal/domain"
)

// ExportFilename is the attachment name for an export taken at now.
func ExportFilename(now time.Time) string {
	return "export_" + now.UTC().Format("20060102150405") + ".csv"
}

// WriteCSV writes articles in the canonical export column order, header first.
func WriteCSV(w io.Writer, articles []domain.Article) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, a := range articles {
		record := []string{
			a.Title,
			a.Source,
			a.PublishedAt,
			a.Summary,
			string(a.Category),
			strconv.FormatFloat(a.Confidence, 'f', -1, 64),
			a.URL,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", a.URL, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
