package database

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/crawlscope/crawlscope/internal/analyzer"
)

var csvHeader = []string{
	"url", "crawl_delay", "allowed", "title", "description", "link_count",
	"is_js_heavy", "has_api", "feed_count", "recommendation", "generated_at",
}

// WriteCSV dumps the rows as CSV, header included, one line per report.
func WriteCSV(w io.Writer, rows []analyzer.ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.URL,
			strconv.FormatFloat(row.CrawlDelaySeconds, 'f', -1, 64),
			strconv.FormatBool(row.Allowed),
			row.Title,
			row.Description,
			strconv.Itoa(row.LinkCount),
			strconv.FormatBool(row.IsJSHeavy),
			strconv.FormatBool(row.HasAPI),
			strconv.Itoa(row.FeedCount),
			string(row.Recommendation),
			row.GeneratedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
