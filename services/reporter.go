package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"catalog-scraper/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PrintRunSummary prints the outcome of a run, including partial progress on failure
func PrintRunSummary(w io.Writer, report *models.RunReport) {
	border := strings.Repeat("=", 60)

	fmt.Fprintf(w, "\n%s\n", border)
	if report.Err == nil {
		fmt.Fprintln(w, " BATCH EXTRACTION COMPLETED SUCCESSFULLY!")
	} else {
		fmt.Fprintln(w, " EXTRACTION FAILED!")
		fmt.Fprintf(w, " Reason: %v\n", report.Err)
	}
	fmt.Fprintln(w, border)

	fmt.Fprintf(w, " Records persisted       : %d\n", report.CompletedRecords())
	fmt.Fprintf(w, " Batches persisted       : %d\n", len(report.Batches))
	fmt.Fprintf(w, " Re-rendered, skipped    : %d\n", report.Duplicates)
	if report.Pending > 0 {
		fmt.Fprintf(w, " Records NOT persisted   : %d (retry the run with --resume)\n", report.Pending)
	}
	if report.BatchDir != "" {
		fmt.Fprintf(w, " Batch folder            : %s\n", report.BatchDir)
	}
	if report.FinalPath != "" {
		fmt.Fprintf(w, " Final output file       : %s\n", report.FinalPath)
	}
	if !report.FinishedAt.IsZero() && !report.StartedAt.IsZero() {
		fmt.Fprintf(w, " Duration                : %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintln(w, border)

	if len(report.Batches) > 0 {
		RenderBatchTable(w, report.Batches)
	}
}

// RenderBatchTable prints one row per persisted batch
func RenderBatchTable(w io.Writer, batches []models.BatchMetadata) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Batch", "Records", "Cumulative", "Timestamp"})
	for _, b := range batches {
		t.AppendRow(table.Row{b.BatchNumber, b.RecordsInBatch, b.CumulativeCount, b.Timestamp.Format("2006-01-02 15:04:05")})
	}
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.Render()
}

// PrintInsightReport formats and prints the insight report
func PrintInsightReport(w io.Writer, report *models.InsightReport) {
	thin := strings.Repeat("-", 55)

	fmt.Fprintf(w, "\n CATALOG INSIGHTS\n%s\n", thin)
	fmt.Fprintf(w, "  Total Records       : %d\n", report.TotalRecords)
	fmt.Fprintf(w, "  Records With Price  : %d\n", report.PricedRecords)
	fmt.Fprintf(w, "  Records Without Name: %d\n", report.MissingNameRecords)
	if report.PricedRecords > 0 {
		fmt.Fprintf(w, "  Average Price       : %.2f\n", report.AveragePrice)
		fmt.Fprintf(w, "  Minimum Price       : %.2f\n", report.MinPrice)
		fmt.Fprintf(w, "  Maximum Price       : %.2f\n", report.MaxPrice)
	}

	if r := report.MostExpensive; r != nil {
		fmt.Fprintf(w, "\n MOST EXPENSIVE PRODUCT\n%s\n", thin)
		fmt.Fprintf(w, "  ID    : %d\n", r.ID)
		fmt.Fprintf(w, "  Name  : %s\n", truncate(valueOr(r.Name, "-"), 45))
		fmt.Fprintf(w, "  Price : %s\n", valueOr(r.PriceRaw, "-"))
	}

	if len(report.RecordsByCategory) > 0 {
		fmt.Fprintf(w, "\n RECORDS PER CATEGORY\n%s\n", thin)
		type catCount struct {
			cat   string
			count int
		}
		var cats []catCount
		for cat, cnt := range report.RecordsByCategory {
			cats = append(cats, catCount{cat, cnt})
		}
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].count != cats[j].count {
				return cats[i].count > cats[j].count
			}
			return cats[i].cat < cats[j].cat
		})
		for _, c := range cats {
			fmt.Fprintf(w, "  %-30s %6d\n", truncate(c.cat, 29)+":", c.count)
		}
	}
	fmt.Fprintln(w)
}

func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
