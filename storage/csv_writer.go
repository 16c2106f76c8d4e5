package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"catalog-scraper/models"
	"catalog-scraper/utils"
)

// CSVWriter handles writing extracted records to a CSV file
type CSVWriter struct {
	filePath string
	logger   *utils.Logger
}

// NewCSVWriter creates a new CSVWriter
func NewCSVWriter(filePath string, logger *utils.Logger) *CSVWriter {
	return &CSVWriter{filePath: filePath, logger: logger}
}

// WriteRecords writes a slice of Records to CSV file; null fields become empty cells
func (w *CSVWriter) WriteRecords(records []*models.Record) error {
	dir := filepath.Dir(w.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"id", "name", "category", "description", "dimensions",
		"price_raw", "price_value", "updated", "extracted_at",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range records {
		price := ""
		if r.PriceValue != nil {
			price = strconv.FormatFloat(*r.PriceValue, 'f', -1, 64)
		}
		row := []string{
			strconv.FormatInt(r.ID, 10),
			deref(r.Name),
			deref(r.Category),
			deref(r.Description),
			deref(r.Dimensions),
			deref(r.PriceRaw),
			price,
			deref(r.Updated),
			r.ExtractedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			w.logger.Error("Failed to write CSV row for id %d: %v", r.ID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	w.logger.Info("Records written to: %s (%d rows)", w.filePath, len(records))
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
