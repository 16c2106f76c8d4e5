package main

import (
	"fmt"
	"os"

	"catalog-scraper/models"
	"catalog-scraper/services"
	"catalog-scraper/storage"
	"catalog-scraper/utils"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <batch-dir>",
	Short: "List the batches in a batch folder and check their consistency",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	store, err := storage.NewFileStore(args[0], utils.NewNopLogger())
	if err != nil {
		return err
	}
	batches, err := store.ReadBatches(cmd.Context())
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return fmt.Errorf("no batch files found in %s", args[0])
	}

	metas := make([]models.BatchMetadata, 0, len(batches))
	for _, b := range batches {
		metas = append(metas, b.Metadata)
	}
	services.RenderBatchTable(os.Stdout, metas)

	if err := verifyBatches(batches); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "OK: %d batches, %d records\n", len(batches), metas[len(metas)-1].CumulativeCount)
	return nil
}

// verifyBatches checks numbering, counts, cumulative totals and id uniqueness
func verifyBatches(batches []*models.Batch) error {
	seen := utils.NewIDSet()
	cumulative := 0
	for i, b := range batches {
		m := b.Metadata
		if m.BatchNumber != i+1 {
			return fmt.Errorf("batch %d: expected batch number %d", m.BatchNumber, i+1)
		}
		if m.RecordsInBatch != len(b.Records) {
			return fmt.Errorf("batch %d: records_in_batch is %d but holds %d records", m.BatchNumber, m.RecordsInBatch, len(b.Records))
		}
		cumulative += len(b.Records)
		if m.CumulativeCount != cumulative {
			return fmt.Errorf("batch %d: cumulative_count is %d, expected %d", m.BatchNumber, m.CumulativeCount, cumulative)
		}
		for _, r := range b.Records {
			if !seen.Add(r.ID) {
				return fmt.Errorf("batch %d: duplicate record id %d", m.BatchNumber, r.ID)
			}
		}
	}
	return nil
}
