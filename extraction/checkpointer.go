package extraction

import (
	"context"
	"fmt"
	"time"

	"catalog-scraper/models"
	"catalog-scraper/storage"
	"catalog-scraper/utils"
)

// Checkpointer buffers new records and persists them as numbered batches
type Checkpointer struct {
	store     storage.BatchStore
	mirror    storage.RecordMirror
	batchSize int
	source    string
	runID     string
	logger    *utils.Logger
	now       func() time.Time

	buffer     []*models.Record
	pending    *models.Batch // built on the first flush attempt, reused on retries
	nextIndex  int
	cumulative int
	persisted  []models.BatchMetadata
}

// NewCheckpointer creates a Checkpointer; mirror may be nil
func NewCheckpointer(store storage.BatchStore, mirror storage.RecordMirror, batchSize int, source, runID string, logger *utils.Logger) *Checkpointer {
	return &Checkpointer{
		store:     store,
		mirror:    mirror,
		batchSize: batchSize,
		source:    source,
		runID:     runID,
		logger:    logger,
		now:       time.Now,
		nextIndex: 1,
	}
}

// Resume continues numbering after previously persisted batches. The batches
// must be ordered, numbered 1..n, with consistent cumulative counts.
func (c *Checkpointer) Resume(batches []*models.Batch) error {
	cumulative := 0
	for i, b := range batches {
		md := b.Metadata
		if md.BatchNumber != i+1 {
			return fmt.Errorf("cannot resume: expected batch %d, found %d", i+1, md.BatchNumber)
		}
		if md.RecordsInBatch != len(b.Records) {
			return fmt.Errorf("cannot resume: batch %d declares %d records but holds %d", md.BatchNumber, md.RecordsInBatch, len(b.Records))
		}
		if md.CumulativeCount != cumulative+md.RecordsInBatch {
			return fmt.Errorf("cannot resume: batch %d cumulative count %d, expected %d", md.BatchNumber, md.CumulativeCount, cumulative+md.RecordsInBatch)
		}
		cumulative = md.CumulativeCount
		c.persisted = append(c.persisted, md)
	}
	c.nextIndex = len(batches) + 1
	c.cumulative = cumulative
	return nil
}

// Append buffers records for the next batch
func (c *Checkpointer) Append(records []*models.Record) {
	c.buffer = append(c.buffer, records...)
}

// ShouldFlush reports whether a full batch is buffered
func (c *Checkpointer) ShouldFlush() bool {
	return len(c.buffer) >= c.batchSize
}

// Flush persists up to batchSize buffered records as the next batch and
// returns it. An empty buffer is a no-op returning (nil, nil). On failure the
// buffer is kept and a retry writes the same batch under the same number.
func (c *Checkpointer) Flush(ctx context.Context) (*models.Batch, error) {
	if c.pending == nil {
		if len(c.buffer) == 0 {
			return nil, nil
		}
		n := min(len(c.buffer), c.batchSize)
		records := make([]*models.Record, n)
		copy(records, c.buffer[:n])
		c.pending = &models.Batch{
			Metadata: models.BatchMetadata{
				BatchNumber:      c.nextIndex,
				Timestamp:        c.now().UTC(),
				RecordsInBatch:   n,
				CumulativeCount:  c.cumulative + n,
				SourceIdentifier: c.source,
				RunID:            c.runID,
			},
			Records: records,
		}
	}

	batch := c.pending
	path, err := c.store.WriteBatch(ctx, batch)
	if err != nil {
		return nil, &CheckpointError{BatchNumber: batch.Metadata.BatchNumber, Cause: err}
	}

	n := batch.Metadata.RecordsInBatch
	rest := make([]*models.Record, len(c.buffer)-n, max(len(c.buffer)-n, c.batchSize))
	copy(rest, c.buffer[n:])
	c.buffer = rest
	c.pending = nil
	c.nextIndex++
	c.cumulative = batch.Metadata.CumulativeCount
	c.persisted = append(c.persisted, batch.Metadata)

	c.logger.Info("Batch %d saved to %s. Total records so far: %d", batch.Metadata.BatchNumber, path, c.cumulative)

	if c.mirror != nil {
		if err := c.mirror.SaveBatch(ctx, batch); err != nil {
			c.logger.Warn("Mirror write for batch %d failed (file checkpoint kept): %v", batch.Metadata.BatchNumber, err)
		}
	}
	return batch, nil
}

// Pending returns the number of buffered, unpersisted records
func (c *Checkpointer) Pending() int {
	return len(c.buffer)
}

// Cumulative returns the number of records persisted so far
func (c *Checkpointer) Cumulative() int {
	return c.cumulative
}

// Persisted returns metadata for every batch persisted so far, in order
func (c *Checkpointer) Persisted() []models.BatchMetadata {
	out := make([]models.BatchMetadata, len(c.persisted))
	copy(out, c.persisted)
	return out
}
