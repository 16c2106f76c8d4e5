package storage

import (
	"context"

	"catalog-scraper/models"
)

// BatchStore durably persists batches. WriteBatch must be atomic: a batch is
// either fully visible under its index or not visible at all, and writing the
// same index twice leaves exactly one batch.
type BatchStore interface {
	WriteBatch(ctx context.Context, batch *models.Batch) (string, error)
	ReadBatches(ctx context.Context) ([]*models.Batch, error)
}

// RecordMirror receives a copy of every persisted batch (e.g. a database)
type RecordMirror interface {
	SaveBatch(ctx context.Context, batch *models.Batch) error
	Close() error
}
