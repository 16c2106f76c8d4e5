package extraction

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"catalog-scraper/models"
	"catalog-scraper/storage"
	"catalog-scraper/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckpointer(store storage.BatchStore, mirror storage.RecordMirror, size int) *Checkpointer {
	return NewCheckpointer(store, mirror, size, "https://catalog.example.com", "run-1", utils.NewNopLogger())
}

func TestCheckpointer_FlushAtThreshold(t *testing.T) {
	store := newMemStore()
	c := newCheckpointer(store, nil, 3)
	ctx := context.Background()

	c.Append(recs(1, 2))
	assert.False(t, c.ShouldFlush())

	c.Append(recs(3, 4))
	require.True(t, c.ShouldFlush())

	b, err := c.Flush(ctx)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, []int64{1, 2, 3}, idsOf(b.Records))
	assert.Equal(t, 1, b.Metadata.BatchNumber)
	assert.Equal(t, 3, b.Metadata.RecordsInBatch)
	assert.Equal(t, 3, b.Metadata.CumulativeCount)
	assert.Equal(t, "https://catalog.example.com", b.Metadata.SourceIdentifier)
	assert.Equal(t, 1, c.Pending())
	assert.False(t, c.ShouldFlush())
}

func TestCheckpointer_EmptyFlushIsNoop(t *testing.T) {
	store := newMemStore()
	c := newCheckpointer(store, nil, 3)

	b, err := c.Flush(context.Background())
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.Equal(t, 0, store.writes)
	assert.Empty(t, c.Persisted())
}

func TestCheckpointer_BatchBoundsAndCumulativeCounts(t *testing.T) {
	store := newMemStore()
	c := newCheckpointer(store, nil, 4)
	ctx := context.Background()

	var id int64
	for pass := 0; pass < 7; pass++ {
		var batch []*models.Record
		for i := 0; i < 3; i++ {
			id++
			batch = append(batch, &models.Record{ID: id})
		}
		c.Append(batch)
		for c.ShouldFlush() {
			_, err := c.Flush(ctx)
			require.NoError(t, err)
		}
	}
	for c.Pending() > 0 {
		_, err := c.Flush(ctx)
		require.NoError(t, err)
	}

	persisted := c.Persisted()
	require.Len(t, persisted, 6) // 21 records / 4
	for i, md := range persisted {
		assert.Equal(t, i+1, md.BatchNumber)
		if i < len(persisted)-1 {
			assert.Equal(t, 4, md.RecordsInBatch, "non-final batches are full")
		}
		if i > 0 {
			assert.Equal(t, persisted[i-1].CumulativeCount+md.RecordsInBatch, md.CumulativeCount)
		}
	}
	assert.Equal(t, 1, persisted[5].RecordsInBatch)
	assert.Equal(t, 21, c.Cumulative())
}

func TestCheckpointer_RetryAfterWriteFailureIsIdempotent(t *testing.T) {
	store := newMemStore()
	store.failN = 1
	c := newCheckpointer(store, nil, 2)
	ctx := context.Background()

	c.Append(recs(1, 2, 3))

	_, err := c.Flush(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCheckpoint)
	assert.ErrorIs(t, err, errDiskFull)
	var ce *CheckpointError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.BatchNumber)
	assert.Equal(t, 3, c.Pending(), "buffer survives a failed write")

	c.Append(recs(4)) // arrivals during the outage do not change the pending batch

	b, err := c.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Metadata.BatchNumber)
	assert.Equal(t, []int64{1, 2}, idsOf(b.Records))
	assert.Equal(t, 2, c.Pending())

	batches, err := store.ReadBatches(ctx)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestCheckpointer_FileStoreRetryLeavesOneBatch(t *testing.T) {
	fs, err := storage.NewFileStore(filepath.Join(t.TempDir(), "batches"), utils.NewNopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	// the same batch delivered twice under one number stays one batch
	c := newCheckpointer(fs, nil, 2)
	c.Append(recs(1, 2))
	b, err := c.Flush(ctx)
	require.NoError(t, err)
	_, err = fs.WriteBatch(ctx, b)
	require.NoError(t, err)

	batches, err := fs.ReadBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, []int64{1, 2}, idsOf(batches[0].Records))
}

func TestCheckpointer_MirrorFailureIsNotFatal(t *testing.T) {
	mirror := &mirrorSpy{err: errors.New("db down")}
	c := newCheckpointer(newMemStore(), mirror, 1)

	c.Append(recs(1))
	b, err := c.Flush(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Equal(t, []int{1}, mirror.saved)
}

func TestCheckpointer_Resume(t *testing.T) {
	prior := []*models.Batch{
		{Metadata: models.BatchMetadata{BatchNumber: 1, RecordsInBatch: 2, CumulativeCount: 2}, Records: recs(1, 2)},
		{Metadata: models.BatchMetadata{BatchNumber: 2, RecordsInBatch: 1, CumulativeCount: 3}, Records: recs(3)},
	}
	c := newCheckpointer(newMemStore(), nil, 2)
	require.NoError(t, c.Resume(prior))

	c.Append(recs(4))
	b, err := c.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, b.Metadata.BatchNumber)
	assert.Equal(t, 4, b.Metadata.CumulativeCount)
	assert.Len(t, c.Persisted(), 3)
}

func TestCheckpointer_ResumeRejectsInconsistentBatches(t *testing.T) {
	tests := []struct {
		name    string
		batches []*models.Batch
		wantErr string
	}{
		{"gap", []*models.Batch{
			{Metadata: models.BatchMetadata{BatchNumber: 2, RecordsInBatch: 1, CumulativeCount: 1}, Records: recs(1)},
		}, "expected batch 1"},
		{"count mismatch", []*models.Batch{
			{Metadata: models.BatchMetadata{BatchNumber: 1, RecordsInBatch: 2, CumulativeCount: 2}, Records: recs(1)},
		}, "declares 2 records"},
		{"cumulative mismatch", []*models.Batch{
			{Metadata: models.BatchMetadata{BatchNumber: 1, RecordsInBatch: 1, CumulativeCount: 5}, Records: recs(1)},
		}, "cumulative count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCheckpointer(newMemStore(), nil, 2)
			err := c.Resume(tt.batches)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
