package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"catalog-scraper/models"
	"catalog-scraper/utils"
)

const batchGlob = "batch_*.json"

// FileStore keeps one JSON file per batch inside a run folder
type FileStore struct {
	dir    string
	logger *utils.Logger
}

// NewFileStore creates the batch folder if needed
func NewFileStore(dir string, logger *utils.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create batch directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Dir returns the batch folder
func (s *FileStore) Dir() string {
	return s.dir
}

// BatchPath returns the file name used for a batch index
func (s *FileStore) BatchPath(batchNumber int) string {
	return filepath.Join(s.dir, fmt.Sprintf("batch_%03d.json", batchNumber))
}

// WriteBatch atomically writes the batch under its index
func (s *FileStore) WriteBatch(ctx context.Context, batch *models.Batch) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := s.BatchPath(batch.Metadata.BatchNumber)
	if err := WriteJSONAtomic(path, batch); err != nil {
		return "", fmt.Errorf("failed to write batch %d: %w", batch.Metadata.BatchNumber, err)
	}
	s.logger.Debug("Batch %d saved to %s", batch.Metadata.BatchNumber, path)
	return path, nil
}

// ReadBatches loads every persisted batch, ordered by batch number
func (s *FileStore) ReadBatches(ctx context.Context) ([]*models.Batch, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, batchGlob))
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	batches := make([]*models.Batch, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := ReadBatchFile(p)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}

	sort.Slice(batches, func(i, j int) bool {
		return batches[i].Metadata.BatchNumber < batches[j].Metadata.BatchNumber
	})
	return batches, nil
}

// ReadBatchFile decodes a single batch file
func ReadBatchFile(path string) (*models.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file %s: %w", path, err)
	}
	var b models.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}
	return &b, nil
}

// WriteFinal atomically writes the consolidated run artifact
func WriteFinal(path string, out *models.FinalOutput) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := WriteJSONAtomic(path, out); err != nil {
		return fmt.Errorf("failed to write final output: %w", err)
	}
	return nil
}

// WriteJSONAtomic marshals v and replaces path via a synced temp file and rename,
// so readers never observe a half-written file.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true

	// Best effort: persist the directory entry too.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
