// Package extraction implements the incremental batch-extraction engine: it
// drives lazy loading of a catalog view, deduplicates the records that appear,
// checkpoints them in bounded batches and writes a consolidated artifact.
package extraction

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPositioned means the session collaborator could not reach the data view
	ErrNotPositioned = errors.New("browser is not positioned at the data view")

	// ErrLoadFailed means the view stopped responding after bounded retries
	ErrLoadFailed = errors.New("load trigger failed")

	// ErrCheckpoint means a batch could not be persisted
	ErrCheckpoint = errors.New("checkpoint write failed")

	// ErrRunFinished is returned when Run is called on a used orchestrator
	ErrRunFinished = errors.New("orchestrator already ran; create a new one")

	// ErrNoIdentifier marks an item that cannot be counted because it has no id
	ErrNoIdentifier = errors.New("item has no identifier")
)

// LoadError describes a browser call that kept failing
type LoadError struct {
	Op       string
	Attempts int
	Cause    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load trigger failed: %s after %d attempts: %v", e.Op, e.Attempts, e.Cause)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoadFailed, e.Cause}
}

// CheckpointError describes a batch that could not be written. The records
// stay buffered so the flush can be retried under the same batch number.
type CheckpointError struct {
	BatchNumber int
	Cause       error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint write failed: batch %d: %v", e.BatchNumber, e.Cause)
}

func (e *CheckpointError) Unwrap() []error {
	return []error{ErrCheckpoint, e.Cause}
}
