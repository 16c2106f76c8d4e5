package models

import "time"

// BatchMetadata describes one persisted batch
type BatchMetadata struct {
	BatchNumber      int       `json:"batch_number"`
	Timestamp        time.Time `json:"timestamp"`
	RecordsInBatch   int       `json:"records_in_batch"`
	CumulativeCount  int       `json:"cumulative_count"`
	SourceIdentifier string    `json:"source_identifier"`
	RunID            string    `json:"run_id"`
}

// Batch is an immutable group of records persisted as one checkpoint
type Batch struct {
	Metadata BatchMetadata `json:"batch_metadata"`
	Records  []*Record     `json:"records"`
}

// RunMetadata summarizes a whole extraction run
type RunMetadata struct {
	Timestamp        time.Time `json:"timestamp"`
	TotalRecords     int       `json:"total_records"`
	TotalBatches     int       `json:"total_batches"`
	BatchSize        int       `json:"batch_size"`
	SourceIdentifier string    `json:"source_identifier"`
	RunID            string    `json:"run_id"`
	Extractor        string    `json:"extractor"`
}

// FinalOutput is the consolidated artifact written at the end of a run
type FinalOutput struct {
	RunMetadata RunMetadata `json:"run_metadata"`
	Records     []*Record   `json:"records"`
}

// RunReport is what a run hands back to its caller, on success or failure
type RunReport struct {
	Metadata   RunMetadata
	State      string
	Batches    []BatchMetadata
	Pending    int // records still buffered (non-zero only after a checkpoint failure)
	Duplicates int // re-rendered items dropped by id
	BatchDir   string
	FinalPath  string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// CompletedRecords returns the cumulative count of the last persisted batch
func (r *RunReport) CompletedRecords() int {
	if len(r.Batches) == 0 {
		return 0
	}
	return r.Batches[len(r.Batches)-1].CumulativeCount
}
