package extraction

import (
	"catalog-scraper/models"
	"catalog-scraper/utils"
)

// Accumulator remembers every identifier committed during a run.
// A record whose id was already committed is a re-render and is dropped,
// even if its fields changed since.
type Accumulator struct {
	committed *utils.IDSet
	dropped   int
}

// NewAccumulator creates an empty Accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{committed: utils.NewIDSet()}
}

// Seed marks ids from previously persisted batches as committed
func (a *Accumulator) Seed(ids []int64) {
	for _, id := range ids {
		a.committed.Add(id)
	}
}

// Partition returns the candidates not committed before, in order of first
// observation, and commits them immediately. seen counts dropped candidates.
func (a *Accumulator) Partition(candidates []*models.Record) (fresh []*models.Record, seen int) {
	for _, rec := range candidates {
		if rec == nil {
			continue
		}
		if !a.committed.Add(rec.ID) {
			seen++
			continue
		}
		fresh = append(fresh, rec)
	}
	a.dropped += seen
	return fresh, seen
}

// Committed returns the number of distinct ids committed so far
func (a *Accumulator) Committed() int {
	return a.committed.Len()
}

// Dropped returns the total number of duplicates dropped so far
func (a *Accumulator) Dropped() int {
	return a.dropped
}
