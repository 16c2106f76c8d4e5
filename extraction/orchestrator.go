package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-scraper/models"
	"catalog-scraper/storage"
	"catalog-scraper/utils"
)

// ExtractorName is recorded in the run metadata of every final artifact
const ExtractorName = "catalog-scraper incremental batch extractor"

// Options configures one extraction run
type Options struct {
	BatchSize          int
	SettleInterval     time.Duration
	StallConfirmations int
	MaxItems           int // 0 disables the ceiling
	Call               CallPolicy

	SourceIdentifier string
	RunID            string
	BatchDir         string
	FinalPath        string // consolidated artifact; skipped when empty

	// Resume holds batches persisted by an earlier run, ordered by number
	Resume []*models.Batch
}

// Deps are the collaborators a run talks to
type Deps struct {
	Positioner Positioner
	View       View
	Store      storage.BatchStore
	Mirror     storage.RecordMirror // optional
}

// Orchestrator drives a single extraction run. It is not reusable.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *utils.Logger

	loader       *Loader
	extractor    *Extractor
	accumulator  *Accumulator
	checkpointer *Checkpointer

	state  State
	stalls int
	ran    bool
}

// NewOrchestrator validates the options and wires a fresh run
func NewOrchestrator(deps Deps, opts Options, logger *utils.Logger) (*Orchestrator, error) {
	if deps.Positioner == nil || deps.View == nil || deps.Store == nil {
		return nil, fmt.Errorf("positioner, view and store are required")
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.StallConfirmations < 1 {
		return nil, fmt.Errorf("stall confirmations must be at least 1, got %d", opts.StallConfirmations)
	}
	if opts.Call.MaxRetries < 1 {
		return nil, fmt.Errorf("max retries must be at least 1, got %d", opts.Call.MaxRetries)
	}
	if opts.Call.Backoff == 0 {
		opts.Call.Backoff = opts.SettleInterval
	}

	logger = logger.With("run_id", opts.RunID)
	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		logger: logger,
		state:  StateInit,
	}, nil
}

// State returns the current phase
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) transition(next State) {
	o.logger.Debug("State %s -> %s", o.state, next)
	o.state = next
}

// Run executes the whole extraction. The returned report is always non-nil
// (except for ErrRunFinished) and lists every batch persisted before any failure.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunReport, error) {
	if o.ran {
		return nil, ErrRunFinished
	}
	o.ran = true

	report := &models.RunReport{
		StartedAt: time.Now().UTC(),
		BatchDir:  o.opts.BatchDir,
		Metadata: models.RunMetadata{
			BatchSize:        o.opts.BatchSize,
			SourceIdentifier: o.opts.SourceIdentifier,
			RunID:            o.opts.RunID,
			Extractor:        ExtractorName,
		},
	}
	finish := func(err error) (*models.RunReport, error) {
		o.transition(StateTerminated)
		report.State = o.state.String()
		report.FinishedAt = time.Now().UTC()
		report.Err = err
		if o.checkpointer != nil {
			report.Batches = o.checkpointer.Persisted()
			report.Pending = o.checkpointer.Pending()
		}
		if o.accumulator != nil {
			report.Duplicates = o.accumulator.Dropped()
		}
		return report, err
	}

	if err := o.deps.Positioner.EnsurePositioned(ctx); err != nil {
		return finish(fmt.Errorf("%w: %w", ErrNotPositioned, err))
	}

	if err := o.init(); err != nil {
		return finish(err)
	}

	// runErr is the first fatal load failure or the cancellation cause;
	// finalizing still happens so buffered records reach storage.
	var runErr error
	if err := o.loader.Prime(ctx); err != nil {
		runErr = o.loadFailure(ctx, err)
		o.transition(StateFinalizing)
	} else {
		o.transition(StateLoading)
	}

	for o.state != StateFinalizing {
		switch o.state {
		case StateLoading:
			if ctx.Err() != nil {
				runErr = o.loadFailure(ctx, ctx.Err())
				o.transition(StateFinalizing)
				continue
			}
			changed, err := o.loader.TriggerMore(ctx)
			if err != nil {
				runErr = o.loadFailure(ctx, err)
				o.transition(StateFinalizing)
				continue
			}
			if changed {
				o.stalls = 0
			} else {
				o.stalls++
				o.logger.Info("No new items rendered (stall %d/%d)", o.stalls, o.opts.StallConfirmations)
				if o.stalls >= o.opts.StallConfirmations {
					o.logger.Info("No new items loading. Processing final batch.")
					o.transition(StateDone)
					continue
				}
			}
			o.transition(StateExtracting)

		case StateExtracting:
			if err := o.extractPass(ctx); err != nil {
				runErr = o.loadFailure(ctx, err)
				o.transition(StateFinalizing)
				continue
			}
			o.transition(StateCheckpointing)

		case StateCheckpointing:
			for o.checkpointer.ShouldFlush() {
				if _, err := o.checkpointer.Flush(context.WithoutCancel(ctx)); err != nil {
					o.logger.Error("Checkpoint failed, %d records remain buffered: %v", o.checkpointer.Pending(), err)
					return finish(err)
				}
			}
			switch {
			case o.opts.MaxItems > 0 && o.loader.LastCount() >= o.opts.MaxItems:
				o.logger.Warn("Reached maximum item limit (%d). Stopping extraction.", o.opts.MaxItems)
				o.transition(StateDone)
			case ctx.Err() != nil:
				runErr = o.loadFailure(ctx, ctx.Err())
				o.transition(StateFinalizing)
			default:
				o.transition(StateLoading)
			}

		case StateDone:
			o.transition(StateFinalizing)
		}
	}

	if err := o.finalize(ctx, runErr == nil, report); err != nil {
		return finish(errors.Join(runErr, err))
	}
	return finish(runErr)
}

func (o *Orchestrator) init() error {
	o.accumulator = NewAccumulator()
	o.checkpointer = NewCheckpointer(o.deps.Store, o.deps.Mirror, o.opts.BatchSize, o.opts.SourceIdentifier, o.opts.RunID, o.logger)
	o.loader = NewLoader(o.deps.View, o.opts.SettleInterval, o.opts.Call, o.logger)
	o.extractor = NewExtractor(o.deps.View, o.opts.Call, o.logger)

	if len(o.opts.Resume) > 0 {
		if err := o.checkpointer.Resume(o.opts.Resume); err != nil {
			return err
		}
		for _, b := range o.opts.Resume {
			ids := make([]int64, 0, len(b.Records))
			for _, r := range b.Records {
				ids = append(ids, r.ID)
			}
			o.accumulator.Seed(ids)
		}
		o.logger.Info("Resuming after %d batches (%d records committed)", len(o.opts.Resume), o.accumulator.Committed())
	}
	o.logger.Info("Starting batch extraction with batch size: %d", o.opts.BatchSize)
	return nil
}

func (o *Orchestrator) extractPass(ctx context.Context) error {
	candidates, err := o.extractor.ExtractVisible(ctx)
	if err != nil {
		return err
	}
	fresh, seen := o.accumulator.Partition(candidates)
	o.checkpointer.Append(fresh)
	o.logger.Debug("Pass: %d new, %d already seen, %d buffered", len(fresh), seen, o.checkpointer.Pending())
	return nil
}

// loadFailure logs and normalizes a reason to stop loading
func (o *Orchestrator) loadFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		o.logger.Warn("Extraction cancelled; finalizing with %d buffered records", o.checkpointer.Pending())
		return fmt.Errorf("run cancelled: %w", ctx.Err())
	}
	o.logger.Error("Load trigger failed; finalizing with %d buffered records: %v", o.checkpointer.Pending(), err)
	return err
}

// finalize flushes the remainder and writes the consolidated artifact. It
// ignores cancellation of ctx so buffered records are never dropped.
func (o *Orchestrator) finalize(ctx context.Context, clean bool, report *models.RunReport) error {
	fctx := context.WithoutCancel(ctx)

	if clean {
		// One more look in case items rendered during the last settle wait.
		if err := o.extractPass(ctx); err != nil {
			o.logger.Warn("Final extraction pass failed: %v", err)
		}
	}

	for o.checkpointer.Pending() > 0 {
		if _, err := o.checkpointer.Flush(fctx); err != nil {
			o.logger.Error("Final flush failed, %d records remain buffered: %v", o.checkpointer.Pending(), err)
			return err
		}
	}

	batches, err := o.deps.Store.ReadBatches(fctx)
	if err != nil {
		return fmt.Errorf("failed to read back batches: %w", err)
	}

	records := make([]*models.Record, 0, o.checkpointer.Cumulative())
	for _, b := range batches {
		records = append(records, b.Records...)
	}

	report.Metadata.Timestamp = time.Now().UTC()
	report.Metadata.TotalRecords = len(records)
	report.Metadata.TotalBatches = len(batches)

	if o.opts.FinalPath != "" {
		out := &models.FinalOutput{RunMetadata: report.Metadata, Records: records}
		if err := storage.WriteFinal(o.opts.FinalPath, out); err != nil {
			return err
		}
		report.FinalPath = o.opts.FinalPath
		o.logger.Info("Final consolidated data saved to %s", o.opts.FinalPath)
	}

	o.logger.Info("Total records extracted: %d", report.Metadata.TotalRecords)
	o.logger.Info("Total batches processed: %d", report.Metadata.TotalBatches)
	o.logger.Info("Re-rendered items skipped: %d", o.accumulator.Dropped())
	return nil
}
