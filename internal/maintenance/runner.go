package maintenance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aziis98/osf-optimize/internal/database"
	"github.com/aziis98/osf-optimize/internal/fts"
	"github.com/aziis98/osf-optimize/internal/logging"
	"github.com/aziis98/osf-optimize/internal/util"
)

// Store is the database side of a run. *database.DB implements it.
type Store interface {
	Size() (int64, error)
	RecreateIndexes(ctx context.Context, specs []database.IndexSpec, onIndex func(name string), onSkip database.SkipFunc) (int, error)
	Analyze(ctx context.Context) error
	Vacuum(ctx context.Context) error
}

// IndexUpdater keeps the full-text index current. *fts.Maintainer implements it.
type IndexUpdater interface {
	Update(ctx context.Context) (fts.Result, error)
}

// StepResult records one executed step.
type StepResult struct {
	Step    Step
	Elapsed time.Duration
	// Count is the number of indexes recreated or rows indexed, 0 otherwise.
	Count int64
}

// Run is the record of one maintenance run. It is never persisted.
type Run struct {
	ID         string
	Plan       Plan
	Started    time.Time
	Finished   time.Time
	SizeBefore int64
	SizeAfter  int64
	Steps      []StepResult
}

// Delta is the signed change in file size.
func (r *Run) Delta() int64 {
	return r.SizeAfter - r.SizeBefore
}

// Executed reports whether step ran to completion.
func (r *Run) Executed(step Step) bool {
	for _, s := range r.Steps {
		if s.Step == step {
			return true
		}
	}
	return false
}

// Options configures a Runner.
type Options struct {
	Indexes []database.IndexSpec
	// OnIndex is called after every recreated index, e.g. to drive a progress bar.
	OnIndex func(name string)
}

// Runner executes plans against one database.
type Runner struct {
	store   Store
	fts     IndexUpdater
	log     *logging.Logger
	indexes []database.IndexSpec
	onIndex func(string)
}

// NewRunner builds a runner.
func NewRunner(store Store, ftsUpdater IndexUpdater, log *logging.Logger, opts Options) *Runner {
	if log == nil {
		log = logging.Discard()
	}
	return &Runner{
		store:   store,
		fts:     ftsUpdater,
		log:     log,
		indexes: opts.Indexes,
		onIndex: opts.OnIndex,
	}
}

// Run executes reindex, ANALYZE and VACUUM as the plan asks, in that order,
// then always updates the full-text index. It stops at the first failure and
// returns a *StepError; the returned Run holds whatever completed.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Run, error) {
	run := &Run{
		ID:      uuid.NewString(),
		Plan:    plan,
		Started: time.Now(),
	}
	defer func() { run.Finished = time.Now() }()

	r.log.Debugf("Run %s: %s", run.ID, plan)

	var err error
	run.SizeBefore, err = r.store.Size()
	if err != nil {
		return run, &StepError{Step: StepMeasure, Kind: KindConnection, Err: err}
	}
	r.log.Infof("Database size: %s bytes (%.2f MB)", util.Grouped(run.SizeBefore), util.Megabytes(run.SizeBefore))

	if plan.Reindex {
		r.log.Infof("Recreating indexes...")
		start := time.Now()
		n, err := r.store.RecreateIndexes(ctx, r.indexes, r.onIndex, func(table, column string) {
			r.log.Warnf("Skipping index %s: %s has no column %s", database.IndexName(table, column), table, column)
		})
		if err != nil {
			return run, &StepError{Step: StepReindex, Kind: KindStatement, Err: err}
		}
		elapsed := r.record(run, StepReindex, start, int64(n))
		r.log.Infof("Recreated %d indexes in %.2fs", n, elapsed.Seconds())
	}

	if plan.Analyze {
		r.log.Infof("Running ANALYZE...")
		start := time.Now()
		if err := r.store.Analyze(ctx); err != nil {
			return run, &StepError{Step: StepAnalyze, Kind: KindStatement, Err: err}
		}
		elapsed := r.record(run, StepAnalyze, start, 0)
		r.log.Infof("ANALYZE completed in %.2fs", elapsed.Seconds())
	}

	if plan.Vacuum {
		r.log.Infof("Running VACUUM (may take a while)...")
		start := time.Now()
		if err := r.store.Vacuum(ctx); err != nil {
			return run, &StepError{Step: StepVacuum, Kind: KindStatement, Err: err}
		}
		elapsed := r.record(run, StepVacuum, start, 0)
		r.log.Infof("VACUUM completed in %.2fs", elapsed.Seconds())
	}

	start := time.Now()
	res, err := r.fts.Update(ctx)
	if err != nil {
		return run, &StepError{Step: StepFTS, Kind: KindFTS, Err: err}
	}
	r.record(run, StepFTS, start, res.Rows)

	run.SizeAfter, err = r.store.Size()
	if err != nil {
		return run, &StepError{Step: StepMeasure, Kind: KindConnection, Err: err}
	}

	delta := run.Delta()
	r.log.Infof("Final size: %s bytes (%.2f MB)", util.Grouped(run.SizeAfter), util.Megabytes(run.SizeAfter))
	r.log.Infof("Change: %s bytes (%+.2f MB)", util.SignedGrouped(delta), util.Megabytes(delta))

	return run, nil
}

func (r *Runner) record(run *Run, step Step, start time.Time, count int64) time.Duration {
	elapsed := time.Since(start)
	run.Steps = append(run.Steps, StepResult{Step: step, Elapsed: elapsed, Count: count})
	return elapsed
}
