package maintenance

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aziis98/osf-optimize/internal/database"
	"github.com/aziis98/osf-optimize/internal/fts"
	"github.com/aziis98/osf-optimize/internal/logging"
	"github.com/aziis98/osf-optimize/internal/testutil"
)

// fakeStore records calls and can fail a chosen step.
type fakeStore struct {
	calls   []string
	sizes   []int64
	failOn  string
	skipped [][2]string
}

func (f *fakeStore) fail(step string) error {
	f.calls = append(f.calls, step)
	if f.failOn == step {
		return errors.New("database is locked")
	}
	return nil
}

func (f *fakeStore) Size() (int64, error) {
	if err := f.fail("size"); err != nil {
		return 0, err
	}
	s := f.sizes[0]
	if len(f.sizes) > 1 {
		f.sizes = f.sizes[1:]
	}
	return s, nil
}

func (f *fakeStore) RecreateIndexes(_ context.Context, specs []database.IndexSpec, onIndex func(string), onSkip database.SkipFunc) (int, error) {
	if err := f.fail("reindex"); err != nil {
		return 0, err
	}
	for _, s := range f.skipped {
		onSkip(s[0], s[1])
	}
	return database.IndexCount(specs), nil
}

func (f *fakeStore) Analyze(context.Context) error { return f.fail("analyze") }

func (f *fakeStore) Vacuum(context.Context) error { return f.fail("vacuum") }

type fakeFTS struct {
	store *fakeStore
}

func (f fakeFTS) Update(context.Context) (fts.Result, error) {
	if err := f.store.fail("fts"); err != nil {
		return fts.Result{}, err
	}
	return fts.Result{Action: fts.ActionRebuilt, Rows: 10}, nil
}

func newFakeRunner(store *fakeStore) (*Runner, *bytes.Buffer) {
	var buf bytes.Buffer
	r := NewRunner(store, fakeFTS{store}, logging.New(&buf, false), Options{
		Indexes: []database.IndexSpec{{Table: "preprints", Columns: []string{"provider", "date_created"}}},
	})
	return r, &buf
}

func TestRunOrder(t *testing.T) {
	store := &fakeStore{sizes: []int64{2 * 1024 * 1024, 1024 * 1024}}
	r, logs := newFakeRunner(store)

	run, err := r.Run(context.Background(), ResolvePlan(Flags{All: true}))
	require.NoError(t, err)

	assert.Equal(t, []string{"size", "reindex", "analyze", "vacuum", "fts", "size"}, store.calls)
	require.Len(t, run.Steps, 4)
	assert.Equal(t, StepReindex, run.Steps[0].Step)
	assert.EqualValues(t, 2, run.Steps[0].Count)
	assert.Equal(t, StepFTS, run.Steps[3].Step)
	assert.EqualValues(t, 10, run.Steps[3].Count)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.Finished.Before(run.Started))

	assert.EqualValues(t, -1024*1024, run.Delta())
	out := logs.String()
	assert.Contains(t, out, "Database size: 2,097,152 bytes (2.00 MB)")
	assert.Contains(t, out, "Recreated 2 indexes in ")
	assert.Contains(t, out, "Final size: 1,048,576 bytes (1.00 MB)")
	assert.Contains(t, out, "Change: -1,048,576 bytes (-1.00 MB)")
}

func TestRunDefaultPlanSkipsReindexAndVacuum(t *testing.T) {
	store := &fakeStore{sizes: []int64{4096}}
	r, logs := newFakeRunner(store)

	run, err := r.Run(context.Background(), ResolvePlan(Flags{}))
	require.NoError(t, err)

	assert.Equal(t, []string{"size", "analyze", "fts", "size"}, store.calls)
	assert.False(t, run.Executed(StepReindex))
	assert.True(t, run.Executed(StepAnalyze))
	assert.False(t, run.Executed(StepVacuum))
	assert.True(t, run.Executed(StepFTS))
	assert.Contains(t, logs.String(), "Change: +0 bytes (+0.00 MB)")
	assert.NotContains(t, logs.String(), "VACUUM")
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		failOn    string
		step      Step
		kind      Kind
		wantCalls []string
	}{
		{"size", StepMeasure, KindConnection, []string{"size"}},
		{"reindex", StepReindex, KindStatement, []string{"size", "reindex"}},
		{"analyze", StepAnalyze, KindStatement, []string{"size", "reindex", "analyze"}},
		{"vacuum", StepVacuum, KindStatement, []string{"size", "reindex", "analyze", "vacuum"}},
		{"fts", StepFTS, KindFTS, []string{"size", "reindex", "analyze", "vacuum", "fts"}},
	}
	for _, tt := range tests {
		t.Run(tt.failOn, func(t *testing.T) {
			store := &fakeStore{sizes: []int64{100}, failOn: tt.failOn}
			r, logs := newFakeRunner(store)

			_, err := r.Run(context.Background(), ResolvePlan(Flags{All: true}))
			require.Error(t, err)

			var se *StepError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.step, se.Step)
			assert.Equal(t, tt.kind, se.Kind)
			assert.Contains(t, err.Error(), "database is locked")
			assert.Equal(t, tt.wantCalls, store.calls)

			assert.NotContains(t, logs.String(), "Final size")
			assert.NotContains(t, logs.String(), " - ERROR - ", "the runner leaves error reporting to its caller")
		})
	}
}

func TestRunWarnsOnSkippedColumns(t *testing.T) {
	store := &fakeStore{sizes: []int64{1}, skipped: [][2]string{{"preprints_ui", "fulltext"}}}
	r, logs := newFakeRunner(store)

	_, err := r.Run(context.Background(), ResolvePlan(Flags{Reindex: true}))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "WARNING - Skipping index idx_preprints_ui_fulltext: preprints_ui has no column fulltext")
}

func TestKindOf(t *testing.T) {
	k, ok := KindOf(ConnectionError(errors.New("boom")))
	assert.True(t, ok)
	assert.Equal(t, KindConnection, k)
	assert.Equal(t, "connection", k.String())

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestRunAgainstSQLite(t *testing.T) {
	path := testutil.NewPreprintsDB(t, 10)
	db, err := database.Open(path, database.Options{BusyTimeoutMs: 1000})
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	log := logging.New(&buf, false)
	specs := []database.IndexSpec{{Table: "preprints", Columns: []string{"provider"}}}
	maintainer := fts.New(db, log, "preprints_ui", []string{"title", "description", "contributors_list"})

	var progressed []string
	r := NewRunner(db, maintainer, log, Options{
		Indexes: specs,
		OnIndex: func(name string) { progressed = append(progressed, name) },
	})

	run, err := r.Run(context.Background(), ResolvePlan(Flags{All: true}))
	require.NoError(t, err)

	assert.Equal(t, []string{"idx_preprints_provider"}, progressed)
	assert.EqualValues(t, 10, run.Steps[len(run.Steps)-1].Count)
	assert.EqualValues(t, 10, testutil.QueryInt(t, path, "SELECT COUNT(*) FROM preprints_ui_fts_docsize"))

	size, err := db.Size()
	require.NoError(t, err)
	assert.Equal(t, size, run.SizeAfter)

	sign := "+"
	if run.Delta() < 0 {
		sign = "-"
	}
	change := regexp.MustCompile(`Change: ([+-])[\d,]+ bytes`).FindStringSubmatch(buf.String())
	require.Len(t, change, 2)
	assert.Equal(t, sign, change[1])

	order := []string{"Recreating indexes...", "Running ANALYZE...", "Running VACUUM", "Creating FTS table"}
	last := -1
	for _, marker := range order {
		i := strings.Index(buf.String(), marker)
		require.GreaterOrEqual(t, i, 0, marker)
		assert.Greater(t, i, last, marker)
		last = i
	}
}
