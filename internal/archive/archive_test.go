package archive

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fastlog/internal/chrono"
	"github.com/roach88/fastlog/internal/engine"
	"github.com/roach88/fastlog/internal/fast"
	"github.com/roach88/fastlog/internal/store"
	"github.com/roach88/fastlog/internal/testutil"
)

var now = time.Date(2027, 6, 1, 12, 0, 0, 0, time.UTC)

const year = 365 * 24 * time.Hour

type fixture struct {
	store  *store.Store
	engine *engine.Engine
	clock  *testutil.FakeClock
}

// newFixture seeds three fasts that ended more than a year before now
// (fast-1, fast-2 for u1 and fast-3 for u2), one recent completed fast
// (fast-4) and an old active fast (fast-5).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := testutil.NewFakeClock(now)
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e := engine.New(s, engine.WithClock(clock), engine.WithIDs(testutil.NewSequenceIDs("fast")))
	f := &fixture{store: s, engine: e, clock: clock}

	f.completed(t, "u1", "2024-01-01T08:00", "2024-01-02T08:00")
	f.completed(t, "u1", "2024-02-01T08:00", "2024-02-02T08:00")
	f.completed(t, "u2", "2024-03-01T08:00", "2024-03-01T20:00")
	f.completed(t, "u1", "2027-05-01T08:00", "2027-05-02T08:00")
	_, err = e.Start(context.Background(), "u2", chrono.MustParseLocal("2020-01-01T08:00"), "UTC")
	require.NoError(t, err)
	return f
}

func (f *fixture) completed(t *testing.T, owner, start, end string) {
	t.Helper()
	ctx := context.Background()
	s, err := f.engine.Start(ctx, owner, chrono.MustParseLocal(start), "UTC")
	require.NoError(t, err)
	_, err = f.engine.End(ctx, owner, s.ID, chrono.MustParseLocal(end), "UTC", fast.OutcomeSatisfied, "")
	require.NoError(t, err)
}

func (f *fixture) ids(t *testing.T, owner string) []string {
	t.Helper()
	list, err := f.engine.List(context.Background(), owner, engine.ListOptions{})
	require.NoError(t, err)
	out := make([]string, len(list))
	for i, x := range list {
		out[i] = x.ID
	}
	return out
}

func TestRun_DryRun(t *testing.T) {
	f := newFixture(t)
	job := New(f.store, f.engine, WithClock(f.clock), WithAfter(year), WithDryRun(true))

	res, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, now.Add(-year), res.Cutoff)
	assert.Equal(t, 3, res.Candidates)
	assert.Equal(t, 0, res.Deleted)
	assert.Equal(t, []string{"fast-4", "fast-2", "fast-1"}, f.ids(t, "u1"))
}

func TestRun_DeletesInBatches(t *testing.T) {
	f := newFixture(t)
	var sink bytes.Buffer
	job := New(f.store, f.engine,
		WithClock(f.clock),
		WithAfter(year),
		WithBatchSize(2),
		WithSink(&sink),
	)

	res, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Candidates)
	assert.Equal(t, 3, res.Archived)
	assert.Equal(t, 3, res.Deleted)
	assert.Equal(t, 0, res.Skipped)

	assert.Equal(t, []string{"fast-4"}, f.ids(t, "u1"))
	assert.Equal(t, []string{"fast-5"}, f.ids(t, "u2"))

	archived, err := Read(&sink)
	require.NoError(t, err)
	require.Len(t, archived, 3)
	assert.Equal(t, "fast-1", archived[0].ID)
	assert.Equal(t, "fast-2", archived[1].ID)
	assert.Equal(t, "fast-3", archived[2].ID)
	assert.Equal(t, "u2", archived[2].Owner)
	require.NotNil(t, archived[2].Outcome)
	assert.Equal(t, fast.OutcomeSatisfied, *archived[2].Outcome)
}

func TestRun_WithoutSinkOnlyDeletes(t *testing.T) {
	f := newFixture(t)
	job := New(f.store, f.engine, WithClock(f.clock), WithAfter(year))

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Archived)
	assert.Equal(t, 3, res.Deleted)

	left, err := f.store.CountCompletedBefore(context.Background(), res.Cutoff)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

func TestRun_NothingToDo(t *testing.T) {
	f := newFixture(t)
	var sink bytes.Buffer
	job := New(f.store, f.engine, WithClock(f.clock), WithAfter(10*year), WithSink(&sink))

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Candidates)
	assert.Equal(t, 0, sink.Len())
}

type deleterFunc func(ctx context.Context, owner, id string) error

func (d deleterFunc) Delete(ctx context.Context, owner, id string) error { return d(ctx, owner, id) }

func TestRun_AlreadyDeletedIsSkipped(t *testing.T) {
	f := newFixture(t)
	racing := deleterFunc(func(ctx context.Context, owner, id string) error {
		if id == "fast-2" {
			// Someone else removed it first.
			require.NoError(t, f.engine.Delete(ctx, owner, id))
		}
		return f.engine.Delete(ctx, owner, id)
	})
	job := New(f.store, racing, WithClock(f.clock), WithAfter(year))

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Deleted)
	assert.Equal(t, 1, res.Skipped)
}

func TestRun_DeleteFailureStops(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	failing := deleterFunc(func(ctx context.Context, owner, id string) error {
		if id == "fast-2" {
			return boom
		}
		return f.engine.Delete(ctx, owner, id)
	})
	job := New(f.store, failing, WithClock(f.clock), WithAfter(year))

	res, err := job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, []string{"fast-4", "fast-2"}, f.ids(t, "u1"))
}

func TestRun_Logs(t *testing.T) {
	f := newFixture(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	job := New(f.store, f.engine, WithClock(f.clock), WithAfter(year), WithLogger(logger))

	_, err := job.Run(context.Background())
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "archive starting")
	assert.Contains(t, out, "candidates=3")
	assert.Contains(t, out, "archive batch done")
	assert.Contains(t, out, "archive finished")
	assert.Contains(t, out, "deleted=3")
}

func TestNew_Defaults(t *testing.T) {
	j := New(nil, nil, WithAfter(-1), WithBatchSize(0), WithLogger(nil), WithClock(nil))
	assert.Equal(t, DefaultAfter, j.after)
	assert.Equal(t, DefaultBatchSize, j.batchSize)
	assert.NotNil(t, j.logger)
	assert.Equal(t, chrono.System{}, j.clock)
}
