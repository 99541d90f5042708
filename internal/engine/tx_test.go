package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fastlog/internal/store"
	"github.com/roach88/fastlog/internal/testutil"
)

// busyFixture opens a store with a short busy timeout so a held write lock
// turns into SQLITE_BUSY quickly.
func busyFixture(t *testing.T, opts ...Option) (*Engine, *store.Store) {
	t.Helper()
	clock := testutil.NewFakeClock(epoch)
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithClock(clock),
		store.WithBusyTimeout(10*time.Millisecond),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	base := []Option{WithClock(clock), WithIDs(testutil.NewSequenceIDs("fast"))}
	return New(s, append(base, opts...)...), s
}

func TestTransact_BusyExhaustsRetries(t *testing.T) {
	e, s := busyFixture(t, WithMaxRetries(2), WithRetryBackoff(time.Millisecond))
	ctx := context.Background()

	// Hold the write lock from another connection.
	blocker, err := s.DB().BeginTx(ctx, nil)
	require.NoError(t, err)

	_, err = e.Start(ctx, "u1", local("2025-01-01T08:00"), "UTC")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, store.ErrBusy)

	require.NoError(t, blocker.Rollback())

	got, err := e.Start(ctx, "u1", local("2025-01-01T08:00"), "UTC")
	require.NoError(t, err)
	assert.Equal(t, "fast-2", got.ID)
}

func TestTransact_RetrySucceedsOnceLockIsReleased(t *testing.T) {
	e, s := busyFixture(t, WithMaxRetries(50), WithRetryBackoff(5*time.Millisecond))
	ctx := context.Background()

	blocker, err := s.DB().BeginTx(ctx, nil)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		blocker.Rollback()
	}()

	got, err := e.Start(ctx, "u1", local("2025-01-01T08:00"), "UTC")
	require.NoError(t, err)
	assert.True(t, got.IsActive())
}

func TestTransact_CancelledContextIsNotRetried(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.Start(ctx, "u1", local("2025-01-01T08:00"), "UTC")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTransient(err))

	list, err := f.engine.List(context.Background(), "u1", ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, sleep(context.Background(), 0))
	assert.NoError(t, sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
}
