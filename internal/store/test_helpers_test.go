package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fastlog/internal/fast"
	"github.com/roach88/fastlog/internal/testutil"
)

var testEpoch = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temp dir with a fake clock.
func createTestStore(t *testing.T) (*Store, *testutil.FakeClock) {
	t.Helper()
	clock := testutil.NewFakeClock(testEpoch)
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(clock))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}

// activeFast builds an active fast starting at start.
func activeFast(id, owner string, start time.Time) fast.Fast {
	return fast.Fast{ID: id, Owner: owner, Start: start}
}

// completedFast builds a completed fast lasting d.
func completedFast(id, owner string, start time.Time, d time.Duration, o fast.Outcome) fast.Fast {
	end := start.Add(d)
	return fast.Fast{ID: id, Owner: owner, Start: start, End: &end, Outcome: fast.OutcomePtr(o)}
}

// insert stores f in its own transaction.
func insert(t *testing.T, s *Store, f fast.Fast) fast.Fast {
	t.Helper()
	var stored fast.Fast
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		stored, err = tx.Insert(context.Background(), f)
		return err
	})
	require.NoError(t, err)
	return stored
}
