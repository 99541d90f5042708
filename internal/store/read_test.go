package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fastlog/internal/fast"
)

func ids(fs []fast.Fast) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.ID
	}
	return out
}

func seedHistory(t *testing.T, s *Store) {
	t.Helper()
	day := 24 * time.Hour
	insert(t, s, completedFast("a1", "alice", testEpoch, 16*time.Hour, fast.OutcomeSatisfied))
	insert(t, s, completedFast("a2", "alice", testEpoch.Add(day), 18*time.Hour, fast.OutcomeDifficult))
	insert(t, s, completedFast("a3", "alice", testEpoch.Add(2*day), 12*time.Hour, fast.OutcomeEnergized))
	insert(t, s, activeFast("a4", "alice", testEpoch.Add(3*day)))
	insert(t, s, completedFast("b1", "bob", testEpoch.Add(day), 20*time.Hour, fast.OutcomeChallenging))
}

func TestGet_NotFound(t *testing.T) {
	s, _ := createTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestActiveFor_None(t *testing.T) {
	s, _ := createTestStore(t)
	insert(t, s, completedFast("f1", "alice", testEpoch, time.Hour, fast.OutcomeSatisfied))

	_, err := s.ActiveFor(context.Background(), "alice")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListByOwner_OrderAndScope(t *testing.T) {
	s, _ := createTestStore(t)
	seedHistory(t, s)

	got, err := s.ListByOwner(context.Background(), "alice", ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a4", "a3", "a2", "a1"}, ids(got))

	got, err = s.ListByOwner(context.Background(), "bob", ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, ids(got))
}

func TestListByOwner_Empty(t *testing.T) {
	s, _ := createTestStore(t)

	got, err := s.ListByOwner(context.Background(), "nobody", ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListByOwner_StatusFilter(t *testing.T) {
	s, _ := createTestStore(t)
	seedHistory(t, s)

	active, err := s.ListByOwner(context.Background(), "alice", ListFilter{Status: fast.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, []string{"a4"}, ids(active))

	completed, err := s.ListByOwner(context.Background(), "alice", ListFilter{Status: fast.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "a2", "a1"}, ids(completed))

	_, err = s.ListByOwner(context.Background(), "alice", ListFilter{Status: "paused"})
	assert.Error(t, err)
}

func TestListByOwner_Pagination(t *testing.T) {
	s, _ := createTestStore(t)
	seedHistory(t, s)

	page, err := s.ListByOwner(context.Background(), "alice", ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a4", "a3"}, ids(page))

	page, err = s.ListByOwner(context.Background(), "alice", ListFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a1"}, ids(page))

	page, err = s.ListByOwner(context.Background(), "alice", ListFilter{Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, ids(page))
}

func TestListByOwner_TieBrokenByID(t *testing.T) {
	s, _ := createTestStore(t)
	insert(t, s, completedFast("x1", "alice", testEpoch, time.Hour, fast.OutcomeSatisfied))
	insert(t, s, completedFast("x2", "alice", testEpoch, 2*time.Hour, fast.OutcomeSatisfied))

	got, err := s.ListByOwner(context.Background(), "alice", ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x2", "x1"}, ids(got))
}

func TestCountByOwner(t *testing.T) {
	s, _ := createTestStore(t)
	seedHistory(t, s)

	c, err := s.CountByOwner(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, Counts{Total: 4, Completed: 3, Active: 1}, c)

	c, err = s.CountByOwner(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, Counts{}, c)
}

func TestAdjacent(t *testing.T) {
	s, _ := createTestStore(t)
	seedHistory(t, s)

	middle, err := s.Get(context.Background(), "a2")
	require.NoError(t, err)

	prev, next, err := s.Adjacent(context.Background(), middle)
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.NotNil(t, next)
	assert.Equal(t, "a1", prev.ID)
	assert.Equal(t, "a3", next.ID)
}

func TestAdjacent_Ends(t *testing.T) {
	s, _ := createTestStore(t)
	seedHistory(t, s)

	oldest, err := s.Get(context.Background(), "a1")
	require.NoError(t, err)
	prev, next, err := s.Adjacent(context.Background(), oldest)
	require.NoError(t, err)
	assert.Nil(t, prev)
	require.NotNil(t, next)
	assert.Equal(t, "a2", next.ID)

	newest, err := s.Get(context.Background(), "a4")
	require.NoError(t, err)
	prev, next, err = s.Adjacent(context.Background(), newest)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "a3", prev.ID)
	assert.Nil(t, next)
}

func TestAdjacent_NeverCrossesOwners(t *testing.T) {
	s, _ := createTestStore(t)
	seedHistory(t, s)

	bobs, err := s.Get(context.Background(), "b1")
	require.NoError(t, err)
	prev, next, err := s.Adjacent(context.Background(), bobs)
	require.NoError(t, err)
	assert.Nil(t, prev)
	assert.Nil(t, next)
}

func TestListCompletedBefore(t *testing.T) {
	s, _ := createTestStore(t)
	seedHistory(t, s)

	// a1 ends Jan 2 00:00, a2 Jan 3 02:00, b1 Jan 3 04:00, a3 Jan 3 20:00
	cutoff := testEpoch.Add(2 * 24 * time.Hour)
	got, err := s.ListCompletedBefore(context.Background(), cutoff, Cursor{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "b1"}, ids(got))

	n, err := s.CountCompletedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestListCompletedBefore_Keyset(t *testing.T) {
	s, _ := createTestStore(t)
	seedHistory(t, s)
	cutoff := testEpoch.Add(365 * 24 * time.Hour)

	var (
		all    []string
		cursor Cursor
	)
	for {
		page, err := s.ListCompletedBefore(context.Background(), cutoff, cursor, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		all = append(all, ids(page)...)
		last := page[len(page)-1]
		cursor = Cursor{EndAt: *last.End, ID: last.ID}
	}
	assert.Equal(t, []string{"a1", "a2", "b1", "a3"}, all)
}

func TestListCompletedBefore_RequiresLimit(t *testing.T) {
	s, _ := createTestStore(t)
	_, err := s.ListCompletedBefore(context.Background(), testEpoch, Cursor{}, 0)
	assert.Error(t, err)
}
