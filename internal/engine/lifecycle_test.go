package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fastlog/internal/chrono"
	"github.com/roach88/fastlog/internal/fast"
)

func TestStart_CreatesActiveFast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.engine.Start(ctx, "u1", local("2025-01-01T08:00"), "UTC")
	require.NoError(t, err)

	assert.Equal(t, "fast-1", got.ID)
	assert.Equal(t, "u1", got.Owner)
	assert.Equal(t, epoch, got.Start)
	assert.True(t, got.IsActive())
	assert.Nil(t, got.Outcome)
	assert.Equal(t, int64(1), got.Version)

	f.clock.Set(epoch.Add(15 * time.Second))
	elapsed, err := f.engine.Elapsed(ctx, "u1", got.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), elapsed)
}

func TestStart_SecondActiveConflicts(t *testing.T) {
	f := newFixture(t)
	f.started(t, "u1", "2025-01-01T08:00")

	_, err := f.engine.Start(context.Background(), "u1", local("2025-01-01T09:00"), "UTC")
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, InvariantOneActive, e.Invariant)
	assert.Equal(t, "start", e.Op)
}

func TestStart_OtherOwnersAreIndependent(t *testing.T) {
	f := newFixture(t)
	f.started(t, "u1", "2025-01-01T08:00")
	f.started(t, "u2", "2025-01-01T08:00")
}

func TestStart_AfterCompletion(t *testing.T) {
	f := newFixture(t)
	f.completed(t, "u1", "2025-01-01T08:00", "2025-01-02T00:00", fast.OutcomeSatisfied)
	f.started(t, "u1", "2025-01-02T08:00")
}

func TestStart_ConcurrentExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	const n = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
		others    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at := epoch.Add(time.Duration(i) * time.Minute)
			_, err := f.engine.Start(context.Background(), "u1", chrono.LocalFromTime(at), "UTC")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case IsConflict(err):
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)

	active, err := f.engine.List(context.Background(), "u1", ListOptions{Status: fast.StatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestStart_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Start(ctx, "", local("2025-01-01T08:00"), "UTC")
	assert.True(t, IsValidation(err))

	_, err = f.engine.Start(ctx, "u1", chrono.Local{}, "UTC")
	assert.True(t, IsValidation(err))

	_, err = f.engine.Start(ctx, "u1", local("2025-01-01T08:00"), "Mars/Olympus_Mons")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, chrono.ErrUnknownZone)
}

func TestStart_NonexistentLocalTimeRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Start(context.Background(), "u1", local("2025-03-09T02:30"), "America/New_York")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, chrono.ErrNonexistentLocalTime)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "start", e.Field)
}

func TestStart_AmbiguousLocalTimeUsesEarlierInstant(t *testing.T) {
	f := newFixture(t)

	got, err := f.engine.Start(context.Background(), "u1", local("2025-11-02T01:30"), "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 11, 2, 5, 30, 0, 0, time.UTC), got.Start)
}

func TestStart_ZoneResolution(t *testing.T) {
	f := newFixture(t, WithDefaultZone("America/New_York"))
	ctx := context.Background()
	require.NoError(t, f.engine.SetZone(ctx, "tokyo", "Asia/Tokyo"))

	// Owner preference.
	got, err := f.engine.Start(ctx, "tokyo", local("2025-01-01T09:00"), "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), got.Start)

	// Engine default.
	got, err = f.engine.Start(ctx, "nobody", local("2025-01-01T08:00"), "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC), got.Start)

	// Explicit zone wins over both.
	got, err = f.engine.Start(ctx, "explicit", local("2025-01-01T08:00"), "UTC")
	require.NoError(t, err)
	assert.Equal(t, epoch, got.Start)
}

func TestEnd_CompletesFast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.started(t, "u1", "2025-01-01T08:00")

	f.clock.Advance(time.Hour)
	got, err := f.engine.End(ctx, "u1", s.ID, local("2025-01-02T00:00"), "UTC", fast.OutcomeSatisfied, "  felt fine  ")
	require.NoError(t, err)

	assert.False(t, got.IsActive())
	require.NotNil(t, got.End)
	assert.Equal(t, epoch.Add(16*time.Hour), *got.End)
	require.NotNil(t, got.Outcome)
	assert.Equal(t, fast.OutcomeSatisfied, *got.Outcome)
	assert.Equal(t, "felt fine", got.Note)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, epoch.Add(time.Hour), got.UpdatedAt)

	stored, err := f.engine.Get(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)

	elapsed, err := f.engine.Elapsed(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(16*3600), elapsed)
}

func TestEnd_EmptyNoteKeepsExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.started(t, "u1", "2025-01-01T08:00")

	_, err := f.engine.Edit(ctx, "u1", s.ID, fast.Patch{Note: fast.Set("day one")})
	require.NoError(t, err)

	got, err := f.engine.End(ctx, "u1", s.ID, local("2025-01-01T20:00"), "UTC", fast.OutcomeEnergized, "")
	require.NoError(t, err)
	assert.Equal(t, "day one", got.Note)
}

func TestEnd_BeforeStartRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.started(t, "u1", "2025-01-01T08:00:01")

	for _, at := range []string{"2025-01-01T08:00:00", "2025-01-01T08:00:01"} {
		_, err := f.engine.End(ctx, "u1", s.ID, local(at), "UTC", fast.OutcomeSatisfied, "")
		require.Error(t, err, at)
		assert.True(t, IsValidation(err), at)

		var e *Error
		require.True(t, errors.As(err, &e))
		assert.Equal(t, InvariantEndAfterStart, e.Invariant)
		assert.Equal(t, s.ID, e.FastID)
	}

	got, err := f.engine.Get(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestEnd_MissingOutcomeRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.started(t, "u1", "2025-01-01T08:00")

	_, err := f.engine.End(ctx, "u1", s.ID, local("2025-01-01T20:00"), "UTC", "", "")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "outcome", e.Field)
	assert.Equal(t, InvariantOutcomeWithEnd, e.Invariant)

	got, err := f.engine.Get(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive())
	assert.Equal(t, int64(1), got.Version)
}

func TestEnd_UnknownOutcomeRejected(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, "u1", "2025-01-01T08:00")

	_, err := f.engine.End(context.Background(), "u1", s.ID, local("2025-01-01T20:00"), "UTC", "ecstatic", "")
	require.Error(t, err)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, KindValidation, e.Kind)
	assert.Equal(t, InvariantOutcomeKnown, e.Invariant)
}

func TestEnd_NoteLength(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A family emoji is one character however many code points it has.
	family := "\U0001F468\u200d\U0001F469\u200d\U0001F467"
	s := f.started(t, "u1", "2025-01-01T08:00")
	got, err := f.engine.End(ctx, "u1", s.ID, local("2025-01-01T20:00"), "UTC", fast.OutcomeEnergized,
		strings.Repeat(family, fast.MaxNoteLength))
	require.NoError(t, err)
	assert.Equal(t, fast.MaxNoteLength, fast.NoteLength(got.Note))

	s = f.started(t, "u1", "2025-01-02T08:00")
	_, err = f.engine.End(ctx, "u1", s.ID, local("2025-01-02T20:00"), "UTC", fast.OutcomeEnergized,
		strings.Repeat("a", fast.MaxNoteLength+1))
	require.Error(t, err)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, KindValidation, e.Kind)
	assert.Equal(t, InvariantNoteLength, e.Invariant)
}

func TestEnd_AlreadyCompleted(t *testing.T) {
	f := newFixture(t)
	c := f.completed(t, "u1", "2025-01-01T08:00", "2025-01-01T20:00", fast.OutcomeSatisfied)

	_, err := f.engine.End(context.Background(), "u1", c.ID, local("2025-01-01T22:00"), "UTC", fast.OutcomeDifficult, "")
	require.Error(t, err)
	assert.True(t, IsInvalidState(err))
}

func TestEnd_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.End(context.Background(), "u1", "missing", local("2025-01-01T20:00"), "UTC", fast.OutcomeSatisfied, "")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestEnd_ConcurrentExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, "u1", "2025-01-01T08:00")

	outcomes := []fast.Outcome{fast.OutcomeSatisfied, fast.OutcomeDifficult}
	errs := make([]error, len(outcomes))

	var wg sync.WaitGroup
	for i, o := range outcomes {
		wg.Add(1)
		go func(i int, o fast.Outcome) {
			defer wg.Done()
			_, errs[i] = f.engine.End(context.Background(), "u1", s.ID, local("2025-01-01T20:00"), "UTC", o, "")
		}(i, o)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "both Ends succeeded")
			winner = i
			continue
		}
		assert.True(t, IsInvalidState(err), "loser got %v", err)
	}
	require.NotEqual(t, -1, winner, "no End succeeded")

	got, err := f.engine.Get(context.Background(), "u1", s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Outcome)
	assert.Equal(t, outcomes[winner], *got.Outcome)
	assert.Equal(t, int64(2), got.Version)
}

func TestEdit_ConcurrentEditsApplyInTurn(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, "u1", "2025-01-01T08:00")

	// Write transactions take the database lock at BEGIN, so concurrent
	// edits run one after another and the last one wins.
	const n = 8
	notes := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		notes[i] = strings.Repeat("x", i+1)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Edit(context.Background(), "u1", s.ID, fast.Patch{Note: fast.Set(notes[i])})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "edit %d", i)
	}

	got, err := f.engine.Get(context.Background(), "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1+n), got.Version)
	assert.Contains(t, notes, got.Note)
}

func TestEdit_CompletedCannotReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.completed(t, "u1", "2025-01-01T08:00", "2025-01-01T20:00", fast.OutcomeSatisfied)

	patches := map[string]fast.Patch{
		"clear end":             {End: fast.Clear[time.Time]()},
		"clear end and outcome": {End: fast.Clear[time.Time](), Outcome: fast.Clear[fast.Outcome]()},
	}
	for name, p := range patches {
		t.Run(name, func(t *testing.T) {
			_, err := f.engine.Edit(ctx, "u1", c.ID, p)
			require.Error(t, err)
			assert.True(t, IsInvalidState(err))

			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, InvariantNoReopen, e.Invariant)
		})
	}

	got, err := f.engine.Get(ctx, "u1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestEdit_ClearOutcomeKeepingEndRejected(t *testing.T) {
	f := newFixture(t)
	c := f.completed(t, "u1", "2025-01-01T08:00", "2025-01-01T20:00", fast.OutcomeSatisfied)

	_, err := f.engine.Edit(context.Background(), "u1", c.ID, fast.Patch{Outcome: fast.Clear[fast.Outcome]()})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, InvariantOutcomeWithEnd, e.Invariant)
}

func TestEdit_ClearStartRejected(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, "u1", "2025-01-01T08:00")

	_, err := f.engine.Edit(context.Background(), "u1", s.ID, fast.Patch{Start: fast.Clear[time.Time]()})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "start", e.Field)
	assert.Equal(t, s.ID, e.FastID)
}

func TestEdit_CompletedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.completed(t, "u1", "2025-01-01T08:00", "2025-01-01T20:00", fast.OutcomeSatisfied)

	got, err := f.engine.Edit(ctx, "u1", c.ID, fast.Patch{
		Start:   fast.Set(epoch.Add(-2 * time.Hour)),
		End:     fast.Set(epoch.Add(14 * time.Hour)),
		Outcome: fast.Set(fast.OutcomeChallenging),
		Note:    fast.Set("café"),
	})
	require.NoError(t, err)

	assert.Equal(t, epoch.Add(-2*time.Hour), got.Start)
	assert.Equal(t, epoch.Add(14*time.Hour), *got.End)
	assert.Equal(t, fast.OutcomeChallenging, *got.Outcome)
	assert.Equal(t, "café", got.Note)
	assert.Equal(t, c.Version+1, got.Version)
	assert.Equal(t, c.CreatedAt, got.CreatedAt)

	got, err = f.engine.Edit(ctx, "u1", c.ID, fast.Patch{Note: fast.Clear[string]()})
	require.NoError(t, err)
	assert.Equal(t, "", got.Note)
}

func TestEdit_StartAfterEndRejected(t *testing.T) {
	f := newFixture(t)
	c := f.completed(t, "u1", "2025-01-01T08:00", "2025-01-01T20:00", fast.OutcomeSatisfied)

	_, err := f.engine.Edit(context.Background(), "u1", c.ID, fast.Patch{Start: fast.Set(epoch.Add(13 * time.Hour))})
	require.Error(t, err)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, KindValidation, e.Kind)
	assert.Equal(t, InvariantEndAfterStart, e.Invariant)
}

func TestEdit_ActiveFast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.started(t, "u1", "2025-01-01T08:00")

	// End alone breaks the outcome rule.
	_, err := f.engine.Edit(ctx, "u1", s.ID, fast.Patch{End: fast.Set(epoch.Add(time.Hour))})
	assert.True(t, IsValidation(err))

	// So does outcome alone.
	_, err = f.engine.Edit(ctx, "u1", s.ID, fast.Patch{Outcome: fast.Set(fast.OutcomeEnergized)})
	assert.True(t, IsValidation(err))

	// Moving the start keeps it active.
	got, err := f.engine.Edit(ctx, "u1", s.ID, fast.Patch{Start: fast.Set(epoch.Add(-time.Hour))})
	require.NoError(t, err)
	assert.True(t, got.IsActive())
	assert.Equal(t, epoch.Add(-time.Hour), got.Start)

	// Both together complete it.
	got, err = f.engine.Edit(ctx, "u1", s.ID, fast.Patch{
		End:     fast.Set(epoch.Add(time.Hour)),
		Outcome: fast.Set(fast.OutcomeEnergized),
	})
	require.NoError(t, err)
	assert.False(t, got.IsActive())
	assert.Equal(t, int64(3), got.Version)
}

func TestEdit_EmptyPatchReturnsRecord(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, "u1", "2025-01-01T08:00")

	got, err := f.engine.Edit(context.Background(), "u1", s.ID, fast.Patch{})
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestEdit_TruncatesToWholeSeconds(t *testing.T) {
	f := newFixture(t)
	c := f.completed(t, "u1", "2025-01-01T08:00", "2025-01-01T20:00", fast.OutcomeSatisfied)

	got, err := f.engine.Edit(context.Background(), "u1", c.ID, fast.Patch{
		Start: fast.Set(epoch.Add(1500 * time.Millisecond)),
	})
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(time.Second), got.Start)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.started(t, "u1", "2025-01-01T08:00")

	require.NoError(t, f.engine.Delete(ctx, "u1", s.ID))

	_, err := f.engine.Get(ctx, "u1", s.ID)
	assert.True(t, IsNotFound(err))

	err = f.engine.Delete(ctx, "u1", s.ID)
	assert.True(t, IsNotFound(err))

	// Deleting the active fast frees the owner to start again.
	f.started(t, "u1", "2025-01-01T09:00")
}

func TestOwnershipIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.completed(t, "alice", "2025-01-01T08:00", "2025-01-01T20:00", fast.OutcomeSatisfied)

	_, err := f.engine.Get(ctx, "bob", a.ID)
	assert.True(t, IsNotFound(err), "get: %v", err)

	_, err = f.engine.End(ctx, "bob", a.ID, local("2025-01-01T21:00"), "UTC", fast.OutcomeDifficult, "")
	assert.True(t, IsNotFound(err), "end: %v", err)

	_, err = f.engine.Edit(ctx, "bob", a.ID, fast.Patch{Note: fast.Set("mine now")})
	assert.True(t, IsNotFound(err), "edit: %v", err)

	err = f.engine.Delete(ctx, "bob", a.ID)
	assert.True(t, IsNotFound(err), "delete: %v", err)

	_, err = f.engine.Elapsed(ctx, "bob", a.ID)
	assert.True(t, IsNotFound(err), "elapsed: %v", err)

	_, _, err = f.engine.Neighbors(ctx, "bob", a.ID)
	assert.True(t, IsNotFound(err), "neighbors: %v", err)

	list, err := f.engine.List(ctx, "bob", ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := f.engine.Get(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestExistenceDisclosure(t *testing.T) {
	f := newFixture(t, WithExistenceDisclosure())
	ctx := context.Background()
	a := f.started(t, "alice", "2025-01-01T08:00")

	_, err := f.engine.Get(ctx, "bob", a.ID)
	assert.True(t, IsAccessDenied(err), "get: %v", err)

	_, err = f.engine.End(ctx, "bob", a.ID, local("2025-01-01T21:00"), "UTC", fast.OutcomeDifficult, "")
	assert.True(t, IsAccessDenied(err), "end: %v", err)

	err = f.engine.Delete(ctx, "bob", a.ID)
	assert.True(t, IsAccessDenied(err), "delete: %v", err)

	_, err = f.engine.Get(ctx, "bob", "missing")
	assert.True(t, IsNotFound(err))
}
