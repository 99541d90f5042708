package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/fastlog/internal/access"
	"github.com/roach88/fastlog/internal/chrono"
	"github.com/roach88/fastlog/internal/fast"
	"github.com/roach88/fastlog/internal/store"
)

// Start creates an active fast for owner beginning at the wall-clock time
// start in zone. An empty zone means the owner's preferred zone, then the
// engine default.
//
// Returns KindConflict if owner already has an active fast.
func (e *Engine) Start(ctx context.Context, owner string, start chrono.Local, zone string) (fast.Fast, error) {
	const op = "start"
	if owner == "" {
		return fast.Fast{}, validationError(op, "owner", "", "owner is required")
	}

	zone, err := e.resolveZone(ctx, owner, zone)
	if err != nil {
		return fast.Fast{}, fmt.Errorf("%s: %w", op, err)
	}
	startAt, verr := toInstant(op, "start", start, zone)
	if verr != nil {
		return fast.Fast{}, verr
	}

	candidate := normalize(fast.Fast{ID: e.ids.Generate(), Owner: owner, Start: startAt})
	if err := validate(op, candidate); err != nil {
		return fast.Fast{}, err
	}

	var created fast.Fast
	err = e.transact(ctx, op, func(ctx context.Context, tx *store.Tx) error {
		stored, err := tx.Insert(ctx, candidate)
		if err != nil {
			return storeError(op, candidate, err)
		}
		created = stored
		return nil
	})
	if err != nil {
		return fast.Fast{}, err
	}
	return created, nil
}

// End completes the active fast id at the wall-clock time end in zone with
// the given outcome. A non-empty note replaces the current one.
//
// Returns KindNotFound if the caller cannot see the fast, KindInvalidState if
// it is already completed, and KindValidation if the outcome is missing or
// unknown, the end is not after the start, or the note is too long.
func (e *Engine) End(ctx context.Context, owner, id string, end chrono.Local, zone string, outcome fast.Outcome, note string) (fast.Fast, error) {
	const op = "end"

	zone, err := e.resolveZone(ctx, owner, zone)
	if err != nil {
		return fast.Fast{}, fmt.Errorf("%s: %w", op, err)
	}

	var ended fast.Fast
	err = e.transact(ctx, op, func(ctx context.Context, tx *store.Tx) error {
		current, err := e.load(ctx, tx, op, owner, id, access.Write)
		if err != nil {
			return err
		}
		if !current.IsActive() {
			return invalidStateError(op, id, "", "fast is already completed")
		}

		endAt, verr := toInstant(op, "end", end, zone)
		if verr != nil {
			return withID(verr, id)
		}

		next := current.Clone()
		next.End = &endAt
		next.Outcome = nil
		if outcome != "" {
			next.Outcome = fast.OutcomePtr(outcome)
		}
		if note != "" {
			next.Note = note
		}
		next = normalize(next)
		if err := validate(op, next); err != nil {
			return err
		}

		stored, err := tx.UpdateIfVersion(ctx, current.Version, next)
		if errors.Is(err, store.ErrVersionMismatch) {
			return lostRace(ctx, tx, op, id)
		}
		if err != nil {
			return storeError(op, next, err)
		}
		ended = stored
		return nil
	})
	if err != nil {
		return fast.Fast{}, err
	}
	return ended, nil
}

// Edit applies patch to the fast id and re-validates the whole result.
// A completed fast cannot be reopened by clearing its end. An empty patch
// returns the record unchanged.
func (e *Engine) Edit(ctx context.Context, owner, id string, patch fast.Patch) (fast.Fast, error) {
	const op = "edit"

	var edited fast.Fast
	err := e.transact(ctx, op, func(ctx context.Context, tx *store.Tx) error {
		current, err := e.load(ctx, tx, op, owner, id, access.Write)
		if err != nil {
			return err
		}
		if patch.Empty() {
			edited = current
			return nil
		}
		if patch.Start.Cleared() {
			return withID(validationError(op, "start", "", "start is required"), id)
		}
		if !current.IsActive() && patch.End.Cleared() {
			return invalidStateError(op, id, InvariantNoReopen, "a completed fast cannot be reopened")
		}

		next := normalize(patch.Apply(current))
		if err := validate(op, next); err != nil {
			return err
		}

		stored, err := tx.UpdateIfVersion(ctx, current.Version, next)
		if errors.Is(err, store.ErrVersionMismatch) {
			return lostRace(ctx, tx, op, id)
		}
		if err != nil {
			return storeError(op, next, err)
		}
		edited = stored
		return nil
	})
	if err != nil {
		return fast.Fast{}, err
	}
	return edited, nil
}

// Delete permanently removes the fast id. Deleting it again returns
// KindNotFound, which callers may treat as success.
func (e *Engine) Delete(ctx context.Context, owner, id string) error {
	const op = "delete"

	return e.transact(ctx, op, func(ctx context.Context, tx *store.Tx) error {
		current, err := e.load(ctx, tx, op, owner, id, access.Delete)
		if err != nil {
			return err
		}
		err = tx.Delete(ctx, id, current.Version)
		if errors.Is(err, store.ErrVersionMismatch) {
			return lostRace(ctx, tx, op, id)
		}
		return err
	})
}

// resolveZone picks the zone for a call: the explicit one, else the owner's
// preference, else the engine default. The name is not validated here.
func (e *Engine) resolveZone(ctx context.Context, owner, zone string) (string, error) {
	if zone != "" {
		return zone, nil
	}
	if owner != "" {
		preferred, err := e.zones.Zone(ctx, owner)
		if err != nil {
			return "", fmt.Errorf("resolve zone: %w", err)
		}
		if preferred != "" {
			return preferred, nil
		}
	}
	return e.defaultZone, nil
}

// toInstant converts a wall-clock reading, reporting bad input as a
// validation error on field.
func toInstant(op, field string, l chrono.Local, zone string) (time.Time, *Error) {
	if l.IsZero() {
		return time.Time{}, validationError(op, field, "", field+" is required")
	}
	t, err := chrono.ToAbsolute(l, zone)
	switch {
	case errors.Is(err, chrono.ErrUnknownZone):
		e := validationError(op, "zone", "", err.Error())
		e.Err = err
		return time.Time{}, e
	case err != nil:
		e := validationError(op, field, "", err.Error())
		e.Err = err
		return time.Time{}, e
	}
	return t, nil
}
