package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/fastlog/internal/fast"
)

// Insert stores a new fast with version 1 and returns it as stored.
//
// Inserting a second active fast for the same owner fails with ErrConflict via
// the partial UNIQUE index. The check happens at the store, so two
// racing inserts cannot both succeed.
func (t *Tx) Insert(ctx context.Context, f fast.Fast) (fast.Fast, error) {
	stored := wholeSeconds(f)
	stored.Version = 1
	stored.CreatedAt = t.now
	stored.UpdatedAt = t.now

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO fasts
		(id, owner, start_at, end_at, outcome, note, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		stored.ID,
		stored.Owner,
		toUnix(stored.Start),
		nullableEnd(stored.End),
		nullableOutcome(stored.Outcome),
		stored.Note,
		stored.Version,
		toUnix(stored.CreatedAt),
		toUnix(stored.UpdatedAt),
	)
	if err != nil {
		return fast.Fast{}, fmt.Errorf("insert fast: %w", classify(err))
	}
	return stored, nil
}

// UpdateIfVersion overwrites the mutable fields of f, but only if the row
// still has expectedVersion. On success the stored version is
// expectedVersion+1. Returns ErrVersionMismatch if the row changed or was
// deleted since it was read.
//
// Owner, id and created_at are never changed.
func (t *Tx) UpdateIfVersion(ctx context.Context, expectedVersion int64, f fast.Fast) (fast.Fast, error) {
	stored := wholeSeconds(f)

	result, err := t.tx.ExecContext(ctx, `
		UPDATE fasts
		SET start_at = ?, end_at = ?, outcome = ?, note = ?,
		    version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		toUnix(stored.Start),
		nullableEnd(stored.End),
		nullableOutcome(stored.Outcome),
		stored.Note,
		toUnix(t.now),
		stored.ID,
		expectedVersion,
	)
	if err != nil {
		return fast.Fast{}, fmt.Errorf("update fast: %w", classify(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fast.Fast{}, fmt.Errorf("update fast: rows affected: %w", err)
	}
	if n == 0 {
		return fast.Fast{}, ErrVersionMismatch
	}

	stored.Version = expectedVersion + 1
	stored.UpdatedAt = t.now
	return stored, nil
}

// Delete removes the fast if it still has expectedVersion.
// Returns ErrVersionMismatch if the row changed or was already deleted.
func (t *Tx) Delete(ctx context.Context, id string, expectedVersion int64) error {
	result, err := t.tx.ExecContext(ctx, `
		DELETE FROM fasts WHERE id = ? AND version = ?
	`, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("delete fast: %w", classify(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete fast: rows affected: %w", err)
	}
	if n == 0 {
		return ErrVersionMismatch
	}
	return nil
}

// wholeSeconds returns a copy of f with its instants in UTC at the precision
// the store keeps.
func wholeSeconds(f fast.Fast) fast.Fast {
	out := f.Clone()
	out.Start = out.Start.UTC().Truncate(time.Second)
	if out.End != nil {
		end := out.End.UTC().Truncate(time.Second)
		out.End = &end
	}
	return out
}
