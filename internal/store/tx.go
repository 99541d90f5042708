package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/fastlog/internal/fast"
)

// querier is the subset of *sql.DB and *sql.Tx the read helpers need.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Tx is one write transaction. It is only valid inside the function passed to
// WithTx and must not be used from other goroutines.
type Tx struct {
	tx  *sql.Tx
	now time.Time
}

// WithTx runs fn inside a single immediate transaction. The transaction is
// committed when fn returns nil and rolled back otherwise, including when ctx
// is cancelled before commit. Nothing fn wrote is visible unless WithTx
// returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", classify(err))
	}
	defer sqlTx.Rollback() // No-op if committed

	if err := fn(&Tx{tx: sqlTx, now: s.now()}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", classify(err))
	}
	return nil
}

// Get returns the fast with the given id as seen by this transaction.
// Returns ErrNotFound if it does not exist.
func (t *Tx) Get(ctx context.Context, id string) (fast.Fast, error) {
	return getFast(ctx, t.tx, id)
}

// ActiveFor returns owner's active fast as seen by this transaction.
// Returns ErrNotFound if owner has none.
func (t *Tx) ActiveFor(ctx context.Context, owner string) (fast.Fast, error) {
	return activeFor(ctx, t.tx, owner)
}

func getFast(ctx context.Context, q querier, id string) (fast.Fast, error) {
	row := q.QueryRowContext(ctx, `SELECT `+fastColumns+` FROM fasts WHERE id = ?`, id)
	f, err := scanFast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fast.Fast{}, ErrNotFound
	}
	if err != nil {
		return fast.Fast{}, fmt.Errorf("get fast: %w", classify(err))
	}
	return f, nil
}

func activeFor(ctx context.Context, q querier, owner string) (fast.Fast, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+fastColumns+`
		FROM fasts
		WHERE owner = ? AND end_at IS NULL
	`, owner)
	f, err := scanFast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fast.Fast{}, ErrNotFound
	}
	if err != nil {
		return fast.Fast{}, fmt.Errorf("get active fast: %w", classify(err))
	}
	return f, nil
}
