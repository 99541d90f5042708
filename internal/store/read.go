package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/fastlog/internal/fast"
)

// ListFilter narrows an owner listing.
type ListFilter struct {
	// Status restricts to active or completed fasts. Empty means both.
	Status fast.Status
	// Limit caps the number of rows. Zero or negative means no limit.
	Limit int
	// Offset skips rows from the start of the ordered listing.
	Offset int
}

// Counts summarizes one owner's fasts.
type Counts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Active    int `json:"active"`
}

// Cursor marks a position in an archival scan.
type Cursor struct {
	EndAt time.Time
	ID    string
}

// IsZero reports whether the cursor is the start of a scan.
func (c Cursor) IsZero() bool {
	return c.ID == "" && c.EndAt.IsZero()
}

// Get retrieves a single fast by ID.
// Returns ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (fast.Fast, error) {
	return getFast(ctx, s.db, id)
}

// ActiveFor returns owner's active fast.
// Returns ErrNotFound if owner has none.
func (s *Store) ActiveFor(ctx context.Context, owner string) (fast.Fast, error) {
	return activeFor(ctx, s.db, owner)
}

// ListByOwner returns owner's fasts, most recent start first.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListByOwner(ctx context.Context, owner string, filter ListFilter) ([]fast.Fast, error) {
	var (
		where = []string{"owner = ?"}
		args  = []any{owner}
	)
	switch filter.Status {
	case "":
	case fast.StatusActive:
		where = append(where, "end_at IS NULL")
	case fast.StatusCompleted:
		where = append(where, "end_at IS NOT NULL")
	default:
		return nil, fmt.Errorf("list fasts: unknown status %q", filter.Status)
	}

	query := `SELECT ` + fastColumns + ` FROM fasts WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY start_at DESC, id COLLATE BINARY DESC`

	// SQLite requires LIMIT when OFFSET is present; -1 means unlimited.
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fasts: %w", classify(err))
	}
	return scanFasts(rows)
}

// CountByOwner returns total, completed and active counts for owner.
func (s *Store) CountByOwner(ctx context.Context, owner string) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN end_at IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN end_at IS NULL THEN 1 ELSE 0 END), 0)
		FROM fasts
		WHERE owner = ?
	`, owner).Scan(&c.Total, &c.Completed, &c.Active)
	if err != nil {
		return Counts{}, fmt.Errorf("count fasts: %w", classify(err))
	}
	return c, nil
}

// Adjacent returns the fasts immediately older (previous) and newer (next)
// than f in its owner's listing order. Either may be nil.
func (s *Store) Adjacent(ctx context.Context, f fast.Fast) (previous, next *fast.Fast, err error) {
	start := toUnix(f.Start)

	prev, err := adjacentOne(ctx, s, `
		SELECT `+fastColumns+` FROM fasts
		WHERE owner = ? AND (start_at < ? OR (start_at = ? AND id COLLATE BINARY < ?))
		ORDER BY start_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, f.Owner, start, start, f.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("previous fast: %w", err)
	}

	nxt, err := adjacentOne(ctx, s, `
		SELECT `+fastColumns+` FROM fasts
		WHERE owner = ? AND (start_at > ? OR (start_at = ? AND id COLLATE BINARY > ?))
		ORDER BY start_at ASC, id COLLATE BINARY ASC
		LIMIT 1
	`, f.Owner, start, start, f.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("next fast: %w", err)
	}

	return prev, nxt, nil
}

func adjacentOne(ctx context.Context, s *Store, query string, args ...any) (*fast.Fast, error) {
	f, err := scanFast(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return &f, nil
}

// ListCompletedBefore returns completed fasts of every owner whose end is
// strictly before cutoff, ordered by (end_at, id) and starting after the
// cursor. Used by the archival job; it is not owner-scoped and must not be
// exposed to ordinary callers.
func (s *Store) ListCompletedBefore(ctx context.Context, cutoff time.Time, after Cursor, limit int) ([]fast.Fast, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("list completed: limit must be positive, got %d", limit)
	}

	query := `SELECT ` + fastColumns + ` FROM fasts WHERE end_at IS NOT NULL AND end_at < ?`
	args := []any{toUnix(cutoff)}
	if !after.IsZero() {
		end := toUnix(after.EndAt)
		query += ` AND (end_at > ? OR (end_at = ? AND id COLLATE BINARY > ?))`
		args = append(args, end, end, after.ID)
	}
	query += ` ORDER BY end_at ASC, id COLLATE BINARY ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completed: %w", classify(err))
	}
	return scanFasts(rows)
}

// CountCompletedBefore counts the fasts ListCompletedBefore would visit.
func (s *Store) CountCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM fasts WHERE end_at IS NOT NULL AND end_at < ?
	`, toUnix(cutoff)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed: %w", classify(err))
	}
	return n, nil
}
