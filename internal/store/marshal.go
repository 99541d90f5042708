package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/fastlog/internal/fast"
)

// fastColumns is the column list every fast query selects, in scan order.
const fastColumns = `id, owner, start_at, end_at, outcome, note, version, created_at, updated_at`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanFast reads one fast in fastColumns order.
func scanFast(row scanner) (fast.Fast, error) {
	var (
		f                  fast.Fast
		startAt            int64
		endAt              sql.NullInt64
		outcome            sql.NullString
		createdAt, updated int64
	)
	if err := row.Scan(&f.ID, &f.Owner, &startAt, &endAt, &outcome, &f.Note, &f.Version, &createdAt, &updated); err != nil {
		return fast.Fast{}, err
	}

	f.Start = fromUnix(startAt)
	if endAt.Valid {
		end := fromUnix(endAt.Int64)
		f.End = &end
	}
	if outcome.Valid {
		o := fast.Outcome(outcome.String)
		if !o.Valid() {
			return fast.Fast{}, fmt.Errorf("scan fast %s: unknown outcome %q", f.ID, outcome.String)
		}
		f.Outcome = &o
	}
	f.CreatedAt = fromUnix(createdAt)
	f.UpdatedAt = fromUnix(updated)
	return f, nil
}

// scanFasts drains rows into a slice. Returns an empty slice, never nil.
func scanFasts(rows *sql.Rows) ([]fast.Fast, error) {
	defer rows.Close()

	out := []fast.Fast{}
	for rows.Next() {
		f, err := scanFast(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fast: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fasts: %w", err)
	}
	return out, nil
}

func toUnix(t time.Time) int64 {
	return t.UTC().Unix()
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func nullableEnd(end *time.Time) sql.NullInt64 {
	if end == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toUnix(*end), Valid: true}
}

func nullableOutcome(o *fast.Outcome) sql.NullString {
	if o == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*o), Valid: true}
}
