package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SetZone records owner's preferred zone. The name is stored as given;
// callers validate it first.
func (s *Store) SetZone(ctx context.Context, owner, zone string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_zones (owner, zone, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET zone = excluded.zone, updated_at = excluded.updated_at
	`, owner, zone, toUnix(s.now()))
	if err != nil {
		return fmt.Errorf("set zone: %w", classify(err))
	}
	return nil
}

// Zone returns owner's preferred zone, or "" if none is recorded.
func (s *Store) Zone(ctx context.Context, owner string) (string, error) {
	var zone string
	err := s.db.QueryRowContext(ctx, `SELECT zone FROM user_zones WHERE owner = ?`, owner).Scan(&zone)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get zone: %w", classify(err))
	}
	return zone, nil
}
