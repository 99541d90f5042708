package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound means no row matched.
	ErrNotFound = errors.New("fast not found")

	// ErrConflict means a UNIQUE constraint rejected the write. For inserts
	// this is the one-active-fast-per-owner index.
	ErrConflict = errors.New("unique constraint conflict")

	// ErrVersionMismatch means the row changed or vanished since it was read.
	ErrVersionMismatch = errors.New("version mismatch")

	// ErrConstraint means a CHECK constraint rejected the write.
	ErrConstraint = errors.New("check constraint failed")

	// ErrBusy means SQLite could not get the lock within busy_timeout.
	ErrBusy = errors.New("database busy")
)

// classify maps driver errors onto the store's sentinel errors.
// Errors it does not recognize are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}

	switch {
	case se.ExtendedCode == sqlite3.ErrConstraintUnique,
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %s", ErrConflict, se.Error())
	case se.ExtendedCode == sqlite3.ErrConstraintCheck:
		return fmt.Errorf("%w: %s", ErrConstraint, se.Error())
	case se.Code == sqlite3.ErrBusy, se.Code == sqlite3.ErrLocked:
		return fmt.Errorf("%w: %s", ErrBusy, se.Error())
	}
	return err
}
