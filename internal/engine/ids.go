package engine

import "github.com/google/uuid"

// IDGenerator assigns identifiers to new fasts.
// Implemented by UUIDv7Generator (production) and testutil.SequenceIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// Format: "0190a6e4-2b1c-7d3e-8f4a-5b6c7d8e9f0a" (36 characters).
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the random source fails, which should never happen in practice.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
