package engine

import (
	"fmt"
	"time"

	"github.com/roach88/fastlog/internal/fast"
)

// normalize puts f in the form the store keeps: UTC instants at whole-second
// precision and an NFC note.
func normalize(f fast.Fast) fast.Fast {
	out := f.Clone()
	out.Start = out.Start.UTC().Truncate(time.Second)
	if out.End != nil {
		end := out.End.UTC().Truncate(time.Second)
		out.End = &end
	}
	out.Note = fast.NormalizeNote(out.Note)
	return out
}

// validate checks a candidate record against the record invariants. Every
// mutating operation calls it on the full record it is about to write.
func validate(op string, f fast.Fast) error {
	if f.Owner == "" {
		return withID(validationError(op, "owner", "", "owner is required"), f.ID)
	}
	if f.Start.IsZero() {
		return withID(validationError(op, "start", "", "start is required"), f.ID)
	}

	switch {
	case f.End != nil && f.Outcome == nil:
		return withID(validationError(op, "outcome", InvariantOutcomeWithEnd,
			"outcome is required when the fast has an end"), f.ID)
	case f.End == nil && f.Outcome != nil:
		return withID(validationError(op, "end", InvariantOutcomeWithEnd,
			"outcome cannot be set without an end"), f.ID)
	}

	if f.Outcome != nil && !f.Outcome.Valid() {
		return withID(validationError(op, "outcome", InvariantOutcomeKnown,
			fmt.Sprintf("unknown outcome %q", string(*f.Outcome))), f.ID)
	}

	if f.End != nil && !f.End.After(f.Start) {
		return withID(validationError(op, "end", InvariantEndAfterStart,
			fmt.Sprintf("end %s is not after start %s",
				f.End.Format(time.RFC3339), f.Start.Format(time.RFC3339))), f.ID)
	}

	if n := fast.NoteLength(f.Note); n > fast.MaxNoteLength {
		return withID(validationError(op, "note", InvariantNoteLength,
			fmt.Sprintf("note is %d characters, limit is %d", n, fast.MaxNoteLength)), f.ID)
	}
	return nil
}

func withID(e *Error, id string) *Error {
	e.FastID = id
	return e
}
