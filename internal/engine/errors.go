package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes engine errors.
type Kind string

const (
	// KindValidation means the input violates a record invariant. The caller
	// must correct the input; it is never retried.
	KindValidation Kind = "VALIDATION"

	// KindConflict means the owner already has an active fast, or a racing
	// writer won. Not retried; the user has to act.
	KindConflict Kind = "CONFLICT"

	// KindInvalidState means the operation does not apply to the record's
	// current state, e.g. ending a completed fast.
	KindInvalidState Kind = "INVALID_STATE"

	// KindNotFound means no record is visible to the caller. Records owned by
	// someone else are reported this way too.
	KindNotFound Kind = "NOT_FOUND"

	// KindAccessDenied is only used when the engine was built with
	// WithExistenceDisclosure.
	KindAccessDenied Kind = "ACCESS_DENIED"

	// KindTransient means the store stayed busy or timed out after every
	// internal retry.
	KindTransient Kind = "TRANSIENT"
)

// Invariant names carried in Error.Invariant.
const (
	InvariantEndAfterStart  = "end_after_start"
	InvariantOutcomeWithEnd = "outcome_with_end"
	InvariantOutcomeKnown   = "outcome_known"
	InvariantNoteLength     = "note_length"
	InvariantOneActive      = "one_active"
	InvariantNoReopen       = "no_reopen"
)

// Error is the structured error returned by every engine operation.
//
// Op names the operation ("start", "end", ...). Field and Invariant say what
// was wrong when that is known, so callers can build a specific message
// without parsing Message.
type Error struct {
	Kind      Kind
	Op        string
	FastID    string
	Field     string
	Invariant string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	var attrs []string
	if e.FastID != "" {
		attrs = append(attrs, "fast="+e.FastID)
	}
	if e.Field != "" {
		attrs = append(attrs, "field="+e.Field)
	}
	if e.Invariant != "" {
		attrs = append(attrs, "invariant="+e.Invariant)
	}
	if len(attrs) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(attrs, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Details returns the non-empty structured fields as a map, for output
// envelopes.
func (e *Error) Details() map[string]string {
	d := map[string]string{}
	if e.Op != "" {
		d["op"] = e.Op
	}
	if e.FastID != "" {
		d["fast_id"] = e.FastID
	}
	if e.Field != "" {
		d["field"] = e.Field
	}
	if e.Invariant != "" {
		d["invariant"] = e.Invariant
	}
	return d
}

// KindOf returns the Kind of err, or "" if err is not an engine error.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsConflict returns true if err is a conflict error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsInvalidState returns true if err is an invalid state error.
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }

// IsNotFound returns true if err is a not found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsAccessDenied returns true if err is an access denied error.
func IsAccessDenied(err error) bool { return KindOf(err) == KindAccessDenied }

// IsTransient returns true if err is a transient error.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

func validationError(op, field, invariant, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Invariant: invariant, Message: msg}
}

func notFoundError(op, id string) *Error {
	return &Error{Kind: KindNotFound, Op: op, FastID: id, Message: "no such fast"}
}

func invalidStateError(op, id, invariant, msg string) *Error {
	return &Error{Kind: KindInvalidState, Op: op, FastID: id, Invariant: invariant, Message: msg}
}
