// Package access decides whether a caller may touch a fast.
//
// The engine asks the Guard before every read and mutation. OwnerOnly is the
// only policy fastlog ships; sharing or admin policies are further Guard
// implementations, not branches inside the engine.
package access

import "github.com/roach88/fastlog/internal/fast"

// Mode is the kind of access being requested.
type Mode string

const (
	Read   Mode = "read"
	Write  Mode = "write"
	Delete Mode = "delete"
)

// Guard answers whether caller may access record in mode.
type Guard interface {
	CanAccess(caller string, record fast.Fast, mode Mode) bool
}

// GuardFunc adapts a function to Guard.
type GuardFunc func(caller string, record fast.Fast, mode Mode) bool

// CanAccess calls f.
func (f GuardFunc) CanAccess(caller string, record fast.Fast, mode Mode) bool {
	return f(caller, record, mode)
}

// OwnerOnly allows every mode to the record's owner and nothing to anyone else.
type OwnerOnly struct{}

// CanAccess implements Guard.
func (OwnerOnly) CanAccess(caller string, record fast.Fast, _ Mode) bool {
	return caller != "" && caller == record.Owner
}

// ReadOnly wraps a Guard so that only Read is ever allowed.
// The CLI's exporter reads through an engine guarded this way.
func ReadOnly(g Guard) Guard {
	return GuardFunc(func(caller string, record fast.Fast, mode Mode) bool {
		return mode == Read && g.CanAccess(caller, record, mode)
	})
}
