// Package engine implements the fast lifecycle: starting, ending, editing and
// deleting fasts on behalf of an owner.
//
// ARCHITECTURE:
//
// Every mutating operation is one store transaction:
//  1. Resolve the zone and convert local times to UTC instants (chrono)
//  2. Read the record inside the transaction
//  3. Ask the access guard whether the caller may touch it
//  4. Build the resulting record and validate it (validate.go)
//  5. Write it conditioned on the version that was read
//
// Reads (Get, List, Active, ...) run outside write transactions on the
// store's WAL snapshot.
//
// CRITICAL PATTERNS:
//
// One active fast per owner:
// Start does not read before inserting. The store's partial unique index
// rejects the second active fast and the engine reports KindConflict. Two
// racing Starts therefore cannot both succeed.
//
// Versioned writes:
// End, Edit and Delete write with UPDATE/DELETE ... WHERE version = ?. A
// writer that loses a race re-reads the record in its own transaction and
// reports KindInvalidState or KindNotFound instead of overwriting.
//
// Information hiding:
// A record the guard denies is reported as KindNotFound, so non-owners cannot
// probe for existence. WithExistenceDisclosure switches this to
// KindAccessDenied for admin-facing callers.
//
// Transient faults:
// Each transaction runs under a timeout. SQLITE_BUSY and timeouts are retried
// with linear backoff and surface as KindTransient only after the retries
// are exhausted. A cancelled caller context is never retried.
//
// The engine does no logging. Every failure is returned as *Error.
package engine
