// Package store provides SQLite-backed durable storage for fast records.
//
// The store holds one row per fast plus each owner's preferred zone:
//   - fasts: start/end instants, outcome, note, version, bookkeeping times
//   - user_zones: IANA zone name per owner, consulted when a caller omits one
//
// # Critical Patterns
//
// Single Active Fast Per Owner
//   - Partial UNIQUE index on fasts(owner) WHERE end_at IS NULL
//   - A second active insert fails at the store with ErrConflict; callers
//     never rely on a read-then-write check
//
// Versioned Writes
//   - Every update and delete is conditioned on (id, version)
//   - A write that lost a race returns ErrVersionMismatch and changes nothing
//
// Schema-Level Invariants
//   - CHECK(end_at > start_at), CHECK(end_at and outcome both set or both null)
//   - These back up the engine's validation; they are never the first line
//
// Deterministic Ordering
//   - Owner listings: ORDER BY start_at DESC, id DESC
//   - Archival scans: ORDER BY end_at ASC, id ASC (keyset paginated)
//
// # Time Encoding
//
// Instants are stored as INTEGER unix seconds in UTC. Sub-second precision is
// dropped on write.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for the write lock instead of failing immediately
//   - _txlock=immediate: Write transactions take the lock at BEGIN, so two
//     writers never deadlock upgrading from a read lock
//
// SQLite serializes writers for the whole database file. Isolation between
// owners comes from the per-record version and the per-owner index, not from
// any application-level lock.
package store
