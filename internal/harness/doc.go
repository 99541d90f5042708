// Package harness runs scripted lifecycle scenarios against the engine.
//
// Each scenario gets a fresh SQLite store in a temporary directory, a fake
// clock and sequential ids ("fast-1", "fast-2", ...), so the trace it produces
// is reproducible and can be compared against golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	clock: "2025-01-01T08:00:00Z"   # optional fake clock start
//	zone: UTC                       # optional engine default zone
//	steps:
//	  - op: start
//	    owner: u1
//	    at: "2025-01-01T08:00"
//	    zone: UTC
//	    as: f1                      # bind the returned id to an alias
//	  - op: advance
//	    by: 15s
//	  - op: end
//	    owner: u1
//	    fast: f1
//	    at: "2025-01-01T08:00:00"
//	    outcome: satisfied
//	    expect:
//	      error: VALIDATION
//	      invariant: end_after_start
//	assertions:
//	  - type: final_state
//	    fast: f1
//	    expect: { status: active }
//
// A step without an expect clause must succeed.
//
// # Step Operations
//
//   - start, end, edit, delete, get, list, active: the engine operations
//   - advance: move the fake clock forward
//   - set_zone: record an owner's preferred zone
//
// # Assertion Types
//
//   - active_count: the owner has exactly count active fasts
//   - final_state: the stored record matches expect (read past the guard)
//   - absent: the record no longer exists
//   - trace_count: exactly count steps of op ended with the given error kind
//
// # Golden Files
//
// RunWithGolden writes the trace as indented JSON and compares it with
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
