// Package export serializes one owner's fasts to a portable document.
//
// The exporter only reads through the engine's public surface: it pages
// through List and renders local times with LocalOf, so it sees exactly what
// the owner would see and never another owner's records.
//
// Formats: JSON (indented), YAML, CBOR (core deterministic encoding, RFC 3339
// times) and CSV (one header row, one row per fast).
package export
