// Package fast defines the fastlog domain types: the Fast record, its
// categorical Outcome, the Patch used to amend it, and note normalization.
//
// A Fast is Active while End is nil and Completed once End and Outcome are
// both set. These types carry no persistence or authorization logic; the
// lifecycle rules live in internal/engine.
package fast
