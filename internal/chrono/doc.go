// Package chrono converts between caller-supplied wall-clock times and the
// absolute instants fastlog stores.
//
// All stored instants are UTC with whole-second precision. Conversion from a
// wall-clock Local to an instant always goes through an explicit zone; an
// empty zone name means UTC, never the host's local zone.
//
// # DST Policy
//
// Wall-clock times that fall inside a daylight-saving transition are resolved
// deterministically:
//
//   - Nonexistent (spring-forward gap): rejected with ErrNonexistentLocalTime.
//   - Ambiguous (fall-back overlap): resolved to the earlier instant, i.e. the
//     first time the wall clock shows that reading.
//
// Durations are computed at call time against a Clock, so repeated reads of an
// active fast never go backwards as long as the Clock does not.
package chrono
