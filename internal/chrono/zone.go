package chrono

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	// Embed the zone database so conversions do not depend on the host.
	_ "time/tzdata"
)

// DefaultZone is used whenever no zone is supplied or resolved.
const DefaultZone = "UTC"

// ErrNonexistentLocalTime is returned when a wall-clock reading falls inside a
// spring-forward gap and therefore never occurs in the zone.
var ErrNonexistentLocalTime = errors.New("local time does not exist in zone")

// ErrUnknownZone is returned for zone names the zone database does not know.
var ErrUnknownZone = errors.New("unknown time zone")

// offsets span UTC-12 to UTC+14, so the true instant for a wall-clock reading
// is always within this window of the reading interpreted as UTC.
const offsetWindow = 14 * time.Hour

// LoadZone resolves a zone name. The empty name is UTC.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}
	return loc, nil
}

// ToAbsolute converts a wall-clock reading in the named zone to a UTC instant.
// See the package documentation for how DST gaps and overlaps are handled.
func ToAbsolute(l Local, zone string) (time.Time, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return time.Time{}, err
	}
	candidates := instantsFor(l, loc)
	if len(candidates) == 0 {
		return time.Time{}, fmt.Errorf("%w: %s in %s", ErrNonexistentLocalTime, l, loc)
	}
	return candidates[0].UTC(), nil
}

// ToLocal returns the wall-clock reading of instant t in the named zone.
func ToLocal(t time.Time, zone string) (Local, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return Local{}, err
	}
	return LocalFromTime(t.In(loc)), nil
}

// instantsFor returns every instant whose wall clock in loc reads l, in
// ascending order. Zero results means a gap, two means an overlap.
func instantsFor(l Local, loc *time.Location) []time.Time {
	asUTC := l.in(time.UTC)

	seen := make(map[int]bool, 3)
	var out []time.Time
	for _, probe := range []time.Time{asUTC.Add(-offsetWindow), asUTC, asUTC.Add(offsetWindow)} {
		_, offset := probe.In(loc).Zone()
		if seen[offset] {
			continue
		}
		seen[offset] = true

		candidate := asUTC.Add(-time.Duration(offset) * time.Second)
		if LocalFromTime(candidate.In(loc)) == l {
			out = append(out, candidate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
