package chrono

import (
	"fmt"
	"strings"
	"time"
)

// LocalLayout is the canonical text form of a Local.
const LocalLayout = "2006-01-02T15:04:05"

// accepted input layouts, tried in order.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Local is a wall-clock date and time with no zone attached.
// Precision is whole seconds.
type Local struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// ParseLocal parses a wall-clock time such as "2025-01-01T08:00" or
// "2025-01-01 08:00:15". Any zone designator in the input is an error:
// the zone is always supplied separately.
func ParseLocal(s string) (Local, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Local{}, fmt.Errorf("parse local time: empty input")
	}
	for _, layout := range localLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return LocalFromTime(t), nil
		}
	}
	return Local{}, fmt.Errorf("parse local time %q: expected YYYY-MM-DDTHH:MM[:SS]", s)
}

// MustParseLocal is ParseLocal for tests and constants. Panics on error.
func MustParseLocal(s string) Local {
	l, err := ParseLocal(s)
	if err != nil {
		panic(err)
	}
	return l
}

// LocalFromTime returns the wall-clock reading of t in t's own location.
// Sub-second precision is dropped.
func LocalFromTime(t time.Time) Local {
	return Local{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// IsZero reports whether l is the zero Local.
func (l Local) IsZero() bool {
	return l == Local{}
}

// String formats l as LocalLayout.
func (l Local) String() string {
	return l.in(time.UTC).Format(LocalLayout)
}

// in builds the time.Time showing l's wall clock in loc. For readings that
// fall in a DST gap or overlap the result is normalized by the time package;
// use ToAbsolute for policy-aware conversion.
func (l Local) in(loc *time.Location) time.Time {
	return time.Date(l.Year, l.Month, l.Day, l.Hour, l.Minute, l.Second, 0, loc)
}
