package chrono

import (
	"fmt"
	"time"
)

// Clock supplies the current instant. Production code uses System; tests
// inject a fake.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

// Now returns the current UTC time truncated to whole seconds.
func (System) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Duration returns the whole seconds between start and end, or between start
// and now when end is nil. The result is never negative.
func Duration(start time.Time, end *time.Time, now time.Time) int64 {
	stop := now
	if end != nil {
		stop = *end
	}
	secs := int64(stop.Sub(start) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

// FormatHours renders seconds as "Xh Ym", truncating leftover seconds.
func FormatHours(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}
