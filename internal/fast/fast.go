package fast

import "time"

// MaxNoteLength is the note limit in grapheme clusters.
const MaxNoteLength = 128

// Status is the lifecycle state of a fast, derived from End.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Fast is one tracked fasting period.
type Fast struct {
	ID      string     `json:"id" yaml:"id"`
	Owner   string     `json:"owner" yaml:"owner"`
	Start   time.Time  `json:"start" yaml:"start"`
	End     *time.Time `json:"end,omitempty" yaml:"end,omitempty"`
	Outcome *Outcome   `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Note    string     `json:"note,omitempty" yaml:"note,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`

	// Version increments on every committed update. Writes are conditioned on it.
	Version int64 `json:"version" yaml:"version"`
}

// IsActive reports whether the fast has not been ended.
func (f Fast) IsActive() bool {
	return f.End == nil
}

// Status returns StatusActive or StatusCompleted.
func (f Fast) Status() Status {
	if f.IsActive() {
		return StatusActive
	}
	return StatusCompleted
}

// Clone returns a copy that shares no pointers with f.
func (f Fast) Clone() Fast {
	out := f
	if f.End != nil {
		end := *f.End
		out.End = &end
	}
	if f.Outcome != nil {
		o := *f.Outcome
		out.Outcome = &o
	}
	return out
}
