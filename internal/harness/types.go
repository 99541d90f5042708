package harness

// TraceEvent records what one step did.
type TraceEvent struct {
	Step  int    `json:"step"`
	Op    string `json:"op"`
	Owner string `json:"owner,omitempty"`

	// FastID is the returned fast's id, or the target id when the step failed.
	FastID string `json:"fast_id,omitempty"`

	// Error is the engine error kind; empty on success.
	Error     string `json:"error,omitempty"`
	Invariant string `json:"invariant,omitempty"`

	Status  string `json:"status,omitempty"`
	Version int64  `json:"version,omitempty"`

	// Count is set by list.
	Count *int `json:"count,omitempty"`

	// Clock is the fake clock after the step (RFC 3339).
	Clock string `json:"clock"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace has one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains mismatch messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
