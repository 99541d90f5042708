package fast

import (
	"fmt"
	"strings"
)

// Outcome is the categorical label recorded when a fast ends.
type Outcome string

const (
	OutcomeEnergized   Outcome = "energized"
	OutcomeSatisfied   Outcome = "satisfied"
	OutcomeChallenging Outcome = "challenging"
	OutcomeDifficult   Outcome = "difficult"
)

// Outcomes lists every valid outcome in display order.
var Outcomes = []Outcome{
	OutcomeEnergized,
	OutcomeSatisfied,
	OutcomeChallenging,
	OutcomeDifficult,
}

var outcomeDisplay = map[Outcome]string{
	OutcomeEnergized:   "Energized",
	OutcomeSatisfied:   "Satisfied",
	OutcomeChallenging: "Challenging",
	OutcomeDifficult:   "Difficult",
}

// Valid reports whether o is one of Outcomes.
func (o Outcome) Valid() bool {
	_, ok := outcomeDisplay[o]
	return ok
}

// Display returns the human-facing label, or "" for an invalid outcome.
func (o Outcome) Display() string {
	return outcomeDisplay[o]
}

// ParseOutcome accepts an outcome value or display name, case-insensitively.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(strings.ToLower(strings.TrimSpace(s)))
	if !o.Valid() {
		return "", fmt.Errorf("unknown outcome %q: must be one of %v", s, Outcomes)
	}
	return o, nil
}

// OutcomePtr returns a pointer to o.
func OutcomePtr(o Outcome) *Outcome {
	return &o
}
