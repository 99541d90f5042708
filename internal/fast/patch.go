package fast

import "time"

// Field is one optional patch entry: untouched, set to a value, or cleared.
type Field[T any] struct {
	set   bool
	clear bool
	value T
}

// Set returns a Field that assigns v.
func Set[T any](v T) Field[T] {
	return Field[T]{set: true, value: v}
}

// Clear returns a Field that removes the current value.
func Clear[T any]() Field[T] {
	return Field[T]{set: true, clear: true}
}

// Present reports whether the patch touches this field.
func (f Field[T]) Present() bool { return f.set }

// Cleared reports whether the patch removes this field's value.
func (f Field[T]) Cleared() bool { return f.set && f.clear }

// Value returns the assigned value and whether one was assigned.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.set && !f.clear
}

// Patch amends a fast. Untouched fields keep their current value.
type Patch struct {
	Start   Field[time.Time]
	End     Field[time.Time]
	Outcome Field[Outcome]
	Note    Field[string]
}

// Empty reports whether the patch touches nothing.
func (p Patch) Empty() bool {
	return !p.Start.Present() && !p.End.Present() && !p.Outcome.Present() && !p.Note.Present()
}

// Apply returns a copy of f with the patch applied. It performs no validation.
func (p Patch) Apply(f Fast) Fast {
	out := f.Clone()
	if v, ok := p.Start.Value(); ok {
		out.Start = v.UTC()
	}
	if p.End.Cleared() {
		out.End = nil
	} else if v, ok := p.End.Value(); ok {
		end := v.UTC()
		out.End = &end
	}
	if p.Outcome.Cleared() {
		out.Outcome = nil
	} else if v, ok := p.Outcome.Value(); ok {
		out.Outcome = OutcomePtr(v)
	}
	if p.Note.Cleared() {
		out.Note = ""
	} else if v, ok := p.Note.Value(); ok {
		out.Note = v
	}
	return out
}
