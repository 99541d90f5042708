package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/fastlog/internal/chrono"
	"github.com/roach88/fastlog/internal/engine"
	"github.com/roach88/fastlog/internal/fast"
	"github.com/roach88/fastlog/internal/store"
)

// check compares a step's outcome with its expect clause. A step without an
// expect clause must succeed.
func (h *Harness) check(step Step, out outcome) []string {
	want := step.Expect
	if want == nil {
		want = &Expect{}
	}

	gotKind := errorKind(out.err)
	if gotKind != want.Error {
		if out.err != nil {
			return []string{fmt.Sprintf("expected error %q, got %q: %v", want.Error, gotKind, out.err)}
		}
		return []string{fmt.Sprintf("expected error %q, got success", want.Error)}
	}

	var problems []string
	if want.Invariant != "" {
		var e *engine.Error
		if !errors.As(out.err, &e) || e.Invariant != want.Invariant {
			problems = append(problems, fmt.Sprintf("expected invariant %q, got error %v", want.Invariant, out.err))
		}
	}
	if out.err != nil {
		return problems
	}

	if out.fast != nil {
		problems = append(problems, h.matchFast(*out.fast, *want, out.nowAt)...)
	}
	if step.Op == OpList {
		problems = append(problems, h.matchList(out.list, *want)...)
	}
	return problems
}

// errorKind returns the engine error kind of err, "" for nil and
// UNCLASSIFIED for errors the engine did not classify.
func errorKind(err error) string {
	if err == nil {
		return ""
	}
	if k := engine.KindOf(err); k != "" {
		return string(k)
	}
	return "UNCLASSIFIED"
}

// matchFast compares f against the fields want sets.
func (h *Harness) matchFast(f fast.Fast, want Expect, now time.Time) []string {
	var problems []string
	mismatch := func(field string, want, got any) {
		problems = append(problems, fmt.Sprintf("%s: expected %v, got %v", field, want, got))
	}

	if want.Status != "" && string(f.Status()) != want.Status {
		mismatch("status", want.Status, f.Status())
	}
	if want.Outcome != "" {
		got := ""
		if f.Outcome != nil {
			got = string(*f.Outcome)
		}
		if got != want.Outcome {
			mismatch("outcome", want.Outcome, got)
		}
	}
	if want.Note != nil && f.Note != *want.Note {
		mismatch("note", *want.Note, f.Note)
	}
	if want.Start != "" && f.Start.Format(time.RFC3339) != want.Start {
		mismatch("start", want.Start, f.Start.Format(time.RFC3339))
	}
	if want.End != "" {
		got := ""
		if f.End != nil {
			got = f.End.Format(time.RFC3339)
		}
		if got != want.End {
			mismatch("end", want.End, got)
		}
	}
	if want.Elapsed != nil {
		got := chrono.Duration(f.Start, f.End, now)
		if got != *want.Elapsed {
			mismatch("elapsed", *want.Elapsed, got)
		}
	}
	return problems
}

func (h *Harness) matchList(list []fast.Fast, want Expect) []string {
	var problems []string
	if want.Count != nil && len(list) != *want.Count {
		problems = append(problems, fmt.Sprintf("count: expected %d, got %d", *want.Count, len(list)))
	}
	if want.IDs != nil {
		expected := make([]string, len(want.IDs))
		for i, name := range want.IDs {
			expected[i] = h.resolve(name)
		}
		got := make([]string, len(list))
		for i, f := range list {
			got[i] = f.ID
		}
		if strings.Join(expected, ",") != strings.Join(got, ",") {
			problems = append(problems, fmt.Sprintf("ids: expected [%s], got [%s]",
				strings.Join(expected, ", "), strings.Join(got, ", ")))
		}
	}
	return problems
}

// evaluate checks one assertion against the final state. final_state and
// absent read the store directly, bypassing the access guard.
func (h *Harness) evaluate(ctx context.Context, a Assertion, trace []TraceEvent) error {
	switch a.Type {
	case AssertActiveCount:
		s, err := h.engine.Summary(ctx, a.Owner)
		if err != nil {
			return err
		}
		if s.Active != a.Count {
			return fmt.Errorf("expected %d active fasts for %s, got %d", a.Count, a.Owner, s.Active)
		}
		return nil

	case AssertFinalState:
		id := h.resolve(a.Fast)
		f, err := h.store.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("read %s: %w", id, err)
		}
		if a.Expect.Error != "" {
			return fmt.Errorf("final_state cannot expect an error")
		}
		if problems := h.matchFast(f, *a.Expect, h.clock.Now()); len(problems) > 0 {
			return errors.New(strings.Join(problems, "; "))
		}
		return nil

	case AssertAbsent:
		id := h.resolve(a.Fast)
		_, err := h.store.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", id, err)
		}
		return fmt.Errorf("expected %s to be absent", id)

	case AssertTraceCount:
		n := 0
		for _, ev := range trace {
			if ev.Op == a.Op && ev.Error == a.Error {
				n++
			}
		}
		if n != a.Count {
			return fmt.Errorf("expected %d %s steps with error %q, got %d", a.Count, a.Op, a.Error, n)
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}
