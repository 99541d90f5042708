package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/fastlog/internal/chrono"
	"github.com/roach88/fastlog/internal/engine"
	"github.com/roach88/fastlog/internal/fast"
	"github.com/roach88/fastlog/internal/store"
	"github.com/roach88/fastlog/internal/testutil"
)

// IDPrefix prefixes the sequential ids a scenario's fasts receive
// ("fast-1", "fast-2", ...).
const IDPrefix = "fast"

// Option configures a scenario run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger that receives one debug record per step.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Harness runs one scenario against its own store.
type Harness struct {
	store   *store.Store
	engine  *engine.Engine
	clock   *testutil.FakeClock
	logger  *slog.Logger
	aliases map[string]string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh database in a temporary directory that is
// removed afterwards. The clock is fake and ids are sequential, so traces are
// reproducible.
//
// Execution flow:
// 1. Create a fresh store and engine
// 2. Execute steps in order, comparing each against its expect clause
// 3. Evaluate assertions against the final state
//
// The returned error is for infrastructure failures only. Mismatches are
// reported through Result.Pass and Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	start := DefaultClock
	if scenario.Clock != "" {
		start = scenario.Clock
	}
	epoch, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return nil, fmt.Errorf("parse clock: %w", err)
	}

	dir, err := os.MkdirTemp("", "fastlog-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	clock := testutil.NewFakeClock(epoch)
	s, err := store.Open(filepath.Join(dir, "scenario.db"), store.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	engineOpts := []engine.Option{
		engine.WithClock(clock),
		engine.WithIDs(testutil.NewSequenceIDs(IDPrefix)),
		engine.WithDefaultZone(scenario.Zone),
		engine.WithRetryBackoff(time.Millisecond),
	}
	if scenario.Disclose {
		engineOpts = append(engineOpts, engine.WithExistenceDisclosure())
	}

	h := &Harness{
		store:   s,
		engine:  engine.New(s, engineOpts...),
		clock:   clock,
		logger:  o.logger.With("scenario", scenario.Name),
		aliases: make(map[string]string),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h.runStep(ctx, i+1, step, result)
	}

	for i, a := range scenario.Assertions {
		if err := h.evaluate(ctx, a, result.Trace); err != nil {
			result.AddError(fmt.Sprintf("assertion %d (%s): %v", i+1, a.Type, err))
		}
	}

	return result, nil
}

// outcome is what a step produced, before it is compared.
type outcome struct {
	fast  *fast.Fast
	list  []fast.Fast
	err   error
	nowAt time.Time
}

func (h *Harness) runStep(ctx context.Context, n int, step Step, result *Result) {
	target := h.resolve(step.Fast)
	out := h.execute(ctx, step, target)
	out.nowAt = h.clock.Now()

	ev := TraceEvent{
		Step:   n,
		Op:     step.Op,
		Owner:  step.Owner,
		FastID: target,
		Clock:  out.nowAt.Format(time.RFC3339),
	}
	if out.err != nil {
		ev.Error = errorKind(out.err)
		var e *engine.Error
		if errors.As(out.err, &e) {
			ev.Invariant = e.Invariant
		}
	}
	if out.fast != nil {
		ev.FastID = out.fast.ID
		ev.Status = string(out.fast.Status())
		ev.Version = out.fast.Version
		if step.As != "" {
			h.aliases[step.As] = out.fast.ID
		}
	}
	if step.Op == OpList && out.err == nil {
		count := len(out.list)
		ev.Count = &count
	}
	result.Trace = append(result.Trace, ev)

	h.logger.Debug("step",
		"n", n,
		"op", step.Op,
		"owner", step.Owner,
		"fast_id", ev.FastID,
		"error", ev.Error,
	)

	for _, msg := range h.check(step, out) {
		result.AddError(fmt.Sprintf("step %d (%s): %s", n, step.Op, msg))
	}
}

func (h *Harness) execute(ctx context.Context, step Step, target string) outcome {
	switch step.Op {
	case OpAdvance:
		d, err := time.ParseDuration(step.By)
		if err != nil {
			return outcome{err: err}
		}
		h.clock.Advance(d)
		return outcome{}

	case OpStart:
		f, err := h.engine.Start(ctx, step.Owner, parseLocal(step.At), step.Zone)
		return single(f, err)

	case OpEnd:
		f, err := h.engine.End(ctx, step.Owner, target, parseLocal(step.At), step.Zone,
			fast.Outcome(step.Outcome), step.Note)
		return single(f, err)

	case OpEdit:
		patch, err := h.patch(ctx, step)
		if err != nil {
			return outcome{err: err}
		}
		f, err := h.engine.Edit(ctx, step.Owner, target, patch)
		return single(f, err)

	case OpDelete:
		return outcome{err: h.engine.Delete(ctx, step.Owner, target)}

	case OpGet:
		f, err := h.engine.Get(ctx, step.Owner, target)
		return single(f, err)

	case OpActive:
		f, err := h.engine.Active(ctx, step.Owner)
		return single(f, err)

	case OpList:
		list, err := h.engine.List(ctx, step.Owner, engine.ListOptions{Status: fast.Status(step.Status)})
		return outcome{list: list, err: err}

	case OpSetZone:
		return outcome{err: h.engine.SetZone(ctx, step.Owner, step.Zone)}
	}
	return outcome{err: fmt.Errorf("unknown op %q", step.Op)}
}

func single(f fast.Fast, err error) outcome {
	if err != nil {
		return outcome{err: err}
	}
	return outcome{fast: &f}
}

// patch builds an edit patch. Wall-clock times are converted the way Start
// and End convert theirs.
func (h *Harness) patch(ctx context.Context, step Step) (fast.Patch, error) {
	var p fast.Patch
	if step.Start != "" {
		t, err := h.engine.Instant(ctx, step.Owner, parseLocal(step.Start), step.Zone)
		if err != nil {
			return p, err
		}
		p.Start = fast.Set(t)
	}
	if step.End != "" {
		t, err := h.engine.Instant(ctx, step.Owner, parseLocal(step.End), step.Zone)
		if err != nil {
			return p, err
		}
		p.End = fast.Set(t)
	}
	if step.Outcome != "" {
		p.Outcome = fast.Set(fast.Outcome(step.Outcome))
	}
	if step.Note != "" {
		p.Note = fast.Set(step.Note)
	}
	for _, c := range step.Clear {
		switch c {
		case "start":
			p.Start = fast.Clear[time.Time]()
		case "end":
			p.End = fast.Clear[time.Time]()
		case "outcome":
			p.Outcome = fast.Clear[fast.Outcome]()
		case "note":
			p.Note = fast.Clear[string]()
		}
	}
	return p, nil
}

// resolve maps an alias to the id it was bound to. Unbound names are used
// as literal ids.
func (h *Harness) resolve(name string) string {
	if id, ok := h.aliases[name]; ok {
		return id
	}
	return name
}

// parseLocal returns the zero Local for empty or unparseable input, which the
// engine rejects as a missing time.
func parseLocal(s string) chrono.Local {
	l, err := chrono.ParseLocal(s)
	if err != nil {
		return chrono.Local{}
	}
	return l
}
