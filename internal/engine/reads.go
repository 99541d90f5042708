package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/fastlog/internal/access"
	"github.com/roach88/fastlog/internal/chrono"
	"github.com/roach88/fastlog/internal/fast"
	"github.com/roach88/fastlog/internal/store"
)

// ListOptions narrows List. The zero value lists everything.
type ListOptions struct {
	Status fast.Status
	Limit  int
	Offset int
}

// Summary counts one owner's fasts.
type Summary struct {
	Total     int `json:"total" yaml:"total"`
	Completed int `json:"completed" yaml:"completed"`
	Active    int `json:"active" yaml:"active"`

	// Current is the owner's active fast, if any.
	Current *fast.Fast `json:"current,omitempty" yaml:"current,omitempty"`
}

// Get returns the fast id if the caller may read it.
func (e *Engine) Get(ctx context.Context, owner, id string) (fast.Fast, error) {
	const op = "get"

	var f fast.Fast
	err := e.retry(ctx, op, func(ctx context.Context) error {
		var err error
		f, err = e.store.Get(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return fast.Fast{}, notFoundError(op, id)
	}
	if err != nil {
		return fast.Fast{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := e.authorize(op, owner, f, access.Read); err != nil {
		return fast.Fast{}, err
	}
	return f, nil
}

// List returns owner's fasts, most recent start first. Records of other
// owners are never returned.
func (e *Engine) List(ctx context.Context, owner string, opts ListOptions) ([]fast.Fast, error) {
	const op = "list"
	if owner == "" {
		return nil, validationError(op, "owner", "", "owner is required")
	}
	switch opts.Status {
	case "", fast.StatusActive, fast.StatusCompleted:
	default:
		return nil, validationError(op, "status", "", fmt.Sprintf("unknown status %q", opts.Status))
	}

	var fasts []fast.Fast
	err := e.retry(ctx, op, func(ctx context.Context) error {
		var err error
		fasts, err = e.store.ListByOwner(ctx, owner, store.ListFilter{
			Status: opts.Status,
			Limit:  opts.Limit,
			Offset: opts.Offset,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	visible := fasts[:0]
	for _, f := range fasts {
		if e.guard.CanAccess(owner, f, access.Read) {
			visible = append(visible, f)
		}
	}
	return visible, nil
}

// Active returns owner's active fast. Returns KindNotFound if there is none.
func (e *Engine) Active(ctx context.Context, owner string) (fast.Fast, error) {
	const op = "active"

	var f fast.Fast
	err := e.retry(ctx, op, func(ctx context.Context) error {
		var err error
		f, err = e.store.ActiveFor(ctx, owner)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return fast.Fast{}, &Error{Kind: KindNotFound, Op: op, Message: "no active fast"}
	}
	if err != nil {
		return fast.Fast{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := e.authorize(op, owner, f, access.Read); err != nil {
		return fast.Fast{}, err
	}
	return f, nil
}

// Summary returns owner's fast counts and current active fast.
func (e *Engine) Summary(ctx context.Context, owner string) (Summary, error) {
	const op = "summary"
	if owner == "" {
		return Summary{}, validationError(op, "owner", "", "owner is required")
	}

	var counts store.Counts
	err := e.retry(ctx, op, func(ctx context.Context) error {
		var err error
		counts, err = e.store.CountByOwner(ctx, owner)
		return err
	})
	if err != nil {
		return Summary{}, fmt.Errorf("%s: %w", op, err)
	}

	s := Summary{Total: counts.Total, Completed: counts.Completed, Active: counts.Active}
	if counts.Active > 0 {
		current, err := e.Active(ctx, owner)
		switch {
		case err == nil:
			s.Current = &current
		case !IsNotFound(err):
			return Summary{}, err
		}
	}
	return s, nil
}

// Neighbors returns the fasts just before and after id in owner's history.
// Either may be nil.
func (e *Engine) Neighbors(ctx context.Context, owner, id string) (previous, next *fast.Fast, err error) {
	const op = "neighbors"

	f, err := e.Get(ctx, owner, id)
	if err != nil {
		return nil, nil, err
	}
	err = e.retry(ctx, op, func(ctx context.Context) error {
		var err error
		previous, next, err = e.store.Adjacent(ctx, f)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return previous, next, nil
}

// Elapsed returns the duration of id in whole seconds. For an active fast it
// is measured against the engine clock at call time.
func (e *Engine) Elapsed(ctx context.Context, owner, id string) (int64, error) {
	f, err := e.Get(ctx, owner, id)
	if err != nil {
		return 0, err
	}
	return chrono.Duration(f.Start, f.End, e.clock.Now()), nil
}

// Instant converts a wall-clock reading to a UTC instant using the zone
// resolution Start and End use.
func (e *Engine) Instant(ctx context.Context, owner string, l chrono.Local, zone string) (time.Time, error) {
	const op = "instant"
	zone, err := e.resolveZone(ctx, owner, zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	t, verr := toInstant(op, "time", l, zone)
	if verr != nil {
		return time.Time{}, verr
	}
	return t, nil
}

// LocalOf renders t as a wall-clock reading in the resolved zone.
func (e *Engine) LocalOf(ctx context.Context, owner string, t time.Time, zone string) (chrono.Local, error) {
	const op = "local"
	zone, err := e.resolveZone(ctx, owner, zone)
	if err != nil {
		return chrono.Local{}, fmt.Errorf("%s: %w", op, err)
	}
	l, err := chrono.ToLocal(t, zone)
	if err != nil {
		return chrono.Local{}, &Error{Kind: KindValidation, Op: op, Field: "zone", Message: err.Error(), Err: err}
	}
	return l, nil
}

// SetZone records owner's preferred zone after checking it loads.
func (e *Engine) SetZone(ctx context.Context, owner, zone string) error {
	const op = "set_zone"
	if owner == "" {
		return validationError(op, "owner", "", "owner is required")
	}
	if zone == "" {
		return validationError(op, "zone", "", "zone is required")
	}
	if _, err := chrono.LoadZone(zone); err != nil {
		return &Error{Kind: KindValidation, Op: op, Field: "zone", Message: err.Error(), Err: err}
	}
	return e.retry(ctx, op, func(ctx context.Context) error {
		return e.store.SetZone(ctx, owner, zone)
	})
}

// Zone returns the zone calls by owner use when none is given.
func (e *Engine) Zone(ctx context.Context, owner string) (string, error) {
	zone, err := e.resolveZone(ctx, owner, "")
	if err != nil {
		return "", fmt.Errorf("zone: %w", err)
	}
	return zone, nil
}
