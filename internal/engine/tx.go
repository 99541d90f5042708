package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/fastlog/internal/access"
	"github.com/roach88/fastlog/internal/fast"
	"github.com/roach88/fastlog/internal/store"
)

// retry runs fn under the transaction timeout, retrying transient failures.
// Business errors and caller cancellation are returned at once.
func (e *Engine) retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var last error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, time.Duration(attempt)*e.retryBackoff); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		err := e.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if !isTransient(ctx, err) {
			return err
		}
		last = err
	}
	return &Error{
		Kind:    KindTransient,
		Op:      op,
		Message: fmt.Sprintf("store unavailable after %d attempts", e.maxRetries+1),
		Err:     last,
	}
}

func (e *Engine) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.txTimeout)
	defer cancel()
	return fn(ctx)
}

// transact runs fn as one store transaction with retry.
func (e *Engine) transact(ctx context.Context, op string, fn func(ctx context.Context, tx *store.Tx) error) error {
	return e.retry(ctx, op, func(ctx context.Context) error {
		return e.store.WithTx(ctx, func(tx *store.Tx) error {
			return fn(ctx, tx)
		})
	})
}

// isTransient reports whether err is worth another attempt. Once the
// caller's own context is done nothing is.
func isTransient(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	return errors.Is(err, store.ErrBusy) || errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// load reads id inside tx and applies the access guard.
func (e *Engine) load(ctx context.Context, tx *store.Tx, op, owner, id string, mode access.Mode) (fast.Fast, error) {
	f, err := tx.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fast.Fast{}, notFoundError(op, id)
		}
		return fast.Fast{}, err
	}
	if err := e.authorize(op, owner, f, mode); err != nil {
		return fast.Fast{}, err
	}
	return f, nil
}

// authorize applies the guard and hides denied records unless disclosure is on.
func (e *Engine) authorize(op, caller string, f fast.Fast, mode access.Mode) error {
	if e.guard.CanAccess(caller, f, mode) {
		return nil
	}
	if e.disclose {
		return &Error{Kind: KindAccessDenied, Op: op, FastID: f.ID, Message: fmt.Sprintf("%s access denied", mode)}
	}
	return notFoundError(op, f.ID)
}

// lostRace explains a version mismatch by re-reading the record in the same
// transaction.
func lostRace(ctx context.Context, tx *store.Tx, op, id string) error {
	current, err := tx.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFoundError(op, id)
	case err != nil:
		return err
	case !current.IsActive() && op == "end":
		return invalidStateError(op, id, "", "fast is already completed")
	}
	return &Error{Kind: KindConflict, Op: op, FastID: id, Message: "fast was changed by another writer"}
}

// storeError maps write failures the schema caught onto engine errors.
func storeError(op string, f fast.Fast, err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return &Error{
			Kind:      KindConflict,
			Op:        op,
			FastID:    f.ID,
			Invariant: InvariantOneActive,
			Message:   fmt.Sprintf("owner %q already has an active fast", f.Owner),
			Err:       err,
		}
	case errors.Is(err, store.ErrConstraint):
		return &Error{Kind: KindValidation, Op: op, FastID: f.ID, Message: "record rejected by store", Err: err}
	}
	return err
}
