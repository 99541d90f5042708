package engine

import (
	"context"
	"time"

	"github.com/roach88/fastlog/internal/access"
	"github.com/roach88/fastlog/internal/chrono"
	"github.com/roach88/fastlog/internal/store"
)

// Defaults for New.
const (
	DefaultTxTimeout    = 5 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 50 * time.Millisecond
)

// ZoneResolver supplies an owner's preferred zone. An empty result means the
// owner has no preference. *store.Store implements it.
type ZoneResolver interface {
	Zone(ctx context.Context, owner string) (string, error)
}

// Engine runs lifecycle operations against a store.
// Safe for concurrent use; all coordination happens in the store.
type Engine struct {
	store        *store.Store
	guard        access.Guard
	clock        chrono.Clock
	ids          IDGenerator
	zones        ZoneResolver
	defaultZone  string
	txTimeout    time.Duration
	maxRetries   int
	retryBackoff time.Duration
	disclose     bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithGuard replaces the default owner-only access policy.
func WithGuard(g access.Guard) Option {
	return func(e *Engine) {
		if g != nil {
			e.guard = g
		}
	}
}

// WithClock sets the clock used for elapsed time.
func WithClock(c chrono.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithIDs sets the generator for new fast ids.
func WithIDs(g IDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// WithZoneResolver replaces the store as the source of owner zones.
func WithZoneResolver(r ZoneResolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.zones = r
		}
	}
}

// WithDefaultZone sets the zone used when neither the call nor the owner
// names one. Default: UTC.
func WithDefaultZone(zone string) Option {
	return func(e *Engine) {
		e.defaultZone = zone
	}
}

// WithTxTimeout bounds each transaction attempt. Default: 5s.
func WithTxTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.txTimeout = d
		}
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
// Zero disables retries. Default: 3.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the base delay between retries. Attempt n waits
// n*d. Default: 50ms.
func WithRetryBackoff(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.retryBackoff = d
		}
	}
}

// WithExistenceDisclosure reports guard denials as KindAccessDenied instead
// of KindNotFound. Only for callers allowed to learn that a record exists.
func WithExistenceDisclosure() Option {
	return func(e *Engine) {
		e.disclose = true
	}
}

// New creates an Engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        s,
		guard:        access.OwnerOnly{},
		clock:        chrono.System{},
		ids:          UUIDv7Generator{},
		zones:        s,
		defaultZone:  chrono.DefaultZone,
		txTimeout:    DefaultTxTimeout,
		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock's current instant.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}
