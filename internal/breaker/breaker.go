package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	defaultFailureThreshold = 5
	defaultResetTimeout     = 30 * time.Second
)

// ErrOpen is returned by Allow and Do while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker's position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config controls when a breaker trips and how long it stays open.
type Config struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

// Snapshot is a point-in-time view of a breaker for health reporting.
type Snapshot struct {
	Name                string    `json:"name"`
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	OpenedAt            time.Time `json:"opened_at,omitzero"`
}

// Breaker tracks the health of one downstream dependency. It opens after
// FailureThreshold consecutive failures, admits a single probe call once
// ResetTimeout has elapsed, and closes again when that probe succeeds.
type Breaker struct {
	name      string
	threshold int
	reset     time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// Option customizes a breaker.
type Option func(*Breaker)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// New constructs a closed breaker.
func New(name string, cfg Config, opts ...Option) *Breaker {
	b := &Breaker{
		name:      name,
		threshold: cfg.FailureThreshold,
		reset:     cfg.ResetTimeout,
		now:       time.Now,
		state:     StateClosed,
	}
	if b.threshold <= 0 {
		b.threshold = defaultFailureThreshold
	}
	if b.reset <= 0 {
		b.reset = defaultResetTimeout
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the dependency name the breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// Allow reports whether a call may proceed. A nil error obliges the caller
// to report the call's outcome with Record.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.reset {
			return fmt.Errorf("%s: %w", b.name, ErrOpen)
		}
		b.state = StateHalfOpen
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return fmt.Errorf("%s: %w (probe in flight)", b.name, ErrOpen)
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// Record reports the outcome of a call admitted by Allow.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.state = StateClosed
		b.failures = 0
		b.probing = false
		b.openedAt = time.Time{}
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		b.state = StateOpen
		b.openedAt = b.now()
	}
	b.probing = false
}

// Do runs fn when the breaker admits it and records the result. Context
// cancellation is recorded like any other failure.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn(ctx)
	b.Record(err)
	return err
}

// State returns the current position, promoting an expired open breaker to
// half-open for reporting purposes.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.reset {
		return StateHalfOpen
	}
	return b.state
}

// Snapshot returns the breaker's current counters.
func (b *Breaker) Snapshot() Snapshot {
	state := b.State()
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Name:                b.name,
		State:               state,
		ConsecutiveFailures: b.failures,
		OpenedAt:            b.openedAt,
	}
}
