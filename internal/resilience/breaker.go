package resilience

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// State represents circuit breaker state
type State uint32

const (
	Closed   State = iota // calls flow
	Open                  // calls fail fast with ErrOpen
	HalfOpen              // one probe at a time decides
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// ErrOpen is returned while the breaker is failing fast.
var ErrOpen = errors.New("circuit breaker open")

// Breaker is a lock-free circuit breaker.
type Breaker struct {
	cfg       Config
	state     atomic.Uint32
	failures  atomic.Int32
	successes atomic.Int32
	probing   atomic.Bool
	openedAt  atomic.Int64 // unix nano
	hook      func(from, to State)
}

// New creates a breaker with config
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg.withDefaults()}
}

// WithHook sets a callback run on every state change.
func (b *Breaker) WithHook(fn func(from, to State)) *Breaker {
	b.hook = fn
	return b
}

// State returns current state
func (b *Breaker) State() State {
	return State(b.state.Load())
}

// Allow admits a call or returns ErrOpen. The caller reports the outcome
// through done. While half-open a single probe is admitted at a time.
func (b *Breaker) Allow() (done func(error), err error) {
	switch b.State() {
	case Open:
		if time.Since(time.Unix(0, b.openedAt.Load())) < b.cfg.ResetTimeout {
			return nil, ErrOpen
		}
		b.transition(Open, HalfOpen)
		fallthrough
	case HalfOpen:
		if !b.probing.CompareAndSwap(false, true) {
			return nil, ErrOpen
		}
		return b.finishProbe, nil
	default:
		return b.finish, nil
	}
}

// Execute runs fn with circuit breaker protection. Errors that the config
// does not classify as failures leave the breaker untouched.
func (b *Breaker) Execute(fn func() error) error {
	done, err := b.Allow()
	if err != nil {
		return err
	}
	err = fn()
	done(err)
	return err
}

// Do is Execute for calls that produce a value.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	done, err := b.Allow()
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := fn()
	done(err)
	return v, err
}

func (b *Breaker) finish(err error) {
	switch {
	case err == nil:
		b.failures.Store(0)
	case b.cfg.IsFailure(err):
		if b.failures.Add(1) >= int32(b.cfg.Threshold) {
			b.trip(Closed)
		}
	}
}

func (b *Breaker) finishProbe(err error) {
	defer b.probing.Store(false)
	switch {
	case err == nil:
		if b.successes.Add(1) >= int32(b.cfg.HalfOpenSuccesses) {
			b.transition(HalfOpen, Closed)
		}
	case b.cfg.IsFailure(err):
		b.trip(HalfOpen)
	}
}

func (b *Breaker) trip(from State) {
	b.openedAt.Store(time.Now().UnixNano())
	b.transition(from, Open)
}

// transition moves from -> to unless another caller got there first.
func (b *Breaker) transition(from, to State) {
	if !b.state.CompareAndSwap(uint32(from), uint32(to)) {
		return
	}
	b.failures.Store(0)
	b.successes.Store(0)
	if b.hook != nil {
		b.hook(from, to)
	}
}
