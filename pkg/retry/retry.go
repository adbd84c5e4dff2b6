// Package retry runs a fetch under a per-attempt deadline with bounded retries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/mwantia/sessionbrowser/pkg/records"
)

// State is the phase of one load cycle.
type State int

const (
	Idle State = iota
	Loading
	Retrying
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Retrying:
		return "retrying"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds retry configuration.
type Config struct {
	Timeout    time.Duration // Deadline per attempt
	MaxRetries int           // Additional attempts after the first
	Backoff    time.Duration // Wait before the first retry
	MaxBackoff time.Duration // Upper bound for the wait
	Multiplier float64       // Backoff multiplier, 1 for a fixed delay
	Jitter     float64       // Jitter factor (0-1)
}

// DefaultConfig returns the listing defaults: two retries one second apart.
func DefaultConfig() Config {
	return Config{
		Timeout:    15 * time.Second,
		MaxRetries: 2,
		Backoff:    time.Second,
		MaxBackoff: 10 * time.Second,
		Multiplier: 1.0,
	}
}

// AttemptsError is returned once a retryable failure exhausted all attempts.
type AttemptsError struct {
	Attempts int
	Err      error
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *AttemptsError) Unwrap() error {
	return e.Err
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Controller runs fetches and tracks the state of the current cycle.
type Controller[T any] struct {
	cfg     Config
	sleep   Sleeper
	onRetry func(attempt int, wait time.Duration, err error)

	mu       sync.RWMutex
	state    State
	attempts int
	lastErr  error
}

// Option configures a Controller.
type Option[T any] func(*Controller[T])

// WithSleeper replaces the wait between attempts.
func WithSleeper[T any](s Sleeper) Option[T] {
	return func(c *Controller[T]) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithOnRetry registers a callback invoked before each retry delay.
func WithOnRetry[T any](fn func(attempt int, wait time.Duration, err error)) Option[T] {
	return func(c *Controller[T]) {
		c.onRetry = fn
	}
}

// New creates a Controller in the Idle state.
func New[T any](cfg Config, opts ...Option[T]) *Controller[T] {
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	c := &Controller[T]{cfg: cfg, sleep: Sleep}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state, the attempts made in the current cycle and
// the error that ended it, if any.
func (c *Controller[T]) State() (State, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.attempts, c.lastErr
}

func (c *Controller[T]) set(state State, attempts int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state, c.attempts, c.lastErr = state, attempts, err
}

// Run starts a fresh cycle. Each attempt gets its own deadline; retryable
// failures are retried up to MaxRetries times, other failures end the cycle
// immediately.
func (c *Controller[T]) Run(ctx context.Context, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 1; ; attempt++ {
		c.set(Loading, attempt, nil)

		result, err := c.attempt(ctx, fetch)
		if err == nil {
			c.set(Success, attempt, nil)
			return result, nil
		}

		if !records.Retryable(err) || ctx.Err() != nil {
			c.set(Failed, attempt, err)
			return zero, err
		}

		if attempt > c.cfg.MaxRetries {
			err = &AttemptsError{Attempts: attempt, Err: err}
			c.set(Failed, attempt, err)
			return zero, err
		}

		wait := c.backoff(attempt)
		c.set(Retrying, attempt, err)
		if c.onRetry != nil {
			c.onRetry(attempt, wait, err)
		}

		if err := c.sleep(ctx, wait); err != nil {
			c.set(Failed, attempt, err)
			return zero, err
		}
	}
}

// attempt races fetch against the per-attempt deadline. A result that arrives
// after the deadline is dropped.
func (c *Controller[T]) attempt(ctx context.Context, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if c.cfg.Timeout <= 0 {
		return fetch(ctx)
	}

	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	type outcome struct {
		result T
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := fetch(actx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, records.NewError(records.ErrTimeout, "list", o.err)
		}
		return o.result, o.err
	case <-actx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, records.NewError(records.ErrTimeout, "list", fmt.Errorf("no response within %s", c.cfg.Timeout))
	}
}

func (c *Controller[T]) backoff(attempt int) time.Duration {
	wait := float64(c.cfg.Backoff) * math.Pow(c.cfg.Multiplier, float64(attempt-1))
	if c.cfg.MaxBackoff > 0 && wait > float64(c.cfg.MaxBackoff) {
		wait = float64(c.cfg.MaxBackoff)
	}

	if c.cfg.Jitter > 0 {
		jitter := wait * c.cfg.Jitter * (rand.Float64()*2 - 1)
		wait += jitter
	}

	return time.Duration(wait)
}
