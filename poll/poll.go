// Package poll provides a bounded-time retry primitive for waiting on
// eventually-consistent cluster state.
//
// Every "wait for X" step in the harness goes through Wait: a condition
// check is re-evaluated on a fixed tick until it succeeds or the total
// budget elapses, at which point the wait fails with a description of
// what was being awaited and the last value observed.
package poll

import (
	"context"
	"fmt"
	"time"
)

// Test-environment defaults. These are configuration constants, not
// per-step parameters.
const (
	// DefaultTick is how often a condition is rechecked.
	DefaultTick = 1 * time.Second
	// DefaultTimeout is the total budget before a wait fails fatally.
	DefaultTimeout = 20 * time.Second
)

// Config holds the poll cadence for one harness run.
type Config struct {
	// Tick is the interval between condition checks.
	Tick time.Duration
	// Timeout is the total budget before the wait fails.
	Timeout time.Duration
}

// DefaultConfig returns the test-environment poll cadence.
func DefaultConfig() Config {
	return Config{Tick: DefaultTick, Timeout: DefaultTimeout}
}

// withDefaults fills zero fields so a partially-specified Config still
// behaves sanely.
func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// CheckFunc evaluates the awaited condition once. It returns done=true
// when the condition holds, along with a human-readable observation of
// the current value for timeout diagnostics. A non-nil error is fatal
// and aborts the wait immediately; conditions that should tolerate
// transient collaborator failures must absorb them and report done=false.
//
// The check must be idempotent and side-effect-free beyond observation;
// Wait calls it an unbounded number of times.
type CheckFunc func(ctx context.Context) (done bool, observed string, err error)

// TimeoutError reports a wait whose budget elapsed before the condition
// held. It carries what was being awaited and the last observed value.
type TimeoutError struct {
	// What describes the awaited condition.
	What string
	// LastObserved is the observation from the final check, if any.
	LastObserved string
	// Timeout is the budget that elapsed.
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e.LastObserved != "" {
		return fmt.Sprintf("timed out after %s waiting for %s (last observed: %s)", e.Timeout, e.What, e.LastObserved)
	}
	return fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.What)
}

// Wait repeatedly evaluates check on cfg's tick until it reports done,
// returning nil on first success. If cfg.Timeout elapses first, Wait
// returns a *TimeoutError. The first check runs immediately, before any
// tick elapses. Context cancellation aborts the wait with ctx.Err().
func Wait(ctx context.Context, cfg Config, what string, check CheckFunc) error {
	cfg = cfg.withDefaults()

	deadline := time.NewTimer(cfg.Timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	var lastObserved string
	for {
		done, observed, err := check(ctx)
		if err != nil {
			return fmt.Errorf("waiting for %s: %w", what, err)
		}
		if done {
			return nil
		}
		lastObserved = observed

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &TimeoutError{What: what, LastObserved: lastObserved, Timeout: cfg.Timeout}
		case <-ticker.C:
		}
	}
}
