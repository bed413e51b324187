// Package testutil provides polling helpers for tests that drive a test run
// from another goroutine.
package testutil

import (
	"testing"
	"time"
)

// DefaultTimeout is the default timeout for Eventually.
const DefaultTimeout = 5 * time.Second

// DefaultInterval is the default polling interval for Eventually.
const DefaultInterval = 10 * time.Millisecond

type config struct {
	timeout  time.Duration
	interval time.Duration
	message  string
}

// Option configures Eventually behavior.
type Option func(*config)

// WithTimeout sets the maximum time to wait for the condition.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(c *config) { c.interval = d }
}

// WithMessage sets the error message shown on timeout.
func WithMessage(msg string) Option {
	return func(c *config) { c.message = msg }
}

// Eventually polls condition until it returns true or the timeout expires,
// in which case the test is marked failed.
//
//	testutil.Eventually(t, func() bool {
//	    _, starts, _, _ := containers.Calls()
//	    return len(starts) == 1
//	})
func Eventually(t testing.TB, condition func() bool, opts ...Option) bool {
	t.Helper()

	cfg := &config{
		timeout:  DefaultTimeout,
		interval: DefaultInterval,
		message:  "condition was not satisfied",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	deadline := time.NewTimer(cfg.timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	for {
		if condition() {
			return true
		}

		select {
		case <-deadline.C:
			t.Errorf("Eventually timed out after %v: %s", cfg.timeout, cfg.message)
			return false
		case <-ticker.C:
		}
	}
}

// WaitForChan waits for ch to deliver a value or close within timeout.
func WaitForChan[T any](t testing.TB, ch <-chan T, timeout time.Duration) (T, bool) {
	t.Helper()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v, true
	case <-timer.C:
		var zero T
		t.Errorf("WaitForChan timed out after %v", timeout)
		return zero, false
	}
}
