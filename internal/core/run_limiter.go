package core

// run_limiter.go caps the number of pipeline runs in flight.
//
// Each run holds one slot from decode to final step. When all slots are taken
// a new run waits up to maxWait before failing with ErrTooManyRuns.
// WaitForDrain lets shutdown block until every active run has released.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyRuns is returned when no run slot frees up within the wait time.
var ErrTooManyRuns = errors.New("too many concurrent runs, please try again later")

// DefaultMaxConcurrentRuns is the slot count used when none is configured.
const DefaultMaxConcurrentRuns = 8

// DefaultMaxWaitTime is how long to wait for a slot when none is configured.
const DefaultMaxWaitTime = 10 * time.Second

// RunLimiter is a counting semaphore over pipeline runs.
type RunLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu      sync.Mutex
	active  int
	drained []chan struct{} // closed when active drops to zero
}

// NewRunLimiter allows at most maxConcurrent simultaneous runs. Non-positive
// arguments fall back to the defaults.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &RunLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting up to the limiter's max wait.
// It returns ctx.Err() if ctx ends first and ErrTooManyRuns on timeout.
// Every successful Acquire must be paired with exactly one Release.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		l.inc()
		return nil
	default:
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyRuns
	}
}

// TryAcquire takes a slot if one is free and reports whether it did.
func (l *RunLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.inc()
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *RunLimiter) Release() {
	l.mu.Lock()
	l.active--
	if l.active == 0 {
		for _, ch := range l.drained {
			close(ch)
		}
		l.drained = nil
	}
	l.mu.Unlock()

	<-l.slots
}

func (l *RunLimiter) inc() {
	l.mu.Lock()
	l.active++
	l.mu.Unlock()
}

// ActiveCount returns the number of runs currently holding a slot.
func (l *RunLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *RunLimiter) MaxConcurrent() int { return cap(l.slots) }

// Available returns the number of free slots.
func (l *RunLimiter) Available() int { return cap(l.slots) - len(l.slots) }

// WaitForDrain blocks until no run is active or ctx ends.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	if l.active == 0 {
		l.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	l.drained = append(l.drained, ch)
	l.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunLimiterStatus is a snapshot of the limiter for monitoring.
type RunLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *RunLimiter) Status() RunLimiterStatus {
	return RunLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
