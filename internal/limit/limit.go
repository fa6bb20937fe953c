// Package limit provides the bounded-concurrency primitive shared by the
// collection layer. Each audit run owns its own Limiter so two concurrent
// runs never share slots.
package limit

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// MaxConcurrent is the hard cap on limiter width.
const MaxConcurrent = 6

// Limiter admits at most N operations at a time, FIFO.
type Limiter struct {
	sem *semaphore.Weighted
}

// New returns a limiter of width n, capped at MaxConcurrent. Non-positive
// n takes the cap.
func New(n int) *Limiter {
	if n <= 0 || n > MaxConcurrent {
		n = MaxConcurrent
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n))}
}

// Do runs fn once a slot is free. The slot is released when fn returns,
// including on panic unwinding from fn's own recover boundary upstream.
func (l *Limiter) Do(ctx context.Context, fn func()) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	fn()
	return nil
}

// Acquire blocks for a slot; callers must Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release frees a slot taken with Acquire.
func (l *Limiter) Release() {
	l.sem.Release(1)
}
