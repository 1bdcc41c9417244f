package dispatch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/microwrap/microwrap/internal/model"
)

// Scheduler owns the admission slots for running invocations. Waiters queue
// on the semaphore, which hands slots out in strict arrival order, so no
// submission ever overtakes an earlier one. The queue itself has no bound:
// under sustained overload callers pile up and wait longer, they are never
// rejected.
type Scheduler struct {
	sem     *semaphore.Weighted // nil when unbounded
	running atomic.Int64
	waiting atomic.Int64
}

// NewScheduler creates a scheduler admitting at most limit concurrent
// invocations, or every invocation immediately when limit is
// model.Unbounded.
func NewScheduler(limit int64) *Scheduler {
	s := &Scheduler{}
	if limit != model.Unbounded {
		s.sem = semaphore.NewWeighted(limit)
	}
	return s
}

// Acquire blocks until an admission slot is free or ctx is done. On success
// the invocation counts as running until Release.
func (s *Scheduler) Acquire(ctx context.Context) error {
	if s.sem != nil {
		s.waiting.Add(1)
		err := s.sem.Acquire(ctx, 1)
		s.waiting.Add(-1)
		if err != nil {
			return err
		}
	}
	s.running.Add(1)
	return nil
}

// Release frees the slot taken by Acquire, waking the longest waiting
// submission if any.
func (s *Scheduler) Release() {
	s.running.Add(-1)
	if s.sem != nil {
		s.sem.Release(1)
	}
}

// Running reports how many invocations hold a slot right now.
func (s *Scheduler) Running() int64 {
	return s.running.Load()
}

// Waiting reports how many submissions are queued for a slot.
func (s *Scheduler) Waiting() int64 {
	return s.waiting.Load()
}
