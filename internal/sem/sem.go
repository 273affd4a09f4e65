// Package sem provides the counting semaphore collaborator each pool
// worker parks on between steal attempts, plus a semaphore-backed mutex
// ported from the same source material as a standalone utility.
package sem

import (
	"context"
	"sync"
	"sync/atomic"
)

// Semaphore is a counting semaphore: Wait blocks until a permit is
// available (or ctx is done), Signal releases one permit. Workers call
// Wait to park when their local deque and every sibling's deque is
// empty, and Signal wakes exactly one parked worker per submitted task.
//
// Signal must never block or fail regardless of how far it outruns Wait
// (a submitter routinely signals a worker's semaphore before that worker
// has reached its first Wait). golang.org/x/sync/semaphore.Weighted
// can't model this: it tracks permits already acquired and panics if
// Release runs ahead of Acquire, which is exactly the ordering this
// collaborator must tolerate. So Semaphore is its own small type built
// directly on a mutex and a FIFO of waiting goroutines, the same way the
// teacher builds its own primitives (mpmcQueue, wsDeque) rather than
// reaching for a library that doesn't fit the access pattern.
type Semaphore struct {
	mu      sync.Mutex
	permits int
	waiters []chan struct{}
}

// New constructs a Semaphore starting with zero available permits.
func New() *Semaphore {
	return &Semaphore{}
}

// Wait blocks until a permit is available or ctx is done.
func (s *Semaphore) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.permits > 0 {
		s.permits--
		s.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	s.waiters = append(s.waiters, ready)
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		select {
		case <-ready:
			// A Signal already claimed this waiter concurrently with the
			// context expiring; honor the permit rather than drop it.
			s.mu.Unlock()
			return nil
		default:
			s.removeWaiter(ready)
			s.mu.Unlock()
			return ctx.Err()
		}
	}
}

func (s *Semaphore) removeWaiter(target chan struct{}) {
	for i, w := range s.waiters {
		if w == target {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

// Signal releases one permit, waking the longest-waiting Wait if any.
// Never blocks, never panics, regardless of ordering against Wait.
func (s *Semaphore) Signal() {
	s.mu.Lock()
	if len(s.waiters) > 0 {
		ready := s.waiters[0]
		s.waiters = s.waiters[1:]
		s.mu.Unlock()
		close(ready)
		return
	}
	s.permits++
	s.mu.Unlock()
}

// TryWait acquires a permit without blocking. Reports whether it
// succeeded.
func (s *Semaphore) TryWait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permits > 0 {
		s.permits--
		return true
	}
	return false
}

// Mutex is a semaphore-backed mutual-exclusion lock using a contention
// counter: the fast path (uncontended lock/unlock) never touches the
// semaphore at all. Ported from the same source material's mutex, kept
// here as a standalone utility alongside Semaphore rather than wired into
// the pool, which has no shared mutable state on its hot path.
type Mutex struct {
	contention atomic.Int64
	sem        *Semaphore
}

// NewMutex constructs an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{sem: New()}
}

// Lock blocks until the mutex is held by the calling goroutine.
func (m *Mutex) Lock() {
	if m.contention.Add(1) > 1 {
		// Someone else already holds it; wait for them to signal.
		_ = m.sem.Wait(context.Background())
	}
}

// Unlock releases the mutex. Must only be called by the holder.
func (m *Mutex) Unlock() {
	if m.contention.Add(-1) > 0 {
		m.sem.Signal()
	}
}
