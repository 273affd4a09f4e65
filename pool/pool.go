// Package pool implements a work-stealing task executor: N workers, each
// owning a lock-free deque, stealing from siblings when their own queue
// runs dry.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"stealpool/internal/algorithms"
	"stealpool/internal/deque"
	"stealpool/internal/prng"
	"stealpool/internal/sem"
	"stealpool/internal/task"
	"stealpool/internal/trace"
)

// spinBias is how many inner-loop iterations a worker prefers its own
// queue before randomizing its choice of victim.
const spinBias = 100

// Pool is a work-stealing task executor producing results of type R.
// Construct with New; the zero value is not usable.
type Pool[R any] struct {
	cfg *config

	queues []*deque.Deque[*task.Task[R]]
	sems   []*sem.Semaphore
	rngs   []*prng.Source

	pending atomic.Int64
	rotor   atomic.Int64
	stopped atomic.Bool
	closed  atomic.Bool

	g    *errgroup.Group
	done chan struct{}
	once sync.Once
	err  error
}

// New constructs a pool and immediately spawns its workers.
func New[R any](opts ...Option) *Pool[R] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	n := cfg.workers
	p := &Pool[R]{
		cfg:    cfg,
		queues: make([]*deque.Deque[*task.Task[R]], n),
		sems:   make([]*sem.Semaphore, n),
		rngs:   make([]*prng.Source, n),
		done:   make(chan struct{}),
	}

	capacity := cfg.queueCap
	if capacity == 0 {
		capacity = deque.DefaultCapacity
	}

	seed := uint64(time.Now().UnixNano())
	for i := 0; i < n; i++ {
		p.queues[i] = deque.New[*task.Task[R]](capacity)
		p.sems[i] = sem.New()

		rng := prng.NewSeeded(seed)
		for j := 0; j < i; j++ {
			rng.Jump()
		}
		p.rngs[i] = rng
	}

	p.g = new(errgroup.Group)
	for i := 0; i < n; i++ {
		id := i
		p.g.Go(func() error { return p.workerLoop(id) })
	}

	trace.Pool("started with %d workers", n)
	return p
}

// Submit wraps fn in a task, routes it to a worker's queue by round-robin,
// and wakes that worker. Returns a Future the caller uses to retrieve the
// result once the task runs.
func (p *Pool[R]) Submit(fn func() (R, error)) (*task.Future[R], error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	if p.cfg.rateLimiter != nil {
		if err := p.cfg.rateLimiter.Wait(context.Background()); err != nil {
			return nil, err
		}
	}

	wrapped := p.wrapWithPolicy(fn)
	tk, fut := task.New(wrapped)

	slot := int(uint64(p.rotor.Add(1)-1) % uint64(len(p.queues)))
	p.pending.Add(1)
	p.queues[slot].Push(tk)
	p.sems[slot].Signal()

	return fut, nil
}

func (p *Pool[R]) wrapWithPolicy(fn func() (R, error)) func() (R, error) {
	wrapped := fn
	if p.cfg.maxAttempts > 1 {
		wrapped = withRetry(wrapped, p.cfg)
	}

	before, after := p.cfg.beforeTaskStart, p.cfg.onTaskEnd
	if before == nil && after == nil {
		return wrapped
	}
	inner := wrapped
	return func() (R, error) {
		if before != nil {
			before()
		}
		v, err := inner()
		if after != nil {
			after(err)
		}
		return v, err
	}
}

func withRetry[R any](fn func() (R, error), cfg *config) func() (R, error) {
	return func() (R, error) {
		strategy := algorithms.NewBackoffStrategy(cfg.backoffType, cfg.initialDelay, cfg.backoffMax, cfg.jitterFactor)
		var (
			value R
			err   error
		)
		for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
			value, err = fn()
			if err == nil {
				return value, nil
			}
			if attempt == cfg.maxAttempts-1 {
				break
			}
			if delay := strategy.NextDelay(attempt, err); delay > 0 {
				time.Sleep(delay)
			}
		}
		return value, err
	}
}

// workerLoop is the outer park/resume loop: wait on the worker's
// semaphore, drain, then check the stop signal.
func (p *Pool[R]) workerLoop(id int) error {
	trace.Worker(id, "entering park/resume loop")
	for {
		if err := p.sems[id].Wait(context.Background()); err != nil {
			return err
		}

		p.drain(id)

		if p.stopped.Load() {
			trace.Worker(id, "observed stop, terminating")
			return nil
		}
	}
}

// drain is the inner spin-then-steal loop: the first spinBias iterations
// (or any iteration with a non-empty local queue) target the worker's own
// deque; afterward the victim is chosen at random. Exits once the pool's
// pending counter reaches zero.
func (p *Pool[R]) drain(id int) {
	rng := p.rngs[id]
	n := len(p.queues)
	spin := 0

	for {
		victim := id
		if spin >= spinBias && p.queues[id].Len() == 0 {
			victim = rng.Intn(n)
		}
		spin++

		if tk, ok := p.queues[victim].Steal(); ok {
			p.pending.Add(-1)
			trace.Worker(id, "stole from %d", victim)
			tk.Run()
		}

		if p.pending.Load() == 0 {
			return
		}
	}
}

// Shutdown requests every worker stop, wakes any parked worker, and waits
// for all of them to exit. Tasks already stolen before shutdown run to
// completion; tasks still queued and unstolen when workers exit are
// resolved with task.ErrCancelled. Returns ctx.Err() if ctx is done before
// every worker has exited; the workers keep running in the background in
// that case.
func (p *Pool[R]) Shutdown(ctx context.Context) error {
	p.closed.Store(true)

	p.once.Do(func() {
		p.stopped.Store(true)
		for _, s := range p.sems {
			s.Signal()
		}
		go func() {
			p.err = p.g.Wait()
			close(p.done)
		}()
	})

	select {
	case <-p.done:
		p.cancelRemaining()
		trace.Pool("shutdown complete")
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cancelRemaining drains every worker's deque via Pop, resolving each
// leftover task's future with ErrCancelled. Only safe to call once every
// worker goroutine has exited, which Shutdown guarantees before calling it.
func (p *Pool[R]) cancelRemaining() {
	for _, q := range p.queues {
		for {
			tk, ok := q.Pop()
			if !ok {
				break
			}
			tk.Cancel()
		}
	}
}

// Pending returns the pool's current pending-task count. Advisory.
func (p *Pool[R]) Pending() int64 {
	return p.pending.Load()
}

// Workers returns the number of worker goroutines the pool was built with.
func (p *Pool[R]) Workers() int {
	return len(p.queues)
}
