package pool

import (
	"runtime"
	"time"

	"golang.org/x/time/rate"

	"stealpool/internal/algorithms"
)

// Option is a functional option for configuring a Pool.
type Option func(*config)

type config struct {
	workers      int
	queueCap     int64
	rateLimiter  *rate.Limiter
	maxAttempts  int
	initialDelay time.Duration
	backoffType  algorithms.BackoffType
	backoffMax   time.Duration
	jitterFactor float64

	beforeTaskStart func()
	onTaskEnd       func(err error)
}

func defaultConfig() *config {
	return &config{
		workers:      runtime.GOMAXPROCS(0),
		queueCap:     0, // resolved to DefaultCapacity per worker deque
		maxAttempts:  1,
		backoffType:  algorithms.BackoffExponential,
		backoffMax:   5 * time.Second,
		jitterFactor: 0.1,
	}
}

// WithWorkers sets the number of worker goroutines, and so the number of
// deque/semaphore pairs. Defaults to runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueueCapacity sets each worker's initial deque capacity, which must
// be a power of two. Defaults to deque.DefaultCapacity.
func WithQueueCapacity(capacity int64) Option {
	return func(c *config) {
		if capacity > 0 {
			c.queueCap = capacity
		}
	}
}

// WithRateLimit throttles Submit to at most tasksPerSecond, with the given
// burst allowance. Purely additive: it never affects worker scheduling or
// stealing, only how fast new tasks are admitted.
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(c *config) {
		if tasksPerSecond > 0 && burst > 0 {
			c.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithRetryPolicy runs a failing task up to maxAttempts times in total (the
// first run plus up to maxAttempts-1 retries), backing off between attempts
// starting at initialDelay. No retries are performed unless this option is
// given with maxAttempts above 1.
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(c *config) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if initialDelay > 0 {
			c.initialDelay = initialDelay
		}
	}
}

// WithBackoff selects the backoff algorithm used between retries.
func WithBackoff(kind algorithms.BackoffType, maxDelay time.Duration, jitterFactor float64) Option {
	return func(c *config) {
		c.backoffType = kind
		if maxDelay > 0 {
			c.backoffMax = maxDelay
		}
		c.jitterFactor = jitterFactor
	}
}

// WithBeforeTaskStart registers a hook invoked immediately before a
// worker runs each task.
func WithBeforeTaskStart(fn func()) Option {
	return func(c *config) { c.beforeTaskStart = fn }
}

// WithOnTaskEnd registers a hook invoked immediately after each task
// completes, successfully or not.
func WithOnTaskEnd(fn func(err error)) Option {
	return func(c *config) { c.onTaskEnd = fn }
}
