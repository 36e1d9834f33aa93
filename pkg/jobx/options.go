package jobx

import (
	"math"
	"time"
)

// RetryPolicy controls how failed jobs are rescheduled.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy returns 5 attempts starting at 30s, doubling, capped at 10m.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 30 * time.Second,
		MaxDelay:     10 * time.Minute,
		Multiplier:   2,
	}
}

// Delay returns the wait before the next run after the given failed attempt
// (1-based): min(MaxDelay, InitialDelay * Multiplier^(attempt-1)).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// WorkerOptions configures the job processing client.
type WorkerOptions struct {
	Queues          []string
	Concurrency     int
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
	DequeueTimeout  time.Duration
	Retry           RetryPolicy
}

func defaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		Queues:          []string{"default"},
		Concurrency:     4,
		PollInterval:    time.Second,
		ShutdownTimeout: 30 * time.Second,
		DequeueTimeout:  5 * time.Second,
		Retry:           DefaultRetryPolicy(),
	}
}

// WorkerOption is a functional option for configuring the client.
type WorkerOption func(*WorkerOptions)

// WithQueues sets the queues to process. The first one is the default for Enqueue.
func WithQueues(queues ...string) WorkerOption {
	return func(o *WorkerOptions) {
		if len(queues) > 0 {
			o.Queues = queues
		}
	}
}

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) WorkerOption {
	return func(o *WorkerOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithPollInterval sets the interval between dequeue attempts when idle.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		o.PollInterval = d
	}
}

// WithShutdownTimeout sets the maximum time to wait for workers to finish on shutdown.
func WithShutdownTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		o.ShutdownTimeout = d
	}
}

// WithDequeueTimeout sets the timeout passed to the blocking dequeue call.
func WithDequeueTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		o.DequeueTimeout = d
	}
}

// WithRetryPolicy sets the retry policy for failed jobs.
func WithRetryPolicy(p RetryPolicy) WorkerOption {
	return func(o *WorkerOptions) {
		o.Retry = p
	}
}
