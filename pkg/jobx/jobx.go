package jobx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/kernel"
	"github.com/Abraxas-365/mailflow/pkg/logx"
)

// HandlerFunc processes a job. Return nil on success, an error to trigger
// retry, or Permanent(err) to fail without retrying.
type HandlerFunc func(ctx context.Context, job *JobInfo) error

// JobEnqueuer enqueues jobs for processing.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job Job) (string, error)
	EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) (string, error)
}

// JobStatusReader reads job status.
type JobStatusReader interface {
	GetJob(ctx context.Context, jobID string) (*JobInfo, error)
}

// JobProcessor provides backend operations for the worker loop.
type JobProcessor interface {
	Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*JobInfo, error)
	Complete(ctx context.Context, jobID string, result []byte) error
	// Fail records errMsg and reports whether the job may run again.
	Fail(ctx context.Context, jobID string, errMsg string, permanent bool) (retry bool, err error)
	Retry(ctx context.Context, jobID string, delay time.Duration) error
	PromoteScheduled(ctx context.Context, queues []string) error
}

// Queue combines all backend operations.
type Queue interface {
	JobEnqueuer
	JobStatusReader
	JobProcessor
}

// Client is the main entry point for enqueuing and processing jobs.
type Client struct {
	queue    Queue
	opts     WorkerOptions
	handlers map[string]HandlerFunc
	mu       sync.RWMutex
	running  bool
}

// NewClient creates a new job processing client.
func NewClient(queue Queue, options ...WorkerOption) *Client {
	opts := defaultWorkerOptions()
	for _, o := range options {
		o(&opts)
	}
	return &Client{
		queue:    queue,
		opts:     opts,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register adds a handler for a given job type.
func (c *Client) Register(jobType string, handler HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[jobType] = handler
}

func (c *Client) withDefaults(job Job) (Job, error) {
	if job.Type == "" {
		return job, jobxErrors.New(ErrInvalidJob).WithDetail("reason", "empty type")
	}
	if job.Queue == "" {
		job.Queue = c.opts.Queues[0]
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = c.opts.Retry.MaxAttempts
	}
	return job, nil
}

// Enqueue enqueues a job for immediate processing.
func (c *Client) Enqueue(ctx context.Context, job Job) (string, error) {
	job, err := c.withDefaults(job)
	if err != nil {
		return "", err
	}
	return c.queue.Enqueue(ctx, job)
}

// EnqueueDelayed enqueues a job with a delay before it becomes available.
func (c *Client) EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) (string, error) {
	job, err := c.withDefaults(job)
	if err != nil {
		return "", err
	}
	return c.queue.EnqueueDelayed(ctx, job, delay)
}

// GetJob returns the current state of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*JobInfo, error) {
	return c.queue.GetJob(ctx, jobID)
}

// Start begins processing jobs. It blocks until ctx is cancelled.
// Handlers see ctx cancellation and are expected to stop at their next
// checkpoint; the returned error then decides whether the job is retried.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return jobxErrors.New(ErrAlreadyRunning)
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	logx.Infof("jobx: starting %d workers on queues %v", c.opts.Concurrency, c.opts.Queues)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.schedulerLoop(ctx)
	}()

	for i := 0; i < c.opts.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.workerLoop(ctx, id)
		}(i)
	}

	<-ctx.Done()
	logx.Info("jobx: shutting down workers...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logx.Info("jobx: all workers stopped")
	case <-time.After(c.opts.ShutdownTimeout):
		logx.Warn("jobx: shutdown timed out, some jobs may not have completed")
	}

	return nil
}

func (c *Client) schedulerLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.queue.PromoteScheduled(ctx, c.opts.Queues); err != nil {
				if ctx.Err() != nil {
					return
				}
				logx.WithError(err).Warn("jobx: failed to promote scheduled jobs")
			}
		}
	}
}

func (c *Client) workerLoop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := c.queue.Dequeue(ctx, c.opts.Queues, c.opts.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logx.WithError(err).Warnf("jobx: worker %d dequeue error", id)
			time.Sleep(c.opts.PollInterval)
			continue
		}
		if job == nil {
			continue
		}

		c.processJob(ctx, job)
	}
}

// runHandler calls handler and converts a panic into an error.
func runHandler(ctx context.Context, handler HandlerFunc, job *JobInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = jobxErrors.NewWithCause(ErrHandlerPanic, fmt.Errorf("%v", r)).
				WithDetail("job_id", job.ID)
		}
	}()
	return handler(ctx, job)
}

func (c *Client) processJob(ctx context.Context, job *JobInfo) {
	ctx = kernel.WithJobID(ctx, job.ID)
	log := logx.WithContext(ctx).WithFields(logx.Fields{"job_type": job.Type, "attempt": job.Attempts})

	// Bookkeeping must land even when shutdown cancelled the handler.
	bg := context.WithoutCancel(ctx)

	c.mu.RLock()
	handler, ok := c.handlers[job.Type]
	c.mu.RUnlock()

	if !ok {
		log.Warn("jobx: no handler for job type")
		if _, err := c.queue.Fail(bg, job.ID, "no handler registered for job type", true); err != nil {
			log.WithError(err).Error("jobx: failed to mark job as failed")
		}
		return
	}

	err := runHandler(ctx, handler, job)
	if err == nil {
		if err := c.queue.Complete(bg, job.ID, nil); err != nil {
			log.WithError(err).Error("jobx: failed to complete job")
		}
		return
	}

	permanent := IsPermanent(err)
	shouldRetry, failErr := c.queue.Fail(bg, job.ID, err.Error(), permanent)
	if failErr != nil {
		log.WithError(failErr).Error("jobx: failed to mark job as failed")
		return
	}

	if !shouldRetry {
		log.WithError(err).Error("jobx: job failed permanently")
		return
	}

	delay := c.opts.Retry.Delay(job.Attempts)
	log.WithError(err).WithField("retry_in", delay.String()).Warn("jobx: job failed, scheduling retry")
	if retryErr := c.queue.Retry(bg, job.ID, delay); retryErr != nil {
		log.WithError(retryErr).Error("jobx: failed to retry job")
	}
}
