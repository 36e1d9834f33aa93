package config

import "time"

// JobxConfig configures the background job queue.
type JobxConfig struct {
	Concurrency     int
	Queues          []string
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
	DequeueTimeout  time.Duration

	MaxAttempts       int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	RetryMultiplier   float64
}

func loadJobxConfig() JobxConfig {
	return JobxConfig{
		Concurrency:       getEnvInt("JOBX_CONCURRENCY", 4),
		Queues:            getEnvStringSlice("JOBX_QUEUES", []string{"newsletters"}),
		PollInterval:      getEnvDuration("JOBX_POLL_INTERVAL", time.Second),
		ShutdownTimeout:   getEnvDuration("JOBX_SHUTDOWN_TIMEOUT", 30*time.Second),
		DequeueTimeout:    getEnvDuration("JOBX_DEQUEUE_TIMEOUT", 5*time.Second),
		MaxAttempts:       getEnvInt("JOBX_MAX_ATTEMPTS", 5),
		RetryInitialDelay: getEnvDuration("JOBX_RETRY_INITIAL_DELAY", 30*time.Second),
		RetryMaxDelay:     getEnvDuration("JOBX_RETRY_MAX_DELAY", 10*time.Minute),
		RetryMultiplier:   getEnvFloat("JOBX_RETRY_MULTIPLIER", 2),
	}
}

func (c JobxConfig) validate() error {
	if c.Concurrency < 1 {
		return configErrors.New(ErrInvalidConfig).WithDetail("field", "JOBX_CONCURRENCY")
	}
	if c.MaxAttempts < 1 {
		return configErrors.New(ErrInvalidConfig).WithDetail("field", "JOBX_MAX_ATTEMPTS")
	}
	if c.RetryMultiplier < 1 {
		return configErrors.New(ErrInvalidConfig).WithDetail("field", "JOBX_RETRY_MULTIPLIER")
	}
	return nil
}
