package config

import "time"

// DispatchConfig tunes the newsletter send pipeline.
type DispatchConfig struct {
	BatchSize          int
	Concurrency        int
	SubGroupDelay      time.Duration
	BatchAttempts      int
	BatchRetryDelay    time.Duration
	UnsubscribeBaseURL string
	UnsubscribeSecret  string
	LedgerEnabled      bool
	ArchiveEnabled     bool
	ProgressTTL        time.Duration
}

func loadDispatchConfig() DispatchConfig {
	return DispatchConfig{
		BatchSize:          getEnvInt("NEWSLETTER_BATCH_SIZE", 50),
		Concurrency:        getEnvInt("NEWSLETTER_CONCURRENCY", 5),
		SubGroupDelay:      getEnvDuration("NEWSLETTER_SUBGROUP_DELAY", time.Second),
		BatchAttempts:      getEnvInt("NEWSLETTER_BATCH_ATTEMPTS", 3),
		BatchRetryDelay:    getEnvDuration("NEWSLETTER_BATCH_RETRY_DELAY", 2*time.Second),
		UnsubscribeBaseURL: getEnv("NEWSLETTER_UNSUBSCRIBE_BASE_URL", "http://localhost:3000/unsubscribe"),
		UnsubscribeSecret:  getEnv("NEWSLETTER_UNSUBSCRIBE_SECRET", ""),
		LedgerEnabled:      getEnvBool("NEWSLETTER_LEDGER_ENABLED", true),
		ArchiveEnabled:     getEnvBool("NEWSLETTER_ARCHIVE_ENABLED", true),
		ProgressTTL:        getEnvDuration("NEWSLETTER_PROGRESS_TTL", 7*24*time.Hour),
	}
}

func (c DispatchConfig) validate() error {
	switch {
	case c.BatchSize < 1:
		return configErrors.New(ErrInvalidConfig).WithDetail("field", "NEWSLETTER_BATCH_SIZE")
	case c.Concurrency < 1:
		return configErrors.New(ErrInvalidConfig).WithDetail("field", "NEWSLETTER_CONCURRENCY")
	case c.BatchAttempts < 1:
		return configErrors.New(ErrInvalidConfig).WithDetail("field", "NEWSLETTER_BATCH_ATTEMPTS")
	case c.SubGroupDelay < 0:
		return configErrors.New(ErrInvalidConfig).WithDetail("field", "NEWSLETTER_SUBGROUP_DELAY")
	case c.UnsubscribeBaseURL == "":
		return configErrors.New(ErrInvalidConfig).WithDetail("field", "NEWSLETTER_UNSUBSCRIBE_BASE_URL")
	}
	return nil
}
