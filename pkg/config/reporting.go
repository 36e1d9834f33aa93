package config

import "time"

// ReportingConfig points at the web service that owns newsletter status.
// An empty BaseURL disables outbound reporting.
type ReportingConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

func loadReportingConfig() ReportingConfig {
	return ReportingConfig{
		BaseURL:  getEnv("REPORTING_BASE_URL", ""),
		APIToken: getEnv("REPORTING_API_TOKEN", ""),
		Timeout:  getEnvDuration("REPORTING_TIMEOUT", 4*time.Second),
	}
}
