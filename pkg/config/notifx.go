package config

// NotifxConfig configures the email transport.
type NotifxConfig struct {
	// Provider is the primary provider: ses, sesv2, resend, postmark or console
	Provider string
	// FallbackProvider is tried once when the primary fails; empty disables it
	FallbackProvider string
	// ExtraProviders are registered only for per-request selection
	ExtraProviders []string

	FromAddress string
	FromName    string

	AWSRegion           string
	SESConfigurationSet string

	ResendAPIKey string

	PostmarkServerToken   string
	PostmarkMessageStream string
}

func loadNotifxConfig() NotifxConfig {
	return NotifxConfig{
		Provider:              getEnv("NOTIFX_PROVIDER", "console"),
		FallbackProvider:      getEnv("NOTIFX_FALLBACK_PROVIDER", ""),
		ExtraProviders:        getEnvStringSlice("NOTIFX_EXTRA_PROVIDERS", nil),
		FromAddress:           getEnv("NOTIFX_FROM_ADDRESS", getEnv("EMAIL_FROM_ADDRESS", "newsletter@mailflow.dev")),
		FromName:              getEnv("NOTIFX_FROM_NAME", getEnv("EMAIL_FROM_NAME", "Mailflow")),
		AWSRegion:             getEnv("NOTIFX_AWS_REGION", getEnv("AWS_REGION", "us-east-1")),
		SESConfigurationSet:   getEnv("SES_CONFIGURATION_SET", ""),
		ResendAPIKey:          getEnv("RESEND_API_KEY", ""),
		PostmarkServerToken:   getEnv("POSTMARK_SERVER_TOKEN", ""),
		PostmarkMessageStream: getEnv("POSTMARK_MESSAGE_STREAM", "broadcast"),
	}
}
