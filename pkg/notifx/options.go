package notifx

// SendOptions holds optional configuration for a send operation.
type SendOptions struct {
	Tags     map[string]string
	Metadata map[string]string
	ConfigID string
	Provider string
}

// Option is a functional option for send operations.
type Option func(*SendOptions)

// WithTags adds provider tags (SES message tags, Resend tags, Postmark tag).
func WithTags(tags map[string]string) Option {
	return func(o *SendOptions) {
		o.Tags = tags
	}
}

// WithMetadata attaches correlation metadata carried back in provider webhooks.
func WithMetadata(md map[string]string) Option {
	return func(o *SendOptions) {
		o.Metadata = md
	}
}

// WithConfigID sets a provider-specific configuration set identifier.
func WithConfigID(id string) Option {
	return func(o *SendOptions) {
		o.ConfigID = id
	}
}

// WithProvider pins a send to a named provider, bypassing primary/fallback.
func WithProvider(name string) Option {
	return func(o *SendOptions) {
		o.Provider = name
	}
}

// ApplyOptions folds opts into SendOptions. Providers call it.
func ApplyOptions(opts []Option) SendOptions {
	var so SendOptions
	for _, o := range opts {
		o(&so)
	}
	return so
}
