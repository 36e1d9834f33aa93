package notifx

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Abraxas-365/mailflow/pkg/logx"
)

// Provider is one external email service.
type Provider interface {
	Name() string
	SendEmail(ctx context.Context, msg EmailMessage, opts ...Option) (messageID string, err error)
}

// Sender is what the send pipeline depends on.
type Sender interface {
	Send(ctx context.Context, msg EmailMessage, opts ...Option) SendResult
}

// Client fronts a primary provider with at most one fallback.
type Client struct {
	primary     Provider
	fallback    Provider
	providers   map[string]Provider
	defaultFrom string
}

// ClientOption configures a Client.
type ClientOption func(*Client) error

// WithFallback sets the provider tried once when the primary fails.
func WithFallback(p Provider) ClientOption {
	return func(c *Client) error {
		if p == nil {
			return nil
		}
		c.fallback = p
		return c.register(p)
	}
}

// WithExtraProvider registers a provider that is only used through WithProvider.
func WithExtraProvider(p Provider) ClientOption {
	return func(c *Client) error {
		return c.register(p)
	}
}

// WithDefaultFrom sets the sender used when a message has no From.
func WithDefaultFrom(from string) ClientOption {
	return func(c *Client) error {
		c.defaultFrom = from
		return nil
	}
}

// NewClient creates a client around the primary provider.
func NewClient(primary Provider, opts ...ClientOption) (*Client, error) {
	if primary == nil {
		return nil, notifxErrors.New(ErrNoProvider)
	}
	c := &Client{primary: primary, providers: make(map[string]Provider)}
	if err := c.register(primary); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) register(p Provider) error {
	if _, exists := c.providers[p.Name()]; exists {
		return notifxErrors.New(ErrDuplicateProvider).WithDetail("provider", p.Name())
	}
	c.providers[p.Name()] = p
	return nil
}

// Primary returns the name of the primary provider.
func (c *Client) Primary() string { return c.primary.Name() }

// Fallback returns the name of the fallback provider, or "".
func (c *Client) Fallback() string {
	if c.fallback == nil {
		return ""
	}
	return c.fallback.Name()
}

// Providers returns the names usable with WithProvider, sorted.
func (c *Client) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Send delivers msg and never returns an error: failures are reported in
// the result. When the primary fails the fallback is tried exactly once.
func (c *Client) Send(ctx context.Context, msg EmailMessage, opts ...Option) SendResult {
	if msg.From == "" {
		msg.From = c.defaultFrom
	}
	if err := validate(msg); err != nil {
		return SendResult{Error: err.Error(), Provider: c.primary.Name()}
	}

	so := ApplyOptions(opts)
	if so.Provider != "" {
		p, ok := c.providers[so.Provider]
		if !ok {
			return SendResult{Error: UnknownProvider(so.Provider).Error(), Provider: so.Provider}
		}
		return attempt(ctx, p, msg, opts)
	}

	res := attempt(ctx, c.primary, msg, opts)
	if res.Success || c.fallback == nil {
		return res
	}

	logx.WithContext(ctx).
		WithFields(logx.Fields{"provider": c.primary.Name(), "fallback": c.fallback.Name()}).
		Warnf("notifx: primary provider failed, trying fallback: %s", res.Error)

	fb := attempt(ctx, c.fallback, msg, opts)
	if fb.Success {
		return fb
	}
	fb.Error = fmt.Sprintf("primary (%s): %s; fallback (%s): %s",
		c.primary.Name(), res.Error, c.fallback.Name(), fb.Error)
	return fb
}

func attempt(ctx context.Context, p Provider, msg EmailMessage, opts []Option) (res SendResult) {
	res.Provider = p.Name()
	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.MessageID = ""
			res.Error = fmt.Sprintf("provider panic: %v", r)
		}
	}()

	id, err := p.SendEmail(ctx, msg, opts...)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.MessageID = id
	return res
}

func invalid(reason string) error {
	return notifxErrors.NewWithMessage(ErrInvalidMessage, "invalid email message: "+reason).
		WithDetail("reason", reason)
}

func validate(msg EmailMessage) error {
	switch {
	case len(msg.To) == 0:
		return invalid("no recipients")
	case strings.TrimSpace(msg.Subject) == "":
		return invalid("empty subject")
	case msg.From == "":
		return invalid("no sender")
	case msg.HTMLBody == "" && msg.TextBody == "":
		return invalid("empty body")
	}
	return nil
}
