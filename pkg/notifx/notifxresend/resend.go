// Package notifxresend sends email through the Resend REST API.
package notifxresend

import (
	"context"
	"regexp"
	"sort"

	"github.com/Abraxas-365/mailflow/pkg/notifx"
	"github.com/Abraxas-365/mailflow/pkg/notifx/notifxhttp"
)

const (
	Name     = "resend"
	Endpoint = "https://api.resend.com/emails"
)

// Resend tag names and values allow ASCII letters, digits, '_' and '-'.
var tagUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]`)

type tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type payload struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	CC      []string          `json:"cc,omitempty"`
	BCC     []string          `json:"bcc,omitempty"`
	ReplyTo string            `json:"reply_to,omitempty"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html,omitempty"`
	Text    string            `json:"text,omitempty"`
	Tags    []tag             `json:"tags,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

type response struct {
	ID string `json:"id"`
}

// Provider implements notifx.Provider.
type Provider struct {
	http *notifxhttp.Client
}

// New returns an error when apiKey is empty.
func New(apiKey string, opts ...notifxhttp.Option) (*Provider, error) {
	if apiKey == "" {
		return nil, notifx.MissingCredentials(Name, "RESEND_API_KEY")
	}
	return &Provider{
		http: notifxhttp.New(Endpoint, map[string]string{"Authorization": "Bearer " + apiKey}, opts...),
	}, nil
}

func (p *Provider) Name() string { return Name }

// SendEmail posts one message. Tags and metadata are both sent as Resend
// tags; metadata is also mirrored into X-Metadata-* headers.
func (p *Provider) SendEmail(ctx context.Context, msg notifx.EmailMessage, opts ...notifx.Option) (string, error) {
	so := notifx.ApplyOptions(opts)

	body := payload{
		From:    msg.From,
		To:      msg.To,
		CC:      msg.CC,
		BCC:     msg.BCC,
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		HTML:    msg.HTMLBody,
		Text:    msg.TextBody,
		Tags:    append(tags(so.Tags), tags(so.Metadata)...),
	}
	if len(so.Metadata) > 0 {
		body.Headers = make(map[string]string, len(so.Metadata))
		for k, v := range so.Metadata {
			body.Headers["X-Metadata-"+k] = v
		}
	}

	var out response
	if err := p.http.PostJSON(ctx, body, &out); err != nil {
		return "", notifx.SendFailed(Name, err)
	}
	return out.ID, nil
}

func tags(m map[string]string) []tag {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, tag{
			Name:  tagUnsafe.ReplaceAllString(k, "_"),
			Value: tagUnsafe.ReplaceAllString(m[k], "_"),
		})
	}
	return out
}
