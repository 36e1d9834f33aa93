// Package notifxpostmark sends email through the Postmark REST API.
package notifxpostmark

import (
	"context"
	"sort"
	"strings"

	"github.com/Abraxas-365/mailflow/pkg/notifx"
	"github.com/Abraxas-365/mailflow/pkg/notifx/notifxhttp"
)

const (
	Name     = "postmark"
	Endpoint = "https://api.postmarkapp.com/email"
)

type payload struct {
	From          string            `json:"From"`
	To            string            `json:"To"`
	Cc            string            `json:"Cc,omitempty"`
	Bcc           string            `json:"Bcc,omitempty"`
	ReplyTo       string            `json:"ReplyTo,omitempty"`
	Subject       string            `json:"Subject"`
	HtmlBody      string            `json:"HtmlBody,omitempty"`
	TextBody      string            `json:"TextBody,omitempty"`
	Tag           string            `json:"Tag,omitempty"`
	Metadata      map[string]string `json:"Metadata,omitempty"`
	MessageStream string            `json:"MessageStream,omitempty"`
}

type response struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
	MessageID string `json:"MessageID"`
}

// Provider implements notifx.Provider.
type Provider struct {
	http   *notifxhttp.Client
	stream string
}

// New returns an error when serverToken is empty. stream selects the
// Postmark message stream (e.g. "broadcast").
func New(serverToken, stream string, opts ...notifxhttp.Option) (*Provider, error) {
	if serverToken == "" {
		return nil, notifx.MissingCredentials(Name, "POSTMARK_SERVER_TOKEN")
	}
	return &Provider{
		http:   notifxhttp.New(Endpoint, map[string]string{"X-Postmark-Server-Token": serverToken}, opts...),
		stream: stream,
	}, nil
}

func (p *Provider) Name() string { return Name }

// SendEmail posts one message. Postmark takes a single Tag, so the first tag
// value by key order is used; all tags and metadata go into Metadata.
func (p *Provider) SendEmail(ctx context.Context, msg notifx.EmailMessage, opts ...notifx.Option) (string, error) {
	so := notifx.ApplyOptions(opts)

	body := payload{
		From:          msg.From,
		To:            strings.Join(msg.To, ","),
		Cc:            strings.Join(msg.CC, ","),
		Bcc:           strings.Join(msg.BCC, ","),
		ReplyTo:       msg.ReplyTo,
		Subject:       msg.Subject,
		HtmlBody:      msg.HTMLBody,
		TextBody:      msg.TextBody,
		MessageStream: p.stream,
	}
	if so.ConfigID != "" {
		body.MessageStream = so.ConfigID
	}

	if len(so.Tags) > 0 {
		keys := make([]string, 0, len(so.Tags))
		for k := range so.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		body.Tag = so.Tags[keys[0]]
	}
	if n := len(so.Tags) + len(so.Metadata); n > 0 {
		body.Metadata = make(map[string]string, n)
		for k, v := range so.Tags {
			body.Metadata[k] = v
		}
		for k, v := range so.Metadata {
			body.Metadata[k] = v
		}
	}

	var out response
	if err := p.http.PostJSON(ctx, body, &out); err != nil {
		return "", notifx.SendFailed(Name, err)
	}
	if out.ErrorCode != 0 {
		return "", notifx.SendFailed(Name, &notifxhttp.StatusError{StatusCode: 200, Body: out.Message})
	}
	return out.MessageID, nil
}
