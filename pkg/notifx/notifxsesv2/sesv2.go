// Package notifxsesv2 sends email through the SES v2 API.
package notifxsesv2

import (
	"context"

	"github.com/Abraxas-365/mailflow/pkg/notifx"
	"github.com/Abraxas-365/mailflow/pkg/notifx/notifxses"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const Name = "sesv2"

// API is the subset of *sesv2.Client used here.
type API interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Provider implements notifx.Provider.
type Provider struct {
	client    API
	configSet string
}

func New(client API, configSet string) (*Provider, error) {
	if client == nil {
		return nil, notifx.MissingCredentials(Name, "AWS credentials")
	}
	return &Provider{client: client, configSet: configSet}, nil
}

// NewFromConfig verifies credentials before building the client.
func NewFromConfig(ctx context.Context, cfg aws.Config, configSet string) (*Provider, error) {
	if err := notifxses.CheckCredentials(ctx, cfg, Name); err != nil {
		return nil, err
	}
	return New(sesv2.NewFromConfig(cfg), configSet)
}

func (p *Provider) Name() string { return Name }

func (p *Provider) SendEmail(ctx context.Context, msg notifx.EmailMessage, opts ...notifx.Option) (string, error) {
	so := notifx.ApplyOptions(opts)

	body := &types.Body{}
	if msg.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTMLBody), Charset: aws.String("UTF-8")}
	}
	if msg.TextBody != "" {
		body.Text = &types.Content{Data: aws.String(msg.TextBody), Charset: aws.String("UTF-8")}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses:  msg.To,
			CcAddresses:  msg.CC,
			BccAddresses: msg.BCC,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	cs := so.ConfigID
	if cs == "" {
		cs = p.configSet
	}
	if cs != "" {
		input.ConfigurationSetName = aws.String(cs)
	}
	for _, kv := range notifxses.SortedTags(so.Tags, so.Metadata) {
		input.EmailTags = append(input.EmailTags, types.MessageTag{Name: aws.String(kv[0]), Value: aws.String(kv[1])})
	}

	out, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return "", notifx.SendFailed(Name, err)
	}
	return aws.ToString(out.MessageId), nil
}
