package notifxses

import (
	"context"
	"regexp"
	"sort"

	"github.com/Abraxas-365/mailflow/pkg/notifx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const Name = "ses"

// SES message tags allow ASCII letters, digits, '_', '-', '.' and '@'.
var tagUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.@-]`)

// API is the subset of *ses.Client used here.
type API interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESProvider implements notifx.Provider using the SES v1 API.
type SESProvider struct {
	client    API
	configSet string
}

// NewSESProvider creates a provider. configSet may be empty.
func NewSESProvider(client API, configSet string) (*SESProvider, error) {
	if client == nil {
		return nil, notifx.MissingCredentials(Name, "AWS credentials")
	}
	return &SESProvider{client: client, configSet: configSet}, nil
}

// NewFromConfig verifies credentials can be resolved before building the
// client, so a misconfigured deployment fails at startup.
func NewFromConfig(ctx context.Context, cfg aws.Config, configSet string) (*SESProvider, error) {
	if err := CheckCredentials(ctx, cfg, Name); err != nil {
		return nil, err
	}
	return NewSESProvider(ses.NewFromConfig(cfg), configSet)
}

// CheckCredentials fails when cfg has no usable credentials.
func CheckCredentials(ctx context.Context, cfg aws.Config, provider string) error {
	if cfg.Credentials == nil {
		return notifx.MissingCredentials(provider, "AWS credentials")
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return notifx.MissingCredentials(provider, "AWS credentials")
	}
	return nil
}

func (p *SESProvider) Name() string { return Name }

// SendEmail sends a single email via SES.
func (p *SESProvider) SendEmail(ctx context.Context, msg notifx.EmailMessage, opts ...notifx.Option) (string, error) {
	so := notifx.ApplyOptions(opts)

	body := &types.Body{}
	if msg.TextBody != "" {
		body.Text = &types.Content{
			Data:    aws.String(msg.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}
	if msg.HTMLBody != "" {
		body.Html = &types.Content{
			Data:    aws.String(msg.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	input := &ses.SendEmailInput{
		Source: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses:  msg.To,
			CcAddresses:  msg.CC,
			BccAddresses: msg.BCC,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: body,
		},
	}

	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}
	if cs := firstNonEmpty(so.ConfigID, p.configSet); cs != "" {
		input.ConfigurationSetName = aws.String(cs)
	}
	for _, kv := range SortedTags(so.Tags, so.Metadata) {
		input.Tags = append(input.Tags, types.MessageTag{Name: aws.String(kv[0]), Value: aws.String(kv[1])})
	}

	out, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return "", notifx.SendFailed(Name, err)
	}
	return aws.ToString(out.MessageId), nil
}

// SortedTags merges tag maps (later maps win), sanitizes them for SES and
// returns name/value pairs in key order.
func SortedTags(maps ...map[string]string) [][2]string {
	merged := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merged[tagUnsafe.ReplaceAllString(k, "_")] = tagUnsafe.ReplaceAllString(v, "_")
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, merged[k]})
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
