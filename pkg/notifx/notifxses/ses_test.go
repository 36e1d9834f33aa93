package notifxses

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/mailflow/pkg/notifx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	in  *ses.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSendEmail(t *testing.T) {
	fake := &fakeSES{}
	p, err := NewSESProvider(fake, "newsletters")
	require.NoError(t, err)

	id, err := p.SendEmail(context.Background(), notifx.EmailMessage{
		From:     "news@acme.io",
		To:       []string{"ana@example.com"},
		ReplyTo:  "help@acme.io",
		Subject:  "Hi",
		HTMLBody: "<b>x</b>",
	}, notifx.WithTags(map[string]string{"newsletter_id": "n 1"}),
		notifx.WithMetadata(map[string]string{"group_uuid": "g-1"}))

	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)
	assert.Equal(t, "news@acme.io", aws.ToString(fake.in.Source))
	assert.Equal(t, "newsletters", aws.ToString(fake.in.ConfigurationSetName))
	assert.Equal(t, []string{"help@acme.io"}, fake.in.ReplyToAddresses)
	assert.Nil(t, fake.in.Message.Body.Text)
	require.Len(t, fake.in.Tags, 2)
	assert.Equal(t, "group_uuid", aws.ToString(fake.in.Tags[0].Name))
	assert.Equal(t, "n_1", aws.ToString(fake.in.Tags[1].Value))
}

func TestSendEmailError(t *testing.T) {
	p, err := NewSESProvider(&fakeSES{err: errors.New("throttled")}, "")
	require.NoError(t, err)

	_, err = p.SendEmail(context.Background(), notifx.EmailMessage{To: []string{"a@b.co"}, Subject: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestNewRequiresClient(t *testing.T) {
	_, err := NewSESProvider(nil, "")
	assert.Error(t, err)

	_, err = NewFromConfig(context.Background(), aws.Config{}, "")
	assert.Error(t, err)
}
