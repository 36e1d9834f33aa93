package notifxsesv2

import (
	"context"
	"testing"

	"github.com/Abraxas-365/mailflow/pkg/notifx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSESv2 struct {
	in *sesv2.SendEmailInput
}

func (f *fakeSESv2) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	return &sesv2.SendEmailOutput{MessageId: aws.String("v2-1")}, nil
}

func TestSendEmail(t *testing.T) {
	fake := &fakeSESv2{}
	p, err := New(fake, "")
	require.NoError(t, err)

	id, err := p.SendEmail(context.Background(), notifx.EmailMessage{
		From:     "News <news@acme.io>",
		To:       []string{"ana@example.com"},
		Subject:  "Hi",
		HTMLBody: "<p>x</p>",
		TextBody: "x",
	}, notifx.WithConfigID("tracking"), notifx.WithTags(map[string]string{"tenant_id": "acme"}))

	require.NoError(t, err)
	assert.Equal(t, "v2-1", id)
	assert.Equal(t, "tracking", aws.ToString(fake.in.ConfigurationSetName))
	assert.Equal(t, "x", aws.ToString(fake.in.Content.Simple.Body.Text.Data))
	require.Len(t, fake.in.EmailTags, 1)
	assert.Equal(t, "tenant_id", aws.ToString(fake.in.EmailTags[0].Name))
}
