package main

import (
	"context"
	"testing"

	"github.com/Abraxas-365/mailflow/pkg/config"
	"github.com/Abraxas-365/mailflow/pkg/errx"
	"github.com/Abraxas-365/mailflow/pkg/notifx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEmailProvider(t *testing.T) {
	ctx := context.Background()
	n := config.NotifxConfig{
		ResendAPIKey:          "re_123",
		PostmarkServerToken:   "pm-token",
		PostmarkMessageStream: "broadcast",
	}

	for _, name := range []string{"console", "resend", "postmark", " Resend "} {
		p, err := buildEmailProvider(ctx, n, name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, p.Name())
	}
}

func TestBuildEmailProviderMissingCredentials(t *testing.T) {
	_, err := buildEmailProvider(context.Background(), config.NotifxConfig{}, "postmark")
	require.Error(t, err)
	assert.Equal(t, notifx.ErrMissingCredentials.Code, errx.CodeOf(err))
}

func TestBuildEmailProviderUnknown(t *testing.T) {
	_, err := buildEmailProvider(context.Background(), config.NotifxConfig{}, "carrier-pigeon")
	require.Error(t, err)
	assert.True(t, errx.IsType(err, errx.TypeValidation))
}

func TestDefaultFrom(t *testing.T) {
	assert.Equal(t, "", defaultFrom(config.NotifxConfig{FromName: "News"}))
	assert.Equal(t, "news@example.com", defaultFrom(config.NotifxConfig{FromAddress: "news@example.com"}))
	assert.Equal(t, "News <news@example.com>", defaultFrom(config.NotifxConfig{FromAddress: "news@example.com", FromName: "News"}))
}
