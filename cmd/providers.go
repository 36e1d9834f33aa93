package main

import (
	"context"
	"strings"

	"github.com/Abraxas-365/mailflow/pkg/config"
	"github.com/Abraxas-365/mailflow/pkg/notifx"
	"github.com/Abraxas-365/mailflow/pkg/notifx/notifxconsole"
	"github.com/Abraxas-365/mailflow/pkg/notifx/notifxpostmark"
	"github.com/Abraxas-365/mailflow/pkg/notifx/notifxresend"
	"github.com/Abraxas-365/mailflow/pkg/notifx/notifxses"
	"github.com/Abraxas-365/mailflow/pkg/notifx/notifxsesv2"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
)

// buildEmailProvider returns the provider registered under name.
func buildEmailProvider(ctx context.Context, n config.NotifxConfig, name string) (notifx.Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case notifxconsole.Name:
		return notifxconsole.NewConsoleProvider(), nil

	case notifxresend.Name:
		return notifxresend.New(n.ResendAPIKey)

	case notifxpostmark.Name:
		return notifxpostmark.New(n.PostmarkServerToken, n.PostmarkMessageStream)

	case notifxses.Name, notifxsesv2.Name:
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(n.AWSRegion))
		if err != nil {
			return nil, err
		}
		if key == notifxsesv2.Name {
			return notifxsesv2.NewFromConfig(ctx, awsCfg, n.SESConfigurationSet)
		}
		return notifxses.NewFromConfig(ctx, awsCfg, n.SESConfigurationSet)

	default:
		return nil, notifx.UnknownProvider(name)
	}
}

// defaultFrom formats the configured sender as "Name <address>".
func defaultFrom(n config.NotifxConfig) string {
	if n.FromAddress == "" {
		return ""
	}
	if n.FromName == "" {
		return n.FromAddress
	}
	return n.FromName + " <" + n.FromAddress + ">"
}
