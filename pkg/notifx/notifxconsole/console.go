package notifxconsole

import (
	"context"
	"strings"

	"github.com/Abraxas-365/mailflow/pkg/logx"
	"github.com/Abraxas-365/mailflow/pkg/notifx"
	"github.com/google/uuid"
)

const Name = "console"

// ConsoleProvider prints emails to the terminal via logx. Intended for development and testing.
type ConsoleProvider struct{}

// NewConsoleProvider creates a new console email provider.
func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

func (p *ConsoleProvider) Name() string { return Name }

// SendEmail logs the email details instead of sending it.
func (p *ConsoleProvider) SendEmail(ctx context.Context, msg notifx.EmailMessage, opts ...notifx.Option) (string, error) {
	id := "console-" + uuid.NewString()
	so := notifx.ApplyOptions(opts)

	fields := logx.Fields{
		"message_id": id,
		"from":       msg.From,
		"to":         strings.Join(msg.To, ", "),
		"subject":    msg.Subject,
	}
	for k, v := range so.Tags {
		fields["tag."+k] = v
	}
	logx.WithContext(ctx).WithFields(fields).Info("notifx/console: email sent (dev mode)")

	if msg.TextBody != "" {
		logx.Debugf("notifx/console: text body:\n%s", msg.TextBody)
	}
	if msg.HTMLBody != "" {
		logx.Debugf("notifx/console: html body:\n%s", msg.HTMLBody)
	}

	return id, nil
}
