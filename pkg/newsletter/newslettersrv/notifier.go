package newslettersrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/asyncx"
	"github.com/Abraxas-365/mailflow/pkg/logx"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
)

// DefaultReportTimeout bounds a single status or activity call.
const DefaultReportTimeout = 4 * time.Second

// Notifier wraps a Reporter so that reporting can never stall or fail a
// send: every call is bounded by a timeout and errors are only logged.
type Notifier struct {
	reporter newsletter.Reporter
	timeout  time.Duration
}

func NewNotifier(reporter newsletter.Reporter, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = DefaultReportTimeout
	}
	return &Notifier{reporter: reporter, timeout: timeout}
}

// Status reports a newsletter status change.
func (n *Notifier) Status(ctx context.Context, scope newsletter.Scope, status newsletter.Status, metadata map[string]any) {
	n.call(ctx, scope, "status", string(status), func(ctx context.Context) error {
		return n.reporter.ReportStatus(ctx, scope, status, metadata)
	})
}

// Activity appends an audit-log event.
func (n *Notifier) Activity(ctx context.Context, scope newsletter.Scope, activity newsletter.Activity, details map[string]any) {
	n.call(ctx, scope, "activity", string(activity), func(ctx context.Context) error {
		return n.reporter.LogActivity(ctx, scope, activity, details)
	})
}

func (n *Notifier) call(ctx context.Context, scope newsletter.Scope, kind, name string, fn func(context.Context) error) {
	if n == nil || n.reporter == nil {
		return
	}
	_, err := asyncx.WithTimeout(context.WithoutCancel(ctx), n.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	if err != nil {
		logx.WithContext(ctx).
			WithError(err).
			WithFields(logx.Fields{
				"newsletter_id": scope.NewsletterID.String(),
				"group_uuid":    scope.GroupUUID.String(),
				"report":        kind,
				"name":          name,
			}).
			Warn("newsletter report failed")
	}
}
