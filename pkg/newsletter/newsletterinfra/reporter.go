// Package newsletterinfra holds the adapters behind the newsletter ports:
// the HTTP status reporter, Redis checkpoints, the Postgres delivery ledger
// and the file-storage report archive.
package newsletterinfra

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/logx"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/Abraxas-365/mailflow/pkg/notifx/notifxhttp"
)

// HTTPReporter pushes status changes and activity events to the owning web
// service:
//
//	PUT  {base}/api/newsletters/{id}/status
//	POST {base}/api/newsletters/{id}/logs
type HTTPReporter struct {
	client *notifxhttp.Client
	now    func() time.Time
}

type statusBody struct {
	Status    newsletter.Status `json:"status"`
	GroupUUID string            `json:"groupUUID"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
}

type activityBody struct {
	Activity  newsletter.Activity `json:"activity"`
	GroupUUID string              `json:"groupUUID"`
	Details   map[string]any      `json:"details,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// NewHTTPReporter creates a reporter for baseURL. token is sent as a bearer
// credential when set; timeout bounds each request.
func NewHTTPReporter(baseURL, token string, timeout time.Duration, opts ...notifxhttp.Option) *HTTPReporter {
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	opts = append([]notifxhttp.Option{notifxhttp.WithHTTPClient(&http.Client{Timeout: timeout})}, opts...)
	return &HTTPReporter{
		client: notifxhttp.New(baseURL, headers, opts...),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *HTTPReporter) ReportStatus(ctx context.Context, scope newsletter.Scope, status newsletter.Status, metadata map[string]any) error {
	body := statusBody{Status: status, GroupUUID: scope.GroupUUID.String(), Metadata: metadata}
	err := r.client.SendJSON(ctx, http.MethodPut, newsletterPath(scope, "status"), tenantHeader(scope), body, nil)
	if err != nil {
		return reportingError(err, scope, "status")
	}
	return nil
}

func (r *HTTPReporter) LogActivity(ctx context.Context, scope newsletter.Scope, activity newsletter.Activity, details map[string]any) error {
	body := activityBody{
		Activity:  activity,
		GroupUUID: scope.GroupUUID.String(),
		Details:   details,
		Timestamp: r.now(),
	}
	err := r.client.SendJSON(ctx, http.MethodPost, newsletterPath(scope, "logs"), tenantHeader(scope), body, nil)
	if err != nil {
		return reportingError(err, scope, "logs")
	}
	return nil
}

func newsletterPath(scope newsletter.Scope, leaf string) string {
	return "/api/newsletters/" + url.PathEscape(scope.NewsletterID.String()) + "/" + leaf
}

func tenantHeader(scope newsletter.Scope) map[string]string {
	return map[string]string{"X-Tenant-ID": scope.TenantID.String()}
}

func reportingError(err error, scope newsletter.Scope, endpoint string) error {
	return newsletter.Errors().NewWithCause(newsletter.ErrReporting, err).
		WithDetail("newsletterId", scope.NewsletterID.String()).
		WithDetail("endpoint", endpoint)
}

// NoopReporter is used when no reporting endpoint is configured. Events are
// logged at debug level only.
type NoopReporter struct{}

func (NoopReporter) ReportStatus(ctx context.Context, scope newsletter.Scope, status newsletter.Status, _ map[string]any) error {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"newsletter_id": scope.NewsletterID.String(),
		"status":        string(status),
	}).Debug("status report skipped")
	return nil
}

func (NoopReporter) LogActivity(ctx context.Context, scope newsletter.Scope, activity newsletter.Activity, _ map[string]any) error {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"newsletter_id": scope.NewsletterID.String(),
		"activity":      string(activity),
	}).Debug("activity log skipped")
	return nil
}
