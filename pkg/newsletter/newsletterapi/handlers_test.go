package newsletterapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Abraxas-365/mailflow/pkg/errx"
	"github.com/Abraxas-365/mailflow/pkg/jobx"
	"github.com/Abraxas-365/mailflow/pkg/kernel"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/Abraxas-365/mailflow/pkg/newsletter/newslettersrv"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	submitted []newsletter.SendRequest
	tenant    kernel.TenantID
	progress  map[kernel.GroupID]*newsletter.Progress
}

func (f *fakeService) Submit(ctx context.Context, req newsletter.SendRequest) (*newslettersrv.SubmitResult, error) {
	if err := req.Validate(false); err != nil {
		return nil, err
	}
	f.tenant, _ = kernel.TenantFromContext(ctx)
	f.submitted = append(f.submitted, req)
	return &newslettersrv.SubmitResult{JobID: "job-1", GroupUUID: "g-new"}, nil
}

func (f *fakeService) Progress(_ context.Context, g kernel.GroupID) (*newsletter.Progress, error) {
	if p, ok := f.progress[g]; ok {
		return p, nil
	}
	return nil, newsletter.Errors().New(newsletter.ErrSendNotFound)
}

func (f *fakeService) Report(ctx context.Context, g kernel.GroupID) (*newsletter.WorkflowResult, error) {
	p, err := f.Progress(ctx, g)
	if err != nil {
		return nil, err
	}
	if !p.Status.IsTerminal() {
		return nil, newsletter.Errors().New(newsletter.ErrSendInProgress)
	}
	return p.Result(), nil
}

func (f *fakeService) Batches(ctx context.Context, g kernel.GroupID) ([]newsletter.BatchResult, error) {
	if _, err := f.Progress(ctx, g); err != nil {
		return nil, err
	}
	return []newsletter.BatchResult{{BatchIndex: 1, Successful: 1}}, nil
}

func (f *fakeService) Job(_ context.Context, id string) (*jobx.JobInfo, error) {
	return &jobx.JobInfo{ID: id, Type: newsletter.JobType, Status: jobx.JobStatusCompleted}, nil
}

func (f *fakeService) VerifyUnsubscribe(token string) (*newsletter.UnsubscribeClaims, error) {
	if token != "good" {
		return nil, newsletter.Errors().NewWithCause(newsletter.ErrInvalidRequest, errors.New("signature is invalid"))
	}
	c := &newsletter.UnsubscribeClaims{NewsletterID: "nl-1", TenantID: "t-1"}
	c.Subject = "r-1"
	return c, nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	var e *errx.Error
	if errors.As(err, &e) {
		return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse())
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
}

func newApp(svc SendService, token string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	NewHandlers(svc).RegisterRoutes(app, ServiceTokenAuth(token))
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

const sendBody = `{
	"newsletterId": "nl-1",
	"tenantId": "tenant-1",
	"subject": "Hello {firstName}",
	"content": "<p>Hi</p>",
	"recipients": [{"id": "r-1", "email": "ana@example.com", "firstName": "Ana"}]
}`

func postSend(body, token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/newsletters/sends", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestSubmit(t *testing.T) {
	svc := &fakeService{}
	app := newApp(svc, "svc-token")

	status, body := do(t, app, postSend(sendBody, "svc-token"))
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "job-1", body["jobId"])
	assert.Equal(t, "g-new", body["groupUUID"])

	require.Len(t, svc.submitted, 1)
	assert.Equal(t, "Ana", svc.submitted[0].Recipients[0].FirstName)
	assert.Equal(t, kernel.TenantID("tenant-1"), svc.tenant)
}

func TestSubmit_Unauthorized(t *testing.T) {
	app := newApp(&fakeService{}, "svc-token")

	status, body := do(t, app, postSend(sendBody, ""))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "API_UNAUTHORIZED", body["code"])

	status, _ = do(t, app, postSend(sendBody, "wrong"))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSubmit_OpenWhenNoTokenConfigured(t *testing.T) {
	status, _ := do(t, newApp(&fakeService{}, ""), postSend(sendBody, ""))
	assert.Equal(t, http.StatusAccepted, status)
}

func TestSubmit_Invalid(t *testing.T) {
	app := newApp(&fakeService{}, "")

	status, body := do(t, app, postSend(`{"newsletterId":"nl-1"}`, ""))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "NEWSLETTER_INVALID_REQUEST", body["code"])

	status, _ = do(t, app, postSend(`{not json`, ""))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProgressReportAndBatches(t *testing.T) {
	sending := &newsletter.Progress{GroupUUID: "g-1", Status: newsletter.StatusSending, Total: 10, NextBatch: 1, Successful: 5}
	svc := &fakeService{progress: map[kernel.GroupID]*newsletter.Progress{"g-1": sending}}
	app := newApp(svc, "")

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/newsletters/sends/g-1", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sending", body["status"])
	assert.Equal(t, float64(5), body["successful"])

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/newsletters/sends/missing", nil))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/newsletters/sends/g-1/report", nil))
	assert.Equal(t, http.StatusConflict, status)

	sending.Status = newsletter.StatusSent
	status, body = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/newsletters/sends/g-1/report", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sent", body["status"])

	status, body = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/newsletters/sends/g-1/batches", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["batches"], 1)
}

func TestJob(t *testing.T) {
	status, body := do(t, newApp(&fakeService{}, ""), httptest.NewRequest(http.MethodGet, "/api/v1/jobs/abc", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "abc", body["id"])
	assert.Equal(t, "completed", body["status"])
}

func TestVerifyUnsubscribe(t *testing.T) {
	app := newApp(&fakeService{}, "svc-token")

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/newsletters/unsubscribe/verify?token=good", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "r-1", body["recipientId"])

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/newsletters/unsubscribe/verify?token=bad", nil))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/newsletters/unsubscribe/verify", nil))
	assert.Equal(t, http.StatusBadRequest, status)
}
