package newsletterinfra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/errx"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scope = newsletter.Scope{NewsletterID: "nl 1", TenantID: "tenant-1", GroupUUID: "g-1"}

func TestHTTPReporter_ReportStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/newsletters/nl%201/status", r.URL.EscapedPath())
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "tenant-1", r.Header.Get("X-Tenant-ID"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sending", body["status"])
		assert.Equal(t, "g-1", body["groupUUID"])
		assert.Equal(t, float64(120), body["metadata"].(map[string]any)["recipientCount"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewHTTPReporter(srv.URL, "tok", time.Second)
	err := r.ReportStatus(context.Background(), scope, newsletter.StatusSending, map[string]any{"recipientCount": 120})
	require.NoError(t, err)
}

func TestHTTPReporter_LogActivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/newsletters/nl%201/logs", r.URL.EscapedPath())
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "batch_completed", body["activity"])
		assert.NotEmpty(t, body["timestamp"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	r := NewHTTPReporter(srv.URL, "", time.Second)
	require.NoError(t, r.LogActivity(context.Background(), scope, newsletter.ActivityBatchCompleted, map[string]any{"batchIndex": 1}))
}

func TestHTTPReporter_Errors(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := NewHTTPReporter(srv.URL, "", time.Second).ReportStatus(context.Background(), scope, newsletter.StatusSent, nil)
		require.Error(t, err)
		assert.Equal(t, newsletter.ErrReporting.Code, errx.CodeOf(err))
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		err := NewHTTPReporter(srv.URL, "", 20*time.Millisecond).LogActivity(context.Background(), scope, newsletter.ActivityWorkflowStarted, nil)
		assert.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		err := NewHTTPReporter("http://127.0.0.1:1", "", time.Second).ReportStatus(context.Background(), scope, newsletter.StatusSent, nil)
		assert.True(t, errx.IsType(err, errx.TypeExternal))
	})
}

func TestNoopReporter(t *testing.T) {
	var r newsletter.Reporter = NoopReporter{}
	assert.NoError(t, r.ReportStatus(context.Background(), scope, newsletter.StatusSent, nil))
	assert.NoError(t, r.LogActivity(context.Background(), scope, newsletter.ActivityWorkflowCompleted, nil))
}
