package newslettercontainer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/config"
	"github.com/Abraxas-365/mailflow/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/mailflow/pkg/jobx"
	"github.com/Abraxas-365/mailflow/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/mailflow/pkg/kernel"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/Abraxas-365/mailflow/pkg/notifx"
	"github.com/Abraxas-365/mailflow/pkg/notifx/notifxconsole"
	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ServiceToken: "svc"},
		Dispatch: config.DispatchConfig{
			BatchSize:          2,
			Concurrency:        2,
			BatchAttempts:      1,
			UnsubscribeBaseURL: "https://app.example.com/unsubscribe",
			UnsubscribeSecret:  "secret",
			ArchiveEnabled:     true,
			ProgressTTL:        time.Hour,
		},
		Reporting: config.ReportingConfig{Timeout: time.Second},
	}
}

func TestContainer_SubmitRunsToCompletion(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	fs, err := fsxlocal.NewLocalFileSystem(t.TempDir())
	require.NoError(t, err)

	jobs := jobx.NewClient(jobxredis.NewRedisQueue(rdb),
		jobx.WithQueues("newsletters"),
		jobx.WithConcurrency(1),
		jobx.WithPollInterval(20*time.Millisecond),
		jobx.WithDequeueTimeout(50*time.Millisecond),
		jobx.WithShutdownTimeout(time.Second),
	)
	sender, err := notifx.NewClient(notifxconsole.NewConsoleProvider(), notifx.WithDefaultFrom("Mailflow <news@example.com>"))
	require.NoError(t, err)

	c, err := New(Deps{
		Cfg:            testConfig(),
		Redis:          rdb,
		Jobs:           jobs,
		Sender:         sender,
		HasDefaultFrom: true,
		FileSystem:     fs,
	})
	require.NoError(t, err)
	require.NoError(t, c.Migrate(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- jobs.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	app := fiber.New()
	c.Handlers.RegisterRoutes(app, c.AuthMiddleware)

	body := `{"newsletterId":"nl-1","tenantId":"tenant-1","subject":"Hi {firstName}","content":"<p>Hello {firstName}</p>",
		"recipients":[
			{"id":"r-1","email":"a@example.com","firstName":"A"},
			{"id":"r-2","email":"b@example.com"},
			{"id":"r-3","email":"c@example.com"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/newsletters/sends", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer svc")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted struct {
		JobID     string         `json:"jobId"`
		GroupUUID kernel.GroupID `json:"groupUUID"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	require.NotEmpty(t, accepted.GroupUUID)

	require.Eventually(t, func() bool {
		p, err := c.Service.Progress(context.Background(), accepted.GroupUUID)
		return err == nil && p.Status.IsTerminal()
	}, 5*time.Second, 20*time.Millisecond)

	report, err := c.Service.Report(context.Background(), accepted.GroupUUID)
	require.NoError(t, err)
	assert.Equal(t, newsletter.StatusSent, report.Status)
	assert.Equal(t, 3, report.Successful)
	assert.Equal(t, 0, report.Failed)

	batches, err := c.Service.Batches(context.Background(), accepted.GroupUUID)
	require.NoError(t, err)
	assert.Len(t, batches, 2)

	require.Eventually(t, func() bool {
		info, err := c.Service.Job(context.Background(), accepted.JobID)
		return err == nil && info.Status == jobx.JobStatusCompleted
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNew_RejectsBadUnsubscribeURL(t *testing.T) {
	cfg := testConfig()
	cfg.Dispatch.UnsubscribeBaseURL = "not a url"
	_, err := New(Deps{Cfg: cfg, Jobs: jobx.NewClient(nil)})
	assert.Error(t, err)
}
