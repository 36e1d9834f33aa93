package newslettersrv

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/Abraxas-365/mailflow/pkg/errx"
	"github.com/Abraxas-365/mailflow/pkg/jobx"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_SubmitAssignsGroupAndEnqueues(t *testing.T) {
	jobs := &fakeJobs{}
	svc := NewService(jobs, newMemProgress(), nil, testPersonalizer(t), false)
	req := *makeRequest(3)
	req.GroupUUID = ""

	res, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "job-1", res.JobID)
	_, err = uuid.Parse(res.GroupUUID.String())
	require.NoError(t, err)

	require.Len(t, jobs.enqueued, 1)
	assert.Equal(t, newsletter.JobType, jobs.enqueued[0].Type)
	var payload newsletter.SendRequest
	require.NoError(t, json.Unmarshal(jobs.enqueued[0].Payload, &payload))
	assert.Equal(t, res.GroupUUID, payload.GroupUUID)
	assert.Len(t, payload.Recipients, 3)
}

func TestService_SubmitKeepsCallerGroup(t *testing.T) {
	svc := NewService(&fakeJobs{}, newMemProgress(), nil, testPersonalizer(t), false)

	res, err := svc.Submit(context.Background(), *makeRequest(1))
	require.NoError(t, err)
	assert.Equal(t, testGroup, res.GroupUUID)
}

func TestService_SubmitRejectsInvalid(t *testing.T) {
	jobs := &fakeJobs{}
	svc := NewService(jobs, newMemProgress(), nil, testPersonalizer(t), true)
	req := *makeRequest(2)
	req.From = ""

	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errx.IsType(err, errx.TypeValidation))
	assert.Empty(t, jobs.enqueued)
}

func TestService_SubmitProviderOverride(t *testing.T) {
	jobs := &fakeJobs{}
	svc := NewService(jobs, newMemProgress(), nil, testPersonalizer(t), false).
		AllowProviders("ses", "postmark")

	req := *makeRequest(1)
	req.Provider = "mailgun"
	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	var e *errx.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "provider", e.Details["field"])
	assert.Empty(t, jobs.enqueued)

	req.Provider = "postmark"
	_, err = svc.Submit(context.Background(), req)
	require.NoError(t, err)
	var payload newsletter.SendRequest
	require.NoError(t, json.Unmarshal(jobs.enqueued[0].Payload, &payload))
	assert.Equal(t, "postmark", payload.Provider)
}

func TestService_SubmitAcceptsMalformedRecipientAddress(t *testing.T) {
	jobs := &fakeJobs{}
	svc := NewService(jobs, newMemProgress(), nil, testPersonalizer(t), false)
	req := *makeRequest(3)
	req.Recipients[1].Email = "not-an-address"

	_, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, jobs.enqueued, 1)
}

func TestService_SubmitQueueFailure(t *testing.T) {
	svc := NewService(&fakeJobs{err: errors.New("redis down")}, newMemProgress(), nil, testPersonalizer(t), false)

	_, err := svc.Submit(context.Background(), *makeRequest(1))
	require.Error(t, err)
	assert.Equal(t, newsletter.ErrQueue.Code, errx.CodeOf(err))
}

func TestService_ProgressAndReport(t *testing.T) {
	store := newMemProgress()
	archive := &memArchive{}
	svc := NewService(&fakeJobs{}, store, archive, testPersonalizer(t), false)
	ctx := context.Background()

	_, err := svc.Progress(ctx, "missing")
	assert.True(t, errx.IsType(err, errx.TypeNotFound))

	req := makeRequest(4)
	prog := newsletter.NewProgress(req, 50, fixedTime)
	require.NoError(t, prog.Transition(newsletter.StatusSending, fixedTime))
	require.NoError(t, store.Save(ctx, prog))

	got, err := svc.Progress(ctx, testGroup)
	require.NoError(t, err)
	assert.Equal(t, newsletter.StatusSending, got.Status)

	_, err = svc.Report(ctx, testGroup)
	assert.True(t, errx.IsType(err, errx.TypeConflict))

	prog.Successful = 4
	require.NoError(t, prog.Transition(newsletter.StatusSent, fixedTime))
	require.NoError(t, store.Save(ctx, prog))

	report, err := svc.Report(ctx, testGroup)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Successful)

	archive.summary = &newsletter.WorkflowResult{GroupUUID: testGroup, Total: 4, Successful: 4, Status: newsletter.StatusSent}
	report, err = svc.Report(ctx, testGroup)
	require.NoError(t, err)
	assert.Same(t, archive.summary, report)
}

func TestService_Batches(t *testing.T) {
	store := newMemProgress()
	ctx := context.Background()
	prog := newsletter.NewProgress(makeRequest(2), 50, fixedTime)
	require.NoError(t, store.Save(ctx, prog))

	withoutArchive := NewService(&fakeJobs{}, store, nil, testPersonalizer(t), false)
	got, err := withoutArchive.Batches(ctx, testGroup)
	require.NoError(t, err)
	assert.Empty(t, got)

	archive := &memArchive{batches: []newsletter.BatchResult{{BatchIndex: 1, Successful: 2}}}
	svc := NewService(&fakeJobs{}, store, archive, testPersonalizer(t), false)
	got, err = svc.Batches(ctx, testGroup)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Successful)

	_, err = svc.Batches(ctx, "unknown")
	assert.True(t, errx.IsType(err, errx.TypeNotFound))
}

func TestService_VerifyUnsubscribe(t *testing.T) {
	p := testPersonalizer(t)
	svc := NewService(&fakeJobs{}, newMemProgress(), nil, p, false)
	link, err := url.Parse(p.UnsubscribeURL(newsletter.Scope{NewsletterID: "nl-1", TenantID: "t-1"}, "r-1"))
	require.NoError(t, err)

	claims, err := svc.VerifyUnsubscribe(link.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "r-1", claims.Subject)

	_, err = svc.VerifyUnsubscribe("garbage")
	assert.Error(t, err)
}

func TestSendJobHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newWorkflowFixture(t, nil)
		job := mustJob(t, makeRequest(3))
		require.NoError(t, SendJobHandler(f.workflow)(context.Background(), job))
		assert.Equal(t, 3, f.sender.count())
	})

	t.Run("bad payload is permanent", func(t *testing.T) {
		f := newWorkflowFixture(t, nil)
		job := &jobx.JobInfo{ID: "j", Type: newsletter.JobType, Payload: json.RawMessage(`{"recipients":"nope"}`)}
		err := SendJobHandler(f.workflow)(context.Background(), job)
		assert.True(t, jobx.IsPermanent(err))
	})

	t.Run("invalid request is permanent", func(t *testing.T) {
		f := newWorkflowFixture(t, nil)
		req := makeRequest(1)
		req.Content = ""
		err := SendJobHandler(f.workflow)(context.Background(), mustJob(t, req))
		assert.True(t, jobx.IsPermanent(err))
	})

	t.Run("interrupted is retried", func(t *testing.T) {
		f := newWorkflowFixture(t, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := SendJobHandler(f.workflow)(ctx, mustJob(t, makeRequest(2)))
		require.Error(t, err)
		assert.False(t, jobx.IsPermanent(err))
		assert.True(t, errx.IsType(err, errx.TypeInterrupted))
	})

	t.Run("store outage is retried", func(t *testing.T) {
		f := newWorkflowFixture(t, nil)
		f.progress.loadErr = errors.New("timeout")
		err := SendJobHandler(f.workflow)(context.Background(), mustJob(t, makeRequest(2)))
		require.Error(t, err)
		assert.False(t, jobx.IsPermanent(err))
	})
}

func mustJob(t *testing.T, req *newsletter.SendRequest) *jobx.JobInfo {
	t.Helper()
	job, err := jobx.NewJob(newsletter.JobType, req)
	require.NoError(t, err)
	return &jobx.JobInfo{ID: "job-1", Type: job.Type, Payload: job.Payload}
}
