package newslettersrv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/jobx"
	"github.com/Abraxas-365/mailflow/pkg/kernel"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/Abraxas-365/mailflow/pkg/notifx"
	"github.com/stretchr/testify/require"
)

// ─── Sender ──────────────────────────────────────────────────────────────────

type sentMail struct {
	msg  notifx.EmailMessage
	opts notifx.SendOptions
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[string]bool
	delay  time.Duration
}

func (s *fakeSender) Send(ctx context.Context, msg notifx.EmailMessage, opts ...notifx.Option) notifx.SendResult {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMail{msg: msg, opts: notifx.ApplyOptions(opts)})
	if s.failTo[msg.To[0]] {
		return notifx.SendResult{Error: "mailbox unavailable", Provider: "fake"}
	}
	return notifx.SendResult{Success: true, MessageID: "msg-" + msg.To[0], Provider: "fake"}
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// ─── Reporter ────────────────────────────────────────────────────────────────

type reportEvent struct {
	kind    string
	name    string
	payload map[string]any
}

type fakeReporter struct {
	mu     sync.Mutex
	events []reportEvent
	err    error
}

func (r *fakeReporter) ReportStatus(_ context.Context, _ newsletter.Scope, status newsletter.Status, md map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, reportEvent{kind: "status", name: string(status), payload: md})
	return r.err
}

func (r *fakeReporter) LogActivity(_ context.Context, _ newsletter.Scope, a newsletter.Activity, d map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, reportEvent{kind: "activity", name: string(a), payload: d})
	return r.err
}

func (r *fakeReporter) names(kind string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.kind == kind {
			out = append(out, e.name)
		}
	}
	return out
}

// last returns the payload of the most recent event of kind and name.
func (r *fakeReporter) last(kind, name string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if e := r.events[i]; e.kind == kind && e.name == name {
			return e.payload
		}
	}
	return nil
}

// ─── Progress store ──────────────────────────────────────────────────────────

type memProgress struct {
	mu      sync.Mutex
	data    map[kernel.GroupID]newsletter.Progress
	saves   int
	loadErr error
	saveErr error
	// failSaveAfter makes every save after the first n fail.
	failSaveAfter int
}

func newMemProgress() *memProgress {
	return &memProgress{data: map[kernel.GroupID]newsletter.Progress{}, failSaveAfter: -1}
}

func (m *memProgress) Load(_ context.Context, g kernel.GroupID) (*newsletter.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	p, ok := m.data[g]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memProgress) Save(_ context.Context, p *newsletter.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.failSaveAfter >= 0 && m.saves >= m.failSaveAfter {
		return errors.New("redis down")
	}
	m.saves++
	m.data[p.GroupUUID] = *p
	return nil
}

func (m *memProgress) get(g kernel.GroupID) newsletter.Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[g]
}

// ─── Ledger ──────────────────────────────────────────────────────────────────

type memLedger struct {
	mu        sync.Mutex
	rows      map[kernel.RecipientID]newsletter.Delivery
	readErr   error
	recordErr error
}

func newMemLedger() *memLedger {
	return &memLedger{rows: map[kernel.RecipientID]newsletter.Delivery{}}
}

func (l *memLedger) Delivered(_ context.Context, g kernel.GroupID, ids []kernel.RecipientID) (map[kernel.RecipientID]newsletter.Delivery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return nil, l.readErr
	}
	out := map[kernel.RecipientID]newsletter.Delivery{}
	for _, id := range ids {
		if d, ok := l.rows[id]; ok && d.GroupUUID == g {
			out[id] = d
		}
	}
	return out, nil
}

func (l *memLedger) Record(_ context.Context, ds []newsletter.Delivery) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recordErr != nil {
		return l.recordErr
	}
	for _, d := range ds {
		if _, ok := l.rows[d.RecipientID]; !ok {
			l.rows[d.RecipientID] = d
		}
	}
	return nil
}

func (l *memLedger) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

// ─── Archive ─────────────────────────────────────────────────────────────────

type memArchive struct {
	mu      sync.Mutex
	batches []newsletter.BatchResult
	summary *newsletter.WorkflowResult
	err     error
}

func (a *memArchive) SaveBatch(_ context.Context, _ newsletter.Scope, r newsletter.BatchResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batches = append(a.batches, r)
	return a.err
}

func (a *memArchive) SaveSummary(_ context.Context, _ newsletter.Scope, r newsletter.WorkflowResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary = &r
	return a.err
}

func (a *memArchive) LoadBatches(context.Context, newsletter.Scope) ([]newsletter.BatchResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batches, a.err
}

func (a *memArchive) LoadSummary(context.Context, newsletter.Scope) (*newsletter.WorkflowResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summary, a.err
}

// ─── Job queue ───────────────────────────────────────────────────────────────

type fakeJobs struct {
	enqueued []jobx.Job
	err      error
}

func (f *fakeJobs) Enqueue(_ context.Context, job jobx.Job) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.enqueued = append(f.enqueued, job)
	return fmt.Sprintf("job-%d", len(f.enqueued)), nil
}

func (f *fakeJobs) EnqueueDelayed(ctx context.Context, job jobx.Job, _ time.Duration) (string, error) {
	return f.Enqueue(ctx, job)
}

func (f *fakeJobs) GetJob(_ context.Context, id string) (*jobx.JobInfo, error) {
	return &jobx.JobInfo{ID: id, Status: jobx.JobStatusPending}, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

const testGroup = kernel.GroupID("4b7c8f0e-1d2a-4c3b-9e8f-7a6b5c4d3e2f")

func makeRequest(n int) *newsletter.SendRequest {
	rs := make([]newsletter.Recipient, n)
	for i := range rs {
		rs[i] = newsletter.Recipient{
			ID:        kernel.NewRecipientID(fmt.Sprintf("r-%03d", i+1)),
			Email:     fmt.Sprintf("user%03d@example.com", i+1),
			FirstName: fmt.Sprintf("User%d", i+1),
		}
	}
	return &newsletter.SendRequest{
		NewsletterID: "nl-1",
		TenantID:     "tenant-1",
		GroupUUID:    testGroup,
		Subject:      "Monthly news",
		Content:      "<p>Hi {firstName}</p>",
		From:         "news@example.com",
		Recipients:   rs,
	}
}

func testPersonalizer(t *testing.T) *newsletter.Personalizer {
	t.Helper()
	p, err := newsletter.NewPersonalizer("https://example.com/unsubscribe", "secret")
	require.NoError(t, err)
	return p
}
