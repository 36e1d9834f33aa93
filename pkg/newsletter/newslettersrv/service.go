package newslettersrv

import (
	"context"

	"github.com/Abraxas-365/mailflow/pkg/jobx"
	"github.com/Abraxas-365/mailflow/pkg/kernel"
	"github.com/Abraxas-365/mailflow/pkg/logx"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/google/uuid"
)

// JobQueue is the part of the job host the service needs.
type JobQueue interface {
	jobx.JobEnqueuer
	jobx.JobStatusReader
}

// SubmitResult is returned when a send has been accepted.
type SubmitResult struct {
	JobID     string         `json:"jobId"`
	GroupUUID kernel.GroupID `json:"groupUUID"`
}

// Service accepts send requests and exposes their progress.
type Service struct {
	jobs         JobQueue
	progress     newsletter.ProgressStore
	archive      newsletter.Archive
	personalizer *newsletter.Personalizer
	requireFrom  bool
	providers    map[string]bool
}

// NewService creates the service. requireFrom is set when the transport has
// no default sender. archive may be nil.
func NewService(
	jobs JobQueue,
	progress newsletter.ProgressStore,
	archive newsletter.Archive,
	personalizer *newsletter.Personalizer,
	requireFrom bool,
) *Service {
	return &Service{
		jobs:         jobs,
		progress:     progress,
		archive:      archive,
		personalizer: personalizer,
		requireFrom:  requireFrom,
	}
}

// AllowProviders restricts the per-request provider override to names.
// Without it any override is accepted and checked at send time.
func (s *Service) AllowProviders(names ...string) *Service {
	s.providers = make(map[string]bool, len(names))
	for _, n := range names {
		s.providers[n] = true
	}
	return s
}

// Submit validates the request, assigns a group UUID when absent and
// enqueues the send.
func (s *Service) Submit(ctx context.Context, req newsletter.SendRequest) (*SubmitResult, error) {
	if err := req.Validate(s.requireFrom); err != nil {
		return nil, err
	}
	if req.Provider != "" && s.providers != nil && !s.providers[req.Provider] {
		return nil, newsletter.Errors().NewWithMessage(newsletter.ErrInvalidRequest,
			"Invalid newsletter send request: unknown email provider "+req.Provider).
			WithDetail("field", "provider")
	}
	if req.GroupUUID.IsEmpty() {
		req.GroupUUID = kernel.NewGroupID(uuid.NewString())
	}

	job, err := jobx.NewJob(newsletter.JobType, req)
	if err != nil {
		return nil, err
	}
	jobID, err := s.jobs.Enqueue(ctx, job)
	if err != nil {
		return nil, newsletter.Errors().NewWithCause(newsletter.ErrQueue, err).
			WithDetail("groupUUID", req.GroupUUID.String())
	}

	logx.WithContext(ctx).WithFields(logx.Fields{
		"newsletter_id": req.NewsletterID.String(),
		"group_uuid":    req.GroupUUID.String(),
		"recipients":    len(req.Recipients),
		"job_id":        jobID,
	}).Info("newsletter send accepted")

	return &SubmitResult{JobID: jobID, GroupUUID: req.GroupUUID}, nil
}

// Progress returns the latest checkpoint of a send.
func (s *Service) Progress(ctx context.Context, group kernel.GroupID) (*newsletter.Progress, error) {
	prog, err := s.progress.Load(ctx, group)
	if err != nil {
		return nil, newsletter.Errors().NewWithCause(newsletter.ErrProgressStore, err)
	}
	if prog == nil {
		return nil, newsletter.Errors().New(newsletter.ErrSendNotFound).WithDetail("groupUUID", group.String())
	}
	return prog, nil
}

// Report returns the final result of a finished send, preferring the
// archived summary.
func (s *Service) Report(ctx context.Context, group kernel.GroupID) (*newsletter.WorkflowResult, error) {
	prog, err := s.Progress(ctx, group)
	if err != nil {
		return nil, err
	}
	if !prog.Status.IsTerminal() {
		return nil, newsletter.Errors().New(newsletter.ErrSendInProgress).
			WithDetail("groupUUID", group.String()).
			WithDetail("status", string(prog.Status))
	}

	if s.archive != nil {
		scope := newsletter.Scope{NewsletterID: prog.NewsletterID, TenantID: prog.TenantID, GroupUUID: prog.GroupUUID}
		summary, err := s.archive.LoadSummary(ctx, scope)
		if err == nil && summary != nil {
			return summary, nil
		}
		if err != nil {
			logx.WithContext(ctx).WithError(err).WithField("group_uuid", group.String()).
				Warn("archived summary unavailable, using checkpoint")
		}
	}
	return prog.Result(), nil
}

// Batches returns the archived per-batch reports of a send. It is empty
// when archiving is disabled.
func (s *Service) Batches(ctx context.Context, group kernel.GroupID) ([]newsletter.BatchResult, error) {
	prog, err := s.Progress(ctx, group)
	if err != nil {
		return nil, err
	}
	if s.archive == nil {
		return []newsletter.BatchResult{}, nil
	}
	batches, err := s.archive.LoadBatches(ctx, newsletter.Scope{
		NewsletterID: prog.NewsletterID,
		TenantID:     prog.TenantID,
		GroupUUID:    prog.GroupUUID,
	})
	if err != nil {
		return nil, err
	}
	if batches == nil {
		batches = []newsletter.BatchResult{}
	}
	return batches, nil
}

// Job returns the job host's view of a submitted send.
func (s *Service) Job(ctx context.Context, id string) (*jobx.JobInfo, error) {
	return s.jobs.GetJob(ctx, id)
}

// VerifyUnsubscribe checks a signed unsubscribe token.
func (s *Service) VerifyUnsubscribe(token string) (*newsletter.UnsubscribeClaims, error) {
	return s.personalizer.ParseUnsubscribeToken(token)
}
