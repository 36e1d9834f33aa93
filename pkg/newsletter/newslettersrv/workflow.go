package newslettersrv

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/asyncx"
	"github.com/Abraxas-365/mailflow/pkg/errx"
	"github.com/Abraxas-365/mailflow/pkg/kernel"
	"github.com/Abraxas-365/mailflow/pkg/logx"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
)

// WorkflowOptions tunes batching and batch-level retries.
type WorkflowOptions struct {
	BatchSize       int
	BatchAttempts   int
	BatchRetryDelay time.Duration
}

// Workflow drives one newsletter send through its batches, checkpointing
// after every batch so that an interrupted run resumes where it stopped.
type Workflow struct {
	batches  BatchRunner
	notifier *Notifier
	progress newsletter.ProgressStore
	archive  newsletter.Archive
	opts     WorkflowOptions
	now      func() time.Time
}

// NewWorkflow creates a workflow. progress and archive may be nil.
func NewWorkflow(
	batches BatchRunner,
	notifier *Notifier,
	progress newsletter.ProgressStore,
	archive newsletter.Archive,
	opts WorkflowOptions,
) *Workflow {
	if opts.BatchSize < 1 {
		opts.BatchSize = 50
	}
	if opts.BatchAttempts < 1 {
		opts.BatchAttempts = 1
	}
	if progress == nil {
		progress = noCheckpoints{}
	}
	return &Workflow{
		batches:  batches,
		notifier: notifier,
		progress: progress,
		archive:  archive,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the send. Partial failure is returned as data in the
// WorkflowResult. An error means the run did not reach a terminal state by
// itself: either it was interrupted or a checkpoint could not be written
// (both resumable), or the workflow failed and has already reported so.
func (w *Workflow) Run(ctx context.Context, req *newsletter.SendRequest) (result *newsletter.WorkflowResult, err error) {
	scope := req.Scope()
	log := logx.WithContext(ctx).WithFields(logx.Fields{
		"newsletter_id": scope.NewsletterID.String(),
		"tenant_id":     scope.TenantID.String(),
		"group_uuid":    scope.GroupUUID.String(),
	})

	var prog *newsletter.Progress
	defer func() {
		if r := recover(); r != nil {
			cause := newsletter.Errors().NewWithMessage(newsletter.ErrWorkflowPanic, fmt.Sprintf("newsletter workflow panicked: %v", r))
			result, err = nil, w.fail(ctx, scope, prog, cause, log)
		}
	}()

	if err := req.Validate(false); err != nil {
		return nil, w.fail(ctx, scope, nil, err, log)
	}
	if req.GroupUUID.IsEmpty() {
		cause := newsletter.Errors().NewWithMessage(newsletter.ErrInvalidRequest, "Invalid newsletter send request: groupUUID is required").
			WithDetail("field", "groupUUID")
		return nil, w.fail(ctx, scope, nil, cause, log)
	}

	prog, err = w.progress.Load(ctx, req.GroupUUID)
	if err != nil {
		return nil, newsletter.Errors().NewWithCause(newsletter.ErrProgressStore, err).
			WithDetail("groupUUID", req.GroupUUID.String())
	}

	switch {
	case prog != nil && prog.Status.IsTerminal():
		log.WithField("status", string(prog.Status)).Info("newsletter send already finished")
		return prog.Result(), nil
	case prog != nil && prog.Status == newsletter.StatusSending:
		if prog.Total != len(req.Recipients) || prog.NewsletterID != req.NewsletterID || prog.BatchSize < 1 {
			cause := newsletter.Errors().New(newsletter.ErrProgressMismatch).
				WithDetail("groupUUID", req.GroupUUID.String()).
				WithDetail("storedTotal", prog.Total).
				WithDetail("total", len(req.Recipients))
			return nil, w.fail(ctx, scope, prog, cause, log)
		}
		log.WithFields(logx.Fields{"next_batch": prog.NextBatch + 1, "batch_count": prog.BatchCount}).
			Info("resuming newsletter send")
	default:
		if prog, err = w.start(ctx, req, log); err != nil {
			return nil, err
		}
	}

	batches := newsletter.Partition(req.Recipients, prog.BatchSize)
	for i := prog.NextBatch; i < len(batches); i++ {
		if ctx.Err() != nil {
			return nil, w.interrupt(prog, ctx.Err(), log)
		}
		if err := w.runBatch(ctx, req, prog, batches[i], log); err != nil {
			return nil, err
		}
	}

	return w.finish(ctx, scope, prog, log), nil
}

func (w *Workflow) start(ctx context.Context, req *newsletter.SendRequest, log *logx.Entry) (*newsletter.Progress, error) {
	now := w.now()
	prog := newsletter.NewProgress(req, w.opts.BatchSize, now)
	if err := prog.Transition(newsletter.StatusSending, now); err != nil {
		return nil, err
	}
	if err := w.save(ctx, prog); err != nil {
		return nil, err
	}

	scope := req.Scope()
	w.notifier.Status(ctx, scope, newsletter.StatusSending, map[string]any{
		"recipientCount": prog.Total,
		"startedAt":      now,
		"groupUUID":      scope.GroupUUID.String(),
	})
	w.notifier.Activity(ctx, scope, newsletter.ActivityWorkflowStarted, map[string]any{
		"recipientCount": prog.Total,
		"batchCount":     prog.BatchCount,
		"batchSize":      prog.BatchSize,
		"groupUUID":      scope.GroupUUID.String(),
	})
	log.WithFields(logx.Fields{"recipients": prog.Total, "batch_count": prog.BatchCount}).Info("newsletter send started")
	return prog, nil
}

// runBatch processes one batch and checkpoints the running totals. A batch
// that keeps failing after its retries is counted as failed in full.
func (w *Workflow) runBatch(
	ctx context.Context,
	req *newsletter.SendRequest,
	prog *newsletter.Progress,
	batch newsletter.Batch,
	log *logx.Entry,
) error {
	scope := req.Scope()
	blog := log.WithField("batch", batch.Index)

	res, err := asyncx.RetryWithBackoff(ctx, w.opts.BatchAttempts, w.opts.BatchRetryDelay,
		func(ctx context.Context) (newsletter.BatchResult, error) {
			return w.batches.Process(ctx, req, batch)
		})

	switch {
	case err != nil && (ctx.Err() != nil || errx.IsType(err, errx.TypeInterrupted)):
		return w.interrupt(prog, err, blog)
	case err != nil:
		prog.Failed += len(batch.Recipients)
		blog.WithError(err).Error("batch failed, counting all recipients as failed")
		w.notifier.Activity(ctx, scope, newsletter.ActivityBatchFailed, map[string]any{
			"batchIndex":      batch.Index,
			"batchCount":      prog.BatchCount,
			"recipientCount":  len(batch.Recipients),
			"error":           err.Error(),
			"totalSuccessful": prog.Successful,
			"totalFailed":     prog.Failed,
			"processed":       prog.Processed(),
		})
	default:
		prog.Successful += res.Successful
		prog.Failed += res.Failed
		blog.WithFields(logx.Fields{"successful": res.Successful, "failed": res.Failed}).Info("batch completed")
		w.notifier.Activity(ctx, scope, newsletter.ActivityBatchCompleted, map[string]any{
			"batchIndex":      batch.Index,
			"batchCount":      prog.BatchCount,
			"successful":      res.Successful,
			"failed":          res.Failed,
			"totalSuccessful": prog.Successful,
			"totalFailed":     prog.Failed,
			"processed":       prog.Processed(),
		})
		w.archiveBatch(ctx, scope, res, blog)
	}

	prog.NextBatch = batch.Index
	prog.UpdatedAt = w.now()
	return w.save(ctx, prog)
}

func (w *Workflow) finish(ctx context.Context, scope newsletter.Scope, prog *newsletter.Progress, log *logx.Entry) *newsletter.WorkflowResult {
	final := newsletter.FinalStatus(prog.Total, prog.Failed)
	// sending -> terminal is always valid.
	_ = prog.Transition(final, w.now())
	if err := w.save(ctx, prog); err != nil {
		log.WithError(err).Error("failed to save terminal checkpoint")
	}

	result := prog.Result()
	summary := map[string]any{
		"total":       result.Total,
		"successful":  result.Successful,
		"failed":      result.Failed,
		"completedAt": result.CompletedAt,
	}
	w.notifier.Status(ctx, scope, final, summary)
	w.notifier.Activity(ctx, scope, newsletter.ActivityWorkflowCompleted, summary)

	if w.archive != nil {
		if err := w.archive.SaveSummary(context.WithoutCancel(ctx), scope, *result); err != nil {
			log.WithError(err).Warn("failed to archive send summary")
		}
	}

	log.WithFields(logx.Fields{
		"status":     string(final),
		"successful": result.Successful,
		"failed":     result.Failed,
	}).Info("newsletter send finished")
	return result
}

// fail reports an orchestration failure and returns cause for the host to
// act on. A checkpoint that is already terminal is left untouched.
func (w *Workflow) fail(
	ctx context.Context,
	scope newsletter.Scope,
	prog *newsletter.Progress,
	cause error,
	log *logx.Entry,
) error {
	if prog != nil && prog.Status.IsTerminal() {
		log.WithError(cause).Error("newsletter workflow error after completion")
		return cause
	}

	log.WithError(cause).Error("newsletter workflow failed")
	details := map[string]any{"error": cause.Error(), "code": errx.CodeOf(cause)}
	w.notifier.Status(ctx, scope, newsletter.StatusFailed, details)
	w.notifier.Activity(ctx, scope, newsletter.ActivityWorkflowFailed, details)

	if prog != nil {
		prog.Error = cause.Error()
		if prog.Transition(newsletter.StatusFailed, w.now()) == nil {
			if err := w.save(ctx, prog); err != nil {
				log.WithError(err).Error("failed to save failed checkpoint")
			}
		}
	}
	return cause
}

func (w *Workflow) interrupt(prog *newsletter.Progress, cause error, log *logx.Entry) error {
	log.WithError(cause).
		WithFields(logx.Fields{"next_batch": prog.NextBatch + 1, "batch_count": prog.BatchCount}).
		Warn("newsletter send interrupted")
	if errx.IsType(cause, errx.TypeInterrupted) {
		return cause
	}
	return newsletter.Interrupted(prog.GroupUUID.String(), cause)
}

func (w *Workflow) save(ctx context.Context, prog *newsletter.Progress) error {
	if err := w.progress.Save(context.WithoutCancel(ctx), prog); err != nil {
		return newsletter.Errors().NewWithCause(newsletter.ErrProgressStore, err).
			WithDetail("groupUUID", prog.GroupUUID.String())
	}
	return nil
}

func (w *Workflow) archiveBatch(ctx context.Context, scope newsletter.Scope, res newsletter.BatchResult, log *logx.Entry) {
	if w.archive == nil {
		return
	}
	if err := w.archive.SaveBatch(context.WithoutCancel(ctx), scope, res); err != nil {
		log.WithError(err).Warn("failed to archive batch report")
	}
}

type noCheckpoints struct{}

func (noCheckpoints) Load(context.Context, kernel.GroupID) (*newsletter.Progress, error) {
	return nil, nil
}

func (noCheckpoints) Save(context.Context, *newsletter.Progress) error { return nil }
