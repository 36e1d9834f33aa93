// Package newslettersrv runs newsletter sends: the per-batch processor, the
// resumable workflow and the submission service in front of the job queue.
package newslettersrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/asyncx"
	"github.com/Abraxas-365/mailflow/pkg/kernel"
	"github.com/Abraxas-365/mailflow/pkg/logx"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/Abraxas-365/mailflow/pkg/notifx"
)

// BatchRunner processes one batch. A returned error means the batch as a
// whole could not be processed; per-recipient failures are data.
type BatchRunner interface {
	Process(ctx context.Context, req *newsletter.SendRequest, batch newsletter.Batch) (newsletter.BatchResult, error)
}

// BatchOptions tunes the sub-group fan-out inside a batch.
type BatchOptions struct {
	Concurrency   int
	SubGroupDelay time.Duration
}

// BatchProcessor personalizes and sends every recipient of a batch with
// bounded concurrency.
type BatchProcessor struct {
	sender       notifx.Sender
	personalizer *newsletter.Personalizer
	ledger       newsletter.Ledger
	opts         BatchOptions
	now          func() time.Time
}

// NewBatchProcessor creates a processor. ledger may be nil, which disables
// delivery deduplication.
func NewBatchProcessor(
	sender notifx.Sender,
	personalizer *newsletter.Personalizer,
	ledger newsletter.Ledger,
	opts BatchOptions,
) *BatchProcessor {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &BatchProcessor{
		sender:       sender,
		personalizer: personalizer,
		ledger:       ledger,
		opts:         opts,
		now:          time.Now,
	}
}

// Process sends the batch in sequential sub-groups of at most Concurrency
// recipients, pausing SubGroupDelay between sub-groups. Cancellation is
// honoured only between sub-groups.
func (p *BatchProcessor) Process(
	ctx context.Context,
	req *newsletter.SendRequest,
	batch newsletter.Batch,
) (newsletter.BatchResult, error) {
	log := logx.WithContext(ctx).WithFields(logx.Fields{
		"newsletter_id": req.NewsletterID.String(),
		"group_uuid":    req.GroupUUID.String(),
		"batch":         batch.Index,
	})

	outcomes := make([]newsletter.EmailOutcome, len(batch.Recipients))
	delivered, err := p.delivered(ctx, req.GroupUUID, batch.Recipients)
	if err != nil {
		return newsletter.BatchResult{}, err
	}

	pending := make([]int, 0, len(batch.Recipients))
	for i, r := range batch.Recipients {
		if d, ok := delivered[r.ID]; ok {
			outcomes[i] = newsletter.EmailOutcome{
				RecipientID:  r.ID,
				Success:      true,
				MessageID:    d.MessageID,
				Provider:     d.Provider,
				Deduplicated: true,
			}
			continue
		}
		pending = append(pending, i)
	}
	if skipped := len(batch.Recipients) - len(pending); skipped > 0 {
		log.WithField("skipped", skipped).Info("recipients already delivered in this send")
	}

	// In-flight sends always finish even if the run is cancelled.
	sendCtx := context.WithoutCancel(ctx)

	for n, group := range asyncx.Chunk(pending, p.opts.Concurrency) {
		if n > 0 {
			if err := asyncx.Sleep(ctx, p.opts.SubGroupDelay); err != nil {
				return newsletter.BatchResult{}, newsletter.Interrupted(req.GroupUUID.String(), err)
			}
		}

		results := asyncx.PoolSettled(sendCtx, len(group), group, func(ctx context.Context, idx int) (newsletter.EmailOutcome, error) {
			return p.sendOne(ctx, req, batch.Recipients[idx]), nil
		})

		accepted := make([]newsletter.Delivery, 0, len(group))
		for j, res := range results {
			idx := group[j]
			if !res.OK() {
				outcomes[idx] = newsletter.EmailOutcome{
					RecipientID: batch.Recipients[idx].ID,
					Error:       res.Err.Error(),
				}
				continue
			}
			outcomes[idx] = res.Value
			if res.Value.Success {
				accepted = append(accepted, p.delivery(req, res.Value))
			}
		}
		p.record(sendCtx, accepted, log)
	}

	result := newsletter.NewBatchResult(batch.Index, outcomes)
	log.WithFields(logx.Fields{"successful": result.Successful, "failed": result.Failed}).Debug("batch processed")
	return result, nil
}

func (p *BatchProcessor) sendOne(ctx context.Context, req *newsletter.SendRequest, r newsletter.Recipient) newsletter.EmailOutcome {
	if !newsletter.ValidEmail(r.Email) {
		return newsletter.EmailOutcome{RecipientID: r.ID, Error: "invalid recipient email"}
	}

	rendered := p.personalizer.Render(req, r)
	msg := notifx.EmailMessage{
		From:     req.From,
		To:       []string{r.Email},
		ReplyTo:  req.ReplyTo,
		Subject:  rendered.Subject,
		HTMLBody: rendered.HTML,
		TextBody: rendered.Text,
	}
	correlation := map[string]string{
		"newsletter_id": req.NewsletterID.String(),
		"recipient_id":  r.ID.String(),
		"tenant_id":     req.TenantID.String(),
		"group_uuid":    req.GroupUUID.String(),
	}

	opts := []notifx.Option{notifx.WithTags(correlation), notifx.WithMetadata(correlation)}
	if req.Provider != "" {
		opts = append(opts, notifx.WithProvider(req.Provider))
	}

	res := p.sender.Send(ctx, msg, opts...)
	return newsletter.EmailOutcome{
		RecipientID: r.ID,
		Success:     res.Success,
		MessageID:   res.MessageID,
		Error:       res.Error,
		Provider:    res.Provider,
	}
}

func (p *BatchProcessor) delivered(
	ctx context.Context,
	group kernel.GroupID,
	recipients []newsletter.Recipient,
) (map[kernel.RecipientID]newsletter.Delivery, error) {
	if p.ledger == nil {
		return nil, nil
	}
	ids := make([]kernel.RecipientID, len(recipients))
	for i, r := range recipients {
		ids[i] = r.ID
	}
	delivered, err := p.ledger.Delivered(ctx, group, ids)
	if err != nil {
		return nil, newsletter.Errors().NewWithCause(newsletter.ErrLedger, err).
			WithDetail("groupUUID", group.String())
	}
	return delivered, nil
}

func (p *BatchProcessor) delivery(req *newsletter.SendRequest, o newsletter.EmailOutcome) newsletter.Delivery {
	return newsletter.Delivery{
		GroupUUID:    req.GroupUUID,
		RecipientID:  o.RecipientID,
		TenantID:     req.TenantID,
		NewsletterID: req.NewsletterID,
		MessageID:    o.MessageID,
		Provider:     o.Provider,
		DeliveredAt:  p.now().UTC(),
	}
}

func (p *BatchProcessor) record(ctx context.Context, deliveries []newsletter.Delivery, log *logx.Entry) {
	if p.ledger == nil || len(deliveries) == 0 {
		return
	}
	if err := p.ledger.Record(ctx, deliveries); err != nil {
		log.WithError(err).WithField("count", len(deliveries)).Warn("failed to record deliveries")
	}
}
