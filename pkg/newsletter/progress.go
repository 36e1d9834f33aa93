package newsletter

import (
	"time"

	"github.com/Abraxas-365/mailflow/pkg/kernel"
)

// Progress is the durable checkpoint of one send attempt. NextBatch is the
// 0-based index of the first batch not yet accounted for.
type Progress struct {
	GroupUUID    kernel.GroupID      `json:"groupUUID"`
	NewsletterID kernel.NewsletterID `json:"newsletterId"`
	TenantID     kernel.TenantID     `json:"tenantId"`
	Status       Status              `json:"status"`
	Total        int                 `json:"total"`
	BatchSize    int                 `json:"batchSize"`
	BatchCount   int                 `json:"batchCount"`
	NextBatch    int                 `json:"nextBatch"`
	Successful   int                 `json:"successful"`
	Failed       int                 `json:"failed"`
	StartedAt    time.Time           `json:"startedAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
	CompletedAt  *time.Time          `json:"completedAt,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// NewProgress starts a checkpoint in the pending state.
func NewProgress(req *SendRequest, batchSize int, now time.Time) *Progress {
	total := len(req.Recipients)
	return &Progress{
		GroupUUID:    req.GroupUUID,
		NewsletterID: req.NewsletterID,
		TenantID:     req.TenantID,
		Status:       StatusPending,
		Total:        total,
		BatchSize:    batchSize,
		BatchCount:   (total + batchSize - 1) / batchSize,
		StartedAt:    now,
		UpdatedAt:    now,
	}
}

// Processed is the number of recipients accounted for so far.
func (p *Progress) Processed() int {
	return p.Successful + p.Failed
}

// Transition moves the checkpoint to next, refusing invalid transitions.
func (p *Progress) Transition(next Status, now time.Time) error {
	if !p.Status.CanTransitionTo(next) {
		return newsletterErrors.New(ErrInvalidTransition).
			WithDetail("from", string(p.Status)).
			WithDetail("to", string(next))
	}
	p.Status = next
	p.UpdatedAt = now
	if next.IsTerminal() {
		p.CompletedAt = &now
	}
	return nil
}

// Result converts a terminal checkpoint into a WorkflowResult.
func (p *Progress) Result() *WorkflowResult {
	res := &WorkflowResult{
		NewsletterID: p.NewsletterID,
		GroupUUID:    p.GroupUUID,
		Total:        p.Total,
		Successful:   p.Successful,
		Failed:       p.Failed,
		Status:       p.Status,
	}
	if p.CompletedAt != nil {
		res.CompletedAt = *p.CompletedAt
	}
	return res
}
