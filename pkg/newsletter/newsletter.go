// Package newsletter holds the domain of the newsletter send pipeline:
// requests, batches, per-recipient outcomes, status and progress.
package newsletter

import (
	"time"

	"github.com/Abraxas-365/mailflow/pkg/kernel"
)

// JobType is the jobx job type that carries a SendRequest.
const JobType = "newsletter.send"

// Recipient is one addressee of a newsletter. Uniqueness by ID is the
// caller's responsibility.
type Recipient struct {
	ID        kernel.RecipientID `json:"id"`
	Email     string             `json:"email"`
	FirstName string             `json:"firstName,omitempty"`
	LastName  string             `json:"lastName,omitempty"`
}

// FullName joins the first and last name, skipping empty parts.
func (r Recipient) FullName() string {
	switch {
	case r.FirstName == "":
		return r.LastName
	case r.LastName == "":
		return r.FirstName
	default:
		return r.FirstName + " " + r.LastName
	}
}

// SendRequest identifies one send operation. It is immutable once accepted.
type SendRequest struct {
	NewsletterID kernel.NewsletterID `json:"newsletterId"`
	TenantID     kernel.TenantID     `json:"tenantId"`
	GroupUUID    kernel.GroupID      `json:"groupUUID"`
	Subject      string              `json:"subject"`
	Content      string              `json:"content"`
	TextContent  string              `json:"textContent,omitempty"`
	From         string              `json:"from,omitempty"`
	ReplyTo      string              `json:"replyTo,omitempty"`
	// Provider pins every email of the send to one registered provider,
	// bypassing primary/fallback selection.
	Provider   string      `json:"provider,omitempty"`
	Recipients []Recipient `json:"recipients"`
}

// Scope returns the identifiers every downstream call is tagged with.
func (r *SendRequest) Scope() Scope {
	return Scope{NewsletterID: r.NewsletterID, TenantID: r.TenantID, GroupUUID: r.GroupUUID}
}

// Scope correlates a piece of work with its newsletter, tenant and send attempt.
type Scope struct {
	NewsletterID kernel.NewsletterID `json:"newsletterId"`
	TenantID     kernel.TenantID     `json:"tenantId"`
	GroupUUID    kernel.GroupID      `json:"groupUUID"`
}

// Batch is a contiguous slice of recipients. Index is 1-based.
type Batch struct {
	Index      int
	Recipients []Recipient
}

// Partition splits recipients into batches of at most size, numbered 1..N
// in list order.
func Partition(recipients []Recipient, size int) []Batch {
	if size < 1 {
		size = 1
	}
	batches := make([]Batch, 0, (len(recipients)+size-1)/size)
	for start := 0; start < len(recipients); start += size {
		end := min(start+size, len(recipients))
		batches = append(batches, Batch{
			Index:      len(batches) + 1,
			Recipients: recipients[start:end:end],
		})
	}
	return batches
}

// EmailOutcome is the result of one recipient attempt. Deduplicated marks a
// recipient already delivered earlier in the same send attempt.
type EmailOutcome struct {
	RecipientID  kernel.RecipientID `json:"recipientId"`
	Success      bool               `json:"success"`
	MessageID    string             `json:"messageId,omitempty"`
	Error        string             `json:"error,omitempty"`
	Provider     string             `json:"provider,omitempty"`
	Deduplicated bool               `json:"deduplicated,omitempty"`
}

// BatchResult aggregates the outcomes of one batch.
// Successful + Failed always equals len(Results).
type BatchResult struct {
	BatchIndex int            `json:"batchIndex"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Results    []EmailOutcome `json:"results"`
}

// NewBatchResult counts outcomes into a BatchResult.
func NewBatchResult(index int, outcomes []EmailOutcome) BatchResult {
	res := BatchResult{BatchIndex: index, Results: outcomes}
	for _, o := range outcomes {
		if o.Success {
			res.Successful++
		} else {
			res.Failed++
		}
	}
	return res
}

// WorkflowResult is the terminal aggregate of one send.
// Successful + Failed always equals Total.
type WorkflowResult struct {
	NewsletterID kernel.NewsletterID `json:"newsletterId"`
	GroupUUID    kernel.GroupID      `json:"groupUUID"`
	Total        int                 `json:"total"`
	Successful   int                 `json:"successful"`
	Failed       int                 `json:"failed"`
	Status       Status              `json:"status"`
	CompletedAt  time.Time           `json:"completedAt"`
}

// Delivery is a ledger row: one recipient accepted by a provider within one
// send attempt.
type Delivery struct {
	GroupUUID    kernel.GroupID      `json:"groupUUID"`
	RecipientID  kernel.RecipientID  `json:"recipientId"`
	TenantID     kernel.TenantID     `json:"tenantId"`
	NewsletterID kernel.NewsletterID `json:"newsletterId"`
	MessageID    string              `json:"messageId"`
	Provider     string              `json:"provider"`
	DeliveredAt  time.Time           `json:"deliveredAt"`
}
