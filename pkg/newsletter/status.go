package newsletter

// Status is the externally visible state of a newsletter send.
type Status string

const (
	StatusPending       Status = "pending"
	StatusSending       Status = "sending"
	StatusSent          Status = "sent"
	StatusPartiallySent Status = "partially_sent"
	StatusFailed        Status = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusPartiallySent || s == StatusFailed
}

// CanTransitionTo enforces pending -> sending -> {sent, partially_sent, failed}.
// Any non-terminal state may also go straight to failed.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusSending || next == StatusFailed
	case StatusSending:
		return next.IsTerminal()
	default:
		return false
	}
}

// FinalStatus derives the terminal status from the aggregate counts.
func FinalStatus(total, failed int) Status {
	switch {
	case failed == 0:
		return StatusSent
	case failed >= total:
		return StatusFailed
	default:
		return StatusPartiallySent
	}
}

// Activity names an audit-log event.
type Activity string

const (
	ActivityWorkflowStarted   Activity = "workflow_started"
	ActivityBatchCompleted    Activity = "batch_completed"
	ActivityBatchFailed       Activity = "batch_failed"
	ActivityWorkflowCompleted Activity = "workflow_completed"
	ActivityWorkflowFailed    Activity = "workflow_failed"
)
