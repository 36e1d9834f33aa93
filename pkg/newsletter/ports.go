package newsletter

import (
	"context"

	"github.com/Abraxas-365/mailflow/pkg/kernel"
)

// Reporter pushes status and activity events to the owning web service.
// Callers treat every error as non-fatal.
type Reporter interface {
	ReportStatus(ctx context.Context, scope Scope, status Status, metadata map[string]any) error
	LogActivity(ctx context.Context, scope Scope, activity Activity, details map[string]any) error
}

// ProgressStore persists workflow checkpoints keyed by group UUID.
type ProgressStore interface {
	// Load returns nil, nil when no checkpoint exists.
	Load(ctx context.Context, group kernel.GroupID) (*Progress, error)
	Save(ctx context.Context, p *Progress) error
}

// Ledger records accepted deliveries so retried batches skip them.
type Ledger interface {
	Delivered(ctx context.Context, group kernel.GroupID, ids []kernel.RecipientID) (map[kernel.RecipientID]Delivery, error)
	Record(ctx context.Context, deliveries []Delivery) error
}

// Archive stores per-batch and summary delivery reports.
type Archive interface {
	SaveBatch(ctx context.Context, scope Scope, result BatchResult) error
	SaveSummary(ctx context.Context, scope Scope, result WorkflowResult) error
	// LoadSummary returns nil, nil when no summary was archived.
	LoadSummary(ctx context.Context, scope Scope) (*WorkflowResult, error)
	// LoadBatches returns archived batch reports ordered by batch index.
	LoadBatches(ctx context.Context, scope Scope) ([]BatchResult, error)
}
