package newsletter

import "github.com/Abraxas-365/mailflow/pkg/errx"

var newsletterErrors = errx.NewRegistry("NEWSLETTER")

var (
	ErrInvalidRequest    = newsletterErrors.Register("INVALID_REQUEST", errx.TypeValidation, 0, "Invalid newsletter send request")
	ErrInvalidTransition = newsletterErrors.Register("INVALID_TRANSITION", errx.TypeConflict, 0, "Invalid newsletter status transition")
	ErrProgressMismatch  = newsletterErrors.Register("PROGRESS_MISMATCH", errx.TypeConflict, 0, "Stored progress does not match the request")
	ErrSendNotFound      = newsletterErrors.Register("SEND_NOT_FOUND", errx.TypeNotFound, 0, "Newsletter send not found")
	ErrSendInProgress    = newsletterErrors.Register("SEND_IN_PROGRESS", errx.TypeConflict, 0, "Newsletter send has not finished")
	ErrInterrupted       = newsletterErrors.Register("INTERRUPTED", errx.TypeInterrupted, 0, "Newsletter send interrupted")
	ErrProgressStore     = newsletterErrors.Register("PROGRESS_STORE", errx.TypeExternal, 0, "Progress store unavailable")
	ErrLedger            = newsletterErrors.Register("LEDGER", errx.TypeExternal, 0, "Delivery ledger unavailable")
	ErrArchive           = newsletterErrors.Register("ARCHIVE", errx.TypeExternal, 0, "Delivery report archive unavailable")
	ErrReporting         = newsletterErrors.Register("REPORTING", errx.TypeExternal, 0, "Status reporting failed")
	ErrWorkflowPanic     = newsletterErrors.Register("WORKFLOW_PANIC", errx.TypeInternal, 0, "Newsletter workflow panicked")
	ErrQueue             = newsletterErrors.Register("QUEUE", errx.TypeExternal, 0, "Failed to enqueue newsletter send")
)

// Errors exposes the module registry to the service and adapter packages.
func Errors() *errx.Registry { return newsletterErrors }

// Interrupted builds the retryable error for a cancelled run.
func Interrupted(group string, cause error) error {
	return newsletterErrors.NewWithCause(ErrInterrupted, cause).WithDetail("groupUUID", group)
}
