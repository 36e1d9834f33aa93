package newsletter

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/Abraxas-365/mailflow/pkg/errx"
	"github.com/google/uuid"
)

// Validate rejects malformed requests before they reach the workflow.
// requireFrom is set when no default sender is configured.
func (r *SendRequest) Validate(requireFrom bool) error {
	switch {
	case r.NewsletterID.IsEmpty():
		return invalid("newsletterId is required", "newsletterId")
	case r.TenantID.IsEmpty():
		return invalid("tenantId is required", "tenantId")
	case strings.TrimSpace(r.Subject) == "":
		return invalid("subject is required", "subject")
	case strings.TrimSpace(r.Content) == "":
		return invalid("content is required", "content")
	case len(r.Recipients) == 0:
		return invalid("at least one recipient is required", "recipients")
	}

	if !r.GroupUUID.IsEmpty() {
		if _, err := uuid.Parse(r.GroupUUID.String()); err != nil {
			return invalid("groupUUID must be a UUID", "groupUUID")
		}
	}
	if r.From == "" && requireFrom {
		return invalid("from is required when no default sender is configured", "from")
	}
	if r.From != "" {
		if _, err := mail.ParseAddress(r.From); err != nil {
			return invalid("from is not a valid address", "from")
		}
	}
	if r.ReplyTo != "" {
		if _, err := mail.ParseAddress(r.ReplyTo); err != nil {
			return invalid("replyTo is not a valid address", "replyTo")
		}
	}

	for i, rc := range r.Recipients {
		if rc.ID.IsEmpty() {
			return invalid(fmt.Sprintf("recipient %d has no id", i), "recipients").
				WithDetail("index", i)
		}
	}
	return nil
}

// ValidEmail reports whether email is a bare RFC 5322 address. A recipient
// failing this check is a per-recipient failure, not a request error.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func invalid(reason, field string) *errx.Error {
	return newsletterErrors.NewWithMessage(ErrInvalidRequest, "Invalid newsletter send request: "+reason).
		WithDetail("field", field)
}
