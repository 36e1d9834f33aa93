package notifx

import "github.com/Abraxas-365/mailflow/pkg/errx"

var notifxErrors = errx.NewRegistry("NOTIFX")

var (
	ErrSendFailed         = notifxErrors.Register("SEND_FAILED", errx.TypeExternal, 502, "Failed to send email")
	ErrInvalidMessage     = notifxErrors.Register("INVALID_MESSAGE", errx.TypeValidation, 400, "Invalid email message")
	ErrNoProvider         = notifxErrors.Register("NO_PROVIDER", errx.TypeInternal, 500, "No email provider configured")
	ErrUnknownProvider    = notifxErrors.Register("UNKNOWN_PROVIDER", errx.TypeValidation, 400, "Unknown email provider")
	ErrMissingCredentials = notifxErrors.Register("MISSING_CREDENTIALS", errx.TypeInternal, 500, "Email provider credentials are missing")
	ErrDuplicateProvider  = notifxErrors.Register("DUPLICATE_PROVIDER", errx.TypeInternal, 500, "Email provider registered twice")
)

// MissingCredentials builds the error provider constructors return when a
// required secret is not configured.
func MissingCredentials(provider, setting string) error {
	return notifxErrors.New(ErrMissingCredentials).
		WithDetail("provider", provider).
		WithDetail("setting", setting)
}

// SendFailed wraps a provider error with the provider name.
func SendFailed(provider string, cause error) error {
	return notifxErrors.NewWithCause(ErrSendFailed, cause).WithDetail("provider", provider)
}

// UnknownProvider is returned when configuration names a provider that
// does not exist.
func UnknownProvider(name string) error {
	return notifxErrors.NewWithMessage(ErrUnknownProvider, "unknown email provider: "+name).
		WithDetail("provider", name)
}
