package errx

// Type represents the category of error
type Type string

const (
	// TypeInternal represents internal server errors
	TypeInternal Type = "INTERNAL"

	// TypeValidation represents malformed input rejected at a boundary
	TypeValidation Type = "VALIDATION"

	// TypeAuthorization represents authorization/authentication errors
	TypeAuthorization Type = "AUTHORIZATION"

	// TypeNotFound represents resource not found errors
	TypeNotFound Type = "NOT_FOUND"

	// TypeConflict represents state conflicts (e.g. an already terminal send)
	TypeConflict Type = "CONFLICT"

	// TypeExternal represents errors from external services (providers, Redis, Postgres)
	TypeExternal Type = "EXTERNAL"

	// TypeInterrupted represents work stopped by cancellation that can be resumed
	TypeInterrupted Type = "INTERRUPTED"
)

// String returns the string representation of the error type
func (t Type) String() string {
	return string(t)
}

// httpStatus maps error types to HTTP status codes
func (t Type) httpStatus() int {
	switch t {
	case TypeValidation:
		return 400
	case TypeAuthorization:
		return 401
	case TypeNotFound:
		return 404
	case TypeConflict:
		return 409
	case TypeExternal:
		return 502
	case TypeInterrupted:
		return 503
	default:
		return 500
	}
}
