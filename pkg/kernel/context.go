package kernel

import "context"

// ContextKey is the type of keys stored in context.Context by this module.
type ContextKey string

const (
	TenantContextKey ContextKey = "tenant_id"
	RequestIDKey     ContextKey = "request_id"
	JobIDKey         ContextKey = "job_id"
)

// WithTenant returns a copy of ctx carrying the tenant.
func WithTenant(ctx context.Context, tenant TenantID) context.Context {
	return context.WithValue(ctx, TenantContextKey, tenant)
}

// TenantFromContext returns the tenant stored by WithTenant.
func TenantFromContext(ctx context.Context) (TenantID, bool) {
	t, ok := ctx.Value(TenantContextKey).(TenantID)
	return t, ok && !t.IsEmpty()
}

// WithRequestID returns a copy of ctx carrying an inbound request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithJobID returns a copy of ctx carrying the job being processed.
func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, JobIDKey, id)
}

// RequestIDFromContext returns the request ID stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(RequestIDKey).(string)
	return id, ok && id != ""
}

// JobIDFromContext returns the job ID stored by WithJobID.
func JobIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(JobIDKey).(string)
	return id, ok && id != ""
}
