package logx

import (
	"context"
	"fmt"

	"github.com/Abraxas-365/mailflow/pkg/kernel"
)

// Entry is a log entry carrying fields, reused through chained calls
type Entry struct {
	logger *Logger
	fields Fields
	err    error
}

func newEntry(logger *Logger) *Entry {
	return &Entry{logger: logger, fields: make(Fields)}
}

func (e *Entry) clone() *Entry {
	fields := make(Fields, len(e.fields)+1)
	for k, v := range e.fields {
		fields[k] = v
	}
	return &Entry{logger: e.logger, fields: fields, err: e.err}
}

// WithField adds a single field to the entry
func (e *Entry) WithField(key string, value interface{}) *Entry {
	n := e.clone()
	n.fields[key] = value
	return n
}

// WithFields adds multiple fields to the entry
func (e *Entry) WithFields(fields Fields) *Entry {
	n := e.clone()
	for k, v := range fields {
		n.fields[k] = v
	}
	return n
}

// WithError attaches an error to the entry
func (e *Entry) WithError(err error) *Entry {
	n := e.clone()
	n.err = err
	return n
}

// WithContext lifts tenant, request and job identifiers from ctx
func (e *Entry) WithContext(ctx context.Context) *Entry {
	n := e.clone()
	if ctx == nil {
		return n
	}
	if tenant, ok := kernel.TenantFromContext(ctx); ok {
		n.fields["tenant_id"] = tenant.String()
	}
	if rid, ok := kernel.RequestIDFromContext(ctx); ok {
		n.fields["request_id"] = rid
	}
	if jid, ok := kernel.JobIDFromContext(ctx); ok {
		n.fields["job_id"] = jid
	}
	return n
}

func (e *Entry) Trace(msg string) { e.logger.log(LevelTrace, msg, e.fields, e.err) }
func (e *Entry) Debug(msg string) { e.logger.log(LevelDebug, msg, e.fields, e.err) }
func (e *Entry) Info(msg string)  { e.logger.log(LevelInfo, msg, e.fields, e.err) }
func (e *Entry) Warn(msg string)  { e.logger.log(LevelWarn, msg, e.fields, e.err) }
func (e *Entry) Error(msg string) { e.logger.log(LevelError, msg, e.fields, e.err) }

// Fatal logs and exits the process
func (e *Entry) Fatal(msg string) {
	e.logger.log(LevelFatal, msg, e.fields, e.err)
	e.logger.exit(1)
}

func (e *Entry) Debugf(format string, args ...interface{}) {
	e.logger.log(LevelDebug, fmt.Sprintf(format, args...), e.fields, e.err)
}

func (e *Entry) Infof(format string, args ...interface{}) {
	e.logger.log(LevelInfo, fmt.Sprintf(format, args...), e.fields, e.err)
}

func (e *Entry) Warnf(format string, args ...interface{}) {
	e.logger.log(LevelWarn, fmt.Sprintf(format, args...), e.fields, e.err)
}

func (e *Entry) Errorf(format string, args ...interface{}) {
	e.logger.log(LevelError, fmt.Sprintf(format, args...), e.fields, e.err)
}

func (e *Entry) Fatalf(format string, args ...interface{}) {
	e.logger.log(LevelFatal, fmt.Sprintf(format, args...), e.fields, e.err)
	e.logger.exit(1)
}
