package logx

import (
	"context"
	"fmt"
	"io"
	"sync"
)

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

func init() {
	defaultLogger = NewLogger(LoadFromEnv())
}

// SetDefaultLogger replaces the package-level logger
func SetDefaultLogger(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// GetDefaultLogger returns the package-level logger
func GetDefaultLogger() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetLevel sets the default logger level
func SetLevel(level Level) { GetDefaultLogger().SetLevel(level) }

// SetOutput sets the default logger output
func SetOutput(w io.Writer) { GetDefaultLogger().SetOutput(w) }

func Debug(msg string) { GetDefaultLogger().log(LevelDebug, msg, nil, nil) }
func Info(msg string)  { GetDefaultLogger().log(LevelInfo, msg, nil, nil) }
func Warn(msg string)  { GetDefaultLogger().log(LevelWarn, msg, nil, nil) }
func Error(msg string) { GetDefaultLogger().log(LevelError, msg, nil, nil) }

// Fatal logs at fatal level and exits
func Fatal(msg string) {
	l := GetDefaultLogger()
	l.log(LevelFatal, msg, nil, nil)
	l.exit(1)
}

func Debugf(format string, args ...interface{}) {
	GetDefaultLogger().log(LevelDebug, fmt.Sprintf(format, args...), nil, nil)
}

func Infof(format string, args ...interface{}) {
	GetDefaultLogger().log(LevelInfo, fmt.Sprintf(format, args...), nil, nil)
}

func Warnf(format string, args ...interface{}) {
	GetDefaultLogger().log(LevelWarn, fmt.Sprintf(format, args...), nil, nil)
}

func Errorf(format string, args ...interface{}) {
	GetDefaultLogger().log(LevelError, fmt.Sprintf(format, args...), nil, nil)
}

func Fatalf(format string, args ...interface{}) {
	l := GetDefaultLogger()
	l.log(LevelFatal, fmt.Sprintf(format, args...), nil, nil)
	l.exit(1)
}

// WithFields creates an entry on the default logger
func WithFields(fields Fields) *Entry { return GetDefaultLogger().WithFields(fields) }

// WithField creates an entry on the default logger
func WithField(key string, value interface{}) *Entry {
	return GetDefaultLogger().WithField(key, value)
}

// WithContext creates an entry carrying request-scoped identifiers
func WithContext(ctx context.Context) *Entry { return newEntry(GetDefaultLogger()).WithContext(ctx) }

// WithError creates an entry on the default logger
func WithError(err error) *Entry { return GetDefaultLogger().WithError(err) }
