package logx

import (
	"io"
	"os"
	"strings"
	"time"
)

// Level represents logging level
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	// LevelOff disables all logging
	LevelOff
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a Level, defaulting to info
func ParseLevel(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	case "OFF":
		return LevelOff
	default:
		return LevelInfo
	}
}

// Enabled reports whether a message at target passes a logger set to l
func (l Level) Enabled(target Level) bool {
	return l <= target
}

// Format represents the output format
type Format string

const (
	FormatConsole    Format = "console"
	FormatJSON       Format = "json"
	FormatCloudWatch Format = "cloudwatch"
)

// Config holds the logger configuration
type Config struct {
	Level           Level
	Format          Format
	EnableColors    bool
	EnableCaller    bool
	EnableTimestamp bool

	// TimeFormat is a Go layout, or "unix"/"unixmilli"
	TimeFormat string

	// RedactPII masks email addresses in field values
	RedactPII bool

	// Output defaults to os.Stdout
	Output io.Writer
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Level:           LevelInfo,
		Format:          FormatConsole,
		EnableColors:    true,
		EnableTimestamp: true,
		TimeFormat:      time.RFC3339,
		RedactPII:       true,
		Output:          os.Stdout,
	}
}

// LoadFromEnv loads configuration from LOG_* environment variables
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = ParseLevel(level)
	}

	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		config.Format = FormatJSON
	case "cloudwatch":
		config.Format = FormatCloudWatch
	case "console":
		config.Format = FormatConsole
	}

	if v := os.Getenv("LOG_COLOR"); v != "" {
		config.EnableColors = isTrue(v)
	}
	if v := os.Getenv("LOG_CALLER"); v != "" {
		config.EnableCaller = isTrue(v)
	}
	if v := os.Getenv("LOG_REDACT_PII"); v != "" {
		config.RedactPII = isTrue(v)
	}

	if timeFormat := os.Getenv("LOG_TIME_FORMAT"); timeFormat != "" {
		switch strings.ToUpper(timeFormat) {
		case "RFC3339":
			config.TimeFormat = time.RFC3339
		case "RFC3339NANO":
			config.TimeFormat = time.RFC3339Nano
		case "UNIX":
			config.TimeFormat = "unix"
		case "UNIXMILLI":
			config.TimeFormat = "unixmilli"
		default:
			config.TimeFormat = timeFormat
		}
	}

	return config
}

func isTrue(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
