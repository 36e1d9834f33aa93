package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Formatter is the interface for log formatters
type Formatter interface {
	Format(entry *LogEntry) ([]byte, error)
}

// LogEntry represents a single log entry
type LogEntry struct {
	Level     Level
	Message   string
	Fields    Fields
	Error     error
	Timestamp time.Time
	Caller    string
}

// Fields is a map of structured data
type Fields map[string]interface{}

// newFormatter picks the formatter for config.Format, console by default
func newFormatter(config *Config) Formatter {
	switch config.Format {
	case FormatJSON:
		return &JSONFormatter{config: config, levelKey: "level", msgKey: "message", timeKey: "timestamp"}
	case FormatCloudWatch:
		return &JSONFormatter{config: config, levelKey: "level", msgKey: "msg", timeKey: "time"}
	default:
		return &ConsoleFormatter{config: config}
	}
}

func formatTimestamp(t time.Time, format string) string {
	switch format {
	case "unix":
		return fmt.Sprintf("%d", t.Unix())
	case "unixmilli":
		return fmt.Sprintf("%d", t.UnixMilli())
	default:
		return t.Format(format)
	}
}

// JSONFormatter writes one JSON object per line. The CloudWatch variant only
// renames the standard keys.
type JSONFormatter struct {
	config   *Config
	levelKey string
	msgKey   string
	timeKey  string
}

// Format formats a log entry as JSON
func (f *JSONFormatter) Format(entry *LogEntry) ([]byte, error) {
	data := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		data[k] = v
	}

	data[f.levelKey] = entry.Level.String()
	data[f.msgKey] = entry.Message

	if f.config.EnableTimestamp {
		switch f.config.TimeFormat {
		case "unix":
			data[f.timeKey] = entry.Timestamp.Unix()
		case "unixmilli":
			data[f.timeKey] = entry.Timestamp.UnixMilli()
		default:
			data[f.timeKey] = entry.Timestamp.Format(time.RFC3339Nano)
		}
	}
	if f.config.EnableCaller && entry.Caller != "" {
		data["caller"] = entry.Caller
	}
	if entry.Error != nil {
		data["error"] = entry.Error.Error()
	}

	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

const (
	colorReset      = "\033[0m"
	colorRed        = "\033[31m"
	colorCyan       = "\033[36m"
	colorGray       = "\033[90m"
	colorWhite      = "\033[97m"
	colorBoldRed    = "\033[1;31m"
	colorBoldYellow = "\033[1;33m"
	colorBoldCyan   = "\033[1;36m"
	colorBoldGreen  = "\033[1;32m"
)

// ConsoleFormatter formats logs for humans. Fields are printed sorted by key.
type ConsoleFormatter struct {
	config *Config
}

// Format formats a log entry for console output
func (f *ConsoleFormatter) Format(entry *LogEntry) ([]byte, error) {
	var b strings.Builder

	if f.config.EnableTimestamp {
		f.paint(&b, colorGray, formatTimestamp(entry.Timestamp, f.config.TimeFormat))
		b.WriteString(" ")
	}

	b.WriteString(f.formatLevel(entry.Level))
	b.WriteString(" ")

	if f.config.EnableCaller && entry.Caller != "" {
		f.paint(&b, colorGray, "["+entry.Caller+"]")
		b.WriteString(" ")
	}

	f.paint(&b, colorWhite, entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			if k == "error" && entry.Error != nil {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, entry.Fields[k]))
		}
		if len(pairs) > 0 {
			b.WriteString(" ")
			f.paint(&b, colorCyan, strings.Join(pairs, " "))
		}
	}

	if entry.Error != nil {
		b.WriteString("\n")
		f.paint(&b, colorRed, "  error: "+entry.Error.Error())
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}

func (f *ConsoleFormatter) paint(b *strings.Builder, color, s string) {
	if !f.config.EnableColors {
		b.WriteString(s)
		return
	}
	b.WriteString(color)
	b.WriteString(s)
	b.WriteString(colorReset)
}

func (f *ConsoleFormatter) formatLevel(level Level) string {
	if !f.config.EnableColors {
		return fmt.Sprintf("[%-5s]", level.String())
	}

	switch level {
	case LevelDebug:
		return colorBoldCyan + "[DEBUG]" + colorReset
	case LevelInfo:
		return colorBoldGreen + "[INFO ]" + colorReset
	case LevelWarn:
		return colorBoldYellow + "[WARN ]" + colorReset
	case LevelError, LevelFatal:
		return fmt.Sprintf("%s[%-5s]%s", colorBoldRed, level.String(), colorReset)
	default:
		return fmt.Sprintf("%s[%-5s]%s", colorGray, level.String(), colorReset)
	}
}
