// Package logger provides the GORM-style logger used across slackhub.
// Any implementation of Logger can be plugged in (zap, logrus, slog adapters).
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// Silent suppresses all log output.
	Silent LogLevel = iota + 1
	// Error only logs error messages.
	Error
	// Warn logs warnings and errors.
	Warn
	// Info logs informational messages, warnings, and errors.
	Info
	// Debug logs all messages including debug information.
	Debug
)

// String returns the lower-case name of the level.
func (l LogLevel) String() string {
	switch l {
	case Silent:
		return "silent"
	case Error:
		return "error"
	case Warn:
		return "warn"
	case Info:
		return "info"
	case Debug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel maps a level name to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "silent", "off", "none":
		return Silent, nil
	case "error":
		return Error, nil
	case "warn", "warning":
		return Warn, nil
	case "info":
		return Info, nil
	case "debug":
		return Debug, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// Logger is the interface that wraps the basic logging methods.
// Args are structured key-value pairs, slog style.
type Logger interface {
	// LogMode sets the log level and returns a new logger instance.
	LogMode(level LogLevel) Logger
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// StandardLogger is the default Logger, backed by the standard log package.
type StandardLogger struct {
	logger *log.Logger
	level  LogLevel
	prefix string
}

// NewStandardLogger creates a logger writing through writer.
func NewStandardLogger(writer *log.Logger, level LogLevel, prefix string) Logger {
	return &StandardLogger{
		logger: writer,
		level:  level,
		prefix: prefix,
	}
}

// NewWriter creates a logger writing to w with the default prefix.
func NewWriter(w io.Writer, level LogLevel) Logger {
	return NewStandardLogger(log.New(w, "", log.LstdFlags), level, "[slackhub]")
}

// LogMode sets the log level and returns a new logger instance.
func (l *StandardLogger) LogMode(level LogLevel) Logger {
	newLogger := *l
	newLogger.level = level
	return &newLogger
}

// Info logs routine events such as a delivered message.
func (l *StandardLogger) Info(msg string, args ...any) { l.emit(Info, "INFO", msg, args) }

// Warn logs problems the caller recovered from.
func (l *StandardLogger) Warn(msg string, args ...any) { l.emit(Warn, "WARN", msg, args) }

func (l *StandardLogger) Error(msg string, args ...any) { l.emit(Error, "ERROR", msg, args) }

// Debug is silent unless the logger runs at Debug.
func (l *StandardLogger) Debug(msg string, args ...any) { l.emit(Debug, "DEBUG", msg, args) }

func (l *StandardLogger) emit(at LogLevel, tag, msg string, args []any) {
	if l.level < at {
		return
	}
	l.logger.Print(l.formatLog(tag, msg, args...))
}

func (l *StandardLogger) formatLog(level, msg string, args ...any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", l.prefix, level, msg)
	for i := 0; i < len(args); i += 2 {
		var val any = "(no value)"
		if i+1 < len(args) {
			val = args[i+1]
		}
		fmt.Fprintf(&b, " %v=%v", args[i], val)
	}
	return b.String()
}

// discardLogger satisfies Logger and drops everything, whatever the level.
type discardLogger struct{}

func (d *discardLogger) LogMode(LogLevel) Logger { return d }
func (d *discardLogger) Info(string, ...any)     {}
func (d *discardLogger) Warn(string, ...any)     {}
func (d *discardLogger) Error(string, ...any)    {}
func (d *discardLogger) Debug(string, ...any)    {}

// Discard is a logger that discards all output.
var Discard Logger = &discardLogger{}

// New returns a logger that writes to stderr at the given level.
func New(level LogLevel) Logger {
	return NewWriter(os.Stderr, level)
}
