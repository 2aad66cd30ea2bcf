package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelDebug
)

// ParseLogLevel parses a log level string.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelError:
		return "error"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LogLevelOff:
		return zerolog.Disabled
	case LogLevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Logger writes leveled, structured log lines through zerolog.
// File output is JSON; console output uses zerolog's console writer.
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	zl       zerolog.Logger
	file     *os.File
	filePath string
}

// NewLogger creates a logger appending JSON lines to filePath.
// With LogLevelOff or an empty path the logger discards everything.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	if level == LogLevelOff || filePath == "" {
		l := NullLogger()
		l.level = level
		l.filePath = filePath
		return l, nil
	}

	filePath, err := expandHome(filePath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, err
	}

	// #nosec G304 -- log file path is from validated config
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &Logger{
		level:    level,
		zl:       zerolog.New(f).Level(level.zerolog()).With().Timestamp().Logger(),
		file:     f,
		filePath: filePath,
	}, nil
}

// NewConsoleLogger creates a logger writing to w, as JSON lines when json
// is set and in zerolog's console format otherwise.
func NewConsoleLogger(w io.Writer, level LogLevel, json bool) *Logger {
	out := w
	if !json {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: true}
	}
	return &Logger{
		level: level,
		zl:    zerolog.New(out).Level(level.zerolog()).With().Timestamp().Logger(),
	}
}

// With returns a logger tagging every line with component. It shares the
// parent's output; closing it is a no-op.
func (l *Logger) With(component string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		level:    l.level,
		zl:       l.zl.With().Str("component", component).Logger(),
		filePath: l.filePath,
	}
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// SetLevel changes the log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.zl = l.zl.Level(level.zerolog())
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// FilePath returns the resolved log file path.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}

// Writer returns an io.Writer that writes to the logger at the specified level.
func (l *Logger) Writer(level LogLevel) io.Writer {
	return &logWriter{logger: l, level: level}
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level == LogLevelOff || level > l.level {
		return
	}
	if level == LogLevelDebug {
		l.zl.Debug().Msg(fmt.Sprintf(format, args...))
		return
	}
	l.zl.Error().Msg(fmt.Sprintf(format, args...))
}

// logWriter implements io.Writer for the logger.
type logWriter struct {
	logger *Logger
	level  LogLevel
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.logger.log(w.level, "%s", strings.TrimSpace(string(p)))
	return len(p), nil
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{level: LogLevelOff, zl: zerolog.Nop()}
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}
