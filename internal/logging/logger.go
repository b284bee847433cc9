package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

// Logger writes log messages to a file through hclog
type Logger struct {
	mu     sync.Mutex
	file   io.WriteCloser
	logger hclog.Logger
}

// Global logger instance (accessed atomically for thread-safety)
var globalLogger atomic.Pointer[Logger]

// Init initializes the global logger with the specified file path
// If path is empty, logging is disabled
func Init(path string) error {
	if path == "" {
		return nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	InitWriter(file, hclog.Debug)

	// Write header
	Info("=== CZDS Client Log Started ===")

	return nil
}

// InitWriter installs a global logger writing to w at the given level.
// w is closed by Close if it implements io.Closer.
func InitWriter(w io.Writer, level hclog.Level) {
	wc, ok := w.(io.WriteCloser)
	if !ok {
		wc = nopCloser{w}
	}

	logger := &Logger{
		file: wc,
		logger: hclog.New(&hclog.LoggerOptions{
			Name:       "czds",
			Level:      level,
			Output:     w,
			TimeFormat: "2006-01-02 15:04:05",
		}),
	}
	if old := globalLogger.Swap(logger); old != nil {
		old.close()
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Close closes the global logger, ensuring all pending writes complete first.
func Close() {
	if logger := globalLogger.Swap(nil); logger != nil {
		logger.close()
	}
}

func (l *Logger) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil // Prevent writes to closed file
	}
}

// Info logs an info message
func Info(format string, args ...any) {
	if logger := globalLogger.Load(); logger != nil {
		logger.log(hclog.Info, format, args...)
	}
}

// Error logs an error message
func Error(format string, args ...any) {
	if logger := globalLogger.Load(); logger != nil {
		logger.log(hclog.Error, format, args...)
	}
}

// Warn logs a warning message
func Warn(format string, args ...any) {
	if logger := globalLogger.Load(); logger != nil {
		logger.log(hclog.Warn, format, args...)
	}
}

// Debug logs a debug message
func Debug(format string, args ...any) {
	if logger := globalLogger.Load(); logger != nil {
		logger.log(hclog.Debug, format, args...)
	}
}

func (l *Logger) log(level hclog.Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Check if file was closed (race with Close())
	if l.file == nil {
		return
	}
	l.logger.Log(level, fmt.Sprintf(format, args...))
}

// Named returns an hclog.Logger for components that take one (e.g. retryablehttp).
// Returns a null logger when logging is disabled.
func Named(name string) hclog.Logger {
	if logger := globalLogger.Load(); logger != nil {
		return logger.logger.Named(name)
	}
	return hclog.NewNullLogger()
}

// IsEnabled returns true if logging is enabled
func IsEnabled() bool {
	return globalLogger.Load() != nil
}

// RedactToken shortens a bearer credential for log output
func RedactToken(token string) string {
	if len(token) <= 6 {
		return "[REDACTED]"
	}
	return token[:4] + "...[REDACTED]"
}
