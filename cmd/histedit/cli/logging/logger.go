// Package logging provides structured logging for histedit using slog.
//
// Usage:
//
//	// Initialize logger for one command invocation
//	if err := logging.Init(paths.LogsPath(gitDir), operationID); err != nil {
//	    // handle error
//	}
//	defer logging.Close()
//
//	// Add context values
//	ctx = logging.WithOperation(ctx, operationID)
//	ctx = logging.WithBranch(ctx, "main")
//
//	// Log with context - operation/branch extracted automatically
//	logging.Info(ctx, "rewrite finished",
//	    slog.Int("commits_rewritten", n),
//	)
package logging

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/entireio/histedit/cmd/histedit/cli/validation"
	"github.com/entireio/histedit/redact"
)

// LogLevelEnvVar is the environment variable that controls log level.
const LogLevelEnvVar = "HISTEDIT_LOG_LEVEL"

var (
	// logger is the package-level logger instance
	logger *slog.Logger

	// logFile holds the current log file handle for cleanup
	logFile *os.File

	// logBufWriter wraps logFile with buffered I/O for performance
	logBufWriter *bufio.Writer

	// currentOperationID stores the operation ID from Init() to include in all logs
	currentOperationID string

	// mu protects logger, logFile, logBufWriter, and currentOperationID
	mu sync.RWMutex

	// logLevelGetter is an optional callback to get log level from settings.
	// Set by SetLogLevelGetter before Init is called.
	logLevelGetter func() string
)

// SetLogLevelGetter sets a callback function to get the log level from settings.
// The callback is only used if HISTEDIT_LOG_LEVEL env var is not set.
func SetLogLevelGetter(getter func() string) {
	mu.Lock()
	defer mu.Unlock()
	logLevelGetter = getter
}

// Init initializes the logger for one operation, writing JSON logs to
// <logsDir>/<operation-id>.log.
//
// If the log file cannot be created, falls back to stderr.
// Log level is controlled by HISTEDIT_LOG_LEVEL environment variable.
func Init(logsDir, operationID string) error {
	// Validate operation ID to prevent path traversal
	if err := validation.ValidateOperationID(operationID); err != nil {
		return fmt.Errorf("invalid operation ID for logging: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	// Get log level from environment first, then settings
	levelStr := os.Getenv(LogLevelEnvVar)
	if levelStr == "" && logLevelGetter != nil {
		levelStr = logLevelGetter()
	}
	level := parseLogLevel(levelStr)

	if levelStr != "" && !isValidLogLevel(levelStr) {
		fmt.Fprintf(os.Stderr, "[histedit] Warning: invalid log level %q, defaulting to INFO\n", levelStr)
	}

	currentOperationID = operationID

	if err := os.MkdirAll(logsDir, 0o750); err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	logFilePath := filepath.Join(logsDir, operationID+".log")
	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // operationID validated above
	if err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	logFile = f
	logBufWriter = bufio.NewWriterSize(f, 8192) // 8KB buffer for batched writes
	logger = createLogger(logBufWriter, level)

	return nil
}

// Close flushes and closes the log file if one is open.
// Safe to call multiple times.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	currentOperationID = ""
}

func closeLocked() {
	if logBufWriter != nil {
		_ = logBufWriter.Flush()
		logBufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// resetLogger resets the logger to nil (for testing).
func resetLogger() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	logger = nil
	currentOperationID = ""
}

// getLogger returns the current logger, or a default stderr logger if not initialized.
func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	if logger == nil {
		return slog.Default()
	}
	return logger
}

// getOperationID returns the current operation ID (thread-safe).
func getOperationID() string {
	mu.RLock()
	defer mu.RUnlock()
	return currentOperationID
}

// createLogger creates a JSON logger writing to the given writer at the specified level.
func createLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// parseLogLevel parses a log level string to slog.Level.
// Returns slog.LevelInfo for empty or invalid values.
func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// isValidLogLevel checks if the given string is a valid log level.
func isValidLogLevel(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "":
		return true
	default:
		return false
	}
}

// Debug logs at DEBUG level with context values automatically extracted.
func Debug(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelDebug, msg, attrs...)
}

// Info logs at INFO level with context values automatically extracted.
func Info(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelInfo, msg, attrs...)
}

// Warn logs at WARN level with context values automatically extracted.
func Warn(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelWarn, msg, attrs...)
}

// Error logs at ERROR level with context values automatically extracted.
func Error(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelError, msg, attrs...)
}

// LogDuration logs a message with duration_ms calculated from the start time.
// Designed for use with defer:
//
//	defer logging.LogDuration(ctx, slog.LevelInfo, "rewrite completed", time.Now())
func LogDuration(ctx context.Context, level slog.Level, msg string, start time.Time, attrs ...any) {
	allAttrs := make([]any, 0, len(attrs)+1)
	allAttrs = append(allAttrs, slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	allAttrs = append(allAttrs, attrs...)

	log(ctx, level, msg, allAttrs...)
}

// log extracts context values and writes the record.
func log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	l := getLogger()
	if !l.Enabled(ctx, level) {
		return
	}

	var allAttrs []any

	// Operation ID from Init() comes first, context value only as fallback
	operationID := getOperationID()
	if operationID == "" {
		operationID = OperationIDFromContext(ctx)
	}
	if operationID != "" {
		allAttrs = append(allAttrs, slog.String("operation_id", operationID))
	}

	for _, a := range attrsFromContext(ctx) {
		allAttrs = append(allAttrs, a)
	}
	for _, a := range attrs {
		allAttrs = append(allAttrs, redactAttr(a))
	}

	l.Log(context.Background(), level, msg, allAttrs...)
}

// redactedKeys are the attribute keys that carry commit message text. Other
// string attributes hold ids, ref names, paths and error text and are written
// as is.
var redactedKeys = map[string]bool{
	"subject": true,
	"message": true,
}

// redactAttr masks secrets in message-derived string attributes.
func redactAttr(a any) any {
	attr, ok := a.(slog.Attr)
	if !ok || attr.Value.Kind() != slog.KindString || !redactedKeys[attr.Key] {
		return a
	}
	return slog.String(attr.Key, redact.String(attr.Value.String()))
}

// attrsFromContext extracts logging attributes other than the operation ID.
func attrsFromContext(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if s := CommandFromContext(ctx); s != "" {
		attrs = append(attrs, slog.String("command", s))
	}
	if s := ComponentFromContext(ctx); s != "" {
		attrs = append(attrs, slog.String("component", s))
	}
	if s := BranchFromContext(ctx); s != "" {
		attrs = append(attrs, slog.String("branch", s))
	}
	return attrs
}
