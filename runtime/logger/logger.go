// Package logger provides structured logging for the compiler and runtime.
//
// This package wraps Go's standard log/slog with convenience functions for:
//   - Step and phase lifecycle logging
//   - Automatic secret/credential redaction
//   - Contextual logging with run and correlation tracing
//   - Level-based verbosity control
//
// All exported functions use the global DefaultLogger which can be configured
// for different output formats and log levels.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var (
	// DefaultLogger is the global structured logger instance.
	// It is safe for concurrent use and initialized with slog.LevelInfo by default.
	DefaultLogger *slog.Logger

	// currentLevel and currentFormat track the active configuration so that
	// SetLevel/SetOutput can reinitialize the logger without losing each other's state.
	currentLevel  slog.Level
	currentFormat = FormatText
	logOutput     io.Writer = os.Stderr

	// customHandler holds a handler installed via SetLogger. When set, SetLevel
	// and Configure leave it in place rather than replacing it.
	customHandler slog.Handler
)

func init() {
	currentLevel = slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		currentLevel = ParseLevel(envLevel)
	}
	if envFormat := os.Getenv("LOG_FORMAT"); strings.EqualFold(envFormat, FormatJSON) {
		currentFormat = FormatJSON
	}
	initLogger(currentLevel, nil)
}

// initLogger (re)builds DefaultLogger from currentFormat/logOutput, unless a
// custom handler was installed via SetLogger, in which case it is preserved.
func initLogger(level slog.Level, commonFields []slog.Attr) {
	if customHandler != nil {
		DefaultLogger = slog.New(customHandler)
		slog.SetDefault(DefaultLogger)
		return
	}

	opts := &slog.HandlerOptions{Level: level}
	var base slog.Handler
	if currentFormat == FormatJSON {
		base = slog.NewJSONHandler(logOutput, opts)
	} else {
		base = slog.NewTextHandler(logOutput, opts)
	}

	handler := NewContextHandler(base, commonFields...)
	DefaultLogger = slog.New(handler)
	slog.SetDefault(DefaultLogger)
}

// SetLevel changes the logging level for all subsequent log operations.
// This is safe for concurrent use as it replaces the entire logger instance.
func SetLevel(level slog.Level) {
	currentLevel = level
	initLogger(level, nil)
}

// SetVerbose enables debug-level logging when verbose is true, otherwise sets info-level.
// This is a convenience wrapper around SetLevel for command-line verbose flags.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// SetOutput redirects subsequent logging to w, preserving the current level and
// format. Passing nil resets output to stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logOutput = w
	initLogger(currentLevel, nil)
}

// SetLogger installs a caller-provided logger as DefaultLogger. Once installed,
// SetLevel and Configure leave it in place rather than constructing their own
// handler. Passing nil restores the package-managed logger.
func SetLogger(l *slog.Logger) {
	if l == nil {
		customHandler = nil
		initLogger(currentLevel, nil)
		return
	}
	customHandler = l.Handler()
	DefaultLogger = l
	slog.SetDefault(l)
}

// Info logs an informational message with structured key-value attributes.
// Args should be provided in key-value pairs: key1, value1, key2, value2, ...
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
// The context can be used for run tracing and cancellation.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
// Debug messages are only output when the log level is set to LevelDebug or lower.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
// Use for recoverable errors or unexpected but non-critical situations.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs a warning message with context and structured attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs an error message with structured attributes.
// Use for errors that affect operation but don't cause complete failure.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// ParseLevel converts a textual level name into an slog.Level.
// Unrecognized or empty input defaults to slog.LevelInfo.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return slog.LevelDebug - 4
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StepStarted logs the start of a step invocation within a run.
func StepStarted(ctx context.Context, step string, shape string, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs, "step", step, "shape", shape)
	allAttrs = append(allAttrs, attrs...)
	InfoContext(ctx, "step started", allAttrs...)
}

// StepCompleted logs the successful completion of a step invocation.
func StepCompleted(ctx context.Context, step string, durationMS int64, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs, "step", step, "duration_ms", durationMS)
	allAttrs = append(allAttrs, attrs...)
	InfoContext(ctx, "step completed", allAttrs...)
}

// StepFailed logs a step invocation failure, including whether it will be retried.
func StepFailed(ctx context.Context, step string, err error, attempt int, willRetry bool, attrs ...any) {
	allAttrs := make([]any, 0, 8+len(attrs))
	allAttrs = append(allAttrs,
		"step", step,
		"error", err,
		"attempt", attempt,
		"will_retry", willRetry,
	)
	allAttrs = append(allAttrs, attrs...)
	ErrorContext(ctx, "step failed", allAttrs...)
}

var (
	// secretPatterns contains compiled regular expressions for detecting sensitive data
	// carried in logged configuration values, headers, or error details.
	secretPatterns = []*regexp.Regexp{
		regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`),     // API-key-shaped secrets
		regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`),   // Google-style API keys
		regexp.MustCompile(`Bearer\s+[a-zA-Z0-9_-]+`), // Bearer tokens
	}
)

// RedactSensitiveData removes API keys and other sensitive information from strings.
// It replaces matched patterns with a redacted form that preserves the first few characters
// for debugging while hiding the sensitive portion.
//
// Supported patterns:
//   - API-key-shaped secrets (sk-...): shows first 4 chars
//   - Google-style keys (AIza...): shows first 4 chars
//   - Bearer tokens: shows only "Bearer [REDACTED]"
//
// This function is safe for concurrent use as it only reads from the compiled patterns.
func RedactSensitiveData(input string) string {
	result := input

	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if strings.HasPrefix(match, "Bearer ") {
				return "Bearer [REDACTED]"
			}
			// Show first 4 characters for debugging context
			if len(match) > 8 {
				return match[:4] + "...[REDACTED]"
			}
			return "[REDACTED]"
		})
	}

	return result
}
