package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/platinummonkey/quill/pkg/contextkeys"
)

// LogLevel is the minimum severity a Logger writes
type LogLevel = slog.Level

const (
	DebugLevel = slog.LevelDebug
	InfoLevel  = slog.LevelInfo
	WarnLevel  = slog.LevelWarn
	ErrorLevel = slog.LevelError
)

// ParseLevel maps QUILL_LOG_LEVEL to a LogLevel; unknown values mean info
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger writes one JSON object per line. Derived loggers share the output
// and carry their parent's fields.
type Logger struct {
	logger *slog.Logger
}

// NewLogger returns a JSON logger writing to output, or stdout when nil
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	return &Logger{logger: slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level}))}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return NewLogger(ErrorLevel, io.Discard)
}

func (l *Logger) with(args ...interface{}) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(key, value)
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.with(args...)
}

// WithError records err under "error"; a nil err returns l unchanged
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

func (l *Logger) Debug(message string) { l.logger.Debug(message) }
func (l *Logger) Info(message string)  { l.logger.Info(message) }
func (l *Logger) Warn(message string)  { l.logger.Warn(message) }
func (l *Logger) Error(message string) { l.logger.Error(message) }

var defaultLogger atomic.Pointer[Logger]

// SetDefault sets the logger FromContext falls back to when a context
// carries none, such as background tasks started outside a request
func SetDefault(logger *Logger) {
	defaultLogger.Store(logger)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return contextkeys.WithRequestID(ctx, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	return contextkeys.GetRequestID(ctx)
}

// WithUserID adds the authenticated user's ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return contextkeys.WithUserID(ctx, userID)
}

// GetUserID retrieves the authenticated user's ID from context
func GetUserID(ctx context.Context) string {
	return contextkeys.GetUserID(ctx)
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return contextkeys.WithLogger(ctx, logger)
}

// GetLogger returns the context's logger, then the default set by
// SetDefault, then an info level stdout logger
func GetLogger(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextkeys.LoggerKey).(*Logger); ok {
		return logger
	}
	if logger := defaultLogger.Load(); logger != nil {
		return logger
	}
	return NewLogger(InfoLevel, os.Stdout)
}

// FromContext returns GetLogger tagged with the request ID, user ID and
// trace IDs found in ctx
func FromContext(ctx context.Context) *Logger {
	logger := GetLogger(ctx)
	if requestID := GetRequestID(ctx); requestID != "" {
		logger = logger.WithField("request_id", requestID)
	}
	if userID := GetUserID(ctx); userID != "" {
		logger = logger.WithField("user_id", userID)
	}
	return UpdateLoggerWithTraceContext(ctx, logger)
}
