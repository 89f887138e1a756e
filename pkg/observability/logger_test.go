package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("debug not logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message")
		assert.Zero(t, buf.Len())
	})

	t.Run("info logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Info("info message")
		entry := decodeLine(t, &buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "info message", entry["msg"])
	})

	t.Run("warn and error logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Warn("warn message")
		assert.NotZero(t, buf.Len())

		buf.Reset()
		logger.Error("error message")
		entry := decodeLine(t, &buf)
		assert.Equal(t, "ERROR", entry["level"])
		assert.Equal(t, "error message", entry["msg"])
	})
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("workspace_id", 7).
		WithFields(map[string]interface{}{"role": "editor"}).
		WithError(errors.New("boom")).
		Info("message")

	entry := decodeLine(t, &buf)
	assert.Equal(t, float64(7), entry["workspace_id"])
	assert.Equal(t, "editor", entry["role"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_WithNilError(t *testing.T) {
	logger := NewNopLogger()
	assert.Same(t, logger, logger.WithError(nil))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewLogger(InfoLevel, &buf))
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithUserID(ctx, "42")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Equal(t, "42", GetUserID(ctx))

	FromContext(ctx).Info("hello")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "42", entry["user_id"])
}

func TestFromContext_DefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(InfoLevel, &buf).WithField("service", "quill"))
	t.Cleanup(func() { SetDefault(nil) })

	FromContext(WithRequestID(context.Background(), "req-9")).Info("background")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "quill", entry["service"])
	assert.Equal(t, "req-9", entry["request_id"])
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
}
