package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	assert.NotPanics(t, func() {
		defer RecoverPanic(logger, "test task")
		panic("boom")
	})
	assert.Contains(t, buf.String(), "PANIC recovered")
	assert.Contains(t, buf.String(), `"context":"test task"`)
	assert.Contains(t, buf.String(), `"panic":"boom"`)
}
