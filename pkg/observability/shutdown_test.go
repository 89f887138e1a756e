package observability

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShutdownManager_Defaults(t *testing.T) {
	sm := NewShutdownManager(nil, nil, 0)
	assert.Equal(t, 30*time.Second, sm.shutdownTimeout)
	assert.NotNil(t, sm.logger)

	sm.Register("nil", nil)
	assert.Empty(t, sm.shutdownFuncs)
}

func TestShutdownManager_ReverseOrder(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), nil, time.Second)

	var order []string
	for _, name := range []string{"database", "redis", "otel"} {
		name := name
		sm.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sm.Shutdown(context.Background()))
	assert.Equal(t, []string{"otel", "redis", "database"}, order)
}

func TestShutdownManager_ContinuesAfterFailure(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), nil, time.Second)

	ran := false
	sm.Register("database", func(context.Context) error {
		ran = true
		return nil
	})
	sm.Register("redis", func(context.Context) error {
		return errors.New("already closed")
	})

	err := sm.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: already closed")
	assert.True(t, ran)
}

func TestShutdownManager_WaitForShutdown(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:0"}
	sm := NewShutdownManager(NewNopLogger(), server, time.Second)

	closed := make(chan struct{})
	sm.Register("marker", func(context.Context) error {
		close(closed)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sm.WaitForShutdown(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForShutdown did not return")
	}
	<-closed
}
