package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeGo_Success(t *testing.T) {
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "test task", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SafeGo did not execute function")
	}
}

func TestSafeGo_PanicRecovery(t *testing.T) {
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "panicking task", func(ctx context.Context) error {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("panicking task never ran")
	}
}

func TestGroup_WaitsForTasks(t *testing.T) {
	var g Group
	var count atomic.Int32

	for i := 0; i < 5; i++ {
		g.Go(context.Background(), time.Second, "counter", func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			count.Add(1)
			return nil
		})
	}

	require.NoError(t, g.Wait(context.Background()))
	assert.Equal(t, int32(5), count.Load())
}

func TestGroup_TimeoutCancelsTask(t *testing.T) {
	var g Group
	var cancelled atomic.Bool

	g.Go(context.Background(), 20*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})

	require.NoError(t, g.Wait(context.Background()))
	assert.True(t, cancelled.Load())
}

func TestGroup_WaitHonoursContext(t *testing.T) {
	var g Group
	release := make(chan struct{})
	defer close(release)

	g.Go(context.Background(), time.Minute, "blocked", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, g.Wait(ctx))
}

func TestInline_RunsSynchronously(t *testing.T) {
	ran := false
	Inline{}.Go(context.Background(), time.Second, "inline", func(ctx context.Context) error {
		ran = true
		return errors.New("logged, not returned")
	})
	assert.True(t, ran)

	assert.NotPanics(t, func() {
		Inline{}.Go(context.Background(), time.Second, "inline panic", func(ctx context.Context) error {
			panic("boom")
		})
	})
}
