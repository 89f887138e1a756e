package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/platinummonkey/quill/pkg/observability"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement
// - Error logging through the request logger in parentCtx
//
// Use this instead of bare `go func()` to prevent goroutine leaks and crashes.
//
// Example:
//
//	SafeGo(ctx, 10*time.Second, "invitation email", func(ctx context.Context) error {
//	    return sender.Send(ctx, to, subject, body)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go run(parentCtx, timeout, taskName, fn)
}

func run(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	logger := observability.FromContext(parentCtx).WithField("task", taskName)
	defer observability.RecoverPanic(logger, taskName)

	if err := fn(ctx); err != nil {
		logger.WithError(err).Warn("background task failed")
	}
}

// Group tracks fire-and-forget tasks so shutdown can wait for them to drain.
// The zero value is ready to use.
type Group struct {
	wg sync.WaitGroup
}

// Go runs fn like SafeGo and tracks it until it returns
func (g *Group) Go(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		run(parentCtx, timeout, taskName, fn)
	}()
}

// Wait blocks until all tracked tasks finish or ctx is done
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("background tasks still running at shutdown")
	}
}

// Inline runs tasks synchronously on the caller's goroutine with the same
// timeout, panic and error handling as Group. Useful in tests and CLIs.
type Inline struct{}

// Go runs fn before returning
func (Inline) Go(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	run(parentCtx, timeout, taskName, fn)
}
