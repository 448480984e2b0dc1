// Package bridge converts callback-based completion signals from the host's
// application context into futures a caller goroutine can block on with a
// hard timeout.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/hostexec"
)

// ErrOperationTimeout is returned when the host did not signal completion
// within the operation's timeout. The dispatched work may still be running;
// the bridge never cancels host-side work it does not own.
var ErrOperationTimeout = errors.New("operation timed out")

// Completion is a single-use future. Resolve and Fail are idempotent: the
// first call wins, later calls are ignored. Safe to call from any goroutine.
type Completion[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func NewCompletion[T any]() *Completion[T] {
	return &Completion[T]{
		done: make(chan struct{}),
	}
}

func (c *Completion[T]) Resolve(v T) {
	c.once.Do(func() {
		c.val = v
		close(c.done)
	})
}

func (c *Completion[T]) Fail(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

// Await blocks until the completion is resolved or ctx is done.
func (c *Completion[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		return *new(T), ctx.Err()
	}
}

// Run schedules work onto the application context and blocks the calling
// goroutine until the work resolves the supplied completion, or the timeout
// elapses. The work function receives the completion and must arrange for
// exactly one Resolve or Fail; completion may arrive from any goroutine the
// host-side work hands it to.
func Run[T any](ctx context.Context, disp *hostexec.Dispatcher, timeout time.Duration, work func(*Completion[T])) (T, error) {
	c := NewCompletion[T]()

	if err := disp.Dispatch(ctx, func() { work(c) }); err != nil {
		return *new(T), err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return c.val, c.err
	case <-timer.C:
		return *new(T), fmt.Errorf("no completion within %v: %w", timeout, ErrOperationTimeout)
	case <-ctx.Done():
		return *new(T), ctx.Err()
	}
}
