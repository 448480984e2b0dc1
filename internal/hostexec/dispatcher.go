// Package hostexec models the host environment's single application context.
// All state-mutating interaction with the host must be marshaled onto the
// dispatcher; it is never executed directly on a caller goroutine.
package hostexec

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/resiliency"
)

// ErrDispatcherClosed is returned by Dispatch after Close has been called.
var ErrDispatcherClosed = errors.New("application context dispatcher is closed")

const (
	queueDepth   = 256
	closeTimeout = 5 * time.Second
)

// Dispatcher executes submitted work items one at a time, in FIFO order, on a
// single goroutine. A panic in a work item is contained and logged; it never
// takes the dispatcher down.
type Dispatcher struct {
	jobs      chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	log       logr.Logger
}

func New(log logr.Logger) *Dispatcher {
	d := &Dispatcher{
		jobs: make(chan func(), queueDepth),
		quit: make(chan struct{}),
		done: make(chan struct{}),
		log:  log.WithName("dispatcher"),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.done)

	for {
		select {
		case f := <-d.jobs:
			d.invoke(f)
		case <-d.quit:
			// Drain whatever was accepted before the close.
			for {
				select {
				case f := <-d.jobs:
					d.invoke(f)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) invoke(f func()) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			_ = resiliency.MakePanicError(panicVal, d.log)
		}
	}()
	f()
}

// Dispatch enqueues f for execution on the application context. It blocks
// only if the queue is full, bounded by ctx.
func (d *Dispatcher) Dispatch(ctx context.Context, f func()) error {
	select {
	case <-d.quit:
		return ErrDispatcherClosed
	default:
	}

	select {
	case d.jobs <- f:
		return nil
	case <-d.quit:
		return ErrDispatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DispatchAndWait enqueues f and blocks until it has run, or ctx is done.
// If ctx expires first, f may still run later; the dispatcher does not
// cancel accepted work.
func (d *Dispatcher) DispatchAndWait(ctx context.Context, f func()) error {
	ran := make(chan struct{})
	err := d.Dispatch(ctx, func() {
		defer close(ran)
		f()
	})
	if err != nil {
		return err
	}

	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new work, runs what was already accepted, and waits
// (bounded) for the loop to exit. Safe to call multiple times.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.quit) })

	if !resiliency.RunWithTimeout(func() { <-d.done }, closeTimeout) {
		d.log.Info("dispatcher did not drain before timeout")
	}
}
