// Package debug wraps callback-driven debug session operations into
// synchronous calls, each bounded by a short timeout future.
package debug

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/bridge"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/hostexec"
)

var (
	// ErrNoActiveSession is returned when there is no debug session to act on.
	ErrNoActiveSession = errors.New("no active debug session")

	// ErrSessionNotSuspended is returned when an operation requires the
	// debuggee to be paused and it is not.
	ErrSessionNotSuspended = errors.New("debug session is not suspended")

	// ErrEvaluatorUnavailable is returned when the session cannot evaluate
	// expressions (no evaluator in the current frame, or the adapter
	// rejected the request).
	ErrEvaluatorUnavailable = errors.New("expression evaluator is unavailable")
)

type StepKind int

const (
	StepOver StepKind = iota
	StepInto
	StepOut
)

// EvalResult is the outcome of an expression evaluation.
type EvalResult struct {
	Value string
	Type  string
}

// Session is the host-side debug session. All methods are callback-shaped:
// they start the operation and signal completion through the supplied
// callback, which may be invoked from any host goroutine. StackFrames and
// Variables deliver their results in one or more parts; the final part is
// marked with last=true and parts are delivered sequentially, never
// concurrently with each other.
type Session interface {
	ID() string
	Suspended() bool
	Pause(done func(err error))
	Resume(done func(err error))
	Step(kind StepKind, done func(err error))
	Evaluate(expression string, done func(res EvalResult, err error))
	StackFrames(deliver func(frames []dap.StackFrame, last bool, err error))
	Variables(frameIndex int, deliver func(vars []dap.Variable, last bool, err error))
}

// Facade exposes synchronous, timeout-bounded debug calls. Preconditions are
// validated before anything is dispatched onto the application context; an
// unmet precondition returns a typed error immediately.
type Facade struct {
	disp    *hostexec.Dispatcher
	current func() Session // nil result means no active session
	timeout time.Duration
	log     logr.Logger
}

func NewFacade(log logr.Logger, disp *hostexec.Dispatcher, current func() Session, timeout time.Duration) *Facade {
	return &Facade{
		disp:    disp,
		current: current,
		timeout: timeout,
		log:     log.WithName("debug"),
	}
}

func (f *Facade) active() (Session, error) {
	s := f.current()
	if s == nil {
		return nil, ErrNoActiveSession
	}
	return s, nil
}

func (f *Facade) suspendedSession() (Session, error) {
	s, err := f.active()
	if err != nil {
		return nil, err
	}
	if !s.Suspended() {
		return nil, ErrSessionNotSuspended
	}
	return s, nil
}

func (f *Facade) Pause(ctx context.Context) error {
	s, err := f.active()
	if err != nil {
		return err
	}
	return f.await(ctx, func(c *bridge.Completion[struct{}]) {
		s.Pause(doneToCompletion(c))
	})
}

func (f *Facade) Resume(ctx context.Context) error {
	s, err := f.suspendedSession()
	if err != nil {
		return err
	}
	return f.await(ctx, func(c *bridge.Completion[struct{}]) {
		s.Resume(doneToCompletion(c))
	})
}

func (f *Facade) Step(ctx context.Context, kind StepKind) error {
	s, err := f.suspendedSession()
	if err != nil {
		return err
	}
	return f.await(ctx, func(c *bridge.Completion[struct{}]) {
		s.Step(kind, doneToCompletion(c))
	})
}

func (f *Facade) Evaluate(ctx context.Context, expression string) (EvalResult, error) {
	s, err := f.suspendedSession()
	if err != nil {
		return EvalResult{}, err
	}
	return bridge.Run(ctx, f.disp, f.timeout, func(c *bridge.Completion[EvalResult]) {
		s.Evaluate(expression, func(res EvalResult, err error) {
			if err != nil {
				c.Fail(err)
				return
			}
			c.Resolve(res)
		})
	})
}

// StackFrames collects the session's stack, waiting within the timeout budget
// for the multi-part delivery to signal completion or an explicit error.
func (f *Facade) StackFrames(ctx context.Context) ([]dap.StackFrame, error) {
	s, err := f.suspendedSession()
	if err != nil {
		return nil, err
	}
	return bridge.Run(ctx, f.disp, f.timeout, func(c *bridge.Completion[[]dap.StackFrame]) {
		var acc []dap.StackFrame
		s.StackFrames(func(frames []dap.StackFrame, last bool, err error) {
			if err != nil {
				c.Fail(err)
				return
			}
			acc = append(acc, frames...)
			if last {
				c.Resolve(acc)
			}
		})
	})
}

// Variables enumerates the children of the given stack frame, accumulating
// parts until last=true.
func (f *Facade) Variables(ctx context.Context, frameIndex int) ([]dap.Variable, error) {
	s, err := f.suspendedSession()
	if err != nil {
		return nil, err
	}
	return bridge.Run(ctx, f.disp, f.timeout, func(c *bridge.Completion[[]dap.Variable]) {
		var acc []dap.Variable
		s.Variables(frameIndex, func(vars []dap.Variable, last bool, err error) {
			if err != nil {
				c.Fail(err)
				return
			}
			acc = append(acc, vars...)
			if last {
				c.Resolve(acc)
			}
		})
	})
}

func (f *Facade) await(ctx context.Context, work func(*bridge.Completion[struct{}])) error {
	_, err := bridge.Run(ctx, f.disp, f.timeout, work)
	return err
}

func doneToCompletion(c *bridge.Completion[struct{}]) func(error) {
	return func(err error) {
		if err != nil {
			c.Fail(err)
			return
		}
		c.Resolve(struct{}{})
	}
}
