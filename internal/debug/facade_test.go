package debug

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/bridge"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/hostexec"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/testutil"
)

// fakeSession scripts callback behavior without a real debug adapter.
type fakeSession struct {
	suspended bool

	pauseErr   error
	evalResult EvalResult
	evalErr    error

	frameParts [][]dap.StackFrame
	varParts   [][]dap.Variable
	partsErr   error
	neverDone  bool
}

func (f *fakeSession) ID() string      { return "fake" }
func (f *fakeSession) Suspended() bool { return f.suspended }

func (f *fakeSession) Pause(done func(error)) {
	if f.neverDone {
		return
	}
	done(f.pauseErr)
}

func (f *fakeSession) Resume(done func(error))         { done(nil) }
func (f *fakeSession) Step(_ StepKind, done func(error)) { done(nil) }

func (f *fakeSession) Evaluate(_ string, done func(EvalResult, error)) {
	done(f.evalResult, f.evalErr)
}

func (f *fakeSession) StackFrames(deliver func([]dap.StackFrame, bool, error)) {
	if f.partsErr != nil {
		deliver(nil, false, f.partsErr)
		return
	}
	for i, part := range f.frameParts {
		deliver(part, i == len(f.frameParts)-1, nil)
	}
}

func (f *fakeSession) Variables(_ int, deliver func([]dap.Variable, bool, error)) {
	if f.neverDone {
		// Parts arrive but the last=true signal never does.
		if len(f.varParts) > 0 {
			deliver(f.varParts[0], false, nil)
		}
		return
	}
	for i, part := range f.varParts {
		deliver(part, i == len(f.varParts)-1, nil)
	}
}

func newTestFacade(t *testing.T, s Session, timeout time.Duration) (*Facade, func()) {
	d := hostexec.New(testutil.NewLogForTesting(t.Name()))
	f := NewFacade(testutil.NewLogForTesting(t.Name()), d, func() Session { return s }, timeout)
	return f, d.Close
}

func TestFacadeRequiresActiveSession(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	f, closeDisp := newTestFacade(t, nil, time.Second)
	defer closeDisp()

	require.ErrorIs(t, f.Pause(ctx), ErrNoActiveSession)
	_, err := f.Evaluate(ctx, "x")
	require.ErrorIs(t, err, ErrNoActiveSession)
}

func TestFacadeRequiresSuspensionForSteppingAndInspection(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	s := &fakeSession{suspended: false}
	f, closeDisp := newTestFacade(t, s, time.Second)
	defer closeDisp()

	require.ErrorIs(t, f.Resume(ctx), ErrSessionNotSuspended)
	require.ErrorIs(t, f.Step(ctx, StepOver), ErrSessionNotSuspended)
	_, err := f.StackFrames(ctx)
	require.ErrorIs(t, err, ErrSessionNotSuspended)
	_, err = f.Variables(ctx, 0)
	require.ErrorIs(t, err, ErrSessionNotSuspended)

	// Pause has no suspension precondition.
	require.NoError(t, f.Pause(ctx))
}

func TestFacadeEvaluate(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	s := &fakeSession{suspended: true, evalResult: EvalResult{Value: "42", Type: "int"}}
	f, closeDisp := newTestFacade(t, s, time.Second)
	defer closeDisp()

	res, err := f.Evaluate(ctx, "answer")
	require.NoError(t, err)
	require.Equal(t, "42", res.Value)
	require.Equal(t, "int", res.Type)
}

func TestFacadeAccumulatesMultiPartResults(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	s := &fakeSession{
		suspended: true,
		frameParts: [][]dap.StackFrame{
			{{Id: 1, Name: "main"}},
			{{Id: 2, Name: "helper"}, {Id: 3, Name: "leaf"}},
		},
		varParts: [][]dap.Variable{
			{{Name: "a", Value: "1"}},
			{{Name: "b", Value: "2"}},
		},
	}
	f, closeDisp := newTestFacade(t, s, time.Second)
	defer closeDisp()

	frames, err := f.StackFrames(ctx)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	require.Equal(t, "leaf", frames[2].Name)

	vars, err := f.Variables(ctx, 0)
	require.NoError(t, err)
	require.Len(t, vars, 2)
}

func TestFacadeTimesOutWhenLastPartNeverArrives(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	s := &fakeSession{
		suspended: true,
		neverDone: true,
		varParts:  [][]dap.Variable{{{Name: "a"}}},
	}
	f, closeDisp := newTestFacade(t, s, 100*time.Millisecond)
	defer closeDisp()

	_, err := f.Variables(ctx, 0)
	require.ErrorIs(t, err, bridge.ErrOperationTimeout)

	require.ErrorIs(t, f.Pause(ctx), bridge.ErrOperationTimeout)
}

func TestFacadePropagatesSessionErrors(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	partsErr := errors.New("adapter rejected stackTrace")
	s := &fakeSession{suspended: true, partsErr: partsErr}
	f, closeDisp := newTestFacade(t, s, time.Second)
	defer closeDisp()

	_, err := f.StackFrames(ctx)
	require.ErrorIs(t, err, partsErr)
}
