package process

import (
	"context"
	"errors"
	"os/exec"
	"time"
)

const (
	// A valid exit code is a non-negative number. UnknownExitCode indicates
	// the exit code has not been obtained (yet).
	UnknownExitCode int32 = -1

	// UnknownPID is used when a process is not started or failed to start.
	UnknownPID int32 = -1
)

// ErrProcessNotTracked is returned by Stop for a PID the executor does not
// know about (never started through it, or already exited and reaped).
var ErrProcessNotTracked = errors.New("process is not tracked by the executor")

type Executor interface {
	// Start launches the process described by cmd. The exit handler is
	// invoked exactly once, when the process terminates. When the passed
	// context is cancelled, the process is stopped automatically.
	// Returns the PID and the observed process start time.
	Start(ctx context.Context, cmd *exec.Cmd, exitHandler ExitHandler) (pid int32, startTime time.Time, err error)

	// Stop requests termination of the process with the given PID.
	Stop(pid int32) error
}

type ExitHandler interface {
	// OnProcessExited indicates the process with the given PID has finished.
	// If err is nil, exitCode is valid; otherwise tracking failed and
	// exitCode is UnknownExitCode.
	OnProcessExited(pid int32, exitCode int32, err error)
}

// ExitHandlerFunc makes it easy to supply a function as an exit handler.
type ExitHandlerFunc func(pid int32, exitCode int32, err error)

func (f ExitHandlerFunc) OnProcessExited(pid int32, exitCode int32, err error) {
	f(pid, exitCode, err)
}
