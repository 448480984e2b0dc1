package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/go-logr/logr"
	"github.com/tklauser/ps"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/syncmap"
)

// stopGracePeriod is how long a process gets to honor an interrupt signal
// before it is killed outright.
const stopGracePeriod = 2 * time.Second

// OSExecutor runs and stops operating system processes. Exit notifications
// are delivered exactly once per started process, including when the process
// is stopped because the start context was cancelled.
type OSExecutor struct {
	procs syncmap.Map[int32, *os.Process]
	log   logr.Logger
}

func NewOSExecutor(log logr.Logger) *OSExecutor {
	return &OSExecutor{
		log: log.WithName("os-executor"),
	}
}

func (e *OSExecutor) Start(ctx context.Context, cmd *exec.Cmd, exitHandler ExitHandler) (int32, time.Time, error) {
	if err := cmd.Start(); err != nil {
		return UnknownPID, time.Time{}, err
	}

	pid := int32(cmd.Process.Pid)
	startTime := time.Now()

	psProcess, psErr := ps.FindProcess(cmd.Process.Pid)
	if psErr != nil {
		e.log.V(1).Info("could not read process creation time", "PID", pid, "error", psErr.Error())
	} else {
		// The OS records the process startup timestamp; prefer it over our clock.
		startTime = psProcess.CreationTime()
	}

	e.procs.Store(pid, cmd.Process)

	waitDone := make(chan struct{})
	go func() {
		defer close(waitDone)
		waitErr := cmd.Wait()
		e.procs.Delete(pid)

		exitCode, execErr := exitResult(waitErr)
		if exitHandler != nil {
			exitHandler.OnProcessExited(pid, exitCode, execErr)
		}
	}()

	go func() {
		select {
		case <-waitDone:
		case <-ctx.Done():
			if err := e.Stop(pid); err != nil && !errors.Is(err, ErrProcessNotTracked) {
				e.log.Error(err, "failed to stop process on context cancellation", "PID", pid)
			}
		}
	}()

	return pid, startTime, nil
}

// Stop sends an interrupt to the process and escalates to a kill if the
// process is still around after the grace period. Returns
// ErrProcessNotTracked if the process already exited or was never started
// through this executor.
func (e *OSExecutor) Stop(pid int32) error {
	p, found := e.procs.Load(pid)
	if !found {
		return ErrProcessNotTracked
	}

	if err := p.Signal(os.Interrupt); err != nil {
		// Interrupt is not deliverable (e.g. unsupported on this platform,
		// or the process is gone); fall back to a hard kill.
		return p.Kill()
	}

	go func() {
		time.Sleep(stopGracePeriod)
		if _, still := e.procs.Load(pid); still {
			e.log.V(1).Info("process ignored interrupt, killing", "PID", pid)
			_ = p.Kill()
		}
	}()

	return nil
}

func exitResult(waitErr error) (int32, error) {
	if waitErr == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return int32(exitErr.ExitCode()), nil
	}

	return UnknownExitCode, waitErr
}

var _ Executor = (*OSExecutor)(nil)
