//go:build unix

package process

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/testutil"
)

type recordingExitHandler struct {
	mu       sync.Mutex
	exited   chan struct{}
	exitCode int32
	err      error
}

func newRecordingExitHandler() *recordingExitHandler {
	return &recordingExitHandler{exited: make(chan struct{})}
}

func (h *recordingExitHandler) OnProcessExited(pid int32, exitCode int32, err error) {
	h.mu.Lock()
	h.exitCode = exitCode
	h.err = err
	h.mu.Unlock()
	close(h.exited)
}

func (h *recordingExitHandler) waitForExit(t *testing.T) (int32, error) {
	t.Helper()
	select {
	case <-h.exited:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for process exit notification")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode, h.err
}

func TestOSExecutorCapturesExitCode(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	e := NewOSExecutor(testutil.NewLogForTesting(t.Name()))
	h := newRecordingExitHandler()

	pid, startTime, err := e.Start(ctx, exec.Command("sh", "-c", "exit 3"), h)
	require.NoError(t, err)
	require.Greater(t, pid, int32(0))
	require.False(t, startTime.IsZero())

	exitCode, execErr := h.waitForExit(t)
	require.NoError(t, execErr)
	require.Equal(t, int32(3), exitCode)
}

func TestOSExecutorStopTerminatesProcess(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	e := NewOSExecutor(testutil.NewLogForTesting(t.Name()))
	h := newRecordingExitHandler()

	pid, _, err := e.Start(ctx, exec.Command("sleep", "300"), h)
	require.NoError(t, err)

	require.NoError(t, e.Stop(pid))

	exitCode, _ := h.waitForExit(t)
	require.NotEqual(t, int32(0), exitCode)

	// Stopping again reports the process as no longer tracked.
	require.ErrorIs(t, e.Stop(pid), ErrProcessNotTracked)
}

func TestOSExecutorStopsProcessOnContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := NewOSExecutor(testutil.NewLogForTesting(t.Name()))
	h := newRecordingExitHandler()

	_, _, err := e.Start(ctx, exec.Command("sleep", "300"), h)
	require.NoError(t, err)

	cancel()
	_, _ = h.waitForExit(t)
}
