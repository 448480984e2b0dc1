package runs

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/process"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/testutil"
)

// fakeExecutor lets tests drive output and exit without real processes.
type fakeExecutor struct {
	mu        sync.Mutex
	nextPid   int32
	cmds      map[int32]*exec.Cmd
	handlers  map[int32]process.ExitHandler
	startTime time.Time
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		cmds:      make(map[int32]*exec.Cmd),
		handlers:  make(map[int32]process.ExitHandler),
		startTime: time.Now(),
	}
}

func (f *fakeExecutor) Start(_ context.Context, cmd *exec.Cmd, h process.ExitHandler) (int32, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPid++
	pid := f.nextPid
	f.cmds[pid] = cmd
	f.handlers[pid] = h
	return pid, f.startTime, nil
}

func (f *fakeExecutor) Stop(pid int32) error {
	f.mu.Lock()
	h, found := f.handlers[pid]
	delete(f.handlers, pid)
	f.mu.Unlock()

	if !found {
		return process.ErrProcessNotTracked
	}
	h.OnProcessExited(pid, 130, nil)
	return nil
}

func (f *fakeExecutor) emitOutput(pid int32, text string) {
	f.mu.Lock()
	cmd := f.cmds[pid]
	f.mu.Unlock()
	_, _ = cmd.Stdout.Write([]byte(text))
}

func (f *fakeExecutor) exit(pid int32, code int32) {
	f.mu.Lock()
	h, found := f.handlers[pid]
	delete(f.handlers, pid)
	f.mu.Unlock()
	if found {
		h.OnProcessExited(pid, code, nil)
	}
}

func newTestRegistry(t *testing.T) (*Registry, *fakeExecutor) {
	f := newFakeExecutor()
	return NewRegistry(testutil.NewLogForTesting(t.Name()), f, 64*1024), f
}

func startSpec(name string) StartSpec {
	return StartSpec{
		ConfigName:  name,
		ProjectName: "demo",
		Cmd:         exec.Command("unused"),
	}
}

func TestRunIDsAreUniqueAndStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	r, _ := newTestRegistry(t)

	seen := make(map[RunID]bool)
	prev := 0
	for i := 0; i < 20; i++ {
		id, err := r.Start(ctx, startSpec(fmt.Sprintf("cfg-%d", i)))
		require.NoError(t, err)
		require.False(t, seen[id])
		seen[id] = true

		n, convErr := strconv.Atoi(strings.TrimPrefix(string(id), "run-"))
		require.NoError(t, convErr)
		require.Greater(t, n, prev)
		prev = n
	}
}

func TestOutputClearReturnsNonOverlappingText(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	r, f := newTestRegistry(t)

	id, err := r.Start(ctx, startSpec("Build"))
	require.NoError(t, err)

	f.emitOutput(1, "first chunk\n")

	snap, err := r.Output(id, true)
	require.NoError(t, err)
	require.Equal(t, "first chunk\n", snap.Output)
	require.True(t, snap.Running)

	f.emitOutput(1, "second chunk\n")

	snap, err = r.Output(id, true)
	require.NoError(t, err)
	require.Equal(t, "second chunk\n", snap.Output, "a second clear read must never repeat prior text")
}

func TestOutputReportsExitState(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	r, f := newTestRegistry(t)

	id, err := r.Start(ctx, startSpec("Server"))
	require.NoError(t, err)

	f.exit(1, 2)

	snap, err := r.Output(id, false)
	require.NoError(t, err)
	require.False(t, snap.Running)
	require.NotNil(t, snap.ExitCode)
	require.Equal(t, int32(2), *snap.ExitCode)
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	r, _ := newTestRegistry(t)

	id, err := r.Start(ctx, startSpec("Server"))
	require.NoError(t, err)

	outcome, err := r.Stop(ctx, id)
	require.NoError(t, err)
	require.Equal(t, Stopped, outcome)

	outcome, err = r.Stop(ctx, id)
	require.NoError(t, err)
	require.Equal(t, AlreadyTerminated, outcome)
}

func TestStopUnknownRun(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	r, _ := newTestRegistry(t)
	_, err := r.Stop(ctx, RunID("run-999"))
	require.ErrorIs(t, err, ErrRunNotFound)

	_, err = r.Output(RunID("run-999"), false)
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestPruneRemovesOnlyOldTerminatedRuns(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	f := newFakeExecutor()
	f.startTime = time.Now().Add(-time.Hour)
	r := NewRegistry(testutil.NewLogForTesting(t.Name()), f, 64*1024)

	oldRunning, err := r.Start(ctx, startSpec("old-running"))
	require.NoError(t, err)
	oldDone, err := r.Start(ctx, startSpec("old-done"))
	require.NoError(t, err)
	f.exit(2, 0)

	removed := r.Prune(30 * time.Minute)
	require.Equal(t, 1, removed)

	// The running entry survives regardless of age, even with a zero maxAge.
	removed = r.Prune(0)
	require.Equal(t, 0, removed)

	_, err = r.Output(oldRunning, false)
	require.NoError(t, err)
	_, err = r.Output(oldDone, false)
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestListReturnsSnapshotOldestFirst(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	r, f := newTestRegistry(t)

	first, err := r.Start(ctx, startSpec("a"))
	require.NoError(t, err)
	second, err := r.Start(ctx, startSpec("b"))
	require.NoError(t, err)
	f.exit(1, 0)

	list := r.List()
	require.Len(t, list, 2)
	require.Equal(t, first, list[0].ID)
	require.Equal(t, second, list[1].ID)
	require.False(t, list[0].Running)
	require.True(t, list[1].Running)
}
