// Package runs tracks concurrently running, externally launched processes:
// start, stop, list, bounded output capture and pruning of finished entries.
package runs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/io"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/process"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/syncmap"
)

// ErrRunNotFound is returned for an ID the registry does not know about.
var ErrRunNotFound = errors.New("run not found")

// StopOutcome reports what a stop request did.
type StopOutcome string

const (
	Stopped           StopOutcome = "stopped"
	AlreadyTerminated StopOutcome = "already-terminated"
)

// StartSpec describes a process-based run to launch. The command must not be
// started yet; the registry owns its output streams and its termination.
type StartSpec struct {
	ConfigName  string
	ProjectName string
	Cmd         *exec.Cmd
}

// Registry is the process-wide map of runs. All operations are safe under
// arbitrary concurrent callers.
type Registry struct {
	executor  process.Executor
	runs      syncmap.Map[RunID, *Run]
	seq       atomic.Uint64
	bufferCap int
	log       logr.Logger
}

func NewRegistry(log logr.Logger, executor process.Executor, bufferCap int) *Registry {
	return &Registry{
		executor:  executor,
		bufferCap: bufferCap,
		log:       log.WithName("runs"),
	}
}

// Start registers a new run and launches its process. The output sink and
// the exit handler are attached before launch, so early output and an
// immediate exit cannot be missed. Returns as soon as the process is observed
// started; it does not wait for completion.
func (r *Registry) Start(ctx context.Context, spec StartSpec) (RunID, error) {
	if spec.Cmd == nil {
		return "", fmt.Errorf("start spec has no command")
	}
	if spec.Cmd.Process != nil {
		return "", fmt.Errorf("command for config %q is already started", spec.ConfigName)
	}

	seq := r.seq.Add(1)
	run := &Run{
		id:          RunID(fmt.Sprintf("run-%d", seq)),
		seq:         seq,
		configName:  spec.ConfigName,
		projectName: spec.ProjectName,
		buf:         io.NewBoundedBuffer(r.bufferCap),
		startTime:   time.Now(),
		pid:         process.UnknownPID,
		running:     true,
	}

	spec.Cmd.Stdout = run.buf
	spec.Cmd.Stderr = run.buf

	pid, startTime, err := r.executor.Start(ctx, spec.Cmd, process.ExitHandlerFunc(func(_ int32, exitCode int32, execErr error) {
		run.markExited(exitCode, execErr)
		r.log.V(1).Info("run terminated", "runId", run.id, "exitCode", exitCode)
	}))
	if err != nil {
		return "", fmt.Errorf("failed to start run for config %q: %w", spec.ConfigName, err)
	}

	run.mu.Lock()
	run.pid = pid
	run.startTime = startTime
	run.mu.Unlock()

	r.runs.Store(run.id, run)
	r.log.Info("run started", "runId", run.id, "config", spec.ConfigName, "PID", pid)

	return run.id, nil
}

// Output reads the run's captured output. With clear set, the buffer is
// drained atomically so repeated reads never overlap.
func (r *Registry) Output(id RunID, clear bool) (OutputSnapshot, error) {
	run, found := r.runs.Load(id)
	if !found {
		return OutputSnapshot{}, fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}

	var text string
	truncated := run.buf.Truncated()
	if clear {
		text = run.buf.Drain()
	} else {
		text = run.buf.String()
	}

	running, exitCode, _, _ := run.snapshotState()
	return OutputSnapshot{
		Output:    text,
		Running:   running,
		ExitCode:  exitCode,
		Truncated: truncated,
	}, nil
}

// Stop requests termination of the run's process. Idempotent: stopping a run
// that already terminated reports AlreadyTerminated.
func (r *Registry) Stop(ctx context.Context, id RunID) (StopOutcome, error) {
	run, found := r.runs.Load(id)
	if !found {
		return "", fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}

	running, _, _, pid := run.snapshotState()
	if !running {
		return AlreadyTerminated, nil
	}

	if err := r.executor.Stop(pid); err != nil {
		if errors.Is(err, process.ErrProcessNotTracked) {
			// Lost the race with a natural exit; the exit handler owns the
			// terminal state.
			return AlreadyTerminated, nil
		}
		return "", fmt.Errorf("failed to stop run %q: %w", id, err)
	}

	r.log.Info("run stop requested", "runId", id, "PID", pid)
	return Stopped, nil
}

// List returns a snapshot of all registered runs, oldest first.
func (r *Registry) List() []Summary {
	type entry struct {
		seq uint64
		s   Summary
	}
	var entries []entry

	r.runs.Range(func(id RunID, run *Run) bool {
		running, exitCode, startTime, _ := run.snapshotState()
		entries = append(entries, entry{
			seq: run.seq,
			s: Summary{
				ID:          id,
				ConfigName:  run.configName,
				ProjectName: run.projectName,
				StartTime:   startTime,
				Running:     running,
				ExitCode:    exitCode,
			},
		})
		return true
	})

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	summaries := make([]Summary, len(entries))
	for i, e := range entries {
		summaries[i] = e.s
	}
	return summaries
}

// Prune removes entries that have terminated and are older than maxAge.
// Running entries are never removed, regardless of age.
func (r *Registry) Prune(maxAge time.Duration) int {
	removed := 0
	now := time.Now()

	r.runs.Range(func(id RunID, run *Run) bool {
		running, _, startTime, _ := run.snapshotState()
		if !running && now.Sub(startTime) > maxAge {
			r.runs.Delete(id)
			removed++
		}
		return true
	})

	if removed > 0 {
		r.log.V(1).Info("pruned terminated runs", "count", removed)
	}
	return removed
}
