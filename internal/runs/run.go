package runs

import (
	"sync"
	"time"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/io"
)

// RunID is an opaque identifier issued by the registry. IDs are unique and
// strictly increasing for the lifetime of the process.
type RunID string

// Run tracks one externally launched process: its captured output, liveness
// and exit status. Mutated by the process exit handler and by explicit stop
// requests; the buffer has its own lock so output capture for one run never
// contends with reads of another.
type Run struct {
	id          RunID
	seq         uint64
	configName  string
	projectName string

	buf *io.BoundedBuffer

	mu        sync.Mutex
	startTime time.Time
	pid       int32
	running   bool
	exitCode  *int32
	exitErr   error
}

// markExited is the single terminal transition for a run. A stop request and
// a naturally observed exit race into the same place; whichever the exit
// handler reports first wins and the ordering is deliberately not assumed.
func (r *Run) markExited(exitCode int32, execErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.running = false
	r.exitErr = execErr
	if execErr == nil {
		ec := exitCode
		r.exitCode = &ec
	}
}

func (r *Run) snapshotState() (running bool, exitCode *int32, startTime time.Time, pid int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running, r.exitCode, r.startTime, r.pid
}

// OutputSnapshot is the result of reading a run's captured output.
type OutputSnapshot struct {
	Output    string
	Running   bool
	ExitCode  *int32
	Truncated bool
}

// Summary is a point-in-time view of a run for listings.
type Summary struct {
	ID          RunID
	ConfigName  string
	ProjectName string
	StartTime   time.Time
	Running     bool
	ExitCode    *int32
}
