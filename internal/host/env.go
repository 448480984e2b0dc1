// Package host defines the surface of the host development environment the
// bridge drives. The real host is an external collaborator; implementations
// adapt it to these interfaces. All state-mutating calls must happen on the
// application context dispatcher.
package host

import (
	"errors"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/debug"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/results"
)

// ErrNoProjectOpen is returned when an operation needs an open project and
// the host has none.
var ErrNoProjectOpen = errors.New("no project is open")

// Project identifies a resolved target project.
type Project struct {
	Name string
}

// Diagnostic is one build error or warning.
type Diagnostic struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

type CompileRequest struct {
	Incremental bool
	Project     Project
}

type CompileOutcome struct {
	Success  bool
	Errors   []Diagnostic
	Warnings []Diagnostic
	Aborted  bool
}

type TestRequest struct {
	Pattern string
	Project Project
}

// RunConfig is a named, launchable process configuration.
type RunConfig struct {
	Name    string
	Command []string
	Dir     string
	Env     []string
}

// Environment is the host development environment as seen by the bridge.
type Environment interface {
	// ProjectOpen reports whether any project is open.
	ProjectOpen() bool

	// ResolveProject maps a project reference to a project. An empty
	// reference resolves to the default project.
	ResolveProject(ref string) (Project, error)

	// Compile starts a build. Must be invoked on the application context;
	// done may be called from any goroutine, exactly once.
	Compile(req CompileRequest, done func(CompileOutcome, error))

	// CompileActivityActive reports whether a compile-class activity is in
	// progress, including one triggered by the host itself rather than
	// through this bridge.
	CompileActivityActive() bool

	// StartTests launches the test process. The result tree fills in
	// asynchronously while and after the process runs; exit is called
	// exactly once with the process exit code. Must be invoked on the
	// application context.
	StartTests(req TestRequest, tree *results.Tree, exit func(exitCode int32, err error)) error

	// RunConfiguration returns the named run configuration.
	RunConfiguration(name string) (RunConfig, bool)

	// DebugSession returns the active debug session, or nil if none.
	DebugSession() debug.Session
}
