// Package localdev adapts a local command-line toolchain to the
// host.Environment interface: builds and tests are configured commands, run
// configurations are launchable process specs, and the debug session is an
// optional DAP adapter connection.
package localdev

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/debug"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/host"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/results"
	pkgio "github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/io"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/process"
)

type Options struct {
	ProjectName  string
	WorkDir      string
	BuildCommand []string
	TestCommand  []string // the test pattern is appended as the final argument
	RunConfigs   []host.RunConfig
	OutputCap    int
}

type Environment struct {
	lifetimeCtx context.Context
	opts        Options
	executor    process.Executor
	log         logr.Logger

	compilesActive atomic.Int32

	sessionMu sync.Mutex
	session   debug.Session
}

func New(lifetimeCtx context.Context, log logr.Logger, executor process.Executor, opts Options) *Environment {
	if opts.OutputCap <= 0 {
		opts.OutputCap = 256 * 1024
	}
	return &Environment{
		lifetimeCtx: lifetimeCtx,
		opts:        opts,
		executor:    executor,
		log:         log.WithName("localdev"),
	}
}

func (e *Environment) ProjectOpen() bool {
	return e.opts.ProjectName != ""
}

func (e *Environment) ResolveProject(ref string) (host.Project, error) {
	if !e.ProjectOpen() {
		return host.Project{}, host.ErrNoProjectOpen
	}
	if ref == "" || ref == e.opts.ProjectName {
		return host.Project{Name: e.opts.ProjectName}, nil
	}
	return host.Project{}, fmt.Errorf("unknown project %q", ref)
}

func (e *Environment) Compile(req host.CompileRequest, done func(host.CompileOutcome, error)) {
	if len(e.opts.BuildCommand) == 0 {
		done(host.CompileOutcome{}, fmt.Errorf("no build command is configured"))
		return
	}

	args := e.opts.BuildCommand
	buf := pkgio.NewBoundedBuffer(e.opts.OutputCap)

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = e.opts.WorkDir
	cmd.Env = os.Environ()
	cmd.Stdout = buf
	cmd.Stderr = buf

	e.compilesActive.Add(1)

	_, _, err := e.executor.Start(e.lifetimeCtx, cmd, process.ExitHandlerFunc(func(_ int32, exitCode int32, execErr error) {
		e.compilesActive.Add(-1)
		if execErr != nil {
			done(host.CompileOutcome{}, execErr)
			return
		}
		done(parseBuildOutput(buf.String(), exitCode), nil)
	}))
	if err != nil {
		e.compilesActive.Add(-1)
		done(host.CompileOutcome{}, fmt.Errorf("failed to start build command: %w", err))
	}
}

func (e *Environment) CompileActivityActive() bool {
	return e.compilesActive.Load() > 0
}

func (e *Environment) StartTests(req host.TestRequest, tree *results.Tree, exit func(exitCode int32, err error)) error {
	if len(e.opts.TestCommand) == 0 {
		return fmt.Errorf("no test command is configured")
	}

	args := append([]string{}, e.opts.TestCommand...)
	if req.Pattern != "" {
		args = append(args, req.Pattern)
	}

	buf := pkgio.NewBoundedBuffer(e.opts.OutputCap)

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = e.opts.WorkDir
	cmd.Env = os.Environ()
	cmd.Stdout = buf
	cmd.Stderr = buf

	_, _, err := e.executor.Start(e.lifetimeCtx, cmd, process.ExitHandlerFunc(func(_ int32, exitCode int32, execErr error) {
		if execErr == nil {
			// The reporting side fills the tree in after termination; the
			// extraction retry loop on the caller side absorbs the delay.
			populateTree(tree, buf.String())
		}
		exit(exitCode, execErr)
	}))
	if err != nil {
		return fmt.Errorf("failed to start test command: %w", err)
	}
	return nil
}

func (e *Environment) RunConfiguration(name string) (host.RunConfig, bool) {
	for _, rc := range e.opts.RunConfigs {
		if rc.Name == name {
			return rc, true
		}
	}
	return host.RunConfig{}, false
}

func (e *Environment) DebugSession() debug.Session {
	e.sessionMu.Lock()
	defer e.sessionMu.Unlock()
	return e.session
}

// SetDebugSession attaches (or with nil, detaches) the active debug session.
func (e *Environment) SetDebugSession(s debug.Session) {
	e.sessionMu.Lock()
	defer e.sessionMu.Unlock()
	e.session = s
}

var _ host.Environment = (*Environment)(nil)
