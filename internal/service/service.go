// Package service orchestrates the bridge core: per-class locking, dispatch
// onto the application context, timeout-bounded completion, the run registry
// and result extraction, behind the request/response contracts other
// components call into.
package service

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/debug"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/host"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/hostexec"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/oplock"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/results"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/runs"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/resiliency"
)

// Timeouts holds the per-concern time budgets. Build and test run for
// minutes; debug calls are expected to return in seconds.
type Timeouts struct {
	Build        time.Duration
	Test         time.Duration
	Debug        time.Duration
	LockAcquire  time.Duration
	ExternalWait time.Duration
	ExternalPoll time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Build:        5 * time.Minute,
		Test:         10 * time.Minute,
		Debug:        10 * time.Second,
		LockAcquire:  15 * time.Second,
		ExternalWait: 2 * time.Minute,
		ExternalPoll: 250 * time.Millisecond,
	}
}

// Service is the process-wide singleton bridging callers to the host
// environment. It is explicitly constructed and passed by reference; there is
// no ambient global instance.
type Service struct {
	timeouts Timeouts
	retry    resiliency.FixedRetryPolicy

	locks *oplock.Set
	disp  *hostexec.Dispatcher
	env   host.Environment
	runs  *runs.Registry
	cache *results.Cache
	debug *debug.Facade
	log   logr.Logger
}

func New(log logr.Logger, timeouts Timeouts, retry resiliency.FixedRetryPolicy, disp *hostexec.Dispatcher, env host.Environment, registry *runs.Registry) *Service {
	s := &Service{
		timeouts: timeouts,
		retry:    retry,
		locks:    oplock.NewSet(log, oplock.ClassBuild, oplock.ClassTest),
		disp:     disp,
		env:      env,
		runs:     registry,
		cache:    results.NewCache(),
		log:      log.WithName("service"),
	}
	s.debug = debug.NewFacade(log, disp, env.DebugSession, timeouts.Debug)
	return s
}

// Locks exposes the lock set for diagnostics (reset).
func (s *Service) Locks() *oplock.Set { return s.locks }

// LastResult returns the cached most recent result of an operation class.
func (s *Service) LastResult(class oplock.Class) (any, bool) {
	return s.cache.Get(class)
}

// PruneRuns removes terminated runs older than maxAge from the registry.
func (s *Service) PruneRuns(maxAge time.Duration) int {
	return s.runs.Prune(maxAge)
}

// Shutdown stops the application context dispatcher. In-flight dispatched
// work is drained; callers blocked on futures get their results or time out.
func (s *Service) Shutdown() {
	s.disp.Close()
}

// operationTimeout picks the effective budget for an operation: the
// request's explicit timeoutSeconds if positive, else the configured default.
func operationTimeout(requested int, fallback time.Duration) time.Duration {
	if requested > 0 {
		return time.Duration(requested) * time.Second
	}
	return fallback
}
