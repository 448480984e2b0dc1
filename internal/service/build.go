package service

import (
	"context"
	"time"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/bridge"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/host"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/oplock"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/resiliency"
)

// StartBuild runs a build to completion, serialized against other build-class
// operations. On timeout the caller gets OperationTimeout while the host-side
// build may keep running; that is a documented property of the bridge.
func (s *Service) StartBuild(ctx context.Context, req BuildRequest) (resp BuildResponse) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			resp = BuildResponse{Error: panicError(resiliency.MakePanicError(panicVal, s.log))}
		}
	}()

	started := time.Now()

	project, err := s.env.ResolveProject(req.ProjectRef)
	if err != nil {
		return BuildResponse{Error: classify(err)}
	}

	handle, err := s.locks.Acquire(ctx, oplock.ClassBuild, s.timeouts.LockAcquire)
	if err != nil {
		return BuildResponse{Error: classify(err)}
	}
	defer handle.Release()

	s.cache.Clear(oplock.ClassBuild)

	timeout := operationTimeout(req.TimeoutSeconds, s.timeouts.Build)
	outcome, err := bridge.Run(ctx, s.disp, timeout, func(c *bridge.Completion[host.CompileOutcome]) {
		s.env.Compile(host.CompileRequest{Incremental: req.Incremental, Project: project}, func(o host.CompileOutcome, compileErr error) {
			if compileErr != nil {
				c.Fail(compileErr)
				return
			}
			c.Resolve(o)
		})
	})
	if err != nil {
		return BuildResponse{Error: classify(err), TimeMs: time.Since(started).Milliseconds()}
	}

	s.cache.Put(oplock.ClassBuild, outcome)

	return BuildResponse{
		Success:  outcome.Success,
		Errors:   emptyIfNil(outcome.Errors),
		Warnings: emptyIfNil(outcome.Warnings),
		TimeMs:   time.Since(started).Milliseconds(),
		Aborted:  outcome.Aborted,
	}
}

func emptyIfNil(d []host.Diagnostic) []host.Diagnostic {
	if d == nil {
		return []host.Diagnostic{}
	}
	return d
}
