package service

import (
	"context"
	"time"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/bridge"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/host"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/oplock"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/results"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/resiliency"
)

// RunTests executes tests matching the pattern. Before acquiring the test
// lock the operation waits for any compile-class activity, including activity
// triggered by the host itself, so tests never run against an inconsistent
// build. After the process exits, the result tree is extracted with a bounded
// retry because the host's reporting pipeline populates it asynchronously.
func (s *Service) RunTests(ctx context.Context, req TestRequest) (resp TestResponse) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			resp = TestResponse{Error: panicError(resiliency.MakePanicError(panicVal, s.log))}
		}
	}()

	started := time.Now()

	project, err := s.env.ResolveProject(req.ProjectRef)
	if err != nil {
		return TestResponse{Error: classify(err)}
	}

	err = s.locks.WaitForExternalActivity(ctx, oplock.ClassBuild, s.timeouts.ExternalWait, s.timeouts.ExternalPoll, s.env.CompileActivityActive)
	if err != nil {
		return TestResponse{Error: classify(err)}
	}

	handle, err := s.locks.Acquire(ctx, oplock.ClassTest, s.timeouts.LockAcquire)
	if err != nil {
		return TestResponse{Error: classify(err)}
	}
	defer handle.Release()

	s.cache.Clear(oplock.ClassTest)

	tree := results.NewTree()
	timeout := operationTimeout(req.TimeoutSeconds, s.timeouts.Test)

	exitCode, err := bridge.Run(ctx, s.disp, timeout, func(c *bridge.Completion[int32]) {
		startErr := s.env.StartTests(host.TestRequest{Pattern: req.Pattern, Project: project}, tree, func(code int32, execErr error) {
			if execErr != nil {
				c.Fail(execErr)
				return
			}
			c.Resolve(code)
		})
		if startErr != nil {
			c.Fail(startErr)
		}
	})
	if err != nil {
		return TestResponse{Error: classify(err), TimeMs: time.Since(started).Milliseconds()}
	}

	summary, err := results.Extract(ctx, s.retry, tree.Roots, exitCode)
	if err != nil {
		return TestResponse{Error: classify(err), TimeMs: time.Since(started).Milliseconds()}
	}

	s.cache.Put(oplock.ClassTest, summary)

	return TestResponse{
		Success: summary.Failed == 0,
		Tests:   toTestCases(summary),
		TimeMs:  time.Since(started).Milliseconds(),
	}
}

func toTestCases(summary results.Summary) []TestCase {
	cases := make([]TestCase, len(summary.Cases))
	for i, c := range summary.Cases {
		cases[i] = TestCase{
			Name:       c.Name,
			Status:     string(c.Status),
			Defect:     string(c.Defect),
			Message:    c.Message,
			DurationMs: c.DurationMs,
		}
	}
	return cases
}
