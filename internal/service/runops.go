package service

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/runs"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/resiliency"
)

// StartRun launches the named run configuration as an independently tracked
// process. Returns as soon as the process is observed started.
func (s *Service) StartRun(ctx context.Context, req StartRunRequest) (resp StartRunResponse) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			resp = StartRunResponse{Error: panicError(resiliency.MakePanicError(panicVal, s.log))}
		}
	}()

	if req.ConfigName == "" {
		return StartRunResponse{Error: invalidRequest("configName is required")}
	}

	project, err := s.env.ResolveProject(req.ProjectRef)
	if err != nil {
		return StartRunResponse{Error: classify(err)}
	}

	rc, found := s.env.RunConfiguration(req.ConfigName)
	if !found {
		return StartRunResponse{Error: &Error{
			Kind:    KindNotFound,
			Message: fmt.Sprintf("no run configuration named %q", req.ConfigName),
		}}
	}
	if len(rc.Command) == 0 {
		return StartRunResponse{Error: &Error{
			Kind:    KindInternal,
			Message: fmt.Sprintf("run configuration %q has no command", rc.Name),
			Fault:   "bad-run-config",
		}}
	}

	cmd := exec.Command(rc.Command[0], rc.Command[1:]...)
	cmd.Dir = rc.Dir
	cmd.Env = append(os.Environ(), rc.Env...)

	id, err := s.runs.Start(ctx, runs.StartSpec{
		ConfigName:  rc.Name,
		ProjectName: project.Name,
		Cmd:         cmd,
	})
	if err != nil {
		return StartRunResponse{Error: classify(err)}
	}

	return StartRunResponse{Success: true, RunID: string(id)}
}

// RunOutput reads (and with clear, drains) a run's captured output.
func (s *Service) RunOutput(req RunOutputRequest) (resp RunOutputResponse) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			resp = RunOutputResponse{Error: panicError(resiliency.MakePanicError(panicVal, s.log))}
		}
	}()

	if req.RunID == "" {
		return RunOutputResponse{Error: invalidRequest("runId is required")}
	}

	snap, err := s.runs.Output(runs.RunID(req.RunID), req.Clear)
	if err != nil {
		return RunOutputResponse{Error: classify(err)}
	}

	return RunOutputResponse{
		Success:  true,
		Output:   snap.Output,
		Running:  snap.Running,
		ExitCode: snap.ExitCode,
	}
}

// StopRun requests termination of a run's process. Idempotent.
func (s *Service) StopRun(ctx context.Context, req StopRunRequest) (resp StopRunResponse) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			resp = StopRunResponse{Error: panicError(resiliency.MakePanicError(panicVal, s.log))}
		}
	}()

	if req.RunID == "" {
		return StopRunResponse{Error: invalidRequest("runId is required")}
	}

	outcome, err := s.runs.Stop(ctx, runs.RunID(req.RunID))
	if err != nil {
		return StopRunResponse{Error: classify(err)}
	}

	switch outcome {
	case runs.AlreadyTerminated:
		return StopRunResponse{Success: true, Message: "process had already terminated"}
	default:
		return StopRunResponse{Success: true, Message: "termination requested"}
	}
}

// ListRuns returns a snapshot of all tracked runs, safe to call concurrently
// with running operations.
func (s *Service) ListRuns() ListRunsResponse {
	summaries := s.runs.List()

	out := make([]RunSummary, len(summaries))
	for i, r := range summaries {
		out[i] = RunSummary{
			RunID:       string(r.ID),
			ConfigName:  r.ConfigName,
			ProjectName: r.ProjectName,
			StartTime:   r.StartTime,
			Running:     r.Running,
			ExitCode:    r.ExitCode,
		}
	}
	return ListRunsResponse{Runs: out}
}
