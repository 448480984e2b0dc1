package service

import (
	"context"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/debug"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/resiliency"
)

// Debug operations validate session preconditions before anything is
// dispatched, and are bounded by the short debug timeout.

func (s *Service) Pause(ctx context.Context) DebugResponse {
	return s.debugCall(func() error { return s.debug.Pause(ctx) })
}

func (s *Service) Resume(ctx context.Context) DebugResponse {
	return s.debugCall(func() error { return s.debug.Resume(ctx) })
}

func (s *Service) StepOver(ctx context.Context) DebugResponse {
	return s.debugCall(func() error { return s.debug.Step(ctx, debug.StepOver) })
}

func (s *Service) StepInto(ctx context.Context) DebugResponse {
	return s.debugCall(func() error { return s.debug.Step(ctx, debug.StepInto) })
}

func (s *Service) StepOut(ctx context.Context) DebugResponse {
	return s.debugCall(func() error { return s.debug.Step(ctx, debug.StepOut) })
}

func (s *Service) debugCall(op func() error) (resp DebugResponse) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			resp = DebugResponse{Error: panicError(resiliency.MakePanicError(panicVal, s.log))}
		}
	}()

	if err := op(); err != nil {
		return DebugResponse{Error: classify(err)}
	}
	return DebugResponse{Success: true}
}

func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (resp EvaluateResponse) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			resp = EvaluateResponse{Error: panicError(resiliency.MakePanicError(panicVal, s.log))}
		}
	}()

	if req.Expression == "" {
		return EvaluateResponse{Error: invalidRequest("expression is required")}
	}

	res, err := s.debug.Evaluate(ctx, req.Expression)
	if err != nil {
		return EvaluateResponse{Error: classify(err)}
	}
	return EvaluateResponse{Success: true, Value: res.Value, Type: res.Type}
}

func (s *Service) GetStack(ctx context.Context) (resp StackResponse) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			resp = StackResponse{Error: panicError(resiliency.MakePanicError(panicVal, s.log))}
		}
	}()

	frames, err := s.debug.StackFrames(ctx)
	if err != nil {
		return StackResponse{Error: classify(err)}
	}

	out := make([]StackFrame, len(frames))
	for i, f := range frames {
		out[i] = StackFrame{
			Index: i,
			Name:  f.Name,
			Line:  f.Line,
		}
		if f.Source != nil {
			out[i].File = f.Source.Path
		}
	}
	return StackResponse{Success: true, Frames: out}
}

func (s *Service) GetVariables(ctx context.Context, req VariablesRequest) (resp VariablesResponse) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			resp = VariablesResponse{Error: panicError(resiliency.MakePanicError(panicVal, s.log))}
		}
	}()

	if req.FrameIndex < 0 {
		return VariablesResponse{Error: invalidRequest("frameIndex must be non-negative")}
	}

	vars, err := s.debug.Variables(ctx, req.FrameIndex)
	if err != nil {
		return VariablesResponse{Error: classify(err)}
	}

	out := make([]Variable, len(vars))
	for i, v := range vars {
		out[i] = Variable{Name: v.Name, Value: v.Value, Type: v.Type}
	}
	return VariablesResponse{Success: true, Variables: out}
}
