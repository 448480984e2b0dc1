package service

import (
	"fmt"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/oplock"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/resiliency"
)

// ResetLock is the recovery escape hatch for a stuck operation class. It
// never force-unlocks a lock held by an in-flight operation; for that case it
// reports how long the lock has been held so the caller can decide to wait.
func (s *Service) ResetLock(req ResetRequest) (resp ResetResponse) {
	defer func() {
		if panicVal := recover(); panicVal != nil {
			resp = ResetResponse{Error: panicError(resiliency.MakePanicError(panicVal, s.log))}
		}
	}()

	if req.Class == "" {
		return ResetResponse{Error: invalidRequest("class is required")}
	}

	outcome, err := s.locks.Reset(oplock.Class(req.Class), nil)
	if err != nil {
		return ResetResponse{Error: invalidRequest("unknown operation class %q", req.Class)}
	}

	switch outcome.Result {
	case oplock.ResetHeldElsewhere:
		return ResetResponse{
			Success: false,
			Result:  string(outcome.Result),
			Message: fmt.Sprintf("the %s lock is held by an in-flight operation (for %v); not forcing an unlock", req.Class, outcome.HeldFor.Round(0)),
		}
	default:
		return ResetResponse{
			Success: true,
			Result:  string(outcome.Result),
			Message: fmt.Sprintf("the %s lock is available", req.Class),
		}
	}
}
