package service

import (
	"errors"
	"fmt"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/bridge"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/debug"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/host"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/hostexec"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/oplock"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/results"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/runs"
)

// ErrorKind identifies a failure category the caller can branch on without
// string matching. Kinds tell the caller whether retrying, calling reset, or
// waiting longer is appropriate.
type ErrorKind string

const (
	KindNoProjectOpen           ErrorKind = "NoProjectOpen"
	KindLockAcquisitionTimeout  ErrorKind = "LockAcquisitionTimeout"
	KindUpstreamActivityTimeout ErrorKind = "UpstreamActivityTimeout"
	KindOperationTimeout        ErrorKind = "OperationTimeout"
	KindRunNotFound             ErrorKind = "RunNotFound"
	KindNoActiveDebugSession    ErrorKind = "NoActiveDebugSession"
	KindSessionNotSuspended     ErrorKind = "SessionNotSuspended"
	KindEvaluatorUnavailable    ErrorKind = "EvaluatorUnavailable"
	KindExtractionFailed        ErrorKind = "ExtractionFailed"
	KindNoMatchingTests         ErrorKind = "NoMatchingTests"

	// Boundary status kinds.
	KindInvalidRequest ErrorKind = "InvalidRequest"
	KindNotFound       ErrorKind = "NotFound"
	KindInternal       ErrorKind = "Internal"
)

// Error is the structured failure attached to a response. Every error result
// carries a kind and a human message; internal failures additionally carry a
// fault tag.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Fault   string    `json:"fault,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func invalidRequest(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// classify maps a typed error from the core to its boundary representation.
// Unrecognized errors become Internal with a fault tag.
func classify(err error) *Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, host.ErrNoProjectOpen):
		return &Error{Kind: KindNoProjectOpen, Message: err.Error()}
	case errors.Is(err, oplock.ErrAcquireTimeout):
		return &Error{Kind: KindLockAcquisitionTimeout, Message: err.Error()}
	case errors.Is(err, oplock.ErrExternalActivityTimeout):
		return &Error{Kind: KindUpstreamActivityTimeout, Message: err.Error()}
	case errors.Is(err, bridge.ErrOperationTimeout):
		return &Error{Kind: KindOperationTimeout, Message: err.Error()}
	case errors.Is(err, runs.ErrRunNotFound):
		return &Error{Kind: KindRunNotFound, Message: err.Error()}
	case errors.Is(err, debug.ErrNoActiveSession):
		return &Error{Kind: KindNoActiveDebugSession, Message: err.Error()}
	case errors.Is(err, debug.ErrSessionNotSuspended):
		return &Error{Kind: KindSessionNotSuspended, Message: err.Error()}
	case errors.Is(err, debug.ErrEvaluatorUnavailable):
		return &Error{Kind: KindEvaluatorUnavailable, Message: err.Error()}
	case errors.Is(err, results.ErrNoMatchingTests):
		return &Error{Kind: KindNoMatchingTests, Message: err.Error()}
	case errors.Is(err, results.ErrExtractionFailed):
		return &Error{Kind: KindExtractionFailed, Message: err.Error()}
	case errors.Is(err, hostexec.ErrDispatcherClosed):
		return &Error{Kind: KindInternal, Message: err.Error(), Fault: "dispatcher-closed"}
	default:
		return &Error{Kind: KindInternal, Message: err.Error(), Fault: fmt.Sprintf("%T", err)}
	}
}

func panicError(panicErr error) *Error {
	return &Error{Kind: KindInternal, Message: panicErr.Error(), Fault: "panic"}
}
