package service

import (
	"time"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/host"
)

// Request/response contracts. The JSON field names are the stable contract
// other components rely on; the transport that frames them is out of scope.

type BuildRequest struct {
	Incremental    bool   `json:"incremental"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
	ProjectRef     string `json:"projectRef,omitempty"`
}

type BuildResponse struct {
	Success  bool              `json:"success"`
	Errors   []host.Diagnostic `json:"errors"`
	Warnings []host.Diagnostic `json:"warnings"`
	TimeMs   int64             `json:"timeMs"`
	Aborted  bool              `json:"aborted,omitempty"`
	Error    *Error            `json:"error,omitempty"`
}

type TestRequest struct {
	Pattern        string `json:"pattern"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
	ProjectRef     string `json:"projectRef,omitempty"`
}

type TestCase struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Defect     string `json:"defect,omitempty"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

type TestResponse struct {
	Success bool       `json:"success"`
	Tests   []TestCase `json:"tests"`
	TimeMs  int64      `json:"timeMs"`
	Error   *Error     `json:"error,omitempty"`
}

type StartRunRequest struct {
	ConfigName string `json:"configName"`
	ProjectRef string `json:"projectRef,omitempty"`
}

type StartRunResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"runId,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

type RunOutputRequest struct {
	RunID string `json:"runId"`
	Clear bool   `json:"clear,omitempty"`
}

type RunOutputResponse struct {
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	Running  bool   `json:"running"`
	ExitCode *int32 `json:"exitCode,omitempty"`
	Error    *Error `json:"error,omitempty"`
}

type StopRunRequest struct {
	RunID string `json:"runId"`
}

type StopRunResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

type RunSummary struct {
	RunID       string    `json:"runId"`
	ConfigName  string    `json:"configName"`
	ProjectName string    `json:"projectName"`
	StartTime   time.Time `json:"startTime"`
	Running     bool      `json:"running"`
	ExitCode    *int32    `json:"exitCode,omitempty"`
}

type ListRunsResponse struct {
	Runs []RunSummary `json:"runs"`
}

type DebugResponse struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error,omitempty"`
}

type EvaluateRequest struct {
	Expression string `json:"expression"`
}

type EvaluateResponse struct {
	Success bool   `json:"success"`
	Value   string `json:"value,omitempty"`
	Type    string `json:"type,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

type StackFrame struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	File  string `json:"file,omitempty"`
	Line  int    `json:"line,omitempty"`
}

type StackResponse struct {
	Success bool         `json:"success"`
	Frames  []StackFrame `json:"frames,omitempty"`
	Error   *Error       `json:"error,omitempty"`
}

type VariablesRequest struct {
	FrameIndex int `json:"frameIndex"`
}

type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

type VariablesResponse struct {
	Success   bool       `json:"success"`
	Variables []Variable `json:"variables,omitempty"`
	Error     *Error     `json:"error,omitempty"`
}

type ResetRequest struct {
	Class string `json:"class"`
}

type ResetResponse struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
	Error   *Error `json:"error,omitempty"`
}
