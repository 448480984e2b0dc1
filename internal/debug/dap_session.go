package debug

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"
	"github.com/google/uuid"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/syncmap"
)

// DAPSession implements Session on top of a Debug Adapter Protocol
// connection. Requests are correlated to responses through the DAP sequence
// number; stopped/continued events keep the suspended flag current.
//
// Reads happen on a single reader goroutine; writes are serialized by a
// write mutex. Individual response callbacks therefore run sequentially.
type DAPSession struct {
	id   string
	conn net.Conn
	log  logr.Logger

	reader  *bufio.Reader
	writeMu sync.Mutex

	seq     atomic.Int64
	pending syncmap.Map[int, func(dap.ResponseMessage, error)]

	suspended atomic.Bool
	threadID  atomic.Int64

	framesMu sync.Mutex
	frames   []dap.StackFrame

	closeOnce sync.Once
	closedErr error
}

// NewDAPSession wraps an established adapter connection and starts the
// reader loop. The caller is expected to have completed the DAP
// initialize/launch handshake already.
func NewDAPSession(conn net.Conn, log logr.Logger) *DAPSession {
	s := &DAPSession{
		id:     uuid.NewString(),
		conn:   conn,
		reader: bufio.NewReader(conn),
		log:    log.WithName("dap-session"),
	}
	go s.readLoop()
	return s
}

func (s *DAPSession) ID() string { return s.id }

func (s *DAPSession) Suspended() bool { return s.suspended.Load() }

// Close tears down the connection. Pending callbacks are failed.
func (s *DAPSession) Close() {
	s.closeOnce.Do(func() {
		s.closedErr = fmt.Errorf("debug session %s closed", s.id)
		_ = s.conn.Close()
	})
}

func (s *DAPSession) readLoop() {
	for {
		msg, err := dap.ReadProtocolMessage(s.reader)
		if err != nil {
			s.failAllPending(fmt.Errorf("debug adapter connection lost: %w", err))
			return
		}

		switch m := msg.(type) {
		case *dap.StoppedEvent:
			s.threadID.Store(int64(m.Body.ThreadId))
			s.suspended.Store(true)
		case *dap.ContinuedEvent:
			s.suspended.Store(false)
		case *dap.TerminatedEvent:
			s.failAllPending(fmt.Errorf("debug session terminated by the adapter"))
			return
		case dap.ResponseMessage:
			if cb, found := s.pending.LoadAndDelete(m.GetResponse().RequestSeq); found {
				if m.GetResponse().Success {
					cb(m, nil)
				} else {
					cb(nil, fmt.Errorf("adapter rejected %s: %s", m.GetResponse().Command, m.GetResponse().Message))
				}
			}
		default:
			// Other events (output, thread, module) are not interesting here.
		}
	}
}

func (s *DAPSession) failAllPending(err error) {
	s.pending.Range(func(seq int, cb func(dap.ResponseMessage, error)) bool {
		if _, found := s.pending.LoadAndDelete(seq); found {
			cb(nil, err)
		}
		return true
	})
}

func (s *DAPSession) send(build func(seq int) dap.Message, cb func(dap.ResponseMessage, error)) {
	seq := int(s.seq.Add(1))
	s.pending.Store(seq, cb)

	s.writeMu.Lock()
	err := dap.WriteProtocolMessage(s.conn, build(seq))
	s.writeMu.Unlock()

	if err != nil {
		if _, found := s.pending.LoadAndDelete(seq); found {
			cb(nil, fmt.Errorf("failed to send request to the debug adapter: %w", err))
		}
	}
}

func newRequest(seq int, command string) dap.Request {
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "request"},
		Command:         command,
	}
}

func (s *DAPSession) Pause(done func(err error)) {
	s.send(func(seq int) dap.Message {
		return &dap.PauseRequest{
			Request:   newRequest(seq, "pause"),
			Arguments: dap.PauseArguments{ThreadId: int(s.threadID.Load())},
		}
	}, func(_ dap.ResponseMessage, err error) {
		done(err)
	})
}

func (s *DAPSession) Resume(done func(err error)) {
	s.send(func(seq int) dap.Message {
		return &dap.ContinueRequest{
			Request:   newRequest(seq, "continue"),
			Arguments: dap.ContinueArguments{ThreadId: int(s.threadID.Load())},
		}
	}, func(_ dap.ResponseMessage, err error) {
		if err == nil {
			s.suspended.Store(false)
		}
		done(err)
	})
}

func (s *DAPSession) Step(kind StepKind, done func(err error)) {
	threadID := int(s.threadID.Load())

	s.send(func(seq int) dap.Message {
		switch kind {
		case StepInto:
			return &dap.StepInRequest{
				Request:   newRequest(seq, "stepIn"),
				Arguments: dap.StepInArguments{ThreadId: threadID},
			}
		case StepOut:
			return &dap.StepOutRequest{
				Request:   newRequest(seq, "stepOut"),
				Arguments: dap.StepOutArguments{ThreadId: threadID},
			}
		default:
			return &dap.NextRequest{
				Request:   newRequest(seq, "next"),
				Arguments: dap.NextArguments{ThreadId: threadID},
			}
		}
	}, func(_ dap.ResponseMessage, err error) {
		done(err)
	})
}

func (s *DAPSession) Evaluate(expression string, done func(res EvalResult, err error)) {
	frameID := 0
	s.framesMu.Lock()
	if len(s.frames) > 0 {
		frameID = s.frames[0].Id
	}
	s.framesMu.Unlock()

	s.send(func(seq int) dap.Message {
		return &dap.EvaluateRequest{
			Request: newRequest(seq, "evaluate"),
			Arguments: dap.EvaluateArguments{
				Expression: expression,
				FrameId:    frameID,
				Context:    "repl",
			},
		}
	}, func(msg dap.ResponseMessage, err error) {
		if err != nil {
			done(EvalResult{}, fmt.Errorf("%w: %w", ErrEvaluatorUnavailable, err))
			return
		}
		resp, ok := msg.(*dap.EvaluateResponse)
		if !ok {
			done(EvalResult{}, fmt.Errorf("%w: unexpected response type %T", ErrEvaluatorUnavailable, msg))
			return
		}
		done(EvalResult{Value: resp.Body.Result, Type: resp.Body.Type}, nil)
	})
}

func (s *DAPSession) StackFrames(deliver func(frames []dap.StackFrame, last bool, err error)) {
	s.send(func(seq int) dap.Message {
		return &dap.StackTraceRequest{
			Request:   newRequest(seq, "stackTrace"),
			Arguments: dap.StackTraceArguments{ThreadId: int(s.threadID.Load())},
		}
	}, func(msg dap.ResponseMessage, err error) {
		if err != nil {
			deliver(nil, false, err)
			return
		}
		resp, ok := msg.(*dap.StackTraceResponse)
		if !ok {
			deliver(nil, false, fmt.Errorf("unexpected response type %T", msg))
			return
		}

		s.framesMu.Lock()
		s.frames = resp.Body.StackFrames
		s.framesMu.Unlock()

		deliver(resp.Body.StackFrames, true, nil)
	})
}

// Variables resolves the frame's scopes, then requests the variables of each
// scope, delivering one part per scope with last set on the final one.
func (s *DAPSession) Variables(frameIndex int, deliver func(vars []dap.Variable, last bool, err error)) {
	s.framesMu.Lock()
	if frameIndex < 0 || frameIndex >= len(s.frames) {
		n := len(s.frames)
		s.framesMu.Unlock()
		deliver(nil, false, fmt.Errorf("frame index %d out of range (have %d frames; fetch the stack first)", frameIndex, n))
		return
	}
	frameID := s.frames[frameIndex].Id
	s.framesMu.Unlock()

	s.send(func(seq int) dap.Message {
		return &dap.ScopesRequest{
			Request:   newRequest(seq, "scopes"),
			Arguments: dap.ScopesArguments{FrameId: frameID},
		}
	}, func(msg dap.ResponseMessage, err error) {
		if err != nil {
			deliver(nil, false, err)
			return
		}
		resp, ok := msg.(*dap.ScopesResponse)
		if !ok {
			deliver(nil, false, fmt.Errorf("unexpected response type %T", msg))
			return
		}
		if len(resp.Body.Scopes) == 0 {
			deliver(nil, true, nil)
			return
		}
		s.requestScopeVariables(resp.Body.Scopes, 0, deliver)
	})
}

func (s *DAPSession) requestScopeVariables(scopes []dap.Scope, idx int, deliver func([]dap.Variable, bool, error)) {
	s.send(func(seq int) dap.Message {
		return &dap.VariablesRequest{
			Request:   newRequest(seq, "variables"),
			Arguments: dap.VariablesArguments{VariablesReference: scopes[idx].VariablesReference},
		}
	}, func(msg dap.ResponseMessage, err error) {
		if err != nil {
			deliver(nil, false, err)
			return
		}
		resp, ok := msg.(*dap.VariablesResponse)
		if !ok {
			deliver(nil, false, fmt.Errorf("unexpected response type %T", msg))
			return
		}

		last := idx == len(scopes)-1
		deliver(resp.Body.Variables, last, nil)
		if !last {
			s.requestScopeVariables(scopes, idx+1, deliver)
		}
	})
}

var _ Session = (*DAPSession)(nil)
