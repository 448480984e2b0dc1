package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/config"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/debug"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/host"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/host/localdev"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/hostexec"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/runs"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/internal/service"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/logger"
	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/process"
)

const (
	// Requests are single NDJSON lines; anything larger is a client bug.
	maxRequestBytes = 1 << 20

	pruneInterval = 5 * time.Minute
)

func runServe(log *logger.Logger) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		disp := hostexec.New(log.Logger)
		executor := process.NewOSExecutor(log.Logger)

		env := localdev.New(ctx, log.Logger, executor, localdev.Options{
			ProjectName:  cfg.ProjectName,
			WorkDir:      cfg.WorkDir,
			BuildCommand: splitCommand(cfg.BuildCommand, config.DefaultBuildCommand),
			TestCommand:  splitCommand(cfg.TestCommand, config.DefaultTestCommand),
			RunConfigs:   runConfigs(cfg),
			OutputCap:    cfg.OutputCap(),
		})

		registry := runs.NewRegistry(log.Logger, executor, cfg.OutputCap())
		svc := service.New(log.Logger, cfg.ServiceTimeouts(), cfg.RetryPolicy(), disp, env, registry)
		defer svc.Shutdown()

		if cfg.DebugAdapterAddr != "" {
			conn, dialErr := net.Dial("tcp", cfg.DebugAdapterAddr)
			if dialErr != nil {
				// The daemon is still useful without a debugger attached.
				log.Error(dialErr, "could not connect to debug adapter", "Addr", cfg.DebugAdapterAddr)
			} else {
				defer conn.Close()
				env.SetDebugSession(debug.NewDAPSession(conn, log.Logger))
				log.Info("debug adapter connected", "Addr", cfg.DebugAdapterAddr)
			}
		}

		loop := &requestLoop{
			log: log.WithName("serve"),
			svc: svc,
			in:  cmd.InOrStdin(),
			out: cmd.OutOrStdout(),
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.Go(func() error {
			return loop.run(groupCtx)
		})
		group.Go(func() error {
			ticker := time.NewTicker(pruneInterval)
			defer ticker.Stop()
			for {
				select {
				case <-groupCtx.Done():
					return nil
				case <-ticker.C:
					if pruned := svc.PruneRuns(cfg.RunRetention()); pruned > 0 {
						log.V(1).Info("pruned terminated runs", "Count", pruned)
					}
				}
			}
		})

		err = group.Wait()
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

func splitCommand(raw, fallback string) []string {
	if raw == "" {
		raw = fallback
	}
	return strings.Fields(raw)
}

func runConfigs(cfg *config.Config) []host.RunConfig {
	out := make([]host.RunConfig, len(cfg.RunConfigs))
	for i, rc := range cfg.RunConfigs {
		out[i] = host.RunConfig{
			Name:    rc.Name,
			Command: rc.Command,
			Dir:     rc.Dir,
			Env:     rc.Env,
		}
	}
	return out
}

// request is one NDJSON line on stdin.
type request struct {
	ID     string          `json:"id"`
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params"`
}

// response is one NDJSON line on stdout. Result carries the op-specific
// response struct, including its error field on failure.
type response struct {
	ID     string `json:"id"`
	Op     string `json:"op"`
	Result any    `json:"result"`
}

// errorResult is the envelope for failures that never reached an operation.
type errorResult struct {
	Success bool           `json:"success"`
	Error   *service.Error `json:"error"`
}

// requestLoop pumps requests from in to the service and responses back to
// out. Each request is served on its own goroutine so a long build does not
// block a concurrent stopRun; response lines are serialized by writeMu.
type requestLoop struct {
	log logr.Logger
	svc *service.Service
	in  io.Reader
	out io.Writer

	writeMu sync.Mutex
	pending sync.WaitGroup
}

func (l *requestLoop) run(ctx context.Context) error {
	scanner := bufio.NewScanner(l.in)
	scanner.Buffer(make([]byte, 64*1024), maxRequestBytes)

	defer l.pending.Wait()

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			l.write(response{
				ID: uuid.NewString(),
				Result: errorResult{Error: &service.Error{
					Kind:    service.KindInvalidRequest,
					Message: fmt.Sprintf("malformed request: %v", err),
				}},
			})
			continue
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}

		l.pending.Add(1)
		go func() {
			defer l.pending.Done()
			l.write(response{ID: req.ID, Op: req.Op, Result: l.dispatch(ctx, req)})
		}()
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

func (l *requestLoop) write(resp response) {
	data, err := json.Marshal(resp)
	if err != nil {
		l.log.Error(err, "could not serialize response", "RequestID", resp.ID)
		return
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if _, err := l.out.Write(append(data, '\n')); err != nil {
		l.log.Error(err, "could not write response", "RequestID", resp.ID)
	}
}

func (l *requestLoop) dispatch(ctx context.Context, req request) any {
	switch req.Op {
	case "startBuild":
		var p service.BuildRequest
		if err := unmarshalParams(req.Params, &p); err != nil {
			return service.BuildResponse{Error: err}
		}
		return l.svc.StartBuild(ctx, p)

	case "runTests":
		var p service.TestRequest
		if err := unmarshalParams(req.Params, &p); err != nil {
			return service.TestResponse{Error: err}
		}
		return l.svc.RunTests(ctx, p)

	case "startRun":
		var p service.StartRunRequest
		if err := unmarshalParams(req.Params, &p); err != nil {
			return service.StartRunResponse{Error: err}
		}
		return l.svc.StartRun(ctx, p)

	case "getRunOutput":
		var p service.RunOutputRequest
		if err := unmarshalParams(req.Params, &p); err != nil {
			return service.RunOutputResponse{Error: err}
		}
		return l.svc.RunOutput(p)

	case "stopRun":
		var p service.StopRunRequest
		if err := unmarshalParams(req.Params, &p); err != nil {
			return service.StopRunResponse{Error: err}
		}
		return l.svc.StopRun(ctx, p)

	case "listRuns":
		return l.svc.ListRuns()

	case "pause":
		return l.svc.Pause(ctx)

	case "resume":
		return l.svc.Resume(ctx)

	case "stepOver":
		return l.svc.StepOver(ctx)

	case "stepInto":
		return l.svc.StepInto(ctx)

	case "stepOut":
		return l.svc.StepOut(ctx)

	case "evaluate":
		var p service.EvaluateRequest
		if err := unmarshalParams(req.Params, &p); err != nil {
			return service.EvaluateResponse{Error: err}
		}
		return l.svc.Evaluate(ctx, p)

	case "getStack":
		return l.svc.GetStack(ctx)

	case "getVariables":
		var p service.VariablesRequest
		if err := unmarshalParams(req.Params, &p); err != nil {
			return service.VariablesResponse{Error: err}
		}
		return l.svc.GetVariables(ctx, p)

	case "resetLock":
		var p service.ResetRequest
		if err := unmarshalParams(req.Params, &p); err != nil {
			return service.ResetResponse{Error: err}
		}
		return l.svc.ResetLock(p)

	default:
		return errorResult{Error: &service.Error{
			Kind:    service.KindInvalidRequest,
			Message: fmt.Sprintf("unknown operation %q", req.Op),
		}}
	}
}

func unmarshalParams(raw json.RawMessage, into any) *service.Error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return &service.Error{
			Kind:    service.KindInvalidRequest,
			Message: fmt.Sprintf("malformed params: %v", err),
		}
	}
	return nil
}
