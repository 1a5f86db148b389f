// Package terminator closes the network connections of a target process by
// delegating to an external closing utility.
package terminator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"connbreaker/internal/log"
	"connbreaker/internal/tracing"
)

// ReasonTargetNotFound is the user-facing reason for a missing target.
const ReasonTargetNotFound = "target not found"

// ErrTargetNotRunning is returned when the target PID is empty or has exited.
var ErrTargetNotRunning = errors.New("target not running")

// Result is the outcome of one termination attempt.
type Result struct {
	PID         int
	ClosedCount int
	Counted     bool
	Failed      bool
	Reason      string
	Err         error
	Duration    time.Duration
}

// Summary renders the result for a status line.
func (r Result) Summary() string {
	if r.Failed {
		return "failed: " + r.Reason
	}
	if r.Counted {
		return fmt.Sprintf("closed %d connection(s)", r.ClosedCount)
	}
	return "connections closed"
}

// NotFound is the result for a missing or exited target.
func NotFound(pid int) Result {
	return Result{
		PID:    pid,
		Failed: true,
		Reason: ReasonTargetNotFound,
		Err:    fmt.Errorf("%w: pid %d", ErrTargetNotRunning, pid),
	}
}

// ProcessChecker reports process liveness. procdir.Directory satisfies it.
type ProcessChecker interface {
	Running(pid int) (bool, error)
}

// Terminator checks the target and invokes the Tool once per call.
type Terminator struct {
	mu     sync.RWMutex
	tool   Tool
	procs  ProcessChecker
	tracer trace.Tracer
}

// Option configures a Terminator.
type Option func(*Terminator)

// WithTracer records spans on tracer instead of the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(t *Terminator) { t.tracer = tracer }
}

// New creates a Terminator.
func New(tool Tool, procs ProcessChecker, opts ...Option) *Terminator {
	t := &Terminator{
		tool:   tool,
		procs:  procs,
		tracer: otel.Tracer("connbreaker/terminator"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetTool swaps the external tool, e.g. after a config reload.
func (t *Terminator) SetTool(tool Tool) {
	t.mu.Lock()
	t.tool = tool
	t.mu.Unlock()
}

// Terminate closes every connection owned by target. It never retries.
func (t *Terminator) Terminate(ctx context.Context, target Target) Result {
	pid := target.PID
	ctx, span := t.tracer.Start(ctx, tracing.SpanTerminate, trace.WithAttributes(
		attribute.Int(tracing.AttrTargetPID, pid),
		attribute.String(tracing.AttrTargetName, target.Name),
	))
	defer span.End()

	start := time.Now()
	res := t.terminate(ctx, target)
	res.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Bool(tracing.AttrFailed, res.Failed),
		attribute.Int(tracing.AttrClosedCount, res.ClosedCount),
	)
	if res.Failed {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Reason)
		log.ErrorErr(log.CatTerm, "termination failed", res.Err, "pid", pid, "reason", res.Reason)
	} else {
		span.SetStatus(codes.Ok, "")
		log.Info(log.CatTerm, "termination finished", "pid", pid, "closed", res.ClosedCount,
			"counted", res.Counted, "duration", res.Duration)
	}
	return res
}

func (t *Terminator) terminate(ctx context.Context, target Target) Result {
	pid := target.PID
	if pid <= 0 {
		return NotFound(pid)
	}

	running, err := t.procs.Running(pid)
	if err != nil {
		log.Warn(log.CatTerm, "liveness check failed, invoking anyway", "pid", pid, "error", err)
	} else if !running {
		return NotFound(pid)
	}

	t.mu.RLock()
	tool := t.tool
	t.mu.RUnlock()

	report, err := tool.CloseConnections(ctx, target)
	if err != nil {
		if !errors.Is(err, ErrToolInvocation) {
			err = fmt.Errorf("%w: %w", ErrToolInvocation, err)
		}
		return Result{
			PID:    pid,
			Failed: true,
			Reason: reasonFor(err),
			Err:    err,
		}
	}

	return Result{
		PID:         pid,
		ClosedCount: report.Closed,
		Counted:     report.Counted,
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrToolNotFound):
		return "closing tool not found"
	case errors.Is(err, ErrToolExit):
		return "closing tool reported an error"
	case errors.Is(err, ErrUnparsableOutput):
		return "closing tool output not understood"
	case errors.Is(err, context.DeadlineExceeded):
		return "closing tool timed out"
	default:
		return "closing tool could not be run"
	}
}
