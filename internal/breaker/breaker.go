// Package breaker coordinates a trigger (hotkey press, manual request, CLI)
// with the current selection and the terminator, and publishes outcomes.
package breaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"connbreaker/internal/log"
	"connbreaker/internal/pubsub"
	"connbreaker/internal/selection"
	"connbreaker/internal/terminator"
	"connbreaker/internal/tracing"
)

// Source identifies what started a termination.
type Source string

const (
	SourceHotkey Source = "hotkey"
	SourceManual Source = "manual"
	SourceCLI    Source = "cli"
)

// User-facing reasons for rejected triggers.
const (
	ReasonBusy   = "termination already in progress"
	ReasonPaused = "paused"
)

var (
	// ErrBusy is reported when a trigger arrives while another is running.
	ErrBusy = errors.New("termination already in progress")
	// ErrPaused is reported for triggers received while paused.
	ErrPaused = errors.New("breaker paused")
)

// Outcome is one handled trigger.
type Outcome struct {
	ID     uuid.UUID
	Source Source
	Target selection.Selection // zero when nothing was selected
	Result terminator.Result
	At     time.Time
}

// Terminator is the subset of *terminator.Terminator the breaker needs.
type Terminator interface {
	Terminate(ctx context.Context, target terminator.Target) terminator.Result
}

// Breaker runs at most one termination at a time.
type Breaker struct {
	sel    *selection.State
	term   Terminator
	broker *pubsub.Broker[Outcome]
	tracer trace.Tracer

	busy   atomic.Bool
	paused atomic.Bool

	mu        sync.Mutex // guards closed against wg.Add
	closed    bool
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New wires a breaker. The broker is owned by the breaker and closed by Close.
func New(sel *selection.State, term Terminator, broker *pubsub.Broker[Outcome]) *Breaker {
	return &Breaker{
		sel:    sel,
		term:   term,
		broker: broker,
		tracer: otel.Tracer("connbreaker/breaker"),
	}
}

// Broker returns the outcome broker for subscribers.
func (b *Breaker) Broker() *pubsub.Broker[Outcome] {
	return b.broker
}

// SetPaused toggles pause. Paused triggers never reach the tool.
func (b *Breaker) SetPaused(paused bool) {
	b.paused.Store(paused)
	log.Info(log.CatBreaker, "pause toggled", "paused", paused)
}

// Paused reports the pause state.
func (b *Breaker) Paused() bool {
	return b.paused.Load()
}

// Busy reports whether a termination is in flight.
func (b *Breaker) Busy() bool {
	return b.busy.Load()
}

// Trigger handles one trigger synchronously and publishes its outcome.
// Cancelling ctx does not interrupt a tool run that already started; the
// tool's own timeout bounds it.
func (b *Breaker) Trigger(ctx context.Context, source Source) Outcome {
	target, selected := b.sel.Get()
	out := Outcome{
		ID:     uuid.New(),
		Source: source,
		Target: target,
	}

	ctx, span := b.tracer.Start(ctx, tracing.SpanTrigger, trace.WithAttributes(
		attribute.String(tracing.AttrOutcomeID, out.ID.String()),
		attribute.String(tracing.AttrSource, string(source)),
		attribute.String(tracing.AttrTargetName, target.Name),
	))
	defer span.End()

	switch {
	case b.paused.Load():
		out.Result = rejected(target.PID, ReasonPaused, ErrPaused)
	case !b.busy.CompareAndSwap(false, true):
		out.Result = rejected(target.PID, ReasonBusy, ErrBusy)
	default:
		if selected {
			b.broker.Publish(pubsub.StartedEvent, out)
		}
		out.Result = b.run(ctx, target, selected)
		b.busy.Store(false)
	}

	out.At = time.Now()
	span.SetAttributes(attribute.Bool(tracing.AttrFailed, out.Result.Failed))
	log.Debug(log.CatBreaker, "outcome", "id", out.ID, "source", source,
		"target", target.Name, "summary", out.Result.Summary())

	b.broker.Publish(pubsub.OutcomeEvent, out)
	return out
}

func (b *Breaker) run(ctx context.Context, target selection.Selection, selected bool) terminator.Result {
	if !selected {
		return terminator.NotFound(0)
	}
	return b.term.Terminate(context.WithoutCancel(ctx), terminator.Target{PID: target.PID, Name: target.Name})
}

// Dispatch runs Trigger on its own goroutine. It is safe to use as a hotkey
// callback. Triggers dispatched after Close are ignored.
func (b *Breaker) Dispatch(source Source) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		log.Debug(log.CatBreaker, "trigger after close ignored", "source", source)
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.Trigger(context.Background(), source)
	}()
}

// Wait blocks until every dispatched trigger has finished.
func (b *Breaker) Wait() {
	b.wg.Wait()
}

// Close stops accepting dispatches, lets in-flight runs finish and closes
// the broker.
func (b *Breaker) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		b.wg.Wait()
		b.broker.Close()
	})
}

func rejected(pid int, reason string, err error) terminator.Result {
	return terminator.Result{
		PID:    pid,
		Failed: true,
		Reason: reason,
		Err:    err,
	}
}
