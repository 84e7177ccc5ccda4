package engine

import (
	"context"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

// Observer receives callbacks while a run executes. Callbacks run on the
// traversal goroutine, so implementations must return quickly.
type Observer interface {
	// OnRunStart is called once before the entry node executes.
	OnRunStart(ctx context.Context, run *domain.Run)

	// OnStepCompleted is called after every log entry is appended, including
	// the entry of a failing step.
	OnStepCompleted(ctx context.Context, run *domain.Run, entry domain.LogEntry)

	// OnRunFinished is called once the run has left the running status.
	OnRunFinished(ctx context.Context, run *domain.Run)
}

// NoopObserver is an Observer that does nothing.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, run *domain.Run)                             {}
func (NoopObserver) OnStepCompleted(ctx context.Context, run *domain.Run, entry domain.LogEntry) {}
func (NoopObserver) OnRunFinished(ctx context.Context, run *domain.Run)                          {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, run *domain.Run) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, run)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, run *domain.Run, entry domain.LogEntry) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, run, entry)
	}
}

func (c *CompositeObserver) OnRunFinished(ctx context.Context, run *domain.Run) {
	for _, o := range c.observers {
		o.OnRunFinished(ctx, run)
	}
}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped.
type ObserverFuncs struct {
	RunStart      func(ctx context.Context, run *domain.Run)
	StepCompleted func(ctx context.Context, run *domain.Run, entry domain.LogEntry)
	RunFinished   func(ctx context.Context, run *domain.Run)
}

func (f ObserverFuncs) OnRunStart(ctx context.Context, run *domain.Run) {
	if f.RunStart != nil {
		f.RunStart(ctx, run)
	}
}

func (f ObserverFuncs) OnStepCompleted(ctx context.Context, run *domain.Run, entry domain.LogEntry) {
	if f.StepCompleted != nil {
		f.StepCompleted(ctx, run, entry)
	}
}

func (f ObserverFuncs) OnRunFinished(ctx context.Context, run *domain.Run) {
	if f.RunFinished != nil {
		f.RunFinished(ctx, run)
	}
}
