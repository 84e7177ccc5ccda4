package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

// DefaultMaxIterations bounds a run when the caller gives no usable limit.
const DefaultMaxIterations = 100

// Executor walks a validated graph. It holds no per-run state and may be
// shared between goroutines.
type Executor struct {
	clock         core.Clock
	maxIterations int
}

func NewExecutor(clock core.Clock, defaultMaxIterations int) *Executor {
	if clock == nil {
		clock = core.NewRealClock()
	}
	if defaultMaxIterations <= 0 {
		defaultMaxIterations = DefaultMaxIterations
	}
	return &Executor{clock: clock, maxIterations: defaultMaxIterations}
}

// NewRun creates a running record with a private copy of the initial state.
func (e *Executor) NewRun(id string, graph *ValidatedGraph, initial core.State) *domain.Run {
	return &domain.Run{
		ID:           id,
		GraphID:      graph.ID(),
		Status:       domain.RunStatusRunning,
		State:        initial.Clone(),
		ExecutionLog: []domain.LogEntry{},
		Created:      e.clock.Now(),
	}
}

// Run executes graph from its entry node and returns the finished record.
func (e *Executor) Run(ctx context.Context, graph *ValidatedGraph, registry StepRegistry, initial core.State, maxIterations int) *domain.Run {
	run := e.NewRun(NewRunID(), graph, initial)
	e.Execute(ctx, graph, registry, run, maxIterations, nil)
	return run
}

// Execute drives run, which must be in the running status, until it reaches
// a terminal status. The run is mutated in place; obs may be nil.
func (e *Executor) Execute(ctx context.Context, graph *ValidatedGraph, registry StepRegistry, run *domain.Run, maxIterations int, obs Observer) {
	if obs == nil {
		obs = NoopObserver{}
	}
	if maxIterations <= 0 {
		maxIterations = e.maxIterations
	}
	if run.State == nil {
		run.State = core.State{}
	}

	ctx = context.WithValue(ctx, core.CtxKeyRunId, run.ID)
	slog.InfoContext(ctx, "Starting run", "run_id", run.ID, "graph_id", run.GraphID, "entry_node", graph.EntryNode(), "max_iterations", maxIterations)
	obs.OnRunStart(ctx, run)

	current := domain.Target(graph.EntryNode())
	for {
		if current.IsTerminal() {
			e.finish(ctx, run, domain.RunStatusCompleted, nil, obs)
			return
		}
		if run.Iterations >= maxIterations {
			err := fmt.Errorf("%w: reached %d iterations at node %q", ErrLoopLimitExceeded, maxIterations, current)
			e.finish(ctx, run, domain.RunStatusAbortedLoopLimit, err, obs)
			return
		}
		if err := ctx.Err(); err != nil {
			e.finish(ctx, run, domain.RunStatusFailed, fmt.Errorf("run interrupted before node %q: %w", current, err), obs)
			return
		}

		node := string(current)
		started := e.clock.Now()
		state, stepErr := e.invoke(ctx, registry, node, run.State)
		if stepErr == nil {
			run.State = state
		}
		entry := domain.LogEntry{
			Sequence:   len(run.ExecutionLog) + 1,
			Node:       node,
			State:      run.State.Clone(),
			Next:       domain.Terminal,
			Timestamp:  started,
			DurationMs: e.clock.Now().Sub(started).Milliseconds(),
		}
		run.Iterations++

		if stepErr != nil {
			entry.Error = stepErr.Error()
			run.ExecutionLog = append(run.ExecutionLog, entry)
			obs.OnStepCompleted(ctx, run, entry)
			slog.ErrorContext(ctx, "Step failed", "run_id", run.ID, "node", node, "error", stepErr)
			e.finish(ctx, run, domain.RunStatusFailed, stepErr, obs)
			return
		}

		next, routeErr := graph.next(node, run.State)
		if routeErr != nil {
			entry.Error = routeErr.Error()
			run.ExecutionLog = append(run.ExecutionLog, entry)
			obs.OnStepCompleted(ctx, run, entry)
			slog.ErrorContext(ctx, "Unable to route", "run_id", run.ID, "node", node, "error", routeErr)
			e.finish(ctx, run, domain.RunStatusFailed, routeErr, obs)
			return
		}

		entry.Next = next
		run.ExecutionLog = append(run.ExecutionLog, entry)
		obs.OnStepCompleted(ctx, run, entry)
		slog.DebugContext(ctx, "Transition", "run_id", run.ID, "node", node, "next", next, "iteration", run.Iterations)
		current = next
	}
}

// invoke runs one step, turning a missing step, a returned error or a
// panic into a StepExecutionError.
func (e *Executor) invoke(ctx context.Context, registry StepRegistry, node string, state core.State) (out core.State, err error) {
	step, err := registry.Resolve(node)
	if err != nil {
		return nil, &StepExecutionError{Node: node, Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Step panicked", "node", node, "panic", r, "stack", string(debug.Stack()))
			out = nil
			err = &StepExecutionError{Node: node, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	out, err = step.Apply(ctx, state)
	if err != nil {
		return nil, &StepExecutionError{Node: node, Err: err}
	}
	if out == nil {
		out = state
	}
	return out, nil
}

func (e *Executor) finish(ctx context.Context, run *domain.Run, status domain.RunStatus, err error, obs Observer) {
	now := e.clock.Now()
	run.Status = status
	run.Finished = &now
	if err != nil {
		run.Error = err.Error()
	}
	switch status {
	case domain.RunStatusCompleted:
		slog.InfoContext(ctx, "Run completed", "run_id", run.ID, "iterations", run.Iterations, "duration", now.Sub(run.Created).String())
	default:
		slog.WarnContext(ctx, "Run ended", "run_id", run.ID, "status", status, "iterations", run.Iterations, "error", run.Error)
	}
	obs.OnRunFinished(ctx, run)
}

// elapsed is used by the worker pool to report queue latency.
func elapsed(clock core.Clock, since time.Time) time.Duration {
	return clock.Now().Sub(since)
}
