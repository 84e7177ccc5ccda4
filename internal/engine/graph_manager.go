package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/models"
)

// ManagerOptions tunes run execution. Zero values fall back to defaults.
type ManagerOptions struct {
	MaxIterations int
	RunTimeout    time.Duration
	Workers       int
	QueueSize     int
}

func (o ManagerOptions) withDefaults() ManagerOptions {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Workers <= 0 {
		o.Workers = 5
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 10
	}
	return o
}

type GraphManager struct {
	registry  StepRegistry
	GraphRepo GraphRepo
	RunRepo   RunRepo
	executor  *Executor
	clock     core.Clock
	opts      ManagerOptions

	mu      sync.Mutex
	queue   chan runJob
	started bool
}

func NewGraphManager(graphRepo GraphRepo, runRepo RunRepo, registry StepRegistry, clock core.Clock, opts ManagerOptions) *GraphManager {
	if clock == nil {
		clock = core.NewRealClock()
	}
	opts = opts.withDefaults()
	return &GraphManager{
		registry:  registry,
		GraphRepo: graphRepo,
		RunRepo:   runRepo,
		executor:  NewExecutor(clock, opts.MaxIterations),
		clock:     clock,
		opts:      opts,
	}
}

// CreateGraph validates and stores a graph. Nothing is stored when
// validation fails.
func (gm *GraphManager) CreateGraph(ctx context.Context, req models.CreateGraphRequest) (*domain.GraphDefinition, error) {
	def := req.Definition()
	def.ID = NewGraphID()
	if def.Name == "" {
		def.Name = def.ID
	}
	def.Created = gm.clock.Now()

	if _, err := Validate(def, gm.registry); err != nil {
		slog.WarnContext(ctx, "Rejected graph definition", "name", def.Name, "error", err)
		return nil, err
	}
	if err := gm.GraphRepo.Save(ctx, def); err != nil {
		return nil, fmt.Errorf("saving graph %s: %w", def.ID, err)
	}
	slog.InfoContext(ctx, "Graph created", "graph_id", def.ID, "name", def.Name, "nodes", len(def.Nodes))
	return def, nil
}

func (gm *GraphManager) GetGraph(ctx context.Context, id string) (*domain.GraphDefinition, error) {
	return gm.GraphRepo.FindByID(ctx, id)
}

func (gm *GraphManager) ListGraphs(ctx context.Context) ([]*domain.GraphDefinition, error) {
	return gm.GraphRepo.FindAll(ctx)
}

// Flowchart renders the stored graph as a mermaid diagram.
func (gm *GraphManager) Flowchart(ctx context.Context, id string) (string, error) {
	def, err := gm.GraphRepo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return BuildFlowChart(def), nil
}

// loadGraph fetches a stored graph and validates it again, since the
// registry the process runs with may differ from the one it was created with.
func (gm *GraphManager) loadGraph(ctx context.Context, id string) (*ValidatedGraph, error) {
	def, err := gm.GraphRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return Validate(def, gm.registry)
}

// RunGraph executes a stored graph synchronously. Traversal failures are
// reported through the returned record's status; the error is only set when
// the graph cannot be loaded or the record cannot be persisted.
func (gm *GraphManager) RunGraph(ctx context.Context, graphID string, initial core.State, maxIterations int) (*domain.Run, error) {
	return gm.RunGraphObserved(ctx, graphID, initial, maxIterations, nil)
}

// RunGraphObserved is RunGraph with step callbacks. Observed runs are
// long-lived, so their progress is stored after every step like async runs.
func (gm *GraphManager) RunGraphObserved(ctx context.Context, graphID string, initial core.State, maxIterations int, obs Observer) (*domain.Run, error) {
	graph, err := gm.loadGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	run := gm.executor.NewRun(NewRunID(), graph, initial)
	if err := gm.RunRepo.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	if obs != nil {
		obs = gm.withProgress(obs)
	}
	if err := gm.execute(ctx, graph, run, maxIterations, obs); err != nil {
		return run, err
	}
	return run, nil
}

// StartRun stores a running record and hands the run to the worker pool.
// It returns a snapshot of the record as it was queued.
func (gm *GraphManager) StartRun(ctx context.Context, graphID string, initial core.State, maxIterations int) (*domain.Run, error) {
	gm.mu.Lock()
	queue, started := gm.queue, gm.started
	gm.mu.Unlock()
	if !started {
		return nil, ErrNotStarted
	}

	graph, err := gm.loadGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	run := gm.executor.NewRun(NewRunID(), graph, initial)
	if err := gm.RunRepo.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	snapshot := run.Clone()

	select {
	case queue <- runJob{graph: graph, run: run, maxIterations: maxIterations, queued: gm.clock.Now()}:
		slog.InfoContext(ctx, "Run queued", "run_id", run.ID, "graph_id", graphID, "queue_len", len(queue))
		return snapshot, nil
	default:
		slog.WarnContext(ctx, "Run queue full, rejecting run", "run_id", run.ID, "graph_id", graphID)
		now := gm.clock.Now()
		run.Status = domain.RunStatusFailed
		run.Error = ErrQueueFull.Error()
		run.Finished = &now
		if err := gm.RunRepo.Update(ctx, run); err != nil {
			slog.ErrorContext(ctx, "Failed to update rejected run", "run_id", run.ID, "error", err)
		}
		return nil, ErrQueueFull
	}
}

func (gm *GraphManager) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	return gm.RunRepo.FindByID(ctx, runID)
}

func (gm *GraphManager) ListRuns(ctx context.Context, graphID string) ([]*domain.Run, error) {
	if _, err := gm.GraphRepo.FindByID(ctx, graphID); err != nil {
		return nil, err
	}
	return gm.RunRepo.FindByGraphID(ctx, graphID)
}

// Start launches the worker pool used by StartRun. Workers stop when ctx is
// cancelled; queued runs that were not picked up stay in the running status.
func (gm *GraphManager) Start(ctx context.Context) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	if gm.started {
		return
	}
	gm.queue = make(chan runJob, gm.opts.QueueSize)
	gm.started = true

	slog.InfoContext(ctx, "Starting run workers", "workers", gm.opts.Workers, "queue_size", gm.opts.QueueSize)
	for i := 0; i < gm.opts.Workers; i++ {
		workerContext := context.WithValue(ctx, workerIDKey{}, i)
		go Worker(workerContext, i, gm, gm.queue)
	}
}

func (gm *GraphManager) execute(ctx context.Context, graph *ValidatedGraph, run *domain.Run, maxIterations int, obs Observer) error {
	if gm.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, gm.opts.RunTimeout)
		defer cancel()
	}
	gm.executor.Execute(ctx, graph, gm.registry, run, maxIterations, obs)

	// the caller's context may already be done; the final record is written regardless
	if err := gm.RunRepo.Update(context.WithoutCancel(ctx), run); err != nil {
		slog.ErrorContext(ctx, "Failed to persist finished run", "run_id", run.ID, "error", err)
		return fmt.Errorf("updating run %s: %w", run.ID, err)
	}
	return nil
}

// withProgress stores the record after each step before obs sees it.
func (gm *GraphManager) withProgress(obs Observer) Observer {
	return NewCompositeObserver(progressRecorder{repo: gm.RunRepo}, obs)
}

// progressRecorder persists the record after every step so that runs
// executed in the background can be followed through GetRun.
type progressRecorder struct {
	NoopObserver
	repo RunRepo
}

func (p progressRecorder) OnStepCompleted(ctx context.Context, run *domain.Run, entry domain.LogEntry) {
	if run.Status.IsTerminal() {
		return
	}
	if err := p.repo.Update(ctx, run); err != nil {
		slog.WarnContext(ctx, "Failed to record run progress", "run_id", run.ID, "node", entry.Node, "error", err)
	}
}
