package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

type workerIDKey struct{}

type runJob struct {
	graph         *ValidatedGraph
	run           *domain.Run
	maxIterations int
	queued        time.Time
}

// Worker function that processes queued runs until ctx is cancelled
func Worker(ctx context.Context, id int, gm *GraphManager, queue <-chan runJob) {
	for {
		select {
		case <-ctx.Done():
			slog.DebugContext(ctx, "Worker stopping", "worker_id", id)
			return
		case job := <-queue: // blocks until a job arrives
			slog.InfoContext(ctx, "Worker starting run", "worker_id", id, "run_id", job.run.ID, "waited", elapsed(gm.clock, job.queued).String())
			obs := gm.withProgress(nil)
			if err := gm.execute(ctx, job.graph, job.run, job.maxIterations, obs); err != nil {
				slog.ErrorContext(ctx, "Worker failed to store run", "worker_id", id, "run_id", job.run.ID, "error", err)
			}
			slog.InfoContext(ctx, "Worker finished run", "worker_id", id, "run_id", job.run.ID, "status", job.run.Status)
		}
	}
}
