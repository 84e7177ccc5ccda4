package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/graphflow/internal/engine"
	"github.com/RealZimboGuy/graphflow/internal/repository"
	"github.com/RealZimboGuy/graphflow/internal/util"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/models"
)

// GraphService is the engine surface the HTTP layer depends on,
// implemented by engine.GraphManager.
type GraphService interface {
	CreateGraph(ctx context.Context, req models.CreateGraphRequest) (*domain.GraphDefinition, error)
	GetGraph(ctx context.Context, id string) (*domain.GraphDefinition, error)
	ListGraphs(ctx context.Context) ([]*domain.GraphDefinition, error)
	Flowchart(ctx context.Context, id string) (string, error)
	RunGraph(ctx context.Context, graphID string, initial core.State, maxIterations int) (*domain.Run, error)
	RunGraphObserved(ctx context.Context, graphID string, initial core.State, maxIterations int, obs engine.Observer) (*domain.Run, error)
	StartRun(ctx context.Context, graphID string, initial core.State, maxIterations int) (*domain.Run, error)
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	ListRuns(ctx context.Context, graphID string) ([]*domain.Run, error)
}

// GraphController holds dependencies for graph HTTP endpoints.
type GraphController struct {
	*AuthController
	Graphs GraphService
}

func NewGraphController(graphs GraphService, auth *AuthController) *GraphController {
	return &GraphController{AuthController: auth, Graphs: graphs}
}

func (c *GraphController) handleStatus(w http.ResponseWriter, r *http.Request) {
	util.WriteJSONResponse(w, http.StatusOK, models.StatusResponse{Status: "ok", Message: "Workflow engine is running"})
}

func (c *GraphController) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.CreateGraphRequest](r)
	if err != nil {
		util.WriteJSONResponse(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid JSON payload: " + err.Error()})
		return
	}

	def, err := c.Graphs.CreateGraph(r.Context(), req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, models.CreateGraphResponse{GraphID: def.ID})
}

func (c *GraphController) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	defs, err := c.Graphs.ListGraphs(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	resp := models.ListGraphsResponse{Results: len(defs), Graphs: make([]models.GraphSummary, 0, len(defs))}
	for _, def := range defs {
		resp.Graphs = append(resp.Graphs, models.GraphSummary{
			ID:        def.ID,
			Name:      def.Name,
			EntryNode: def.EntryNode,
			Nodes:     len(def.Nodes),
			Created:   def.Created,
		})
	}
	util.WriteJSONResponse(w, http.StatusOK, resp)
}

func (c *GraphController) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	def, err := c.Graphs.GetGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, def)
}

func (c *GraphController) handleFlowchart(w http.ResponseWriter, r *http.Request) {
	chart, err := c.Graphs.Flowchart(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(chart))
}

func (c *GraphController) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := c.Graphs.ListRuns(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	resp := models.ListRunsResponse{Results: len(runs), Runs: make([]models.RunStateResponse, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, models.NewRunStateResponse(run))
	}
	util.WriteJSONResponse(w, http.StatusOK, resp)
}

// writeError maps engine and store errors to HTTP status codes.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		util.WriteJSONResponse(w, http.StatusBadRequest, models.ValidationErrorResponse{
			Error: verr.Error(),
			Kind:  string(verr.Kind),
			Field: verr.Field,
			Node:  verr.Node,
		})
	case errors.Is(err, repository.ErrGraphNotFound), errors.Is(err, repository.ErrRunNotFound):
		util.WriteJSONResponse(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, engine.ErrQueueFull), errors.Is(err, engine.ErrNotStarted):
		util.WriteJSONResponse(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: err.Error()})
	default:
		slog.ErrorContext(ctx, "Request failed", "error", err)
		util.WriteJSONResponse(w, http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"})
	}
}
