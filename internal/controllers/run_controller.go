package controllers

import (
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/graphflow/internal/util"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/models"
)

type RunController struct {
	*AuthController
	Graphs GraphService
}

func NewRunController(graphs GraphService, auth *AuthController) *RunController {
	return &RunController{AuthController: auth, Graphs: graphs}
}

func (c *RunController) handleRunGraph(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[models.RunGraphRequest](r)
	if err != nil {
		util.WriteJSONResponse(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid JSON payload: " + err.Error()})
		return
	}
	if req.GraphID == "" {
		util.WriteJSONResponse(w, http.StatusBadRequest, models.ErrorResponse{Error: "graph_id is required"})
		return
	}

	if req.Async {
		run, err := c.Graphs.StartRun(r.Context(), req.GraphID, req.InitialState, req.MaxIterations)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		util.WriteJSONResponse(w, http.StatusAccepted, models.NewRunGraphResponse(run))
		return
	}

	slog.InfoContext(r.Context(), "Running graph", "graph_id", req.GraphID, "max_iterations", req.MaxIterations)
	run, err := c.Graphs.RunGraph(r.Context(), req.GraphID, req.InitialState, req.MaxIterations)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, models.NewRunGraphResponse(run))
}

func (c *RunController) handleGetRunState(w http.ResponseWriter, r *http.Request) {
	run, err := c.Graphs.GetRun(r.Context(), r.PathValue("run_id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, models.NewRunStateResponse(run))
}
