package controllers

import "net/http"

// RegisterRoutes wires the HTTP routes for this controller.
func (c *GraphController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleStatus)
	mux.HandleFunc("POST /graph/create", c.RequireAuth(c.handleCreateGraph))
	mux.HandleFunc("GET /graph", c.RequireAuth(c.handleListGraphs))
	mux.HandleFunc("GET /graph/{id}", c.RequireAuth(c.handleGetGraph))
	mux.HandleFunc("GET /graph/flowchart/{id}", c.RequireAuth(c.handleFlowchart))
	mux.HandleFunc("GET /graph/runs/{id}", c.RequireAuth(c.handleListRuns))
}
func (c *RunController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /graph/run", c.RequireAuth(c.handleRunGraph))
	mux.HandleFunc("GET /graph/state/{run_id}", c.RequireAuth(c.handleGetRunState))
}
func (c *StreamController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /graph/stream", c.RequireAuth(c.handleStream))
}
