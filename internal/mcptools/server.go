// Package mcptools exposes graph creation and execution as MCP tools so an
// agent can drive the engine over stdio.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/models"
)

const (
	ToolCreateGraph = "create_graph"
	ToolRunGraph    = "run_graph"
	ToolGetRun      = "get_run"
)

type GraphService interface {
	CreateGraph(ctx context.Context, req models.CreateGraphRequest) (*domain.GraphDefinition, error)
	RunGraph(ctx context.Context, graphID string, initial core.State, maxIterations int) (*domain.Run, error)
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
}

// getArgs extracts arguments from request as map[string]any
func getArgs(request mcp.CallToolRequest) map[string]any {
	if args, ok := request.Params.Arguments.(map[string]any); ok {
		return args
	}
	return make(map[string]any)
}

type Server struct {
	mcpServer *server.MCPServer
	graphs    GraphService
}

// NewServer creates an MCP server with the graph tools registered.
func NewServer(graphs GraphService, version string) *Server {
	s := &Server{graphs: graphs}
	mcpServer := server.NewMCPServer(
		"graphflow",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	createTool := mcp.NewTool(ToolCreateGraph,
		mcp.WithDescription("Validate and store a graph definition. Returns the new graph id."),
		mcp.WithString("definition",
			mcp.Required(),
			mcp.Description(`Graph as JSON: {"name", "entry_node", "nodes", "edges", "conditional_edges"}`),
		),
	)
	mcpServer.AddTool(createTool, s.handleCreateGraph)

	runTool := mcp.NewTool(ToolRunGraph,
		mcp.WithDescription("Run a stored graph to completion and return the run record"),
		mcp.WithString("graph_id",
			mcp.Required(),
			mcp.Description("Id returned by create_graph"),
		),
		mcp.WithString("initial_state",
			mcp.Description("Initial state as a JSON object"),
		),
		mcp.WithNumber("max_iterations",
			mcp.Description("Loop limit for this run; the server default applies when omitted"),
		),
	)
	mcpServer.AddTool(runTool, s.handleRunGraph)

	getRunTool := mcp.NewTool(ToolGetRun,
		mcp.WithDescription("Fetch the current state and execution log of a run"),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("Id of the run"),
		),
	)
	mcpServer.AddTool(getRunTool, s.handleGetRun)
}

// Serve blocks serving MCP over stdin/stdout.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleCreateGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	raw, ok := args["definition"].(string)
	if !ok || raw == "" {
		return mcp.NewToolResultError("definition parameter is required"), nil
	}
	var req models.CreateGraphRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid definition: %v", err)), nil
	}
	def, err := s.graphs.CreateGraph(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(models.CreateGraphResponse{GraphID: def.ID})
}

func (s *Server) handleRunGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	graphID, _ := args["graph_id"].(string)
	if graphID == "" {
		return mcp.NewToolResultError("graph_id parameter is required"), nil
	}

	initial := core.State{}
	if raw, _ := args["initial_state"].(string); raw != "" {
		if err := json.Unmarshal([]byte(raw), &initial); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid initial_state: %v", err)), nil
		}
	}
	maxIterations := 0
	if n, ok := args["max_iterations"].(float64); ok {
		maxIterations = int(n)
	}

	run, err := s.graphs.RunGraph(ctx, graphID, initial, maxIterations)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slog.InfoContext(ctx, "MCP run finished", "graph_id", graphID, "run_id", run.ID, "status", run.Status)
	return jsonResult(models.NewRunGraphResponse(run))
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	runID, _ := args["run_id"].(string)
	if runID == "" {
		return mcp.NewToolResultError("run_id parameter is required"), nil
	}
	run, err := s.graphs.GetRun(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(models.NewRunStateResponse(run))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}
