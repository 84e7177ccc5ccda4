package models

import (
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

// RunGraphRequest is the payload for starting a run.
type RunGraphRequest struct {
	GraphID       string     `json:"graph_id"`
	InitialState  core.State `json:"initial_state"`
	MaxIterations int        `json:"max_iterations,omitempty"`
	Async         bool       `json:"async,omitempty"`
}

// RunGraphResponse is returned once a run finishes, or immediately for async runs.
type RunGraphResponse struct {
	RunID        string            `json:"run_id"`
	FinalState   core.State        `json:"final_state"`
	ExecutionLog []domain.LogEntry `json:"execution_log"`
	Status       domain.RunStatus  `json:"status"`
	Error        string            `json:"error,omitempty"`
}

// RunStateResponse describes a stored run.
type RunStateResponse struct {
	RunID        string            `json:"run_id"`
	GraphID      string            `json:"graph_id"`
	Status       domain.RunStatus  `json:"status"`
	State        core.State        `json:"state"`
	ExecutionLog []domain.LogEntry `json:"execution_log"`
	Error        string            `json:"error,omitempty"`
	Iterations   int               `json:"iterations"`
}

type ListRunsResponse struct {
	Results int                `json:"results"`
	Runs    []RunStateResponse `json:"runs"`
}

// StreamMessage is one websocket frame of a streamed run.
type StreamMessage struct {
	Type  string            `json:"type"`
	Entry *domain.LogEntry  `json:"entry,omitempty"`
	Run   *RunGraphResponse `json:"run,omitempty"`
	Error string            `json:"error,omitempty"`
}

const (
	StreamMessageStep   = "step"
	StreamMessageResult = "result"
	StreamMessageError  = "error"
)

func NewRunGraphResponse(run *domain.Run) RunGraphResponse {
	return RunGraphResponse{
		RunID:        run.ID,
		FinalState:   run.State,
		ExecutionLog: run.ExecutionLog,
		Status:       run.Status,
		Error:        run.Error,
	}
}

func NewRunStateResponse(run *domain.Run) RunStateResponse {
	return RunStateResponse{
		RunID:        run.ID,
		GraphID:      run.GraphID,
		Status:       run.Status,
		State:        run.State,
		ExecutionLog: run.ExecutionLog,
		Error:        run.Error,
		Iterations:   run.Iterations,
	}
}
