package models

import (
	"time"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

// CreateGraphRequest is the payload for submitting a graph definition.
type CreateGraphRequest struct {
	Name             string                              `json:"name" yaml:"name"`
	EntryNode        string                              `json:"entry_node" yaml:"entry_node"`
	Nodes            []string                            `json:"nodes" yaml:"nodes"`
	Edges            map[string]domain.Target            `json:"edges" yaml:"edges"`
	ConditionalEdges map[string]map[string]domain.Target `json:"conditional_edges" yaml:"conditional_edges"`
}

// Definition converts the request into an unsaved graph definition.
func (r CreateGraphRequest) Definition() *domain.GraphDefinition {
	def := &domain.GraphDefinition{
		Name:             r.Name,
		EntryNode:        r.EntryNode,
		Nodes:            r.Nodes,
		Edges:            r.Edges,
		ConditionalEdges: r.ConditionalEdges,
	}
	return def.Clone()
}

type CreateGraphResponse struct {
	GraphID string `json:"graph_id"`
}

// ValidationErrorResponse carries field-level detail of a rejected graph.
type ValidationErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
	Node  string `json:"node,omitempty"`
}

type GraphSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	EntryNode string    `json:"entry_node"`
	Nodes     int       `json:"nodes"`
	Created   time.Time `json:"created"`
}

type ListGraphsResponse struct {
	Results int            `json:"results"`
	Graphs  []GraphSummary `json:"graphs"`
}
