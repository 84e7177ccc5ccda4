package domain

import (
	"encoding/json"
	"errors"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrBlankTarget rejects "" as a destination; only null ends a run.
var ErrBlankTarget = errors.New("edge destination must be a node name or null")

// Target is an edge destination: a node name, or Terminal to end the run.
type Target string

const Terminal Target = ""

func (t Target) IsTerminal() bool { return t == Terminal }

// MarshalJSON writes the terminal target as null.
func (t Target) MarshalJSON() ([]byte, error) {
	if t.IsTerminal() {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

func (t *Target) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Terminal
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return ErrBlankTarget
	}
	*t = Target(s)
	return nil
}

// UnmarshalYAML is only called for non-null nodes; yaml null and ~ decode
// to Terminal.
func (t *Target) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return ErrBlankTarget
	}
	*t = Target(s)
	return nil
}

type GraphDefinition struct {
	ID               string                       `json:"id"`
	Name             string                       `json:"name"`
	EntryNode        string                       `json:"entry_node"`
	Nodes            []string                     `json:"nodes"`
	Edges            map[string]Target            `json:"edges"`
	ConditionalEdges map[string]map[string]Target `json:"conditional_edges"`
	Created          time.Time                    `json:"created"`
}

// Clone returns a copy that shares no maps or slices with g.
func (g *GraphDefinition) Clone() *GraphDefinition {
	out := *g
	out.Nodes = append([]string(nil), g.Nodes...)
	out.Edges = make(map[string]Target, len(g.Edges))
	for k, v := range g.Edges {
		out.Edges[k] = v
	}
	out.ConditionalEdges = make(map[string]map[string]Target, len(g.ConditionalEdges))
	for k, branches := range g.ConditionalEdges {
		cp := make(map[string]Target, len(branches))
		for key, dest := range branches {
			cp[key] = dest
		}
		out.ConditionalEdges[k] = cp
	}
	return &out
}
