package engine

import (
	"fmt"
	"sort"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

// DefaultBranch is the conditional-edge key used when the routing value has
// no entry of its own.
const DefaultBranch = "default"

// StepRegistry resolves step implementations by node name.
type StepRegistry interface {
	Resolve(name string) (core.Step, error)
}

// ValidatedGraph is an immutable graph that passed Validate.
type ValidatedGraph struct {
	def *domain.GraphDefinition
}

// Definition returns a copy of the underlying definition.
func (g *ValidatedGraph) Definition() *domain.GraphDefinition { return g.def.Clone() }
func (g *ValidatedGraph) ID() string                          { return g.def.ID }
func (g *ValidatedGraph) Name() string                        { return g.def.Name }
func (g *ValidatedGraph) EntryNode() string                   { return g.def.EntryNode }

// next resolves where traversal goes after node ran and left state behind.
func (g *ValidatedGraph) next(node string, state core.State) (domain.Target, error) {
	if branches, ok := g.def.ConditionalEdges[node]; ok {
		value := state[node]
		if key, ok := value.RouteKey(); ok {
			if dest, ok := branches[key]; ok {
				return dest, nil
			}
		}
		if dest, ok := branches[DefaultBranch]; ok {
			return dest, nil
		}
		return domain.Terminal, &UnresolvedBranchError{Node: node, Value: value}
	}
	if dest, ok := g.def.Edges[node]; ok {
		return dest, nil
	}
	return domain.Terminal, nil
}

// Validate checks def against the registry and returns an immutable copy.
// Checks run in a fixed order and stop at the first failure; maps are walked
// in sorted key order so the reported offender is stable.
func Validate(def *domain.GraphDefinition, registry StepRegistry) (*ValidatedGraph, error) {
	if def == nil {
		return nil, &ValidationError{Kind: InvalidEntry, Field: "entry_node", Msg: "graph definition is empty"}
	}

	nodes := make(map[string]struct{}, len(def.Nodes))
	for _, name := range def.Nodes {
		nodes[name] = struct{}{}
	}

	if def.EntryNode == "" {
		return nil, &ValidationError{Kind: InvalidEntry, Field: "entry_node", Msg: "entry_node is required"}
	}
	if _, ok := nodes[def.EntryNode]; !ok {
		return nil, &ValidationError{
			Kind:  InvalidEntry,
			Field: "entry_node",
			Node:  def.EntryNode,
			Msg:   fmt.Sprintf("entry_node %q is not listed in nodes", def.EntryNode),
		}
	}

	for _, name := range def.Nodes {
		if _, err := registry.Resolve(name); err != nil {
			return nil, &ValidationError{
				Kind:  UnknownStep,
				Field: "nodes",
				Node:  name,
				Msg:   fmt.Sprintf("step %q is not registered", name),
			}
		}
	}

	for _, src := range sortedKeys(def.Edges) {
		if _, ok := nodes[src]; !ok {
			return nil, &ValidationError{
				Kind:  UnknownSource,
				Field: "edges",
				Node:  src,
				Msg:   fmt.Sprintf("edge source %q is not listed in nodes", src),
			}
		}
	}
	for _, src := range sortedKeys(def.ConditionalEdges) {
		if _, ok := nodes[src]; !ok {
			return nil, &ValidationError{
				Kind:  UnknownSource,
				Field: "conditional_edges",
				Node:  src,
				Msg:   fmt.Sprintf("conditional edge source %q is not listed in nodes", src),
			}
		}
	}

	for _, src := range sortedKeys(def.Edges) {
		dest := def.Edges[src]
		if dest.IsTerminal() {
			continue
		}
		if _, ok := nodes[string(dest)]; !ok {
			return nil, &ValidationError{
				Kind:  UnknownDestination,
				Field: "edges",
				Node:  string(dest),
				Msg:   fmt.Sprintf("edge %q -> %q points to a node not listed in nodes", src, dest),
			}
		}
	}
	for _, src := range sortedKeys(def.ConditionalEdges) {
		branches := def.ConditionalEdges[src]
		for _, key := range sortedKeys(branches) {
			dest := branches[key]
			if dest.IsTerminal() {
				continue
			}
			if _, ok := nodes[string(dest)]; !ok {
				return nil, &ValidationError{
					Kind:  UnknownDestination,
					Field: "conditional_edges",
					Node:  string(dest),
					Msg:   fmt.Sprintf("conditional edge %q [%s] -> %q points to a node not listed in nodes", src, key, dest),
				}
			}
		}
	}

	for _, src := range sortedKeys(def.Edges) {
		if _, ok := def.ConditionalEdges[src]; ok {
			return nil, &ValidationError{
				Kind:  AmbiguousRouting,
				Field: "conditional_edges",
				Node:  src,
				Msg:   fmt.Sprintf("node %q has both an unconditional and a conditional edge", src),
			}
		}
	}

	return &ValidatedGraph{def: def.Clone()}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
