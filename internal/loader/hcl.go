package loader

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/models"
)

// hclGraphFile represents the top-level structure of a graph file for decoding.
type hclGraphFile struct {
	Graphs []*hclGraph `hcl:"graph,block"`
}

// hclGraph keeps the edge maps as raw expressions: their values may be
// null, which gohcl cannot decode into plain Go maps.
type hclGraph struct {
	Name             string         `hcl:"name,label"`
	Entry            string         `hcl:"entry"`
	Nodes            []string       `hcl:"nodes"`
	Edges            hcl.Expression `hcl:"edges,optional"`
	ConditionalEdges hcl.Expression `hcl:"conditional_edges,optional"`
}

// ParseHCL decodes a file holding exactly one graph block.
func ParseHCL(src []byte, filename string) (models.CreateGraphRequest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return models.CreateGraphRequest{}, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclGraphFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return models.CreateGraphRequest{}, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	if len(parsed.Graphs) != 1 {
		return models.CreateGraphRequest{}, fmt.Errorf("%s: expected exactly one graph block, found %d", filename, len(parsed.Graphs))
	}
	g := parsed.Graphs[0]

	req := models.CreateGraphRequest{
		Name:             g.Name,
		EntryNode:        g.Entry,
		Nodes:            g.Nodes,
		Edges:            map[string]domain.Target{},
		ConditionalEdges: map[string]map[string]domain.Target{},
	}

	edges, err := evalObject(g.Edges, "edges")
	if err != nil {
		return models.CreateGraphRequest{}, fmt.Errorf("%s: %w", filename, err)
	}
	for src, val := range edges {
		dest, err := toTarget(val, "edges."+src)
		if err != nil {
			return models.CreateGraphRequest{}, fmt.Errorf("%s: %w", filename, err)
		}
		req.Edges[src] = dest
	}

	conditional, err := evalObject(g.ConditionalEdges, "conditional_edges")
	if err != nil {
		return models.CreateGraphRequest{}, fmt.Errorf("%s: %w", filename, err)
	}
	for src, val := range conditional {
		where := "conditional_edges." + src
		if val.IsNull() || !val.CanIterateElements() {
			return models.CreateGraphRequest{}, fmt.Errorf("%s: %s must be an object of branch = destination", filename, where)
		}
		branches := map[string]domain.Target{}
		for key, dest := range objectElements(val) {
			target, err := toTarget(dest, where+"."+key)
			if err != nil {
				return models.CreateGraphRequest{}, fmt.Errorf("%s: %w", filename, err)
			}
			branches[key] = target
		}
		req.ConditionalEdges[src] = branches
	}
	return req, nil
}

// evalObject evaluates an optional object attribute without variables.
func evalObject(expr hcl.Expression, name string) (map[string]cty.Value, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %w", name, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsKnown() || !(val.Type().IsObjectType() || val.Type().IsMapType()) {
		return nil, fmt.Errorf("%s must be an object, got %s", name, val.Type().FriendlyName())
	}
	return objectElements(val), nil
}

func objectElements(val cty.Value) map[string]cty.Value {
	out := map[string]cty.Value{}
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		out[k.AsString()] = v
	}
	return out
}

func toTarget(val cty.Value, where string) (domain.Target, error) {
	if val.IsNull() {
		return domain.Terminal, nil
	}
	if !val.IsKnown() || val.Type() != cty.String {
		return domain.Terminal, fmt.Errorf("%s must be a node name or null, got %s", where, val.Type().FriendlyName())
	}
	if val.AsString() == "" {
		return domain.Terminal, fmt.Errorf("%s: %w", where, domain.ErrBlankTarget)
	}
	return domain.Target(val.AsString()), nil
}
