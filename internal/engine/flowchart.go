package engine

import (
	"fmt"
	"strings"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

const endNode = "__end__"

// BuildFlowChart renders def as a mermaid flowchart. Output is stable:
// nodes keep their declared order and edge maps are walked sorted.
func BuildFlowChart(def *domain.GraphDefinition) string {
	var sb strings.Builder

	startClass := "fill:#5568FE,stroke:#3346FF,stroke-width:2px,color:#fff,stroke-dasharray: 4 2,rx:10,ry:10;"
	doneClass := "fill:#4ECDC4,stroke:#1F9C8C,stroke-width:2px,color:#fff,stroke-dasharray: 4 2,rx:10,ry:10;"
	decisionClass := "fill:#FFD93D,stroke:#E6C200,stroke-width:2px,color:#333,stroke-dasharray: 4 2,rx:10,ry:10;"
	normalClass := "fill:#F0F4F8,stroke:#B0C4DE,stroke-width:1px,color:#333,rx:10,ry:10;"

	sb.WriteString("flowchart TD\n")

	usesEnd := false
	target := func(t domain.Target) string {
		if t.IsTerminal() {
			usesEnd = true
			return endNode
		}
		return string(t)
	}

	for _, node := range def.Nodes {
		if _, ok := def.ConditionalEdges[node]; ok {
			sb.WriteString(fmt.Sprintf("    %s{%s}\n", node, node))
		} else {
			sb.WriteString(fmt.Sprintf("    %s[%s]\n", node, node))
		}
	}

	for _, src := range sortedKeys(def.Edges) {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", src, target(def.Edges[src])))
	}
	for _, src := range sortedKeys(def.ConditionalEdges) {
		branches := def.ConditionalEdges[src]
		for _, key := range sortedKeys(branches) {
			sb.WriteString(fmt.Sprintf("    %s -->|%s| %s\n", src, key, target(branches[key])))
		}
	}
	// nodes without any outgoing edge end the run
	for _, node := range def.Nodes {
		_, hasEdge := def.Edges[node]
		_, hasCond := def.ConditionalEdges[node]
		if !hasEdge && !hasCond {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", node, target(domain.Terminal)))
		}
	}
	if usesEnd {
		sb.WriteString(fmt.Sprintf("    %s((end))\n", endNode))
	}

	sb.WriteString(fmt.Sprintf("    classDef startClass %s\n", startClass))
	sb.WriteString(fmt.Sprintf("    classDef doneClass %s\n", doneClass))
	sb.WriteString(fmt.Sprintf("    classDef decisionClass %s\n", decisionClass))
	sb.WriteString(fmt.Sprintf("    classDef normalClass %s\n", normalClass))

	for _, node := range def.Nodes {
		switch {
		case node == def.EntryNode:
			sb.WriteString(fmt.Sprintf("    class %s startClass;\n", node))
		case def.ConditionalEdges[node] != nil:
			sb.WriteString(fmt.Sprintf("    class %s decisionClass;\n", node))
		default:
			sb.WriteString(fmt.Sprintf("    class %s normalClass;\n", node))
		}
	}
	if usesEnd {
		sb.WriteString(fmt.Sprintf("    class %s doneClass;\n", endNode))
	}

	return sb.String()
}
