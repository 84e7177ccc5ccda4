package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
)

func TestTarget_JSON(t *testing.T) {
	edges := map[string]Target{"a": "b", "b": Terminal}
	out, err := json.Marshal(edges)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"b","b":null}`, string(out))

	var back map[string]Target
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, edges, back)
	assert.True(t, back["b"].IsTerminal())

	var bad Target
	assert.Error(t, json.Unmarshal([]byte(`5`), &bad))
	assert.ErrorIs(t, json.Unmarshal([]byte(`""`), &bad), ErrBlankTarget)
}

func TestTarget_YAML(t *testing.T) {
	var edges map[string]Target
	require.NoError(t, yaml.Unmarshal([]byte("a: b\nb: null\nc: ~\nd:\n"), &edges))
	assert.Equal(t, Target("b"), edges["a"])
	assert.True(t, edges["b"].IsTerminal())
	assert.True(t, edges["c"].IsTerminal())
	assert.True(t, edges["d"].IsTerminal())

	err := yaml.Unmarshal([]byte(`a: ""`), &edges)
	assert.ErrorIs(t, err, ErrBlankTarget)
}

func TestGraphDefinition_Clone(t *testing.T) {
	g := &GraphDefinition{
		Nodes:            []string{"a"},
		Edges:            map[string]Target{"a": Terminal},
		ConditionalEdges: map[string]map[string]Target{"a": {"x": "a"}},
	}
	cp := g.Clone()
	cp.Nodes[0] = "z"
	cp.Edges["a"] = "z"
	cp.ConditionalEdges["a"]["x"] = "z"

	assert.Equal(t, "a", g.Nodes[0])
	assert.True(t, g.Edges["a"].IsTerminal())
	assert.Equal(t, Target("a"), g.ConditionalEdges["a"]["x"])
}

func TestRun_CloneAndPath(t *testing.T) {
	r := &Run{
		Status: RunStatusRunning,
		State:  core.State{"n": core.IntValue(1)},
		ExecutionLog: []LogEntry{
			{Sequence: 1, Node: "a", State: core.State{"n": core.IntValue(1)}},
			{Sequence: 2, Node: "b", State: core.State{"n": core.IntValue(1)}},
		},
	}
	assert.Equal(t, []string{"a", "b"}, r.Path())
	assert.Equal(t, "b", r.LastEntry().Node)
	assert.Nil(t, (&Run{}).LastEntry())

	cp := r.Clone()
	cp.State.Set("n", core.IntValue(9))
	cp.ExecutionLog[0].State.Set("n", core.IntValue(9))
	assert.Equal(t, 1, r.State.GetInt("n", 0))
	assert.Equal(t, 1, r.ExecutionLog[0].State.GetInt("n", 0))

	assert.False(t, RunStatusRunning.IsTerminal())
	assert.True(t, RunStatusAbortedLoopLimit.IsTerminal())
}
