package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_RouteKey(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want string
		ok   bool
	}{
		{"string", StringValue("short"), "short", true},
		{"true", BoolValue(true), "true", true},
		{"false", BoolValue(false), "false", true},
		{"int", IntValue(3), "3", true},
		{"float", NumberValue(1.5), "1.5", true},
		{"null", NullValue(), "", false},
		{"list", ListValue(StringValue("a")), "", false},
		{"map", MapValue(nil), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.v.RouteKey()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValue_JSON(t *testing.T) {
	src := `{"s":"x","n":2,"f":0.5,"b":true,"z":null,"l":[1,"a"],"m":{"k":false}}`
	var state State
	require.NoError(t, json.Unmarshal([]byte(src), &state))

	assert.Equal(t, KindString, state["s"].Kind())
	assert.True(t, state["n"].IsInteger())
	assert.False(t, state["f"].IsInteger())
	assert.True(t, state["z"].IsNull())
	assert.Equal(t, KindList, state["l"].Kind())
	assert.Equal(t, KindMap, state["m"].Kind())

	out, err := json.Marshal(state)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(out))
}

func TestValue_EmptyContainersMarshal(t *testing.T) {
	out, err := json.Marshal(map[string]Value{"l": ListValue(), "m": MapValue(nil)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"l":[],"m":{}}`, string(out))
}

func TestValue_CloneIsDeep(t *testing.T) {
	inner := map[string]Value{"k": StringValue("v")}
	orig := MapValue(map[string]Value{"inner": MapValue(inner), "list": ListValue(IntValue(1))})
	cp := orig.Clone()

	inner["k"] = StringValue("changed")
	m, _ := cp.AsMap()
	got, _ := m["inner"].AsMap()
	assert.Equal(t, "v", got["k"].String())
	assert.False(t, orig.Equal(cp))
}

func TestValue_Coercion(t *testing.T) {
	n, ok := StringValue(" 42 ").AsInt()
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	n, ok = NumberValue(2.9).AsInt()
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = BoolValue(true).AsInt()
	assert.False(t, ok)

	f, ok := StringValue("0.25").AsFloat()
	assert.True(t, ok)
	assert.Equal(t, 0.25, f)
}

func TestFromInterface_Unsupported(t *testing.T) {
	_, err := FromInterface(struct{}{})
	assert.Error(t, err)

	v, err := FromInterface([]any{"a", 1, nil})
	require.NoError(t, err)
	assert.Equal(t, "[a 1 null]", v.String())
}
