package core

import "fmt"

// State is the key/value context threaded through one run. A step that
// routes conditionally writes its decision under its own name.
type State map[string]Value

// StateFromMap converts plain decoded data into a State.
func StateFromMap(m map[string]any) (State, error) {
	s := make(State, len(m))
	for k, raw := range m {
		v, err := FromInterface(raw)
		if err != nil {
			return nil, fmt.Errorf("state key %q: %w", k, err)
		}
		s[k] = v
	}
	return s, nil
}

// Clone returns a deep copy. Cloning a nil State yields an empty one.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v.Clone()
	}
	return out
}

func (s State) Get(key string) (Value, bool) {
	v, ok := s[key]
	return v, ok
}

func (s State) Set(key string, v Value) {
	s[key] = v
}

// Has reports whether key is present and not null.
func (s State) Has(key string) bool {
	v, ok := s[key]
	return ok && !v.IsNull()
}

// GetString returns the string under key; missing or null keys yield def and
// non-string values their textual form.
func (s State) GetString(key, def string) string {
	v, ok := s[key]
	if !ok || v.IsNull() {
		return def
	}
	if str, ok := v.AsString(); ok {
		return str
	}
	return v.String()
}

func (s State) GetInt(key string, def int) int {
	v, ok := s[key]
	if !ok || v.IsNull() {
		return def
	}
	if i, ok := v.AsInt(); ok {
		return i
	}
	return def
}

func (s State) GetFloat(key string, def float64) float64 {
	v, ok := s[key]
	if !ok || v.IsNull() {
		return def
	}
	if f, ok := v.AsFloat(); ok {
		return f
	}
	return def
}

// GetStrings returns the string items of a list value, skipping other kinds.
func (s State) GetStrings(key string) []string {
	v, ok := s[key]
	if !ok {
		return nil
	}
	items, ok := v.AsList()
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.AsString(); ok {
			out = append(out, str)
		}
	}
	return out
}

func (s State) Equal(o State) bool {
	if len(s) != len(o) {
		return false
	}
	for k, v := range s {
		other, ok := o[k]
		if !ok || !v.Equal(other) {
			return false
		}
	}
	return true
}
