package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrStepNotFound  = errors.New("step not found")
	ErrDuplicateStep = errors.New("step already registered")
)

// Step is the unit of work the engine invokes for a node. Apply may mutate
// state in place and return nil, or return the updated state.
type Step interface {
	Apply(ctx context.Context, state State) (State, error)
}

// StepFunc adapts a plain function to the Step interface.
type StepFunc func(ctx context.Context, state State) (State, error)

func (f StepFunc) Apply(ctx context.Context, state State) (State, error) {
	return f(ctx, state)
}

// Registry maps step names to implementations. It is built once at start-up
// and handed to the engine; it is safe for concurrent lookups.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
}

func NewRegistry() *Registry {
	return &Registry{steps: make(map[string]Step)}
}

func (r *Registry) Register(name string, step Step) error {
	if name == "" {
		return errors.New("step name is required")
	}
	if step == nil {
		return fmt.Errorf("step %q: implementation is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.steps[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateStep, name)
	}
	r.steps[name] = step
	return nil
}

func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context, state State) (State, error)) error {
	return r.Register(name, StepFunc(fn))
}

func (r *Registry) Resolve(name string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	step, ok := r.steps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, name)
	}
	return step, nil
}

// Names returns the registered step names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.steps))
	for name := range r.steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
