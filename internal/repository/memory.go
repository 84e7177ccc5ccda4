package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

// MemoryGraphRepository keeps graphs in process memory. Records are copied
// on the way in and out so callers never share maps with the store.
type MemoryGraphRepository struct {
	mu     sync.RWMutex
	graphs map[string]*domain.GraphDefinition
}

func NewMemoryGraphRepository() *MemoryGraphRepository {
	return &MemoryGraphRepository{graphs: make(map[string]*domain.GraphDefinition)}
}

func (r *MemoryGraphRepository) Save(ctx context.Context, def *domain.GraphDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.graphs[def.ID]; exists {
		return fmt.Errorf("graph %s already exists", def.ID)
	}
	r.graphs[def.ID] = def.Clone()
	return nil
}

func (r *MemoryGraphRepository) FindByID(ctx context.Context, id string) (*domain.GraphDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.graphs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, id)
	}
	return def.Clone(), nil
}

func (r *MemoryGraphRepository) FindAll(ctx context.Context) ([]*domain.GraphDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*domain.GraphDefinition, 0, len(r.graphs))
	for _, def := range r.graphs {
		defs = append(defs, def.Clone())
	}
	sort.Slice(defs, func(i, j int) bool {
		if !defs[i].Created.Equal(defs[j].Created) {
			return defs[i].Created.Before(defs[j].Created)
		}
		return defs[i].ID < defs[j].ID
	})
	return defs, nil
}

type MemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[string]*domain.Run
}

func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: make(map[string]*domain.Run)}
}

func (r *MemoryRunRepository) Save(ctx context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	r.runs[run.ID] = run.Clone()
	return nil
}

func (r *MemoryRunRepository) Update(ctx context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[run.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	r.runs[run.ID] = run.Clone()
	return nil
}

func (r *MemoryRunRepository) FindByID(ctx context.Context, id string) (*domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run.Clone(), nil
}

func (r *MemoryRunRepository) FindByGraphID(ctx context.Context, graphID string) ([]*domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runs := make([]*domain.Run, 0)
	for _, run := range r.runs {
		if run.GraphID == graphID {
			runs = append(runs, run.Clone())
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].Created.Equal(runs[j].Created) {
			return runs[i].Created.Before(runs[j].Created)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}
