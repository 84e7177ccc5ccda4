package engine

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

var errMockNotFound = errors.New("not found")

type MockGraphRepo struct {
	SaveFunc     func(ctx context.Context, def *domain.GraphDefinition) error
	FindByIDFunc func(ctx context.Context, id string) (*domain.GraphDefinition, error)
	FindAllFunc  func(ctx context.Context) ([]*domain.GraphDefinition, error)
}

func (m *MockGraphRepo) Save(ctx context.Context, def *domain.GraphDefinition) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, def)
	}
	return nil
}
func (m *MockGraphRepo) FindByID(ctx context.Context, id string) (*domain.GraphDefinition, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, errMockNotFound
}
func (m *MockGraphRepo) FindAll(ctx context.Context) ([]*domain.GraphDefinition, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx)
	}
	return nil, nil
}

type MockRunRepo struct {
	SaveFunc          func(ctx context.Context, run *domain.Run) error
	UpdateFunc        func(ctx context.Context, run *domain.Run) error
	FindByIDFunc      func(ctx context.Context, id string) (*domain.Run, error)
	FindByGraphIDFunc func(ctx context.Context, graphID string) ([]*domain.Run, error)
}

func (m *MockRunRepo) Save(ctx context.Context, run *domain.Run) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, run)
	}
	return nil
}
func (m *MockRunRepo) Update(ctx context.Context, run *domain.Run) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, run)
	}
	return nil
}
func (m *MockRunRepo) FindByID(ctx context.Context, id string) (*domain.Run, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, errMockNotFound
}
func (m *MockRunRepo) FindByGraphID(ctx context.Context, graphID string) ([]*domain.Run, error) {
	if m.FindByGraphIDFunc != nil {
		return m.FindByGraphIDFunc(ctx, graphID)
	}
	return nil, nil
}

// mapStore wires the mocks to maps so manager tests can observe what was stored.
type mapStore struct {
	mu      sync.Mutex
	graphs  map[string]*domain.GraphDefinition
	runs    map[string]*domain.Run
	updates int
}

func newMapStore() (*mapStore, *MockGraphRepo, *MockRunRepo) {
	s := &mapStore{graphs: map[string]*domain.GraphDefinition{}, runs: map[string]*domain.Run{}}
	graphs := &MockGraphRepo{
		SaveFunc: func(ctx context.Context, def *domain.GraphDefinition) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.graphs[def.ID] = def.Clone()
			return nil
		},
		FindByIDFunc: func(ctx context.Context, id string) (*domain.GraphDefinition, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			def, ok := s.graphs[id]
			if !ok {
				return nil, errMockNotFound
			}
			return def.Clone(), nil
		},
		FindAllFunc: func(ctx context.Context) ([]*domain.GraphDefinition, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			out := make([]*domain.GraphDefinition, 0, len(s.graphs))
			for _, def := range s.graphs {
				out = append(out, def.Clone())
			}
			sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
			return out, nil
		},
	}
	runs := &MockRunRepo{
		SaveFunc: func(ctx context.Context, run *domain.Run) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.runs[run.ID] = run.Clone()
			return nil
		},
		UpdateFunc: func(ctx context.Context, run *domain.Run) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.runs[run.ID]; !ok {
				return errMockNotFound
			}
			s.runs[run.ID] = run.Clone()
			s.updates++
			return nil
		},
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Run, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			run, ok := s.runs[id]
			if !ok {
				return nil, errMockNotFound
			}
			return run.Clone(), nil
		},
		FindByGraphIDFunc: func(ctx context.Context, graphID string) ([]*domain.Run, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			var out []*domain.Run
			for _, run := range s.runs {
				if run.GraphID == graphID {
					out = append(out, run.Clone())
				}
			}
			return out, nil
		},
	}
	return s, graphs, runs
}

func (s *mapStore) graphCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.graphs)
}
