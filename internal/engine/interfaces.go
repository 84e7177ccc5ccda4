package engine

import (
	"context"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

// GraphRepo defines the interface for graph persistence, matching
// repository.GraphRepository.
type GraphRepo interface {
	Save(ctx context.Context, def *domain.GraphDefinition) error
	FindByID(ctx context.Context, id string) (*domain.GraphDefinition, error)
	FindAll(ctx context.Context) ([]*domain.GraphDefinition, error)
}

// RunRepo defines the interface for run persistence, matching
// repository.RunRepository.
type RunRepo interface {
	Save(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
	FindByID(ctx context.Context, id string) (*domain.Run, error)
	FindByGraphID(ctx context.Context, graphID string) ([]*domain.Run, error)
}
