package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

// GraphRepository stores graph definitions in the graphs table. Nodes and
// edge maps are kept as JSON text so every dialect uses the same schema.
type GraphRepository struct {
	db *sql.DB
}

func NewGraphRepository(db *sql.DB) *GraphRepository {
	return &GraphRepository{db: db}
}

// Save inserts a definition. Definitions are immutable, so saving an id
// twice is an error.
func (r *GraphRepository) Save(ctx context.Context, def *domain.GraphDefinition) error {
	nodes, err := json.Marshal(def.Nodes)
	if err != nil {
		return fmt.Errorf("encoding nodes: %w", err)
	}
	edges, err := json.Marshal(def.Edges)
	if err != nil {
		return fmt.Errorf("encoding edges: %w", err)
	}
	conditional, err := json.Marshal(def.ConditionalEdges)
	if err != nil {
		return fmt.Errorf("encoding conditional edges: %w", err)
	}

	query := `
		INSERT INTO graphs (id, name, entry_node, nodes, edges, conditional_edges, created)
		VALUES (` + placeholders(7) + `)`
	_, err = r.db.ExecContext(ctx, query,
		def.ID,
		def.Name,
		def.EntryNode,
		string(nodes),
		string(edges),
		string(conditional),
		def.Created.UTC(),
	)
	return err
}

func (r *GraphRepository) FindByID(ctx context.Context, id string) (*domain.GraphDefinition, error) {
	query := `
		SELECT id, name, entry_node, nodes, edges, conditional_edges, created
		FROM graphs WHERE id = ` + placeholder(1)
	def, err := scanGraph(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return def, nil
}

// FindAll returns every stored graph, oldest first.
func (r *GraphRepository) FindAll(ctx context.Context) ([]*domain.GraphDefinition, error) {
	query := `
		SELECT id, name, entry_node, nodes, edges, conditional_edges, created
		FROM graphs
		ORDER BY created, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := make([]*domain.GraphDefinition, 0)
	for rows.Next() {
		def, err := scanGraph(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGraph(row rowScanner) (*domain.GraphDefinition, error) {
	var def domain.GraphDefinition
	var nodes, edges, conditional string
	if err := row.Scan(&def.ID, &def.Name, &def.EntryNode, &nodes, &edges, &conditional, &def.Created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(nodes), &def.Nodes); err != nil {
		return nil, fmt.Errorf("graph %s: decoding nodes: %w", def.ID, err)
	}
	if err := json.Unmarshal([]byte(edges), &def.Edges); err != nil {
		return nil, fmt.Errorf("graph %s: decoding edges: %w", def.ID, err)
	}
	if err := json.Unmarshal([]byte(conditional), &def.ConditionalEdges); err != nil {
		return nil, fmt.Errorf("graph %s: decoding conditional edges: %w", def.ID, err)
	}
	if def.Edges == nil {
		def.Edges = map[string]domain.Target{}
	}
	if def.ConditionalEdges == nil {
		def.ConditionalEdges = map[string]map[string]domain.Target{}
	}
	def.Created = def.Created.UTC()
	return &def, nil
}
