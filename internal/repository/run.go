package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
)

// RunRepository provides methods to persist and query run records.
// It expects the following table schema (PostgreSQL):
//
//	runs(id TEXT PK, graph_id TEXT, status TEXT, state TEXT, execution_log TEXT,
//	     error TEXT, iterations INT, created TIMESTAMPTZ, finished TIMESTAMPTZ NULL)
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	state, log, err := encodeRun(run)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO runs (id, graph_id, status, state, execution_log, error, iterations, created, finished)
		VALUES (` + placeholders(9) + `)`
	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.GraphID,
		string(run.Status),
		state,
		log,
		run.Error,
		run.Iterations,
		run.Created.UTC(),
		finishedTime(run),
	)
	return err
}

// Update overwrites the mutable columns of an existing run.
func (r *RunRepository) Update(ctx context.Context, run *domain.Run) error {
	state, log, err := encodeRun(run)
	if err != nil {
		return err
	}
	query := `
		UPDATE runs
		SET status = ` + placeholder(1) + `, state = ` + placeholder(2) + `, execution_log = ` + placeholder(3) + `,
			error = ` + placeholder(4) + `, iterations = ` + placeholder(5) + `, finished = ` + placeholder(6) + `
		WHERE id = ` + placeholder(7)
	res, err := r.db.ExecContext(ctx, query,
		string(run.Status),
		state,
		log,
		run.Error,
		run.Iterations,
		finishedTime(run),
		run.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

func (r *RunRepository) FindByID(ctx context.Context, id string) (*domain.Run, error) {
	query := `
		SELECT id, graph_id, status, state, execution_log, error, iterations, created, finished
		FROM runs WHERE id = ` + placeholder(1)
	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// FindByGraphID returns the runs of one graph, oldest first.
func (r *RunRepository) FindByGraphID(ctx context.Context, graphID string) ([]*domain.Run, error) {
	query := `
		SELECT id, graph_id, status, state, execution_log, error, iterations, created, finished
		FROM runs WHERE graph_id = ` + placeholder(1) + `
		ORDER BY created, id`
	rows, err := r.db.QueryContext(ctx, query, graphID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func encodeRun(run *domain.Run) (string, string, error) {
	state := run.State
	if state == nil {
		state = core.State{}
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return "", "", fmt.Errorf("run %s: encoding state: %w", run.ID, err)
	}
	entries := run.ExecutionLog
	if entries == nil {
		entries = []domain.LogEntry{}
	}
	logJSON, err := json.Marshal(entries)
	if err != nil {
		return "", "", fmt.Errorf("run %s: encoding execution log: %w", run.ID, err)
	}
	return string(stateJSON), string(logJSON), nil
}

func finishedTime(run *domain.Run) sql.NullTime {
	if run.Finished == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: run.Finished.UTC(), Valid: true}
}

func scanRun(row rowScanner) (*domain.Run, error) {
	var run domain.Run
	var status, state, log string
	var errText sql.NullString
	var finished sql.NullTime
	if err := row.Scan(&run.ID, &run.GraphID, &status, &state, &log, &errText, &run.Iterations, &run.Created, &finished); err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	run.Error = errText.String
	run.Created = run.Created.UTC()
	if finished.Valid {
		t := finished.Time.UTC()
		run.Finished = &t
	}
	if err := json.Unmarshal([]byte(state), &run.State); err != nil {
		return nil, fmt.Errorf("run %s: decoding state: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(log), &run.ExecutionLog); err != nil {
		return nil, fmt.Errorf("run %s: decoding execution log: %w", run.ID, err)
	}
	if run.State == nil {
		run.State = core.State{}
	}
	return &run, nil
}
