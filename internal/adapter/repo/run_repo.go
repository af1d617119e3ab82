package repo

import (
	"context"
	"errors"
	"time"

	"videogen/internal/domain"
	"videogen/internal/infra"
	"videogen/internal/sqlinline"
)

// RunRepositoryPG implements domain.RunRepository on PostgreSQL.
type RunRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewRunRepository creates a run ledger backed by the given executor.
func NewRunRepository(sql infra.SQLExecutor) *RunRepositoryPG {
	return &RunRepositoryPG{sql: sql}
}

// EnsureSchema creates the ledger tables when missing.
func (r *RunRepositoryPG) EnsureSchema(ctx context.Context) error {
	_, err := r.sql.Exec(ctx, sqlinline.QEnsureSchema)
	return err
}

// Create inserts a run in the pending state.
func (r *RunRepositoryPG) Create(ctx context.Context, run *domain.Run) error {
	if run == nil || run.ID == "" {
		return errors.New("repo: run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Outcome == "" {
		run.Outcome = "pending"
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertRun,
		run.ID,
		run.Name,
		run.Handle.String(),
		nullableJSON(run.RequestJSON),
		run.Outcome,
		run.StartedAt,
	)
	return err
}

// Finish records the terminal outcome of a run.
func (r *RunRepositoryPG) Finish(ctx context.Context, run *domain.Run) error {
	if run == nil || run.ID == "" {
		return errors.New("repo: run id is required")
	}
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QFinishRun,
		run.ID,
		run.Handle.String(),
		run.Outcome,
		run.ErrorMessage,
		run.ArtifactPath,
		run.Polls,
		finished,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	run.FinishedAt = &finished
	return nil
}

// GetByID fetches a run by its identifier.
func (r *RunRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectRunByID, id)
	run, err := scanRun(row.Scan)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// ListRecent returns the newest runs first.
func (r *RunRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectRecentRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(scan func(dest ...any) error) (*domain.Run, error) {
	var (
		run    domain.Run
		handle string
	)
	if err := scan(
		&run.ID,
		&run.Name,
		&handle,
		&run.RequestJSON,
		&run.Outcome,
		&run.ErrorMessage,
		&run.ArtifactPath,
		&run.Polls,
		&run.StartedAt,
		&run.FinishedAt,
	); err != nil {
		return nil, err
	}
	run.Handle = domain.JobHandle(handle)
	return &run, nil
}

func nullableJSON(b []byte) []byte {
	if len(b) == 0 {
		return []byte("{}")
	}
	return b
}

var _ domain.RunRepository = (*RunRepositoryPG)(nil)
