package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/halfway/internal/core/domain"
)

// ImportRepo implements ports.ImportRepository.
type ImportRepo struct {
	db *DB
}

func NewImportRepo(db *DB) *ImportRepo {
	return &ImportRepo{db: db}
}

func (r *ImportRepo) Create(ctx context.Context, job *domain.ImportJob) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO imports (set_slug, set_name, source_url, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, job.SetSlug, job.SetName, job.SourceURL, job.Status).Scan(&job.ID, &job.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert import: %w", err)
	}
	return nil
}

func (r *ImportRepo) GetByID(ctx context.Context, id string) (*domain.ImportJob, error) {
	var job domain.ImportJob
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, set_slug, set_name, source_url, status, point_count, skipped,
		       COALESCE(error, ''), COALESCE(workflow_id, ''), created_at, finished_at
		FROM imports
		WHERE id = $1
	`, id).Scan(&job.ID, &job.SetSlug, &job.SetName, &job.SourceURL, &job.Status,
		&job.PointCount, &job.Skipped, &job.Error, &job.WorkflowID, &job.CreatedAt, &job.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *ImportRepo) List(ctx context.Context, limit int) ([]domain.ImportJob, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, set_slug, set_name, source_url, status, point_count, skipped,
		       COALESCE(error, ''), COALESCE(workflow_id, ''), created_at, finished_at
		FROM imports
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.ImportJob
	for rows.Next() {
		var job domain.ImportJob
		err := rows.Scan(&job.ID, &job.SetSlug, &job.SetName, &job.SourceURL, &job.Status,
			&job.PointCount, &job.Skipped, &job.Error, &job.WorkflowID, &job.CreatedAt, &job.FinishedAt)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateStatus moves the job to a new status and stamps finished_at when the
// status is terminal.
func (r *ImportRepo) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE imports
		SET status = $2,
		    error = NULLIF($3, ''),
		    finished_at = CASE
			WHEN $2 IN ('completed', 'failed', 'compensated') THEN now()
			ELSE finished_at
		    END
		WHERE id = $1
	`, id, status, errMsg)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

func (r *ImportRepo) SetCounts(ctx context.Context, id string, points, skipped int) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE imports SET point_count = $2, skipped = $3 WHERE id = $1
	`, id, points, skipped)
	return err
}

func (r *ImportRepo) SetWorkflowID(ctx context.Context, id, workflowID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE imports SET workflow_id = $2 WHERE id = $1
	`, id, workflowID)
	return err
}
