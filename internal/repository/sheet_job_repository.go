package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
)

// SheetJobRepository persists enrollment sheet job metadata.
type SheetJobRepository struct {
	db *sqlx.DB
}

// NewSheetJobRepository constructs the repository.
func NewSheetJobRepository(db *sqlx.DB) *SheetJobRepository {
	return &SheetJobRepository{db: db}
}

// Create inserts a new sheet job row with generated defaults.
func (r *SheetJobRepository) Create(ctx context.Context, job *models.SheetJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.SheetStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sheet_jobs (id, params, status, progress, result_url, created_by, created_at, finished_at, error_message)
VALUES (:id, :params, :status, :progress, :result_url, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create sheet job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *SheetJobRepository) GetByID(ctx context.Context, id string) (*models.SheetJob, error) {
	const query = `SELECT id, params, status, progress, result_url, created_by, created_at, finished_at, error_message
FROM sheet_jobs WHERE id = $1`
	var job models.SheetJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get sheet job: %w", err)
	}
	return &job, nil
}

// UpdateSheetJobParams defines the mutable fields.
type UpdateSheetJobParams struct {
	Status       *models.SheetStatus
	Progress     *int
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *SheetJobRepository) Update(ctx context.Context, id string, params UpdateSheetJobParams) error {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.Progress != nil {
		set = append(set, fmt.Sprintf("progress = $%d", argPos))
		args = append(args, *params.Progress)
		argPos++
	}
	if params.ResultURL != nil {
		set = append(set, fmt.Sprintf("result_url = $%d", argPos))
		args = append(args, *params.ResultURL)
		argPos++
	}
	if params.ErrorMessage != nil {
		set = append(set, fmt.Sprintf("error_message = $%d", argPos))
		args = append(args, *params.ErrorMessage)
		argPos++
	}
	if params.FinishedAt != nil {
		set = append(set, fmt.Sprintf("finished_at = $%d", argPos))
		args = append(args, *params.FinishedAt)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE sheet_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update sheet job: %w", err)
	}
	return nil
}

// ListQueued fetches queued jobs (used for cold start recovery).
func (r *SheetJobRepository) ListQueued(ctx context.Context, limit int) ([]models.SheetJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, params, status, progress, result_url, created_by, created_at, finished_at, error_message
FROM sheet_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	var jobs []models.SheetJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued sheet jobs: %w", err)
	}
	return jobs, nil
}

// ListFinishedBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *SheetJobRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.SheetJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, params, status, progress, result_url, created_by, created_at, finished_at, error_message
FROM sheet_jobs WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2`
	var jobs []models.SheetJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished sheet jobs: %w", err)
	}
	return jobs, nil
}
