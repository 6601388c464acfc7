package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
)

// uniqueViolation is the PostgreSQL error code for duplicate key violations.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a duplicate key error.
func IsUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// ChecklistRepository persists student document checklists. Items and the
// status summary are stored as JSONB columns on a single row per student.
type ChecklistRepository struct {
	db *sqlx.DB
}

// NewChecklistRepository constructs a ChecklistRepository.
func NewChecklistRepository(db *sqlx.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

// FindByStudent returns the most recently updated checklist for a student,
// or sql.ErrNoRows when none exists.
func (r *ChecklistRepository) FindByStudent(ctx context.Context, studentID string) (*models.StudentDocumentChecklist, error) {
	const query = `SELECT id, student_id, enrollment_id, items, status_summary, created_at, updated_at, last_reviewed_by, last_reviewed_at
FROM student_document_checklists WHERE student_id = $1 ORDER BY updated_at DESC LIMIT 1`
	var checklist models.StudentDocumentChecklist
	if err := r.db.GetContext(ctx, &checklist, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find checklist by student: %w", err)
	}
	return &checklist, nil
}

// Create inserts a new checklist row. Duplicate student rows surface the
// underlying unique violation so callers can re-fetch the winning row.
func (r *ChecklistRepository) Create(ctx context.Context, checklist *models.StudentDocumentChecklist) error {
	if checklist.ID == "" {
		checklist.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if checklist.CreatedAt.IsZero() {
		checklist.CreatedAt = now
	}
	checklist.UpdatedAt = now

	const query = `INSERT INTO student_document_checklists (id, student_id, enrollment_id, items, status_summary, created_at, updated_at, last_reviewed_by, last_reviewed_at)
VALUES (:id, :student_id, :enrollment_id, :items, :status_summary, :created_at, :updated_at, :last_reviewed_by, :last_reviewed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, checklist); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create checklist: %w", err)
	}
	return nil
}

// Update replaces the checklist items, status summary and reviewer columns.
func (r *ChecklistRepository) Update(ctx context.Context, checklist *models.StudentDocumentChecklist) error {
	checklist.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_document_checklists
SET items = :items, status_summary = :status_summary, updated_at = :updated_at, last_reviewed_by = :last_reviewed_by, last_reviewed_at = :last_reviewed_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, checklist); err != nil {
		return fmt.Errorf("update checklist: %w", err)
	}
	return nil
}

// Delete removes a checklist row.
func (r *ChecklistRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM student_document_checklists WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	return nil
}
