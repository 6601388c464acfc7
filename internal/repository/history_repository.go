package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
)

// HistoryRepository appends and reads checklist change snapshots.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs a HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create appends a history snapshot.
func (r *HistoryRepository) Create(ctx context.Context, entry *models.ChecklistHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO checklist_history (id, checklist_id, student_id, changed_by, change_type, previous_items, new_items, notes, created_at)
VALUES (:id, :checklist_id, :student_id, :changed_by, :change_type, :previous_items, :new_items, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create checklist history: %w", err)
	}
	return nil
}

// ListByStudent returns history entries for a student, newest first.
func (r *HistoryRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.ChecklistHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `SELECT id, checklist_id, student_id, changed_by, change_type, previous_items, new_items, notes, created_at
FROM checklist_history WHERE student_id = $1 ORDER BY created_at DESC LIMIT $2`
	var entries []models.ChecklistHistory
	if err := r.db.SelectContext(ctx, &entries, query, studentID, limit); err != nil {
		return nil, fmt.Errorf("list checklist history: %w", err)
	}
	return entries, nil
}
