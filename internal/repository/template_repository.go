package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
)

// TemplateRepository manages document template definitions.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs a TemplateRepository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// ListActive returns active templates ordered by document type.
func (r *TemplateRepository) ListActive(ctx context.Context) ([]models.DocumentTemplate, error) {
	const query = `SELECT id, document_type, document_name, category, is_required, required_for_enrollment, is_active, created_at, updated_at
FROM document_templates WHERE is_active = TRUE ORDER BY document_type ASC`
	var templates []models.DocumentTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	return templates, nil
}

// FindByID fetches a template by identifier.
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*models.DocumentTemplate, error) {
	const query = `SELECT id, document_type, document_name, category, is_required, required_for_enrollment, is_active, created_at, updated_at
FROM document_templates WHERE id = $1 LIMIT 1`
	var template models.DocumentTemplate
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find template: %w", err)
	}
	return &template, nil
}

// Create inserts a new template definition.
func (r *TemplateRepository) Create(ctx context.Context, template *models.DocumentTemplate) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}
	template.UpdatedAt = now
	const query = `INSERT INTO document_templates (id, document_type, document_name, category, is_required, required_for_enrollment, is_active, created_at, updated_at)
VALUES (:id, :document_type, :document_name, :category, :is_required, :required_for_enrollment, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// Update modifies an existing template definition.
func (r *TemplateRepository) Update(ctx context.Context, template *models.DocumentTemplate) error {
	template.UpdatedAt = time.Now().UTC()
	const query = `UPDATE document_templates
SET document_type = :document_type, document_name = :document_name, category = :category, is_required = :is_required, required_for_enrollment = :required_for_enrollment, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

// Deactivate marks a template inactive so new checklists skip it.
func (r *TemplateRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE document_templates SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate template: %w", err)
	}
	return nil
}
