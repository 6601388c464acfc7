package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
)

// DocumentRepository reads uploaded enrollment documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs a DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// ListByEnrollment returns documents uploaded for an enrollment, newest first.
func (r *DocumentRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.DocumentExtraction, error) {
	const query = `SELECT id, enrollment_id, file_name, document_type, status, storage_path, uploaded_at
FROM document_extractions WHERE enrollment_id = $1 ORDER BY uploaded_at DESC`
	var documents []models.DocumentExtraction
	if err := r.db.SelectContext(ctx, &documents, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list documents by enrollment: %w", err)
	}
	return documents, nil
}

// FindByID fetches a single document extraction.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.DocumentExtraction, error) {
	const query = `SELECT id, enrollment_id, file_name, document_type, status, storage_path, uploaded_at
FROM document_extractions WHERE id = $1 LIMIT 1`
	var document models.DocumentExtraction
	if err := r.db.GetContext(ctx, &document, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &document, nil
}
