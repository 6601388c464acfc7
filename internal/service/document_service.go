package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
	appErrors "github.com/GuilhermeRVaz/sisgoe-api/pkg/errors"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/storage"
)

type documentStore interface {
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.DocumentExtraction, error)
	FindByID(ctx context.Context, id string) (*models.DocumentExtraction, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// DocumentService lists uploaded documents for a student. Documents hang off
// the enrollment, so the student's enrollment_id is resolved first.
type DocumentService struct {
	documents documentStore
	students  studentReader
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
}

// NewDocumentService constructs the document service.
func NewDocumentService(documents documentStore, students studentReader, signer *storage.SignedURLSigner, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{documents: documents, students: students, signer: signer, logger: logger}
}

// ListForStudent resolves the student's enrollment and returns its documents
// with short-lived signed download URLs.
func (s *DocumentService) ListForStudent(ctx context.Context, studentID string) ([]models.DocumentDownload, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.EnrollmentID == nil || *student.EnrollmentID == "" {
		return nil, appErrors.ErrNoEnrollment
	}

	documents, err := s.documents.ListByEnrollment(ctx, *student.EnrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}

	downloads := make([]models.DocumentDownload, 0, len(documents))
	for _, doc := range documents {
		download := models.DocumentDownload{Document: doc}
		if s.signer != nil && doc.StoragePath != "" {
			token, expiresAt, err := s.signer.Generate(doc.ID, doc.StoragePath)
			if err != nil {
				s.logger.Warn("failed to sign document url", zap.String("document_id", doc.ID), zap.Error(err))
			} else {
				download.DownloadURL = token
				download.ExpiresAt = expiresAt
			}
		}
		downloads = append(downloads, download)
	}
	return downloads, nil
}

// Get returns a single document extraction.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.DocumentExtraction, error) {
	document, err := s.documents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return document, nil
}
