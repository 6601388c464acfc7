package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
	appErrors "github.com/GuilhermeRVaz/sisgoe-api/pkg/errors"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/storage"
)

type documentStoreStub struct {
	byEnrollment map[string][]models.DocumentExtraction
	byID         map[string]*models.DocumentExtraction
}

func (d *documentStoreStub) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.DocumentExtraction, error) {
	return d.byEnrollment[enrollmentID], nil
}

func (d *documentStoreStub) FindByID(ctx context.Context, id string) (*models.DocumentExtraction, error) {
	doc, ok := d.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return doc, nil
}

type studentReaderStub struct {
	student *models.Student
	err     error
}

func (s studentReaderStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.student, nil
}

func TestDocumentServiceListForStudent(t *testing.T) {
	enrollmentID := "enr-1"
	docs := &documentStoreStub{byEnrollment: map[string][]models.DocumentExtraction{
		"enr-1": {
			{ID: "d1", EnrollmentID: "enr-1", FileName: "rg.pdf", StoragePath: "docs/rg.pdf"},
			{ID: "d2", EnrollmentID: "enr-1", FileName: "cpf.pdf"},
		},
	}}
	students := studentReaderStub{student: &models.Student{ID: "s1", EnrollmentID: &enrollmentID}}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewDocumentService(docs, students, signer, zap.NewNop())

	downloads, err := svc.ListForStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, downloads, 2)
	assert.NotEmpty(t, downloads[0].DownloadURL)
	// No storage path means no signed URL.
	assert.Empty(t, downloads[1].DownloadURL)
}

func TestDocumentServiceListForStudentNoEnrollment(t *testing.T) {
	students := studentReaderStub{student: &models.Student{ID: "s1"}}
	svc := NewDocumentService(&documentStoreStub{}, students, nil, zap.NewNop())

	_, err := svc.ListForStudent(context.Background(), "s1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNoEnrollment.Code, appErr.Code)
}

func TestDocumentServiceGetNotFound(t *testing.T) {
	svc := NewDocumentService(&documentStoreStub{byID: map[string]*models.DocumentExtraction{}}, studentReaderStub{}, nil, zap.NewNop())
	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
}
