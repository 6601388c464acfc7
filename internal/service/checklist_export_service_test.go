package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
)

type checklistReaderStub struct {
	checklist *models.StudentDocumentChecklist
	err       error
}

func (r checklistReaderStub) Get(ctx context.Context, studentID string, actorID string) (*models.StudentDocumentChecklist, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.checklist, nil
}

func exportChecklist() *models.StudentDocumentChecklist {
	return &models.StudentDocumentChecklist{
		ID:        "cl-1",
		StudentID: "student-1",
		Items: models.ChecklistItems{
			{DocumentType: "rg", DocumentName: "RG", Category: models.CategoryPersonal, IsRequired: true, IsDelivered: true, Approval: models.ApprovalApproved, AdminNotes: "ok"},
			{DocumentType: "cpf", DocumentName: "CPF", Category: models.CategoryPersonal, IsRequired: true},
		},
	}
}

func TestChecklistExportServiceCSV(t *testing.T) {
	svc := NewChecklistExportService(checklistReaderStub{checklist: exportChecklist()}, nil, nil, zap.NewNop())

	payload, filename, contentType, err := svc.Export(context.Background(), "student-1", ExportFormatCSV, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.True(t, strings.HasPrefix(filename, "checklist_student-1_"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	body := string(payload)
	assert.Contains(t, body, "Documento")
	assert.Contains(t, body, "RG")
	assert.Contains(t, body, "Sim")
	assert.Contains(t, body, "Nao")
}

func TestChecklistExportServicePDF(t *testing.T) {
	svc := NewChecklistExportService(checklistReaderStub{checklist: exportChecklist()}, nil, nil, zap.NewNop())

	payload, filename, contentType, err := svc.Export(context.Background(), "student-1", ExportFormatPDF, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasSuffix(filename, ".pdf"))
	assert.NotEmpty(t, payload)
}

func TestChecklistExportServiceUnsupportedFormat(t *testing.T) {
	svc := NewChecklistExportService(checklistReaderStub{checklist: exportChecklist()}, nil, nil, zap.NewNop())

	_, _, _, err := svc.Export(context.Background(), "student-1", ExportFormat("xml"), "admin-1")
	require.Error(t, err)
}
