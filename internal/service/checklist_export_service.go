package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
	appErrors "github.com/GuilhermeRVaz/sisgoe-api/pkg/errors"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/export"
)

// ExportFormat enumerates supported checklist export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type checklistReader interface {
	Get(ctx context.Context, studentID string, actorID string) (*models.StudentDocumentChecklist, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ChecklistExportService renders a student's checklist as CSV or PDF for
// secretariat paperwork.
type ChecklistExportService struct {
	checklists checklistReader
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
}

// NewChecklistExportService constructs the export service.
func NewChecklistExportService(checklists checklistReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ChecklistExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChecklistExportService{checklists: checklists, csv: csv, pdf: pdf, logger: logger}
}

// Export renders the checklist in the requested format and returns the
// payload with a download filename and content type.
func (s *ChecklistExportService) Export(ctx context.Context, studentID string, format ExportFormat, actorID string) ([]byte, string, string, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	checklist, err := s.checklists.Get(ctx, studentID, actorID)
	if err != nil {
		return nil, "", "", err
	}

	dataset := checklistDataset(checklist)
	timestamp := time.Now().UTC().Format("20060102_150405")

	var payload []byte
	var contentType string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Checklist de Documentos")
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render checklist export")
	}

	filename := fmt.Sprintf("checklist_%s_%s.%s", sanitizeFilename(studentID), timestamp, format)
	return payload, filename, contentType, nil
}

func checklistDataset(checklist *models.StudentDocumentChecklist) export.Dataset {
	headers := []string{"Documento", "Tipo", "Categoria", "Obrigatorio", "Entregue", "Situacao", "Observacoes"}
	rows := make([]map[string]string, 0, len(checklist.Items))
	for _, item := range checklist.Items {
		rows = append(rows, map[string]string{
			"Documento":   item.DocumentName,
			"Tipo":        item.DocumentType,
			"Categoria":   string(item.Category),
			"Obrigatorio": boolLabel(item.IsRequired),
			"Entregue":    boolLabel(item.IsDelivered),
			"Situacao":    string(item.Approval),
			"Observacoes": item.AdminNotes,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func boolLabel(v bool) string {
	if v {
		return "Sim"
	}
	return "Nao"
}
