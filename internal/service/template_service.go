package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
	appErrors "github.com/GuilhermeRVaz/sisgoe-api/pkg/errors"
)

type templateRepository interface {
	ListActive(ctx context.Context) ([]models.DocumentTemplate, error)
	FindByID(ctx context.Context, id string) (*models.DocumentTemplate, error)
	Create(ctx context.Context, template *models.DocumentTemplate) error
	Update(ctx context.Context, template *models.DocumentTemplate) error
	Deactivate(ctx context.Context, id string) error
}

// TemplateRequest holds payload for creating or updating templates.
type TemplateRequest struct {
	DocumentType          string                  `json:"document_type" validate:"required"`
	DocumentName          string                  `json:"document_name" validate:"required"`
	Category              models.DocumentCategory `json:"category" validate:"required,oneof=personal address schooling other"`
	IsRequired            bool                    `json:"is_required"`
	RequiredForEnrollment bool                    `json:"required_for_enrollment"`
	IsActive              bool                    `json:"is_active"`
}

// TemplateService manages the document requirement catalogue.
type TemplateService struct {
	repo      templateRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTemplateService constructs the template service.
func NewTemplateService(repo templateRepository, validate *validator.Validate, logger *zap.Logger) *TemplateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{repo: repo, validator: validate, logger: logger}
}

// ListActive returns the templates new checklists are seeded from. When the
// store has none, the built-in defaults are returned.
func (s *TemplateService) ListActive(ctx context.Context) ([]models.DocumentTemplate, error) {
	templates, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}
	if len(templates) == 0 {
		return models.DefaultDocumentTemplates(), nil
	}
	return templates, nil
}

// Create registers a new template.
func (s *TemplateService) Create(ctx context.Context, req TemplateRequest) (*models.DocumentTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	template := &models.DocumentTemplate{
		DocumentType:          NormalizeDocumentType(req.DocumentType),
		DocumentName:          req.DocumentName,
		Category:              req.Category,
		IsRequired:            req.IsRequired,
		RequiredForEnrollment: req.RequiredForEnrollment,
		IsActive:              req.IsActive,
	}
	if err := s.repo.Create(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create template")
	}
	return template, nil
}

// Update modifies an existing template.
func (s *TemplateService) Update(ctx context.Context, id string, req TemplateRequest) (*models.DocumentTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	template, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	template.DocumentType = NormalizeDocumentType(req.DocumentType)
	template.DocumentName = req.DocumentName
	template.Category = req.Category
	template.IsRequired = req.IsRequired
	template.RequiredForEnrollment = req.RequiredForEnrollment
	template.IsActive = req.IsActive
	if err := s.repo.Update(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update template")
	}
	return template, nil
}

// Deactivate retires a template without deleting it.
func (s *TemplateService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate template")
	}
	return nil
}
