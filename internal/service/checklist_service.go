package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
	"github.com/GuilhermeRVaz/sisgoe-api/internal/repository"
	appErrors "github.com/GuilhermeRVaz/sisgoe-api/pkg/errors"
)

type checklistStore interface {
	FindByStudent(ctx context.Context, studentID string) (*models.StudentDocumentChecklist, error)
	Create(ctx context.Context, checklist *models.StudentDocumentChecklist) error
	Update(ctx context.Context, checklist *models.StudentDocumentChecklist) error
}

type templateStore interface {
	ListActive(ctx context.Context) ([]models.DocumentTemplate, error)
}

type historyStore interface {
	Create(ctx context.Context, entry *models.ChecklistHistory) error
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.ChecklistHistory, error)
}

type checklistCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// UpdateDocumentRequest mutates a single checklist item identified by its
// document type. Approval and notes are only touched when supplied.
type UpdateDocumentRequest struct {
	DocumentType string                `json:"document_type" validate:"required"`
	IsDelivered  bool                  `json:"is_delivered"`
	Approval     *models.ApprovalState `json:"approval,omitempty"`
	AdminNotes   *string               `json:"admin_notes,omitempty"`
}

// ReplaceChecklistRequest swaps the full item list.
type ReplaceChecklistRequest struct {
	Items models.ChecklistItems `json:"items" validate:"required,min=1"`
}

// ReviewDocumentRequest approves or rejects a single document.
type ReviewDocumentRequest struct {
	DocumentType string `json:"document_type" validate:"required"`
	Notes        string `json:"notes"`
}

// BulkItemResult reports the outcome for one document of a bulk operation.
type BulkItemResult struct {
	DocumentType string `json:"document_type"`
	OK           bool   `json:"ok"`
	Error        string `json:"error,omitempty"`
}

// BulkResult aggregates a bulk review run.
type BulkResult struct {
	Processed int                              `json:"processed"`
	Succeeded int                              `json:"succeeded"`
	Failed    int                              `json:"failed"`
	Results   []BulkItemResult                 `json:"results"`
	Checklist *models.StudentDocumentChecklist `json:"checklist"`
}

// ChecklistServiceConfig tunes caching behaviour.
type ChecklistServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ChecklistService implements the document verification workflow: one
// checklist per student, bootstrapped from templates, mutated through a
// recompute-then-write protocol.
type ChecklistService struct {
	repo      checklistStore
	students  studentReader
	templates templateStore
	history   historyStore
	cache     checklistCache
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ChecklistServiceConfig
}

// NewChecklistService constructs the checklist service.
func NewChecklistService(repo checklistStore, students studentReader, templates templateStore, history historyStore, cache checklistCache, validate *validator.Validate, logger *zap.Logger, cfg ChecklistServiceConfig) *ChecklistService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &ChecklistService{
		repo:      repo,
		students:  students,
		templates: templates,
		history:   history,
		cache:     cache,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

func checklistCacheKey(studentID string) string {
	return fmt.Sprintf("checklist:student:%s", studentID)
}

// Get returns the checklist for a student. A missing checklist is a
// NotFound, not a bootstrap trigger; creation happens only through
// CreateInitial.
func (s *ChecklistService) Get(ctx context.Context, studentID string, actorID string) (*models.StudentDocumentChecklist, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if s.cache != nil && s.cfg.CacheEnabled {
		var cached models.StudentDocumentChecklist
		if err := s.cache.Get(ctx, checklistCacheKey(studentID), &cached); err == nil {
			return &cached, nil
		}
	}

	checklist, err := s.loadChecklist(ctx, studentID)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, checklist)
	return checklist, nil
}

// CreateInitial bootstraps a checklist from the active templates, falling
// back to the built-in defaults when no template is configured. The student
// record must exist; its enrollment_id takes precedence over a caller-supplied
// one. A concurrent create losing the unique-constraint race re-fetches the
// winning row.
func (s *ChecklistService) CreateInitial(ctx context.Context, studentID string, enrollmentID *string, actorID string) (*models.StudentDocumentChecklist, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.EnrollmentID != nil {
		enrollmentID = student.EnrollmentID
	}

	templates, err := s.templates.ListActive(ctx)
	if err != nil {
		s.logger.Warn("failed to load document templates, using defaults", zap.Error(err))
		templates = nil
	}
	if len(templates) == 0 {
		templates = models.DefaultDocumentTemplates()
	}

	now := time.Now().UTC()
	items := SanitizeItems(NewItemsFromTemplates(templates, now))
	checklist := &models.StudentDocumentChecklist{
		StudentID:     studentID,
		EnrollmentID:  enrollmentID,
		Items:         items,
		StatusSummary: CalculateStatus(items),
	}

	if err := s.repo.Create(ctx, checklist); err != nil {
		if repository.IsUniqueViolation(err) {
			existing, findErr := s.repo.FindByStudent(ctx, studentID)
			if findErr != nil {
				return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing checklist")
			}
			return existing, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create checklist")
	}

	s.recordHistory(ctx, checklist, nil, actorID, models.ChangeTypeCreated, "Checklist criado a partir dos templates")
	s.cacheSet(ctx, checklist)
	return checklist, nil
}

// UpdateDocumentStatus mutates at most one item, matched by normalized
// document type. Unknown types leave the checklist unchanged. Delivery
// transitions stamp DeliveredAt; approval and notes are preserved unless
// explicitly supplied.
func (s *ChecklistService) UpdateDocumentStatus(ctx context.Context, studentID string, req UpdateDocumentRequest, actorID string) (*models.StudentDocumentChecklist, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document update payload")
	}

	checklist, err := s.loadChecklist(ctx, studentID)
	if err != nil {
		return nil, err
	}

	previous := cloneItems(checklist.Items)
	changeType := models.ChangeTypeUpdated
	now := time.Now().UTC()

	for i := range checklist.Items {
		if !MatchesDocumentType(checklist.Items[i].DocumentType, req.DocumentType) {
			continue
		}
		item := &checklist.Items[i]
		if req.IsDelivered && !item.IsDelivered {
			item.DeliveredAt = &now
			changeType = models.ChangeTypeDocumentDelivered
		}
		item.IsDelivered = req.IsDelivered
		if req.Approval != nil {
			item.Approval = *req.Approval
		}
		if req.AdminNotes != nil {
			item.AdminNotes = *req.AdminNotes
		}
		break
	}

	return s.persist(ctx, checklist, previous, actorID, changeType, "")
}

// Replace swaps the entire item list, recomputing the summary.
func (s *ChecklistService) Replace(ctx context.Context, studentID string, req ReplaceChecklistRequest, actorID string) (*models.StudentDocumentChecklist, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checklist payload")
	}

	checklist, err := s.loadChecklist(ctx, studentID)
	if err != nil {
		return nil, err
	}

	previous := cloneItems(checklist.Items)
	checklist.Items = req.Items
	return s.persist(ctx, checklist, previous, actorID, models.ChangeTypeUpdated, "Checklist substituido")
}

// ApproveDocument marks a document approved, forcing delivery.
func (s *ChecklistService) ApproveDocument(ctx context.Context, studentID string, req ReviewDocumentRequest, actorID string) (*models.StudentDocumentChecklist, error) {
	return s.review(ctx, studentID, req, actorID, models.ApprovalApproved, "Documento aprovado", models.ChangeTypeDocumentApproved)
}

// RejectDocument marks a document rejected, forcing delivery so the item
// stays in the review bucket.
func (s *ChecklistService) RejectDocument(ctx context.Context, studentID string, req ReviewDocumentRequest, actorID string) (*models.StudentDocumentChecklist, error) {
	return s.review(ctx, studentID, req, actorID, models.ApprovalRejected, "Documento rejeitado - verificar", models.ChangeTypeDocumentRejected)
}

func (s *ChecklistService) review(ctx context.Context, studentID string, req ReviewDocumentRequest, actorID string, state models.ApprovalState, defaultNotes string, changeType string) (*models.StudentDocumentChecklist, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	checklist, err := s.loadChecklist(ctx, studentID)
	if err != nil {
		return nil, err
	}

	previous := cloneItems(checklist.Items)
	now := time.Now().UTC()
	found := false

	for i := range checklist.Items {
		if !MatchesDocumentType(checklist.Items[i].DocumentType, req.DocumentType) {
			continue
		}
		item := &checklist.Items[i]
		if !item.IsDelivered {
			item.IsDelivered = true
			item.DeliveredAt = &now
		}
		item.Approval = state
		if req.Notes != "" {
			item.AdminNotes = req.Notes
		} else {
			item.AdminNotes = defaultNotes
		}
		found = true
		break
	}

	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("document %s not found in checklist", NormalizeDocumentType(req.DocumentType)))
	}

	return s.persist(ctx, checklist, previous, actorID, changeType, "")
}

// ApproveAllPending approves every delivered document still awaiting review,
// one at a time, collecting per-document outcomes.
func (s *ChecklistService) ApproveAllPending(ctx context.Context, studentID string, actorID string) (*BulkResult, error) {
	checklist, err := s.loadChecklist(ctx, studentID)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Results: []BulkItemResult{}}
	for _, item := range checklist.Items {
		// Same selector as the summary's review bucket: rejected documents
		// are still awaiting a final verdict.
		if !item.IsDelivered || item.Approval == models.ApprovalApproved {
			continue
		}
		result.Processed++
		updated, err := s.ApproveDocument(ctx, studentID, ReviewDocumentRequest{
			DocumentType: item.DocumentType,
			Notes:        "Aprovado em lote",
		}, actorID)
		if err != nil {
			result.Failed++
			result.Results = append(result.Results, BulkItemResult{DocumentType: item.DocumentType, Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Results = append(result.Results, BulkItemResult{DocumentType: item.DocumentType, OK: true})
		checklist = updated
	}
	result.Checklist = checklist
	return result, nil
}

// RejectAllDelivered rejects every delivered document not already rejected.
func (s *ChecklistService) RejectAllDelivered(ctx context.Context, studentID string, actorID string) (*BulkResult, error) {
	checklist, err := s.loadChecklist(ctx, studentID)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Results: []BulkItemResult{}}
	for _, item := range checklist.Items {
		if !item.IsDelivered || item.Approval == models.ApprovalRejected {
			continue
		}
		result.Processed++
		updated, err := s.RejectDocument(ctx, studentID, ReviewDocumentRequest{
			DocumentType: item.DocumentType,
		}, actorID)
		if err != nil {
			result.Failed++
			result.Results = append(result.Results, BulkItemResult{DocumentType: item.DocumentType, Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Results = append(result.Results, BulkItemResult{DocumentType: item.DocumentType, OK: true})
		checklist = updated
	}
	result.Checklist = checklist
	return result, nil
}

// GetHistory returns the change trail for a student, newest first.
func (s *ChecklistService) GetHistory(ctx context.Context, studentID string, limit int) ([]models.ChecklistHistory, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	entries, err := s.history.ListByStudent(ctx, studentID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load checklist history")
	}
	return entries, nil
}

func (s *ChecklistService) loadChecklist(ctx context.Context, studentID string) (*models.StudentDocumentChecklist, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	checklist, err := s.repo.FindByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "checklist not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load checklist")
	}
	return checklist, nil
}

// persist sanitizes the items, recomputes the summary and writes the row in
// a single update.
func (s *ChecklistService) persist(ctx context.Context, checklist *models.StudentDocumentChecklist, previous models.ChecklistItems, actorID string, changeType string, notes string) (*models.StudentDocumentChecklist, error) {
	checklist.Items = SanitizeItems(checklist.Items)
	checklist.StatusSummary = CalculateStatus(checklist.Items)
	now := time.Now().UTC()
	if actorID != "" {
		checklist.LastReviewedBy = &actorID
		checklist.LastReviewedAt = &now
	}

	if err := s.repo.Update(ctx, checklist); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update checklist")
	}

	s.recordHistory(ctx, checklist, previous, actorID, changeType, notes)
	s.invalidateCache(ctx, checklist.StudentID)
	return checklist, nil
}

// recordHistory appends a snapshot. Failures are logged, never propagated.
func (s *ChecklistService) recordHistory(ctx context.Context, checklist *models.StudentDocumentChecklist, previous models.ChecklistItems, actorID string, changeType string, notes string) {
	if s.history == nil {
		return
	}
	entry := &models.ChecklistHistory{
		ChecklistID:   checklist.ID,
		StudentID:     checklist.StudentID,
		ChangedBy:     actorID,
		ChangeType:    changeType,
		PreviousItems: previous,
		NewItems:      checklist.Items,
		Notes:         notes,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record checklist history", zap.String("student_id", checklist.StudentID), zap.Error(err))
	}
}

func (s *ChecklistService) cacheSet(ctx context.Context, checklist *models.StudentDocumentChecklist) {
	if s.cache == nil || !s.cfg.CacheEnabled {
		return
	}
	if err := s.cache.Set(ctx, checklistCacheKey(checklist.StudentID), checklist, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache checklist", zap.String("student_id", checklist.StudentID), zap.Error(err))
	}
}

func (s *ChecklistService) invalidateCache(ctx context.Context, studentID string) {
	if s.cache == nil || !s.cfg.CacheEnabled {
		return
	}
	if err := s.cache.Delete(ctx, checklistCacheKey(studentID)); err != nil {
		s.logger.Warn("failed to invalidate checklist cache", zap.String("student_id", studentID), zap.Error(err))
	}
}

func cloneItems(items models.ChecklistItems) models.ChecklistItems {
	cloned := make(models.ChecklistItems, len(items))
	copy(cloned, items)
	return cloned
}
