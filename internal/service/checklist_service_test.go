package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
	appErrors "github.com/GuilhermeRVaz/sisgoe-api/pkg/errors"
)

type checklistStoreStub struct {
	byStudent map[string]*models.StudentDocumentChecklist
	createErr error
	updates   int
}

func newChecklistStoreStub() *checklistStoreStub {
	return &checklistStoreStub{byStudent: map[string]*models.StudentDocumentChecklist{}}
}

func (s *checklistStoreStub) FindByStudent(ctx context.Context, studentID string) (*models.StudentDocumentChecklist, error) {
	checklist, ok := s.byStudent[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *checklist
	clone.Items = cloneItems(checklist.Items)
	return &clone, nil
}

func (s *checklistStoreStub) Create(ctx context.Context, checklist *models.StudentDocumentChecklist) error {
	if s.createErr != nil {
		return s.createErr
	}
	if checklist.ID == "" {
		checklist.ID = "cl-" + checklist.StudentID
	}
	s.byStudent[checklist.StudentID] = checklist
	return nil
}

func (s *checklistStoreStub) Update(ctx context.Context, checklist *models.StudentDocumentChecklist) error {
	s.updates++
	s.byStudent[checklist.StudentID] = checklist
	return nil
}

type templateStoreStub struct {
	templates []models.DocumentTemplate
	err       error
}

func (s *templateStoreStub) ListActive(ctx context.Context) ([]models.DocumentTemplate, error) {
	return s.templates, s.err
}

type historyStoreStub struct {
	entries []*models.ChecklistHistory
}

func (s *historyStoreStub) Create(ctx context.Context, entry *models.ChecklistHistory) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *historyStoreStub) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.ChecklistHistory, error) {
	var out []models.ChecklistHistory
	for _, e := range s.entries {
		if e.StudentID == studentID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func testStudentReader() studentReaderStub {
	enrollmentID := "enr-1"
	return studentReaderStub{student: &models.Student{ID: "student-1", EnrollmentID: &enrollmentID}}
}

func newChecklistServiceForTest(t *testing.T) (*ChecklistService, *checklistStoreStub, *historyStoreStub) {
	t.Helper()
	store := newChecklistStoreStub()
	history := &historyStoreStub{}
	svc := NewChecklistService(store, testStudentReader(), &templateStoreStub{}, history, nil, validator.New(), zap.NewNop(), ChecklistServiceConfig{})
	return svc, store, history
}

func seedChecklist(t *testing.T, svc *ChecklistService) {
	t.Helper()
	_, err := svc.CreateInitial(context.Background(), "student-1", nil, "admin-1")
	require.NoError(t, err)
}

func TestChecklistServiceCreateInitialFromDefaults(t *testing.T) {
	svc, store, history := newChecklistServiceForTest(t)

	checklist, err := svc.CreateInitial(context.Background(), "student-1", nil, "admin-1")
	require.NoError(t, err)
	require.Len(t, checklist.Items, 14)
	assert.Equal(t, "student-1", checklist.StudentID)
	require.NotNil(t, checklist.EnrollmentID)
	assert.Equal(t, "enr-1", *checklist.EnrollmentID)
	assert.False(t, checklist.StatusSummary.IsComplete)
	assert.Contains(t, store.byStudent, "student-1")
	require.Len(t, history.entries, 1)
	assert.Equal(t, models.ChangeTypeCreated, history.entries[0].ChangeType)
}

func TestChecklistServiceGetMissingReturnsNotFound(t *testing.T) {
	svc, store, _ := newChecklistServiceForTest(t)

	_, err := svc.Get(context.Background(), "student-1", "admin-1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	// Reads must never create rows.
	assert.Empty(t, store.byStudent)
}

func TestChecklistServiceCreateInitialUnknownStudent(t *testing.T) {
	store := newChecklistStoreStub()
	students := studentReaderStub{err: sql.ErrNoRows}
	svc := NewChecklistService(store, students, &templateStoreStub{}, &historyStoreStub{}, nil, validator.New(), zap.NewNop(), ChecklistServiceConfig{})

	_, err := svc.CreateInitial(context.Background(), "no-such-student", nil, "admin-1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Empty(t, store.byStudent)
}

func TestChecklistServiceCreateInitialPrefersStudentEnrollment(t *testing.T) {
	svc, _, _ := newChecklistServiceForTest(t)

	clientSupplied := "enr-from-client"
	checklist, err := svc.CreateInitial(context.Background(), "student-1", &clientSupplied, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, checklist.EnrollmentID)
	assert.Equal(t, "enr-1", *checklist.EnrollmentID)
}

func TestChecklistServiceCreateInitialFallsBackToClientEnrollment(t *testing.T) {
	store := newChecklistStoreStub()
	students := studentReaderStub{student: &models.Student{ID: "student-1"}}
	svc := NewChecklistService(store, students, &templateStoreStub{}, &historyStoreStub{}, nil, validator.New(), zap.NewNop(), ChecklistServiceConfig{})

	clientSupplied := "enr-from-client"
	checklist, err := svc.CreateInitial(context.Background(), "student-1", &clientSupplied, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, checklist.EnrollmentID)
	assert.Equal(t, "enr-from-client", *checklist.EnrollmentID)
}

func TestChecklistServiceCreateInitialUsesActiveTemplates(t *testing.T) {
	store := newChecklistStoreStub()
	templates := &templateStoreStub{templates: []models.DocumentTemplate{
		{DocumentType: "rg", DocumentName: "RG", Category: models.CategoryPersonal, IsRequired: true},
		{DocumentType: "cpf", DocumentName: "CPF", Category: models.CategoryPersonal, IsRequired: true},
	}}
	svc := NewChecklistService(store, testStudentReader(), templates, &historyStoreStub{}, nil, validator.New(), zap.NewNop(), ChecklistServiceConfig{})

	checklist, err := svc.CreateInitial(context.Background(), "student-1", nil, "admin-1")
	require.NoError(t, err)
	require.Len(t, checklist.Items, 2)
	assert.Equal(t, 2, checklist.StatusSummary.TotalRequired)
}

func TestChecklistServiceCreateInitialLosesRace(t *testing.T) {
	svc, store, _ := newChecklistServiceForTest(t)

	existing := &models.StudentDocumentChecklist{
		ID:        "cl-existing",
		StudentID: "student-1",
		Items: models.ChecklistItems{
			{ID: "i1", DocumentType: "rg", IsRequired: true},
		},
	}
	store.byStudent["student-1"] = existing
	store.createErr = &pq.Error{Code: "23505"}

	checklist, err := svc.CreateInitial(context.Background(), "student-1", nil, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "cl-existing", checklist.ID)
}

func TestChecklistServiceUpdateDocumentStatusStampsDelivery(t *testing.T) {
	svc, store, history := newChecklistServiceForTest(t)
	seedChecklist(t, svc)

	checklist, err := svc.UpdateDocumentStatus(context.Background(), "student-1", UpdateDocumentRequest{
		DocumentType: "RG",
		IsDelivered:  true,
	}, "admin-1")
	require.NoError(t, err)

	var rg *models.ChecklistItem
	for i := range checklist.Items {
		if checklist.Items[i].DocumentType == "rg" {
			rg = &checklist.Items[i]
		}
	}
	require.NotNil(t, rg)
	assert.True(t, rg.IsDelivered)
	require.NotNil(t, rg.DeliveredAt)
	assert.Equal(t, models.ApprovalPending, rg.Approval)
	assert.Equal(t, 1, checklist.StatusSummary.TotalDelivered)
	require.NotNil(t, checklist.LastReviewedBy)
	assert.Equal(t, "admin-1", *checklist.LastReviewedBy)

	last := history.entries[len(history.entries)-1]
	assert.Equal(t, models.ChangeTypeDocumentDelivered, last.ChangeType)
	assert.Positive(t, store.updates)
}

func TestChecklistServiceUpdateUnknownTypeIsNoOp(t *testing.T) {
	svc, store, _ := newChecklistServiceForTest(t)
	seedChecklist(t, svc)
	before, err := svc.Get(context.Background(), "student-1", "admin-1")
	require.NoError(t, err)

	after, err := svc.UpdateDocumentStatus(context.Background(), "student-1", UpdateDocumentRequest{
		DocumentType: "diploma_doutorado",
		IsDelivered:  true,
	}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, len(before.Items), len(after.Items))
	for _, item := range after.Items {
		assert.False(t, item.IsDelivered)
	}
	// The write still happens even when nothing matched.
	assert.Positive(t, store.updates)
}

func TestChecklistServiceUndeliverClearsApproval(t *testing.T) {
	svc, _, _ := newChecklistServiceForTest(t)
	seedChecklist(t, svc)

	_, err := svc.ApproveDocument(context.Background(), "student-1", ReviewDocumentRequest{DocumentType: "rg"}, "admin-1")
	require.NoError(t, err)

	checklist, err := svc.UpdateDocumentStatus(context.Background(), "student-1", UpdateDocumentRequest{
		DocumentType: "rg",
		IsDelivered:  false,
	}, "admin-1")
	require.NoError(t, err)

	for _, item := range checklist.Items {
		if item.DocumentType != "rg" {
			continue
		}
		assert.False(t, item.IsDelivered)
		assert.Nil(t, item.DeliveredAt)
		assert.Equal(t, models.ApprovalPending, item.Approval)
	}
}

func TestChecklistServiceApproveForcesDelivery(t *testing.T) {
	svc, _, history := newChecklistServiceForTest(t)
	seedChecklist(t, svc)

	checklist, err := svc.ApproveDocument(context.Background(), "student-1", ReviewDocumentRequest{DocumentType: "CPF"}, "admin-1")
	require.NoError(t, err)

	for _, item := range checklist.Items {
		if item.DocumentType != "cpf" {
			continue
		}
		assert.True(t, item.IsDelivered)
		require.NotNil(t, item.DeliveredAt)
		assert.Equal(t, models.ApprovalApproved, item.Approval)
		assert.Equal(t, "Documento aprovado", item.AdminNotes)
	}
	assert.Equal(t, 1, checklist.StatusSummary.TotalApproved)

	last := history.entries[len(history.entries)-1]
	assert.Equal(t, models.ChangeTypeDocumentApproved, last.ChangeType)
}

func TestChecklistServiceRejectKeepsItemInReview(t *testing.T) {
	svc, _, _ := newChecklistServiceForTest(t)
	seedChecklist(t, svc)

	checklist, err := svc.RejectDocument(context.Background(), "student-1", ReviewDocumentRequest{DocumentType: "rg"}, "admin-1")
	require.NoError(t, err)

	for _, item := range checklist.Items {
		if item.DocumentType != "rg" {
			continue
		}
		assert.True(t, item.IsDelivered)
		assert.Equal(t, models.ApprovalRejected, item.Approval)
		assert.Equal(t, "Documento rejeitado - verificar", item.AdminNotes)
	}

	found := false
	for _, item := range checklist.StatusSummary.PendingApproval {
		if item.DocumentType == "rg" {
			found = true
		}
	}
	assert.True(t, found, "rejected document should remain in the review bucket")
	assert.Equal(t, 0, checklist.StatusSummary.TotalApproved)
}

func TestChecklistServiceReviewUnknownTypeNotFound(t *testing.T) {
	svc, _, _ := newChecklistServiceForTest(t)
	seedChecklist(t, svc)

	_, err := svc.ApproveDocument(context.Background(), "student-1", ReviewDocumentRequest{DocumentType: "nao_existe"}, "admin-1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestChecklistServiceApproveAllPending(t *testing.T) {
	svc, _, _ := newChecklistServiceForTest(t)
	seedChecklist(t, svc)

	for _, docType := range []string{"rg", "cpf"} {
		_, err := svc.UpdateDocumentStatus(context.Background(), "student-1", UpdateDocumentRequest{
			DocumentType: docType,
			IsDelivered:  true,
		}, "admin-1")
		require.NoError(t, err)
	}

	result, err := svc.ApproveAllPending(context.Background(), "student-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	require.NotNil(t, result.Checklist)
	assert.Equal(t, 2, result.Checklist.StatusSummary.TotalApproved)

	for _, item := range result.Checklist.Items {
		if item.DocumentType == "rg" || item.DocumentType == "cpf" {
			assert.Equal(t, models.ApprovalApproved, item.Approval)
			assert.Equal(t, "Aprovado em lote", item.AdminNotes)
		}
	}
}

func TestChecklistServiceUpdateMissingChecklistNotFound(t *testing.T) {
	svc, store, _ := newChecklistServiceForTest(t)

	_, err := svc.UpdateDocumentStatus(context.Background(), "student-1", UpdateDocumentRequest{
		DocumentType: "rg",
		IsDelivered:  true,
	}, "admin-1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	// Mutations never bootstrap a checklist.
	assert.Empty(t, store.byStudent)
}

func TestChecklistServiceApproveAllIncludesRejected(t *testing.T) {
	svc, _, _ := newChecklistServiceForTest(t)
	seedChecklist(t, svc)

	_, err := svc.UpdateDocumentStatus(context.Background(), "student-1", UpdateDocumentRequest{
		DocumentType: "rg",
		IsDelivered:  true,
	}, "admin-1")
	require.NoError(t, err)
	_, err = svc.RejectDocument(context.Background(), "student-1", ReviewDocumentRequest{DocumentType: "cpf"}, "admin-1")
	require.NoError(t, err)

	result, err := svc.ApproveAllPending(context.Background(), "student-1", "admin-1")
	require.NoError(t, err)
	// Both the pending and the rejected document sit in the review bucket,
	// so both get approved.
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Succeeded)
	assert.Empty(t, result.Checklist.StatusSummary.PendingApproval)
	assert.Equal(t, 2, result.Checklist.StatusSummary.TotalApproved)
}

func TestChecklistServiceRejectAllDelivered(t *testing.T) {
	svc, _, _ := newChecklistServiceForTest(t)
	seedChecklist(t, svc)

	_, err := svc.ApproveDocument(context.Background(), "student-1", ReviewDocumentRequest{DocumentType: "rg"}, "admin-1")
	require.NoError(t, err)
	_, err = svc.UpdateDocumentStatus(context.Background(), "student-1", UpdateDocumentRequest{
		DocumentType: "cpf",
		IsDelivered:  true,
	}, "admin-1")
	require.NoError(t, err)

	result, err := svc.RejectAllDelivered(context.Background(), "student-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Checklist.StatusSummary.TotalApproved)
	for _, item := range result.Checklist.Items {
		if item.DocumentType == "rg" || item.DocumentType == "cpf" {
			assert.Equal(t, models.ApprovalRejected, item.Approval)
		}
	}
}

func TestChecklistServiceApproveAllSkipsUndelivered(t *testing.T) {
	svc, _, _ := newChecklistServiceForTest(t)
	seedChecklist(t, svc)

	result, err := svc.ApproveAllPending(context.Background(), "student-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
}

func TestChecklistServiceReplaceRecomputesSummary(t *testing.T) {
	svc, _, _ := newChecklistServiceForTest(t)
	seedChecklist(t, svc)

	delivered := time.Now()
	checklist, err := svc.Replace(context.Background(), "student-1", ReplaceChecklistRequest{
		Items: models.ChecklistItems{
			{ID: "i1", DocumentType: "RG", DocumentName: "RG", IsRequired: true, IsDelivered: true, DeliveredAt: &delivered, Approval: models.ApprovalApproved},
			{ID: "i2", DocumentType: "cpf", DocumentName: "CPF", IsRequired: true, IsDelivered: true, DeliveredAt: &delivered, Approval: models.ApprovalApproved},
		},
	}, "admin-1")
	require.NoError(t, err)
	require.Len(t, checklist.Items, 2)
	assert.Equal(t, "rg", checklist.Items[0].DocumentType)
	assert.True(t, checklist.StatusSummary.IsComplete)
}

func TestChecklistServiceReplaceRejectsEmptyList(t *testing.T) {
	svc, _, _ := newChecklistServiceForTest(t)
	_, err := svc.Replace(context.Background(), "student-1", ReplaceChecklistRequest{}, "admin-1")
	require.Error(t, err)
}

func TestChecklistServiceGetHistory(t *testing.T) {
	svc, _, _ := newChecklistServiceForTest(t)
	seedChecklist(t, svc)
	_, err := svc.ApproveDocument(context.Background(), "student-1", ReviewDocumentRequest{DocumentType: "rg"}, "admin-1")
	require.NoError(t, err)

	entries, err := svc.GetHistory(context.Background(), "student-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

type cacheStub struct {
	data map[string][]byte
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *cacheStub) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func TestChecklistServiceCacheInvalidatedOnWrite(t *testing.T) {
	store := newChecklistStoreStub()
	cache := &cacheStub{data: map[string][]byte{}}
	svc := NewChecklistService(store, testStudentReader(), &templateStoreStub{}, &historyStoreStub{}, cache, validator.New(), zap.NewNop(), ChecklistServiceConfig{
		CacheEnabled: true,
		CacheTTL:     time.Minute,
	})

	seedChecklist(t, svc)
	assert.Contains(t, cache.data, "checklist:student:student-1")

	_, err := svc.ApproveDocument(context.Background(), "student-1", ReviewDocumentRequest{DocumentType: "rg"}, "admin-1")
	require.NoError(t, err)
	assert.NotContains(t, cache.data, "checklist:student:student-1")
}
