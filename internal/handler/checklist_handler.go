package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/service"
	appErrors "github.com/GuilhermeRVaz/sisgoe-api/pkg/errors"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/response"
)

// ChecklistHandler exposes document checklist endpoints.
type ChecklistHandler struct {
	checklists *service.ChecklistService
	exports    *service.ChecklistExportService
}

// NewChecklistHandler constructs ChecklistHandler.
func NewChecklistHandler(checklists *service.ChecklistService, exports *service.ChecklistExportService) *ChecklistHandler {
	return &ChecklistHandler{checklists: checklists, exports: exports}
}

// Get godoc
// @Summary Get student checklist
// @Description Returns the student's checklist with its aggregate summary
// @Tags Checklists
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/checklist [get]
func (h *ChecklistHandler) Get(c *gin.Context) {
	checklist, err := h.checklists.Get(c.Request.Context(), c.Param("studentId"), actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checklist, nil)
}

// Create godoc
// @Summary Create initial checklist
// @Description Creates the student's checklist from the active document templates
// @Tags Checklists
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 201 {object} response.Envelope
// @Router /students/{studentId}/checklist [post]
func (h *ChecklistHandler) Create(c *gin.Context) {
	var payload struct {
		EnrollmentID *string `json:"enrollment_id"`
	}
	// Body is optional; ignore decode errors for empty requests.
	_ = c.ShouldBindJSON(&payload)

	checklist, err := h.checklists.CreateInitial(c.Request.Context(), c.Param("studentId"), payload.EnrollmentID, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, checklist)
}

// UpdateDocument godoc
// @Summary Update a single document status
// @Description Updates delivery, approval and notes for one document type
// @Tags Checklists
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body service.UpdateDocumentRequest true "Document update"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/{studentId}/checklist [patch]
func (h *ChecklistHandler) UpdateDocument(c *gin.Context) {
	var req service.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	checklist, err := h.checklists.UpdateDocumentStatus(c.Request.Context(), c.Param("studentId"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checklist, nil)
}

// Replace godoc
// @Summary Replace checklist items
// @Description Replaces the whole item list and recomputes the status summary
// @Tags Checklists
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body service.ReplaceChecklistRequest true "Checklist items"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/{studentId}/checklist [put]
func (h *ChecklistHandler) Replace(c *gin.Context) {
	var req service.ReplaceChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	checklist, err := h.checklists.Replace(c.Request.Context(), c.Param("studentId"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checklist, nil)
}

// Approve godoc
// @Summary Approve a document
// @Tags Checklists
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body service.ReviewDocumentRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/checklist/approve [post]
func (h *ChecklistHandler) Approve(c *gin.Context) {
	var req service.ReviewDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	checklist, err := h.checklists.ApproveDocument(c.Request.Context(), c.Param("studentId"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checklist, nil)
}

// Reject godoc
// @Summary Reject a document
// @Tags Checklists
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body service.ReviewDocumentRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/checklist/reject [post]
func (h *ChecklistHandler) Reject(c *gin.Context) {
	var req service.ReviewDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	checklist, err := h.checklists.RejectDocument(c.Request.Context(), c.Param("studentId"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checklist, nil)
}

// ApproveAll godoc
// @Summary Approve all delivered pending documents
// @Tags Checklists
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/checklist/approve-all [post]
func (h *ChecklistHandler) ApproveAll(c *gin.Context) {
	result, err := h.checklists.ApproveAllPending(c.Request.Context(), c.Param("studentId"), actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RejectAll godoc
// @Summary Reject all delivered pending documents
// @Tags Checklists
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/checklist/reject-all [post]
func (h *ChecklistHandler) RejectAll(c *gin.Context) {
	result, err := h.checklists.RejectAllDelivered(c.Request.Context(), c.Param("studentId"), actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary List checklist change history
// @Tags Checklists
// @Produce json
// @Param studentId path string true "Student ID"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/checklist/history [get]
func (h *ChecklistHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	entries, err := h.checklists.GetHistory(c.Request.Context(), c.Param("studentId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Export checklist as CSV or PDF
// @Tags Checklists
// @Produce octet-stream
// @Param studentId path string true "Student ID"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /students/{studentId}/checklist/export [get]
func (h *ChecklistHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	payload, filename, contentType, err := h.exports.Export(c.Request.Context(), c.Param("studentId"), format, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Data(http.StatusOK, contentType, payload)
}
