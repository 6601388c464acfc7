package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/service"
	appErrors "github.com/GuilhermeRVaz/sisgoe-api/pkg/errors"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/response"
)

const xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SheetHandler exposes enrollment sheet generation endpoints.
type SheetHandler struct {
	sheets *service.SheetService
}

// NewSheetHandler constructs SheetHandler.
func NewSheetHandler(sheets *service.SheetService) *SheetHandler {
	return &SheetHandler{sheets: sheets}
}

// Generate godoc
// @Summary Generate enrollment sheet synchronously
// @Description Fills the enrollment sheet template with the student's profile and returns the workbook
// @Tags Enrollment Sheets
// @Produce octet-stream
// @Param studentId path string true "Student ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/enrollment-sheet [post]
func (h *SheetHandler) Generate(c *gin.Context) {
	if h.sheets == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "sheet service not configured"))
		return
	}
	payload, filename, err := h.sheets.GenerateNow(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Data(http.StatusOK, xlsxMimeType, payload)
}

// CreateJob godoc
// @Summary Queue enrollment sheet generation
// @Tags Enrollment Sheets
// @Accept json
// @Produce json
// @Param payload body map[string]string true "Student ID"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollment-sheets [post]
func (h *SheetHandler) CreateJob(c *gin.Context) {
	if h.sheets == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "sheet service not configured"))
		return
	}
	var payload struct {
		StudentID string `json:"student_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "student_id required"))
		return
	}

	job, err := h.sheets.CreateJob(c.Request.Context(), payload.StudentID, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Get sheet job status
// @Tags Enrollment Sheets
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollment-sheets/{id} [get]
func (h *SheetHandler) Status(c *gin.Context) {
	if h.sheets == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "sheet service not configured"))
		return
	}
	status, err := h.sheets.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download generated sheet via signed token
// @Tags Enrollment Sheets
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /enrollment-sheets/download/{token} [get]
func (h *SheetHandler) Download(c *gin.Context) {
	if h.sheets == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "sheet service not configured"))
		return
	}
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.sheets.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, xlsxMimeType, result.File, nil)
}
