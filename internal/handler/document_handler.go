package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/service"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/response"
)

// DocumentHandler exposes extracted document endpoints.
type DocumentHandler struct {
	documents *service.DocumentService
}

// NewDocumentHandler constructs DocumentHandler.
func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// ListForStudent godoc
// @Summary List extracted documents for a student
// @Description Returns the student's uploaded documents with signed download links
// @Tags Documents
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/documents [get]
func (h *DocumentHandler) ListForStudent(c *gin.Context) {
	docs, err := h.documents.ListForStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Get godoc
// @Summary Get extracted document metadata
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}
