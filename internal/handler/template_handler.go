package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/service"
	appErrors "github.com/GuilhermeRVaz/sisgoe-api/pkg/errors"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/response"
)

// TemplateHandler exposes document template management endpoints.
type TemplateHandler struct {
	templates *service.TemplateService
}

// NewTemplateHandler constructs TemplateHandler.
func NewTemplateHandler(templates *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// List godoc
// @Summary List active document templates
// @Tags Templates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templates.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// Create godoc
// @Summary Create document template
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body service.TemplateRequest true "Template payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /templates [post]
func (h *TemplateHandler) Create(c *gin.Context) {
	var req service.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	template, err := h.templates.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, template)
}

// Update godoc
// @Summary Update document template
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body service.TemplateRequest true "Template payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /templates/{id} [put]
func (h *TemplateHandler) Update(c *gin.Context) {
	var req service.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	template, err := h.templates.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// Deactivate godoc
// @Summary Deactivate document template
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /templates/{id} [delete]
func (h *TemplateHandler) Deactivate(c *gin.Context) {
	if err := h.templates.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
