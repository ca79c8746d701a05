package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/response"
)

type documentTypeService interface {
	List(ctx context.Context, activeOnly bool) ([]models.DocumentType, error)
	Get(ctx context.Context, id string) (*models.DocumentType, error)
	Create(ctx context.Context, actor models.Actor, req dto.DocumentTypeRequest) (*models.DocumentType, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.DocumentTypeRequest) (*models.DocumentType, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Statistics(ctx context.Context) ([]models.DocumentTypeStatistics, error)
	ValidateFile(ctx context.Context, id, fileName string, size int64) (*models.FileValidation, error)
	Requirements(ctx context.Context, id string) (*models.DocumentTypeRequirements, error)
}

// DocumentTypeHandler exposes document type endpoints.
type DocumentTypeHandler struct {
	service documentTypeService
}

// NewDocumentTypeHandler constructs the handler.
func NewDocumentTypeHandler(svc documentTypeService) *DocumentTypeHandler {
	return &DocumentTypeHandler{service: svc}
}

// List godoc
// @Summary List document types
// @Tags Document Types
// @Produce json
// @Param active query bool false "Only active types"
// @Success 200 {object} response.Envelope
// @Router /document-types [get]
func (h *DocumentTypeHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), queryBool(c, "active"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get a document type
// @Tags Document Types
// @Produce json
// @Param id path string true "Document type ID"
// @Success 200 {object} response.Envelope
// @Router /document-types/{id} [get]
func (h *DocumentTypeHandler) Get(c *gin.Context) {
	t, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, t, nil)
}

// Requirements godoc
// @Summary Upload requirements of a document type
// @Tags Document Types
// @Produce json
// @Param id path string true "Document type ID"
// @Success 200 {object} response.Envelope
// @Router /document-types/{id}/requirements [get]
func (h *DocumentTypeHandler) Requirements(c *gin.Context) {
	req, err := h.service.Requirements(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// ValidateFile godoc
// @Summary Check a prospective file against a document type
// @Tags Document Types
// @Accept json
// @Produce json
// @Param id path string true "Document type ID"
// @Param payload body dto.ValidateFileRequest true "File"
// @Success 200 {object} response.Envelope
// @Router /document-types/{id}/validate-file [post]
func (h *DocumentTypeHandler) ValidateFile(c *gin.Context) {
	var req dto.ValidateFileRequest
	if !bindJSON(c, &req, "invalid file payload") {
		return
	}
	if req.FileName == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file_name is required"))
		return
	}
	res, err := h.service.ValidateFile(c.Request.Context(), c.Param("id"), req.FileName, req.FileSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Statistics godoc
// @Summary Document counts per type
// @Tags Document Types
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /document-types/statistics [get]
func (h *DocumentTypeHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Create godoc
// @Summary Create a document type
// @Tags Document Types
// @Accept json
// @Produce json
// @Param payload body dto.DocumentTypeRequest true "Document type"
// @Success 201 {object} response.Envelope
// @Router /document-types [post]
func (h *DocumentTypeHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.DocumentTypeRequest
	if !bindJSON(c, &req, "invalid document type payload") {
		return
	}
	t, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t)
}

// Update godoc
// @Summary Update a document type
// @Tags Document Types
// @Accept json
// @Produce json
// @Param id path string true "Document type ID"
// @Param payload body dto.DocumentTypeRequest true "Document type"
// @Success 200 {object} response.Envelope
// @Router /document-types/{id} [put]
func (h *DocumentTypeHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.DocumentTypeRequest
	if !bindJSON(c, &req, "invalid document type payload") {
		return
	}
	t, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, t, nil)
}

// Delete godoc
// @Summary Delete an unused document type
// @Tags Document Types
// @Param id path string true "Document type ID"
// @Success 204
// @Router /document-types/{id} [delete]
func (h *DocumentTypeHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
