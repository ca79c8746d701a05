package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/internal/service"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/response"
)

type versionService interface {
	Create(ctx context.Context, actor models.Actor, documentID string, file service.UploadedFile, notes string) (*models.DocumentVersion, error)
	Restore(ctx context.Context, actor models.Actor, versionID string) (*models.DocumentVersion, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.DocumentVersion, error)
	History(ctx context.Context, actor models.Actor, documentID string) ([]models.DocumentVersion, error)
	Compare(ctx context.Context, actor models.Actor, versionID, otherID string) (*models.VersionComparison, error)
	CheckIntegrity(ctx context.Context, actor models.Actor, versionID string) (*models.IntegrityReport, error)
	Delete(ctx context.Context, actor models.Actor, versionID string) error
}

// VersionHandler exposes document version endpoints.
type VersionHandler struct {
	service versionService
}

// NewVersionHandler constructs the handler.
func NewVersionHandler(svc versionService) *VersionHandler {
	return &VersionHandler{service: svc}
}

// Create godoc
// @Summary Upload a new version of a document
// @Tags Versions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Document ID"
// @Param version_notes formData string false "Notes"
// @Param file formData file true "New file"
// @Success 201 {object} response.Envelope
// @Router /documents/{id}/versions [post]
func (h *VersionHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := readUpload(header)
	if err != nil {
		response.Error(c, err)
		return
	}
	version, err := h.service.Create(c.Request.Context(), actor, c.Param("id"), file, c.PostForm("version_notes"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}

// History godoc
// @Summary List versions newest first
// @Tags Versions
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/versions [get]
func (h *VersionHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	versions, err := h.service.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// Get godoc
// @Summary Get a version
// @Tags Versions
// @Produce json
// @Param id path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Router /versions/{id} [get]
func (h *VersionHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	version, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, version, nil)
}

// Restore godoc
// @Summary Restore an older version as the new current version
// @Tags Versions
// @Produce json
// @Param id path string true "Version ID"
// @Success 201 {object} response.Envelope
// @Router /versions/{id}/restore [post]
func (h *VersionHandler) Restore(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	version, err := h.service.Restore(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}

// Compare godoc
// @Summary Compare two versions of the same document
// @Tags Versions
// @Accept json
// @Produce json
// @Param payload body dto.CompareVersionsRequest true "Versions"
// @Success 200 {object} response.Envelope
// @Router /versions/compare [post]
func (h *VersionHandler) Compare(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CompareVersionsRequest
	if !bindJSON(c, &req, "invalid compare payload") {
		return
	}
	if req.VersionID == "" || req.OtherVersionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "version_id and other_version_id are required"))
		return
	}
	res, err := h.service.Compare(c.Request.Context(), actor, req.VersionID, req.OtherVersionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// CheckIntegrity godoc
// @Summary Verify the stored file hash of a version
// @Tags Versions
// @Produce json
// @Param id path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Router /versions/{id}/integrity [get]
func (h *VersionHandler) CheckIntegrity(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	report, err := h.service.CheckIntegrity(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Delete godoc
// @Summary Delete a non-current version
// @Tags Versions
// @Param id path string true "Version ID"
// @Success 204
// @Router /versions/{id} [delete]
func (h *VersionHandler) Delete(c *gin.Context) {
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
