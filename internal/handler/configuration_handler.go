package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/pkg/response"
)

type configurationService interface {
	View(actor models.Actor) (*dto.ArchiveConfigView, error)
	Validate() dto.ConfigCheck
}

// ConfigurationHandler exposes the sanitized archive settings.
type ConfigurationHandler struct {
	service configurationService
}

// NewConfigurationHandler constructs a configuration handler.
func NewConfigurationHandler(svc configurationService) *ConfigurationHandler {
	return &ConfigurationHandler{service: svc}
}

// View godoc
// @Summary Archive configuration
// @Description Storage, retention, OCR and encryption settings without secrets, plus validation results
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /archive/config [get]
func (h *ConfigurationHandler) View(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	view, err := h.service.View(actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Validate godoc
// @Summary Validate archive configuration
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /archive/config/validate [get]
func (h *ConfigurationHandler) Validate(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Validate(), nil)
}
