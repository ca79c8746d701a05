package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/pkg/response"
)

type relationshipService interface {
	Add(ctx context.Context, actor models.Actor, documentID string, req dto.RelationshipRequest) (*models.RelatedDocument, error)
	List(ctx context.Context, actor models.Actor, documentID, relType string) ([]models.RelationshipView, error)
	Remove(ctx context.Context, actor models.Actor, id string) error
	Statistics(ctx context.Context) ([]models.RelationshipCount, error)
}

// RelationshipHandler exposes related document endpoints.
type RelationshipHandler struct {
	service relationshipService
}

// NewRelationshipHandler constructs the handler.
func NewRelationshipHandler(svc relationshipService) *RelationshipHandler {
	return &RelationshipHandler{service: svc}
}

// Add godoc
// @Summary Link two documents; the reverse edge is created automatically
// @Tags Relationships
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.RelationshipRequest true "Relationship"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/{id}/relationships [post]
func (h *RelationshipHandler) Add(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RelationshipRequest
	if !bindJSON(c, &req, "invalid relationship payload") {
		return
	}
	edge, err := h.service.Add(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, edge)
}

// List godoc
// @Summary List relationships of a document
// @Tags Relationships
// @Produce json
// @Param id path string true "Document ID"
// @Param type query string false "Relationship type"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/relationships [get]
func (h *RelationshipHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), actor, c.Param("id"), c.Query("type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Remove godoc
// @Summary Remove a relationship and its reverse
// @Tags Relationships
// @Param id path string true "Relationship ID"
// @Success 204
// @Router /relationships/{id} [delete]
func (h *RelationshipHandler) Remove(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Remove(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Statistics godoc
// @Summary Count relationships per type
// @Tags Relationships
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /relationships/statistics [get]
func (h *RelationshipHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
