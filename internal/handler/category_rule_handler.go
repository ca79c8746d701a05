package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/pkg/response"
)

type categoryRuleService interface {
	List(ctx context.Context, filter models.RuleFilter) ([]models.CategoryRule, error)
	Get(ctx context.Context, id string) (*models.CategoryRule, error)
	Create(ctx context.Context, actor models.Actor, req dto.CategoryRuleRequest) (*models.CategoryRule, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.CategoryRuleRequest) (*models.CategoryRule, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Statistics(ctx context.Context) ([]models.RuleStatistics, error)
	Test(ctx context.Context, id string, req dto.TestRuleRequest) (*models.RuleTestResult, error)
	BulkApply(ctx context.Context, actor models.Actor) (*models.BulkCategorizeResult, error)
}

// CategoryRuleHandler exposes auto-categorization rule endpoints.
type CategoryRuleHandler struct {
	service categoryRuleService
}

// NewCategoryRuleHandler constructs the handler.
func NewCategoryRuleHandler(svc categoryRuleService) *CategoryRuleHandler {
	return &CategoryRuleHandler{service: svc}
}

// List godoc
// @Summary List category rules ordered by priority
// @Tags Category Rules
// @Produce json
// @Param active query bool false "Only active rules"
// @Param rule_type query string false "Rule type"
// @Param category_id query string false "Target category"
// @Success 200 {object} response.Envelope
// @Router /category-rules [get]
func (h *CategoryRuleHandler) List(c *gin.Context) {
	filter := models.RuleFilter{
		ActiveOnly: queryBool(c, "active"),
		RuleType:   models.RuleType(c.Query("rule_type")),
		CategoryID: c.Query("category_id"),
	}
	rules, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// Get godoc
// @Summary Get a category rule
// @Tags Category Rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Envelope
// @Router /category-rules/{id} [get]
func (h *CategoryRuleHandler) Get(c *gin.Context) {
	rule, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Create godoc
// @Summary Create a category rule
// @Tags Category Rules
// @Accept json
// @Produce json
// @Param payload body dto.CategoryRuleRequest true "Rule"
// @Success 201 {object} response.Envelope
// @Router /category-rules [post]
func (h *CategoryRuleHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CategoryRuleRequest
	if !bindJSON(c, &req, "invalid rule payload") {
		return
	}
	rule, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// Update godoc
// @Summary Update a category rule
// @Tags Category Rules
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param payload body dto.CategoryRuleRequest true "Rule"
// @Success 200 {object} response.Envelope
// @Router /category-rules/{id} [put]
func (h *CategoryRuleHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CategoryRuleRequest
	if !bindJSON(c, &req, "invalid rule payload") {
		return
	}
	rule, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Delete godoc
// @Summary Delete a category rule
// @Tags Category Rules
// @Param id path string true "Rule ID"
// @Success 204
// @Router /category-rules/{id} [delete]
func (h *CategoryRuleHandler) Delete(c *gin.Context) {
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

// Test godoc
// @Summary Evaluate a rule against sample content
// @Tags Category Rules
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param payload body dto.TestRuleRequest true "Sample"
// @Success 200 {object} response.Envelope
// @Router /category-rules/{id}/test [post]
func (h *CategoryRuleHandler) Test(c *gin.Context) {
	var req dto.TestRuleRequest
	if !bindJSON(c, &req, "invalid test payload") {
		return
	}
	res, err := h.service.Test(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Statistics godoc
// @Summary Rule counts by type and state
// @Tags Category Rules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /category-rules/statistics [get]
func (h *CategoryRuleHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Apply godoc
// @Summary Categorize every uncategorized document
// @Tags Category Rules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /category-rules/apply [post]
func (h *CategoryRuleHandler) Apply(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	res, err := h.service.BulkApply(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
