package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/pkg/response"
)

type categoryService interface {
	List(ctx context.Context, activeOnly bool) ([]models.Category, error)
	Get(ctx context.Context, id string) (*models.Category, error)
	Create(ctx context.Context, actor models.Actor, req dto.CategoryRequest) (*models.Category, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.CategoryRequest) (*models.Category, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Tree(ctx context.Context) ([]*models.CategoryNode, error)
	Hierarchy(ctx context.Context, id string) ([]models.CategoryPathItem, error)
	Statistics(ctx context.Context, id string) ([]models.CategoryStatistics, error)
	Documents(ctx context.Context, actor models.Actor, id string, limit, offset int) ([]models.DocumentSummary, int, error)
}

type subcategoryService interface {
	Get(ctx context.Context, id string) (*models.Subcategory, error)
	ListByCategory(ctx context.Context, categoryID string) ([]models.SubcategoryWithCount, error)
	Create(ctx context.Context, actor models.Actor, req dto.SubcategoryRequest) (*models.Subcategory, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.SubcategoryRequest) (*models.Subcategory, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Statistics(ctx context.Context) ([]models.SubcategoryStatistics, error)
}

const defaultCategoryDocumentsLimit = 20

// CategoryHandler exposes category and subcategory endpoints.
type CategoryHandler struct {
	categories    categoryService
	subcategories subcategoryService
}

// NewCategoryHandler constructs the handler.
func NewCategoryHandler(categories categoryService, subcategories subcategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories, subcategories: subcategories}
}

// List godoc
// @Summary List categories
// @Tags Categories
// @Produce json
// @Param active query bool false "Only active categories"
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	items, err := h.categories.List(c.Request.Context(), queryBool(c, "active"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Tree godoc
// @Summary Category tree with document counts
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories/tree [get]
func (h *CategoryHandler) Tree(c *gin.Context) {
	tree, err := h.categories.Tree(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tree, nil)
}

// Get godoc
// @Summary Get a category
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	cat, err := h.categories.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cat, nil)
}

// Hierarchy godoc
// @Summary Ancestor path of a category
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /categories/{id}/hierarchy [get]
func (h *CategoryHandler) Hierarchy(c *gin.Context) {
	path, err := h.categories.Hierarchy(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, path, nil)
}

// Statistics godoc
// @Summary Document statistics for a category
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /categories/{id}/statistics [get]
func (h *CategoryHandler) Statistics(c *gin.Context) {
	stats, err := h.categories.Statistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Documents godoc
// @Summary Documents filed under a category
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /categories/{id}/documents [get]
func (h *CategoryHandler) Documents(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	limit := queryInt(c, "limit", defaultCategoryDocumentsLimit)
	if limit == 0 {
		limit = defaultCategoryDocumentsLimit
	}
	offset := queryInt(c, "offset", 0)
	docs, total, err := h.categories.Documents(c.Request.Context(), actor, c.Param("id"), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, docs, limit, offset, total)
}

// Create godoc
// @Summary Create a category
// @Tags Categories
// @Accept json
// @Produce json
// @Param payload body dto.CategoryRequest true "Category"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CategoryRequest
	if !bindJSON(c, &req, "invalid category payload") {
		return
	}
	cat, err := h.categories.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cat)
}

// Update godoc
// @Summary Update a category
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body dto.CategoryRequest true "Category"
// @Success 200 {object} response.Envelope
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CategoryRequest
	if !bindJSON(c, &req, "invalid category payload") {
		return
	}
	cat, err := h.categories.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cat, nil)
}

// Delete godoc
// @Summary Delete an unreferenced category
// @Tags Categories
// @Param id path string true "Category ID"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Subcategories godoc
// @Summary Subcategories of a category with document counts
// @Tags Subcategories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /categories/{id}/subcategories [get]
func (h *CategoryHandler) Subcategories(c *gin.Context) {
	items, err := h.subcategories.ListByCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// GetSubcategory godoc
// @Summary Get a subcategory
// @Tags Subcategories
// @Produce json
// @Param id path string true "Subcategory ID"
// @Success 200 {object} response.Envelope
// @Router /subcategories/{id} [get]
func (h *CategoryHandler) GetSubcategory(c *gin.Context) {
	sub, err := h.subcategories.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// CreateSubcategory godoc
// @Summary Create a subcategory
// @Tags Subcategories
// @Accept json
// @Produce json
// @Param payload body dto.SubcategoryRequest true "Subcategory"
// @Success 201 {object} response.Envelope
// @Router /subcategories [post]
func (h *CategoryHandler) CreateSubcategory(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SubcategoryRequest
	if !bindJSON(c, &req, "invalid subcategory payload") {
		return
	}
	sub, err := h.subcategories.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// UpdateSubcategory godoc
// @Summary Update a subcategory
// @Tags Subcategories
// @Accept json
// @Produce json
// @Param id path string true "Subcategory ID"
// @Param payload body dto.SubcategoryRequest true "Subcategory"
// @Success 200 {object} response.Envelope
// @Router /subcategories/{id} [put]
func (h *CategoryHandler) UpdateSubcategory(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SubcategoryRequest
	if !bindJSON(c, &req, "invalid subcategory payload") {
		return
	}
	sub, err := h.subcategories.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// DeleteSubcategory godoc
// @Summary Delete an unreferenced subcategory
// @Tags Subcategories
// @Param id path string true "Subcategory ID"
// @Success 204
// @Router /subcategories/{id} [delete]
func (h *CategoryHandler) DeleteSubcategory(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.subcategories.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SubcategoryStatistics godoc
// @Summary Document counts per subcategory
// @Tags Subcategories
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subcategories/statistics [get]
func (h *CategoryHandler) SubcategoryStatistics(c *gin.Context) {
	stats, err := h.subcategories.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
