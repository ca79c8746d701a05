package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/pkg/cache"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
)

const (
	defaultCategoryColor = "#3498db"
	// maxCategoryDepth bounds ancestor walks so corrupted parent chains cannot loop forever.
	maxCategoryDepth = 64
)

var (
	categoryTreeKey  = cache.Key("categories", "tree")
	categoryCachePat = cache.Key("categories", "*")
)

type categoryStore interface {
	Create(ctx context.Context, c *models.Category) error
	Update(ctx context.Context, c *models.Category) error
	GetByID(ctx context.Context, id string) (*models.Category, error)
	GetByCode(ctx context.Context, code string) (*models.Category, error)
	CodeExists(ctx context.Context, code, excludeID string) (bool, error)
	List(ctx context.Context, activeOnly bool) ([]models.Category, error)
	Delete(ctx context.Context, id string) error
	Usage(ctx context.Context, id string) (models.CategoryUsage, error)
	DocumentCounts(ctx context.Context) (map[string]int, error)
	Statistics(ctx context.Context, categoryID string) ([]models.CategoryStatistics, error)
	Documents(ctx context.Context, f models.DocumentFilter) ([]models.DocumentSummary, int, error)
}

// CategoryService manages the category tree.
type CategoryService struct {
	repo      categoryStore
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService constructs a CategoryService.
func NewCategoryService(repo categoryStore, audit auditRecorder, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{repo: repo, audit: audit, cache: cacheSvc, validator: validate, logger: logger}
}

// List returns categories ordered by name.
func (s *CategoryService) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	items, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return items, nil
}

// Get returns a category by id.
func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	cat, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category not found", "failed to load category")
	}
	return cat, nil
}

// Create validates and persists a new category.
func (s *CategoryService) Create(ctx context.Context, actor models.Actor, req dto.CategoryRequest) (*models.Category, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	cat := &models.Category{
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.TrimSpace(req.Code),
		Description: req.Description,
		ParentID:    normalizeID(req.ParentID),
		Color:       req.Color,
		Icon:        req.Icon,
		IsActive:    boolOr(req.IsActive, true),
		CreatedBy:   actor.UserID,
		UpdatedBy:   actor.UserID,
	}
	if err := s.prepare(ctx, cat); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, cat); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	s.invalidate(ctx)
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:     models.AuditCategoryCreated,
		CategoryID: &cat.ID,
		Details:    fmt.Sprintf("Category %s (%s) created", cat.Name, cat.Code),
	})
	return cat, nil
}

// Update overwrites a category, rejecting moves that would create a cycle.
func (s *CategoryService) Update(ctx context.Context, actor models.Actor, id string, req dto.CategoryRequest) (*models.Category, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	cat, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cat.Name = strings.TrimSpace(req.Name)
	if code := strings.TrimSpace(req.Code); code != "" {
		cat.Code = code
	}
	cat.Description = req.Description
	cat.ParentID = normalizeID(req.ParentID)
	if req.Color != "" {
		cat.Color = req.Color
	}
	cat.Icon = req.Icon
	cat.IsActive = boolOr(req.IsActive, cat.IsActive)
	cat.UpdatedBy = actor.UserID
	if err := s.prepare(ctx, cat); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, cat); err != nil {
		return nil, notFoundOr(err, "category not found", "failed to update category")
	}
	s.invalidate(ctx)
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:     models.AuditCategoryUpdated,
		CategoryID: &cat.ID,
		Details:    fmt.Sprintf("Category %s updated", cat.Code),
	})
	return cat, nil
}

// Delete removes a category that nothing references.
func (s *CategoryService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	cat, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	usage, err := s.repo.Usage(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category usage")
	}
	switch {
	case usage.Children > 0:
		return appErrors.Clone(appErrors.ErrReferenced, "Cannot delete category with child categories")
	case usage.Subcategories > 0:
		return appErrors.Clone(appErrors.ErrReferenced, "Cannot delete category with subcategories")
	case usage.Documents > 0:
		return appErrors.Clone(appErrors.ErrReferenced, fmt.Sprintf("Cannot delete category with %d associated documents", usage.Documents))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "category not found", "failed to delete category")
	}
	s.invalidate(ctx)
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:   models.AuditCategoryDeleted,
		Severity: models.SeverityMedium,
		Details:  fmt.Sprintf("Category %s (%s) deleted", cat.Name, cat.Code),
	})
	return nil
}

// Tree returns every category nested under its parent with direct document counts.
func (s *CategoryService) Tree(ctx context.Context) ([]*models.CategoryNode, error) {
	return readThrough(ctx, s.cache, categoryTreeKey, 0, func(ctx context.Context) ([]*models.CategoryNode, error) {
		cats, err := s.repo.List(ctx, false)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
		}
		counts, err := s.repo.DocumentCounts(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count category documents")
		}
		return buildCategoryTree(cats, counts), nil
	})
}

// inStoredCycle reports whether the parent chain of id leads back to id.
func inStoredCycle(id string, nodes map[string]*models.CategoryNode) bool {
	seen := map[string]bool{}
	cur := id
	for {
		node, ok := nodes[cur]
		if !ok || node.ParentID == nil {
			return false
		}
		cur = *node.ParentID
		if cur == id {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
	}
}

// buildCategoryTree nests categories by parent. Nodes whose parent is missing become roots,
// as do members of a stored parent cycle so they stay visible.
func buildCategoryTree(cats []models.Category, counts map[string]int) []*models.CategoryNode {
	nodes := make(map[string]*models.CategoryNode, len(cats))
	for _, c := range cats {
		nodes[c.ID] = &models.CategoryNode{Category: c, DocumentCount: counts[c.ID], Children: []*models.CategoryNode{}}
	}
	roots := make([]*models.CategoryNode, 0)
	for _, c := range cats {
		node := nodes[c.ID]
		if c.ParentID != nil && !inStoredCycle(c.ID, nodes) {
			if parent, ok := nodes[*c.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	sortNodes(roots, map[*models.CategoryNode]bool{})
	return roots
}

func sortNodes(nodes []*models.CategoryNode, seen map[*models.CategoryNode]bool) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	for _, n := range nodes {
		if seen[n] {
			continue
		}
		seen[n] = true
		sortNodes(n.Children, seen)
	}
}

// Hierarchy returns the ancestor path from the root down to the category.
func (s *CategoryService) Hierarchy(ctx context.Context, id string) ([]models.CategoryPathItem, error) {
	chain, err := s.ancestors(ctx, id)
	if err != nil {
		return nil, err
	}
	path := make([]models.CategoryPathItem, len(chain))
	for i, c := range chain {
		path[len(chain)-1-i] = models.CategoryPathItem{ID: c.ID, Name: c.Name, Code: c.Code}
	}
	return path, nil
}

// ancestors returns the category followed by its parents up to the root.
func (s *CategoryService) ancestors(ctx context.Context, id string) ([]*models.Category, error) {
	visited := map[string]struct{}{}
	var chain []*models.Category
	current := id
	for current != "" {
		if _, seen := visited[current]; seen || len(chain) >= maxCategoryDepth {
			return nil, appErrors.Clone(appErrors.ErrValidation, "category hierarchy contains a cycle")
		}
		visited[current] = struct{}{}
		cat, err := s.Get(ctx, current)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cat)
		current = ""
		if cat.ParentID != nil {
			current = *cat.ParentID
		}
	}
	return chain, nil
}

// isDescendantOf reports whether candidate lies in the ancestor chain starting at parentID.
func (s *CategoryService) isDescendantOf(ctx context.Context, candidateID, parentID string) (bool, error) {
	chain, err := s.ancestors(ctx, parentID)
	if err != nil {
		return false, err
	}
	for _, c := range chain {
		if c.ID == candidateID {
			return true, nil
		}
	}
	return false, nil
}

// Statistics reports document counts for a category, or all active categories when id is empty.
func (s *CategoryService) Statistics(ctx context.Context, id string) ([]models.CategoryStatistics, error) {
	return readThrough(ctx, s.cache, cache.Key("categories", "stats", id), 0, func(ctx context.Context) ([]models.CategoryStatistics, error) {
		if id != "" {
			if _, err := s.Get(ctx, id); err != nil {
				return nil, err
			}
		}
		stats, err := s.repo.Statistics(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category statistics")
		}
		return stats, nil
	})
}

// Documents lists the documents filed under a category that the actor may see.
func (s *CategoryService) Documents(ctx context.Context, actor models.Actor, id string, limit, offset int) ([]models.DocumentSummary, int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 20
	}
	filter := models.DocumentFilter{CategoryID: id, Limit: limit, Offset: offset}
	if err := restrictToActor(&filter, actor); err != nil {
		return nil, 0, err
	}
	docs, total, err := s.repo.Documents(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list category documents")
	}
	return docs, total, nil
}

// Invalidate drops cached trees and statistics. Document writes call it as well.
func (s *CategoryService) Invalidate(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *CategoryService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, categoryCachePat)
}

func (s *CategoryService) prepare(ctx context.Context, cat *models.Category) error {
	if cat.Name == "" {
		return appErrors.Clone(appErrors.ErrValidation, "category name is required")
	}
	if cat.Code == "" {
		cat.Code = defaultCode(cat.Name)
	}
	if cat.Color == "" {
		cat.Color = defaultCategoryColor
	}
	exists, err := s.repo.CodeExists(ctx, cat.Code, cat.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Category code '%s' already exists", cat.Code))
	}
	if cat.ParentID == nil {
		return nil
	}
	if cat.ID != "" && *cat.ParentID == cat.ID {
		return appErrors.Clone(appErrors.ErrValidation, "Category cannot be its own parent")
	}
	if _, err := s.repo.GetByID(ctx, *cat.ParentID); err != nil {
		return notFoundOr(err, "parent category not found", "failed to load parent category")
	}
	if cat.ID == "" {
		return nil
	}
	descendant, err := s.isDescendantOf(ctx, cat.ID, *cat.ParentID)
	if err != nil {
		return err
	}
	if descendant {
		return appErrors.Clone(appErrors.ErrValidation, "Circular reference detected in category hierarchy")
	}
	return nil
}

func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
