package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
)

const defaultSubcategoryColor = "#95a5a6"

type subcategoryStore interface {
	Create(ctx context.Context, s *models.Subcategory) error
	Update(ctx context.Context, s *models.Subcategory) error
	GetByID(ctx context.Context, id string) (*models.Subcategory, error)
	CodeExists(ctx context.Context, code, excludeID string) (bool, error)
	ListByCategory(ctx context.Context, categoryID string) ([]models.SubcategoryWithCount, error)
	DocumentCount(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context) ([]models.SubcategoryStatistics, error)
}

type categoryLookup interface {
	GetByID(ctx context.Context, id string) (*models.Category, error)
}

// SubcategoryService manages subcategories below the category tree.
type SubcategoryService struct {
	repo       subcategoryStore
	categories categoryLookup
	audit      auditRecorder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSubcategoryService constructs a SubcategoryService.
func NewSubcategoryService(repo subcategoryStore, categories categoryLookup, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *SubcategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubcategoryService{repo: repo, categories: categories, audit: audit, validator: validate, logger: logger}
}

// Get returns a subcategory by id.
func (s *SubcategoryService) Get(ctx context.Context, id string) (*models.Subcategory, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "subcategory not found", "failed to load subcategory")
	}
	return sub, nil
}

// ListByCategory returns the subcategories of a category with document counts.
func (s *SubcategoryService) ListByCategory(ctx context.Context, categoryID string) ([]models.SubcategoryWithCount, error) {
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		return nil, notFoundOr(err, "category not found", "failed to load category")
	}
	items, err := s.repo.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subcategories")
	}
	return items, nil
}

// Create validates and persists a subcategory.
func (s *SubcategoryService) Create(ctx context.Context, actor models.Actor, req dto.SubcategoryRequest) (*models.Subcategory, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subcategory payload")
	}
	sub := &models.Subcategory{
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.TrimSpace(req.Code),
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		IsActive:    boolOr(req.IsActive, true),
		CreatedBy:   actor.UserID,
		UpdatedBy:   actor.UserID,
	}
	if err := s.prepare(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subcategory")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:     models.AuditSubcategoryCreated,
		CategoryID: &sub.CategoryID,
		Details:    fmt.Sprintf("Subcategory %s (%s) created", sub.Name, sub.Code),
	})
	return sub, nil
}

// Update overwrites a subcategory.
func (s *SubcategoryService) Update(ctx context.Context, actor models.Actor, id string, req dto.SubcategoryRequest) (*models.Subcategory, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subcategory payload")
	}
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sub.Name = strings.TrimSpace(req.Name)
	if code := strings.TrimSpace(req.Code); code != "" {
		sub.Code = code
	}
	sub.CategoryID = req.CategoryID
	sub.Description = req.Description
	if req.Color != "" {
		sub.Color = req.Color
	}
	sub.Icon = req.Icon
	sub.IsActive = boolOr(req.IsActive, sub.IsActive)
	sub.UpdatedBy = actor.UserID
	if err := s.prepare(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, notFoundOr(err, "subcategory not found", "failed to update subcategory")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:     models.AuditSubcategoryUpdated,
		CategoryID: &sub.CategoryID,
		Details:    fmt.Sprintf("Subcategory %s updated", sub.Code),
	})
	return sub, nil
}

// Delete removes a subcategory that no document references.
func (s *SubcategoryService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	sub, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.repo.DocumentCount(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subcategory documents")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrReferenced, fmt.Sprintf("Cannot delete subcategory with %d associated documents", count))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "subcategory not found", "failed to delete subcategory")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:     models.AuditSubcategoryDeleted,
		CategoryID: &sub.CategoryID,
		Severity:   models.SeverityMedium,
		Details:    fmt.Sprintf("Subcategory %s (%s) deleted", sub.Name, sub.Code),
	})
	return nil
}

// Statistics counts documents per active subcategory.
func (s *SubcategoryService) Statistics(ctx context.Context) ([]models.SubcategoryStatistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subcategory statistics")
	}
	return stats, nil
}

func (s *SubcategoryService) prepare(ctx context.Context, sub *models.Subcategory) error {
	if sub.Name == "" {
		return appErrors.Clone(appErrors.ErrValidation, "subcategory name is required")
	}
	if sub.Code == "" {
		sub.Code = defaultCode(sub.Name)
	}
	if sub.Color == "" {
		sub.Color = defaultSubcategoryColor
	}
	cat, err := s.categories.GetByID(ctx, sub.CategoryID)
	if err != nil {
		return notFoundOr(err, "category not found", "failed to load category")
	}
	if !cat.IsActive {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Category %s is not active", cat.Name))
	}
	exists, err := s.repo.CodeExists(ctx, sub.Code, sub.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subcategory code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Subcategory code '%s' already exists", sub.Code))
	}
	return nil
}
