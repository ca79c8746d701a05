package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
)

const (
	defaultRulePriority = 10
	rulePreviewLength   = 100
)

type categoryRuleStore interface {
	Create(ctx context.Context, rule *models.CategoryRule) error
	Update(ctx context.Context, rule *models.CategoryRule) error
	GetByID(ctx context.Context, id string) (*models.CategoryRule, error)
	List(ctx context.Context, f models.RuleFilter) ([]models.CategoryRule, error)
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context) ([]models.RuleStatistics, error)
}

type ruleDocumentStore interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
	UpdateCategory(ctx context.Context, id, categoryID, updatedBy string) error
	ListUncategorized(ctx context.Context, fallbackCategoryID string) ([]models.Document, error)
}

type ruleCategoryLookup interface {
	GetByID(ctx context.Context, id string) (*models.Category, error)
	GetByCode(ctx context.Context, code string) (*models.Category, error)
}

type ruleTypeLookup interface {
	GetByID(ctx context.Context, id string) (*models.DocumentType, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// CategoryRuleService manages auto-categorization rules and applies them to documents.
type CategoryRuleService struct {
	repo         categoryRuleStore
	documents    ruleDocumentStore
	categories   ruleCategoryLookup
	types        ruleTypeLookup
	audit        auditRecorder
	invalidator  cacheInvalidator
	validator    *validator.Validate
	logger       *zap.Logger
	fallbackCode string

	fold     cases.Caser
	foldMu   sync.Mutex
	patterns sync.Map
}

// NewCategoryRuleService constructs the service. fallbackCode names the catch-all category bulk runs re-file from.
func NewCategoryRuleService(repo categoryRuleStore, documents ruleDocumentStore, categories ruleCategoryLookup, types ruleTypeLookup, audit auditRecorder, invalidator cacheInvalidator, validate *validator.Validate, logger *zap.Logger, fallbackCode string) *CategoryRuleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if fallbackCode == "" {
		fallbackCode = "GEN"
	}
	return &CategoryRuleService{
		repo:         repo,
		documents:    documents,
		categories:   categories,
		types:        types,
		audit:        audit,
		invalidator:  invalidator,
		validator:    validate,
		logger:       logger,
		fallbackCode: fallbackCode,
		fold:         cases.Fold(),
	}
}

// List returns rules in evaluation order.
func (s *CategoryRuleService) List(ctx context.Context, filter models.RuleFilter) ([]models.CategoryRule, error) {
	rules, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list category rules")
	}
	return rules, nil
}

// Get returns a rule by id.
func (s *CategoryRuleService) Get(ctx context.Context, id string) (*models.CategoryRule, error) {
	rule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category rule not found", "failed to load category rule")
	}
	return rule, nil
}

// Create validates and persists a rule.
func (s *CategoryRuleService) Create(ctx context.Context, actor models.Actor, req dto.CategoryRuleRequest) (*models.CategoryRule, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category rule payload")
	}
	rule := &models.CategoryRule{Priority: defaultRulePriority, IsActive: true, CreatedBy: actor.UserID}
	applyRuleRequest(rule, req)
	if err := s.prepare(ctx, rule); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category rule")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:     models.AuditRuleCreated,
		CategoryID: &rule.CategoryID,
		Details:    fmt.Sprintf("Rule '%s' created", rule.Name),
	})
	return rule, nil
}

// Update overwrites a rule.
func (s *CategoryRuleService) Update(ctx context.Context, actor models.Actor, id string, req dto.CategoryRuleRequest) (*models.CategoryRule, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category rule payload")
	}
	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyRuleRequest(rule, req)
	if err := s.prepare(ctx, rule); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, notFoundOr(err, "category rule not found", "failed to update category rule")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:     models.AuditRuleUpdated,
		CategoryID: &rule.CategoryID,
		Details:    fmt.Sprintf("Rule '%s' updated", rule.Name),
	})
	return rule, nil
}

// Delete removes a rule.
func (s *CategoryRuleService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	rule, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "category rule not found", "failed to delete category rule")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:     models.AuditRuleDeleted,
		CategoryID: &rule.CategoryID,
		Details:    fmt.Sprintf("Rule '%s' deleted", rule.Name),
	})
	return nil
}

// Statistics counts rules per type.
func (s *CategoryRuleService) Statistics(ctx context.Context) ([]models.RuleStatistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rule statistics")
	}
	return stats, nil
}

// Test evaluates a stored rule against sample content.
func (s *CategoryRuleService) Test(ctx context.Context, id string, req dto.TestRuleRequest) (*models.RuleTestResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule test payload")
	}
	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	preview := req.Content
	if runes := []rune(preview); len(runes) > rulePreviewLength {
		preview = string(runes[:rulePreviewLength]) + "..."
	}
	return &models.RuleTestResult{
		RuleID:         rule.ID,
		RuleName:       rule.Name,
		RuleType:       rule.RuleType,
		Matches:        s.Matches(rule, req.Title+" "+req.Content, ""),
		ContentPreview: preview,
	}, nil
}

// Matches reports whether an active rule accepts the content or document type.
func (s *CategoryRuleService) Matches(rule *models.CategoryRule, content, documentTypeID string) bool {
	if rule == nil || !rule.IsActive {
		return false
	}
	switch rule.RuleType {
	case models.RuleKeyword:
		haystack := s.foldString(content)
		for _, kw := range strings.Split(rule.Keywords, ",") {
			kw = strings.TrimSpace(kw)
			if kw != "" && strings.Contains(haystack, s.foldString(kw)) {
				return true
			}
		}
		return false
	case models.RulePattern:
		re, err := s.compile(rule.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(content)
	case models.RuleDocumentType:
		return rule.DocumentTypeID != nil && documentTypeID != "" && *rule.DocumentTypeID == documentTypeID
	default:
		// File Extension and Content Analysis rules have no matcher.
		return false
	}
}

// AutoCategorize files the document under the category of the first matching active rule.
func (s *CategoryRuleService) AutoCategorize(ctx context.Context, actor models.Actor, documentID string) (*models.CategorizationResult, error) {
	doc, err := loadVisible(ctx, s.documents, actor, documentID)
	if err != nil {
		return nil, err
	}
	rules, err := s.repo.List(ctx, models.RuleFilter{ActiveOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category rules")
	}
	return s.apply(ctx, actor, doc, rules)
}

func (s *CategoryRuleService) apply(ctx context.Context, actor models.Actor, doc *models.Document, rules []models.CategoryRule) (*models.CategorizationResult, error) {
	result := &models.CategorizationResult{DocumentID: doc.ID}
	content := strings.Join([]string{doc.Title, doc.Description, doc.OCRText}, " ")
	for i := range rules {
		rule := &rules[i]
		if !s.Matches(rule, content, doc.DocumentTypeID) {
			continue
		}
		result.Matched = true
		result.RuleID = rule.ID
		result.RuleName = rule.Name
		result.CategoryID = rule.CategoryID
		result.PreviousCat = doc.CategoryID
		if rule.CategoryID == doc.CategoryID {
			return result, nil
		}
		if err := s.documents.UpdateCategory(ctx, doc.ID, rule.CategoryID, actor.UserID); err != nil {
			return nil, notFoundOr(err, "document not found", "failed to update document category")
		}
		result.Changed = true
		doc.CategoryID = rule.CategoryID
		if s.invalidator != nil {
			s.invalidator.Invalidate(ctx)
		}
		emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
			Action:     models.AuditAutoCategorized,
			DocumentID: &doc.ID,
			CategoryID: &rule.CategoryID,
			Details:    fmt.Sprintf("Document categorized using rule: %s", rule.Name),
		})
		return result, nil
	}
	return result, nil
}

// BulkApply runs the active rules over every document still filed under the fallback category.
func (s *CategoryRuleService) BulkApply(ctx context.Context, actor models.Actor) (*models.BulkCategorizeResult, error) {
	result := &models.BulkCategorizeResult{}
	fallback, err := s.categories.GetByCode(ctx, s.fallbackCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("fallback category missing, nothing to categorize", zap.String("code", s.fallbackCode))
			return result, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fallback category")
	}
	docs, err := s.documents.ListUncategorized(ctx, fallback.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list uncategorized documents")
	}
	rules, err := s.repo.List(ctx, models.RuleFilter{ActiveOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category rules")
	}

	result.Total = len(docs)
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome, err := s.apply(ctx, actor, &docs[i], rules)
		switch {
		case err != nil:
			result.Errors++
			s.logger.Warn("auto categorization failed", zap.String("document_id", docs[i].ID), zap.Error(err))
		case outcome.Changed:
			result.Categorized++
		default:
			result.NoMatch++
		}
	}
	s.logger.Info("bulk categorization finished",
		zap.Int("total", result.Total),
		zap.Int("categorized", result.Categorized),
		zap.Int("no_match", result.NoMatch),
		zap.Int("errors", result.Errors))
	return result, nil
}

func applyRuleRequest(rule *models.CategoryRule, req dto.CategoryRuleRequest) {
	rule.Name = strings.TrimSpace(req.Name)
	rule.RuleType = models.RuleType(req.RuleType)
	rule.Keywords = strings.TrimSpace(req.Keywords)
	rule.Pattern = strings.TrimSpace(req.Pattern)
	rule.DocumentTypeID = normalizeID(req.DocumentTypeID)
	rule.CategoryID = req.CategoryID
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	rule.IsActive = boolOr(req.IsActive, rule.IsActive)
	rule.Description = req.Description
}

func (s *CategoryRuleService) prepare(ctx context.Context, rule *models.CategoryRule) error {
	if !rule.RuleType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown rule type %q", rule.RuleType))
	}
	switch rule.RuleType {
	case models.RuleKeyword:
		if rule.Keywords == "" {
			return appErrors.Clone(appErrors.ErrValidation, "Keyword is required for Keyword rule type")
		}
	case models.RulePattern:
		if rule.Pattern == "" {
			return appErrors.Clone(appErrors.ErrValidation, "Pattern is required for Pattern rule type")
		}
		if _, err := s.compile(rule.Pattern); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Invalid regex pattern: %v", err))
		}
	case models.RuleDocumentType:
		if rule.DocumentTypeID == nil {
			return appErrors.Clone(appErrors.ErrValidation, "Document Type is required for Document Type rule")
		}
	}
	if rule.DocumentTypeID != nil {
		if _, err := s.types.GetByID(ctx, *rule.DocumentTypeID); err != nil {
			return notFoundOr(err, "document type not found", "failed to load document type")
		}
	}
	if _, err := s.categories.GetByID(ctx, rule.CategoryID); err != nil {
		return notFoundOr(err, "target category not found", "failed to load target category")
	}
	return nil
}

// compile caches case-insensitive regular expressions by source pattern.
func (s *CategoryRuleService) compile(pattern string) (*regexp.Regexp, error) {
	if cached, ok := s.patterns.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	s.patterns.Store(pattern, re)
	return re, nil
}

// foldString applies Unicode case folding. A cases.Caser is not safe for concurrent use.
func (s *CategoryRuleService) foldString(v string) string {
	s.foldMu.Lock()
	defer s.foldMu.Unlock()
	return s.fold.String(v)
}
