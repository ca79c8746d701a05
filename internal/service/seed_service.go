package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/archive-api/internal/models"
)

type seedCategoryStore interface {
	GetByCode(ctx context.Context, code string) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) error
}

type seedSubcategoryStore interface {
	CodeExists(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, s *models.Subcategory) error
}

type seedTypeStore interface {
	GetByCode(ctx context.Context, code string) (*models.DocumentType, error)
	Create(ctx context.Context, t *models.DocumentType) error
}

type seedRuleStore interface {
	List(ctx context.Context, f models.RuleFilter) ([]models.CategoryRule, error)
	Create(ctx context.Context, rule *models.CategoryRule) error
}

type seedUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// SeedAdmin describes the bootstrap administrator.
type SeedAdmin struct {
	Email    string
	Password string
	Name     string
}

// SeedResult counts the rows created by a seed run.
type SeedResult struct {
	Categories    int `json:"categories"`
	Subcategories int `json:"subcategories"`
	DocumentTypes int `json:"document_types"`
	Rules         int `json:"rules"`
	Users         int `json:"users"`
}

type seedCategory struct {
	name, code, description, color, icon string
}

type seedSubcategory struct {
	name, code, categoryCode, description, color string
}

type seedRule struct {
	name, keyword, categoryCode, description string
}

var defaultCategories = []seedCategory{
	{"Financial", "FIN", "Financial documents and records", "#e74c3c", "fas fa-dollar-sign"},
	{"Legal", "LEG", "Legal documents and contracts", "#9b59b6", "fas fa-gavel"},
	{"HR", "HR", "Human resources documents", "#3498db", "fas fa-users"},
	{"Technical", "TECH", "Technical documentation and specifications", "#f39c12", "fas fa-cogs"},
	{"Administrative", "ADMIN", "Administrative documents and procedures", "#95a5a6", "fas fa-clipboard"},
	{"General", "GEN", "General documents", "#2ecc71", "fas fa-file"},
}

var defaultSubcategories = []seedSubcategory{
	{"Invoices", "invoices", "FIN", "Customer and vendor invoices", "#e74c3c"},
	{"Contracts", "contracts", "LEG", "Legal contracts and agreements", "#9b59b6"},
	{"Employee Files", "employee_files", "HR", "Individual employee records", "#3498db"},
	{"User Manuals", "user_manuals", "TECH", "User and technical manuals", "#f39c12"},
}

var defaultDocumentTypes = []models.DocumentType{
	{Name: "Invoice", Code: "INV", Description: "Financial invoices and bills", AllowedFileTypes: "pdf,jpg,png", MaxFileSizeMB: 10, RequiresOCR: true, RequiresComplianceCheck: true, RetentionPeriod: 7},
	{Name: "Contract", Code: "CON", Description: "Legal contracts and agreements", AllowedFileTypes: "pdf,doc,docx", MaxFileSizeMB: 25, RequiresOCR: true, RequiresEncryption: true, RequiresComplianceCheck: true, RetentionPeriod: 10},
	{Name: "Employee Record", Code: "EMP", Description: "Employee personal records", AllowedFileTypes: "pdf,jpg,png,doc,docx", MaxFileSizeMB: 15, RequiresOCR: true, RequiresEncryption: true, RequiresComplianceCheck: true, RetentionPeriod: 7},
	{Name: "Technical Manual", Code: "TECH", Description: "Technical documentation and manuals", AllowedFileTypes: "pdf,doc,docx,txt", MaxFileSizeMB: 50, RetentionPeriod: 5},
	{Name: "Policy Document", Code: "POL", Description: "Company policies and procedures", AllowedFileTypes: "pdf,doc,docx", MaxFileSizeMB: 20, RetentionPeriod: 3},
}

var defaultRules = []seedRule{
	{"Financial Documents", "invoice", "FIN", "Auto-categorize documents containing 'invoice' as Financial"},
	{"Legal Documents", "contract", "LEG", "Auto-categorize documents containing 'contract' as Legal"},
	{"HR Documents", "employee", "HR", "Auto-categorize documents containing 'employee' as HR"},
	{"Technical Documents", "manual", "TECH", "Auto-categorize documents containing 'manual' as Technical"},
}

// SeedService installs the default reference data. Every step skips rows that already exist.
type SeedService struct {
	categories    seedCategoryStore
	subcategories seedSubcategoryStore
	types         seedTypeStore
	rules         seedRuleStore
	users         seedUserStore
	logger        *zap.Logger
}

// NewSeedService constructs a SeedService.
func NewSeedService(categories seedCategoryStore, subcategories seedSubcategoryStore, types seedTypeStore, rules seedRuleStore, users seedUserStore, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{categories: categories, subcategories: subcategories, types: types, rules: rules, users: users, logger: logger}
}

// Run seeds categories, subcategories, document types, keyword rules and the admin account.
func (s *SeedService) Run(ctx context.Context, admin SeedAdmin) (*SeedResult, error) {
	result := &SeedResult{}
	ids := make(map[string]string, len(defaultCategories))
	for _, c := range defaultCategories {
		existing, err := s.categories.GetByCode(ctx, c.code)
		if err == nil {
			ids[c.code] = existing.ID
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lookup category %s: %w", c.code, err)
		}
		cat := &models.Category{Name: c.name, Code: c.code, Description: c.description, Color: c.color, Icon: c.icon, IsActive: true, CreatedBy: "system", UpdatedBy: "system"}
		if err := s.categories.Create(ctx, cat); err != nil {
			return nil, fmt.Errorf("create category %s: %w", c.code, err)
		}
		ids[c.code] = cat.ID
		result.Categories++
	}

	for _, sc := range defaultSubcategories {
		exists, err := s.subcategories.CodeExists(ctx, sc.code, "")
		if err != nil {
			return nil, fmt.Errorf("lookup subcategory %s: %w", sc.code, err)
		}
		if exists {
			continue
		}
		sub := &models.Subcategory{Name: sc.name, Code: sc.code, CategoryID: ids[sc.categoryCode], Description: sc.description, Color: sc.color, IsActive: true, CreatedBy: "system", UpdatedBy: "system"}
		if err := s.subcategories.Create(ctx, sub); err != nil {
			return nil, fmt.Errorf("create subcategory %s: %w", sc.code, err)
		}
		result.Subcategories++
	}

	for _, t := range defaultDocumentTypes {
		_, err := s.types.GetByCode(ctx, t.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lookup document type %s: %w", t.Code, err)
		}
		docType := t
		docType.IsActive = true
		docType.CreatedBy = "system"
		docType.UpdatedBy = "system"
		if err := s.types.Create(ctx, &docType); err != nil {
			return nil, fmt.Errorf("create document type %s: %w", t.Code, err)
		}
		result.DocumentTypes++
	}

	existingRules, err := s.rules.List(ctx, models.RuleFilter{})
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	ruleNames := make(map[string]struct{}, len(existingRules))
	for _, r := range existingRules {
		ruleNames[r.Name] = struct{}{}
	}
	for _, r := range defaultRules {
		if _, ok := ruleNames[r.name]; ok {
			continue
		}
		rule := &models.CategoryRule{
			Name:        r.name,
			RuleType:    models.RuleKeyword,
			Keywords:    r.keyword,
			CategoryID:  ids[r.categoryCode],
			Priority:    1,
			IsActive:    true,
			Description: r.description,
			CreatedBy:   "system",
		}
		if err := s.rules.Create(ctx, rule); err != nil {
			return nil, fmt.Errorf("create rule %s: %w", r.name, err)
		}
		result.Rules++
	}

	created, err := s.seedAdmin(ctx, admin)
	if err != nil {
		return nil, err
	}
	if created {
		result.Users++
	}
	s.logger.Info("seed completed",
		zap.Int("categories", result.Categories),
		zap.Int("subcategories", result.Subcategories),
		zap.Int("document_types", result.DocumentTypes),
		zap.Int("rules", result.Rules),
		zap.Int("users", result.Users),
	)
	return result, nil
}

func (s *SeedService) seedAdmin(ctx context.Context, admin SeedAdmin) (bool, error) {
	if admin.Email == "" || admin.Password == "" {
		s.logger.Warn("admin seed skipped: email or password missing")
		return false, nil
	}
	_, err := s.users.FindByEmail(ctx, admin.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	name := admin.Name
	if name == "" {
		name = "Archive Administrator"
	}
	user := &models.User{Email: admin.Email, PasswordHash: string(hash), FullName: name, Role: models.RoleSystemManager, Active: true}
	if err := s.users.Create(ctx, user); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
