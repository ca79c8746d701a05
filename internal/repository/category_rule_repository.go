package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/archive-api/internal/models"
)

const ruleColumns = `id, name, rule_type, keywords, pattern, document_type_id, category_id, priority, is_active, description,
created_by, created_at, updated_at`

// CategoryRuleRepository persists auto-categorization rules.
type CategoryRuleRepository struct {
	db *sqlx.DB
}

// NewCategoryRuleRepository constructs the repository.
func NewCategoryRuleRepository(db *sqlx.DB) *CategoryRuleRepository {
	return &CategoryRuleRepository{db: db}
}

func (r *CategoryRuleRepository) Create(ctx context.Context, rule *models.CategoryRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	const query = `INSERT INTO archive_category_rules (` + ruleColumns + `)
	VALUES (:id, :name, :rule_type, :keywords, :pattern, :document_type_id, :category_id, :priority, :is_active, :description,
	:created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create category rule: %w", err)
	}
	return nil
}

func (r *CategoryRuleRepository) Update(ctx context.Context, rule *models.CategoryRule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE archive_category_rules SET name = :name, rule_type = :rule_type, keywords = :keywords,
	pattern = :pattern, document_type_id = :document_type_id, category_id = :category_id, priority = :priority,
	is_active = :is_active, description = :description, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, rule)
	if err != nil {
		return fmt.Errorf("update category rule: %w", err)
	}
	return expectAffected(res, "update category rule")
}

func (r *CategoryRuleRepository) GetByID(ctx context.Context, id string) (*models.CategoryRule, error) {
	var rule models.CategoryRule
	if err := r.db.GetContext(ctx, &rule, `SELECT `+ruleColumns+` FROM archive_category_rules WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// List returns rules in evaluation order: priority ascending, then name.
func (r *CategoryRuleRepository) List(ctx context.Context, f models.RuleFilter) ([]models.CategoryRule, error) {
	c := &conditions{}
	if f.ActiveOnly {
		c.raw("is_active")
	}
	if f.RuleType != "" {
		c.add("rule_type = $%d", f.RuleType)
	}
	if f.CategoryID != "" {
		c.add("category_id = $%d", f.CategoryID)
	}
	query := `SELECT ` + ruleColumns + ` FROM archive_category_rules` + c.where() + ` ORDER BY priority ASC, name ASC`
	var out []models.CategoryRule
	if err := r.db.SelectContext(ctx, &out, query, c.args...); err != nil {
		return nil, fmt.Errorf("list category rules: %w", err)
	}
	return out, nil
}

func (r *CategoryRuleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM archive_category_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category rule: %w", err)
	}
	return expectAffected(res, "delete category rule")
}

func (r *CategoryRuleRepository) Statistics(ctx context.Context) ([]models.RuleStatistics, error) {
	const query = `SELECT rule_type, COUNT(*) AS total, COUNT(*) FILTER (WHERE is_active) AS active
	FROM archive_category_rules GROUP BY rule_type ORDER BY total DESC, rule_type`
	var out []models.RuleStatistics
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("rule statistics: %w", err)
	}
	return out, nil
}
