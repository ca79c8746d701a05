package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/archive-api/internal/models"
)

const categoryColumns = `id, name, code, description, parent_id, color, icon, is_active, created_by, created_at, updated_by, updated_at`

// CategoryRepository persists archive categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs the repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create inserts a category, assigning ID and timestamps when empty.
func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	const query = `INSERT INTO archive_categories (` + categoryColumns + `)
	VALUES (:id, :name, :code, :description, :parent_id, :color, :icon, :is_active, :created_by, :created_at, :updated_by, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update overwrites mutable fields.
func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) error {
	c.UpdatedAt = time.Now().UTC()
	const query = `UPDATE archive_categories SET name = :name, code = :code, description = :description, parent_id = :parent_id,
	color = :color, icon = :icon, is_active = :is_active, updated_by = :updated_by, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return expectAffected(res, "update category")
}

// GetByID returns sql.ErrNoRows when absent.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	var c models.Category
	if err := r.db.GetContext(ctx, &c, `SELECT `+categoryColumns+` FROM archive_categories WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByCode returns sql.ErrNoRows when absent.
func (r *CategoryRepository) GetByCode(ctx context.Context, code string) (*models.Category, error) {
	var c models.Category
	if err := r.db.GetContext(ctx, &c, `SELECT `+categoryColumns+` FROM archive_categories WHERE code = $1`, code); err != nil {
		return nil, err
	}
	return &c, nil
}

// CodeExists reports whether another category already uses code.
func (r *CategoryRepository) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM archive_categories WHERE code = $1 AND id::text <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, code, excludeID); err != nil {
		return false, fmt.Errorf("check category code: %w", err)
	}
	return exists, nil
}

// List returns categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM archive_categories`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`
	var out []models.Category
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// Delete removes a category row.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM archive_categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectAffected(res, "delete category")
}

// Usage counts child categories, subcategories and documents referencing id.
func (r *CategoryRepository) Usage(ctx context.Context, id string) (models.CategoryUsage, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM archive_categories WHERE parent_id = $1) AS children,
	(SELECT COUNT(*) FROM archive_subcategories WHERE category_id = $1) AS subcategories,
	(SELECT COUNT(*) FROM archive_documents WHERE category_id = $1) AS documents`
	var usage models.CategoryUsage
	if err := r.db.GetContext(ctx, &usage, query, id); err != nil {
		return usage, fmt.Errorf("category usage: %w", err)
	}
	return usage, nil
}

// DocumentCounts returns the direct document count per category.
func (r *CategoryRepository) DocumentCounts(ctx context.Context) (map[string]int, error) {
	var rows []models.CategoryCount
	const query = `SELECT category_id, '' AS name, COUNT(*) AS count FROM archive_documents GROUP BY category_id`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count documents per category: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.CategoryID] = row.Count
	}
	return out, nil
}

// Statistics reports document counts per active category, optionally for a single one.
func (r *CategoryRepository) Statistics(ctx context.Context, categoryID string) ([]models.CategoryStatistics, error) {
	query := `SELECT c.id AS category_id, c.name, c.color,
	COUNT(d.id) AS document_count,
	COUNT(*) FILTER (WHERE d.status = 'Active') AS active_count,
	COUNT(*) FILTER (WHERE d.access_level = 'Confidential') AS confidential_count
	FROM archive_categories c
	LEFT JOIN archive_documents d ON d.category_id = c.id
	WHERE c.is_active`
	var args []interface{}
	if categoryID != "" {
		query += ` AND c.id = $1`
		args = append(args, categoryID)
	}
	query += ` GROUP BY c.id, c.name, c.color ORDER BY document_count DESC, c.name`
	var out []models.CategoryStatistics
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("category statistics: %w", err)
	}
	return out, nil
}

// Documents lists documents filed directly under f.CategoryID, newest first.
// The visibility fields of f apply as they do for search.
func (r *CategoryRepository) Documents(ctx context.Context, f models.DocumentFilter) ([]models.DocumentSummary, int, error) {
	if f.CategoryID == "" {
		return nil, 0, fmt.Errorf("category documents: category id is required")
	}
	conds := buildDocumentConditions(models.DocumentFilter{
		CategoryID:          f.CategoryID,
		HiddenAccessLevels:  f.HiddenAccessLevels,
		RestrictedOwnerOnly: f.RestrictedOwnerOnly,
	})
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM archive_documents`+conds.where(), conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count category documents: %w", err)
	}
	query := fmt.Sprintf(`SELECT id, document_id, title, status, access_level, created_at
	FROM archive_documents%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		conds.where(), clampLimit(f.Limit, 20, 200), clampOffset(f.Offset))
	var out []models.DocumentSummary
	if err := r.db.SelectContext(ctx, &out, query, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("list category documents: %w", err)
	}
	return out, total, nil
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
