package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/archive-api/internal/models"
)

const subcategoryColumns = `id, name, code, category_id, description, color, icon, is_active, created_by, created_at, updated_by, updated_at`

// SubcategoryRepository persists archive subcategories.
type SubcategoryRepository struct {
	db *sqlx.DB
}

// NewSubcategoryRepository constructs the repository.
func NewSubcategoryRepository(db *sqlx.DB) *SubcategoryRepository {
	return &SubcategoryRepository{db: db}
}

func (r *SubcategoryRepository) Create(ctx context.Context, s *models.Subcategory) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	const query = `INSERT INTO archive_subcategories (` + subcategoryColumns + `)
	VALUES (:id, :name, :code, :category_id, :description, :color, :icon, :is_active, :created_by, :created_at, :updated_by, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("create subcategory: %w", err)
	}
	return nil
}

func (r *SubcategoryRepository) Update(ctx context.Context, s *models.Subcategory) error {
	s.UpdatedAt = time.Now().UTC()
	const query = `UPDATE archive_subcategories SET name = :name, code = :code, category_id = :category_id, description = :description,
	color = :color, icon = :icon, is_active = :is_active, updated_by = :updated_by, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		return fmt.Errorf("update subcategory: %w", err)
	}
	return expectAffected(res, "update subcategory")
}

func (r *SubcategoryRepository) GetByID(ctx context.Context, id string) (*models.Subcategory, error) {
	var s models.Subcategory
	if err := r.db.GetContext(ctx, &s, `SELECT `+subcategoryColumns+` FROM archive_subcategories WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubcategoryRepository) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM archive_subcategories WHERE code = $1 AND id::text <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, code, excludeID); err != nil {
		return false, fmt.Errorf("check subcategory code: %w", err)
	}
	return exists, nil
}

// ListByCategory returns active subcategories of a category with document counts.
func (r *SubcategoryRepository) ListByCategory(ctx context.Context, categoryID string) ([]models.SubcategoryWithCount, error) {
	const query = `SELECT s.id, s.name, s.code, s.category_id, s.description, s.color, s.icon, s.is_active,
	s.created_by, s.created_at, s.updated_by, s.updated_at, COUNT(d.id) AS document_count
	FROM archive_subcategories s
	LEFT JOIN archive_documents d ON d.subcategory_id = s.id
	WHERE s.category_id = $1 AND s.is_active
	GROUP BY s.id ORDER BY s.name`
	var out []models.SubcategoryWithCount
	if err := r.db.SelectContext(ctx, &out, query, categoryID); err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	return out, nil
}

// DocumentCount counts documents filed under the subcategory.
func (r *SubcategoryRepository) DocumentCount(ctx context.Context, id string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM archive_documents WHERE subcategory_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count subcategory documents: %w", err)
	}
	return n, nil
}

func (r *SubcategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM archive_subcategories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	return expectAffected(res, "delete subcategory")
}

// Statistics reports document counts per active subcategory.
func (r *SubcategoryRepository) Statistics(ctx context.Context) ([]models.SubcategoryStatistics, error) {
	const query = `SELECT s.id AS subcategory_id, s.name, s.category_id, COALESCE(c.name, '') AS category_name,
	COUNT(d.id) AS document_count,
	COUNT(*) FILTER (WHERE d.status = 'Active') AS active_count
	FROM archive_subcategories s
	LEFT JOIN archive_categories c ON c.id = s.category_id
	LEFT JOIN archive_documents d ON d.subcategory_id = s.id
	WHERE s.is_active
	GROUP BY s.id, s.name, s.category_id, c.name
	ORDER BY document_count DESC, s.name`
	var out []models.SubcategoryStatistics
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("subcategory statistics: %w", err)
	}
	return out, nil
}
