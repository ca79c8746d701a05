package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/archive-api/internal/models"
)

const documentTypeColumns = `id, name, code, description, allowed_file_types, max_file_size, requires_ocr, requires_encryption,
requires_compliance_check, retention_period, is_active, created_by, created_at, updated_by, updated_at`

// DocumentTypeRepository persists document types.
type DocumentTypeRepository struct {
	db *sqlx.DB
}

// NewDocumentTypeRepository constructs the repository.
func NewDocumentTypeRepository(db *sqlx.DB) *DocumentTypeRepository {
	return &DocumentTypeRepository{db: db}
}

func (r *DocumentTypeRepository) Create(ctx context.Context, t *models.DocumentType) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	const query = `INSERT INTO archive_document_types (` + documentTypeColumns + `)
	VALUES (:id, :name, :code, :description, :allowed_file_types, :max_file_size, :requires_ocr, :requires_encryption,
	:requires_compliance_check, :retention_period, :is_active, :created_by, :created_at, :updated_by, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("create document type: %w", err)
	}
	return nil
}

func (r *DocumentTypeRepository) Update(ctx context.Context, t *models.DocumentType) error {
	t.UpdatedAt = time.Now().UTC()
	const query = `UPDATE archive_document_types SET name = :name, code = :code, description = :description,
	allowed_file_types = :allowed_file_types, max_file_size = :max_file_size, requires_ocr = :requires_ocr,
	requires_encryption = :requires_encryption, requires_compliance_check = :requires_compliance_check,
	retention_period = :retention_period, is_active = :is_active, updated_by = :updated_by, updated_at = :updated_at
	WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return fmt.Errorf("update document type: %w", err)
	}
	return expectAffected(res, "update document type")
}

func (r *DocumentTypeRepository) GetByID(ctx context.Context, id string) (*models.DocumentType, error) {
	var t models.DocumentType
	if err := r.db.GetContext(ctx, &t, `SELECT `+documentTypeColumns+` FROM archive_document_types WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *DocumentTypeRepository) GetByCode(ctx context.Context, code string) (*models.DocumentType, error) {
	var t models.DocumentType
	if err := r.db.GetContext(ctx, &t, `SELECT `+documentTypeColumns+` FROM archive_document_types WHERE code = $1`, code); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *DocumentTypeRepository) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM archive_document_types WHERE code = $1 AND id::text <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, code, excludeID); err != nil {
		return false, fmt.Errorf("check document type code: %w", err)
	}
	return exists, nil
}

func (r *DocumentTypeRepository) List(ctx context.Context, activeOnly bool) ([]models.DocumentType, error) {
	query := `SELECT ` + documentTypeColumns + ` FROM archive_document_types`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`
	var out []models.DocumentType
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	return out, nil
}

func (r *DocumentTypeRepository) DocumentCount(ctx context.Context, id string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM archive_documents WHERE document_type_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count documents of type: %w", err)
	}
	return n, nil
}

func (r *DocumentTypeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM archive_document_types WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document type: %w", err)
	}
	return expectAffected(res, "delete document type")
}

func (r *DocumentTypeRepository) Statistics(ctx context.Context) ([]models.DocumentTypeStatistics, error) {
	const query = `SELECT t.id AS document_type_id, t.name, t.code, t.is_active,
	COUNT(d.id) AS document_count,
	COUNT(*) FILTER (WHERE d.status = 'Active') AS active_count,
	COUNT(*) FILTER (WHERE d.access_level = 'Confidential') AS confidential_count
	FROM archive_document_types t
	LEFT JOIN archive_documents d ON d.document_type_id = t.id
	GROUP BY t.id, t.name, t.code, t.is_active
	ORDER BY document_count DESC, t.name`
	var out []models.DocumentTypeStatistics
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("document type statistics: %w", err)
	}
	return out, nil
}
