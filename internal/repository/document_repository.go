package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/archive-api/internal/models"
)

const documentColumns = `id, document_id, title, description, document_type_id, category_id, subcategory_id, status, priority,
access_level, file_path, file_name, mime_type, file_size, file_hash, ocr_text, ocr_status, encryption_status,
retention_period, tags, created_by, created_at, updated_by, updated_at`

const insertDocument = `INSERT INTO archive_documents (` + documentColumns + `)
VALUES (:id, :document_id, :title, :description, :document_type_id, :category_id, :subcategory_id, :status, :priority,
:access_level, :file_path, :file_name, :mime_type, :file_size, :file_hash, :ocr_text, :ocr_status, :encryption_status,
:retention_period, :tags, :created_by, :created_at, :updated_by, :updated_at)`

const insertVersion = `INSERT INTO archive_document_versions
(id, document_id, version_number, file_path, file_name, file_size, file_hash, version_notes, encryption_status, is_current, created_by, created_at)
VALUES (:id, :document_id, :version_number, :file_path, :file_name, :file_size, :file_hash, :version_notes, :encryption_status, :is_current, :created_by, :created_at)`

// DocumentRepository persists archive documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateWithInitialVersion inserts the document and its first current version atomically.
func (r *DocumentRepository) CreateWithInitialVersion(ctx context.Context, doc *models.Document, version *models.DocumentVersion) (err error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	version.DocumentID = doc.ID
	version.VersionNumber = 1
	version.IsCurrent = true
	if version.CreatedAt.IsZero() {
		version.CreatedAt = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create document: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, insertDocument, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	if _, err = tx.NamedExecContext(ctx, insertVersion, version); err != nil {
		return fmt.Errorf("create initial version: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create document: %w", err)
	}
	return nil
}

// Update overwrites mutable metadata and file state.
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE archive_documents SET title = :title, description = :description, document_type_id = :document_type_id,
	category_id = :category_id, subcategory_id = :subcategory_id, status = :status, priority = :priority,
	access_level = :access_level, file_path = :file_path, file_name = :file_name, mime_type = :mime_type,
	file_size = :file_size, file_hash = :file_hash, ocr_text = :ocr_text, ocr_status = :ocr_status,
	encryption_status = :encryption_status, retention_period = :retention_period, tags = :tags,
	updated_by = :updated_by, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, doc)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return expectAffected(res, "update document")
}

// UpdateOCR stores extraction output without touching other columns.
func (r *DocumentRepository) UpdateOCR(ctx context.Context, id string, status models.OCRStatus, text string) error {
	const query = `UPDATE archive_documents SET ocr_status = $2, ocr_text = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, text, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document ocr: %w", err)
	}
	return expectAffected(res, "update document ocr")
}

// UpdateCategory moves a document to another category.
func (r *DocumentRepository) UpdateCategory(ctx context.Context, id, categoryID, updatedBy string) error {
	const query = `UPDATE archive_documents SET category_id = $2, subcategory_id = NULL, updated_by = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, categoryID, updatedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document category: %w", err)
	}
	return expectAffected(res, "update document category")
}

// GetByID returns sql.ErrNoRows when absent.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var d models.Document
	if err := r.db.GetContext(ctx, &d, `SELECT `+documentColumns+` FROM archive_documents WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &d, nil
}

// DocumentIDExists reports whether the human readable document_id is taken.
func (r *DocumentRepository) DocumentIDExists(ctx context.Context, documentID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM archive_documents WHERE document_id = $1)`, documentID); err != nil {
		return false, fmt.Errorf("check document id: %w", err)
	}
	return exists, nil
}

// Delete removes the document. Versions and relationships cascade.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM archive_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return expectAffected(res, "delete document")
}

// Search returns one page of documents and the total match count.
func (r *DocumentRepository) Search(ctx context.Context, f models.DocumentFilter) ([]models.Document, int, error) {
	conds := buildDocumentConditions(f)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM archive_documents`+conds.where(), conds.args...); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	limit := clampLimit(f.Limit, 20, 500)
	offset := clampOffset(f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM archive_documents%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		documentColumns, conds.where(), limit, offset)
	var out []models.Document
	if err := r.db.SelectContext(ctx, &out, query, conds.args...); err != nil {
		return nil, 0, fmt.Errorf("search documents: %w", err)
	}
	return out, total, nil
}

func buildDocumentConditions(f models.DocumentFilter) *conditions {
	c := &conditions{}
	if q := strings.TrimSpace(f.Query); q != "" {
		c.add(`(title ILIKE $%[1]d OR document_id ILIKE $%[1]d OR ocr_text ILIKE $%[1]d OR tags ILIKE $%[1]d OR description ILIKE $%[1]d)`, likePattern(q))
	}
	equals := []struct {
		column string
		value  string
	}{
		{"status", f.Status},
		{"category_id", f.CategoryID},
		{"subcategory_id", f.SubcategoryID},
		{"document_type_id", f.DocumentTypeID},
		{"access_level", f.AccessLevel},
		{"priority", f.Priority},
		{"encryption_status", f.EncryptionStatus},
		{"created_by", f.CreatedBy},
	}
	for _, eq := range equals {
		if eq.value != "" {
			c.add(eq.column+" = $%d", eq.value)
		}
	}
	if f.From != nil {
		c.add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		c.add("created_at < $%d", f.To.AddDate(0, 0, 1))
	}
	if len(f.IDs) > 0 {
		c.add("id = ANY($%d)", pq.Array(f.IDs))
	}
	if len(f.HiddenAccessLevels) > 0 {
		c.add("NOT (access_level = ANY($%d))", pq.Array(f.HiddenAccessLevels))
	}
	if f.RestrictedOwnerOnly != "" {
		c.add("(access_level <> 'Restricted' OR created_by = $%d)", f.RestrictedOwnerOnly)
	}
	return c
}

// ListUncategorized returns documents without a category or filed under the fallback category.
func (r *DocumentRepository) ListUncategorized(ctx context.Context, fallbackCategoryID string) ([]models.Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM archive_documents
	WHERE category_id = $1 OR category_id IS NULL ORDER BY created_at`
	var out []models.Document
	if err := r.db.SelectContext(ctx, &out, query, fallbackCategoryID); err != nil {
		return nil, fmt.Errorf("list uncategorized documents: %w", err)
	}
	return out, nil
}

// Statistics aggregates archive wide counters and the ten busiest categories.
func (r *DocumentRepository) Statistics(ctx context.Context) (*models.DocumentStatistics, error) {
	const totals = `SELECT COUNT(*) AS total,
	COUNT(*) FILTER (WHERE status = 'Active') AS active,
	COUNT(*) FILTER (WHERE access_level = 'Confidential') AS confidential,
	COUNT(*) FILTER (WHERE encryption_status = 'Encrypted') AS encrypted,
	COUNT(*) FILTER (WHERE ocr_status = 'Completed') AS ocr_completed,
	COALESCE(SUM(file_size), 0) AS total_bytes
	FROM archive_documents`
	var stats models.DocumentStatistics
	if err := r.db.GetContext(ctx, &stats, totals); err != nil {
		return nil, fmt.Errorf("document statistics: %w", err)
	}
	const top = `SELECT c.id AS category_id, c.name, COUNT(d.id) AS count
	FROM archive_documents d JOIN archive_categories c ON c.id = d.category_id
	GROUP BY c.id, c.name ORDER BY count DESC, c.name LIMIT 10`
	if err := r.db.SelectContext(ctx, &stats.TopCategories, top); err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	return &stats, nil
}
