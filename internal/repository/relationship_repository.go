package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/archive-api/internal/models"
)

const insertRelationship = `INSERT INTO archive_related_documents
(id, document_id, related_document_id, relationship_type, notes, created_by, created_at)
VALUES (:id, :document_id, :related_document_id, :relationship_type, :notes, :created_by, :created_at)`

// RelationshipRepository persists document links.
type RelationshipRepository struct {
	db *sqlx.DB
}

// NewRelationshipRepository constructs the repository.
func NewRelationshipRepository(db *sqlx.DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// CreatePair inserts edge and, when non-nil, its reverse in one transaction.
// An already existing reverse edge is left untouched.
func (r *RelationshipRepository) CreatePair(ctx context.Context, edge, reverse *models.RelatedDocument) (err error) {
	now := time.Now().UTC()
	prepare := func(e *models.RelatedDocument) {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create relationship: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	prepare(edge)
	if _, err = tx.NamedExecContext(ctx, insertRelationship, edge); err != nil {
		return fmt.Errorf("create relationship: %w", err)
	}
	if reverse != nil {
		prepare(reverse)
		const query = insertRelationship + ` ON CONFLICT (document_id, related_document_id, relationship_type) DO NOTHING`
		if _, err = tx.NamedExecContext(ctx, query, reverse); err != nil {
			return fmt.Errorf("create reverse relationship: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit relationship: %w", err)
	}
	return nil
}

// Exists reports whether the exact edge is already stored.
func (r *RelationshipRepository) Exists(ctx context.Context, documentID, relatedID string, relType models.RelationshipType) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM archive_related_documents
	WHERE document_id = $1 AND related_document_id = $2 AND relationship_type = $3)`
	if err := r.db.GetContext(ctx, &exists, query, documentID, relatedID, relType); err != nil {
		return false, fmt.Errorf("check relationship: %w", err)
	}
	return exists, nil
}

// GetByID returns sql.ErrNoRows when absent.
func (r *RelationshipRepository) GetByID(ctx context.Context, id string) (*models.RelatedDocument, error) {
	var rel models.RelatedDocument
	const query = `SELECT id, document_id, related_document_id, relationship_type, notes, created_by, created_at
	FROM archive_related_documents WHERE id = $1`
	if err := r.db.GetContext(ctx, &rel, query, id); err != nil {
		return nil, err
	}
	return &rel, nil
}

// ListByDocument returns outgoing edges joined with the related document, newest first.
func (r *RelationshipRepository) ListByDocument(ctx context.Context, documentID string, relType models.RelationshipType) ([]models.RelationshipView, error) {
	query := `SELECT r.id, r.document_id, r.related_document_id, r.relationship_type, r.notes, r.created_by, r.created_at,
	d.document_id AS related_document_code, d.title AS related_title, d.status AS related_status,
	d.access_level AS related_access_level, d.created_by AS related_created_by
	FROM archive_related_documents r
	JOIN archive_documents d ON d.id = r.related_document_id
	WHERE r.document_id = $1`
	args := []interface{}{documentID}
	if relType != "" {
		query += ` AND r.relationship_type = $2`
		args = append(args, relType)
	}
	query += ` ORDER BY r.created_at DESC`
	var out []models.RelationshipView
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	return out, nil
}

// DeletePair removes edge and the mirrored edge of reverseType in one statement.
func (r *RelationshipRepository) DeletePair(ctx context.Context, edge *models.RelatedDocument, reverseType models.RelationshipType) (int64, error) {
	const query = `DELETE FROM archive_related_documents
	WHERE id = $1 OR (document_id = $2 AND related_document_id = $3 AND relationship_type = $4)`
	res, err := r.db.ExecContext(ctx, query, edge.ID, edge.RelatedDocumentID, edge.DocumentID, reverseType)
	if err != nil {
		return 0, fmt.Errorf("delete relationship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete relationship rows: %w", err)
	}
	return n, nil
}

// Statistics counts edges per relationship type.
func (r *RelationshipRepository) Statistics(ctx context.Context) ([]models.RelationshipCount, error) {
	const query = `SELECT relationship_type, COUNT(*) AS count FROM archive_related_documents
	GROUP BY relationship_type ORDER BY count DESC, relationship_type`
	var out []models.RelationshipCount
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("relationship statistics: %w", err)
	}
	return out, nil
}
