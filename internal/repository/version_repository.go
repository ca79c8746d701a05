package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/archive-api/internal/models"
)

const versionColumns = `id, document_id, version_number, file_path, file_name, file_size, file_hash, version_notes,
encryption_status, is_current, created_by, created_at`

// VersionRepository persists document versions.
type VersionRepository struct {
	db *sqlx.DB
}

// NewVersionRepository constructs the repository.
func NewVersionRepository(db *sqlx.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// CreateCurrent appends v as the new current version of its document. The document row is locked,
// the next number is computed, siblings are cleared and the document file pointer is moved, all in one
// transaction.
func (r *VersionRepository) CreateCurrent(ctx context.Context, v *models.DocumentVersion, updatedBy string) (err error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.IsCurrent = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create version: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM archive_documents WHERE id = $1 FOR UPDATE`, v.DocumentID); err != nil {
		return err
	}
	var latest int
	if err = tx.GetContext(ctx, &latest, `SELECT COALESCE(MAX(version_number), 0) FROM archive_document_versions WHERE document_id = $1`, v.DocumentID); err != nil {
		return fmt.Errorf("next version number: %w", err)
	}
	v.VersionNumber = latest + 1

	if _, err = tx.ExecContext(ctx, `UPDATE archive_document_versions SET is_current = FALSE WHERE document_id = $1 AND is_current`, v.DocumentID); err != nil {
		return fmt.Errorf("clear current version: %w", err)
	}
	if _, err = tx.NamedExecContext(ctx, insertVersion, v); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	const moveFile = `UPDATE archive_documents SET file_path = $2, file_name = $3, file_size = $4, file_hash = $5,
	encryption_status = $6, updated_by = $7, updated_at = $8 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, moveFile, v.DocumentID, v.FilePath, v.FileName, v.FileSize, v.FileHash, v.EncryptionStatus, updatedBy, now); err != nil {
		return fmt.Errorf("point document at version: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create version: %w", err)
	}
	return nil
}

// GetByID returns sql.ErrNoRows when absent.
func (r *VersionRepository) GetByID(ctx context.Context, id string) (*models.DocumentVersion, error) {
	var v models.DocumentVersion
	if err := r.db.GetContext(ctx, &v, `SELECT `+versionColumns+` FROM archive_document_versions WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByDocument returns versions by number, newest first.
func (r *VersionRepository) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	const query = `SELECT ` + versionColumns + ` FROM archive_document_versions WHERE document_id = $1 ORDER BY version_number DESC`
	var out []models.DocumentVersion
	if err := r.db.SelectContext(ctx, &out, query, documentID); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return out, nil
}

// UpdateFile rewrites the stored file reference of a version (used by encryption).
func (r *VersionRepository) UpdateFile(ctx context.Context, v *models.DocumentVersion) error {
	const query = `UPDATE archive_document_versions SET file_path = $2, file_size = $3, encryption_status = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, v.ID, v.FilePath, v.FileSize, v.EncryptionStatus)
	if err != nil {
		return fmt.Errorf("update version file: %w", err)
	}
	return expectAffected(res, "update version file")
}

// DeleteNonCurrent removes a version unless it is current.
func (r *VersionRepository) DeleteNonCurrent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM archive_document_versions WHERE id = $1 AND NOT is_current`, id)
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	return expectAffected(res, "delete version")
}
