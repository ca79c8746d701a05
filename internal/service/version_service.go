package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
)

type versionStore interface {
	CreateCurrent(ctx context.Context, v *models.DocumentVersion, updatedBy string) error
	GetByID(ctx context.Context, id string) (*models.DocumentVersion, error)
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error)
	UpdateFile(ctx context.Context, v *models.DocumentVersion) error
	DeleteNonCurrent(ctx context.Context, id string) error
}

// UploadedFile is a file received from a client.
type UploadedFile struct {
	FileName string
	MimeType string
	Data     []byte
}

// VersionService appends, restores and verifies document versions.
type VersionService struct {
	repo      versionStore
	documents documentLookup
	types     ruleTypeLookup
	vault     *FileVault
	audit     auditRecorder
	logger    *zap.Logger

	maxFileSize int64
}

// NewVersionService constructs a VersionService. maxFileSize is the global upload cap in bytes; zero disables it.
func NewVersionService(repo versionStore, documents documentLookup, types ruleTypeLookup, vault *FileVault, audit auditRecorder, logger *zap.Logger, maxFileSize int64) *VersionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionService{repo: repo, documents: documents, types: types, vault: vault, audit: audit, logger: logger, maxFileSize: maxFileSize}
}

// Create stores a new file for the document and makes it the current version.
func (s *VersionService) Create(ctx context.Context, actor models.Actor, documentID string, file UploadedFile, notes string) (*models.DocumentVersion, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if len(file.Data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if s.maxFileSize > 0 && int64(len(file.Data)) > s.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("File size exceeds the maximum allowed size of %d MB", s.maxFileSize/(1024*1024)))
	}
	doc, err := loadVisible(ctx, s.documents, actor, documentID)
	if err != nil {
		return nil, err
	}
	if s.types != nil && doc.DocumentTypeID != "" {
		docType, err := s.types.GetByID(ctx, doc.DocumentTypeID)
		if err != nil {
			return nil, notFoundOr(err, "document type not found", "failed to load document type")
		}
		if check := CheckFile(docType, file.FileName, int64(len(file.Data))); !check.IsValid {
			return nil, appErrors.Clone(appErrors.ErrValidation, check.Errors[0])
		}
	}
	obj, err := s.vault.Store(doc.ID, file.FileName, file.Data, doc.IsEncrypted())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store version file")
	}
	v := newVersion(doc.ID, file.FileName, notes, obj, actor.UserID)
	if err := s.repo.CreateCurrent(ctx, v, actor.UserID); err != nil {
		_ = s.vault.Delete(obj.Path)
		return nil, notFoundOr(err, "document not found", "failed to create version")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:        models.AuditVersionCreated,
		DocumentID:    &doc.ID,
		VersionNumber: intPtr(v.VersionNumber),
		Details:       fmt.Sprintf("Version %d created", v.VersionNumber),
	})
	return v, nil
}

// Restore copies an older version into a new current version.
func (s *VersionService) Restore(ctx context.Context, actor models.Actor, versionID string) (*models.DocumentVersion, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	old, doc, err := s.visibleVersion(ctx, actor, versionID)
	if err != nil {
		return nil, err
	}
	if !s.vault.Exists(old.FilePath) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "version file not found")
	}
	oldEncrypted := old.EncryptionStatus == models.Encrypted
	obj, err := s.vault.Duplicate(doc.ID, old.FilePath, old.FileName, oldEncrypted, doc.IsEncrypted())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to copy version file")
	}
	v := newVersion(doc.ID, old.FileName, fmt.Sprintf("Restored from version %d", old.VersionNumber), obj, actor.UserID)
	if err := s.repo.CreateCurrent(ctx, v, actor.UserID); err != nil {
		_ = s.vault.Delete(obj.Path)
		return nil, notFoundOr(err, "document not found", "failed to restore version")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:        models.AuditVersionRestored,
		DocumentID:    &doc.ID,
		VersionNumber: intPtr(v.VersionNumber),
		Details:       fmt.Sprintf("Version %d restored as version %d", old.VersionNumber, v.VersionNumber),
	})
	return v, nil
}

// Get returns a version of a document the actor may see.
func (s *VersionService) Get(ctx context.Context, actor models.Actor, id string) (*models.DocumentVersion, error) {
	v, _, err := s.visibleVersion(ctx, actor, id)
	return v, err
}

func (s *VersionService) load(ctx context.Context, id string) (*models.DocumentVersion, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "version not found", "failed to load version")
	}
	return v, nil
}

// visibleVersion loads a version together with its document, applying the document's visibility.
func (s *VersionService) visibleVersion(ctx context.Context, actor models.Actor, id string) (*models.DocumentVersion, *models.Document, error) {
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	doc, err := loadVisible(ctx, s.documents, actor, v.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	return v, doc, nil
}

// History lists the versions of a document, newest first.
func (s *VersionService) History(ctx context.Context, actor models.Actor, documentID string) ([]models.DocumentVersion, error) {
	if _, err := loadVisible(ctx, s.documents, actor, documentID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list versions")
	}
	if items == nil {
		items = []models.DocumentVersion{}
	}
	return items, nil
}

// Compare reports the differences between two versions of the same document.
func (s *VersionService) Compare(ctx context.Context, actor models.Actor, versionID, otherID string) (*models.VersionComparison, error) {
	a, err := s.Get(ctx, actor, versionID)
	if err != nil {
		return nil, err
	}
	b, err := s.Get(ctx, actor, otherID)
	if err != nil {
		return nil, err
	}
	if a.DocumentID != b.DocumentID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "versions belong to different documents")
	}
	diff := []string{}
	if a.FileSize != b.FileSize {
		diff = append(diff, "File size changed")
	}
	if a.VersionNotes != b.VersionNotes {
		diff = append(diff, "Version notes changed")
	}
	if a.EncryptionStatus != b.EncryptionStatus {
		diff = append(diff, "Encryption status changed")
	}
	return &models.VersionComparison{
		Current:     summarizeVersion(a),
		Other:       summarizeVersion(b),
		Differences: diff,
	}, nil
}

// CheckIntegrity re-hashes the stored file and compares it to the recorded hash.
func (s *VersionService) CheckIntegrity(ctx context.Context, actor models.Actor, versionID string) (*models.IntegrityReport, error) {
	v, err := s.Get(ctx, actor, versionID)
	if err != nil {
		return nil, err
	}
	report := &models.IntegrityReport{VersionID: v.ID, VersionNumber: v.VersionNumber, ExpectedHash: v.FileHash}
	switch {
	case v.FilePath == "" || v.FileHash == "":
		report.Status = models.IntegrityNoData
	case !s.vault.Exists(v.FilePath):
		report.Status = models.IntegrityMissing
	default:
		actual, err := s.vault.Hash(v.DocumentID, v.FilePath, v.EncryptionStatus == models.Encrypted)
		if err != nil {
			s.logger.Warn("integrity hash failed", zap.String("version_id", v.ID), zap.Error(err))
			report.Status = models.IntegrityFailed
			break
		}
		report.ActualHash = actual
		if actual == v.FileHash {
			report.Status = models.IntegrityVerified
		} else {
			report.Status = models.IntegrityFailed
		}
	}

	entry := models.AuditEntry{
		Action:        models.AuditComplianceCheck,
		DocumentID:    &v.DocumentID,
		VersionNumber: intPtr(v.VersionNumber),
		Details:       fmt.Sprintf("Integrity check for version %d: %s", v.VersionNumber, report.Status),
	}
	if report.Status != models.IntegrityVerified {
		entry.Status = models.AuditWarning
		entry.Severity = models.SeverityHigh
	}
	emitAudit(ctx, s.audit, s.logger, actor, entry)
	return report, nil
}

// Delete removes a non-current version and its file.
func (s *VersionService) Delete(ctx context.Context, actor models.Actor, versionID string) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	v, err := s.load(ctx, versionID)
	if err != nil {
		return err
	}
	if v.IsCurrent {
		return appErrors.Clone(appErrors.ErrValidation, "Cannot delete the current version")
	}
	if err := s.repo.DeleteNonCurrent(ctx, v.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "Cannot delete the current version")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete version")
	}
	if err := s.vault.Delete(v.FilePath); err != nil {
		s.logger.Warn("failed to remove version file", zap.String("version_id", v.ID), zap.Error(err))
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:        models.AuditVersionDeleted,
		DocumentID:    &v.DocumentID,
		VersionNumber: intPtr(v.VersionNumber),
		Severity:      models.SeverityMedium,
		Details:       fmt.Sprintf("Version %d deleted", v.VersionNumber),
	})
	return nil
}

func newVersion(documentID, fileName, notes string, obj *StoredObject, createdBy string) *models.DocumentVersion {
	status := models.NotEncrypted
	if obj.Encrypted {
		status = models.Encrypted
	}
	return &models.DocumentVersion{
		DocumentID:       documentID,
		FilePath:         obj.Path,
		FileName:         fileName,
		FileSize:         obj.Size,
		FileHash:         obj.Hash,
		VersionNotes:     notes,
		EncryptionStatus: status,
		CreatedBy:        createdBy,
	}
}

func summarizeVersion(v *models.DocumentVersion) models.VersionSummary {
	return models.VersionSummary{
		VersionNumber: v.VersionNumber,
		CreatedAt:     v.CreatedAt,
		FileSize:      v.FileSize,
		CreatedBy:     v.CreatedBy,
	}
}
