package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/pkg/cache"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/jobs"
	"github.com/noah-isme/archive-api/pkg/ocr"
)

const maxDocumentIDAttempts = 5

var (
	documentStatsKey = cache.Key("documents", "stats")
	documentCachePat = cache.Key("documents", "*")
)

type documentStore interface {
	CreateWithInitialVersion(ctx context.Context, doc *models.Document, version *models.DocumentVersion) error
	Update(ctx context.Context, doc *models.Document) error
	UpdateOCR(ctx context.Context, id string, status models.OCRStatus, text string) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	DocumentIDExists(ctx context.Context, documentID string) (bool, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, f models.DocumentFilter) ([]models.Document, int, error)
	Statistics(ctx context.Context) (*models.DocumentStatistics, error)
}

type documentVersionStore interface {
	GetByID(ctx context.Context, id string) (*models.DocumentVersion, error)
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error)
	UpdateFile(ctx context.Context, v *models.DocumentVersion) error
}

type relationshipLister interface {
	ListByDocument(ctx context.Context, documentID string, relType models.RelationshipType) ([]models.RelationshipView, error)
}

type auditReader interface {
	Recent(ctx context.Context, documentID string) ([]models.AuditEntry, error)
}

type subcategoryLookup interface {
	GetByID(ctx context.Context, id string) (*models.Subcategory, error)
}

type textExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

type jobSubmitter interface {
	Submit(jobType string, payload interface{}) (string, error)
}

type autoCategorizer interface {
	AutoCategorize(ctx context.Context, actor models.Actor, documentID string) (*models.CategorizationResult, error)
}

type downloadSigner interface {
	Generate(id, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (id, relPath string, expiresAt time.Time, err error)
}

// DocumentServiceConfig holds limits and feature toggles.
type DocumentServiceConfig struct {
	MaxFileSize      int64
	DefaultRetention int
	AutoCategorize   bool
	AutoEncrypt      bool
	OCRAsync         bool
	APIPrefix        string
	CacheTTL         time.Duration
}

// DocumentDeps groups the collaborators of DocumentService.
type DocumentDeps struct {
	Documents     documentStore
	Versions      documentVersionStore
	Relationships relationshipLister
	Categories    categoryLookup
	Subcategories subcategoryLookup
	Types         ruleTypeLookup
	Vault         *FileVault
	Signer        downloadSigner
	OCR           textExtractor
	Jobs          jobSubmitter
	Rules         autoCategorizer
	Audit         auditRecorder
	AuditTrail    auditReader
	Cache         *CacheService
	Invalidator   cacheInvalidator
	Metrics       *MetricsService
	Validator     *validator.Validate
	Logger        *zap.Logger
}

// DocumentDownload is a decrypted file ready to stream.
type DocumentDownload struct {
	Data      []byte
	FileName  string
	MimeType  string
	ExpiresAt time.Time
}

// BulkUploadItem pairs upload metadata with its file.
type BulkUploadItem struct {
	Meta dto.UploadDocumentRequest
	File UploadedFile
}

// DocumentService manages archived documents and their stored files.
type DocumentService struct {
	DocumentDeps
	cfg DocumentServiceConfig
	now func() time.Time
}

// NewDocumentService constructs the service with defaults.
func NewDocumentService(deps DocumentDeps, cfg DocumentServiceConfig) *DocumentService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 50 * 1024 * 1024
	}
	if cfg.DefaultRetention <= 0 {
		cfg.DefaultRetention = 7
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &DocumentService{DocumentDeps: deps, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Upload validates metadata and file, stores the file and creates the document with version 1.
func (s *DocumentService) Upload(ctx context.Context, actor models.Actor, meta dto.UploadDocumentRequest, file UploadedFile) (*models.Document, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if err := s.Validator.Struct(meta); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}
	if strings.TrimSpace(meta.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	size := int64(len(file.Data))
	if size == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}

	docType, err := s.loadType(ctx, meta.DocumentTypeID)
	if err != nil {
		return nil, err
	}
	if err := s.checkPlacement(ctx, meta.CategoryID, meta.SubcategoryID); err != nil {
		return nil, err
	}
	if check := CheckFile(docType, file.FileName, size); !check.IsValid {
		return nil, appErrors.Clone(appErrors.ErrValidation, strings.Join(check.Errors, "; "))
	}
	documentID, err := s.reserveDocumentID(ctx, strings.TrimSpace(meta.DocumentID))
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:               uuid.NewString(),
		DocumentID:       documentID,
		Title:            strings.TrimSpace(meta.Title),
		Description:      meta.Description,
		DocumentTypeID:   docType.ID,
		CategoryID:       meta.CategoryID,
		SubcategoryID:    strPtr(strings.TrimSpace(meta.SubcategoryID)),
		Status:           meta.Status,
		Priority:         meta.Priority,
		AccessLevel:      meta.AccessLevel,
		FileName:         file.FileName,
		MimeType:         detectMime(file),
		FileSize:         size,
		OCRStatus:        models.OCRNotProcessed,
		EncryptionStatus: models.NotEncrypted,
		RetentionPeriod:  meta.RetentionPeriod,
		Tags:             meta.Tags,
		CreatedBy:        actor.UserID,
		UpdatedBy:        actor.UserID,
	}
	applyDocumentDefaults(doc, docType, s.cfg.DefaultRetention)

	encrypt := docType.RequiresEncryption || (s.cfg.AutoEncrypt && doc.AccessLevel.Sensitive())
	if encrypt && !s.Vault.CanEncrypt() {
		s.Logger.Warn("encryption requested but no key configured", zap.String("document_id", doc.DocumentID))
		doc.EncryptionStatus = models.EncryptionFailed
		encrypt = false
	}
	obj, err := s.Vault.Store(doc.ID, file.FileName, file.Data, encrypt)
	if err != nil {
		s.Metrics.RecordEncryption("encrypt", false)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist document file")
	}
	doc.FilePath = obj.Path
	doc.FileHash = obj.Hash
	if obj.Encrypted {
		doc.EncryptionStatus = models.Encrypted
	}
	version := newVersion(doc.ID, file.FileName, "Initial version", obj, actor.UserID)
	if err := s.Documents.CreateWithInitialVersion(ctx, doc, version); err != nil {
		_ = s.Vault.Delete(obj.Path)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document")
	}

	s.Metrics.RecordUpload()
	emitAudit(ctx, s.Audit, s.Logger, actor, models.AuditEntry{
		Action:        models.AuditDocumentCreated,
		DocumentID:    &doc.ID,
		CategoryID:    &doc.CategoryID,
		VersionNumber: intPtr(1),
		Details:       fmt.Sprintf("Document %s uploaded (%s)", doc.DocumentID, doc.FileName),
	})
	if obj.Encrypted {
		s.Metrics.RecordEncryption("encrypt", true)
		emitAudit(ctx, s.Audit, s.Logger, actor, models.AuditEntry{
			Action:     models.AuditEncryptionApplied,
			DocumentID: &doc.ID,
			Severity:   models.SeverityMedium,
			Details:    fmt.Sprintf("File encrypted at upload (%s)", doc.AccessLevel),
		})
	}

	ocrQueued := false
	if meta.RunOCR || docType.RequiresOCR {
		ocrQueued = s.runOrQueueOCR(ctx, actor, doc)
	}
	if s.cfg.AutoCategorize && !ocrQueued {
		s.categorize(ctx, actor, doc)
	}
	s.invalidate(ctx)
	return doc, nil
}

// BulkUpload uploads each item independently and reports per item failures.
func (s *DocumentService) BulkUpload(ctx context.Context, actor models.Actor, items []BulkUploadItem) (*dto.BulkUploadResult, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	result := &dto.BulkUploadResult{Total: len(items), Documents: []string{}, Errors: []dto.BulkUploadItemError{}}
	for i, item := range items {
		doc, err := s.Upload(ctx, actor, item.Meta, item.File)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, dto.BulkUploadItemError{Index: i, FileName: item.File.FileName, Error: appErrors.FromError(err).Message})
			continue
		}
		result.Success++
		result.Documents = append(result.Documents, doc.DocumentID)
	}
	return result, nil
}

// Get returns the document with versions, relationships and recent audit entries.
func (s *DocumentService) Get(ctx context.Context, actor models.Actor, id string) (*models.DocumentDetail, error) {
	doc, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	detail := &models.DocumentDetail{
		Document:       *doc,
		RetentionUntil: doc.RetentionEndsAt(),
		Versions:       []models.DocumentVersion{},
		Relationships:  []models.RelationshipView{},
		AuditTrail:     []models.AuditEntry{},
	}
	versions, err := s.Versions.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load versions")
	}
	if versions != nil {
		detail.Versions = versions
	}
	if s.Relationships != nil {
		rels, err := s.Relationships.ListByDocument(ctx, doc.ID, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load relationships")
		}
		if rels != nil {
			detail.Relationships = rels
		}
	}
	if s.AuditTrail != nil {
		trail, err := s.AuditTrail.Recent(ctx, doc.ID)
		if err != nil {
			s.Logger.Warn("failed to load audit trail", zap.String("document_id", doc.ID), zap.Error(err))
		} else if trail != nil {
			detail.AuditTrail = trail
		}
	}
	emitAudit(ctx, s.Audit, s.Logger, actor, models.AuditEntry{
		Action:     models.AuditDocumentAccessed,
		DocumentID: &doc.ID,
		Details:    fmt.Sprintf("Document %s viewed", doc.DocumentID),
	})
	return detail, nil
}

// Update applies a metadata patch. Raising the access level to a sensitive one encrypts the file.
func (s *DocumentService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateDocumentRequest) (*models.Document, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if err := s.Validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}
	doc, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	changed := applyDocumentPatch(doc, req)
	if len(changed) == 0 {
		return doc, nil
	}
	if req.DocumentTypeID != nil {
		if _, err := s.loadType(ctx, doc.DocumentTypeID); err != nil {
			return nil, err
		}
	}
	if req.CategoryID != nil || req.SubcategoryID != nil {
		subID := ""
		if doc.SubcategoryID != nil {
			subID = *doc.SubcategoryID
		}
		if err := s.checkPlacement(ctx, doc.CategoryID, subID); err != nil {
			return nil, err
		}
	}
	doc.UpdatedBy = actor.UserID
	if err := s.Documents.Update(ctx, doc); err != nil {
		return nil, notFoundOr(err, "document not found", "failed to update document")
	}
	emitAudit(ctx, s.Audit, s.Logger, actor, models.AuditEntry{
		Action:     models.AuditDocumentUpdated,
		DocumentID: &doc.ID,
		CategoryID: &doc.CategoryID,
		Details:    "Updated fields: " + strings.Join(changed, ", "),
	})
	if s.cfg.AutoEncrypt && doc.AccessLevel.Sensitive() && !doc.IsEncrypted() && s.Vault.CanEncrypt() {
		if err := s.reseal(ctx, actor, doc, true); err != nil {
			return nil, err
		}
	}
	s.invalidate(ctx)
	return doc, nil
}

// Delete removes a document, its versions, relationships and stored files.
// Documents inside their retention period can only be removed by a system manager.
func (s *DocumentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	doc, err := s.Documents.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "document not found", "failed to load document")
	}
	until := doc.RetentionEndsAt()
	if s.now().Before(until) && !actor.IsSystemManager() {
		return appErrors.Clone(appErrors.ErrRetentionActive, fmt.Sprintf("Document is under retention until %s", until.Format("2006-01-02")))
	}
	versions, err := s.Versions.ListByDocument(ctx, doc.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load versions")
	}
	if err := s.Documents.Delete(ctx, doc.ID); err != nil {
		return notFoundOr(err, "document not found", "failed to delete document")
	}
	paths := map[string]struct{}{doc.FilePath: {}}
	for _, v := range versions {
		paths[v.FilePath] = struct{}{}
	}
	for p := range paths {
		if err := s.Vault.Delete(p); err != nil {
			s.Logger.Warn("failed to remove document file", zap.String("path", p), zap.Error(err))
		}
	}
	emitAudit(ctx, s.Audit, s.Logger, actor, models.AuditEntry{
		Action:     models.AuditDocumentDeleted,
		DocumentID: &doc.ID,
		CategoryID: &doc.CategoryID,
		Severity:   models.SeverityHigh,
		Details:    fmt.Sprintf("Document %s deleted with %d versions", doc.DocumentID, len(versions)),
	})
	s.invalidate(ctx)
	return nil
}

// Search returns one page of documents visible to the actor.
func (s *DocumentService) Search(ctx context.Context, actor models.Actor, req dto.SearchDocumentsRequest) (*dto.SearchDocumentsResponse, error) {
	filter := models.DocumentFilter{
		Query:            req.Query,
		Status:           req.Status,
		CategoryID:       req.CategoryID,
		SubcategoryID:    req.SubcategoryID,
		DocumentTypeID:   req.DocumentTypeID,
		AccessLevel:      req.AccessLevel,
		Priority:         req.Priority,
		EncryptionStatus: req.EncryptionStatus,
		CreatedBy:        req.CreatedBy,
		From:             req.From,
		To:               req.To,
		Limit:            req.Limit,
		Offset:           req.Offset,
	}
	if err := restrictToActor(&filter, actor); err != nil {
		return nil, err
	}
	start := time.Now()
	docs, total, err := s.Documents.Search(ctx, filter)
	s.Metrics.ObserveDBQuery("document_search", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search documents")
	}
	if docs == nil {
		docs = []models.Document{}
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	return &dto.SearchDocumentsResponse{Documents: docs, Total: total, Limit: limit, Offset: req.Offset}, nil
}

// DownloadURL signs a link to the current file, or to versionID when given.
func (s *DocumentService) DownloadURL(ctx context.Context, actor models.Actor, id, versionID string) (*dto.DownloadURLResponse, error) {
	if s.Signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	doc, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	path := doc.FilePath
	var versionNumber *int
	if versionID != "" {
		v, err := s.Versions.GetByID(ctx, versionID)
		if err != nil {
			return nil, notFoundOr(err, "version not found", "failed to load version")
		}
		if v.DocumentID != doc.ID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "version not found")
		}
		path = v.FilePath
		versionNumber = intPtr(v.VersionNumber)
	}
	token, expiresAt, err := s.Signer.Generate(doc.ID, path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download token")
	}
	emitAudit(ctx, s.Audit, s.Logger, actor, models.AuditEntry{
		Action:        models.AuditDocumentDownloaded,
		DocumentID:    &doc.ID,
		VersionNumber: versionNumber,
		Details:       fmt.Sprintf("Download link issued for %s", doc.DocumentID),
	})
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &dto.DownloadURLResponse{
		URL:       fmt.Sprintf("%s/documents/download?token=%s", base, token),
		ExpiresAt: expiresAt,
	}, nil
}

// Download validates a signed token and returns the decrypted file.
func (s *DocumentService) Download(ctx context.Context, token string) (*DocumentDownload, error) {
	if s.Signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	id, relPath, expiresAt, err := s.Signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	doc, err := s.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "document not found", "failed to load document")
	}
	versions, err := s.Versions.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load versions")
	}
	var match *models.DocumentVersion
	for i := range versions {
		if versions[i].FilePath == relPath {
			match = &versions[i]
			break
		}
	}
	if match == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	data, err := s.Vault.Read(doc.ID, match.FilePath, match.EncryptionStatus == models.Encrypted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read document file")
	}
	return &DocumentDownload{Data: data, FileName: match.FileName, MimeType: doc.MimeType, ExpiresAt: expiresAt}, nil
}

// ProcessOCR extracts text from the current file and stores it on the document.
func (s *DocumentService) ProcessOCR(ctx context.Context, actor models.Actor, id string) (*dto.OCRResponse, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if s.OCR == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "OCR is not configured")
	}
	doc, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.Documents.UpdateOCR(ctx, doc.ID, models.OCRProcessing, doc.OCRText); err != nil {
		return nil, notFoundOr(err, "document not found", "failed to update OCR status")
	}
	text, err := s.extract(ctx, doc)
	if err != nil {
		s.Metrics.RecordOCR(string(models.OCRFailed))
		if uerr := s.Documents.UpdateOCR(ctx, doc.ID, models.OCRFailed, ""); uerr != nil {
			s.Logger.Warn("failed to record OCR failure", zap.String("document_id", doc.ID), zap.Error(uerr))
		}
		emitAudit(ctx, s.Audit, s.Logger, actor, models.AuditEntry{
			Action:     models.AuditOCRProcessed,
			DocumentID: &doc.ID,
			Status:     models.AuditFailed,
			Details:    fmt.Sprintf("OCR failed: %v", err),
		})
		if errors.Is(err, ocr.ErrDisabled) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "OCR is disabled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "OCR processing failed")
	}
	if err := s.Documents.UpdateOCR(ctx, doc.ID, models.OCRCompleted, text); err != nil {
		return nil, notFoundOr(err, "document not found", "failed to store OCR text")
	}
	s.Metrics.RecordOCR(string(models.OCRCompleted))
	emitAudit(ctx, s.Audit, s.Logger, actor, models.AuditEntry{
		Action:     models.AuditOCRProcessed,
		DocumentID: &doc.ID,
		Details:    fmt.Sprintf("OCR extracted %d characters", len([]rune(text))),
	})
	return &dto.OCRResponse{DocumentID: doc.ID, Status: models.OCRCompleted, Characters: len([]rune(text))}, nil
}

// Encrypt seals every version of the document.
func (s *DocumentService) Encrypt(ctx context.Context, actor models.Actor, id string) (*models.Document, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if !s.Vault.CanEncrypt() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "encryption is not configured")
	}
	doc, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if doc.IsEncrypted() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Document is already encrypted")
	}
	if err := s.reseal(ctx, actor, doc, true); err != nil {
		return nil, err
	}
	return doc, nil
}

// Decrypt stores every version of the document in plain form.
func (s *DocumentService) Decrypt(ctx context.Context, actor models.Actor, id string) (*models.Document, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	doc, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsEncrypted() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Document is not encrypted")
	}
	if err := s.reseal(ctx, actor, doc, false); err != nil {
		return nil, err
	}
	return doc, nil
}

// Statistics returns archive wide counters, cached.
func (s *DocumentService) Statistics(ctx context.Context) (*models.DocumentStatistics, error) {
	return readThrough(ctx, s.Cache, documentStatsKey, s.cfg.CacheTTL, func(ctx context.Context) (*models.DocumentStatistics, error) {
		stats, err := s.Documents.Statistics(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document statistics")
		}
		if stats.TopCategories == nil {
			stats.TopCategories = []models.CategoryCount{}
		}
		return stats, nil
	})
}

// reseal rewrites every version whose encryption state differs from encrypt and updates the document.
func (s *DocumentService) reseal(ctx context.Context, actor models.Actor, doc *models.Document, encrypt bool) error {
	operation, action := "decrypt", models.AuditDecryptionApplied
	if encrypt {
		operation, action = "encrypt", models.AuditEncryptionApplied
	}
	versions, err := s.Versions.ListByDocument(ctx, doc.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load versions")
	}
	rewritten := 0
	for i := range versions {
		v := &versions[i]
		sealed := v.EncryptionStatus == models.Encrypted
		if sealed == encrypt {
			continue
		}
		obj, err := s.Vault.Duplicate(doc.ID, v.FilePath, v.FileName, sealed, encrypt)
		if err != nil {
			s.Metrics.RecordEncryption(operation, false)
			s.markEncryptionFailure(ctx, actor, doc, encrypt, err)
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to %s version %d", operation, v.VersionNumber))
		}
		oldPath := v.FilePath
		v.FilePath = obj.Path
		v.FileSize = obj.Size
		v.EncryptionStatus = models.NotEncrypted
		if obj.Encrypted {
			v.EncryptionStatus = models.Encrypted
		}
		if err := s.Versions.UpdateFile(ctx, v); err != nil {
			_ = s.Vault.Delete(obj.Path)
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update version file")
		}
		if err := s.Vault.Delete(oldPath); err != nil {
			s.Logger.Warn("failed to remove superseded file", zap.String("path", oldPath), zap.Error(err))
		}
		if v.IsCurrent {
			doc.FilePath = v.FilePath
		}
		rewritten++
	}
	doc.EncryptionStatus = models.NotEncrypted
	if encrypt {
		doc.EncryptionStatus = models.Encrypted
	}
	doc.UpdatedBy = actor.UserID
	if err := s.Documents.Update(ctx, doc); err != nil {
		return notFoundOr(err, "document not found", "failed to update encryption status")
	}
	s.Metrics.RecordEncryption(operation, true)
	emitAudit(ctx, s.Audit, s.Logger, actor, models.AuditEntry{
		Action:     action,
		DocumentID: &doc.ID,
		Severity:   models.SeverityMedium,
		Details:    fmt.Sprintf("%d versions rewritten", rewritten),
	})
	s.invalidate(ctx)
	return nil
}

func (s *DocumentService) markEncryptionFailure(ctx context.Context, actor models.Actor, doc *models.Document, encrypt bool, cause error) {
	if !encrypt {
		return
	}
	doc.EncryptionStatus = models.EncryptionFailed
	if err := s.Documents.Update(ctx, doc); err != nil {
		s.Logger.Warn("failed to record encryption failure", zap.String("document_id", doc.ID), zap.Error(err))
	}
	emitAudit(ctx, s.Audit, s.Logger, actor, models.AuditEntry{
		Action:     models.AuditEncryptionApplied,
		DocumentID: &doc.ID,
		Severity:   models.SeverityHigh,
		Status:     models.AuditFailed,
		Details:    cause.Error(),
	})
}

func (s *DocumentService) extract(ctx context.Context, doc *models.Document) (string, error) {
	data, err := s.Vault.Read(doc.ID, doc.FilePath, doc.IsEncrypted())
	if err != nil {
		return "", err
	}
	return s.OCR.Extract(ctx, doc.FileName, data)
}

// runOrQueueOCR reports whether the work was handed to the job queue.
func (s *DocumentService) runOrQueueOCR(ctx context.Context, actor models.Actor, doc *models.Document) bool {
	if s.OCR == nil {
		return false
	}
	if s.cfg.OCRAsync && s.Jobs != nil {
		jobID, err := s.Jobs.Submit(jobs.TypeOCR, doc.ID)
		if err == nil {
			s.Logger.Debug("ocr queued", zap.String("document_id", doc.ID), zap.String("job_id", jobID))
			return true
		}
		s.Logger.Warn("failed to queue OCR, running inline", zap.String("document_id", doc.ID), zap.Error(err))
	}
	res, err := s.ProcessOCR(ctx, actor, doc.ID)
	if err != nil {
		s.Logger.Warn("ocr failed", zap.String("document_id", doc.ID), zap.Error(err))
		doc.OCRStatus = models.OCRFailed
		return false
	}
	doc.OCRStatus = res.Status
	return false
}

func (s *DocumentService) categorize(ctx context.Context, actor models.Actor, doc *models.Document) {
	if s.Rules == nil {
		return
	}
	res, err := s.Rules.AutoCategorize(ctx, actor, doc.ID)
	if err != nil {
		s.Logger.Warn("auto categorization failed", zap.String("document_id", doc.ID), zap.Error(err))
		return
	}
	if res != nil && res.Changed {
		doc.CategoryID = res.CategoryID
		doc.SubcategoryID = nil
	}
}

func (s *DocumentService) invalidate(ctx context.Context) {
	_ = s.Cache.Invalidate(ctx, documentCachePat)
	if s.Invalidator != nil {
		s.Invalidator.Invalidate(ctx)
	}
}

// visible loads a document and checks the actor may see it.
func (s *DocumentService) visible(ctx context.Context, actor models.Actor, id string) (*models.Document, error) {
	return loadVisible(ctx, s.Documents, actor, id)
}

func (s *DocumentService) loadType(ctx context.Context, id string) (*models.DocumentType, error) {
	t, err := s.Types.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "document type not found", "failed to load document type")
	}
	if !t.IsActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Document type %s is not active", t.Name))
	}
	return t, nil
}

func (s *DocumentService) checkPlacement(ctx context.Context, categoryID, subcategoryID string) error {
	cat, err := s.Categories.GetByID(ctx, categoryID)
	if err != nil {
		return notFoundOr(err, "category not found", "failed to load category")
	}
	if !cat.IsActive {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Category %s is not active", cat.Name))
	}
	if subcategoryID == "" {
		return nil
	}
	sub, err := s.Subcategories.GetByID(ctx, subcategoryID)
	if err != nil {
		return notFoundOr(err, "subcategory not found", "failed to load subcategory")
	}
	if sub.CategoryID != categoryID {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Subcategory %s does not belong to category %s", sub.Name, cat.Name))
	}
	return nil
}

func (s *DocumentService) reserveDocumentID(ctx context.Context, requested string) (string, error) {
	if requested != "" {
		exists, err := s.Documents.DocumentIDExists(ctx, requested)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check document id")
		}
		if exists {
			return "", appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Document ID %s already exists", requested))
		}
		return requested, nil
	}
	for i := 0; i < maxDocumentIDAttempts; i++ {
		candidate := generateDocumentID(s.now())
		exists, err := s.Documents.DocumentIDExists(ctx, candidate)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check document id")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique document id")
}

// restrictToActor hides documents the actor may not see.
func restrictToActor(f *models.DocumentFilter, actor models.Actor) error {
	switch actor.Role {
	case models.RoleSystemManager, models.RoleArchiveManager:
	case models.RoleArchiveUser:
		f.RestrictedOwnerOnly = actor.UserID
	case models.RoleArchiveViewer:
		f.HiddenAccessLevels = []string{string(models.AccessConfidential), string(models.AccessRestricted)}
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "archive role required")
	}
	return nil
}

func applyDocumentDefaults(doc *models.Document, t *models.DocumentType, defaultRetention int) {
	if doc.Status == "" {
		doc.Status = models.DocumentDraft
	}
	if doc.Priority == "" {
		doc.Priority = models.PriorityMedium
	}
	if doc.AccessLevel == "" {
		doc.AccessLevel = models.AccessInternal
	}
	if doc.RetentionPeriod <= 0 {
		doc.RetentionPeriod = t.RetentionPeriod
	}
	if doc.RetentionPeriod <= 0 {
		doc.RetentionPeriod = defaultRetention
	}
}

func applyDocumentPatch(doc *models.Document, req dto.UpdateDocumentRequest) []string {
	var changed []string
	setString := func(name string, dst *string, v *string) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = append(changed, name)
		}
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		setString("title", &doc.Title, &title)
	}
	setString("description", &doc.Description, req.Description)
	setString("document_type_id", &doc.DocumentTypeID, req.DocumentTypeID)
	if req.CategoryID != nil && *req.CategoryID != doc.CategoryID {
		doc.CategoryID = *req.CategoryID
		changed = append(changed, "category_id")
	}
	if req.SubcategoryID != nil {
		next := strPtr(strings.TrimSpace(*req.SubcategoryID))
		if (next == nil) != (doc.SubcategoryID == nil) || (next != nil && *next != *doc.SubcategoryID) {
			doc.SubcategoryID = next
			changed = append(changed, "subcategory_id")
		}
	}
	if req.Status != nil && *req.Status != doc.Status {
		doc.Status = *req.Status
		changed = append(changed, "status")
	}
	if req.Priority != nil && *req.Priority != doc.Priority {
		doc.Priority = *req.Priority
		changed = append(changed, "priority")
	}
	if req.AccessLevel != nil && *req.AccessLevel != doc.AccessLevel {
		doc.AccessLevel = *req.AccessLevel
		changed = append(changed, "access_level")
	}
	if req.RetentionPeriod != nil && *req.RetentionPeriod != doc.RetentionPeriod {
		doc.RetentionPeriod = *req.RetentionPeriod
		changed = append(changed, "retention_period")
	}
	setString("tags", &doc.Tags, req.Tags)
	return changed
}

func detectMime(file UploadedFile) string {
	if file.MimeType != "" && file.MimeType != "application/octet-stream" {
		return file.MimeType
	}
	header := file.Data
	if len(header) > 512 {
		header = header[:512]
	}
	return http.DetectContentType(header)
}

// generateDocumentID returns ARCH + timestamp + four hex characters.
func generateDocumentID(now time.Time) string {
	return "ARCH" + now.Format("20060102150405") + randomSuffix(2)
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%04x", time.Now().UnixNano()&0xffff)
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
