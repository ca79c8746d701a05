package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
)

const (
	warnOCRRequired        = "OCR processing will be required for this document type"
	warnEncryptionRequired = "Encryption will be required for this document type"
)

type documentTypeStore interface {
	Create(ctx context.Context, t *models.DocumentType) error
	Update(ctx context.Context, t *models.DocumentType) error
	GetByID(ctx context.Context, id string) (*models.DocumentType, error)
	GetByCode(ctx context.Context, code string) (*models.DocumentType, error)
	CodeExists(ctx context.Context, code, excludeID string) (bool, error)
	List(ctx context.Context, activeOnly bool) ([]models.DocumentType, error)
	DocumentCount(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context) ([]models.DocumentTypeStatistics, error)
}

// DocumentTypeService manages document types and validates files against them.
type DocumentTypeService struct {
	repo             documentTypeStore
	audit            auditRecorder
	validator        *validator.Validate
	logger           *zap.Logger
	defaultRetention int
}

// NewDocumentTypeService constructs a DocumentTypeService.
func NewDocumentTypeService(repo documentTypeStore, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, defaultRetention int) *DocumentTypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultRetention <= 0 {
		defaultRetention = 7
	}
	return &DocumentTypeService{repo: repo, audit: audit, validator: validate, logger: logger, defaultRetention: defaultRetention}
}

// List returns document types, optionally only active ones.
func (s *DocumentTypeService) List(ctx context.Context, activeOnly bool) ([]models.DocumentType, error) {
	items, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list document types")
	}
	return items, nil
}

// Get returns a document type by id.
func (s *DocumentTypeService) Get(ctx context.Context, id string) (*models.DocumentType, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "document type not found", "failed to load document type")
	}
	return t, nil
}

// Create validates and persists a document type.
func (s *DocumentTypeService) Create(ctx context.Context, actor models.Actor, req dto.DocumentTypeRequest) (*models.DocumentType, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document type payload")
	}
	t := &models.DocumentType{IsActive: true, RetentionPeriod: s.defaultRetention, CreatedBy: actor.UserID}
	applyDocumentTypeRequest(t, req)
	t.UpdatedBy = actor.UserID
	if err := s.prepare(ctx, t); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document type")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:  models.AuditTypeCreated,
		Details: fmt.Sprintf("Document Type '%s' created", t.Name),
	})
	return t, nil
}

// Update overwrites a document type.
func (s *DocumentTypeService) Update(ctx context.Context, actor models.Actor, id string, req dto.DocumentTypeRequest) (*models.DocumentType, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document type payload")
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyDocumentTypeRequest(t, req)
	t.UpdatedBy = actor.UserID
	if err := s.prepare(ctx, t); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, notFoundOr(err, "document type not found", "failed to update document type")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:  models.AuditTypeUpdated,
		Details: fmt.Sprintf("Document Type '%s' updated", t.Name),
	})
	return t, nil
}

// Delete removes a type no document uses.
func (s *DocumentTypeService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.repo.DocumentCount(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count documents for type")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrReferenced, "Cannot delete document type with documents. Please move or delete documents first.")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "document type not found", "failed to delete document type")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditEntry{
		Action:   models.AuditTypeDeleted,
		Severity: models.SeverityMedium,
		Details:  fmt.Sprintf("Document Type '%s' deleted", t.Name),
	})
	return nil
}

// Statistics counts documents per type.
func (s *DocumentTypeService) Statistics(ctx context.Context) ([]models.DocumentTypeStatistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document type statistics")
	}
	return stats, nil
}

// ValidateFile checks a prospective file against the type.
func (s *DocumentTypeService) ValidateFile(ctx context.Context, id, fileName string, size int64) (*models.FileValidation, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return CheckFile(t, fileName, size), nil
}

// CheckFile evaluates extension and size limits plus processing warnings.
func CheckFile(t *models.DocumentType, fileName string, size int64) *models.FileValidation {
	result := &models.FileValidation{IsValid: true, Errors: []string{}, Warnings: []string{}}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if !t.AllowsExtension(ext) {
		result.IsValid = false
		result.Errors = append(result.Errors, fmt.Sprintf("File type '%s' is not allowed for this document type", ext))
	}
	if t.MaxFileSizeMB > 0 && size > t.MaxFileSizeBytes() {
		result.IsValid = false
		result.Errors = append(result.Errors, fmt.Sprintf("File size exceeds maximum allowed size of %d MB", t.MaxFileSizeMB))
	}
	if t.RequiresOCR {
		result.Warnings = append(result.Warnings, warnOCRRequired)
	}
	if t.RequiresEncryption {
		result.Warnings = append(result.Warnings, warnEncryptionRequired)
	}
	return result
}

// Requirements describes what the type demands from uploads.
func (s *DocumentTypeService) Requirements(ctx context.Context, id string) (*models.DocumentTypeRequirements, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := t.Extensions()
	if allowed == nil {
		allowed = []string{}
	}
	return &models.DocumentTypeRequirements{
		AllowedFileTypes:     allowed,
		MaxFileSizeMB:        t.MaxFileSizeMB,
		RequiresOCR:          t.RequiresOCR,
		RequiresEncryption:   t.RequiresEncryption,
		RequiresCompliance:   t.RequiresComplianceCheck,
		RetentionPeriodYears: t.RetentionPeriod,
	}, nil
}

func applyDocumentTypeRequest(t *models.DocumentType, req dto.DocumentTypeRequest) {
	t.Name = strings.TrimSpace(req.Name)
	t.Code = strings.TrimSpace(req.Code)
	t.Description = req.Description
	t.AllowedFileTypes = strings.TrimSpace(req.AllowedFileTypes)
	t.MaxFileSizeMB = req.MaxFileSizeMB
	t.RequiresOCR = req.RequiresOCR
	t.RequiresEncryption = req.RequiresEncryption
	t.RequiresComplianceCheck = req.RequiresComplianceCheck
	if req.RetentionPeriod != nil {
		t.RetentionPeriod = *req.RetentionPeriod
	}
	t.IsActive = boolOr(req.IsActive, t.IsActive)
}

func (s *DocumentTypeService) prepare(ctx context.Context, t *models.DocumentType) error {
	if t.MaxFileSizeMB <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "Max file size must be greater than 0")
	}
	if t.AllowedFileTypes != "" {
		for _, raw := range strings.Split(t.AllowedFileTypes, ",") {
			token := strings.ToLower(strings.TrimSpace(raw))
			if !isAlnum(strings.ReplaceAll(token, ".", "")) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Invalid file type format: %s", token))
			}
		}
	}
	exists, err := s.repo.CodeExists(ctx, t.Code, t.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check document type code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Document Type Code %s already exists", t.Code))
	}
	return nil
}

func isAlnum(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
