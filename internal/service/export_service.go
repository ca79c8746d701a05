package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/export"
)

const exportDir = "exports"

type documentSearcher interface {
	Search(ctx context.Context, f models.DocumentFilter) ([]models.Document, int, error)
}

type auditLister interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error)
}

type exportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(prefix string, ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(format export.Format, data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures a rendered export stored for download.
type ExportResult struct {
	RelativePath string        `json:"-"`
	Token        string        `json:"token"`
	URL          string        `json:"url"`
	Format       export.Format `json:"format"`
	Rows         int           `json:"rows"`
	ExpiresAt    time.Time     `json:"expires_at"`
}

// ExportFile is an opened export ready to stream.
type ExportFile struct {
	File        *os.File
	FileName    string
	ContentType string
}

// ExportService renders document listings and the audit trail and stores the result for signed download.
type ExportService struct {
	documents documentSearcher
	audit     auditLister
	recorder  auditRecorder
	storage   exportFileStorage
	renderer  datasetRenderer
	signer    downloadSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(documents documentSearcher, audit auditLister, recorder auditRecorder, storage exportFileStorage, signer downloadSigner, renderer datasetRenderer, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if renderer == nil {
		renderer = export.NewRegistry()
	}
	return &ExportService{
		documents: documents,
		audit:     audit,
		recorder:  recorder,
		storage:   storage,
		renderer:  renderer,
		signer:    signer,
		validator: validator.New(),
		logger:    logger,
		cfg:       cfg,
	}
}

// ExportDocuments renders the selected documents the actor may see.
func (s *ExportService) ExportDocuments(ctx context.Context, actor models.Actor, req dto.ExportDocumentsRequest) (*ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	filter := models.DocumentFilter{IDs: req.DocumentIDs, Limit: len(req.DocumentIDs)}
	if err := restrictToActor(&filter, actor); err != nil {
		return nil, err
	}
	docs, _, err := s.documents.Search(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load documents for export")
	}
	result, err := s.store(format, "documents", buildDocumentDataset(docs))
	if err != nil {
		return nil, err
	}
	emitAudit(ctx, s.recorder, s.logger, actor, models.AuditEntry{
		Action:   models.AuditDocumentShared,
		Severity: models.SeverityMedium,
		Details:  fmt.Sprintf("Exported %d documents as %s", len(docs), format),
	})
	return result, nil
}

// ExportAudit renders audit entries matching the filter.
func (s *ExportService) ExportAudit(ctx context.Context, actor models.Actor, filter models.AuditFilter, rawFormat string) (*ExportResult, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if filter.Limit <= 0 {
		filter.Limit = 1000
	}
	entries, err := s.audit.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail for export")
	}
	result, err := s.store(format, "audit", buildAuditDataset(entries))
	if err != nil {
		return nil, err
	}
	emitAudit(ctx, s.recorder, s.logger, actor, models.AuditEntry{
		Action:   models.AuditReportGenerated,
		Severity: models.SeverityMedium,
		Details:  fmt.Sprintf("Exported %d audit entries as %s", len(entries), format),
	})
	return result, nil
}

// Open validates an export token and opens the stored file.
func (s *ExportService) Open(token string) (*ExportFile, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	if !strings.HasPrefix(relPath, exportDir+"/") {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	format, _ := export.ParseFormat(strings.TrimPrefix(path.Ext(relPath), "."))
	return &ExportFile{File: file, FileName: path.Base(relPath), ContentType: format.ContentType()}, nil
}

// Cleanup removes exports older than ttl (the configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(exportDir, ttl)
}

func (s *ExportService) store(format export.Format, kind string, data export.Dataset) (*ExportResult, error) {
	payload, err := s.renderer.Render(format, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	id := uuid.NewString()
	filename := path.Join(exportDir, fmt.Sprintf("%s_%s_%s.%s", kind, time.Now().UTC().Format("20060102_150405"), id[:8], format.Extension()))
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	if base == "" {
		base = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download?token=%s", base, token),
		Format:       format,
		Rows:         len(data.Rows),
		ExpiresAt:    expiresAt,
	}, nil
}

func buildDocumentDataset(docs []models.Document) export.Dataset {
	headers := []string{"Document ID", "Title", "Status", "Priority", "Access Level", "Category", "File Name", "File Size", "Encryption", "Created By", "Created At"}
	rows := make([]map[string]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, map[string]string{
			"Document ID":  d.DocumentID,
			"Title":        d.Title,
			"Status":       string(d.Status),
			"Priority":     string(d.Priority),
			"Access Level": string(d.AccessLevel),
			"Category":     d.CategoryID,
			"File Name":    d.FileName,
			"File Size":    strconv.FormatInt(d.FileSize, 10),
			"Encryption":   string(d.EncryptionStatus),
			"Created By":   d.CreatedBy,
			"Created At":   d.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Title: "Archived Documents", Headers: headers, Rows: rows}
}

func buildAuditDataset(entries []models.AuditEntry) export.Dataset {
	headers := []string{"Timestamp", "Action", "User", "Document", "Severity", "Status", "Compliance", "Details"}
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		doc := ""
		if e.DocumentID != nil {
			doc = *e.DocumentID
		}
		rows = append(rows, map[string]string{
			"Timestamp":  e.CreatedAt.UTC().Format(time.RFC3339),
			"Action":     e.Action,
			"User":       e.UserID,
			"Document":   doc,
			"Severity":   string(e.Severity),
			"Status":     string(e.Status),
			"Compliance": strconv.FormatBool(e.ComplianceFlag),
			"Details":    e.Details,
		})
	}
	return export.Dataset{Title: "Archive Audit Trail", Headers: headers, Rows: rows}
}
