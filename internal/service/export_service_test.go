package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/export"
	"github.com/noah-isme/archive-api/pkg/storage"
)

type exportFixture struct {
	svc    *ExportService
	docs   *memDocuments
	audit  *memAuditStore
	rec    *memAudit
	store  *storage.LocalStorage
	signer *storage.SignedURLSigner
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	docs := newMemDocuments(nil)
	docs.docs["d1"] = &models.Document{ID: "d1", DocumentID: "ARCH-1", Title: "Invoice", AccessLevel: models.AccessInternal, CreatedAt: time.Now()}
	auditStore := &memAuditStore{entries: []models.AuditEntry{{Action: models.AuditDocumentCreated, UserID: "u1"}}}
	signer := storage.NewSignedURLSigner("export-secret", time.Minute)
	f := &exportFixture{docs: docs, audit: auditStore, rec: &memAudit{}, store: store, signer: signer}
	f.svc = NewExportService(docs, auditStore, f.rec, store, signer, nil, ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop())
	return f
}

func TestExportServiceExportDocumentsRestrictsByRole(t *testing.T) {
	f := newExportFixture(t)

	res, err := f.svc.ExportDocuments(context.Background(), userActor, dto.ExportDocumentsRequest{DocumentIDs: []string{"d1"}, Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, export.FormatCSV, res.Format)
	assert.Equal(t, 1, res.Rows)
	assert.Contains(t, res.URL, "/api/v1/exports/download?token=")
	assert.Equal(t, "u1", f.docs.lastFilter.RestrictedOwnerOnly)
	assert.Equal(t, []string{"d1"}, f.docs.lastFilter.IDs)
	assert.Equal(t, models.AuditDocumentShared, f.rec.last().Action)

	_, err = f.svc.ExportDocuments(context.Background(), viewerActor, dto.ExportDocumentsRequest{DocumentIDs: []string{"d1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{string(models.AccessConfidential), string(models.AccessRestricted)}, f.docs.lastFilter.HiddenAccessLevels)

	_, err = f.svc.ExportDocuments(context.Background(), userActor, dto.ExportDocumentsRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceExportAuditManagerOnly(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.svc.ExportAudit(context.Background(), userActor, models.AuditFilter{}, "json")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	res, err := f.svc.ExportAudit(context.Background(), managerActor, models.AuditFilter{}, "xlsx")
	require.NoError(t, err)
	assert.Equal(t, 1000, f.audit.lastList.Limit)
	assert.Equal(t, 1, res.Rows)

	file, err := f.svc.Open(res.Token)
	require.NoError(t, err)
	defer file.File.Close()
	assert.Equal(t, export.FormatXLSX.ContentType(), file.ContentType)

	_, err = f.svc.ExportAudit(context.Background(), managerActor, models.AuditFilter{}, "docx")
	require.Error(t, err)
}

func TestExportServiceOpenRejectsForeignTokens(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.svc.Open("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	token, _, err := f.signer.Generate("doc", "documents/d1/file.txt")
	require.NoError(t, err)
	_, err = f.svc.Open(token)
	require.Error(t, err)
	assert.Equal(t, "token mismatch", appErrors.FromError(err).Message)
}

func TestExportServiceCleanup(t *testing.T) {
	f := newExportFixture(t)
	res, err := f.svc.ExportDocuments(context.Background(), managerActor, dto.ExportDocumentsRequest{DocumentIDs: []string{"d1"}})
	require.NoError(t, err)

	removed, err := f.svc.Cleanup(time.Hour)
	require.NoError(t, err)
	assert.Empty(t, removed)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(f.store.Path(res.RelativePath), old, old))
	removed, err = f.svc.Cleanup(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{res.RelativePath}, removed)
}
