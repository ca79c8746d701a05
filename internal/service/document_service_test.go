package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/jobs"
	"github.com/noah-isme/archive-api/pkg/storage"
)

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeSubmitter struct {
	jobType string
	payload interface{}
	err     error
}

func (f *fakeSubmitter) Submit(jobType string, payload interface{}) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.jobType = jobType
	f.payload = payload
	return "job-1", nil
}

type fakeCategorizer struct {
	calls  []string
	result *models.CategorizationResult
}

func (f *fakeCategorizer) AutoCategorize(ctx context.Context, actor models.Actor, documentID string) (*models.CategorizationResult, error) {
	f.calls = append(f.calls, documentID)
	if f.result == nil {
		return &models.CategorizationResult{DocumentID: documentID}, nil
	}
	return f.result, nil
}

type documentFixture struct {
	svc      *DocumentService
	docs     *memDocuments
	versions *memVersions
	vault    *FileVault
	audit    *memAudit
	ocr      *fakeExtractor
	jobs     *fakeSubmitter
	rules    *fakeCategorizer
}

func newDocumentFixture(t *testing.T, withKey bool, cfg DocumentServiceConfig) *documentFixture {
	t.Helper()
	vault, _ := newTestVault(t, withKey)
	versions := newMemVersions()
	docs := newMemDocuments(versions)
	f := &documentFixture{
		docs:     docs,
		versions: versions,
		vault:    vault,
		audit:    &memAudit{},
		ocr:      &fakeExtractor{text: "invoice number 42"},
		jobs:     &fakeSubmitter{},
		rules:    &fakeCategorizer{},
	}
	f.svc = NewDocumentService(DocumentDeps{
		Documents: docs,
		Versions:  versions,
		Categories: memCategories{
			"cat-fin": {ID: "cat-fin", Name: "Financial", Code: "FIN", IsActive: true},
			"cat-leg": {ID: "cat-leg", Name: "Legal", Code: "LEG", IsActive: true},
			"cat-old": {ID: "cat-old", Name: "Old", Code: "OLD", IsActive: false},
		},
		Subcategories: memSubcategories{
			"sub-inv": {ID: "sub-inv", Name: "Invoices", CategoryID: "cat-fin", IsActive: true},
			"sub-con": {ID: "sub-con", Name: "Contracts", CategoryID: "cat-leg", IsActive: true},
		},
		Types: memTypes{
			"type-inv": {ID: "type-inv", Name: "Invoice", AllowedFileTypes: "pdf,txt", MaxFileSizeMB: 1, RetentionPeriod: 7, IsActive: true},
			"type-con": {ID: "type-con", Name: "Contract", AllowedFileTypes: "pdf,txt", RequiresEncryption: true, RetentionPeriod: 10, IsActive: true},
			"type-off": {ID: "type-off", Name: "Retired", IsActive: false},
		},
		Vault:  vault,
		Signer: storage.NewSignedURLSigner("download-secret", time.Minute),
		OCR:    f.ocr,
		Jobs:   f.jobs,
		Rules:  f.rules,
		Audit:  f.audit,
		Logger: zap.NewNop(),
	}, cfg)
	return f
}

func uploadMeta(title string) dto.UploadDocumentRequest {
	return dto.UploadDocumentRequest{Title: title, DocumentTypeID: "type-inv", CategoryID: "cat-fin"}
}

func textFile(name, content string) UploadedFile {
	return UploadedFile{FileName: name, Data: []byte(content)}
}

func TestDocumentServiceUploadAppliesDefaults(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})

	doc, err := f.svc.Upload(context.Background(), userActor, uploadMeta("  Invoice March  "), textFile("march.txt", "total 100"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.DocumentID, "ARCH"))
	assert.Len(t, doc.DocumentID, len("ARCH")+14+4)
	assert.Equal(t, "Invoice March", doc.Title)
	assert.Equal(t, models.DocumentDraft, doc.Status)
	assert.Equal(t, models.PriorityMedium, doc.Priority)
	assert.Equal(t, models.AccessInternal, doc.AccessLevel)
	assert.Equal(t, 7, doc.RetentionPeriod)
	assert.Equal(t, models.NotEncrypted, doc.EncryptionStatus)
	assert.Equal(t, HashBytes([]byte("total 100")), doc.FileHash)
	assert.Contains(t, doc.MimeType, "text/plain")

	v := f.versions.current(doc.ID)
	require.NotNil(t, v)
	assert.Equal(t, 1, v.VersionNumber)
	assert.Equal(t, "Initial version", v.VersionNotes)
	assert.Equal(t, []string{models.AuditDocumentCreated}, f.audit.actions())
}

func TestDocumentServiceUploadEncryptsSensitiveLevels(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{AutoEncrypt: true})
	meta := uploadMeta("Board minutes")
	meta.AccessLevel = models.AccessConfidential

	doc, err := f.svc.Upload(context.Background(), managerActor, meta, textFile("minutes.txt", "secret"))
	require.NoError(t, err)
	assert.Equal(t, models.Encrypted, doc.EncryptionStatus)
	assert.True(t, strings.HasSuffix(doc.FilePath, ".enc"))
	assert.Contains(t, f.audit.actions(), models.AuditEncryptionApplied)

	plain, err := f.vault.Read(doc.ID, doc.FilePath, true)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(plain))
}

func TestDocumentServiceUploadMarksEncryptionFailureWithoutKey(t *testing.T) {
	f := newDocumentFixture(t, false, DocumentServiceConfig{})
	meta := uploadMeta("Lease")
	meta.DocumentTypeID = "type-con"

	doc, err := f.svc.Upload(context.Background(), managerActor, meta, textFile("lease.txt", "terms"))
	require.NoError(t, err)
	assert.Equal(t, models.EncryptionFailed, doc.EncryptionStatus)
	assert.Equal(t, 10, doc.RetentionPeriod)
}

func TestDocumentServiceUploadValidation(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{MaxFileSize: 16})

	cases := []struct {
		name string
		meta func() dto.UploadDocumentRequest
		file UploadedFile
		code string
	}{
		{"empty file", func() dto.UploadDocumentRequest { return uploadMeta("a") }, textFile("a.txt", ""), appErrors.ErrValidation.Code},
		{"too large", func() dto.UploadDocumentRequest { return uploadMeta("a") }, textFile("a.txt", strings.Repeat("x", 17)), appErrors.ErrValidation.Code},
		{"inactive type", func() dto.UploadDocumentRequest {
			m := uploadMeta("a")
			m.DocumentTypeID = "type-off"
			return m
		}, textFile("a.txt", "x"), appErrors.ErrValidation.Code},
		{"inactive category", func() dto.UploadDocumentRequest {
			m := uploadMeta("a")
			m.CategoryID = "cat-old"
			return m
		}, textFile("a.txt", "x"), appErrors.ErrValidation.Code},
		{"subcategory outside category", func() dto.UploadDocumentRequest {
			m := uploadMeta("a")
			m.SubcategoryID = "sub-con"
			return m
		}, textFile("a.txt", "x"), appErrors.ErrValidation.Code},
		{"extension not allowed", func() dto.UploadDocumentRequest { return uploadMeta("a") }, textFile("a.exe", "x"), appErrors.ErrValidation.Code},
		{"unknown category", func() dto.UploadDocumentRequest {
			m := uploadMeta("a")
			m.CategoryID = "nope"
			return m
		}, textFile("a.txt", "x"), appErrors.ErrNotFound.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Upload(context.Background(), userActor, tc.meta(), tc.file)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
	assert.Empty(t, f.docs.docs)
}

func TestDocumentServiceUploadRejectsDuplicateDocumentID(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})
	meta := uploadMeta("first")
	meta.DocumentID = "INV-001"
	_, err := f.svc.Upload(context.Background(), userActor, meta, textFile("a.txt", "x"))
	require.NoError(t, err)

	_, err = f.svc.Upload(context.Background(), userActor, meta, textFile("b.txt", "y"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceUploadRunsOCRThenCategorizes(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{AutoCategorize: true})
	f.rules.result = &models.CategorizationResult{Matched: true, Changed: true, CategoryID: "cat-leg"}
	meta := uploadMeta("Scanned")
	meta.RunOCR = true

	doc, err := f.svc.Upload(context.Background(), userActor, meta, textFile("scan.txt", "raw"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.ocr.calls)
	assert.Equal(t, models.OCRCompleted, doc.OCRStatus)
	assert.Equal(t, "invoice number 42", f.docs.docs[doc.ID].OCRText)
	assert.Equal(t, []models.OCRStatus{models.OCRProcessing, models.OCRCompleted}, f.docs.ocrUpdates)
	assert.Equal(t, []string{doc.ID}, f.rules.calls)
	assert.Equal(t, "cat-leg", doc.CategoryID)
}

func TestDocumentServiceUploadQueuesOCRWhenAsync(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{AutoCategorize: true, OCRAsync: true})
	meta := uploadMeta("Scanned")
	meta.RunOCR = true

	doc, err := f.svc.Upload(context.Background(), userActor, meta, textFile("scan.txt", "raw"))
	require.NoError(t, err)
	assert.Equal(t, jobs.TypeOCR, f.jobs.jobType)
	assert.Equal(t, doc.ID, f.jobs.payload)
	assert.Zero(t, f.ocr.calls)
	assert.Empty(t, f.rules.calls)
}

func TestDocumentServiceUploadFallsBackToInlineOCR(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{OCRAsync: true})
	f.jobs.err = errors.New("queue full")
	meta := uploadMeta("Scanned")
	meta.RunOCR = true

	doc, err := f.svc.Upload(context.Background(), userActor, meta, textFile("scan.txt", "raw"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.ocr.calls)
	assert.Equal(t, models.OCRCompleted, doc.OCRStatus)
}

func TestDocumentServiceProcessOCRFailure(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})
	doc, err := f.svc.Upload(context.Background(), userActor, uploadMeta("a"), textFile("a.txt", "x"))
	require.NoError(t, err)
	f.ocr.err = errors.New("tesseract crashed")

	_, err = f.svc.ProcessOCR(context.Background(), userActor, doc.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnavailable.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.OCRFailed, f.docs.docs[doc.ID].OCRStatus)
	assert.Equal(t, models.AuditFailed, f.audit.last().Status)
}

func TestDocumentServiceProcessOCRChecksAccessLevel(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})
	meta := uploadMeta("Private scan")
	meta.AccessLevel = models.AccessRestricted
	doc, err := f.svc.Upload(context.Background(), userActor, meta, textFile("p.txt", "x"))
	require.NoError(t, err)
	calls := f.ocr.calls

	other := models.Actor{UserID: "u2", Role: models.RoleArchiveUser}
	_, err = f.svc.ProcessOCR(context.Background(), other, doc.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, calls, f.ocr.calls)
}

func TestDocumentServiceBulkUpload(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})
	items := []BulkUploadItem{
		{Meta: uploadMeta("ok"), File: textFile("ok.txt", "x")},
		{Meta: uploadMeta("bad"), File: textFile("bad.exe", "x")},
	}

	res, err := f.svc.BulkUpload(context.Background(), userActor, items)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.Equal(t, "bad.exe", res.Errors[0].FileName)
}

func TestDocumentServiceGetChecksAccessLevel(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})
	meta := uploadMeta("Private")
	meta.AccessLevel = models.AccessRestricted
	doc, err := f.svc.Upload(context.Background(), userActor, meta, textFile("p.txt", "x"))
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), viewerActor, doc.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	other := models.Actor{UserID: "u2", Role: models.RoleArchiveUser}
	_, err = f.svc.Get(context.Background(), other, doc.ID)
	require.Error(t, err)

	detail, err := f.svc.Get(context.Background(), userActor, doc.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Versions, 1)
	assert.NotNil(t, detail.Relationships)
	assert.Equal(t, doc.CreatedAt.AddDate(7, 0, 0), detail.RetentionUntil)
	assert.Equal(t, models.AuditDocumentAccessed, f.audit.last().Action)
}

func TestDocumentServiceSearchRestrictsByRole(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})

	_, err := f.svc.Search(context.Background(), userActor, dto.SearchDocumentsRequest{Query: "invoice"})
	require.NoError(t, err)
	assert.Equal(t, "u1", f.docs.lastFilter.RestrictedOwnerOnly)
	assert.Equal(t, "invoice", f.docs.lastFilter.Query)

	res, err := f.svc.Search(context.Background(), viewerActor, dto.SearchDocumentsRequest{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Confidential", "Restricted"}, f.docs.lastFilter.HiddenAccessLevels)
	assert.Equal(t, 20, res.Limit)
	assert.NotNil(t, res.Documents)

	_, err = f.svc.Search(context.Background(), managerActor, dto.SearchDocumentsRequest{})
	require.NoError(t, err)
	assert.Empty(t, f.docs.lastFilter.RestrictedOwnerOnly)
	assert.Empty(t, f.docs.lastFilter.HiddenAccessLevels)

	_, err = f.svc.Search(context.Background(), models.Actor{UserID: "x"}, dto.SearchDocumentsRequest{})
	require.Error(t, err)
}

func TestDocumentServiceUpdateEncryptsWhenLevelRaised(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{AutoEncrypt: true})
	doc, err := f.svc.Upload(context.Background(), userActor, uploadMeta("Plan"), textFile("plan.txt", "roadmap"))
	require.NoError(t, err)

	level := models.AccessConfidential
	title := "Plan"
	updated, err := f.svc.Update(context.Background(), userActor, doc.ID, dto.UpdateDocumentRequest{AccessLevel: &level, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, models.Encrypted, updated.EncryptionStatus)
	assert.Contains(t, f.audit.actions(), models.AuditDocumentUpdated)

	var details string
	for _, e := range f.audit.entries {
		if e.Action == models.AuditDocumentUpdated {
			details = e.Details
		}
	}
	assert.Equal(t, "Updated fields: access_level", details)

	v := f.versions.current(doc.ID)
	assert.Equal(t, models.Encrypted, v.EncryptionStatus)
	plain, err := f.vault.Read(doc.ID, v.FilePath, true)
	require.NoError(t, err)
	assert.Equal(t, "roadmap", string(plain))
}

func TestDocumentServiceDeleteRespectsRetention(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})
	doc, err := f.svc.Upload(context.Background(), userActor, uploadMeta("Kept"), textFile("kept.txt", "x"))
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), userActor, doc.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = f.svc.Delete(context.Background(), managerActor, doc.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrRetentionActive.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Document is under retention until "+doc.CreatedAt.AddDate(7, 0, 0).Format("2006-01-02"))

	require.NoError(t, f.svc.Delete(context.Background(), adminActor, doc.ID))
	assert.Equal(t, []string{doc.ID}, f.docs.deleted)
	assert.False(t, f.vault.Exists(doc.FilePath))
	last := f.audit.last()
	assert.Equal(t, models.AuditDocumentDeleted, last.Action)
	assert.Equal(t, models.SeverityHigh, last.Severity)
}

func TestDocumentServiceDeleteAfterRetention(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})
	doc, err := f.svc.Upload(context.Background(), userActor, uploadMeta("Old"), textFile("old.txt", "x"))
	require.NoError(t, err)
	f.svc.now = func() time.Time { return doc.CreatedAt.AddDate(8, 0, 0) }

	require.NoError(t, f.svc.Delete(context.Background(), managerActor, doc.ID))
}

func TestDocumentServiceDownloadRoundTrip(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{APIPrefix: "/api/v1/"})
	meta := uploadMeta("Contract")
	meta.DocumentTypeID = "type-con"
	doc, err := f.svc.Upload(context.Background(), managerActor, meta, textFile("contract.txt", "signed"))
	require.NoError(t, err)
	require.Equal(t, models.Encrypted, doc.EncryptionStatus)

	link, err := f.svc.DownloadURL(context.Background(), managerActor, doc.ID, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "/api/v1/documents/download?token="))
	assert.Equal(t, models.AuditDocumentDownloaded, f.audit.last().Action)

	token := strings.TrimPrefix(link.URL, "/api/v1/documents/download?token=")
	file, err := f.svc.Download(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "signed", string(file.Data))
	assert.Equal(t, "contract.txt", file.FileName)

	_, err = f.svc.Download(context.Background(), token+"0")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceDownloadURLForOtherDocumentVersion(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})
	a, err := f.svc.Upload(context.Background(), managerActor, uploadMeta("A"), textFile("a.txt", "a"))
	require.NoError(t, err)
	b, err := f.svc.Upload(context.Background(), managerActor, uploadMeta("B"), textFile("b.txt", "b"))
	require.NoError(t, err)

	_, err = f.svc.DownloadURL(context.Background(), managerActor, a.ID, f.versions.current(b.ID).ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDocumentServiceEncryptDecrypt(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})
	doc, err := f.svc.Upload(context.Background(), userActor, uploadMeta("Doc"), textFile("doc.txt", "body"))
	require.NoError(t, err)
	oldPath := doc.FilePath

	encrypted, err := f.svc.Encrypt(context.Background(), userActor, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Encrypted, encrypted.EncryptionStatus)
	assert.NotEqual(t, oldPath, encrypted.FilePath)
	assert.False(t, f.vault.Exists(oldPath))

	_, err = f.svc.Encrypt(context.Background(), userActor, doc.ID)
	require.Error(t, err)

	_, err = f.svc.Decrypt(context.Background(), userActor, doc.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	decrypted, err := f.svc.Decrypt(context.Background(), managerActor, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotEncrypted, decrypted.EncryptionStatus)
	data, err := f.vault.Read(doc.ID, decrypted.FilePath, false)
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))
	assert.Equal(t, models.AuditDecryptionApplied, f.audit.last().Action)
}

func TestDocumentServiceEncryptWithoutKey(t *testing.T) {
	f := newDocumentFixture(t, false, DocumentServiceConfig{})
	doc, err := f.svc.Upload(context.Background(), userActor, uploadMeta("Doc"), textFile("doc.txt", "body"))
	require.NoError(t, err)

	_, err = f.svc.Encrypt(context.Background(), userActor, doc.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerateDocumentID(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	id := generateDocumentID(now)
	assert.True(t, strings.HasPrefix(id, "ARCH20240305140709"))
	assert.Len(t, id, 22)
}
