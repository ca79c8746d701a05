package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/pkg/crypto"
	"github.com/noah-isme/archive-api/pkg/storage"
)

var (
	managerActor = models.Actor{UserID: "mgr", Email: "mgr@example.com", Role: models.RoleArchiveManager}
	userActor    = models.Actor{UserID: "u1", Email: "u1@example.com", Role: models.RoleArchiveUser}
	viewerActor  = models.Actor{UserID: "v1", Email: "v1@example.com", Role: models.RoleArchiveViewer}
	adminActor   = models.Actor{UserID: "root", Email: "root@example.com", Role: models.RoleSystemManager}
)

type memAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (m *memAudit) Record(ctx context.Context, actor models.Actor, entry models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.UserID = actor.UserID
	if entry.Status == "" {
		entry.Status = models.AuditSuccess
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

func (m *memAudit) last() models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

type memDocuments struct {
	docs        map[string]*models.Document
	versions    *memVersions
	lastFilter  models.DocumentFilter
	ocrUpdates  []models.OCRStatus
	categorized map[string]string
	deleted     []string
}

func newMemDocuments(versions *memVersions) *memDocuments {
	return &memDocuments{docs: map[string]*models.Document{}, versions: versions, categorized: map[string]string{}}
}

func (m *memDocuments) CreateWithInitialVersion(ctx context.Context, doc *models.Document, version *models.DocumentVersion) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	copyDoc := *doc
	m.docs[doc.ID] = &copyDoc
	if m.versions != nil {
		return m.versions.CreateCurrent(ctx, version, doc.CreatedBy)
	}
	return nil
}

func (m *memDocuments) Update(ctx context.Context, doc *models.Document) error {
	if _, ok := m.docs[doc.ID]; !ok {
		return sql.ErrNoRows
	}
	copyDoc := *doc
	m.docs[doc.ID] = &copyDoc
	return nil
}

func (m *memDocuments) UpdateOCR(ctx context.Context, id string, status models.OCRStatus, text string) error {
	doc, ok := m.docs[id]
	if !ok {
		return sql.ErrNoRows
	}
	doc.OCRStatus = status
	doc.OCRText = text
	m.ocrUpdates = append(m.ocrUpdates, status)
	return nil
}

func (m *memDocuments) UpdateCategory(ctx context.Context, id, categoryID, updatedBy string) error {
	doc, ok := m.docs[id]
	if !ok {
		return sql.ErrNoRows
	}
	doc.CategoryID = categoryID
	doc.SubcategoryID = nil
	m.categorized[id] = categoryID
	return nil
}

func (m *memDocuments) ListUncategorized(ctx context.Context, fallbackCategoryID string) ([]models.Document, error) {
	var out []models.Document
	for _, d := range m.docs {
		if d.CategoryID == "" || d.CategoryID == fallbackCategoryID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDocuments) GetByID(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (m *memDocuments) DocumentIDExists(ctx context.Context, documentID string) (bool, error) {
	for _, d := range m.docs {
		if d.DocumentID == documentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDocuments) Delete(ctx context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.docs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memDocuments) Search(ctx context.Context, f models.DocumentFilter) ([]models.Document, int, error) {
	m.lastFilter = f
	out := make([]models.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memDocuments) Statistics(ctx context.Context) (*models.DocumentStatistics, error) {
	return &models.DocumentStatistics{Total: len(m.docs)}, nil
}

type memVersions struct {
	items map[string]*models.DocumentVersion
	seq   int
}

func newMemVersions() *memVersions {
	return &memVersions{items: map[string]*models.DocumentVersion{}}
}

func (m *memVersions) CreateCurrent(ctx context.Context, v *models.DocumentVersion, updatedBy string) error {
	max := 0
	for _, existing := range m.items {
		if existing.DocumentID != v.DocumentID {
			continue
		}
		existing.IsCurrent = false
		if existing.VersionNumber > max {
			max = existing.VersionNumber
		}
	}
	m.seq++
	if v.ID == "" {
		v.ID = fmt.Sprintf("ver-%d", m.seq)
	}
	v.VersionNumber = max + 1
	v.IsCurrent = true
	copyV := *v
	m.items[v.ID] = &copyV
	return nil
}

func (m *memVersions) GetByID(ctx context.Context, id string) (*models.DocumentVersion, error) {
	v, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyV := *v
	return &copyV, nil
}

func (m *memVersions) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	var out []models.DocumentVersion
	for _, v := range m.items {
		if v.DocumentID == documentID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (m *memVersions) UpdateFile(ctx context.Context, v *models.DocumentVersion) error {
	existing, ok := m.items[v.ID]
	if !ok {
		return sql.ErrNoRows
	}
	existing.FilePath = v.FilePath
	existing.FileSize = v.FileSize
	existing.EncryptionStatus = v.EncryptionStatus
	return nil
}

func (m *memVersions) DeleteNonCurrent(ctx context.Context, id string) error {
	v, ok := m.items[id]
	if !ok || v.IsCurrent {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func (m *memVersions) current(documentID string) *models.DocumentVersion {
	for _, v := range m.items {
		if v.DocumentID == documentID && v.IsCurrent {
			return v
		}
	}
	return nil
}

type memTypes map[string]*models.DocumentType

func (m memTypes) GetByID(ctx context.Context, id string) (*models.DocumentType, error) {
	t, ok := m[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyT := *t
	return &copyT, nil
}

type memCategories map[string]*models.Category

func (m memCategories) GetByID(ctx context.Context, id string) (*models.Category, error) {
	c, ok := m[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyC := *c
	return &copyC, nil
}

func (m memCategories) GetByCode(ctx context.Context, code string) (*models.Category, error) {
	for _, c := range m {
		if c.Code == code {
			copyC := *c
			return &copyC, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memSubcategories map[string]*models.Subcategory

func (m memSubcategories) GetByID(ctx context.Context, id string) (*models.Subcategory, error) {
	s, ok := m[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyS := *s
	return &copyS, nil
}

func newTestVault(t *testing.T, withKey bool) (*FileVault, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	if !withKey {
		return NewFileVault(store, nil), store
	}
	sealer, err := crypto.NewSealer("test-encryption-secret")
	require.NoError(t, err)
	return NewFileVault(store, sealer), store
}
