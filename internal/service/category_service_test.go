package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
)

type memCategoryRepo struct {
	items     map[string]*models.Category
	usage     map[string]models.CategoryUsage
	counts    map[string]int
	listCalls int

	lastDocFilter models.DocumentFilter
}

func newMemCategoryRepo(cats ...models.Category) *memCategoryRepo {
	repo := &memCategoryRepo{items: map[string]*models.Category{}, usage: map[string]models.CategoryUsage{}, counts: map[string]int{}}
	for i := range cats {
		c := cats[i]
		repo.items[c.ID] = &c
	}
	return repo
}

func (m *memCategoryRepo) Create(ctx context.Context, c *models.Category) error {
	c.ID = fmt.Sprintf("cat-%d", len(m.items)+1)
	copyC := *c
	m.items[c.ID] = &copyC
	return nil
}

func (m *memCategoryRepo) Update(ctx context.Context, c *models.Category) error {
	if _, ok := m.items[c.ID]; !ok {
		return sql.ErrNoRows
	}
	copyC := *c
	m.items[c.ID] = &copyC
	return nil
}

func (m *memCategoryRepo) GetByID(ctx context.Context, id string) (*models.Category, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyC := *c
	return &copyC, nil
}

func (m *memCategoryRepo) GetByCode(ctx context.Context, code string) (*models.Category, error) {
	for _, c := range m.items {
		if c.Code == code {
			copyC := *c
			return &copyC, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memCategoryRepo) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	for _, c := range m.items {
		if c.Code == code && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCategoryRepo) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	m.listCalls++
	out := make([]models.Category, 0, len(m.items))
	for _, c := range m.items {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memCategoryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func (m *memCategoryRepo) Usage(ctx context.Context, id string) (models.CategoryUsage, error) {
	return m.usage[id], nil
}

func (m *memCategoryRepo) DocumentCounts(ctx context.Context) (map[string]int, error) {
	return m.counts, nil
}

func (m *memCategoryRepo) Statistics(ctx context.Context, categoryID string) ([]models.CategoryStatistics, error) {
	return []models.CategoryStatistics{}, nil
}

func (m *memCategoryRepo) Documents(ctx context.Context, f models.DocumentFilter) ([]models.DocumentSummary, int, error) {
	m.lastDocFilter = f
	return []models.DocumentSummary{}, 0, nil
}

type memCacheRepo struct {
	data map[string][]byte
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{data: map[string][]byte{}}
}

func (m *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func strRef(v string) *string { return &v }

func TestCategoryServiceCreateDefaults(t *testing.T) {
	repo := newMemCategoryRepo()
	audit := &memAudit{}
	svc := NewCategoryService(repo, audit, nil, nil, zap.NewNop())

	cat, err := svc.Create(context.Background(), managerActor, dto.CategoryRequest{Name: " Human Resources "})
	require.NoError(t, err)
	assert.Equal(t, "Human Resources", cat.Name)
	assert.Equal(t, "human_resources", cat.Code)
	assert.Equal(t, "#3498db", cat.Color)
	assert.True(t, cat.IsActive)
	assert.Equal(t, models.AuditCategoryCreated, audit.last().Action)

	_, err = svc.Create(context.Background(), managerActor, dto.CategoryRequest{Name: "Human resources"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), userActor, dto.CategoryRequest{Name: "X"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCategoryServiceUpdateRejectsCycles(t *testing.T) {
	repo := newMemCategoryRepo(
		models.Category{ID: "root", Name: "Root", Code: "ROOT", IsActive: true},
		models.Category{ID: "mid", Name: "Mid", Code: "MID", ParentID: strRef("root"), IsActive: true},
		models.Category{ID: "leaf", Name: "Leaf", Code: "LEAF", ParentID: strRef("mid"), IsActive: true},
	)
	svc := NewCategoryService(repo, nil, nil, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Update(ctx, managerActor, "root", dto.CategoryRequest{Name: "Root", ParentID: strRef("leaf")})
	require.Error(t, err)
	assert.Equal(t, "Circular reference detected in category hierarchy", appErrors.FromError(err).Message)

	_, err = svc.Update(ctx, managerActor, "mid", dto.CategoryRequest{Name: "Mid", ParentID: strRef("mid")})
	require.Error(t, err)
	assert.Equal(t, "Category cannot be its own parent", appErrors.FromError(err).Message)

	_, err = svc.Update(ctx, managerActor, "leaf", dto.CategoryRequest{Name: "Leaf", ParentID: strRef("ghost")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	moved, err := svc.Update(ctx, managerActor, "leaf", dto.CategoryRequest{Name: "Leaf", ParentID: strRef("root")})
	require.NoError(t, err)
	assert.Equal(t, "root", *moved.ParentID)
	assert.Equal(t, "LEAF", moved.Code)
}

func TestCategoryServiceDeleteBlockedWhenReferenced(t *testing.T) {
	repo := newMemCategoryRepo(models.Category{ID: "fin", Name: "Financial", Code: "FIN", IsActive: true})
	svc := NewCategoryService(repo, nil, nil, nil, zap.NewNop())

	repo.usage["fin"] = models.CategoryUsage{Documents: 3}
	err := svc.Delete(context.Background(), managerActor, "fin")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrReferenced.Code, appErr.Code)
	assert.Equal(t, "Cannot delete category with 3 associated documents", appErr.Message)

	repo.usage["fin"] = models.CategoryUsage{Children: 1}
	err = svc.Delete(context.Background(), managerActor, "fin")
	require.Error(t, err)
	assert.Equal(t, "Cannot delete category with child categories", appErrors.FromError(err).Message)

	repo.usage["fin"] = models.CategoryUsage{}
	require.NoError(t, svc.Delete(context.Background(), managerActor, "fin"))
	assert.Empty(t, repo.items)
}

func TestCategoryServiceTreeAndHierarchy(t *testing.T) {
	repo := newMemCategoryRepo(
		models.Category{ID: "root", Name: "Root", Code: "ROOT", IsActive: true},
		models.Category{ID: "b", Name: "Beta", Code: "B", ParentID: strRef("root"), IsActive: true},
		models.Category{ID: "a", Name: "Alpha", Code: "A", ParentID: strRef("root"), IsActive: true},
		models.Category{ID: "orphan", Name: "Orphan", Code: "O", ParentID: strRef("missing"), IsActive: true},
	)
	repo.counts["a"] = 4
	cacheRepo := newMemCacheRepo()
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewCategoryService(repo, nil, cacheSvc, nil, zap.NewNop())
	ctx := context.Background()

	tree, err := svc.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Orphan", tree[0].Name)
	root := tree[1]
	require.Len(t, root.Children, 2)
	assert.Equal(t, "Alpha", root.Children[0].Name)
	assert.Equal(t, 4, root.Children[0].DocumentCount)

	_, err = svc.Tree(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	_, err = svc.Create(ctx, managerActor, dto.CategoryRequest{Name: "Gamma"})
	require.NoError(t, err)
	_, err = svc.Tree(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)

	path, err := svc.Hierarchy(ctx, "a")
	require.NoError(t, err)
	require.Len(t, path, 2)
	assert.Equal(t, "root", path[0].ID)
	assert.Equal(t, "a", path[1].ID)
}

func TestCategoryServiceDocumentsRestrictsByRole(t *testing.T) {
	repo := newMemCategoryRepo(models.Category{ID: "fin", Name: "Financial", Code: "FIN", IsActive: true})
	svc := NewCategoryService(repo, nil, nil, nil, zap.NewNop())
	ctx := context.Background()

	_, _, err := svc.Documents(ctx, viewerActor, "fin", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "fin", repo.lastDocFilter.CategoryID)
	assert.Equal(t, 20, repo.lastDocFilter.Limit)
	assert.ElementsMatch(t, []string{"Confidential", "Restricted"}, repo.lastDocFilter.HiddenAccessLevels)

	_, _, err = svc.Documents(ctx, userActor, "fin", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, "u1", repo.lastDocFilter.RestrictedOwnerOnly)
	assert.Empty(t, repo.lastDocFilter.HiddenAccessLevels)

	_, _, err = svc.Documents(ctx, managerActor, "fin", 5, 10)
	require.NoError(t, err)
	assert.Empty(t, repo.lastDocFilter.RestrictedOwnerOnly)
	assert.Empty(t, repo.lastDocFilter.HiddenAccessLevels)

	_, _, err = svc.Documents(ctx, models.Actor{UserID: "x"}, "fin", 5, 10)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCategoryServiceTreeKeepsStoredCycle(t *testing.T) {
	repo := newMemCategoryRepo(
		models.Category{ID: "x", Name: "X", Code: "X", ParentID: strRef("y"), IsActive: true},
		models.Category{ID: "y", Name: "Y", Code: "Y", ParentID: strRef("x"), IsActive: true},
		models.Category{ID: "z", Name: "Z", Code: "Z", ParentID: strRef("x"), IsActive: true},
	)
	svc := NewCategoryService(repo, nil, nil, nil, zap.NewNop())

	tree, err := svc.Tree(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "X", tree[0].Name)
	assert.Equal(t, "Y", tree[1].Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Z", tree[0].Children[0].Name)
	assert.Empty(t, tree[1].Children)
}

func TestCategoryServiceHierarchyDetectsStoredCycle(t *testing.T) {
	repo := newMemCategoryRepo(
		models.Category{ID: "x", Name: "X", Code: "X", ParentID: strRef("y")},
		models.Category{ID: "y", Name: "Y", Code: "Y", ParentID: strRef("x")},
	)
	svc := NewCategoryService(repo, nil, nil, nil, zap.NewNop())

	_, err := svc.Hierarchy(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
