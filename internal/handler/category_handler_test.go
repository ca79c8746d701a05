package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/middleware"
	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
)

type categoryServiceStub struct {
	activeOnly bool
	createReq  dto.CategoryRequest
	createErr  error
	deleteErr  error
	docLimit   int
	docOffset  int
	docActor   models.Actor
}

func (s *categoryServiceStub) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	s.activeOnly = activeOnly
	return []models.Category{{ID: "cat-1", Name: "Finance"}}, nil
}

func (s *categoryServiceStub) Get(ctx context.Context, id string) (*models.Category, error) {
	return &models.Category{ID: id}, nil
}

func (s *categoryServiceStub) Create(ctx context.Context, actor models.Actor, req dto.CategoryRequest) (*models.Category, error) {
	s.createReq = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Category{ID: "cat-new", Name: req.Name, Code: "FIN", IsActive: true}, nil
}

func (s *categoryServiceStub) Update(ctx context.Context, actor models.Actor, id string, req dto.CategoryRequest) (*models.Category, error) {
	return &models.Category{ID: id, Name: req.Name}, nil
}

func (s *categoryServiceStub) Delete(ctx context.Context, actor models.Actor, id string) error {
	return s.deleteErr
}

func (s *categoryServiceStub) Tree(ctx context.Context) ([]*models.CategoryNode, error) {
	child := &models.CategoryNode{Category: models.Category{ID: "cat-2", Name: "Invoices"}, DocumentCount: 3}
	return []*models.CategoryNode{{Category: models.Category{ID: "cat-1", Name: "Finance"}, Children: []*models.CategoryNode{child}}}, nil
}

func (s *categoryServiceStub) Hierarchy(ctx context.Context, id string) ([]models.CategoryPathItem, error) {
	return []models.CategoryPathItem{{ID: "cat-1", Name: "Finance"}, {ID: id, Name: "Invoices"}}, nil
}

func (s *categoryServiceStub) Statistics(ctx context.Context, id string) ([]models.CategoryStatistics, error) {
	return nil, nil
}

func (s *categoryServiceStub) Documents(ctx context.Context, actor models.Actor, id string, limit, offset int) ([]models.DocumentSummary, int, error) {
	s.docActor = actor
	s.docLimit = limit
	s.docOffset = offset
	return []models.DocumentSummary{{ID: "doc-1"}}, 1, nil
}

type subcategoryServiceStub struct {
	createReq dto.SubcategoryRequest
}

func (s *subcategoryServiceStub) Get(ctx context.Context, id string) (*models.Subcategory, error) {
	return &models.Subcategory{ID: id}, nil
}

func (s *subcategoryServiceStub) ListByCategory(ctx context.Context, categoryID string) ([]models.SubcategoryWithCount, error) {
	return []models.SubcategoryWithCount{}, nil
}

func (s *subcategoryServiceStub) Create(ctx context.Context, actor models.Actor, req dto.SubcategoryRequest) (*models.Subcategory, error) {
	s.createReq = req
	return &models.Subcategory{ID: "sub-1", Name: req.Name, CategoryID: req.CategoryID}, nil
}

func (s *subcategoryServiceStub) Update(ctx context.Context, actor models.Actor, id string, req dto.SubcategoryRequest) (*models.Subcategory, error) {
	return &models.Subcategory{ID: id}, nil
}

func (s *subcategoryServiceStub) Delete(ctx context.Context, actor models.Actor, id string) error {
	return nil
}

func (s *subcategoryServiceStub) Statistics(ctx context.Context) ([]models.SubcategoryStatistics, error) {
	return nil, nil
}

func managerClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "mgr-1", Email: "manager@example.com", Role: models.RoleArchiveManager}
}

func TestCategoryHandlerListActiveOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &categoryServiceStub{}
	handler := NewCategoryHandler(stub, &subcategoryServiceStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/categories?active=true", nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, stub.activeOnly)
}

func TestCategoryHandlerTree(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCategoryHandler(&categoryServiceStub{}, &subcategoryServiceStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/categories/tree", nil)

	handler.Tree(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []models.CategoryNode `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Len(t, resp.Data[0].Children, 1)
	assert.Equal(t, 3, resp.Data[0].Children[0].DocumentCount)
}

func TestCategoryHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &categoryServiceStub{}
	handler := NewCategoryHandler(stub, &subcategoryServiceStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/categories", bytes.NewBufferString(`{"name":"Finance","color":"#1E40AF"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, managerClaims())

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Finance", stub.createReq.Name)
	assert.Equal(t, "#1E40AF", stub.createReq.Color)
	assert.Contains(t, w.Body.String(), `"code":"FIN"`)
}

func TestCategoryHandlerCreateDuplicateName(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCategoryHandler(&categoryServiceStub{createErr: appErrors.Clone(appErrors.ErrConflict, "category name already exists")}, &subcategoryServiceStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/categories", bytes.NewBufferString(`{"name":"Finance"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, managerClaims())

	handler.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCategoryHandlerDeleteReferenced(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCategoryHandler(&categoryServiceStub{deleteErr: appErrors.Clone(appErrors.ErrReferenced, "category has documents")}, &subcategoryServiceStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/categories/cat-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "cat-1"}}
	c.Set(middleware.ContextUserKey, managerClaims())

	handler.Delete(c)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrReferenced.Code)
}

func TestCategoryHandlerDocumentsDefaultsLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &categoryServiceStub{}
	handler := NewCategoryHandler(stub, &subcategoryServiceStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/categories/cat-1/documents?limit=0&offset=-5", nil)
	c.Params = gin.Params{{Key: "id", Value: "cat-1"}}
	c.Set(middleware.ContextUserKey, writerClaims())

	handler.Documents(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultCategoryDocumentsLimit, stub.docLimit)
	assert.Equal(t, 0, stub.docOffset)
	assert.Equal(t, models.RoleArchiveUser, stub.docActor.Role)
}

func TestCategoryHandlerCreateSubcategory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	subs := &subcategoryServiceStub{}
	handler := NewCategoryHandler(&categoryServiceStub{}, subs)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/subcategories", bytes.NewBufferString(`{"name":"Invoices","category_id":"cat-1"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, managerClaims())

	handler.CreateSubcategory(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "cat-1", subs.createReq.CategoryID)
}
