package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/archive-api/internal/middleware"
	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/internal/service"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
)

type versionServiceStub struct {
	createdFor   string
	createdFile  service.UploadedFile
	createdNotes string
	compared     [2]string
	deleteErr    error
	historyActor models.Actor
}

func (s *versionServiceStub) Create(ctx context.Context, actor models.Actor, documentID string, file service.UploadedFile, notes string) (*models.DocumentVersion, error) {
	s.createdFor = documentID
	s.createdFile = file
	s.createdNotes = notes
	return &models.DocumentVersion{ID: "ver-2", DocumentID: documentID, VersionNumber: 2, IsCurrent: true}, nil
}

func (s *versionServiceStub) Restore(ctx context.Context, actor models.Actor, versionID string) (*models.DocumentVersion, error) {
	return &models.DocumentVersion{ID: "ver-3", VersionNumber: 3, IsCurrent: true, VersionNotes: "Restored from version 1"}, nil
}

func (s *versionServiceStub) Get(ctx context.Context, actor models.Actor, id string) (*models.DocumentVersion, error) {
	return &models.DocumentVersion{ID: id}, nil
}

func (s *versionServiceStub) History(ctx context.Context, actor models.Actor, documentID string) ([]models.DocumentVersion, error) {
	s.historyActor = actor
	return []models.DocumentVersion{{ID: "ver-2", VersionNumber: 2}, {ID: "ver-1", VersionNumber: 1}}, nil
}

func (s *versionServiceStub) Compare(ctx context.Context, actor models.Actor, versionID, otherID string) (*models.VersionComparison, error) {
	s.compared = [2]string{versionID, otherID}
	return &models.VersionComparison{Differences: []string{"file size changed"}}, nil
}

func (s *versionServiceStub) CheckIntegrity(ctx context.Context, actor models.Actor, versionID string) (*models.IntegrityReport, error) {
	return &models.IntegrityReport{VersionID: versionID, Status: "Valid"}, nil
}

func (s *versionServiceStub) Delete(ctx context.Context, actor models.Actor, versionID string) error {
	return s.deleteErr
}

func TestVersionHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &versionServiceStub{}
	handler := NewVersionHandler(stub)

	body, contentType := multipartBody(t, map[string]string{"version_notes": "signed copy"}, "file", map[string][]byte{"contract-v2.pdf": []byte("v2")})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/documents/doc-1/versions", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}
	c.Set(middleware.ContextUserKey, writerClaims())

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "doc-1", stub.createdFor)
	assert.Equal(t, "contract-v2.pdf", stub.createdFile.FileName)
	assert.Equal(t, "signed copy", stub.createdNotes)
	assert.Contains(t, w.Body.String(), `"version_number":2`)
}

func TestVersionHandlerCompareRequiresBothIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &versionServiceStub{}
	handler := NewVersionHandler(stub)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/versions/compare", bytes.NewBufferString(`{"version_id":"ver-1"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, writerClaims())

	handler.Compare(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, stub.compared[0])
}

func TestVersionHandlerCompare(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &versionServiceStub{}
	handler := NewVersionHandler(stub)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/versions/compare", bytes.NewBufferString(`{"version_id":"ver-1","other_version_id":"ver-2"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, writerClaims())

	handler.Compare(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]string{"ver-1", "ver-2"}, stub.compared)
	assert.Contains(t, w.Body.String(), "file size changed")
}

func TestVersionHandlerDeleteCurrentVersion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewVersionHandler(&versionServiceStub{deleteErr: appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot delete the current version")})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/versions/ver-2", nil)
	c.Params = gin.Params{{Key: "id", Value: "ver-2"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "mgr", Role: models.RoleArchiveManager})

	handler.Delete(c)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Contains(t, w.Body.String(), "current version")
}

func TestVersionHandlerRestore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewVersionHandler(&versionServiceStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/versions/ver-1/restore", nil)
	c.Params = gin.Params{{Key: "id", Value: "ver-1"}}
	c.Set(middleware.ContextUserKey, writerClaims())

	handler.Restore(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Restored from version 1")
}

func TestVersionHandlerHistoryPassesActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &versionServiceStub{}
	handler := NewVersionHandler(stub)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/documents/doc-1/versions", nil)
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}
	c.Set(middleware.ContextUserKey, writerClaims())

	handler.History(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", stub.historyActor.UserID)
	assert.Equal(t, models.RoleArchiveUser, stub.historyActor.Role)
}

func TestVersionHandlerHistoryRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewVersionHandler(&versionServiceStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/documents/doc-1/versions", nil)
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}

	handler.History(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
