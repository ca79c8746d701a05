package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/middleware/requestid"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type recordingAudit struct {
	actors  []models.Actor
	entries []models.AuditEntry
	err     error
}

func (r *recordingAudit) Record(ctx context.Context, actor models.Actor, entry models.AuditEntry) error {
	r.actors = append(r.actors, actor)
	r.entries = append(r.entries, entry)
	return r.err
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/documents/:id", append(handlers, func(c *gin.Context) {
		actor, _ := ActorFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user": actor.UserID, "session": actor.SessionID})
	})...)
	return r
}

func TestJWTAndRBAC(t *testing.T) {
	validator := stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleArchiveViewer}}
	r := newTestRouter(JWT(validator), RequireReader())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/1", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/documents/1", nil)
	req.Header.Set("Authorization", "Token good")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/documents/1", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("X-Request-ID", "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"session":"req-42"`)
	assert.Contains(t, w.Body.String(), `"user":"u1"`)

	managerOnly := newTestRouter(JWT(validator), RequireManager())
	req = httptest.NewRequest(http.MethodGet, "/documents/1", nil)
	req.Header.Set("Authorization", "Bearer good")
	w = httptest.NewRecorder()
	managerOnly.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSecurityAuditRecordsForbidden(t *testing.T) {
	validator := stubValidator{claims: &models.JWTClaims{UserID: "v1", Role: models.RoleArchiveViewer}}
	audit := &recordingAudit{err: errors.New("db down")}
	r := newTestRouter(SecurityAudit(audit, nil), JWT(validator), RequireWriter())

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-9", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, models.AuditSecurityViolation, entry.Action)
	assert.Equal(t, models.SeverityHigh, entry.Severity)
	assert.Equal(t, "Forbidden GET /documents/:id (resource doc-9)", entry.Details)
	assert.Equal(t, "v1", audit.actors[0].UserID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/doc-9", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Len(t, audit.entries, 1)
}

func TestRateLimitPerIP(t *testing.T) {
	limiter := NewIPRateLimiter(60, 2)
	r := newTestRouter(RateLimit(limiter))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/documents/1", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/documents/1", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
