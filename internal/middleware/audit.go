package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/models"
)

type auditRecorder interface {
	Record(ctx context.Context, actor models.Actor, entry models.AuditEntry) error
}

// SecurityAudit records a Security Violation entry whenever a request ends with 403.
func SecurityAudit(recorder auditRecorder, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		if recorder == nil || c.Writer.Status() != http.StatusForbidden {
			return
		}
		actor, _ := ActorFromContext(c)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		entry := models.AuditEntry{
			Action:   models.AuditSecurityViolation,
			Severity: models.SeverityHigh,
			Status:   models.AuditFailed,
			Details:  fmt.Sprintf("Forbidden %s %s", c.Request.Method, path),
		}
		if id := c.Param("id"); id != "" {
			entry.Details = fmt.Sprintf("%s (resource %s)", entry.Details, id)
		}
		if err := recorder.Record(c.Request.Context(), actor, entry); err != nil {
			logger.Warn("failed to record security violation", zap.Error(err))
		}
	}
}
