package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
)

// emitAudit records an audit entry without failing the calling operation.
func emitAudit(ctx context.Context, audit auditRecorder, logger *zap.Logger, actor models.Actor, entry models.AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.Record(ctx, actor, entry); err != nil {
		logger.Warn("failed to record audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}

// notFoundOr maps sql.ErrNoRows to a typed not-found error and wraps anything else as internal.
func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

// defaultCode derives a code from a name: lower case with spaces replaced by underscores.
func defaultCode(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func strPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func intPtr(v int) *int {
	return &v
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func requireManager(actor models.Actor) error {
	if !actor.CanManage() {
		return appErrors.Clone(appErrors.ErrForbidden, "archive manager role required")
	}
	return nil
}

func requireWriter(actor models.Actor) error {
	if !actor.CanWrite() {
		return appErrors.Clone(appErrors.ErrForbidden, "archive user role required")
	}
	return nil
}

// loadVisible fetches a document and rejects actors whose role may not see its access level.
func loadVisible(ctx context.Context, documents documentLookup, actor models.Actor, id string) (*models.Document, error) {
	doc, err := documents.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "document not found", "failed to load document")
	}
	if !actor.CanView(doc.AccessLevel, doc.CreatedBy) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions for this document")
	}
	return doc, nil
}
