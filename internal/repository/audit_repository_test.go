package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/archive-api/internal/models"
)

func TestAuditCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO archive_audit_trail").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditEntry{Action: models.AuditDocumentCreated, UserID: "u1", RetentionUntil: time.Now().AddDate(7, 0, 0)}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE document_id::text = $1 AND action = $2 AND compliance_flag ORDER BY created_at DESC LIMIT 10 OFFSET 0")).
		WithArgs("doc-1", "Document Accessed").
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "user_id"}).AddRow("a1", "Document Accessed", "u1"))

	entries, err := repo.List(context.Background(), models.AuditFilter{
		DocumentID:     "doc-1",
		Action:         "Document Accessed",
		ComplianceOnly: true,
		Limit:          10,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListFiltersByCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE category_id::text = $1 AND user_id = $2 AND action = $3 ORDER BY created_at DESC")).
		WithArgs("cat-1", "u1", "Category Updated").
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "user_id", "category_id"}).AddRow("a2", "Category Updated", "u1", "cat-1"))

	entries, err := repo.List(context.Background(), models.AuditFilter{CategoryID: "cat-1", UserID: "u1", Action: "Category Updated"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].CategoryID)
	assert.Equal(t, "cat-1", *entries[0].CategoryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditDeleteExpired(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	today := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM archive_audit_trail WHERE retention_until < $1")).
		WithArgs(today).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteExpired(context.Background(), today)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
