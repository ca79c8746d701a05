package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/archive-api/internal/models"
)

func TestDocumentCreateWithInitialVersion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO archive_documents").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO archive_document_versions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	doc := &models.Document{DocumentID: "ARCH20240101000000ABCD", Title: "Invoice", CreatedBy: "u1"}
	version := &models.DocumentVersion{FileName: "invoice.pdf", CreatedBy: "u1"}
	require.NoError(t, repo.CreateWithInitialVersion(context.Background(), doc, version))

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, doc.ID, version.DocumentID)
	assert.Equal(t, 1, version.VersionNumber)
	assert.True(t, version.IsCurrent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentCreateRollsBackOnVersionFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO archive_documents").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO archive_document_versions").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.CreateWithInitialVersion(context.Background(), &models.Document{}, &models.DocumentVersion{})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentSearchAppliesVisibility(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	filter := models.DocumentFilter{
		Query:               "invoice",
		Status:              "Active",
		HiddenAccessLevels:  []string{"Confidential"},
		RestrictedOwnerOnly: "u1",
		Limit:               10,
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM archive_documents WHERE (title ILIKE $1")).
		WithArgs("%invoice%", "Active", sqlmock.AnyArg(), "u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM archive_documents WHERE .*status = \$2.*NOT \(access_level = ANY\(\$3\)\).*created_by = \$4\) ORDER BY created_at DESC LIMIT 10 OFFSET 0`).
		WithArgs("%invoice%", "Active", sqlmock.AnyArg(), "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "title", "status", "access_level", "created_by", "created_at"}).
			AddRow("d1", "ARCH1", "Invoice", "Active", "Internal", "u1", now))

	docs, total, err := repo.Search(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, docs, 1)
	assert.Equal(t, "Invoice", docs[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildDocumentConditionsEscapesLike(t *testing.T) {
	c := buildDocumentConditions(models.DocumentFilter{Query: "50%_off"})
	require.Len(t, c.args, 1)
	assert.Equal(t, `%50\%\_off%`, c.args[0])
	assert.Contains(t, c.where(), "description ILIKE $1")
}

func TestDocumentDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectExec("DELETE FROM archive_documents").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
