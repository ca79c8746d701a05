package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/archive-api/internal/models"
)

func TestSubcategoryListByCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubcategoryRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM archive_subcategories s\\s+LEFT JOIN archive_documents").
		WithArgs("cat-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "code", "category_id", "description", "color", "icon", "is_active",
			"created_by", "created_at", "updated_by", "updated_at", "document_count",
		}).AddRow("sub-1", "Receipts", "RCPT", "cat-1", "", "#95a5a6", "", true, "mgr", now, "mgr", now, 4))

	items, err := repo.ListByCategory(context.Background(), "cat-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "RCPT", items[0].Code)
	assert.Equal(t, 4, items[0].DocumentCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubcategoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubcategoryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM archive_subcategories WHERE id = $1")).
		WithArgs("sub-x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "sub-x")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubcategoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubcategoryRepository(db)

	mock.ExpectExec("INSERT INTO archive_subcategories").WillReturnResult(sqlmock.NewResult(1, 1))

	sub := &models.Subcategory{Name: "Receipts", Code: "RCPT", CategoryID: "cat-1"}
	require.NoError(t, repo.Create(context.Background(), sub))
	assert.NotEmpty(t, sub.ID)
	assert.False(t, sub.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentTypeListActiveOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentTypeRepository(db)

	mock.ExpectQuery("FROM archive_document_types WHERE is_active ORDER BY name").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "code"}).AddRow("type-1", "Invoice", "INV"))

	items, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "INV", items[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentTypeDocumentCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentTypeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE document_type_id = $1")).
		WithArgs("type-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.DocumentCount(context.Background(), "type-1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRuleListBuildsFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRuleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_active AND rule_type = $1 AND category_id = $2 ORDER BY priority ASC, name ASC")).
		WithArgs("Keyword", "cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "rule_type", "priority"}).
			AddRow("rule-1", "Invoices", "Keyword", 1).
			AddRow("rule-2", "Receipts", "Keyword", 5))

	rules, err := repo.List(context.Background(), models.RuleFilter{ActiveOnly: true, RuleType: models.RuleKeyword, CategoryID: "cat-1"})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, 1, rules[0].Priority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRuleListWithoutFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRuleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM archive_category_rules ORDER BY priority ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rules, err := repo.List(context.Background(), models.RuleFilter{})
	require.NoError(t, err)
	assert.Empty(t, rules)
	assert.NoError(t, mock.ExpectationsWereMet())
}
