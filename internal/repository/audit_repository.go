package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/archive-api/internal/models"
)

const auditColumns = `id, action, document_id, category_id, version_number, user_id, ip_address, user_agent, session_id,
severity, status, compliance_flag, retention_until, details, created_at`

// AuditRepository appends to and queries the archive audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends one entry.
func (r *AuditRepository) Create(ctx context.Context, e *models.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO archive_audit_trail (` + auditColumns + `)
	VALUES (:id, :action, :document_id, :category_id, :version_number, :user_id, :ip_address, :user_agent, :session_id,
	:severity, :status, :compliance_flag, :retention_until, :details, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("create audit entry: %w", err)
	}
	return nil
}

func auditConditions(f models.AuditFilter) *conditions {
	c := &conditions{}
	if f.DocumentID != "" {
		c.add("document_id::text = $%d", f.DocumentID)
	}
	if f.CategoryID != "" {
		c.add("category_id::text = $%d", f.CategoryID)
	}
	if f.UserID != "" {
		c.add("user_id = $%d", f.UserID)
	}
	if f.Action != "" {
		c.add("action = $%d", f.Action)
	}
	if f.Severity != "" {
		c.add("severity = $%d", f.Severity)
	}
	if f.ComplianceOnly {
		c.raw("compliance_flag")
	}
	if f.From != nil {
		c.add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		c.add("created_at < $%d", f.To.AddDate(0, 0, 1))
	}
	return c
}

// List returns entries newest first. A zero limit returns every match.
func (r *AuditRepository) List(ctx context.Context, f models.AuditFilter) ([]models.AuditEntry, error) {
	c := auditConditions(f)
	query := `SELECT ` + auditColumns + ` FROM archive_audit_trail` + c.where() + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, clampOffset(f.Offset))
	}
	var out []models.AuditEntry
	if err := r.db.SelectContext(ctx, &out, query, c.args...); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return out, nil
}

// ActionCounts groups entries in the period by action.
func (r *AuditRepository) ActionCounts(ctx context.Context, from, to *time.Time) ([]models.ActionCount, error) {
	c := auditConditions(models.AuditFilter{From: from, To: to})
	query := `SELECT action, COUNT(*) AS count FROM archive_audit_trail` + c.where() + ` GROUP BY action ORDER BY count DESC, action`
	var out []models.ActionCount
	if err := r.db.SelectContext(ctx, &out, query, c.args...); err != nil {
		return nil, fmt.Errorf("audit action counts: %w", err)
	}
	return out, nil
}

// TopUsers returns the most active users in the period.
func (r *AuditRepository) TopUsers(ctx context.Context, from, to *time.Time, limit int) ([]models.UserActivity, error) {
	c := auditConditions(models.AuditFilter{From: from, To: to})
	query := fmt.Sprintf(`SELECT user_id, COUNT(*) AS count FROM archive_audit_trail%s GROUP BY user_id ORDER BY count DESC, user_id LIMIT %d`,
		c.where(), clampLimit(limit, 10, 100))
	var out []models.UserActivity
	if err := r.db.SelectContext(ctx, &out, query, c.args...); err != nil {
		return nil, fmt.Errorf("audit user activity: %w", err)
	}
	return out, nil
}

// ComplianceTotals counts compliance, critical and failed entries in the period.
func (r *AuditRepository) ComplianceTotals(ctx context.Context, from, to *time.Time) (models.ComplianceTotals, error) {
	c := auditConditions(models.AuditFilter{From: from, To: to})
	query := `SELECT COUNT(*) FILTER (WHERE compliance_flag) AS compliance_actions,
	COUNT(*) AS total_actions,
	COUNT(*) FILTER (WHERE severity = 'Critical') AS critical_actions,
	COUNT(*) FILTER (WHERE status = 'Failed') AS failed_actions
	FROM archive_audit_trail` + c.where()
	var totals models.ComplianceTotals
	if err := r.db.GetContext(ctx, &totals, query, c.args...); err != nil {
		return totals, fmt.Errorf("audit compliance totals: %w", err)
	}
	return totals, nil
}

// DeleteExpired removes entries whose retention date has passed.
func (r *AuditRepository) DeleteExpired(ctx context.Context, today time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM archive_audit_trail WHERE retention_until < $1`, today)
	if err != nil {
		return 0, fmt.Errorf("delete expired audit entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired audit rows: %w", err)
	}
	return n, nil
}
