package dto

import "time"

// AuditQuery captures audit trail filters from the query string.
type AuditQuery struct {
	DocumentID string     `form:"document_id"`
	CategoryID string     `form:"category_id"`
	UserID     string     `form:"user"`
	Action     string     `form:"action"`
	Severity   string     `form:"severity"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Limit      int        `form:"limit"`
	Offset     int        `form:"offset"`
}

// PeriodQuery bounds statistics and reports.
type PeriodQuery struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}

// CleanupResult reports how many expired audit rows were removed.
type CleanupResult struct {
	Deleted int64 `json:"deleted"`
}
