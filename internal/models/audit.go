package models

import "time"

// Audit actions recorded by the archive.
const (
	AuditDocumentCreated    = "Document Created"
	AuditDocumentUpdated    = "Document Updated"
	AuditDocumentDeleted    = "Document Deleted"
	AuditDocumentAccessed   = "Document Accessed"
	AuditDocumentDownloaded = "Document Downloaded"
	AuditDocumentShared     = "Document Shared"
	AuditVersionCreated     = "Version Created"
	AuditVersionRestored    = "Version Restored"
	AuditVersionDeleted     = "Version Deleted"
	AuditCategoryCreated    = "Category Created"
	AuditCategoryUpdated    = "Category Updated"
	AuditCategoryDeleted    = "Category Deleted"
	AuditSubcategoryCreated = "Subcategory Created"
	AuditSubcategoryUpdated = "Subcategory Updated"
	AuditSubcategoryDeleted = "Subcategory Deleted"
	AuditTypeCreated        = "Document Type Created"
	AuditTypeUpdated        = "Document Type Updated"
	AuditTypeDeleted        = "Document Type Deleted"
	AuditRuleCreated        = "Rule Created"
	AuditRuleUpdated        = "Rule Updated"
	AuditRuleDeleted        = "Rule Deleted"
	AuditRelationCreated    = "Relationship Created"
	AuditRelationDeleted    = "Relationship Deleted"
	AuditAccessGranted      = "Access Granted"
	AuditAccessRevoked      = "Access Revoked"
	AuditEncryptionApplied  = "Encryption Applied"
	AuditDecryptionApplied  = "Decryption Applied"
	AuditOCRProcessed       = "OCR Processed"
	AuditAutoCategorized    = "Auto Categorized"
	AuditComplianceCheck    = "Compliance Check"
	AuditReportGenerated    = "Audit Report Generated"
	AuditSystemError        = "System Error"
	AuditSecurityViolation  = "Security Violation"
	AuditUserLogin          = "User Login"
)

// AuditSeverity grades an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "Low"
	SeverityMedium   AuditSeverity = "Medium"
	SeverityHigh     AuditSeverity = "High"
	SeverityCritical AuditSeverity = "Critical"
)

// AuditStatus records the outcome of the audited operation.
type AuditStatus string

const (
	AuditSuccess AuditStatus = "Success"
	AuditFailed  AuditStatus = "Failed"
	AuditWarning AuditStatus = "Warning"
)

const (
	accessRetentionDays  = 365
	defaultRetentionDays = 2555
)

var complianceActions = map[string]struct{}{
	AuditDocumentCreated:    {},
	AuditDocumentUpdated:    {},
	AuditDocumentDeleted:    {},
	AuditDocumentDownloaded: {},
	AuditDocumentShared:     {},
	AuditAccessGranted:      {},
	AuditAccessRevoked:      {},
	AuditEncryptionApplied:  {},
	AuditDecryptionApplied:  {},
	AuditComplianceCheck:    {},
	AuditSecurityViolation:  {},
}

// RetentionDays returns how long entries for action are kept.
func RetentionDays(action string) int {
	if action == AuditDocumentAccessed {
		return accessRetentionDays
	}
	return defaultRetentionDays
}

// IsComplianceAction reports whether action counts toward compliance reporting.
func IsComplianceAction(action string) bool {
	_, ok := complianceActions[action]
	return ok
}

// AuditEntry is one row of the append-only archive audit trail.
type AuditEntry struct {
	ID             string        `db:"id" json:"id"`
	Action         string        `db:"action" json:"action"`
	DocumentID     *string       `db:"document_id" json:"document_id,omitempty"`
	CategoryID     *string       `db:"category_id" json:"category_id,omitempty"`
	VersionNumber  *int          `db:"version_number" json:"version_number,omitempty"`
	UserID         string        `db:"user_id" json:"user_id"`
	IPAddress      string        `db:"ip_address" json:"ip_address"`
	UserAgent      string        `db:"user_agent" json:"user_agent"`
	SessionID      string        `db:"session_id" json:"session_id"`
	Severity       AuditSeverity `db:"severity" json:"severity"`
	Status         AuditStatus   `db:"status" json:"status"`
	ComplianceFlag bool          `db:"compliance_flag" json:"compliance_flag"`
	RetentionUntil time.Time     `db:"retention_until" json:"retention_until"`
	Details        string        `db:"details" json:"details"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	DocumentID     string
	CategoryID     string
	UserID         string
	Action         string
	Severity       string
	ComplianceOnly bool
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

// ActionCount is a per-action tally.
type ActionCount struct {
	Action string `db:"action" json:"action"`
	Count  int    `db:"count" json:"count"`
}

// UserActivity is a per-user tally.
type UserActivity struct {
	UserID string `db:"user_id" json:"user_id"`
	Count  int    `db:"count" json:"count"`
}

// ComplianceTotals aggregates compliance relevant counters.
type ComplianceTotals struct {
	ComplianceActions int `db:"compliance_actions" json:"compliance_actions"`
	TotalActions      int `db:"total_actions" json:"total_actions"`
	CriticalActions   int `db:"critical_actions" json:"critical_actions"`
	FailedActions     int `db:"failed_actions" json:"failed_actions"`
}

// AuditStatistics summarises the trail for a period.
type AuditStatistics struct {
	ActionCounts    []ActionCount    `json:"action_counts"`
	UserActivity    []UserActivity   `json:"user_activity"`
	ComplianceStats ComplianceTotals `json:"compliance_stats"`
}

// ReportPeriod bounds a report.
type ReportPeriod struct {
	From *time.Time `json:"start_date,omitempty"`
	To   *time.Time `json:"end_date,omitempty"`
}

// ComplianceReport lists compliance relevant entries for a period.
type ComplianceReport struct {
	GeneratedAt     time.Time      `json:"report_generated"`
	Period          ReportPeriod   `json:"period"`
	TotalCompliance int            `json:"total_compliance_actions"`
	ActionsByType   map[string]int `json:"actions_by_type"`
	ActionsByUser   map[string]int `json:"actions_by_user"`
	CriticalActions []AuditEntry   `json:"critical_actions"`
	DetailedActions []AuditEntry   `json:"detailed_actions"`
}

// AuditEvent is the payload published for every recorded entry.
type AuditEvent struct {
	ID            string        `json:"id"`
	Action        string        `json:"action"`
	DocumentID    *string       `json:"document_id,omitempty"`
	CategoryID    *string       `json:"category_id,omitempty"`
	VersionNumber *int          `json:"version_number,omitempty"`
	UserID        string        `json:"user_id"`
	Severity      AuditSeverity `json:"severity"`
	Status        AuditStatus   `json:"status"`
	Compliance    bool          `json:"compliance_flag"`
	Details       string        `json:"details,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}
