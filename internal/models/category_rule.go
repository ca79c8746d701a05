package models

import "time"

// RuleType selects how a category rule matches documents.
type RuleType string

const (
	RuleKeyword         RuleType = "Keyword"
	RulePattern         RuleType = "Pattern"
	RuleDocumentType    RuleType = "Document Type"
	RuleFileExtension   RuleType = "File Extension"
	RuleContentAnalysis RuleType = "Content Analysis"
)

// Valid reports whether t is a known rule type.
func (t RuleType) Valid() bool {
	switch t {
	case RuleKeyword, RulePattern, RuleDocumentType, RuleFileExtension, RuleContentAnalysis:
		return true
	}
	return false
}

// CategoryRule assigns a category to documents that match it.
type CategoryRule struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	RuleType       RuleType  `db:"rule_type" json:"rule_type"`
	Keywords       string    `db:"keywords" json:"keywords"`
	Pattern        string    `db:"pattern" json:"pattern"`
	DocumentTypeID *string   `db:"document_type_id" json:"document_type_id,omitempty"`
	CategoryID     string    `db:"category_id" json:"category_id"`
	Priority       int       `db:"priority" json:"priority"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	Description    string    `db:"description" json:"description"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// RuleFilter narrows rule listings.
type RuleFilter struct {
	ActiveOnly bool
	RuleType   RuleType
	CategoryID string
}

// RuleTestResult reports whether sample content matches a rule.
type RuleTestResult struct {
	RuleID         string   `json:"rule_id"`
	RuleName       string   `json:"rule_name"`
	RuleType       RuleType `json:"rule_type"`
	Matches        bool     `json:"matches"`
	ContentPreview string   `json:"content_preview"`
}

// CategorizationResult is the outcome of applying rules to one document.
type CategorizationResult struct {
	DocumentID  string `json:"document_id"`
	Matched     bool   `json:"matched"`
	Changed     bool   `json:"changed"`
	RuleID      string `json:"rule_id,omitempty"`
	RuleName    string `json:"rule_name,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`
	PreviousCat string `json:"previous_category_id,omitempty"`
}

// BulkCategorizeResult aggregates a bulk rule run.
type BulkCategorizeResult struct {
	Total       int `json:"total"`
	Categorized int `json:"categorized"`
	NoMatch     int `json:"no_match"`
	Errors      int `json:"errors"`
}

// RuleStatistics counts rules per type.
type RuleStatistics struct {
	RuleType RuleType `db:"rule_type" json:"rule_type"`
	Total    int      `db:"total" json:"total_rules"`
	Active   int      `db:"active" json:"active_rules"`
}
