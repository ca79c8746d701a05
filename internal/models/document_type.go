package models

import (
	"strings"
	"time"
)

// DocumentType constrains the files a document may carry.
type DocumentType struct {
	ID                      string    `db:"id" json:"id"`
	Name                    string    `db:"name" json:"name"`
	Code                    string    `db:"code" json:"code"`
	Description             string    `db:"description" json:"description"`
	AllowedFileTypes        string    `db:"allowed_file_types" json:"allowed_file_types"`
	MaxFileSizeMB           int       `db:"max_file_size" json:"max_file_size"`
	RequiresOCR             bool      `db:"requires_ocr" json:"requires_ocr"`
	RequiresEncryption      bool      `db:"requires_encryption" json:"requires_encryption"`
	RequiresComplianceCheck bool      `db:"requires_compliance_check" json:"requires_compliance_check"`
	RetentionPeriod         int       `db:"retention_period" json:"retention_period"`
	IsActive                bool      `db:"is_active" json:"is_active"`
	CreatedBy               string    `db:"created_by" json:"created_by"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
	UpdatedBy               string    `db:"updated_by" json:"updated_by"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// Extensions returns the allowed extensions, lowercased and without dots.
func (t *DocumentType) Extensions() []string {
	if strings.TrimSpace(t.AllowedFileTypes) == "" {
		return nil
	}
	parts := strings.Split(t.AllowedFileTypes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(p), ".", ""))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AllowsExtension reports whether ext is accepted. An empty allow list accepts everything.
func (t *DocumentType) AllowsExtension(ext string) bool {
	allowed := t.Extensions()
	if len(allowed) == 0 {
		return true
	}
	ext = strings.ToLower(strings.ReplaceAll(ext, ".", ""))
	for _, a := range allowed {
		if a == ext {
			return true
		}
	}
	return false
}

// MaxFileSizeBytes converts the MB limit to bytes.
func (t *DocumentType) MaxFileSizeBytes() int64 {
	return int64(t.MaxFileSizeMB) * 1024 * 1024
}

// FileValidation is the outcome of checking a file against a document type.
type FileValidation struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// DocumentTypeRequirements describes what a type demands from uploads.
type DocumentTypeRequirements struct {
	AllowedFileTypes     []string `json:"allowed_file_types"`
	MaxFileSizeMB        int      `json:"max_file_size_mb"`
	RequiresOCR          bool     `json:"requires_ocr"`
	RequiresEncryption   bool     `json:"encryption_required"`
	RequiresCompliance   bool     `json:"compliance_required"`
	RetentionPeriodYears int      `json:"retention_period_years"`
}

// DocumentTypeStatistics counts documents per type.
type DocumentTypeStatistics struct {
	DocumentTypeID    string `db:"document_type_id" json:"document_type_id"`
	Name              string `db:"name" json:"name"`
	Code              string `db:"code" json:"code"`
	IsActive          bool   `db:"is_active" json:"is_active"`
	DocumentCount     int    `db:"document_count" json:"document_count"`
	ActiveCount       int    `db:"active_count" json:"active_documents"`
	ConfidentialCount int    `db:"confidential_count" json:"confidential_documents"`
}
