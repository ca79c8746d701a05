package models

import "time"

// DocumentVersion is one stored revision of a document file.
type DocumentVersion struct {
	ID               string           `db:"id" json:"id"`
	DocumentID       string           `db:"document_id" json:"document_id"`
	VersionNumber    int              `db:"version_number" json:"version_number"`
	FilePath         string           `db:"file_path" json:"-"`
	FileName         string           `db:"file_name" json:"file_name"`
	FileSize         int64            `db:"file_size" json:"file_size"`
	FileHash         string           `db:"file_hash" json:"file_hash"`
	VersionNotes     string           `db:"version_notes" json:"version_notes"`
	EncryptionStatus EncryptionStatus `db:"encryption_status" json:"encryption_status"`
	IsCurrent        bool             `db:"is_current" json:"is_current"`
	CreatedBy        string           `db:"created_by" json:"created_by"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// Integrity check outcomes.
const (
	IntegrityVerified = "Integrity verified"
	IntegrityFailed   = "Integrity check failed"
	IntegrityMissing  = "File not found"
	IntegrityNoData   = "No file or hash available"
)

// IntegrityReport is the result of re-hashing a stored version.
type IntegrityReport struct {
	VersionID     string `json:"version_id"`
	VersionNumber int    `json:"version_number"`
	Status        string `json:"integrity_status"`
	ExpectedHash  string `json:"expected_hash,omitempty"`
	ActualHash    string `json:"actual_hash,omitempty"`
}

// VersionSummary is the side of a comparison.
type VersionSummary struct {
	VersionNumber int       `json:"version_number"`
	CreatedAt     time.Time `json:"created_at"`
	FileSize      int64     `json:"file_size"`
	CreatedBy     string    `json:"created_by"`
}

// VersionComparison lists the fields that differ between two versions.
type VersionComparison struct {
	Current     VersionSummary `json:"current_version"`
	Other       VersionSummary `json:"other_version"`
	Differences []string       `json:"differences"`
}
