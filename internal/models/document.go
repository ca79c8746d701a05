package models

import "time"

// DocumentStatus is the lifecycle state of an archived document.
type DocumentStatus string

const (
	DocumentDraft    DocumentStatus = "Draft"
	DocumentActive   DocumentStatus = "Active"
	DocumentArchived DocumentStatus = "Archived"
)

// DocumentPriority ranks documents for triage.
type DocumentPriority string

const (
	PriorityLow    DocumentPriority = "Low"
	PriorityMedium DocumentPriority = "Medium"
	PriorityHigh   DocumentPriority = "High"
	PriorityUrgent DocumentPriority = "Urgent"
)

// AccessLevel controls who can see a document.
type AccessLevel string

const (
	AccessPublic       AccessLevel = "Public"
	AccessInternal     AccessLevel = "Internal"
	AccessConfidential AccessLevel = "Confidential"
	AccessRestricted   AccessLevel = "Restricted"
)

// Sensitive reports whether the level forces encryption.
func (l AccessLevel) Sensitive() bool {
	return l == AccessConfidential || l == AccessRestricted
}

// OCRStatus tracks text extraction progress.
type OCRStatus string

const (
	OCRNotProcessed OCRStatus = "Not Processed"
	OCRProcessing   OCRStatus = "Processing"
	OCRCompleted    OCRStatus = "Completed"
	OCRFailed       OCRStatus = "Failed"
)

// EncryptionStatus tracks at-rest encryption of the stored file.
type EncryptionStatus string

const (
	NotEncrypted     EncryptionStatus = "Not Encrypted"
	Encrypted        EncryptionStatus = "Encrypted"
	EncryptionFailed EncryptionStatus = "Encryption Failed"
)

// Document is one archived document and its current file pointer.
type Document struct {
	ID               string           `db:"id" json:"id"`
	DocumentID       string           `db:"document_id" json:"document_id"`
	Title            string           `db:"title" json:"title"`
	Description      string           `db:"description" json:"description"`
	DocumentTypeID   string           `db:"document_type_id" json:"document_type_id"`
	CategoryID       string           `db:"category_id" json:"category_id"`
	SubcategoryID    *string          `db:"subcategory_id" json:"subcategory_id,omitempty"`
	Status           DocumentStatus   `db:"status" json:"status"`
	Priority         DocumentPriority `db:"priority" json:"priority"`
	AccessLevel      AccessLevel      `db:"access_level" json:"access_level"`
	FilePath         string           `db:"file_path" json:"-"`
	FileName         string           `db:"file_name" json:"file_name"`
	MimeType         string           `db:"mime_type" json:"mime_type"`
	FileSize         int64            `db:"file_size" json:"file_size"`
	FileHash         string           `db:"file_hash" json:"file_hash"`
	OCRText          string           `db:"ocr_text" json:"ocr_text,omitempty"`
	OCRStatus        OCRStatus        `db:"ocr_status" json:"ocr_status"`
	EncryptionStatus EncryptionStatus `db:"encryption_status" json:"encryption_status"`
	RetentionPeriod  int              `db:"retention_period" json:"retention_period"`
	Tags             string           `db:"tags" json:"tags"`
	CreatedBy        string           `db:"created_by" json:"created_by"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedBy        string           `db:"updated_by" json:"updated_by"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// RetentionEndsAt returns the date before which the document may not be deleted.
func (d *Document) RetentionEndsAt() time.Time {
	return d.CreatedAt.AddDate(d.RetentionPeriod, 0, 0)
}

// IsEncrypted reports whether the stored file is sealed.
func (d *Document) IsEncrypted() bool {
	return d.EncryptionStatus == Encrypted
}

// DocumentFilter narrows search queries. Only whitelisted fields are filterable.
type DocumentFilter struct {
	Query            string
	Status           string
	CategoryID       string
	SubcategoryID    string
	DocumentTypeID   string
	AccessLevel      string
	Priority         string
	EncryptionStatus string
	CreatedBy        string
	From             *time.Time
	To               *time.Time
	IDs              []string
	Limit            int
	Offset           int

	// Visibility constraints derived from the actor.
	HiddenAccessLevels  []string
	RestrictedOwnerOnly string
}

// DocumentSummary is the compact form used in listings and relationship views.
type DocumentSummary struct {
	ID          string         `db:"id" json:"id"`
	DocumentID  string         `db:"document_id" json:"document_id"`
	Title       string         `db:"title" json:"title"`
	Status      DocumentStatus `db:"status" json:"status"`
	AccessLevel AccessLevel    `db:"access_level" json:"access_level"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// DocumentDetail bundles a document with its history.
type DocumentDetail struct {
	Document
	RetentionUntil time.Time          `json:"retention_until"`
	Versions       []DocumentVersion  `json:"versions"`
	Relationships  []RelationshipView `json:"relationships"`
	AuditTrail     []AuditEntry       `json:"audit_trail"`
}

// CategoryCount pairs a category with a document count.
type CategoryCount struct {
	CategoryID string `db:"category_id" json:"category_id"`
	Name       string `db:"name" json:"name"`
	Count      int    `db:"count" json:"count"`
}

// DocumentStatistics summarises the archive.
type DocumentStatistics struct {
	Total         int             `db:"total" json:"total"`
	Active        int             `db:"active" json:"active"`
	Confidential  int             `db:"confidential" json:"confidential"`
	Encrypted     int             `db:"encrypted" json:"encrypted"`
	OCRCompleted  int             `db:"ocr_completed" json:"ocr_completed"`
	TotalBytes    int64           `db:"total_bytes" json:"total_bytes"`
	TopCategories []CategoryCount `db:"-" json:"top_categories"`
}
