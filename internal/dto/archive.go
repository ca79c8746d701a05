package dto

import (
	"time"

	"github.com/noah-isme/archive-api/internal/models"
)

// UploadDocumentRequest contains metadata submitted alongside a file upload.
type UploadDocumentRequest struct {
	DocumentID      string                  `form:"document_id" json:"document_id" validate:"omitempty,max=64"`
	Title           string                  `form:"title" json:"title" validate:"required,max=255"`
	Description     string                  `form:"description" json:"description"`
	DocumentTypeID  string                  `form:"document_type_id" json:"document_type_id" validate:"required"`
	CategoryID      string                  `form:"category_id" json:"category_id" validate:"required"`
	SubcategoryID   string                  `form:"subcategory_id" json:"subcategory_id"`
	Status          models.DocumentStatus   `form:"status" json:"status" validate:"omitempty,oneof=Draft Active Archived"`
	Priority        models.DocumentPriority `form:"priority" json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	AccessLevel     models.AccessLevel      `form:"access_level" json:"access_level" validate:"omitempty,oneof=Public Internal Confidential Restricted"`
	RetentionPeriod int                     `form:"retention_period" json:"retention_period" validate:"omitempty,min=0,max=100"`
	Tags            string                  `form:"tags" json:"tags"`
	RunOCR          bool                    `form:"run_ocr" json:"run_ocr"`
}

// UpdateDocumentRequest patches document metadata. Nil fields are left unchanged.
type UpdateDocumentRequest struct {
	Title           *string                  `json:"title" validate:"omitempty,min=1,max=255"`
	Description     *string                  `json:"description"`
	DocumentTypeID  *string                  `json:"document_type_id"`
	CategoryID      *string                  `json:"category_id"`
	SubcategoryID   *string                  `json:"subcategory_id"`
	Status          *models.DocumentStatus   `json:"status" validate:"omitempty,oneof=Draft Active Archived"`
	Priority        *models.DocumentPriority `json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	AccessLevel     *models.AccessLevel      `json:"access_level" validate:"omitempty,oneof=Public Internal Confidential Restricted"`
	RetentionPeriod *int                     `json:"retention_period" validate:"omitempty,min=0,max=100"`
	Tags            *string                  `json:"tags"`
}

// SearchDocumentsRequest captures search query parameters.
type SearchDocumentsRequest struct {
	Query            string     `form:"q"`
	Status           string     `form:"status"`
	CategoryID       string     `form:"category_id"`
	SubcategoryID    string     `form:"subcategory_id"`
	DocumentTypeID   string     `form:"document_type_id"`
	AccessLevel      string     `form:"access_level"`
	Priority         string     `form:"priority"`
	EncryptionStatus string     `form:"encryption_status"`
	CreatedBy        string     `form:"created_by"`
	From             *time.Time `form:"from" time_format:"2006-01-02"`
	To               *time.Time `form:"to" time_format:"2006-01-02"`
	Limit            int        `form:"limit"`
	Offset           int        `form:"offset"`
}

// SearchDocumentsResponse is one page of search results.
type SearchDocumentsResponse struct {
	Documents []models.Document `json:"documents"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

// DownloadURLResponse carries a signed download link.
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportDocumentsRequest selects documents to export.
type ExportDocumentsRequest struct {
	DocumentIDs []string `json:"document_ids" validate:"required,min=1,max=1000"`
	Format      string   `json:"format" validate:"omitempty,oneof=json csv xlsx pdf"`
}

// BulkUploadItemError reports one failed item of a bulk upload.
type BulkUploadItemError struct {
	Index    int    `json:"index"`
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

// BulkUploadResult aggregates a bulk upload.
type BulkUploadResult struct {
	Total     int                   `json:"total"`
	Success   int                   `json:"success"`
	Failed    int                   `json:"failed"`
	Documents []string              `json:"documents"`
	Errors    []BulkUploadItemError `json:"errors"`
}

// OCRResponse reports the OCR outcome for a document.
type OCRResponse struct {
	DocumentID string           `json:"document_id"`
	Status     models.OCRStatus `json:"ocr_status"`
	Characters int              `json:"characters"`
	JobID      string           `json:"job_id,omitempty"`
}
