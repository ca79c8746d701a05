package dto

// CategoryRequest creates or updates a category.
type CategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=140"`
	Code        string  `json:"code" validate:"omitempty,max=64"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id"`
	Color       string  `json:"color" validate:"omitempty,hexcolor"`
	Icon        string  `json:"icon"`
	IsActive    *bool   `json:"is_active"`
}

// SubcategoryRequest creates or updates a subcategory.
type SubcategoryRequest struct {
	Name        string `json:"name" validate:"required,max=140"`
	Code        string `json:"code" validate:"omitempty,max=64"`
	CategoryID  string `json:"category_id" validate:"required"`
	Description string `json:"description"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	Icon        string `json:"icon"`
	IsActive    *bool  `json:"is_active"`
}

// DocumentTypeRequest creates or updates a document type.
type DocumentTypeRequest struct {
	Name                    string `json:"name" validate:"required,max=140"`
	Code                    string `json:"code" validate:"required,max=64"`
	Description             string `json:"description"`
	AllowedFileTypes        string `json:"allowed_file_types"`
	MaxFileSizeMB           int    `json:"max_file_size" validate:"required,gt=0"`
	RequiresOCR             bool   `json:"requires_ocr"`
	RequiresEncryption      bool   `json:"requires_encryption"`
	RequiresComplianceCheck bool   `json:"requires_compliance_check"`
	RetentionPeriod         *int   `json:"retention_period" validate:"omitempty,min=0,max=100"`
	IsActive                *bool  `json:"is_active"`
}

// ValidateFileRequest checks a prospective upload against a type.
type ValidateFileRequest struct {
	FileName string `json:"file_name" validate:"required"`
	FileSize int64  `json:"file_size" validate:"min=0"`
}

// CategoryRuleRequest creates or updates a category rule.
type CategoryRuleRequest struct {
	Name           string  `json:"name" validate:"required,max=140"`
	RuleType       string  `json:"rule_type" validate:"required,oneof=Keyword Pattern 'Document Type' 'File Extension' 'Content Analysis'"`
	Keywords       string  `json:"keywords"`
	Pattern        string  `json:"pattern"`
	DocumentTypeID *string `json:"document_type_id"`
	CategoryID     string  `json:"category_id" validate:"required"`
	Priority       *int    `json:"priority" validate:"omitempty,min=0"`
	IsActive       *bool   `json:"is_active"`
	Description    string  `json:"description"`
}

// TestRuleRequest evaluates a rule against sample content.
type TestRuleRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" validate:"required"`
}
