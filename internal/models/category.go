package models

import "time"

// Category is one node of the archive classification tree.
type Category struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Code        string    `db:"code" json:"code"`
	Description string    `db:"description" json:"description"`
	ParentID    *string   `db:"parent_id" json:"parent_id,omitempty"`
	Color       string    `db:"color" json:"color"`
	Icon        string    `db:"icon" json:"icon"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedBy   string    `db:"updated_by" json:"updated_by"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CategoryNode is a category with its children and direct document count.
type CategoryNode struct {
	Category
	DocumentCount int             `json:"document_count"`
	Children      []*CategoryNode `json:"children"`
}

// CategoryPathItem is one step of the root-to-leaf hierarchy.
type CategoryPathItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// CategoryStatistics counts documents for an active category.
type CategoryStatistics struct {
	CategoryID        string `db:"category_id" json:"category_id"`
	Name              string `db:"name" json:"name"`
	Color             string `db:"color" json:"color"`
	DocumentCount     int    `db:"document_count" json:"document_count"`
	ActiveCount       int    `db:"active_count" json:"active_documents"`
	ConfidentialCount int    `db:"confidential_count" json:"confidential_documents"`
}

// CategoryUsage counts the rows referencing a category.
type CategoryUsage struct {
	Children      int `db:"children"`
	Subcategories int `db:"subcategories"`
	Documents     int `db:"documents"`
}

// InUse reports whether anything references the category.
func (u CategoryUsage) InUse() bool {
	return u.Children > 0 || u.Subcategories > 0 || u.Documents > 0
}
