package models

import "time"

// Subcategory groups documents below a category.
type Subcategory struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Code        string    `db:"code" json:"code"`
	CategoryID  string    `db:"category_id" json:"category_id"`
	Description string    `db:"description" json:"description"`
	Color       string    `db:"color" json:"color"`
	Icon        string    `db:"icon" json:"icon"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedBy   string    `db:"updated_by" json:"updated_by"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SubcategoryWithCount is a listing row with its document count.
type SubcategoryWithCount struct {
	Subcategory
	DocumentCount int `db:"document_count" json:"document_count"`
}

// SubcategoryStatistics counts documents per active subcategory.
type SubcategoryStatistics struct {
	SubcategoryID string `db:"subcategory_id" json:"subcategory_id"`
	Name          string `db:"name" json:"name"`
	CategoryID    string `db:"category_id" json:"category_id"`
	CategoryName  string `db:"category_name" json:"category_name"`
	DocumentCount int    `db:"document_count" json:"document_count"`
	ActiveCount   int    `db:"active_count" json:"active_documents"`
}
