package dto

import "time"

// ArchiveConfigView is the sanitized runtime configuration exposed over the API.
type ArchiveConfigView struct {
	StorageDir            string        `json:"storage_dir"`
	MaxFileSizeBytes      int64         `json:"max_file_size_bytes"`
	SignedURLTTL          time.Duration `json:"signed_url_ttl"`
	DefaultRetentionYears int           `json:"default_retention_years"`
	AuditRetentionDays    int           `json:"audit_retention_days"`
	AutoCategorize        bool          `json:"auto_categorize"`
	CacheEnabled          bool          `json:"cache_enabled"`
	CacheTTL              time.Duration `json:"cache_ttl"`
	RateLimitPerMinute    int           `json:"rate_limit_per_minute"`
	OCREnabled            bool          `json:"ocr_enabled"`
	OCRLanguages          string        `json:"ocr_languages"`
	OCRAsync              bool          `json:"ocr_async"`
	EncryptionEnabled     bool          `json:"encryption_enabled"`
	EncryptionAlgorithm   string        `json:"encryption_algorithm"`
	EventsEnabled         bool          `json:"events_enabled"`
	Validation            ConfigCheck   `json:"validation"`
}

// ConfigCheck mirrors the configuration validation outcome.
type ConfigCheck struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
