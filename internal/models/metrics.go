package models

import "time"

// SystemMetrics is a lightweight snapshot of runtime counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Uploads                  uint64    `json:"uploads"`
	OCRRuns                  uint64    `json:"ocr_runs"`
	EncryptionOps            uint64    `json:"encryption_ops"`
	AuditRecords             uint64    `json:"audit_records"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
