package service

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/documents", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/documents", http.StatusOK, 40*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveDBQuery("document_search", 10*time.Millisecond)
	m.RecordUpload()
	m.RecordOCR("Completed")
	m.RecordEncryption("encrypt", true)
	m.RecordEncryption("decrypt", false)
	m.RecordAudit("Low")

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30, snap.AverageRequestDurationMs, 0.001)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.001)
	assert.Equal(t, uint64(1), snap.DBQueryCount)
	assert.InDelta(t, 10, snap.AverageDBQueryDurationMs, 0.001)
	assert.Equal(t, uint64(1), snap.Uploads)
	assert.Equal(t, uint64(1), snap.OCRRuns)
	assert.Equal(t, uint64(2), snap.EncryptionOps)
	assert.Equal(t, uint64(1), snap.AuditRecords)
}

func TestMetricsHandlerExposesArchiveCollectors(t *testing.T) {
	m := NewMetricsService()
	m.RecordUpload()
	m.RecordEncryption("encrypt", true)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "archive_uploads_total 1")
	assert.Contains(t, string(body), `archive_encryption_operations_total{operation="encrypt",status="success"} 1`)
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordUpload()
	m.ObserveDBQuery("noop", time.Second)
	assert.Zero(t, m.Snapshot().Uploads)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
