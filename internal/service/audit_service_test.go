package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/models"
)

type memAuditStore struct {
	entries   []models.AuditEntry
	lastList  models.AuditFilter
	expiredAt time.Time
}

func (m *memAuditStore) Create(ctx context.Context, e *models.AuditEntry) error {
	e.ID = "audit-1"
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memAuditStore) List(ctx context.Context, f models.AuditFilter) ([]models.AuditEntry, error) {
	m.lastList = f
	var out []models.AuditEntry
	for _, e := range m.entries {
		if f.ComplianceOnly && !e.ComplianceFlag {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memAuditStore) ActionCounts(ctx context.Context, from, to *time.Time) ([]models.ActionCount, error) {
	return []models.ActionCount{{Action: models.AuditDocumentCreated, Count: 2}}, nil
}

func (m *memAuditStore) TopUsers(ctx context.Context, from, to *time.Time, limit int) ([]models.UserActivity, error) {
	return []models.UserActivity{{UserID: "u1", Count: 2}}, nil
}

func (m *memAuditStore) ComplianceTotals(ctx context.Context, from, to *time.Time) (models.ComplianceTotals, error) {
	return models.ComplianceTotals{}, nil
}

func (m *memAuditStore) DeleteExpired(ctx context.Context, today time.Time) (int64, error) {
	m.expiredAt = today
	return 3, nil
}

type recordingPublisher struct {
	events []string
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event string, payload interface{}) error {
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() {}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestAuditServiceRecordFillsDerivedFields(t *testing.T) {
	store := &memAuditStore{}
	pub := &recordingPublisher{}
	svc := NewAuditService(store, pub, nil, zap.NewNop())
	svc.now = fixedClock(time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC))
	actor := models.Actor{UserID: "u1", IPAddress: "10.0.0.1", UserAgent: "curl", SessionID: "req-1"}
	docID := "doc-1"

	require.NoError(t, svc.Record(context.Background(), actor, models.AuditEntry{Action: models.AuditDocumentDeleted, DocumentID: &docID}))
	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, "10.0.0.1", e.IPAddress)
	assert.Equal(t, "curl", e.UserAgent)
	assert.Equal(t, "req-1", e.SessionID)
	assert.Equal(t, models.SeverityLow, e.Severity)
	assert.Equal(t, models.AuditSuccess, e.Status)
	assert.True(t, e.ComplianceFlag)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 2555), e.RetentionUntil)
	assert.Equal(t, []string{models.AuditDocumentDeleted}, pub.events)
}

func TestAuditServiceRecordAccessRetention(t *testing.T) {
	store := &memAuditStore{}
	svc := NewAuditService(store, nil, nil, zap.NewNop())
	svc.now = fixedClock(time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))

	require.NoError(t, svc.Record(context.Background(), models.Actor{}, models.AuditEntry{Action: models.AuditDocumentAccessed}))
	e := store.entries[0]
	assert.Equal(t, "Guest", e.UserID)
	assert.False(t, e.ComplianceFlag)
	assert.Equal(t, time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC), e.RetentionUntil)
}

func TestAuditServiceRecordSurvivesPublishFailure(t *testing.T) {
	store := &memAuditStore{}
	svc := NewAuditService(store, &recordingPublisher{err: errors.New("nats down")}, nil, zap.NewNop())

	require.NoError(t, svc.Record(context.Background(), userActor, models.AuditEntry{Action: models.AuditUserLogin}))
	assert.Len(t, store.entries, 1)

	require.Error(t, svc.Record(context.Background(), userActor, models.AuditEntry{}))
}

func TestAuditServiceListDefaultsLimit(t *testing.T) {
	store := &memAuditStore{}
	svc := NewAuditService(store, nil, nil, zap.NewNop())

	_, err := svc.List(context.Background(), models.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, 100, store.lastList.Limit)

	_, err = svc.Recent(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", store.lastList.DocumentID)
	assert.Equal(t, 10, store.lastList.Limit)
}

func TestAuditServiceComplianceReport(t *testing.T) {
	store := &memAuditStore{entries: []models.AuditEntry{
		{Action: models.AuditDocumentDeleted, UserID: "u1", Severity: models.SeverityHigh, ComplianceFlag: true},
		{Action: models.AuditDocumentCreated, UserID: "u1", Severity: models.SeverityLow, ComplianceFlag: true},
		{Action: models.AuditDocumentAccessed, UserID: "u2", Severity: models.SeverityLow},
	}}
	svc := NewAuditService(store, nil, nil, zap.NewNop())

	report, err := svc.ComplianceReport(context.Background(), managerActor, models.ReportPeriod{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalCompliance)
	assert.Equal(t, 2, report.ActionsByUser["u1"])
	assert.Len(t, report.CriticalActions, 1)
	assert.Equal(t, models.AuditReportGenerated, store.entries[len(store.entries)-1].Action)

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	_, err = svc.ComplianceReport(context.Background(), managerActor, models.ReportPeriod{From: &from, To: &to})
	require.Error(t, err)
}

func TestAuditServiceCleanupUsesStartOfDay(t *testing.T) {
	store := &memAuditStore{}
	svc := NewAuditService(store, nil, nil, zap.NewNop())
	svc.now = fixedClock(time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC))

	deleted, err := svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), store.expiredAt)
}
