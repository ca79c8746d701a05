package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/events"
)

const (
	defaultAuditLimit   = 100
	auditTopUsers       = 10
	auditRecentOnDetail = 10
)

type auditStore interface {
	Create(ctx context.Context, e *models.AuditEntry) error
	List(ctx context.Context, f models.AuditFilter) ([]models.AuditEntry, error)
	ActionCounts(ctx context.Context, from, to *time.Time) ([]models.ActionCount, error)
	TopUsers(ctx context.Context, from, to *time.Time, limit int) ([]models.UserActivity, error)
	ComplianceTotals(ctx context.Context, from, to *time.Time) (models.ComplianceTotals, error)
	DeleteExpired(ctx context.Context, today time.Time) (int64, error)
}

// auditRecorder is the narrow view other services use to append audit entries.
type auditRecorder interface {
	Record(ctx context.Context, actor models.Actor, entry models.AuditEntry) error
}

// AuditService appends to and reports on the archive audit trail.
type AuditService struct {
	repo      auditStore
	publisher events.Publisher
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuditService constructs the service. A nil publisher disables event publication.
func NewAuditService(repo auditStore, publisher events.Publisher, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AuditService{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Record fills actor and retention fields, persists the entry and publishes it.
func (s *AuditService) Record(ctx context.Context, actor models.Actor, entry models.AuditEntry) error {
	if entry.Action == "" {
		return appErrors.Clone(appErrors.ErrValidation, "audit action is required")
	}
	now := s.now()
	entry.UserID = actor.UserID
	if entry.UserID == "" {
		entry.UserID = "Guest"
	}
	entry.IPAddress = actor.IPAddress
	entry.UserAgent = actor.UserAgent
	entry.SessionID = actor.SessionID
	if entry.Severity == "" {
		entry.Severity = models.SeverityLow
	}
	if entry.Status == "" {
		entry.Status = models.AuditSuccess
	}
	entry.ComplianceFlag = models.IsComplianceAction(entry.Action)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	entry.RetentionUntil = today.AddDate(0, 0, models.RetentionDays(entry.Action))
	entry.CreatedAt = now

	if err := s.repo.Create(ctx, &entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit entry")
	}
	s.metrics.RecordAudit(string(entry.Severity))

	event := models.AuditEvent{
		ID:            entry.ID,
		Action:        entry.Action,
		DocumentID:    entry.DocumentID,
		CategoryID:    entry.CategoryID,
		VersionNumber: entry.VersionNumber,
		UserID:        entry.UserID,
		Severity:      entry.Severity,
		Status:        entry.Status,
		Compliance:    entry.ComplianceFlag,
		Details:       entry.Details,
		OccurredAt:    entry.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, entry.Action, event); err != nil {
		s.logger.Warn("audit event not published", zap.String("action", entry.Action), zap.Error(err))
	}
	return nil
}

// List returns audit entries matching the filter. The limit defaults to 100.
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditLimit
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit trail")
	}
	return entries, nil
}

// Recent returns the latest entries for a document.
func (s *AuditService) Recent(ctx context.Context, documentID string) ([]models.AuditEntry, error) {
	return s.List(ctx, models.AuditFilter{DocumentID: documentID, Limit: auditRecentOnDetail})
}

// Statistics summarises the trail for the period.
func (s *AuditService) Statistics(ctx context.Context, period models.ReportPeriod) (*models.AuditStatistics, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { s.metrics.ObserveDBQuery("audit_statistics", time.Since(start)) }()
	actions, err := s.repo.ActionCounts(ctx, period.From, period.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count audit actions")
	}
	users, err := s.repo.TopUsers(ctx, period.From, period.To, auditTopUsers)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user activity")
	}
	totals, err := s.repo.ComplianceTotals(ctx, period.From, period.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load compliance totals")
	}
	return &models.AuditStatistics{ActionCounts: actions, UserActivity: users, ComplianceStats: totals}, nil
}

// ComplianceReport lists compliance flagged entries for the period and records that it was generated.
func (s *AuditService) ComplianceReport(ctx context.Context, actor models.Actor, period models.ReportPeriod) (*models.ComplianceReport, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	entries, err := s.repo.List(ctx, models.AuditFilter{ComplianceOnly: true, From: period.From, To: period.To})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load compliance entries")
	}

	report := &models.ComplianceReport{
		GeneratedAt:     s.now(),
		Period:          period,
		TotalCompliance: len(entries),
		ActionsByType:   map[string]int{},
		ActionsByUser:   map[string]int{},
		CriticalActions: []models.AuditEntry{},
		DetailedActions: entries,
	}
	for _, e := range entries {
		report.ActionsByType[e.Action]++
		report.ActionsByUser[e.UserID]++
		if e.Severity == models.SeverityCritical || e.Severity == models.SeverityHigh {
			report.CriticalActions = append(report.CriticalActions, e)
		}
	}
	if report.DetailedActions == nil {
		report.DetailedActions = []models.AuditEntry{}
	}

	if err := s.Record(ctx, actor, models.AuditEntry{
		Action:   models.AuditReportGenerated,
		Severity: models.SeverityMedium,
		Details:  "Compliance report generated",
	}); err != nil {
		s.logger.Warn("failed to audit compliance report", zap.Error(err))
	}
	return report, nil
}

// Cleanup deletes entries whose retention date has passed.
func (s *AuditService) Cleanup(ctx context.Context) (int64, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	deleted, err := s.repo.DeleteExpired(ctx, today)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clean up audit trail")
	}
	s.logger.Info("audit trail cleaned up", zap.Int64("deleted", deleted))
	return deleted, nil
}

func validatePeriod(p models.ReportPeriod) error {
	if p.From != nil && p.To != nil && p.To.Before(*p.From) {
		return appErrors.Clone(appErrors.ErrValidation, "end date must not be before start date")
	}
	return nil
}
