package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/internal/service"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/response"
)

type auditService interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error)
	Statistics(ctx context.Context, period models.ReportPeriod) (*models.AuditStatistics, error)
	ComplianceReport(ctx context.Context, actor models.Actor, period models.ReportPeriod) (*models.ComplianceReport, error)
	Cleanup(ctx context.Context) (int64, error)
}

type auditExporter interface {
	ExportAudit(ctx context.Context, actor models.Actor, filter models.AuditFilter, rawFormat string) (*service.ExportResult, error)
}

// AuditHandler exposes the audit trail.
type AuditHandler struct {
	service  auditService
	exporter auditExporter
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(svc auditService, exporter auditExporter) *AuditHandler {
	return &AuditHandler{service: svc, exporter: exporter}
}

func bindAuditQuery(c *gin.Context) (models.AuditFilter, bool) {
	var q dto.AuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid audit filters"))
		return models.AuditFilter{}, false
	}
	return models.AuditFilter{
		DocumentID:     q.DocumentID,
		CategoryID:     q.CategoryID,
		UserID:         q.UserID,
		Action:         q.Action,
		Severity:       q.Severity,
		ComplianceOnly: queryBool(c, "compliance_only"),
		From:           q.From,
		To:             q.To,
		Limit:          q.Limit,
		Offset:         q.Offset,
	}, true
}

func bindPeriod(c *gin.Context) (models.ReportPeriod, bool) {
	var q dto.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid period"))
		return models.ReportPeriod{}, false
	}
	return models.ReportPeriod{From: q.From, To: q.To}, true
}

// List godoc
// @Summary Audit trail entries
// @Tags Audit
// @Produce json
// @Param document_id query string false "Document"
// @Param category_id query string false "Category"
// @Param user query string false "User"
// @Param action query string false "Action"
// @Param severity query string false "Severity"
// @Param from query string false "From (YYYY-MM-DD)"
// @Param to query string false "To (YYYY-MM-DD)"
// @Param limit query int false "Limit, default 100"
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter, ok := bindAuditQuery(c)
	if !ok {
		return
	}
	entries, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Statistics godoc
// @Summary Audit statistics for a period
// @Tags Audit
// @Produce json
// @Param from query string false "From (YYYY-MM-DD)"
// @Param to query string false "To (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /audit/statistics [get]
func (h *AuditHandler) Statistics(c *gin.Context) {
	period, ok := bindPeriod(c)
	if !ok {
		return
	}
	stats, err := h.service.Statistics(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// ComplianceReport godoc
// @Summary Compliance report for a period
// @Tags Audit
// @Produce json
// @Param from query string false "From (YYYY-MM-DD)"
// @Param to query string false "To (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /audit/compliance-report [get]
func (h *AuditHandler) ComplianceReport(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	period, ok := bindPeriod(c)
	if !ok {
		return
	}
	report, err := h.service.ComplianceReport(c.Request.Context(), actor, period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Cleanup godoc
// @Summary Delete audit entries past their retention date
// @Tags Audit
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /audit/cleanup [post]
func (h *AuditHandler) Cleanup(c *gin.Context) {
	deleted, err := h.service.Cleanup(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CleanupResult{Deleted: deleted}, nil)
}

// Export godoc
// @Summary Export the audit trail
// @Tags Audit
// @Produce json
// @Param format query string false "json, csv, xlsx or pdf"
// @Success 200 {object} response.Envelope
// @Router /audit/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter, ok := bindAuditQuery(c)
	if !ok {
		return
	}
	res, err := h.exporter.ExportAudit(c.Request.Context(), actor, filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
