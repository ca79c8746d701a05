package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/archive-api/internal/dto"
	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/internal/service"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, actor models.Actor, meta dto.UploadDocumentRequest, file service.UploadedFile) (*models.Document, error)
	BulkUpload(ctx context.Context, actor models.Actor, items []service.BulkUploadItem) (*dto.BulkUploadResult, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.DocumentDetail, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateDocumentRequest) (*models.Document, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Search(ctx context.Context, actor models.Actor, req dto.SearchDocumentsRequest) (*dto.SearchDocumentsResponse, error)
	DownloadURL(ctx context.Context, actor models.Actor, id, versionID string) (*dto.DownloadURLResponse, error)
	Download(ctx context.Context, token string) (*service.DocumentDownload, error)
	ProcessOCR(ctx context.Context, actor models.Actor, id string) (*dto.OCRResponse, error)
	Encrypt(ctx context.Context, actor models.Actor, id string) (*models.Document, error)
	Decrypt(ctx context.Context, actor models.Actor, id string) (*models.Document, error)
	Statistics(ctx context.Context) (*models.DocumentStatistics, error)
}

type documentCategorizer interface {
	AutoCategorize(ctx context.Context, actor models.Actor, documentID string) (*models.CategorizationResult, error)
}

// maxBulkFiles caps a single bulk upload request.
const maxBulkFiles = 100

// DocumentHandler exposes document endpoints.
type DocumentHandler struct {
	service documentService
	rules   documentCategorizer
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(svc documentService, rules documentCategorizer) *DocumentHandler {
	return &DocumentHandler{service: svc, rules: rules}
}

// Upload godoc
// @Summary Upload a document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param document_type_id formData string true "Document type"
// @Param category_id formData string true "Category"
// @Param subcategory_id formData string false "Subcategory"
// @Param access_level formData string false "Public, Internal, Confidential or Restricted"
// @Param run_ocr formData bool false "Run OCR"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var meta dto.UploadDocumentRequest
	if err := c.ShouldBind(&meta); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document metadata"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := readUpload(header)
	if err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.service.Upload(c.Request.Context(), actor, meta, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// BulkUpload godoc
// @Summary Upload several files sharing the same metadata
// @Description Each file becomes its own document titled after the file name. Failures are reported per item.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param document_type_id formData string true "Document type"
// @Param category_id formData string true "Category"
// @Param files formData file true "Documents"
// @Success 200 {object} response.Envelope
// @Router /documents/bulk [post]
func (h *DocumentHandler) BulkUpload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var meta dto.UploadDocumentRequest
	if err := c.ShouldBind(&meta); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document metadata"))
		return
	}
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "files are required"))
		return
	}
	headers := form.File["files"]
	if len(headers) > maxBulkFiles {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d files per request", maxBulkFiles)))
		return
	}
	items := make([]service.BulkUploadItem, 0, len(headers))
	for _, header := range headers {
		file, err := readUpload(header)
		if err != nil {
			response.Error(c, err)
			return
		}
		itemMeta := meta
		itemMeta.DocumentID = ""
		if strings.TrimSpace(itemMeta.Title) == "" {
			itemMeta.Title = header.Filename
		}
		items = append(items, service.BulkUploadItem{Meta: itemMeta, File: file})
	}
	res, err := h.service.BulkUpload(c.Request.Context(), actor, items)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Search godoc
// @Summary Search documents
// @Tags Documents
// @Produce json
// @Param q query string false "Text query"
// @Param status query string false "Status"
// @Param category_id query string false "Category"
// @Param access_level query string false "Access level"
// @Param from query string false "Created from (YYYY-MM-DD)"
// @Param to query string false "Created to (YYYY-MM-DD)"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) Search(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SearchDocumentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid search parameters"))
		return
	}
	res, err := h.service.Search(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, res.Documents, res.Limit, res.Offset, res.Total)
}

// Get godoc
// @Summary Get a document with versions, relationships and recent audit entries
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Update document metadata
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.UpdateDocumentRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [put]
func (h *DocumentHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateDocumentRequest
	if !bindJSON(c, &req, "invalid document payload") {
		return
	}
	doc, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Delete godoc
// @Summary Delete a document once its retention period has elapsed
// @Tags Documents
// @Param id path string true "Document ID"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DownloadURL godoc
// @Summary Issue a signed download link
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Param version_id query string false "Version, defaults to current"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/download-url [get]
func (h *DocumentHandler) DownloadURL(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	res, err := h.service.DownloadURL(c.Request.Context(), actor, c.Param("id"), strings.TrimSpace(c.Query("version_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Download godoc
// @Summary Download a document via signed token
// @Tags Documents
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /documents/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	mime := file.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.FileName))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, mime, file.Data)
}

// ProcessOCR godoc
// @Summary Run OCR on the current file
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /documents/{id}/ocr [post]
func (h *DocumentHandler) ProcessOCR(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	res, err := h.service.ProcessOCR(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Encrypt godoc
// @Summary Encrypt every stored version of a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/encrypt [post]
func (h *DocumentHandler) Encrypt(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	doc, err := h.service.Encrypt(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Decrypt godoc
// @Summary Decrypt every stored version of a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/decrypt [post]
func (h *DocumentHandler) Decrypt(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	doc, err := h.service.Decrypt(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Categorize godoc
// @Summary Apply category rules to one document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/categorize [post]
func (h *DocumentHandler) Categorize(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if h.rules == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "categorization is not configured"))
		return
	}
	res, err := h.rules.AutoCategorize(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Statistics godoc
// @Summary Document counts and top categories
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /documents/statistics [get]
func (h *DocumentHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
