package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/archive-api/internal/middleware"
	"github.com/noah-isme/archive-api/internal/models"
	"github.com/noah-isme/archive-api/internal/service"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/response"
)

// actorFromContext returns the authenticated actor or writes a 401.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return actor, true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func readUpload(header *multipart.FileHeader) (service.UploadedFile, error) {
	src, err := header.Open()
	if err != nil {
		return service.UploadedFile{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return service.UploadedFile{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file")
	}
	return service.UploadedFile{FileName: header.Filename, MimeType: header.Header.Get("Content-Type"), Data: data}, nil
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
