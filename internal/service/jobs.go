package service

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/jobs"
)

type jobRegistrar interface {
	Register(jobType string, handler jobs.Handler)
}

// RegisterJobHandlers binds the OCR and categorization workers. Categorization follows OCR when enabled.
func RegisterJobHandlers(queue jobRegistrar, documents *DocumentService, rules autoCategorizer, autoCategorize bool, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	queue.Register(jobs.TypeOCR, func(ctx context.Context, job jobs.Job) error {
		id, err := jobDocumentID(job)
		if err != nil {
			return err
		}
		actor := models.SystemActor("ocr-worker")
		if _, err := documents.ProcessOCR(ctx, actor, id); err != nil {
			return classify(err)
		}
		if autoCategorize && rules != nil {
			if _, err := rules.AutoCategorize(ctx, actor, id); err != nil {
				logger.Warn("categorization after OCR failed", zap.String("document_id", id), zap.Error(err))
			}
			documents.invalidate(ctx)
		}
		return nil
	})
	queue.Register(jobs.TypeCategorize, func(ctx context.Context, job jobs.Job) error {
		id, err := jobDocumentID(job)
		if err != nil {
			return err
		}
		if rules == nil {
			return nil
		}
		if _, err := rules.AutoCategorize(ctx, models.SystemActor("categorize-worker"), id); err != nil {
			return classify(err)
		}
		documents.invalidate(ctx)
		return nil
	})
}

func jobDocumentID(job jobs.Job) (string, error) {
	id, ok := job.Payload.(string)
	if !ok || id == "" {
		return "", jobs.Permanent(fmt.Errorf("job %s: payload must be a document id", job.ID))
	}
	return id, nil
}

// classify marks client side failures permanent so the queue only retries server errors.
func classify(err error) error {
	if appErrors.FromError(err).Status < http.StatusInternalServerError {
		return jobs.Permanent(err)
	}
	return err
}
