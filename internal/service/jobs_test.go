package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/internal/models"
	appErrors "github.com/noah-isme/archive-api/pkg/errors"
	"github.com/noah-isme/archive-api/pkg/jobs"
)

type mapRegistrar map[string]jobs.Handler

func (m mapRegistrar) Register(jobType string, handler jobs.Handler) {
	m[jobType] = handler
}

func TestRegisterJobHandlersOCRThenCategorize(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})
	doc, err := f.svc.Upload(context.Background(), userActor, uploadMeta("scan"), textFile("scan.txt", "invoice"))
	require.NoError(t, err)
	f.rules.calls = nil

	reg := mapRegistrar{}
	RegisterJobHandlers(reg, f.svc, f.rules, true, zap.NewNop())
	require.Contains(t, reg, jobs.TypeOCR)
	require.Contains(t, reg, jobs.TypeCategorize)

	require.NoError(t, reg[jobs.TypeOCR](context.Background(), jobs.Job{ID: "j1", Type: jobs.TypeOCR, Payload: doc.ID}))
	assert.Equal(t, models.OCRCompleted, f.docs.docs[doc.ID].OCRStatus)
	assert.Equal(t, []string{doc.ID}, f.rules.calls)

	require.NoError(t, reg[jobs.TypeCategorize](context.Background(), jobs.Job{ID: "j2", Type: jobs.TypeCategorize, Payload: doc.ID}))
	assert.Len(t, f.rules.calls, 2)
}

func TestRegisterJobHandlersRejectsBadPayload(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})
	reg := mapRegistrar{}
	RegisterJobHandlers(reg, f.svc, nil, false, nil)

	err := reg[jobs.TypeOCR](context.Background(), jobs.Job{ID: "j1", Payload: 42})
	require.Error(t, err)
	assert.True(t, jobs.IsPermanent(err))
	require.NoError(t, reg[jobs.TypeCategorize](context.Background(), jobs.Job{ID: "j2", Payload: "doc"}))
}

func TestRegisterJobHandlersRetryPolicy(t *testing.T) {
	f := newDocumentFixture(t, true, DocumentServiceConfig{})
	doc, err := f.svc.Upload(context.Background(), userActor, uploadMeta("scan"), textFile("scan.txt", "x"))
	require.NoError(t, err)
	reg := mapRegistrar{}
	RegisterJobHandlers(reg, f.svc, f.rules, false, zap.NewNop())

	err = reg[jobs.TypeOCR](context.Background(), jobs.Job{ID: "j1", Payload: "ghost"})
	require.Error(t, err)
	assert.True(t, jobs.IsPermanent(err))

	f.ocr.err = errors.New("tesseract crashed")
	err = reg[jobs.TypeOCR](context.Background(), jobs.Job{ID: "j2", Payload: doc.ID})
	require.Error(t, err)
	assert.False(t, jobs.IsPermanent(err))
	assert.Equal(t, appErrors.ErrUnavailable.Code, appErrors.FromError(err).Code)
}
