package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDispatchesByType(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 2})
	done := make(chan Job, 2)
	q.Register(TypeOCR, func(_ context.Context, j Job) error { done <- j; return nil })
	q.Register(TypeCategorize, func(_ context.Context, j Job) error { done <- j; return nil })
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Submit(TypeOCR, "doc-1")
	require.NoError(t, err)
	_, err = q.Submit(TypeCategorize, "doc-2")
	require.NoError(t, err)

	seen := map[string]interface{}{}
	for i := 0; i < 2; i++ {
		select {
		case j := <-done:
			seen[j.Type] = j.Payload
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	assert.Equal(t, "doc-1", seen[TypeOCR])
	assert.Equal(t, "doc-2", seen[TypeCategorize])
}

func TestQueueRejectsUnknownTypeAndUnstarted(t *testing.T) {
	q := NewQueue("test", QueueConfig{})
	_, err := q.Submit(TypeOCR, nil)
	require.Error(t, err)

	q.Start(context.Background())
	defer q.Stop()
	_, err = q.Submit("unknown", nil)
	assert.True(t, errors.Is(err, ErrNoHandler))
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	q := NewQueue("test", QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	var calls atomic.Int32
	done := make(chan struct{})
	q.Register(TypeOCR, func(context.Context, Job) error {
		if calls.Add(1) < 3 {
			return errors.New("tesseract busy")
		}
		close(done)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Submit(TypeOCR, "doc")
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
	assert.Eventually(t, func() bool { return q.Stats().Succeeded == 1 }, time.Second, 5*time.Millisecond)
	stats := q.Stats()
	assert.Equal(t, int64(1), stats.Enqueued)
	assert.Equal(t, int64(2), stats.Retried)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestQueueRecoversPanics(t *testing.T) {
	q := NewQueue("test", QueueConfig{MaxRetries: 0})
	q.Register(TypeCategorize, func(context.Context, Job) error { panic("boom") })
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Submit(TypeCategorize, nil)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return q.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
}

func TestQueueDoesNotRetryPermanentFailures(t *testing.T) {
	q := NewQueue("test", QueueConfig{MaxRetries: 5, RetryDelay: time.Millisecond})
	var calls atomic.Int32
	q.Register(TypeOCR, func(context.Context, Job) error {
		calls.Add(1)
		return Permanent(errors.New("document not found"))
	})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Submit(TypeOCR, "ghost")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return q.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, q.Stats().Retried)
}

func TestQueueJobTimeoutCancelsHandler(t *testing.T) {
	q := NewQueue("test", QueueConfig{JobTimeout: 10 * time.Millisecond})
	q.Register(TypeOCR, func(ctx context.Context, _ Job) error {
		<-ctx.Done()
		return ctx.Err()
	})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Submit(TypeOCR, "slow")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return q.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
}

func TestQueueBackoffDoublesUpToCap(t *testing.T) {
	q := NewQueue("test", QueueConfig{RetryDelay: time.Second, MaxRetryDelay: 5 * time.Second})
	assert.Equal(t, time.Second, q.backoff(1))
	assert.Equal(t, 2*time.Second, q.backoff(2))
	assert.Equal(t, 4*time.Second, q.backoff(3))
	assert.Equal(t, 5*time.Second, q.backoff(4))
	assert.Equal(t, 5*time.Second, q.backoff(10))

	assert.False(t, IsPermanent(errors.New("x")))
	assert.Nil(t, Permanent(nil))
}

func TestQueueSubmitAfterStop(t *testing.T) {
	q := NewQueue("test", QueueConfig{})
	q.Register(TypeOCR, func(context.Context, Job) error { return nil })
	q.Start(context.Background())
	q.Stop()

	_, err := q.Submit(TypeOCR, "late")
	assert.ErrorIs(t, err, ErrNotRunning)
}
