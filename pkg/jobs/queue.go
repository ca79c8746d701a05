// Package jobs runs archive background work (OCR, auto-categorization) on an in-process worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job types understood by the archive workers.
const (
	TypeOCR        = "document.ocr"
	TypeCategorize = "document.categorize"
)

var (
	// ErrNoHandler is returned when a job type has no registered handler.
	ErrNoHandler = errors.New("no handler registered for job type")
	// ErrNotRunning is returned by Submit before Start or after Stop.
	ErrNotRunning = errors.New("queue is not running")
)

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err so the queue records the job as failed without retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Job is one unit of background work. Payload is usually a document id.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig sizes the pool. RetryDelay doubles per attempt up to MaxRetryDelay.
type QueueConfig struct {
	Workers       int
	BufferSize    int
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	JobTimeout    time.Duration
	Logger        *zap.Logger
}

// Stats is a point in time view of the queue.
type Stats struct {
	Enqueued  int64 `json:"enqueued"`
	Succeeded int64 `json:"succeeded"`
	Retried   int64 `json:"retried"`
	Failed    int64 `json:"failed"`
	Running   int64 `json:"running"`
	Pending   int   `json:"pending"`
}

// Queue dispatches jobs by Type to registered handlers.
type Queue struct {
	name string
	cfg  QueueConfig
	log  *zap.SugaredLogger

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	pending chan Job

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup

	enqueued, succeeded, retried, failed, inFlight atomic.Int64
}

// NewQueue builds a queue. Register handlers before Start.
func NewQueue(name string, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	cfg.MaxRetries = max(cfg.MaxRetries, 0)
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxRetryDelay < cfg.RetryDelay {
		cfg.MaxRetryDelay = max(time.Minute, cfg.RetryDelay)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:     name,
		cfg:      cfg,
		log:      cfg.Logger.Sugar().With("queue", name),
		handlers: make(map[string]Handler),
		pending:  make(chan Job, cfg.BufferSize),
	}
}

// Register binds handler to jobType, replacing any previous binding.
func (q *Queue) Register(jobType string, handler Handler) {
	q.handlersMu.Lock()
	q.handlers[jobType] = handler
	q.handlersMu.Unlock()
}

// Start launches the workers. Calls after the first are ignored.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running || q.ctx != nil {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.running = true
	q.wg.Add(q.cfg.Workers)
	for i := 0; i < q.cfg.Workers; i++ {
		go q.work()
	}
	q.log.Infow("queue started", "workers", q.cfg.Workers)
}

// Stop cancels in-flight jobs and pending retries and waits for the workers.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.log.Infow("queue stopped", "dropped", len(q.pending))
}

// Submit enqueues payload as a new job of jobType and returns its id.
func (q *Queue) Submit(jobType string, payload interface{}) (string, error) {
	job := Job{ID: uuid.NewString(), Type: jobType, Payload: payload, Enqueued: time.Now().UTC()}
	if err := q.push(job); err != nil {
		return "", err
	}
	q.enqueued.Add(1)
	return job.ID, nil
}

// Stats reports counters since construction.
func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued:  q.enqueued.Load(),
		Succeeded: q.succeeded.Load(),
		Retried:   q.retried.Load(),
		Failed:    q.failed.Load(),
		Running:   q.inFlight.Load(),
		Pending:   len(q.pending),
	}
}

func (q *Queue) push(job Job) error {
	q.mu.Lock()
	running, ctx := q.running, q.ctx
	q.mu.Unlock()
	if !running {
		return fmt.Errorf("%s: %w", q.name, ErrNotRunning)
	}
	if q.lookup(job.Type) == nil {
		return fmt.Errorf("%w: %s", ErrNoHandler, job.Type)
	}
	select {
	case q.pending <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", q.name, ErrNotRunning)
	}
}

func (q *Queue) lookup(jobType string) Handler {
	q.handlersMu.RLock()
	defer q.handlersMu.RUnlock()
	return q.handlers[jobType]
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.pending:
			q.process(job)
		}
	}
}

func (q *Queue) process(job Job) {
	q.inFlight.Add(1)
	err := q.invoke(job)
	q.inFlight.Add(-1)

	switch {
	case err == nil:
		q.succeeded.Add(1)
	case IsPermanent(err) || job.Attempt >= q.cfg.MaxRetries || q.ctx.Err() != nil:
		q.failed.Add(1)
		q.log.Errorw("job failed", "job_id", job.ID, "type", job.Type, "attempts", job.Attempt+1, "error", err)
	default:
		job.Attempt++
		q.retried.Add(1)
		delay := q.backoff(job.Attempt)
		q.log.Warnw("job failed, retrying", "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "delay", delay, "error", err)
		q.wg.Add(1)
		go q.retryAfter(job, delay)
	}
}

// invoke runs the handler with the configured timeout and turns panics into errors.
func (q *Queue) invoke(job Job) (err error) {
	handler := q.lookup(job.Type)
	if handler == nil {
		return Permanent(fmt.Errorf("%w: %s", ErrNoHandler, job.Type))
	}
	ctx := q.ctx
	if q.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.JobTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("job panicked: %v", r))
		}
	}()
	return handler(ctx, job)
}

func (q *Queue) backoff(attempt int) time.Duration {
	delay := q.cfg.RetryDelay
	for i := 1; i < attempt && delay < q.cfg.MaxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, q.cfg.MaxRetryDelay)
}

func (q *Queue) retryAfter(job Job, delay time.Duration) {
	defer q.wg.Done()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-q.ctx.Done():
	case <-timer.C:
		if err := q.push(job); err != nil {
			q.failed.Add(1)
			q.log.Errorw("requeue failed", "job_id", job.ID, "error", err)
		}
	}
}
