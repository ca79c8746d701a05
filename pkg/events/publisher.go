// Package events publishes archive audit events to NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/noah-isme/archive-api/pkg/resilience"
)

// Publisher sends a payload on a subject derived from an event name.
type Publisher interface {
	Publish(ctx context.Context, event string, payload interface{}) error
	Close()
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NopPublisher) Close()                                             {}

// Options configures the NATS connection.
type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	Executor       *resilience.Executor
	Logger         *zap.Logger
}

type natsConn interface {
	Publish(subject string, data []byte) error
	Close()
}

// NATSPublisher publishes JSON events on `<prefix>.<event_slug>`.
type NATSPublisher struct {
	conn     natsConn
	prefix   string
	executor *resilience.Executor
	logger   *zap.Logger
}

// NewNATSPublisher connects to url. An empty url yields a NopPublisher.
func NewNATSPublisher(url, prefix string, opts Options) (Publisher, error) {
	if strings.TrimSpace(url) == "" {
		return NopPublisher{}, nil
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 2 * time.Second
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 60
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	logger := opts.Logger

	conn, err := nats.Connect(
		url,
		nats.Name("archive-api"),
		nats.Timeout(opts.ConnectTimeout),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newNATSPublisher(conn, prefix, opts.Executor, logger), nil
}

func newNATSPublisher(conn natsConn, prefix string, executor *resilience.Executor, logger *zap.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = "archive.audit"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, prefix: prefix, executor: executor, logger: logger}
}

// Subject returns the subject used for event.
func (p *NATSPublisher) Subject(event string) string {
	return p.prefix + "." + Slug(event)
}

func (p *NATSPublisher) Publish(ctx context.Context, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event, err)
	}
	subject := p.Subject(event)
	call := func(context.Context) error {
		if err := p.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}
	if p.executor != nil {
		err = p.executor.Execute(ctx, "nats.publish", call, classify)
	} else {
		err = call(ctx)
	}
	return err
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

func classify(err error) resilience.ErrorClassification {
	switch {
	case errors.Is(err, nats.ErrConnectionClosed), errors.Is(err, nats.ErrBadSubject), errors.Is(err, nats.ErrMaxPayload):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	case errors.Is(err, nats.ErrTimeout), errors.Is(err, nats.ErrConnectionReconnecting), errors.Is(err, nats.ErrNoServers):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}

// Slug lowercases event and replaces non-alphanumerics with '_' ("Document Created" -> "document_created").
func Slug(event string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.TrimSpace(event) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}
