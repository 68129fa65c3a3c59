// Package reportpublisher publishes validation run results to NATS so that
// dashboards and CI bots can follow persona content health.
package reportpublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/personacheck/output/report"
	"github.com/c360studio/personacheck/validation"
	"github.com/nats-io/nats.go"
)

const (
	// HeaderRunID carries the run ID; JetStream uses it for deduplication.
	HeaderRunID = "Nats-Msg-Id"
	// HeaderOutcome carries the run outcome for header-based filtering.
	HeaderOutcome = "Personacheck-Outcome"

	defaultConnectTimeout = 5 * time.Second
	defaultFlushTimeout   = 5 * time.Second
)

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Publisher publishes report messages to a subject.
type Publisher struct {
	conn    Conn
	subject string
	logger  *slog.Logger
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn Conn, subject string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, subject: subject, logger: logger}
}

// Connect dials url and returns a publisher. The context deadline, if any,
// bounds the dial.
func Connect(ctx context.Context, url, subject string, logger *slog.Logger) (*Publisher, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before connect: %w", err)
	}

	timeout := defaultConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	nc, err := nats.Connect(url,
		nats.Name("personacheck"),
		nats.Timeout(timeout),
		nats.MaxReconnects(2),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return NewPublisher(nc, subject, logger), nil
}

// Publish sends the run summary and failures and waits for the server to
// acknowledge the flush.
func (p *Publisher) Publish(ctx context.Context, summary *report.Summary, rep *validation.Report) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}

	payload := NewReportMessage(summary, rep)
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("invalid report message: %w", err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal report message: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set(HeaderRunID, summary.RunID)
	msg.Header.Set(HeaderOutcome, summary.Outcome)

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultFlushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", p.subject, err)
	}

	p.logger.Debug("Published report",
		"subject", p.subject,
		"run_id", summary.RunID,
		"bytes", len(data))
	return nil
}

// Close closes the connection.
func (p *Publisher) Close() {
	p.conn.Close()
}
