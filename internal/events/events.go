// Package events publishes assembly outcomes to NATS so that other agents can
// pick up regenerated command documents.
//
// Events are published as JSON to
//
//	{subject}.{run_id}.completed
//	{subject}.{run_id}.failed
//
// where subject is the configured prefix (default "guild.assembly").
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guild/internal/assembler"
	"github.com/fyrsmithlabs/guild/internal/config"
)

// Event statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	// flushTimeout bounds the wait for the server to acknowledge a publish.
	flushTimeout = 5 * time.Second

	maxReconnects = 5
	reconnectWait = time.Second
)

// ErrNoConnection is returned when a NATS publisher has no connection.
var ErrNoConnection = errors.New("events: no NATS connection")

// Event summarizes one assembly run.
type Event struct {
	RunID        string    `json:"run_id"`
	Status       string    `json:"status"`
	Revision     string    `json:"revision,omitempty"`
	Documents    []string  `json:"documents,omitempty"`
	Modules      int       `json:"modules"`
	Invalid      []string  `json:"invalid,omitempty"`
	AverageScore float64   `json:"average_score"`
	Error        string    `json:"error,omitempty"`
	Time         time.Time `json:"time"`
}

// Completed builds the event for a finished run.
func Completed(run *assembler.Run, at time.Time) *Event {
	e := &Event{Status: StatusCompleted, Time: at}
	if run == nil {
		return e
	}
	e.RunID = run.ID
	e.Revision = run.Revision
	e.Modules = len(run.Modules)
	for _, d := range run.Documents {
		e.Documents = append(e.Documents, d.Name)
	}
	for _, m := range run.Invalid() {
		e.Invalid = append(e.Invalid, m.Key)
	}

	var total, scored int
	for _, m := range run.Modules {
		if m.Result != nil && m.Result.Report != nil {
			total += m.Result.Report.Score
			scored++
		}
	}
	if scored > 0 {
		e.AverageScore = float64(total) / float64(scored)
	}
	return e
}

// Failed builds the event for a run that did not complete.
func Failed(runID string, err error, at time.Time) *Event {
	e := &Event{RunID: runID, Status: StatusFailed, Time: at}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Publisher sends assembly events.
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
	Close() error
}

// NATSPublisher publishes events on a NATS connection.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	owned   bool
	logger  *zap.Logger
	token   config.Secret
}

// Option configures a NATSPublisher.
type Option func(*NATSPublisher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *NATSPublisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithToken authenticates the connection opened by Connect.
func WithToken(token config.Secret) Option {
	return func(p *NATSPublisher) {
		p.token = token
	}
}

// NewNATSPublisher publishes on an existing connection. The caller keeps
// ownership of nc.
func NewNATSPublisher(nc *nats.Conn, subject string, opts ...Option) *NATSPublisher {
	p := &NATSPublisher{nc: nc, subject: subject, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials url and returns a publisher that closes the connection on
// Close. An unreachable server does not fail Connect: the connection keeps
// retrying in the background and publishes fail until it is established.
func Connect(url, subject string, opts ...Option) (*NATSPublisher, error) {
	p := NewNATSPublisher(nil, subject, opts...)

	natsOpts := []nats.Option{
		nats.Name("guild"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				p.logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			p.logger.Info("nats connected", zap.String("url", nc.ConnectedUrlRedacted()))
		}),
	}
	if p.token.IsSet() {
		natsOpts = append(natsOpts, nats.Token(p.token.Value()))
	}
	nc, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	p.nc = nc
	p.owned = true
	if nc.IsConnected() {
		p.logger.Debug("connected to nats", zap.String("url", nc.ConnectedUrlRedacted()))
	} else {
		p.logger.Warn("nats unavailable, retrying in background", zap.Int("max_reconnects", maxReconnects))
	}
	return p, nil
}

// Subject returns the subject an event is published to.
func (p *NATSPublisher) Subject(e *Event) string {
	runID := e.RunID
	if runID == "" {
		runID = "unknown"
	}
	return fmt.Sprintf("%s.%s.%s", p.subject, runID, e.Status)
}

// Publish sends e and flushes the connection.
func (p *NATSPublisher) Publish(ctx context.Context, e *Event) error {
	if p.nc == nil {
		return ErrNoConnection
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := p.Subject(e)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s event: %w", e.Status, err)
	}
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s event: %w", e.Status, err)
	}
	p.logger.Debug("published assembly event", zap.String("subject", subject))
	return nil
}

// Close drains the connection when the publisher owns it. A connection that
// never came up is closed without draining.
func (p *NATSPublisher) Close() error {
	if p.nc == nil || !p.owned {
		return nil
	}
	if !p.nc.IsConnected() {
		p.nc.Close()
		return nil
	}
	return p.nc.Drain()
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// Publish does nothing.
func (NoopPublisher) Publish(context.Context, *Event) error { return nil }

// Close does nothing.
func (NoopPublisher) Close() error { return nil }

var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = NoopPublisher{}
)
