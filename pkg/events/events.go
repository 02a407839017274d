// Package events publishes domain events for other services to react to.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

const (
	SubjectPublicationProcessed = "umbra.publication.processed"
	SubjectGraphBuilt           = "umbra.graph.built"
	SubjectGapsIdentified       = "umbra.gaps.identified"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close()
}

type noop struct{}

func NewNoop() Publisher                                { return noop{} }
func (noop) Publish(context.Context, string, any) error { return nil }
func (noop) Close()                                     {}

type natsPublisher struct {
	nc  *nats.Conn
	log *slog.Logger
}

// NewNATS connects to url and publishes JSON payloads on core NATS subjects.
func NewNATS(url string, log *slog.Logger) (Publisher, error) {
	if log == nil {
		log = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("umbra"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) { log.Info("nats reconnected", "url", c.ConnectedUrl()) }),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &natsPublisher{nc: nc, log: log}, nil
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.nc.Publish(subject, b); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *natsPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.log.Warn("nats drain", "error", err)
	}
}

// Event is one captured publication of a Memory publisher.
type Event struct {
	Subject string
	Payload any
}

// Memory keeps events in process so callers can inspect what was published.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Publish(_ context.Context, subject string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Event{Subject: subject, Payload: payload})
	return nil
}

func (m *Memory) Close() {}

func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
