// Package rabbitmq publishes domain events to a RabbitMQ topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"vaultline/pkg/platform/circuit"
)

// Publisher publishes JSON events with a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
	Close()
}

// channel is the part of *amqp.Channel the producer uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// EventProducer publishes to one durable topic exchange. While its breaker is
// open and the channel cannot be reopened, events are dropped with a warning
// instead of hitting the broker.
type EventProducer struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  channel
	reopen   func() (channel, error)
	exchange string
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func newBrokerBreaker() *circuit.Breaker {
	return circuit.New("rabbitmq", circuit.WithFailureThreshold(3), circuit.WithSuccessThreshold(1))
}

// NewEventProducer dials amqpURL and declares exchange.
func NewEventProducer(amqpURL, exchange string, logger *slog.Logger) (*EventProducer, error) {
	cleanURL, err := sanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &EventProducer{
		conn:    conn,
		channel: ch,
		reopen: func() (channel, error) {
			if conn.IsClosed() {
				return nil, amqp.ErrClosed
			}
			return conn.Channel()
		},
		exchange: exchange,
		breaker:  newBrokerBreaker(),
		logger:   logger,
	}, nil
}

// Publish sends body as JSON. A skipped publish while the breaker is open
// returns nil; events are best effort.
func (p *EventProducer) Publish(ctx context.Context, routingKey string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if p.breaker.IsOpen() {
		if p.tryReopen() != nil {
			p.logger.WarnContext(ctx, "event dropped, broker circuit open", "routing_key", routingKey)
			return nil
		}
	}

	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	})
	p.mu.Unlock()

	if err != nil {
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.logger.ErrorContext(ctx, "rabbitmq circuit opened", "error", err)
		}
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "rabbitmq circuit closed")
	}
	return nil
}

// tryReopen replaces a closed channel so the next publish can probe the broker.
func (p *EventProducer) tryReopen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil && !p.channel.IsClosed() {
		return nil
	}
	ch, err := p.reopen()
	if err != nil {
		return err
	}
	p.channel = ch
	return nil
}

// Close releases channel and connection resources.
func (p *EventProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct {
	Logger *slog.Logger
}

func (n NoopPublisher) Publish(ctx context.Context, routingKey string, _ any) error {
	if n.Logger != nil {
		n.Logger.DebugContext(ctx, "event publisher disabled", "routing_key", routingKey)
	}
	return nil
}

func (NoopPublisher) Close() {}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("parse amqp url: %w", err)
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
