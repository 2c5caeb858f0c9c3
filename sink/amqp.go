package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glimte/mmate-events/contracts"
	"github.com/glimte/mmate-events/internal/rabbitmq"
	"github.com/glimte/mmate-events/internal/reliability"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher publishes one message to an exchange
type AMQPPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// AMQPSink publishes every event to a RabbitMQ exchange
type AMQPSink struct {
	publisher  AMQPPublisher
	exchange   string
	routingKey func(contracts.SchemaKey) string
	persistent bool
	breaker    *reliability.CircuitBreaker
	conn       *rabbitmq.ConnectionManager
	closers    []func() error
}

// AMQPSinkOption configures the AMQP sink
type AMQPSinkOption func(*AMQPSink)

// WithExchange sets the exchange name
func WithExchange(exchange string) AMQPSinkOption {
	return func(s *AMQPSink) {
		s.exchange = exchange
	}
}

// WithRoutingKey sets the routing key function
func WithRoutingKey(fn func(contracts.SchemaKey) string) AMQPSinkOption {
	return func(s *AMQPSink) {
		s.routingKey = fn
	}
}

// WithPersistent sets the delivery mode
func WithPersistent(persistent bool) AMQPSinkOption {
	return func(s *AMQPSink) {
		s.persistent = persistent
	}
}

// WithAMQPCircuitBreaker sets the breaker guarding publishes
func WithAMQPCircuitBreaker(cb *reliability.CircuitBreaker) AMQPSinkOption {
	return func(s *AMQPSink) {
		s.breaker = cb
	}
}

// DefaultRoutingKey routes by schema identity: events.<id>.v<version>
func DefaultRoutingKey(key contracts.SchemaKey) string {
	return fmt.Sprintf("events.%s.v%d", key.ID, key.Version)
}

// NewAMQPSink creates a sink publishing through publisher
func NewAMQPSink(publisher AMQPPublisher, opts ...AMQPSinkOption) *AMQPSink {
	s := &AMQPSink{
		publisher:  publisher,
		exchange:   "mmate.events",
		routingKey: DefaultRoutingKey,
		persistent: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = reliability.NewCircuitBreaker(reliability.WithName("amqp-sink:" + s.exchange))
	}
	return s
}

// DialAMQPSink connects to url, declares a topic exchange and returns a
// sink that owns the connection.
func DialAMQPSink(ctx context.Context, url string, logger *slog.Logger, opts ...AMQPSinkOption) (*AMQPSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn := rabbitmq.NewConnectionManager(url, rabbitmq.WithLogger(logger))
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect AMQP sink: %w", err)
	}
	publisher := rabbitmq.NewPublisher(conn)

	s := NewAMQPSink(publisher, opts...)
	if err := publisher.DeclareExchange(s.exchange, amqp.ExchangeTopic); err != nil {
		_ = publisher.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", s.exchange, err)
	}
	s.conn = conn
	s.closers = append(s.closers, publisher.Close, conn.Close)
	return s, nil
}

// Breaker returns the circuit breaker guarding publishes
func (s *AMQPSink) Breaker() *reliability.CircuitBreaker {
	return s.breaker
}

// Ping reports whether the broker connection is up. Sinks built on an
// injected publisher have no connection to check.
func (s *AMQPSink) Ping(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	if !s.conn.IsConnected() {
		return rabbitmq.ErrConnectionClosed
	}
	return ctx.Err()
}

// Write implements Sink
func (s *AMQPSink) Write(ctx context.Context, rec Record) error {
	msg := amqp.Publishing{
		ContentType: "application/json",
		MessageId:   uuid.NewString(),
		Timestamp:   rec.Timestamp,
		Type:        rec.Key.ID,
		Headers: amqp.Table{
			"x-schema-id":        rec.Key.ID,
			"x-schema-version":   int64(rec.Key.Version),
			"x-metadata-version": int64(contracts.MetadataVersion),
		},
		Body: rec.Body,
	}
	if s.persistent {
		msg.DeliveryMode = amqp.Persistent
	} else {
		msg.DeliveryMode = amqp.Transient
	}

	routingKey := s.routingKey(rec.Key)
	return s.breaker.Execute(ctx, func() error {
		return s.publisher.Publish(ctx, s.exchange, routingKey, msg)
	})
}

// Close releases the connection when the sink was created by DialAMQPSink
func (s *AMQPSink) Close() error {
	var firstErr error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
