package rabbitmq

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel the publisher uses
type Channel interface {
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	IsClosed() bool
	Close() error
}

// ChannelOpener opens channels; ConnectionManager is the production opener
type ChannelOpener interface {
	OpenChannel() (Channel, error)
}

// Publisher publishes messages on a confirm-mode channel
type Publisher struct {
	opener         ChannelOpener
	ch             Channel
	confirms       chan amqp.Confirmation
	confirmTimeout time.Duration
	closed         bool
	mu             sync.Mutex
}

// PublisherOption configures the publisher
type PublisherOption func(*Publisher)

// WithConfirmTimeout sets the confirmation timeout
func WithConfirmTimeout(timeout time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.confirmTimeout = timeout
	}
}

// NewPublisher creates a new publisher
func NewPublisher(opener ChannelOpener, options ...PublisherOption) *Publisher {
	p := &Publisher{
		opener:         opener,
		confirmTimeout: 5 * time.Second,
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// DeclareExchange declares a durable exchange
func (p *Publisher) DeclareExchange(name, kind string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(name, kind, true, false, false, false, nil); err != nil {
		p.reset()
		return err
	}
	return nil
}

// Publish publishes a message and waits for the broker confirmation
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	fail := func(err error) error {
		return &PublishError{Exchange: exchange, RoutingKey: routingKey, Err: err, Timestamp: time.Now()}
	}

	ch, err := p.channel()
	if err != nil {
		return fail(err)
	}

	if err := ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
		p.reset()
		return fail(err)
	}

	timer := time.NewTimer(p.confirmTimeout)
	defer timer.Stop()

	select {
	case confirm, ok := <-p.confirms:
		if !ok {
			p.reset()
			return fail(ErrChannelClosed)
		}
		if !confirm.Ack {
			return fail(ErrPublishNotConfirmed)
		}
		return nil
	case <-timer.C:
		p.reset()
		return fail(ErrPublishTimeout)
	case <-ctx.Done():
		// The confirmation for this message is still in flight
		p.reset()
		return fail(ctx.Err())
	}
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.ch != nil {
		err := p.ch.Close()
		p.ch = nil
		p.confirms = nil
		return err
	}
	return nil
}

// channel returns the open confirm-mode channel, opening one if needed.
// Must be called with mu held.
func (p *Publisher) channel() (Channel, error) {
	if p.closed {
		return nil, ErrPublisherClosed
	}
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	ch, err := p.opener.OpenChannel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, err
	}
	p.ch = ch
	p.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return ch, nil
}

// reset drops the current channel. Must be called with mu held.
func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	p.ch = nil
	p.confirms = nil
}
