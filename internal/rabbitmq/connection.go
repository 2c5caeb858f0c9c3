package rabbitmq

import (
	"context"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConnectionManager manages the RabbitMQ connection with automatic reconnection
type ConnectionManager struct {
	url            string
	conn           *amqp.Connection
	mu             sync.RWMutex
	reconnectDelay time.Duration
	maxDelay       time.Duration
	dialTimeout    time.Duration
	logger         *slog.Logger
	done           chan struct{}
	closed         bool
}

// ConnectionOption configures the ConnectionManager
type ConnectionOption func(*ConnectionManager)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.logger = logger
	}
}

// WithReconnectDelay sets the initial and maximum reconnection delay
func WithReconnectDelay(initial, max time.Duration) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.reconnectDelay = initial
		cm.maxDelay = max
	}
}

// WithDialTimeout bounds a single dial attempt
func WithDialTimeout(timeout time.Duration) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.dialTimeout = timeout
	}
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(url string, options ...ConnectionOption) *ConnectionManager {
	cm := &ConnectionManager{
		url:            url,
		reconnectDelay: time.Second,
		maxDelay:       30 * time.Second,
		dialTimeout:    30 * time.Second,
		logger:         slog.Default(),
		done:           make(chan struct{}),
	}

	for _, opt := range options {
		opt(cm)
	}

	return cm
}

// Connect establishes the initial connection
func (cm *ConnectionManager) Connect(ctx context.Context) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.closed {
		return ErrConnectionClosed
	}
	if cm.conn != nil && !cm.conn.IsClosed() {
		return nil
	}

	conn, err := cm.dial(ctx)
	if err != nil {
		return err
	}
	cm.attach(conn)

	cm.logger.Info("connected to RabbitMQ", "url", SanitizeURL(cm.url))
	return nil
}

// OpenChannel opens a new channel on the current connection
func (cm *ConnectionManager) OpenChannel() (Channel, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.closed {
		return nil, ErrConnectionClosed
	}
	if cm.conn == nil || cm.conn.IsClosed() {
		return nil, ErrConnectionNotReady
	}
	ch, err := cm.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// IsConnected returns the connection status
func (cm *ConnectionManager) IsConnected() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn != nil && !cm.conn.IsClosed()
}

// Close closes the connection and stops reconnecting
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.closed {
		return nil
	}
	cm.closed = true
	close(cm.done)

	if cm.conn != nil {
		err := cm.conn.Close()
		cm.conn = nil
		return err
	}
	return nil
}

func (cm *ConnectionManager) dial(ctx context.Context) (*amqp.Connection, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cm.dialTimeout)
	defer cancel()

	type result struct {
		conn *amqp.Connection
		err  error
	}
	results := make(chan result, 1)
	go func() {
		conn, err := amqp.Dial(cm.url)
		results <- result{conn: conn, err: err}
	}()

	select {
	case r := <-results:
		if r.err != nil {
			return nil, &ConnectionError{Op: "dial", URL: SanitizeURL(cm.url), Err: r.err, Timestamp: time.Now()}
		}
		return r.conn, nil
	case <-dialCtx.Done():
		// Close a connection that completes after the timeout
		go func() {
			if r := <-results; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, &ConnectionError{Op: "dial", URL: SanitizeURL(cm.url), Err: ErrConnectionTimeout, Timestamp: time.Now()}
	}
}

// attach must be called with mu held
func (cm *ConnectionManager) attach(conn *amqp.Connection) {
	cm.conn = conn
	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))
	go cm.watch(notifyClose)
}

func (cm *ConnectionManager) watch(notifyClose chan *amqp.Error) {
	select {
	case err := <-notifyClose:
		select {
		case <-cm.done:
			return
		default:
		}
		cm.logger.Error("RabbitMQ connection lost", "error", err)
		cm.reconnect()
	case <-cm.done:
	}
}

func (cm *ConnectionManager) reconnect() {
	delay := cm.reconnectDelay
	for attempt := 1; ; attempt++ {
		select {
		case <-time.After(delay):
		case <-cm.done:
			return
		}

		conn, err := cm.dial(context.Background())
		if err != nil {
			cm.logger.Error("reconnection failed", "attempt", attempt, "nextRetryIn", delay, "error", err)
			delay *= 2
			if delay > cm.maxDelay {
				delay = cm.maxDelay
			}
			continue
		}

		cm.mu.Lock()
		if cm.closed {
			cm.mu.Unlock()
			_ = conn.Close()
			return
		}
		cm.attach(conn)
		cm.mu.Unlock()

		cm.logger.Info("reconnected to RabbitMQ", "attempts", attempt)
		return
	}
}
