package sink

import (
	"context"
	"fmt"

	"github.com/glimte/mmate-events/internal/reliability"
	"github.com/redis/go-redis/v9"
)

// StreamAdder is the subset of a go-redis client the stream sink uses
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamSink appends every event to a Redis stream
type RedisStreamSink struct {
	client  StreamAdder
	stream  string
	maxLen  int64
	breaker *reliability.CircuitBreaker
	closer  func() error
}

// RedisSinkOption configures the Redis stream sink
type RedisSinkOption func(*RedisStreamSink)

// WithMaxLen caps the stream length (approximate trimming)
func WithMaxLen(maxLen int64) RedisSinkOption {
	return func(s *RedisStreamSink) {
		s.maxLen = maxLen
	}
}

// WithRedisCircuitBreaker sets the breaker guarding XADD
func WithRedisCircuitBreaker(cb *reliability.CircuitBreaker) RedisSinkOption {
	return func(s *RedisStreamSink) {
		s.breaker = cb
	}
}

// NewRedisStreamSink creates a sink appending to stream
func NewRedisStreamSink(client StreamAdder, stream string, opts ...RedisSinkOption) *RedisStreamSink {
	s := &RedisStreamSink{
		client: client,
		stream: stream,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = reliability.NewCircuitBreaker(reliability.WithName("redis-sink:" + stream))
	}
	return s
}

// DialRedisStreamSink parses url, pings the server and returns a sink that
// owns the client.
func DialRedisStreamSink(ctx context.Context, url, stream string, opts ...RedisSinkOption) (*RedisStreamSink, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis sink: %w", err)
	}

	s := NewRedisStreamSink(client, stream, opts...)
	s.closer = client.Close
	return s, nil
}

// Breaker returns the circuit breaker guarding XADD
func (s *RedisStreamSink) Breaker() *reliability.CircuitBreaker {
	return s.breaker
}

// Ping checks the server when the client supports PING
func (s *RedisStreamSink) Ping(ctx context.Context) error {
	pinger, ok := s.client.(interface {
		Ping(ctx context.Context) *redis.StatusCmd
	})
	if !ok {
		return nil
	}
	return pinger.Ping(ctx).Err()
}

// Write implements Sink
func (s *RedisStreamSink) Write(ctx context.Context, rec Record) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"schema":  rec.Key.ID,
			"version": rec.Key.Version,
			"event":   string(rec.Body),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	return s.breaker.Execute(ctx, func() error {
		if err := s.client.XAdd(ctx, args).Err(); err != nil {
			return fmt.Errorf("redis XADD to %s failed: %w", s.stream, err)
		}
		return nil
	})
}

// Close closes the client when the sink was created by DialRedisStreamSink
func (s *RedisStreamSink) Close() error {
	if s.closer == nil {
		return nil
	}
	closeFn := s.closer
	s.closer = nil
	return closeFn()
}
