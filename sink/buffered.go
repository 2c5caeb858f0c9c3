package sink

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BufferedSink hands records to a background worker so Write never blocks
// on the wrapped sink. When the queue is full the record is rejected with
// ErrBufferFull.
type BufferedSink struct {
	next         Sink
	queue        chan Record
	logger       *slog.Logger
	writeTimeout time.Duration
	closed       bool
	mu           sync.RWMutex
	wg           sync.WaitGroup
}

// BufferedSinkOption configures the buffered sink
type BufferedSinkOption func(*BufferedSink)

// WithBufferLogger sets the logger used for background write failures
func WithBufferLogger(logger *slog.Logger) BufferedSinkOption {
	return func(s *BufferedSink) {
		s.logger = logger
	}
}

// WithWriteTimeout bounds each background write
func WithWriteTimeout(timeout time.Duration) BufferedSinkOption {
	return func(s *BufferedSink) {
		s.writeTimeout = timeout
	}
}

// NewBufferedSink wraps next with a queue of the given size
func NewBufferedSink(next Sink, size int, opts ...BufferedSinkOption) *BufferedSink {
	if size <= 0 {
		size = 1024
	}

	s := &BufferedSink{
		next:         next,
		queue:        make(chan Record, size),
		logger:       slog.Default(),
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.run()

	return s
}

// Write implements Sink
func (s *BufferedSink) Write(ctx context.Context, rec Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.queue <- rec:
		return nil
	default:
		return ErrBufferFull
	}
}

// Pending returns the number of queued records
func (s *BufferedSink) Pending() int {
	return len(s.queue)
}

// Close stops accepting records and waits for queued records to drain.
// It does not close the wrapped sink.
func (s *BufferedSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *BufferedSink) run() {
	defer s.wg.Done()

	for rec := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		if err := s.next.Write(ctx, rec); err != nil {
			s.logger.Error("buffered event write failed",
				"schemaId", rec.Key.ID,
				"version", rec.Key.Version,
				"error", err,
			)
		}
		cancel()
	}
}
