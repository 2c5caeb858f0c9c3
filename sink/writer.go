package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// WriterSink writes newline-delimited JSON records to an io.Writer
type WriterSink struct {
	w      io.Writer
	closer io.Closer
	closed bool
	mu     sync.Mutex
}

// NewWriterSink creates a sink writing to w. The caller owns w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// NewStdoutSink creates a sink writing to standard output
func NewStdoutSink() *WriterSink {
	return NewWriterSink(os.Stdout)
}

// OpenFileSink opens path in append mode, creating it if needed.
// The returned sink owns the file; call Close to release it.
func OpenFileSink(path string) (*WriterSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event file %s: %w", path, err)
	}
	return &WriterSink{w: f, closer: f}, nil
}

// Write implements Sink
func (s *WriterSink) Write(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	line := make([]byte, 0, len(rec.Body)+1)
	line = append(append(line, rec.Body...), '\n')
	_, err := s.w.Write(line)
	return err
}

// Close closes the underlying file when the sink owns one
func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
