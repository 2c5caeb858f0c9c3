package sink

import (
	"context"
	"errors"
	"time"

	"github.com/glimte/mmate-events/contracts"
)

var (
	ErrSinkClosed = errors.New("sink: sink is closed")
	ErrBufferFull = errors.New("sink: buffer is full")
)

// Record is one formatted envelope handed to a sink
type Record struct {
	Key       contracts.SchemaKey
	Timestamp time.Time
	Envelope  contracts.Envelope
	Body      []byte
}

// Sink is an external destination for emitted events
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// SinkFunc adapts a function to the Sink interface. Set membership is by
// identity, so register a pointer to a SinkFunc.
type SinkFunc func(ctx context.Context, rec Record) error

// Write implements Sink
func (f *SinkFunc) Write(ctx context.Context, rec Record) error {
	return (*f)(ctx, rec)
}

// WriteError reports a failed write to one sink
type WriteError struct {
	Sink Sink
	Key  contracts.SchemaKey
	Err  error
}

func (e *WriteError) Error() string {
	return "sink write failed for " + e.Key.String() + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
