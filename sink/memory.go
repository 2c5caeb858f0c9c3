package sink

import (
	"context"
	"sync"

	"github.com/glimte/mmate-events/contracts"
)

// MemorySink keeps every record in memory
type MemorySink struct {
	records []Record
	err     error
	mu      sync.RWMutex
}

// NewMemorySink creates an empty memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write implements Sink
func (s *MemorySink) Write(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

// FailWith makes subsequent writes fail with err; nil restores writes
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Records returns a copy of the captured records
func (s *MemorySink) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.records...)
}

// Envelopes returns the captured envelopes
func (s *MemorySink) Envelopes() []contracts.Envelope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contracts.Envelope, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.Envelope
	}
	return out
}

// Len returns the number of captured records
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Reset drops captured records
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}
