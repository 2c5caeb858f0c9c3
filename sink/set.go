package sink

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/glimte/mmate-events/contracts"
)

type entry struct {
	sink      Sink
	formatter Formatter
}

// Set is the collection of active sinks. Membership is by identity and
// adding a sink twice is a no-op.
type Set struct {
	entries []entry
	mu      sync.RWMutex
}

// NewSet creates an empty sink set
func NewSet() *Set {
	return &Set{}
}

// Add attaches formatter to s and adds it. It reports whether s was added.
func (set *Set) Add(s Sink, formatter Formatter) (bool, error) {
	if err := checkSink(s); err != nil {
		return false, err
	}
	if formatter == nil {
		formatter = JSONFormatter{}
	}
	if !reflect.TypeOf(formatter).Comparable() {
		return false, fmt.Errorf("formatter %T must be comparable", formatter)
	}

	set.mu.Lock()
	defer set.mu.Unlock()

	if set.indexOf(s) >= 0 {
		return false, nil
	}
	set.entries = append(set.entries, entry{sink: s, formatter: formatter})
	return true, nil
}

// Remove detaches s. It reports whether s was present.
func (set *Set) Remove(s Sink) bool {
	if s == nil {
		return false
	}

	set.mu.Lock()
	defer set.mu.Unlock()

	i := set.indexOf(s)
	if i < 0 {
		return false
	}
	next := make([]entry, 0, len(set.entries)-1)
	next = append(next, set.entries[:i]...)
	set.entries = append(next, set.entries[i+1:]...)
	return true
}

// Contains checks if s is in the set
func (set *Set) Contains(s Sink) bool {
	set.mu.RLock()
	defer set.mu.RUnlock()
	return set.indexOf(s) >= 0
}

// Len returns the number of sinks
func (set *Set) Len() int {
	set.mu.RLock()
	defer set.mu.RUnlock()
	return len(set.entries)
}

// Sinks returns the sinks in registration order
func (set *Set) Sinks() []Sink {
	set.mu.RLock()
	defer set.mu.RUnlock()

	out := make([]Sink, len(set.entries))
	for i, e := range set.entries {
		out[i] = e.sink
	}
	return out
}

// WriteAll formats env and writes it to every sink. Writes happen outside
// the lock on a snapshot, in registration order. Each sink receives its own
// copy of env. Failures are collected, never retried.
func (set *Set) WriteAll(ctx context.Context, key contracts.SchemaKey, ts time.Time, env contracts.Envelope) []*WriteError {
	set.mu.RLock()
	entries := append([]entry(nil), set.entries...)
	set.mu.RUnlock()

	var failures []*WriteError
	bodies := make(map[Formatter][]byte, 1)
	for _, e := range entries {
		body, cached := bodies[e.formatter]
		if !cached {
			var err error
			body, err = e.formatter.Format(env)
			if err != nil {
				failures = append(failures, &WriteError{Sink: e.sink, Key: key, Err: err})
				continue
			}
			bodies[e.formatter] = body
		}

		rec := Record{Key: key, Timestamp: ts, Envelope: contracts.Envelope(contracts.CloneData(env)), Body: body}
		if err := e.sink.Write(ctx, rec); err != nil {
			failures = append(failures, &WriteError{Sink: e.sink, Key: key, Err: err})
		}
	}
	return failures
}

// indexOf must be called with mu held
func (set *Set) indexOf(s Sink) int {
	for i, e := range set.entries {
		if e.sink == s {
			return i
		}
	}
	return -1
}

func checkSink(s Sink) error {
	if s == nil {
		return fmt.Errorf("sink cannot be nil")
	}
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return fmt.Errorf("sink cannot be a nil pointer")
	}
	if !v.Type().Comparable() {
		return fmt.Errorf("sink %T must be comparable", s)
	}
	return nil
}
