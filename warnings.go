package events

import (
	"sync"

	"github.com/glimte/mmate-events/contracts"
)

// warnOnce remembers the schema keys a warning was already logged for
type warnOnce struct {
	seen map[contracts.SchemaKey]struct{}
	mu   sync.RWMutex
}

func newWarnOnce() *warnOnce {
	return &warnOnce{seen: make(map[contracts.SchemaKey]struct{})}
}

// first reports whether key is seen for the first time and marks it
func (w *warnOnce) first(key contracts.SchemaKey) bool {
	w.mu.RLock()
	_, seen := w.seen[key]
	w.mu.RUnlock()
	if seen {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, seen := w.seen[key]; seen {
		return false
	}
	w.seen[key] = struct{}{}
	return true
}

// reset forgets every key
func (w *warnOnce) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seen = make(map[contracts.SchemaKey]struct{})
}
