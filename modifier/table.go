// Package modifier holds the modifier table: the mapping from schema key to
// the modifiers run on event data before validation.
//
// Each key holds an ordered sequence de-duplicated by identity. Modifiers
// run in the order they were added to that key.
package modifier

import (
	"sort"
	"sync"

	"github.com/glimte/mmate-events/contracts"
)

// Table maps schema keys to their modifiers
type Table struct {
	entries map[contracts.SchemaKey][]contracts.Modifier
	mu      sync.RWMutex
}

// NewTable creates an empty modifier table
func NewTable() *Table {
	return &Table{
		entries: make(map[contracts.SchemaKey][]contracts.Modifier),
	}
}

// Ensure creates an empty entry for key. An existing entry and its
// modifiers are left untouched. It reports whether an entry was created.
func (t *Table) Ensure(key contracts.SchemaKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[key]; exists {
		return false
	}
	t.entries[key] = nil
	return true
}

// Has checks if key has an entry
func (t *Table) Has(key contracts.SchemaKey) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, exists := t.entries[key]
	return exists
}

// Add appends m to the entry for key
func (t *Table) Add(key contracts.SchemaKey, m contracts.Modifier) error {
	if err := contracts.CheckModifier(m); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	mods, exists := t.entries[key]
	if !exists {
		return &contracts.UnknownSchemaKeyError{Op: "add modifier", SchemaID: key.ID, Version: key.Version}
	}
	if !contains(mods, m) {
		t.entries[key] = append(mods, m)
	}
	return nil
}

// Broadcast adds m to every key registered right now whose id equals
// schemaID and whose version equals version. Empty schemaID and zero
// version match everything. Keys created afterwards do not receive m.
// It returns the keys m was added to.
func (t *Table) Broadcast(schemaID string, version int, m contracts.Modifier) ([]contracts.SchemaKey, error) {
	if err := contracts.CheckModifier(m); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var added []contracts.SchemaKey
	for key, mods := range t.entries {
		if !matches(key, schemaID, version) {
			continue
		}
		if !contains(mods, m) {
			t.entries[key] = append(mods, m)
		}
		added = append(added, key)
	}
	sortKeys(added)
	return added, nil
}

// Remove drops m from every key matching schemaID and version (zero
// version matches any). It fails when no key matches schemaID, and is a
// no-op for matching keys that do not hold m.
func (t *Table) Remove(schemaID string, version int, m contracts.Modifier) (int, error) {
	if m == nil {
		return 0, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	matched, removed := 0, 0
	for key, mods := range t.entries {
		if !matches(key, schemaID, version) {
			continue
		}
		matched++
		if next, ok := without(mods, m); ok {
			t.entries[key] = next
			removed++
		}
	}
	if matched == 0 {
		return 0, &contracts.UnknownSchemaKeyError{Op: "remove modifier", SchemaID: schemaID, Version: version}
	}
	return removed, nil
}

// RemoveAll drops m from every key, tolerating keys that do not hold it
func (t *Table) RemoveAll(m contracts.Modifier) int {
	if m == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, mods := range t.entries {
		if next, ok := without(mods, m); ok {
			t.entries[key] = next
			removed++
		}
	}
	return removed
}

// Modifiers returns a snapshot of the modifiers for key in run order.
// It never creates an entry.
func (t *Table) Modifiers(key contracts.SchemaKey) []contracts.Modifier {
	t.mu.RLock()
	defer t.mu.RUnlock()

	mods := t.entries[key]
	if len(mods) == 0 {
		return nil
	}
	return append([]contracts.Modifier(nil), mods...)
}

// Keys returns every key with an entry
func (t *Table) Keys() []contracts.SchemaKey {
	t.mu.RLock()
	keys := make([]contracts.SchemaKey, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	t.mu.RUnlock()

	sortKeys(keys)
	return keys
}

// Apply runs the modifiers for key over data, feeding each the previous
// output. A modifier returning nil yields an empty object.
func (t *Table) Apply(key contracts.SchemaKey, data map[string]any) map[string]any {
	return Chain(t.Modifiers(key), key, data)
}

// Chain runs mods in order over data
func Chain(mods []contracts.Modifier, key contracts.SchemaKey, data map[string]any) map[string]any {
	for _, m := range mods {
		data = m.Modify(key.ID, key.Version, data)
		if data == nil {
			data = make(map[string]any)
		}
	}
	return data
}

func matches(key contracts.SchemaKey, schemaID string, version int) bool {
	if schemaID != "" && key.ID != schemaID {
		return false
	}
	if version > 0 && key.Version != version {
		return false
	}
	return true
}

func contains(mods []contracts.Modifier, m contracts.Modifier) bool {
	for _, existing := range mods {
		if existing == m {
			return true
		}
	}
	return false
}

func without(mods []contracts.Modifier, m contracts.Modifier) ([]contracts.Modifier, bool) {
	for i, existing := range mods {
		if existing == m {
			next := make([]contracts.Modifier, 0, len(mods)-1)
			next = append(next, mods[:i]...)
			return append(next, mods[i+1:]...), true
		}
	}
	return mods, false
}

func sortKeys(keys []contracts.SchemaKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ID != keys[j].ID {
			return keys[i].ID < keys[j].ID
		}
		return keys[i].Version < keys[j].Version
	})
}
