package events

import "github.com/glimte/mmate-events/contracts"

// Scope selects the schema keys a modifier is added to or removed from.
// An empty SchemaID matches every schema id and a zero Version matches
// every version.
type Scope struct {
	SchemaID string
	Version  int
}

// AllSchemas matches every registered schema key
func AllSchemas() Scope {
	return Scope{}
}

// ForSchema matches every version of schemaID
func ForSchema(schemaID string) Scope {
	return Scope{SchemaID: schemaID}
}

// ForKey matches exactly one schema key
func ForKey(schemaID string, version int) Scope {
	return Scope{SchemaID: schemaID, Version: version}
}

// Exact reports whether the scope names a single key
func (s Scope) Exact() bool {
	return s.SchemaID != "" && s.Version > 0
}

// Key returns the schema key of an exact scope
func (s Scope) Key() contracts.SchemaKey {
	return contracts.NewSchemaKey(s.SchemaID, s.Version)
}
