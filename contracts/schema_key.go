package contracts

import (
	"fmt"
)

// SchemaKey identifies one registered event schema
type SchemaKey struct {
	ID      string `json:"id" yaml:"id"`
	Version int    `json:"version" yaml:"version"`
}

// NewSchemaKey creates a schema key
func NewSchemaKey(id string, version int) SchemaKey {
	return SchemaKey{ID: id, Version: version}
}

// Valid reports whether the key names a schema that could be registered
func (k SchemaKey) Valid() bool {
	return k.ID != "" && k.Version >= 1
}

func (k SchemaKey) String() string {
	return fmt.Sprintf("%s@v%d", k.ID, k.Version)
}
