// Package schema provides the event schema registry for mmate-events.
//
// The registry compiles event schema documents into validators keyed by
// (schema id, version) and validates event payloads against them at
// emission time. Documents are JSON Schema (Draft 2020-12) with two extra
// top-level keywords:
//
//	$id:      the schema id events are emitted under
//	version:  an integer >= 1
//
// Every document is checked against a small metaschema before it is
// compiled. Top-level property names must not start with "__", which is
// reserved for envelope metadata.
//
// Redaction: a property annotated with "pii": true is removed from the
// payload after it validates, unless the registry is built WithAllowPII.
//
// Basic usage:
//
//	registry := schema.NewRegistry()
//
//	key, err := registry.RegisterFile("schemas/click.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := registry.ValidateAndRedact(key, data); err != nil {
//	    log.Printf("event rejected: %v", err)
//	}
package schema
