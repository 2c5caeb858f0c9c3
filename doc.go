// Package events emits schema-validated structured events.
//
// An EventLogger holds a schema registry, an ordered modifier table per
// schema key and a set of sinks. Emit copies the payload, runs the
// modifiers registered for its schema key in insertion order, validates
// and redacts the result, wraps it in an envelope carrying provenance
// fields and writes it to every sink.
//
// Emission is cheap when nothing listens: with no sinks, Emit returns
// before touching the registry or any modifier. Emitting for a schema that
// was never registered logs a single warning per schema key and drops the
// event.
package events
