// Package contracts provides the core types shared by every part of the
// mmate-events emission pipeline.
//
// This package defines:
//   - SchemaKey: the (schema id, version) identity of a registered event schema
//   - Envelope: the capsule written to sinks, reserved provenance keys plus payload
//   - Modifier: the transformation contract run on event data before validation
//   - The error taxonomy raised by registration and emission
//
// The envelope wire shape is a flat JSON object with the reserved keys
// __timestamp__, __schema__, __schema_version__ and __metadata_version__
// merged with the validated payload fields.
package contracts
