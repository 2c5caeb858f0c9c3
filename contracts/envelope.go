package contracts

import (
	"fmt"
	"time"
)

// MetadataVersion versions the reserved-field shape of the envelope itself.
// Increment it when the metadata included with each event changes.
const MetadataVersion = 1

// Reserved envelope keys
const (
	TimestampKey       = "__timestamp__"
	SchemaIDKey        = "__schema__"
	SchemaVersionKey   = "__schema_version__"
	MetadataVersionKey = "__metadata_version__"
)

// TimestampLayout is ISO-8601 in UTC with microseconds and a literal Z
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

var reservedKeys = map[string]struct{}{
	TimestampKey:       {},
	SchemaIDKey:        {},
	SchemaVersionKey:   {},
	MetadataVersionKey: {},
}

// IsReservedKey reports whether key is owned by the envelope
func IsReservedKey(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// ReservedKeys returns the envelope-owned keys
func ReservedKeys() []string {
	return []string{TimestampKey, SchemaIDKey, SchemaVersionKey, MetadataVersionKey}
}

// Envelope is the capsule written to sinks: reserved provenance fields
// merged with the validated event payload.
type Envelope map[string]any

// NewEnvelope stamps payload with provenance metadata.
// Payload keys that collide with reserved keys are overwritten by the envelope.
func NewEnvelope(key SchemaKey, timestamp time.Time, payload map[string]any) Envelope {
	env := make(Envelope, len(payload)+len(reservedKeys))
	for k, v := range payload {
		env[k] = v
	}
	env[TimestampKey] = FormatTimestamp(timestamp)
	env[SchemaIDKey] = key.ID
	env[SchemaVersionKey] = key.Version
	env[MetadataVersionKey] = MetadataVersion
	return env
}

// FormatTimestamp renders t in the envelope timestamp format
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// SchemaKey returns the schema identity stamped on the envelope
func (e Envelope) SchemaKey() SchemaKey {
	id, _ := e[SchemaIDKey].(string)
	version, _ := e[SchemaVersionKey].(int)
	return SchemaKey{ID: id, Version: version}
}

// Timestamp parses the envelope timestamp
func (e Envelope) Timestamp() (time.Time, error) {
	raw, ok := e[TimestampKey].(string)
	if !ok {
		return time.Time{}, fmt.Errorf("envelope has no %s", TimestampKey)
	}
	return time.Parse(TimestampLayout, raw)
}

// Payload returns the user fields of the envelope without reserved keys
func (e Envelope) Payload() map[string]any {
	payload := make(map[string]any, len(e))
	for k, v := range e {
		if IsReservedKey(k) {
			continue
		}
		payload[k] = v
	}
	return payload
}
