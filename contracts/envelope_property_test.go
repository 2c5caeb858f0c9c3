package contracts

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestEnvelopeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("envelope carries reserved keys and every payload field", prop.ForAll(
		func(id string, version int, keys []string) bool {
			payload := make(map[string]any)
			for i, k := range keys {
				payload[k] = i
			}
			payload[SchemaIDKey] = "spoofed"
			key := NewSchemaKey(id, version)
			env := NewEnvelope(key, time.Now(), payload)

			for _, rk := range ReservedKeys() {
				if _, ok := env[rk]; !ok {
					return false
				}
			}
			for k, v := range payload {
				if IsReservedKey(k) {
					continue
				}
				if env[k] != v {
					return false
				}
			}
			return env.SchemaKey() == key && env[MetadataVersionKey] == MetadataVersion
		},
		gen.Identifier(),
		gen.IntRange(1, 1000),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
