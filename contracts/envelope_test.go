package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	key := NewSchemaKey("org.test.click", 1)
	ts := time.Date(2024, 3, 1, 12, 30, 45, 123456000, time.UTC)

	t.Run("NewEnvelope stamps reserved keys and merges payload", func(t *testing.T) {
		env := NewEnvelope(key, ts, map[string]any{"x": 5})

		assert.Equal(t, "2024-03-01T12:30:45.123456Z", env[TimestampKey])
		assert.Equal(t, "org.test.click", env[SchemaIDKey])
		assert.Equal(t, 1, env[SchemaVersionKey])
		assert.Equal(t, MetadataVersion, env[MetadataVersionKey])
		assert.Equal(t, 5, env["x"])
		assert.Len(t, env, 5)
	})

	t.Run("NewEnvelope overwrites reserved keys in payload", func(t *testing.T) {
		env := NewEnvelope(key, ts, map[string]any{
			SchemaIDKey:  "spoofed",
			TimestampKey: "yesterday",
			"x":          1,
		})

		assert.Equal(t, "org.test.click", env[SchemaIDKey])
		assert.Equal(t, "2024-03-01T12:30:45.123456Z", env[TimestampKey])
	})

	t.Run("NewEnvelope converts timestamps to UTC", func(t *testing.T) {
		loc := time.FixedZone("UTC+2", 2*60*60)
		env := NewEnvelope(key, time.Date(2024, 3, 1, 14, 0, 0, 0, loc), nil)

		assert.Equal(t, "2024-03-01T12:00:00.000000Z", env[TimestampKey])
	})

	t.Run("Envelope accessors round trip", func(t *testing.T) {
		env := NewEnvelope(key, ts, map[string]any{"x": 5, "y": "z"})

		assert.Equal(t, key, env.SchemaKey())
		parsed, err := env.Timestamp()
		require.NoError(t, err)
		assert.True(t, ts.Equal(parsed))
		assert.Equal(t, map[string]any{"x": 5, "y": "z"}, env.Payload())
	})

	t.Run("Timestamp fails without reserved key", func(t *testing.T) {
		_, err := Envelope{}.Timestamp()

		assert.Error(t, err)
	})
}

func TestReservedKeys(t *testing.T) {
	for _, k := range ReservedKeys() {
		assert.True(t, IsReservedKey(k), k)
	}
	assert.False(t, IsReservedKey("message"))
	assert.False(t, IsReservedKey("x"))
}

func TestSchemaKey(t *testing.T) {
	assert.Equal(t, "org.test.click@v2", NewSchemaKey("org.test.click", 2).String())
	assert.True(t, NewSchemaKey("a", 1).Valid())
	assert.False(t, NewSchemaKey("", 1).Valid())
	assert.False(t, NewSchemaKey("a", 0).Valid())
}
