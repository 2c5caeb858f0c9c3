package schema

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glimte/mmate-events/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clickSchema = `{
  "$id": "org.test.click",
  "version": 1,
  "properties": {"x": {"type": "integer"}}
}`

func TestNewRegistry(t *testing.T) {
	t.Run("NewRegistry creates empty registry", func(t *testing.T) {
		registry := NewRegistry()

		assert.NotNil(t, registry)
		assert.NotNil(t, registry.metaschema)
		assert.Equal(t, 0, registry.Len())
	})

	t.Run("NewRegistry applies options", func(t *testing.T) {
		registry := NewRegistry(WithAllowPII(true), WithBaseURL("https://example.test"))

		assert.True(t, registry.allowPII)
		assert.Equal(t, "https://example.test", registry.baseURL)
	})
}

func TestRegister(t *testing.T) {
	t.Run("Register compiles a JSON document", func(t *testing.T) {
		registry := NewRegistry()

		key, err := registry.Register([]byte(clickSchema))

		require.NoError(t, err)
		assert.Equal(t, contracts.NewSchemaKey("org.test.click", 1), key)
		assert.True(t, registry.Contains(key))
	})

	t.Run("Register compiles a YAML file", func(t *testing.T) {
		registry := NewRegistry()

		key, err := registry.RegisterFile(filepath.Join("testdata", "click.yaml"))

		require.NoError(t, err)
		s, ok := registry.Get(key)
		require.True(t, ok)
		assert.Equal(t, "Click", s.Title)
		assert.Equal(t, "A user clicked something", s.Description)
		assert.Equal(t, [][]string{{"user", "email"}}, s.RedactedPaths())
	})

	t.Run("RegisterDocument accepts decoded documents", func(t *testing.T) {
		registry := NewRegistry()

		key, err := registry.RegisterDocument(map[string]any{
			"$id":        "org.test.doc",
			"version":    3,
			"properties": map[string]any{"x": map[string]any{"type": "string"}},
		})

		require.NoError(t, err)
		assert.Equal(t, contracts.NewSchemaKey("org.test.doc", 3), key)
	})

	t.Run("Register is idempotent for identical documents", func(t *testing.T) {
		registry := NewRegistry()

		first, err := registry.Register([]byte(clickSchema))
		require.NoError(t, err)
		second, err := registry.Register([]byte(clickSchema))

		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, registry.Len())
	})

	t.Run("Register rejects a different document for the same key", func(t *testing.T) {
		registry := NewRegistry()
		_, err := registry.Register([]byte(clickSchema))
		require.NoError(t, err)

		_, err = registry.Register([]byte(`{"$id": "org.test.click", "version": 1, "properties": {"y": {"type": "string"}}}`))

		assert.ErrorIs(t, err, contracts.ErrSchemaConflict)
	})

	invalidDocs := map[string]string{
		"empty":            ``,
		"not an object":    `[1, 2]`,
		"malformed json":   `{"$id": `,
		"missing id":       `{"version": 1}`,
		"missing version":  `{"$id": "a"}`,
		"zero version":     `{"$id": "a", "version": 0}`,
		"string version":   `{"$id": "a", "version": "1"}`,
		"fraction version": `{"$id": "a", "version": 1.5}`,
		"reserved field":   `{"$id": "a", "version": 1, "properties": {"__schema__": {"type": "string"}}}`,
		"non-object type":  `{"$id": "a", "version": 1, "type": "array"}`,
		"bad keyword":      `{"$id": "a", "version": 1, "properties": {"x": {"type": "not-a-type"}}}`,
	}
	for name, doc := range invalidDocs {
		t.Run("Register rejects "+name, func(t *testing.T) {
			registry := NewRegistry()

			_, err := registry.Register([]byte(doc))

			require.Error(t, err)
			assert.ErrorIs(t, err, contracts.ErrSchemaInvalid)
			var schemaErr *contracts.SchemaError
			assert.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, 0, registry.Len())
		})
	}

	t.Run("RegisterFile reports missing files", func(t *testing.T) {
		registry := NewRegistry()

		_, err := registry.RegisterFile(filepath.Join("testdata", "missing.yaml"))

		var schemaErr *contracts.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, "read", schemaErr.Op)
	})

	t.Run("Keys are sorted by id then version", func(t *testing.T) {
		registry := NewRegistry()
		_, err := registry.RegisterFile(filepath.Join("testdata", "click.json"))
		require.NoError(t, err)
		_, err = registry.RegisterFile(filepath.Join("testdata", "click.yaml"))
		require.NoError(t, err)
		_, err = registry.Register([]byte(`{"$id": "a.first", "version": 1}`))
		require.NoError(t, err)

		assert.Equal(t, []contracts.SchemaKey{
			{ID: "a.first", Version: 1},
			{ID: "org.test.click", Version: 1},
			{ID: "org.test.click", Version: 2},
		}, registry.Keys())
	})
}

func TestValidateAndRedact(t *testing.T) {
	newRegistry := func(t *testing.T, opts ...RegistryOption) (*Registry, contracts.SchemaKey) {
		registry := NewRegistry(opts...)
		key, err := registry.RegisterFile(filepath.Join("testdata", "click.yaml"))
		require.NoError(t, err)
		return registry, key
	}

	t.Run("ValidateAndRedact accepts conforming data", func(t *testing.T) {
		registry, key := newRegistry(t)
		data := map[string]any{"x": 5}

		err := registry.ValidateAndRedact(key, data)

		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"x": 5}, data)
	})

	t.Run("ValidateAndRedact rejects non-conforming data", func(t *testing.T) {
		registry, key := newRegistry(t)

		err := registry.ValidateAndRedact(key, map[string]any{"x": "not-an-integer"})

		require.Error(t, err)
		assert.ErrorIs(t, err, contracts.ErrEventValidation)
		var verr *contracts.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, key, verr.Key)
	})

	t.Run("ValidateAndRedact enforces required fields", func(t *testing.T) {
		registry, key := newRegistry(t)

		err := registry.ValidateAndRedact(key, map[string]any{})

		assert.ErrorIs(t, err, contracts.ErrEventValidation)
	})

	t.Run("ValidateAndRedact accepts Go integer and typed values", func(t *testing.T) {
		registry, key := newRegistry(t)
		type user struct {
			Name string `json:"name"`
		}

		err := registry.ValidateAndRedact(key, map[string]any{"x": int64(7), "user": user{Name: "ada"}})

		assert.NoError(t, err)
	})

	t.Run("ValidateAndRedact strips pii fields", func(t *testing.T) {
		registry, key := newRegistry(t)
		data := map[string]any{
			"x":    1,
			"user": map[string]any{"name": "ada", "email": "ada@example.com"},
		}

		require.NoError(t, registry.ValidateAndRedact(key, data))

		assert.Equal(t, map[string]any{"name": "ada"}, data["user"])
	})

	t.Run("ValidateAndRedact keeps pii fields when allowed", func(t *testing.T) {
		registry, key := newRegistry(t, WithAllowPII(true))
		data := map[string]any{
			"x":    1,
			"user": map[string]any{"name": "ada", "email": "ada@example.com"},
		}

		require.NoError(t, registry.ValidateAndRedact(key, data))

		assert.Equal(t, "ada@example.com", data["user"].(map[string]any)["email"])
	})

	t.Run("ValidateAndRedact does not redact rejected data", func(t *testing.T) {
		registry, key := newRegistry(t)
		data := map[string]any{"x": "bad", "user": map[string]any{"email": "ada@example.com"}}

		require.Error(t, registry.ValidateAndRedact(key, data))

		assert.Equal(t, "ada@example.com", data["user"].(map[string]any)["email"])
	})

	t.Run("ValidateAndRedact rejects unencodable payloads", func(t *testing.T) {
		registry, key := newRegistry(t)

		err := registry.ValidateAndRedact(key, map[string]any{"x": 1, "ch": make(chan int)})

		assert.ErrorIs(t, err, contracts.ErrEventValidation)
	})

	t.Run("ValidateAndRedact fails for unknown keys", func(t *testing.T) {
		registry := NewRegistry()

		err := registry.ValidateAndRedact(contracts.NewSchemaKey("nope", 1), map[string]any{})

		assert.ErrorIs(t, err, contracts.ErrUnknownSchemaKey)
	})
}

func TestRegistryConcurrency(t *testing.T) {
	registry := NewRegistry()
	key, err := registry.Register([]byte(clickSchema))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = registry.Register([]byte(clickSchema))
		}()
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, registry.ValidateAndRedact(key, map[string]any{"x": i}))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, registry.Len())
}
