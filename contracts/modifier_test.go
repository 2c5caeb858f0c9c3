package contracts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addField struct {
	key string
}

func (a *addField) Modify(schemaID string, version int, data map[string]any) map[string]any {
	data[a.key] = true
	return data
}

type funcHolder struct {
	fn func()
}

func (f funcHolder) Modify(schemaID string, version int, data map[string]any) map[string]any {
	return data
}

type namedData map[string]any

func TestModifierFunc(t *testing.T) {
	m := NewModifierFunc("upper", func(schemaID string, version int, data map[string]any) map[string]any {
		data["schema"] = schemaID
		data["version"] = version
		return data
	})

	out := m.Modify("org.test", 3, map[string]any{})

	assert.Equal(t, "upper", m.Name())
	assert.Equal(t, map[string]any{"schema": "org.test", "version": 3}, out)
}

func TestModifierFromCallable(t *testing.T) {
	t.Run("accepts a function with the exact shape", func(t *testing.T) {
		m, err := ModifierFromCallable("ok", func(schemaID string, version int, data map[string]any) map[string]any {
			data["ok"] = true
			return data
		})

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"ok": true}, m.Modify("a", 1, map[string]any{}))
	})

	t.Run("accepts an existing modifier", func(t *testing.T) {
		orig := &addField{key: "a"}
		m, err := ModifierFromCallable("existing", orig)

		require.NoError(t, err)
		assert.Same(t, orig, m)
	})

	shapes := map[string]any{
		"not a function":     42,
		"too few arguments":  func(schemaID string, data map[string]any) map[string]any { return data },
		"wrong version type": func(schemaID string, version int64, data map[string]any) map[string]any { return data },
		"named data type":    func(schemaID string, version int, data namedData) namedData { return data },
		"extra return":       func(schemaID string, version int, data map[string]any) (map[string]any, error) { return data, nil },
		"no return":          func(schemaID string, version int, data map[string]any) {},
		"variadic":           func(schemaID string, version int, data ...map[string]any) map[string]any { return nil },
	}
	for name, callable := range shapes {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := ModifierFromCallable("bad", callable)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrModifierContract))
			assert.Contains(t, err.Error(), ModifierSignature)
		})
	}

	t.Run("rejects nil", func(t *testing.T) {
		_, err := ModifierFromCallable("nil", nil)

		assert.ErrorIs(t, err, ErrModifierContract)
	})

	t.Run("rejects nil function", func(t *testing.T) {
		var fn func(string, int, map[string]any) map[string]any

		_, err := ModifierFromCallable("nilfn", fn)

		assert.ErrorIs(t, err, ErrModifierContract)
	})
}

func TestCheckModifier(t *testing.T) {
	t.Run("accepts pointer modifiers", func(t *testing.T) {
		assert.NoError(t, CheckModifier(&addField{key: "x"}))
	})

	t.Run("rejects nil pointer", func(t *testing.T) {
		var m *addField

		err := CheckModifier(m)

		assert.ErrorIs(t, err, ErrModifierContract)
	})

	t.Run("rejects non-comparable modifier", func(t *testing.T) {
		err := CheckModifier(funcHolder{fn: func() {}})

		var contractErr *ModifierContractError
		require.True(t, errors.As(err, &contractErr))
		assert.Contains(t, contractErr.Reason, "comparable")
	})
}
