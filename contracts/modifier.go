package contracts

import (
	"fmt"
	"reflect"
)

// ModifierSignature is the only shape a modifier may have
const ModifierSignature = "func(schemaID string, version int, data map[string]any) map[string]any"

// Modifier transforms event data before it is validated and emitted.
// Modifiers are compared by identity, so implementations must be comparable
// (pointer receivers are the usual choice).
type Modifier interface {
	Modify(schemaID string, version int, data map[string]any) map[string]any
}

// ModifierFunc adapts a plain function to the Modifier interface
type ModifierFunc struct {
	name string
	fn   func(schemaID string, version int, data map[string]any) map[string]any
}

// NewModifierFunc creates a named function-based modifier
func NewModifierFunc(name string, fn func(schemaID string, version int, data map[string]any) map[string]any) *ModifierFunc {
	return &ModifierFunc{name: name, fn: fn}
}

// Modify implements Modifier
func (m *ModifierFunc) Modify(schemaID string, version int, data map[string]any) map[string]any {
	return m.fn(schemaID, version, data)
}

// Name returns the modifier name for logging and debugging
func (m *ModifierFunc) Name() string {
	return m.name
}

var modifierFuncType = reflect.TypeOf((func(string, int, map[string]any) map[string]any)(nil))

// ModifierFromCallable checks a dynamically supplied value against the
// modifier contract and returns it as a Modifier. It accepts an existing
// Modifier or any function whose type is exactly ModifierSignature.
func ModifierFromCallable(name string, callable any) (Modifier, error) {
	if callable == nil {
		return nil, &ModifierContractError{Name: name, Got: "nil", Reason: "modifier must not be nil"}
	}

	if m, ok := callable.(Modifier); ok {
		if err := CheckModifier(m); err != nil {
			return nil, err
		}
		return m, nil
	}

	v := reflect.ValueOf(callable)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, &ModifierContractError{Name: name, Got: t.String(), Reason: "modifier must be a function"}
	}
	if v.IsNil() {
		return nil, &ModifierContractError{Name: name, Got: t.String(), Reason: "modifier must not be nil"}
	}
	if !signatureMatches(t) {
		return nil, &ModifierContractError{Name: name, Got: t.String()}
	}

	fn := v.Convert(modifierFuncType).Interface().(func(string, int, map[string]any) map[string]any)
	return NewModifierFunc(name, fn), nil
}

func signatureMatches(t reflect.Type) bool {
	if t.IsVariadic() || t.NumIn() != 3 || t.NumOut() != 1 {
		return false
	}
	return t.In(0) == modifierFuncType.In(0) &&
		t.In(1) == modifierFuncType.In(1) &&
		t.In(2) == modifierFuncType.In(2) &&
		t.Out(0) == modifierFuncType.Out(0)
}

// CheckModifier verifies that m can be stored and later removed by identity
func CheckModifier(m Modifier) error {
	if m == nil {
		return &ModifierContractError{Got: "nil", Reason: "modifier must not be nil"}
	}

	name := modifierName(m)
	v := reflect.ValueOf(m)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return &ModifierContractError{Name: name, Got: v.Type().String(), Reason: "modifier must not be a nil pointer"}
	}
	if !v.Type().Comparable() {
		return &ModifierContractError{
			Name:   name,
			Got:    v.Type().String(),
			Reason: "modifier must be comparable so it can be removed by identity",
		}
	}
	return nil
}

func modifierName(m Modifier) string {
	if named, ok := m.(interface{ Name() string }); ok {
		if v := reflect.ValueOf(m); v.Kind() == reflect.Ptr && v.IsNil() {
			return ""
		}
		return named.Name()
	}
	return fmt.Sprintf("%T", m)
}
