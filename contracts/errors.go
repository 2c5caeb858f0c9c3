package contracts

import (
	"errors"
	"fmt"
)

var (
	// Registration errors
	ErrSchemaInvalid    = errors.New("events: schema document is invalid")
	ErrSchemaConflict   = errors.New("events: schema key already registered with a different document")
	ErrModifierContract = errors.New("events: modifier does not satisfy the modifier contract")
	ErrUnknownSchemaKey = errors.New("events: schema key is not registered")

	// Emission errors
	ErrEventValidation     = errors.New("events: event failed schema validation")
	ErrSchemaNotRegistered = errors.New("events: schema not registered")
)

// SchemaError represents a failure to register a schema document
type SchemaError struct {
	Op     string // Operation that failed
	Source string // File path or short description of the document
	Err    error  // Underlying error
}

func (e *SchemaError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("schema %s failed for %s: %v", e.Op, e.Source, e.Err)
	}
	return fmt.Sprintf("schema %s failed: %v", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ModifierContractError is raised at registration when a modifier does not
// have the shape ModifierSignature.
type ModifierContractError struct {
	Name   string // Modifier name, if known
	Got    string // Shape that was supplied
	Reason string
}

func (e *ModifierContractError) Error() string {
	name := e.Name
	if name == "" {
		name = "anonymous"
	}
	msg := fmt.Sprintf("modifier %q must have the exact shape %s", name, ModifierSignature)
	if e.Got != "" {
		msg += fmt.Sprintf(", got %s", e.Got)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ModifierContractError) Is(target error) bool {
	return target == ErrModifierContract
}

// UnknownSchemaKeyError is raised when a scoped operation names a schema
// that was never registered.
type UnknownSchemaKeyError struct {
	Op       string
	SchemaID string
	Version  int // zero when the operation was scoped by id only
}

func (e *UnknownSchemaKeyError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("%s: schema %s is not registered", e.Op, NewSchemaKey(e.SchemaID, e.Version))
	}
	return fmt.Sprintf("%s: no schema with id %q is registered", e.Op, e.SchemaID)
}

func (e *UnknownSchemaKeyError) Is(target error) bool {
	return target == ErrUnknownSchemaKey
}

// ValidationError is raised by emission when the modified payload does not
// conform to its schema. The event is dropped.
type ValidationError struct {
	Key SchemaKey
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event validation failed for %s: %v", e.Key, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrEventValidation
}

// IsValidationError reports whether err is an event validation failure
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEventValidation)
}
