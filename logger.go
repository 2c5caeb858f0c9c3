package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/mmate-events/contracts"
	"github.com/glimte/mmate-events/modifier"
	"github.com/glimte/mmate-events/schema"
	"github.com/glimte/mmate-events/sink"
	"github.com/google/uuid"
)

// SchemaRegistry compiles schema documents and validates payloads. Keys
// lists every registered schema, including those registered on the
// registry directly rather than through an EventLogger.
type SchemaRegistry interface {
	Register(source []byte) (contracts.SchemaKey, error)
	RegisterFile(path string) (contracts.SchemaKey, error)
	RegisterDocument(document map[string]any) (contracts.SchemaKey, error)
	Contains(key contracts.SchemaKey) bool
	ValidateAndRedact(key contracts.SchemaKey, data map[string]any) error
	Keys() []contracts.SchemaKey
}

// EventLogger validates, decorates and dispatches structured events
type EventLogger struct {
	name         string
	schemas      SchemaRegistry
	modifiers    *modifier.Table
	sinks        *sink.Set
	formatter    sink.Formatter
	warned       *warnOnce
	logger       *slog.Logger
	metrics      MetricsCollector
	now          func() time.Time
	initialSinks []sink.Sink
}

// NewEventLogger creates an event logger. Without WithSchemaRegistry it
// uses a schema.Registry that redacts pii-annotated properties.
func NewEventLogger(opts ...LoggerOption) (*EventLogger, error) {
	l := &EventLogger{
		name:      uuid.NewString(),
		modifiers: modifier.NewTable(),
		sinks:     sink.NewSet(),
		formatter: sink.JSONFormatter{},
		warned:    newWarnOnce(),
		logger:    slog.Default(),
		metrics:   noopMetrics{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.logger = l.logger.With("eventLogger", l.name)
	if l.schemas == nil {
		l.schemas = schema.NewRegistry(schema.WithRegistryLogger(l.logger))
	}

	l.syncSchemas()

	for _, s := range l.initialSinks {
		if err := l.RegisterSink(s); err != nil {
			return nil, err
		}
	}
	l.initialSinks = nil

	return l, nil
}

// Name returns the unique instance name
func (l *EventLogger) Name() string {
	return l.name
}

// Schemas returns the schema registry
func (l *EventLogger) Schemas() SchemaRegistry {
	return l.schemas
}

// RegisterSchema registers a JSON or YAML schema document
func (l *EventLogger) RegisterSchema(source []byte) (contracts.SchemaKey, error) {
	key, err := l.schemas.Register(source)
	return l.registered(key, err)
}

// RegisterSchemaFile registers the schema document at path
func (l *EventLogger) RegisterSchemaFile(path string) (contracts.SchemaKey, error) {
	key, err := l.schemas.RegisterFile(path)
	return l.registered(key, err)
}

// RegisterSchemaDocument registers an already decoded schema document
func (l *EventLogger) RegisterSchemaDocument(document map[string]any) (contracts.SchemaKey, error) {
	key, err := l.schemas.RegisterDocument(document)
	return l.registered(key, err)
}

// syncSchemas gives schemas registered directly on the registry their
// modifier entries
func (l *EventLogger) syncSchemas() {
	for _, key := range l.schemas.Keys() {
		l.modifiers.Ensure(key)
	}
}

func (l *EventLogger) registered(key contracts.SchemaKey, err error) (contracts.SchemaKey, error) {
	if err != nil {
		return contracts.SchemaKey{}, err
	}
	if l.modifiers.Ensure(key) {
		l.logger.Debug("event schema registered", "schemaId", key.ID, "version", key.Version)
	}
	return key, nil
}

// AddModifier adds m to the keys selected by scope. An exact scope fails
// with an UnknownSchemaKeyError when the key was never registered. Any
// other scope reaches only the schemas registered before the call.
func (l *EventLogger) AddModifier(scope Scope, m contracts.Modifier) error {
	l.syncSchemas()
	if scope.Exact() {
		return l.modifiers.Add(scope.Key(), m)
	}

	keys, err := l.modifiers.Broadcast(scope.SchemaID, scope.Version, m)
	if err != nil {
		return err
	}
	l.logger.Debug("modifier broadcast",
		"schemaId", scope.SchemaID,
		"version", scope.Version,
		"keys", len(keys),
	)
	return nil
}

// AddModifierFunc checks that callable has the modifier signature and
// adds it under scope. It returns the modifier for later removal.
func (l *EventLogger) AddModifierFunc(scope Scope, name string, callable any) (contracts.Modifier, error) {
	m, err := contracts.ModifierFromCallable(name, callable)
	if err != nil {
		return nil, err
	}
	if err := l.AddModifier(scope, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RemoveModifier removes m from the keys selected by scope. With a schema
// id it fails when no registered key matches and is a no-op for keys not
// holding m. Without a schema id, absence is ignored everywhere.
func (l *EventLogger) RemoveModifier(scope Scope, m contracts.Modifier) error {
	l.syncSchemas()
	if scope.SchemaID != "" {
		_, err := l.modifiers.Remove(scope.SchemaID, scope.Version, m)
		return err
	}
	if scope.Version > 0 {
		_, err := l.modifiers.Remove("", scope.Version, m)
		if err != nil && !errors.Is(err, contracts.ErrUnknownSchemaKey) {
			return err
		}
		return nil
	}
	l.modifiers.RemoveAll(m)
	return nil
}

// Modifiers returns the modifiers registered for key in run order
func (l *EventLogger) Modifiers(key contracts.SchemaKey) []contracts.Modifier {
	return l.modifiers.Modifiers(key)
}

// RegisterSink attaches the logger formatter to s and adds it. Adding a
// sink twice is a no-op. The logger never closes sinks.
func (l *EventLogger) RegisterSink(s sink.Sink) error {
	added, err := l.sinks.Add(s, l.formatter)
	if err != nil {
		return fmt.Errorf("failed to register sink: %w", err)
	}
	if added {
		l.logger.Debug("event sink registered", "sink", fmt.Sprintf("%T", s))
	}
	return nil
}

// RemoveSink removes s; removing an unknown sink is a no-op
func (l *EventLogger) RemoveSink(s sink.Sink) {
	if l.sinks.Remove(s) {
		l.logger.Debug("event sink removed", "sink", fmt.Sprintf("%T", s))
	}
}

// Sinks returns the registered sinks in registration order
func (l *EventLogger) Sinks() []sink.Sink {
	return l.sinks.Sinks()
}

// Emit validates data against the schema registered as (schemaID,
// version) and writes the resulting envelope to every sink.
//
// It returns nil and no error when there are no sinks or the schema is not
// registered, and a *contracts.ValidationError when the modified payload
// does not conform. Sink failures are logged and never returned. The
// caller's data is never modified, and each sink receives its own copy of
// the returned envelope.
func (l *EventLogger) Emit(ctx context.Context, schemaID string, version int, data map[string]any, opts ...EmitOption) (contracts.Envelope, error) {
	start := time.Now()
	key := contracts.NewSchemaKey(schemaID, version)

	if l.sinks.Len() == 0 {
		l.metrics.RecordDropped(ctx, key, DropReasonNoSinks)
		return nil, nil
	}

	if !l.schemas.Contains(key) {
		if l.warned.first(key) {
			l.logger.WarnContext(ctx, "event schema not registered",
				"schemaId", schemaID,
				"version", version,
				"error", contracts.ErrSchemaNotRegistered,
			)
		}
		l.metrics.RecordDropped(ctx, key, DropReasonSchemaNotRegistered)
		return nil, nil
	}

	cfg := emitConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	payload := contracts.CloneData(data)
	payload = l.modifiers.Apply(key, payload)

	if err := l.schemas.ValidateAndRedact(key, payload); err != nil {
		l.metrics.RecordInvalid(ctx, key)
		var validationErr *contracts.ValidationError
		if !errors.As(err, &validationErr) {
			err = &contracts.ValidationError{Key: key, Err: err}
		}
		return nil, err
	}

	ts := cfg.timestamp
	if ts.IsZero() {
		ts = l.now()
	}
	ts = ts.UTC()
	env := contracts.NewEnvelope(key, ts, payload)

	for _, failure := range l.sinks.WriteAll(ctx, key, ts, env) {
		l.metrics.RecordSinkError(ctx, key)
		l.logger.ErrorContext(ctx, "failed to write event to sink",
			"schemaId", schemaID,
			"version", version,
			"sink", fmt.Sprintf("%T", failure.Sink),
			"error", failure.Err,
		)
	}

	l.metrics.RecordEmitted(ctx, key, time.Since(start))
	return env, nil
}

// ResetWarnings forgets which unregistered schema keys were warned about
func (l *EventLogger) ResetWarnings() {
	l.warned.reset()
}
