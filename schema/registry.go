package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/glimte/mmate-events/contracts"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// EventSchema is a compiled, registered event schema
type EventSchema struct {
	Key         contracts.SchemaKey
	Title       string
	Description string
	Document    map[string]any

	compiled   *jsonschema.Schema
	redactions [][]string
	canonical  []byte
}

// RedactedPaths returns the property paths stripped by redaction
func (s *EventSchema) RedactedPaths() [][]string {
	out := make([][]string, len(s.redactions))
	for i, p := range s.redactions {
		out[i] = append([]string(nil), p...)
	}
	return out
}

// Registry stores compiled validators keyed by (schema id, version)
type Registry struct {
	schemas    map[contracts.SchemaKey]*EventSchema
	metaschema *jsonschema.Schema
	allowPII   bool
	baseURL    string
	logger     *slog.Logger
	mu         sync.RWMutex
}

// RegistryOption configures the registry
type RegistryOption func(*Registry)

// WithAllowPII disables redaction of properties annotated "pii": true
func WithAllowPII(allow bool) RegistryOption {
	return func(r *Registry) {
		r.allowPII = allow
	}
}

// WithBaseURL sets the URL prefix schemas are compiled under
func WithBaseURL(baseURL string) RegistryOption {
	return func(r *Registry) {
		r.baseURL = baseURL
	}
}

// WithRegistryLogger sets the logger
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty schema registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		schemas: make(map[contracts.SchemaKey]*EventSchema),
		baseURL: "https://events.mmate.local/schemas",
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	meta, err := compileMetaschema()
	if err != nil {
		// The metaschema is embedded; failing to compile it is a build defect.
		panic(fmt.Sprintf("schema: %v", err))
	}
	r.metaschema = meta

	return r
}

// Register compiles a JSON or YAML schema document
func (r *Registry) Register(source []byte) (contracts.SchemaKey, error) {
	doc, err := decodeDocument(source)
	if err != nil {
		return contracts.SchemaKey{}, invalid("", err)
	}
	return r.register(doc, "")
}

// RegisterFile reads and compiles a schema document from disk
func (r *Registry) RegisterFile(path string) (contracts.SchemaKey, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return contracts.SchemaKey{}, &contracts.SchemaError{Op: "read", Source: path, Err: err}
	}
	doc, err := decodeDocument(source)
	if err != nil {
		return contracts.SchemaKey{}, invalid(path, err)
	}
	return r.register(doc, path)
}

// RegisterDocument compiles an already decoded schema document
func (r *Registry) RegisterDocument(document map[string]any) (contracts.SchemaKey, error) {
	if document == nil {
		return contracts.SchemaKey{}, invalid("", errors.New("schema document must be an object"))
	}
	doc, err := normalize(document)
	if err != nil {
		return contracts.SchemaKey{}, invalid("", err)
	}
	return r.register(doc, "")
}

func (r *Registry) register(doc map[string]any, source string) (contracts.SchemaKey, error) {
	if err := r.metaschema.Validate(doc); err != nil {
		return contracts.SchemaKey{}, invalid(source, err)
	}

	id, version, err := documentKey(doc)
	if err != nil {
		return contracts.SchemaKey{}, invalid(source, err)
	}
	key := contracts.NewSchemaKey(id, version)
	if source == "" {
		source = key.String()
	}

	canonical, err := json.Marshal(doc)
	if err != nil {
		return contracts.SchemaKey{}, invalid(source, err)
	}

	r.mu.RLock()
	existing, exists := r.schemas[key]
	r.mu.RUnlock()
	if exists {
		if bytes.Equal(existing.canonical, canonical) {
			return key, nil
		}
		return contracts.SchemaKey{}, &contracts.SchemaError{
			Op:     "register",
			Source: source,
			Err:    fmt.Errorf("%w: %s", contracts.ErrSchemaConflict, key),
		}
	}

	compiled, err := r.compile(key, doc)
	if err != nil {
		return contracts.SchemaKey{}, invalid(source, err)
	}

	es := &EventSchema{
		Key:         key,
		Title:       stringField(doc, "title"),
		Description: stringField(doc, "description"),
		Document:    doc,
		compiled:    compiled,
		redactions:  redactionPaths(doc),
		canonical:   canonical,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Lost a race with an identical registration
	if existing, exists := r.schemas[key]; exists {
		if bytes.Equal(existing.canonical, canonical) {
			return key, nil
		}
		return contracts.SchemaKey{}, &contracts.SchemaError{
			Op:     "register",
			Source: source,
			Err:    fmt.Errorf("%w: %s", contracts.ErrSchemaConflict, key),
		}
	}
	r.schemas[key] = es

	r.logger.Debug("event schema registered",
		"schemaId", key.ID,
		"version", key.Version,
		"redactedFields", len(es.redactions),
	)

	return key, nil
}

// compile builds the validator. $id is an event name, not a resolvable URL,
// so it is dropped and the schema is compiled under a synthetic URL.
func (r *Registry) compile(key contracts.SchemaKey, doc map[string]any) (*jsonschema.Schema, error) {
	body := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "$id" {
			continue
		}
		body[k] = v
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("%s/%s/v%d.json", r.baseURL, key.ID, key.Version)
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("schema load failed: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema compile failed: %w", err)
	}
	return compiled, nil
}

// Get retrieves a registered schema
func (r *Registry) Get(key contracts.SchemaKey) (*EventSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[key]
	return s, ok
}

// Contains checks if a schema key is registered
func (r *Registry) Contains(key contracts.SchemaKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.schemas[key]
	return ok
}

// Keys returns all registered keys ordered by id then version
func (r *Registry) Keys() []contracts.SchemaKey {
	r.mu.RLock()
	keys := make([]contracts.SchemaKey, 0, len(r.schemas))
	for k := range r.schemas {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ID != keys[j].ID {
			return keys[i].ID < keys[j].ID
		}
		return keys[i].Version < keys[j].Version
	})
	return keys
}

// Len returns the number of registered schemas
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

// ValidateAndRedact validates data against the schema registered under key
// and then strips redacted properties from data in place.
func (r *Registry) ValidateAndRedact(key contracts.SchemaKey, data map[string]any) error {
	s, ok := r.Get(key)
	if !ok {
		return &contracts.UnknownSchemaKeyError{Op: "validate", SchemaID: key.ID, Version: key.Version}
	}

	view, err := normalize(data)
	if err != nil {
		return &contracts.ValidationError{Key: key, Err: fmt.Errorf("payload is not JSON encodable: %w", err)}
	}
	if view == nil {
		view = map[string]any{}
	}
	if err := s.compiled.Validate(view); err != nil {
		return &contracts.ValidationError{Key: key, Err: err}
	}

	if !r.allowPII {
		redact(data, s.redactions)
	}
	return nil
}

func invalid(source string, err error) error {
	return &contracts.SchemaError{
		Op:     "register",
		Source: source,
		Err:    fmt.Errorf("%w: %v", contracts.ErrSchemaInvalid, err),
	}
}
