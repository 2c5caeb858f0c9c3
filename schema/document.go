package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// decodeDocument parses a JSON or YAML schema document
func decodeDocument(source []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(source)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("schema document is empty")
	}

	var doc map[string]any
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("schema document must be an object")
	}
	return normalize(doc)
}

// normalize converts v to its JSON data model (maps, slices, json.Number)
// so the validator sees what a sink would serialize.
func normalize(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// documentKey reads the schema identity out of a normalized document
func documentKey(doc map[string]any) (string, int, error) {
	id, ok := doc["$id"].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return "", 0, fmt.Errorf("$id must be a non-empty string")
	}
	num, ok := doc["version"].(json.Number)
	if !ok {
		return "", 0, fmt.Errorf("version must be an integer")
	}
	version, err := num.Int64()
	if err != nil || version < 1 {
		return "", 0, fmt.Errorf("version must be an integer >= 1, got %s", num)
	}
	return id, int(version), nil
}

func stringField(doc map[string]any, name string) string {
	s, _ := doc[name].(string)
	return s
}
