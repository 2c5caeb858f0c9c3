package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/glimte/mmate-events/contracts"
	"github.com/gowebpki/jcs"
)

// MessageKey is the log message placeholder dropped from every record
const MessageKey = "message"

// maxExactInteger is the largest magnitude a float64 holds without rounding
const maxExactInteger = 1 << 53

// Formatter serializes an envelope for a sink
type Formatter interface {
	Format(env contracts.Envelope) ([]byte, error)
}

// JSONFormatter renders the envelope as a flat JSON object in canonical
// (RFC 8785) form, so the same envelope always yields the same bytes.
//
// RFC 8785 reads numbers as float64. Envelopes holding integers beyond
// ±2^53 are emitted as sorted compact JSON instead so the integers stay exact.
type JSONFormatter struct{}

// Format implements Formatter
func (JSONFormatter) Format(env contracts.Envelope) ([]byte, error) {
	flat := make(map[string]any, len(env))
	for k, v := range env {
		if k == MessageKey {
			continue
		}
		flat[k] = v
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(flat); err != nil {
		return nil, fmt.Errorf("failed to serialize envelope: %w", err)
	}
	raw := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	wide, err := hasWideInteger(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to scan envelope: %w", err)
	}
	if wide {
		return raw, nil
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize envelope: %w", err)
	}
	return canonical, nil
}

// hasWideInteger reports whether raw holds an integer literal a float64
// cannot represent exactly
func hasWideInteger(raw []byte) (bool, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		num, ok := tok.(json.Number)
		if !ok || strings.ContainsAny(num.String(), ".eE") {
			continue
		}
		n, err := strconv.ParseInt(num.String(), 10, 64)
		if err != nil || n > maxExactInteger || n < -maxExactInteger {
			return true, nil
		}
	}
}
