package schema

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed metaschema.json
var metaschemaSource []byte

const metaschemaURL = "https://events.mmate.local/metaschema.json"

func compileMetaschema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(metaschemaURL, bytes.NewReader(metaschemaSource)); err != nil {
		return nil, fmt.Errorf("metaschema load failed: %w", err)
	}
	return c.Compile(metaschemaURL)
}
