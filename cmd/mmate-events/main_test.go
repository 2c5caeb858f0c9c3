package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "click.json")
	bad := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"$id": "org.test.click", "version": 1, "type": "object"}`), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte(`{"version": 0}`), 0o600))

	t.Run("valid schemas", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newRootCmd(strings.NewReader(""), &out)
		cmd.SetArgs([]string{"validate", good})

		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "org.test.click@v1")
	})

	t.Run("invalid schema fails", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newRootCmd(strings.NewReader(""), &out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"validate", good, bad})

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 2")
		assert.Contains(t, out.String(), "FAIL")
	})
}

func TestEmitCommand(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "click.json")
	eventsPath := filepath.Join(dir, "events.jsonl")
	configPath := filepath.Join(dir, "events.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{"$id": "org.test.click", "version": 1, "type": "object", "properties": {"x": {"type": "integer"}}}`), 0o600))
	require.NoError(t, os.WriteFile(configPath, []byte("log_level: error\nschemas: ["+schemaPath+"]\nsinks:\n  file: "+eventsPath+"\n"), 0o600))

	t.Run("payload from stdin", func(t *testing.T) {
		cmd := newRootCmd(strings.NewReader(`{"x": 7}`), &bytes.Buffer{})
		cmd.SetArgs([]string{"emit", "-c", configPath, "org.test.click", "1"})

		require.NoError(t, cmd.Execute())
		content, err := os.ReadFile(eventsPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), `"x":7`)
	})

	t.Run("invalid payload", func(t *testing.T) {
		cmd := newRootCmd(strings.NewReader(""), &bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"emit", "-c", configPath, "org.test.click", "1", `{"x": "seven"}`})

		assert.Error(t, cmd.Execute())
	})

	t.Run("unregistered schema", func(t *testing.T) {
		cmd := newRootCmd(strings.NewReader(""), &bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"emit", "-c", configPath, "org.test.other", "1", `{}`})

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not registered")
	})
}
