package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const decisionSchemaDoc = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["decision", "symbol"],
  "properties": {
    "decision": {"type": "string", "enum": ["enter", "skip"]},
    "symbol": {"type": "string", "minLength": 1},
    "side": {"type": "string", "enum": ["long", "short"]},
    "risk_plan": {
      "type": "object",
      "properties": {
        "position_usd": {"type": "number", "exclusiveMinimum": 0}
      }
    }
  }
}`

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decision_schema.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestRegistryValidate(t *testing.T) {
	reg, err := NewRegistry(writeSchema(t, decisionSchemaDoc))
	require.NoError(t, err)
	defer reg.Close()

	t.Run("minimal valid payload", func(t *testing.T) {
		assert.NoError(t, reg.Validate(decode(t, `{"decision":"skip","symbol":"BTCUSDT"}`)))
	})

	t.Run("missing decision", func(t *testing.T) {
		assert.Error(t, reg.Validate(decode(t, `{"symbol":"BTCUSDT"}`)))
	})

	t.Run("decision outside enum", func(t *testing.T) {
		assert.Error(t, reg.Validate(decode(t, `{"decision":"maybe","symbol":"BTCUSDT"}`)))
	})

	t.Run("wrong field type", func(t *testing.T) {
		assert.Error(t, reg.Validate(decode(t, `{"decision":"skip","symbol":42}`)))
	})
}

func TestRegistryStartupFailures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewRegistry(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})

	t.Run("malformed document", func(t *testing.T) {
		_, err := NewRegistry(writeSchema(t, `{"type": 42}`))
		assert.Error(t, err)
	})
}

func TestRegistryReloadKeepsLastGood(t *testing.T) {
	path := writeSchema(t, decisionSchemaDoc)
	reg, err := NewRegistry(path)
	require.NoError(t, err)
	defer reg.Close()

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	assert.Error(t, reg.reload())

	// The last good schema stays active.
	assert.NoError(t, reg.Validate(decode(t, `{"decision":"skip","symbol":"BTCUSDT"}`)))
	assert.Error(t, reg.Validate(decode(t, `{"decision":"maybe","symbol":"BTCUSDT"}`)))
}
