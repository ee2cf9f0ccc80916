package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: LevelDebug, JSONFormat: true, Output: &buf})

	log.Info("meeting processed", F("meeting_id", "m-1"), F("segments", 4))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "meeting processed", entry["message"])
	assert.Equal(t, "m-1", entry["meeting_id"])
	assert.Equal(t, float64(4), entry["segments"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: LevelWarn, JSONFormat: true, Output: &buf})

	log.Debug("hidden")
	log.Info("hidden too")
	assert.Zero(t, buf.Len())

	log.Warn("visible")
	assert.NotZero(t, buf.Len())
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: LevelInfo, JSONFormat: true, Output: &buf})

	child := log.With(F("component", "pipeline"))
	child.Info("stage complete")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "pipeline", entry["component"])
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	// Must not panic, must accept chaining.
	log.With(F("a", 1)).Error("dropped", Err(assert.AnError))
}
