package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_PrettyKeepsFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf})

	log.Named("tokens").Info("Token listed", zap.String("symbol", "CAT"))
	log.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "tokens")
	assert.Contains(t, out, "Token listed")
	assert.Contains(t, out, `"symbol": "CAT"`)
	assert.NotContains(t, out, "hidden")
}

func TestNew_DebugJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Debug: true, Format: FormatJSON, Output: &buf})

	log.Debug("Vote recorded", zap.Float64("voting_power", 20))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "Vote recorded", entry["msg"])
	assert.Equal(t, 20.0, entry["voting_power"])
}

func TestShortenAddress(t *testing.T) {
	assert.Equal(t, "0x10cC...d8f7", ShortenAddress("0x10cC63b5190d519232570c3996E1080859abd8f7"))
	assert.Equal(t, "0xabc", ShortenAddress("0xabc"))
}
