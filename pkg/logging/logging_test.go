package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"warning", LevelWarn},
		{"ERROR", LevelError},
		{" debug ", LevelDebug},
		{"", LevelInfo},
		{"trace", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}

	assert.True(t, ValidLevel("Warning"))
	assert.False(t, ValidLevel("trace"))
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatJSON, ParseFormat("Json"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat("yaml"))
}

func TestNew(t *testing.T) {
	t.Run("json output respects level", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Config{Level: LevelWarn, Format: FormatJSON, Output: &buf})

		log.Info("dropped")
		log.Warn("kept", "fen", "8/8/8/8/8/8/8/8 w - - 0 1")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "kept", rec["msg"])
		assert.Equal(t, "WARN", rec["level"])
	})

	t.Run("mirror receives json", func(t *testing.T) {
		var out, mirror bytes.Buffer
		log := New(Config{Level: LevelDebug, Format: FormatText, Output: &out, Mirror: &mirror})

		log.With("engine", "stockfish").Debug("uci send", "line", "isready")

		assert.Contains(t, out.String(), "msg=\"uci send\"")
		var rec map[string]any
		require.NoError(t, json.Unmarshal(mirror.Bytes(), &rec))
		assert.Equal(t, "stockfish", rec["engine"])
		assert.Equal(t, "isready", rec["line"])
	})

	t.Run("nop discards", func(t *testing.T) {
		log := Nop()
		assert.False(t, log.Enabled(t.Context(), LevelError))
	})
}
