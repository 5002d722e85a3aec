package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("disabled"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestComponentTagsEntries(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Output: &buf})

	c := l.Component("element")
	c.Debug().Str("model", "Person").Msg("saved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "element", entry["component"])
	assert.Equal(t, "kvgraph", entry["service"])
	assert.Equal(t, "Person", entry["model"])
	assert.Equal(t, "debug", entry["level"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Output: &buf})
	c := l.Component("query")
	c.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	c.Warn().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestInitReplacesGlobal(t *testing.T) {
	prev := Global()
	t.Cleanup(func() {
		mu.Lock()
		global = prev
		mu.Unlock()
	})

	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	c := Component("store")
	c.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"store"`)
}
