package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter("debug", "json", &buf))
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Str("component", "test").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "info", entry["level"])
	assert.NotEmpty(t, entry["time"])
}

func TestInitWithWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter("warn", "json", &buf))
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())
}

func TestInitRejectsUnknownValues(t *testing.T) {
	assert.Error(t, InitWithWriter("loud", "json", &bytes.Buffer{}))
	assert.Error(t, InitWithWriter("info", "xml", &bytes.Buffer{}))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "*****", MaskSecret("short"))
	assert.Equal(t, "AIza...wxyz", MaskSecret("AIzaSyABCDEFGHwxyz"))
}
