package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/mwantia/sessionbrowser/internal/config/server"
)

func TestParse(t *testing.T) {
	assert.Equal(t, Debug, Parse("debug"))
	assert.Equal(t, Warn, Parse(" WARNING "))
	assert.Equal(t, Error, Parse("Error"))
	assert.Equal(t, Info, Parse("nonsense"))
	assert.Equal(t, "WARN", Warn.String())
}

func TestLogger_LevelAndNamed(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("browser", config.LogServerConfig{Level: "info", TimeFormat: "15:04"}, &buf)

	logger.Debug("hidden %d", 1)
	logger.Named("loader").Warn("sessions failed: %s", "boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "[browser/loader]")
	assert.Contains(t, out, "sessions failed: boom")
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("agent", config.LogServerConfig{Level: "debug", JSON: true}, &buf)

	logger.Info("loaded %d records", 12)

	var entry logEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "agent", entry.Service)
	assert.Equal(t, "loaded 12 records", entry.Message)
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error("ignored")
	logger.Named("x").Info("ignored")
}
