package app

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/prerender/config"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown k=v")
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "DEBUG", Format: "json"}, &buf)
	logger.Debug("render completed", "succeeded", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &rec))
	assert.Equal(t, "render completed", rec["msg"])
	assert.Equal(t, float64(2), rec["succeeded"])
}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline(config.Load(), NewLogger(config.LogConfig{}, &bytes.Buffer{}))
	assert.NotNil(t, p.Runner)
	assert.NotNil(t, p.Metrics.Registry)
}
