package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanplan/spanplan/pkg/config"
)

const configCostDelta = 1e-12

func writeConfig(tb testing.TB, content string) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "spanplan.yaml")
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.InDelta(t, 0.05, cfg.Link.Latency, configCostDelta)
	assert.InDelta(t, float64(1<<20), cfg.Link.Bandwidth, configCostDelta)
	assert.Equal(t, config.StoreTree, cfg.Planner.Store)
	assert.Equal(t, 0, cfg.Planner.HibernationThreshold)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Empty(t, cfg.Telemetry.Endpoint)
	assert.Equal(t, "dev", cfg.Telemetry.Environment)
	assert.False(t, cfg.Telemetry.Insecure)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
link:
  latency: 0.2
  bandwidth: 2048
planner:
  store: list
  hibernation_threshold: 5000
logging:
  level: debug
  format: json
telemetry:
  endpoint: collector:4317
  environment: prod
  insecure: true
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.2, cfg.Link.Latency, configCostDelta)
	assert.InDelta(t, 2048.0, cfg.Link.Bandwidth, configCostDelta)
	assert.Equal(t, config.StoreList, cfg.Planner.Store)
	assert.Equal(t, 5000, cfg.Planner.HibernationThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "collector:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, "prod", cfg.Telemetry.Environment)
	assert.True(t, cfg.Telemetry.Insecure)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SPANPLAN_PLANNER_STORE", config.StoreList)
	t.Setenv("SPANPLAN_LINK_LATENCY", "0.5")

	path := writeConfig(t, "")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, config.StoreList, cfg.Planner.Store)
	assert.InDelta(t, 0.5, cfg.Link.Latency, configCostDelta)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"zero bandwidth", "link:\n  bandwidth: 0\n", config.ErrInvalidBandwidth},
		{"negative latency", "link:\n  latency: -1\n", config.ErrInvalidLatency},
		{"bad store", "planner:\n  store: hash\n", config.ErrInvalidStore},
		{"bad log level", "logging:\n  level: chatty\n", config.ErrInvalidLogLevel},
		{"bad log format", "logging:\n  format: xml\n", config.ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, tt.content)

			_, err := config.LoadConfig(path)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
