package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/listkit/pkg/config"
	"github.com/Sumatoshi-tech/listkit/pkg/observability"
)

const (
	testThreads    = 4
	testTileSize   = 50
	testCached     = 6
	testMaxBytes   = 10 * 1000 * 1000
	testSampleRate = 0.25
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "listkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultBackgroundThreads, cfg.Differ.BackgroundThreads)
	assert.Equal(t, config.DefaultDetectMoves, cfg.Differ.DetectMoves)
	assert.Equal(t, config.DefaultTileSize, cfg.Tiles.TileSize)
	assert.Equal(t, config.DefaultMaxCachedTiles, cfg.Tiles.MaxCachedTiles)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, config.DefaultLogFormat, cfg.Logging.Format)
	assert.Equal(t, config.DefaultPrometheusAddr, cfg.Observability.PrometheusAddr)
	assert.Equal(t, config.DefaultShutdownTimeout, cfg.Observability.ShutdownTimeout)
	assert.Empty(t, cfg.Observability.OTLPEndpoint)

	maxBytes, err := cfg.Tiles.SnapshotMaxBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(64<<20), maxBytes)
}

func TestLoadConfig_NoPathUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTileSize, cfg.Tiles.TileSize)
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
differ:
  background_threads: 4
  detect_moves: false
tiles:
  tile_size: 50
  max_cached_tiles: 6
  snapshot_max_size: "10 MB"
logging:
  level: debug
  format: json
observability:
  otlp_endpoint: "collector:4317"
  otlp_headers: "x-tenant=a"
  otlp_insecure: true
  environment: staging
  sample_ratio: 0.25
  shutdown_timeout: 3s
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, testThreads, cfg.Differ.BackgroundThreads)
	assert.False(t, cfg.Differ.DetectMoves)
	assert.Equal(t, testTileSize, cfg.Tiles.TileSize)
	assert.Equal(t, testCached, cfg.Tiles.MaxCachedTiles)

	maxBytes, err := cfg.Tiles.SnapshotMaxBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(testMaxBytes), maxBytes)

	obs := cfg.ObservabilityFor(observability.ModeMCP, "1.2.3")
	assert.Equal(t, observability.ModeMCP, obs.Mode)
	assert.Equal(t, "1.2.3", obs.ServiceVersion)
	assert.Equal(t, "staging", obs.Environment)
	assert.Equal(t, "collector:4317", obs.OTLPEndpoint)
	assert.Equal(t, map[string]string{"x-tenant": "a"}, obs.OTLPHeaders)
	assert.True(t, obs.OTLPInsecure)
	assert.InDelta(t, testSampleRate, obs.SampleRatio, 1e-9)
	assert.Equal(t, slog.LevelDebug, obs.LogLevel)
	assert.True(t, obs.LogJSON)
	assert.Equal(t, 3, obs.ShutdownTimeoutSec)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("LISTKIT_TILES_TILE_SIZE", "64")
	t.Setenv("LISTKIT_LOGGING_LEVEL", "warn")

	cfg, err := config.LoadConfig(writeConfig(t, "tiles:\n  tile_size: 8\n"))
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Tiles.TileSize)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"threads", "differ:\n  background_threads: 0\n", config.ErrInvalidThreads},
		{"tile size", "tiles:\n  tile_size: -1\n", config.ErrInvalidTileSize},
		{"cached tiles", "tiles:\n  max_cached_tiles: 1\n", config.ErrInvalidCachedTiles},
		{"snapshot size", "tiles:\n  snapshot_max_size: lots\n", config.ErrInvalidSnapshotSize},
		{"zero snapshot size", "tiles:\n  snapshot_max_size: 0B\n", config.ErrInvalidSnapshotSize},
		{"log level", "logging:\n  level: chatty\n", config.ErrInvalidLogLevel},
		{"log format", "logging:\n  format: xml\n", config.ErrInvalidLogFormat},
		{"sample ratio", "observability:\n  sample_ratio: 2\n", config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestObservabilityFor_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	obs := cfg.ObservabilityFor(observability.ModeCLI, "dev")
	assert.Equal(t, "listkit", obs.ServiceName)
	assert.Equal(t, slog.LevelInfo, obs.LogLevel)
	assert.False(t, obs.LogJSON)
	assert.Empty(t, obs.OTLPHeaders)
	assert.Equal(t, int(config.DefaultShutdownTimeout/time.Second), obs.ShutdownTimeoutSec)
}
