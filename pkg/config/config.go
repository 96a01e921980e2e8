// Package config provides configuration loading and validation for listkit.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/listkit/pkg/observability"
	"github.com/Sumatoshi-tech/listkit/pkg/safeconv"
)

// Sentinel validation errors.
var (
	ErrInvalidThreads      = errors.New("background threads must be positive")
	ErrInvalidTileSize     = errors.New("tile size must be positive")
	ErrInvalidCachedTiles  = errors.New("max cached tiles must be at least 2")
	ErrInvalidSnapshotSize = errors.New("invalid snapshot max size")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidLogFormat    = errors.New("invalid log format")
	ErrInvalidSampleRatio  = errors.New("sample ratio must be within [0, 1]")
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// EnvPrefix prefixes environment overrides, e.g. LISTKIT_TILES_TILE_SIZE.
const EnvPrefix = "LISTKIT"

// minCachedTiles keeps room for the visible tile and one being loaded.
const minCachedTiles = 2

// Config holds all configuration for listkit.
type Config struct {
	Differ        DifferConfig        `mapstructure:"differ"`
	Tiles         TilesConfig         `mapstructure:"tiles"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// DifferConfig configures list diffing.
type DifferConfig struct {
	BackgroundThreads int  `mapstructure:"background_threads"`
	DetectMoves       bool `mapstructure:"detect_moves"`
}

// TilesConfig configures the tile loader.
type TilesConfig struct {
	SnapshotMaxSize string `mapstructure:"snapshot_max_size"`
	TileSize        int    `mapstructure:"tile_size"`
	MaxCachedTiles  int    `mapstructure:"max_cached_tiles"`
}

// SnapshotMaxBytes parses SnapshotMaxSize ("64MiB", "10 MB").
func (t TilesConfig) SnapshotMaxBytes() (int64, error) {
	n, err := humanize.ParseBytes(t.SnapshotMaxSize)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSnapshotSize, t.SnapshotMaxSize)
	}

	size, err := safeconv.Uint64ToInt64(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSnapshotSize, err)
	}

	return size, nil
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlogLevel returns Level as a slog.Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(l.Level))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}

// ObservabilityConfig configures OpenTelemetry export and the metrics endpoint.
type ObservabilityConfig struct {
	OTLPEndpoint    string        `mapstructure:"otlp_endpoint"`
	OTLPHeaders     string        `mapstructure:"otlp_headers"`
	PrometheusAddr  string        `mapstructure:"prometheus_addr"`
	Environment     string        `mapstructure:"environment"`
	SampleRatio     float64       `mapstructure:"sample_ratio"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	OTLPInsecure    bool          `mapstructure:"otlp_insecure"`
}

// LoadConfig loads configuration from file and environment variables. With
// an empty configPath a listkit.yaml is looked up in the usual places and may
// be absent.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("listkit")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/listkit")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("differ.background_threads", DefaultBackgroundThreads)
	viperCfg.SetDefault("differ.detect_moves", DefaultDetectMoves)

	viperCfg.SetDefault("tiles.tile_size", DefaultTileSize)
	viperCfg.SetDefault("tiles.max_cached_tiles", DefaultMaxCachedTiles)
	viperCfg.SetDefault("tiles.snapshot_max_size", DefaultSnapshotMaxSize)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_headers", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.environment", "")
	viperCfg.SetDefault("observability.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("observability.prometheus_addr", DefaultPrometheusAddr)
	viperCfg.SetDefault("observability.shutdown_timeout", DefaultShutdownTimeout)
}

func validateConfig(config *Config) error {
	if config.Differ.BackgroundThreads <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreads, config.Differ.BackgroundThreads)
	}

	if config.Tiles.TileSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTileSize, config.Tiles.TileSize)
	}

	if config.Tiles.MaxCachedTiles < minCachedTiles {
		return fmt.Errorf("%w: %d", ErrInvalidCachedTiles, config.Tiles.MaxCachedTiles)
	}

	_, err := config.Tiles.SnapshotMaxBytes()
	if err != nil {
		return err
	}

	_, err = config.Logging.SlogLevel()
	if err != nil {
		return err
	}

	switch config.Logging.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	ratio := config.Observability.SampleRatio
	if ratio < 0 || ratio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, ratio)
	}

	return nil
}

// ObservabilityFor builds the observability settings of a process launched in
// mode. The config must have passed validation.
func (c *Config) ObservabilityFor(mode observability.AppMode, serviceVersion string) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.Mode = mode
	cfg.ServiceVersion = serviceVersion
	cfg.Environment = c.Observability.Environment
	cfg.OTLPEndpoint = c.Observability.OTLPEndpoint
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Observability.OTLPHeaders)
	cfg.OTLPInsecure = c.Observability.OTLPInsecure
	cfg.SampleRatio = c.Observability.SampleRatio
	cfg.LogJSON = c.Logging.Format == LogFormatJSON

	if level, err := c.Logging.SlogLevel(); err == nil {
		cfg.LogLevel = level
	}

	if c.Observability.ShutdownTimeout > 0 {
		cfg.ShutdownTimeoutSec = max(1, int(c.Observability.ShutdownTimeout/time.Second))
	}

	return cfg
}
