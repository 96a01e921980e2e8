package config

import (
	"time"

	"github.com/Sumatoshi-tech/listkit/pkg/asynclist"
	"github.com/Sumatoshi-tech/listkit/pkg/differ"
)

// Differ defaults.
const (
	DefaultBackgroundThreads = differ.DefaultBackgroundThreads
	DefaultDetectMoves       = true
)

// Tile loader defaults.
const (
	DefaultTileSize        = 20
	DefaultMaxCachedTiles  = asynclist.DefaultMaxCachedTiles
	DefaultSnapshotMaxSize = "64MiB"
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = LogFormatText
)

// Observability defaults.
const (
	DefaultSampleRatio     = 1.0
	DefaultPrometheusAddr  = "127.0.0.1:9464"
	DefaultShutdownTimeout = 5 * time.Second
)
