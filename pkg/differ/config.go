package differ

import (
	"github.com/Sumatoshi-tech/listkit/pkg/diffutil"
	"github.com/Sumatoshi-tech/listkit/pkg/executor"
)

// DefaultBackgroundThreads is the worker count of the pool Build creates when
// no background executor was set.
const DefaultBackgroundThreads = executor.DefaultWorkers

// Config tells an AsyncListDiffer how to compare items and where to run.
type Config[T any] struct {
	// MainExecutor applies results and notifies listeners. Nil runs them on
	// the background goroutine that finished the diff.
	MainExecutor executor.Executor

	// BackgroundExecutor computes diffs.
	BackgroundExecutor executor.Executor

	// Items compares list items.
	Items diffutil.ItemCallback[T]

	// DetectMoves reports reordered items as moves instead of remove+insert.
	DetectMoves bool

	owned *executor.Pool
}

// Close releases the background pool Build created, if any. Executors set by
// the caller are left alone.
func (c Config[T]) Close() {
	if c.owned != nil {
		c.owned.Close()
	}
}

// ConfigBuilder assembles a Config.
type ConfigBuilder[T any] struct {
	cfg Config[T]
}

// NewConfigBuilder starts a Config comparing items with items. Move detection
// is on by default.
func NewConfigBuilder[T any](items diffutil.ItemCallback[T]) *ConfigBuilder[T] {
	return &ConfigBuilder[T]{cfg: Config[T]{Items: items, DetectMoves: true}}
}

// SetMainExecutor sets the foreground executor.
func (b *ConfigBuilder[T]) SetMainExecutor(exec executor.Executor) *ConfigBuilder[T] {
	b.cfg.MainExecutor = exec

	return b
}

// SetBackgroundExecutor sets the executor diffs run on.
func (b *ConfigBuilder[T]) SetBackgroundExecutor(exec executor.Executor) *ConfigBuilder[T] {
	b.cfg.BackgroundExecutor = exec

	return b
}

// SetDetectMoves toggles move detection.
func (b *ConfigBuilder[T]) SetDetectMoves(detect bool) *ConfigBuilder[T] {
	b.cfg.DetectMoves = detect

	return b
}

// Build returns the Config. Without a background executor it creates a fresh
// pool of DefaultBackgroundThreads workers, owned by the Config.
func (b *ConfigBuilder[T]) Build() Config[T] {
	cfg := b.cfg

	if cfg.BackgroundExecutor == nil {
		cfg.owned = executor.NewPool(DefaultBackgroundThreads)
		cfg.BackgroundExecutor = cfg.owned
	}

	return cfg
}
