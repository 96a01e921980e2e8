// Package tile holds fixed-size windows ("tiles") of a large, sparsely loaded
// list and the ordered container used to look items up by absolute position.
package tile

import (
	"fmt"
	"slices"
	"sync"
)

// Tile is a contiguous run of items starting at StartPosition. Items has the
// capacity of a full tile; only the first ItemCount entries are loaded.
type Tile[T any] struct {
	Items         []T
	StartPosition int
	ItemCount     int
}

// New returns an empty tile able to hold tileSize items.
func New[T any](tileSize int) *Tile[T] {
	return &Tile[T]{Items: make([]T, tileSize)}
}

// ContainsPosition reports whether pos falls in the loaded part of the tile.
func (t *Tile[T]) ContainsPosition(pos int) bool {
	return t.StartPosition <= pos && pos < t.StartPosition+t.ItemCount
}

// ItemAt returns the item at absolute position pos.
func (t *Tile[T]) ItemAt(pos int) (T, bool) {
	if !t.ContainsPosition(pos) {
		var zero T

		return zero, false
	}

	return t.Items[pos-t.StartPosition], true
}

// Loaded returns the loaded items. The slice aliases the tile.
func (t *Tile[T]) Loaded() []T {
	return t.Items[:t.ItemCount]
}

// List is an ordered set of tiles keyed by start position. A single-slot
// cache remembers the tile that served the last lookup so sequential access
// skips the search. List is not safe for concurrent use.
type List[T any] struct {
	tileSize int
	tiles    []*Tile[T] // sorted by StartPosition
	last     *Tile[T]
}

// NewList returns an empty list of tiles of tileSize items.
func NewList[T any](tileSize int) *List[T] {
	if tileSize < 1 {
		panic("tile: tile size must be positive")
	}

	return &List[T]{tileSize: tileSize}
}

// TileSize returns the size tiles in the list are aligned to.
func (l *List[T]) TileSize() int { return l.tileSize }

// StartOf returns the start position of the tile owning pos.
func (l *List[T]) StartOf(pos int) int {
	return pos - pos%l.tileSize
}

// ItemAt returns the item at pos, or false when the owning tile is not loaded.
func (l *List[T]) ItemAt(pos int) (T, bool) {
	if pos < 0 {
		var zero T

		return zero, false
	}

	if l.last == nil || !l.last.ContainsPosition(pos) {
		idx, found := l.search(l.StartOf(pos))
		if !found {
			var zero T

			return zero, false
		}

		l.last = l.tiles[idx]
	}

	return l.last.ItemAt(pos)
}

// AddOrReplace stores tile and returns the tile it replaced at the same start
// position, or nil. It panics when the start position is not a multiple of
// the tile size.
func (l *List[T]) AddOrReplace(tile *Tile[T]) *Tile[T] {
	if tile.StartPosition < 0 || tile.StartPosition%l.tileSize != 0 {
		panic(fmt.Sprintf("tile: start position %d not aligned to tile size %d", tile.StartPosition, l.tileSize))
	}

	idx, found := l.search(tile.StartPosition)
	if !found {
		l.tiles = slices.Insert(l.tiles, idx, tile)

		return nil
	}

	old := l.tiles[idx]
	l.tiles[idx] = tile

	if l.last == old {
		l.last = nil
	}

	return old
}

// RemoveAtPos removes and returns the tile starting at startPosition, or nil.
func (l *List[T]) RemoveAtPos(startPosition int) *Tile[T] {
	idx, found := l.search(startPosition)
	if !found {
		return nil
	}

	removed := l.tiles[idx]
	l.tiles = slices.Delete(l.tiles, idx, idx+1)

	if l.last == removed {
		l.last = nil
	}

	return removed
}

// Size returns the number of tiles held.
func (l *List[T]) Size() int { return len(l.tiles) }

// AtIndex returns the tile with the idx-th smallest start position.
func (l *List[T]) AtIndex(idx int) *Tile[T] { return l.tiles[idx] }

// Clear drops every tile.
func (l *List[T]) Clear() {
	clear(l.tiles)
	l.tiles = l.tiles[:0]
	l.last = nil
}

func (l *List[T]) search(startPosition int) (int, bool) {
	return slices.BinarySearchFunc(l.tiles, startPosition, func(t *Tile[T], start int) int {
		return t.StartPosition - start
	})
}

// Pool recycles tiles of a fixed size. It is safe for concurrent use.
type Pool[T any] struct {
	tileSize int

	mu   sync.Mutex
	free []*Tile[T]
}

// NewPool returns a pool handing out tiles of tileSize items.
func NewPool[T any](tileSize int) *Pool[T] {
	return &Pool[T]{tileSize: tileSize}
}

// Get returns a recycled tile, or a new one when none is free.
func (p *Pool[T]) Get() *Tile[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		tile := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]

		return tile
	}

	return New[T](p.tileSize)
}

// Put clears tile and keeps it for reuse. Tiles of another size are dropped.
func (p *Pool[T]) Put(tile *Tile[T]) {
	if tile == nil || len(tile.Items) != p.tileSize {
		return
	}

	clear(tile.Items)
	tile.StartPosition = 0
	tile.ItemCount = 0

	p.mu.Lock()
	p.free = append(p.free, tile)
	p.mu.Unlock()
}

// Free returns the number of tiles waiting for reuse.
func (p *Pool[T]) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.free)
}
