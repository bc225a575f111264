// Package grid implements a sparse, chunked two-dimensional array: an
// unbounded logical grid addressed by integer (x, y) coordinates, physically
// backed only where cells have been written. Chunks are fixed-size square
// blocks materialized lazily by writes; each chunk carries a context value
// built at most once per chunk lifetime by a caller-supplied function of the
// chunk key.
package grid

import (
	"fmt"
	"math"

	"chunkfield.dev/internal/sim/logic/mathx"
)

// Grid is the facade over the chunk store. It is not safe for concurrent
// use; a concurrent owner must serialize all calls.
type Grid[T any, C any] struct {
	size    int
	def     T
	builder func(ChunkKey) C

	store *Store[T, C]

	// Cursor: the chunk most recently resolved by any per-chunk operation.
	// Only the zero-argument View reads it.
	lastTouched *ChunkKey
}

// New builds an empty grid. size is the chunk edge length and must be
// positive. def is the value read from never-written cells. builder derives
// a chunk's context from its key; it is invoked at most once per chunk
// between materialization and removal.
func New[T any, C any](size int, def T, builder func(ChunkKey) C) (*Grid[T, C], error) {
	if size <= 0 {
		return nil, fmt.Errorf("grid: chunk size must be positive, got %d", size)
	}
	if builder == nil {
		builder = func(ChunkKey) C { var zero C; return zero }
	}
	return &Grid[T, C]{
		size:    size,
		def:     def,
		builder: builder,
		store:   newStore[T, C](size, def),
	}, nil
}

// Size returns the chunk edge length.
func (g *Grid[T, C]) Size() int { return g.size }

// Default returns the value read from never-written cells.
func (g *Grid[T, C]) Default() T { return g.def }

// ChunkCount returns the number of materialized chunks.
func (g *Grid[T, C]) ChunkCount() int { return g.store.Len() }

// ChunkKeys returns the materialized chunk keys in (CX, CY) order.
func (g *Grid[T, C]) ChunkKeys() []ChunkKey { return g.store.Keys() }

// WorldToChunk splits a world coordinate into its owning chunk key and the
// local offset within that chunk. Floor division keeps negative coordinates
// correct: world x=-1 with size 16 maps to chunk -1, local 15.
func (g *Grid[T, C]) WorldToChunk(p Vec2i) (ChunkKey, Vec2i) {
	k := ChunkKey{
		CX: mathx.FloorDiv(p.X, g.size),
		CY: mathx.FloorDiv(p.Y, g.size),
	}
	l := Vec2i{
		X: mathx.Mod(p.X, g.size),
		Y: mathx.Mod(p.Y, g.size),
	}
	return k, l
}

// ChunkOrigin returns the world coordinate of chunk k's (0,0) cell.
func (g *Grid[T, C]) ChunkOrigin(k ChunkKey) Vec2i {
	return Vec2i{X: k.CX * g.size, Y: k.CY * g.size}
}

func (g *Grid[T, C]) touch(k ChunkKey) {
	g.lastTouched = &k
}

// Get reads the cell at p. Absent chunks read as the default value and are
// not materialized.
func (g *Grid[T, C]) Get(p Vec2i) T {
	k, l := g.WorldToChunk(p)
	g.touch(k)
	ch, ok := g.store.Get(k)
	if !ok {
		return g.def
	}
	return ch.Get(l.X, l.Y)
}

// Set writes v at p, materializing the owning chunk if needed.
func (g *Grid[T, C]) Set(p Vec2i, v T) {
	k, l := g.WorldToChunk(p)
	g.touch(k)
	g.store.Ensure(k).Set(l.X, l.Y, v)
}

// Context returns chunk k's context, materializing the chunk and building
// the context on first call. The builder runs at most once per chunk
// lifetime; removal discards the cached value along with the chunk.
func (g *Grid[T, C]) Context(k ChunkKey) C {
	g.touch(k)
	ch := g.store.Ensure(k)
	if v, ok := ch.Context(); ok {
		return v
	}
	v := g.builder(k)
	ch.setContext(v)
	return v
}

// RemoveChunk drops chunk k, cells and cached context both. Reports whether
// a chunk existed. The region then reads as if never written.
func (g *Grid[T, C]) RemoveChunk(k ChunkKey) bool {
	return g.store.Remove(k)
}

// Clear drops every chunk and resets the view cursor.
func (g *Grid[T, C]) Clear() {
	g.store.Clear()
	g.lastTouched = nil
}

// View snapshots the chunk most recently resolved by any prior operation.
// Sugar for ViewChunk on that key; fails with ErrNoChunkTouched before any
// chunk has been named.
func (g *Grid[T, C]) View() (View[T], error) {
	if g.lastTouched == nil {
		return View[T]{}, ErrNoChunkTouched
	}
	return g.ViewChunk(*g.lastTouched), nil
}

// ViewChunk snapshots exactly chunk k. An absent chunk yields an
// all-default view; nothing is materialized.
func (g *Grid[T, C]) ViewChunk(k ChunkKey) View[T] {
	g.touch(k)
	v := newView[T](g.ChunkOrigin(k), g.size, g.size, g.def)
	if ch, ok := g.store.Get(k); ok {
		copy(v.cells, ch.Cells)
	}
	return v
}

// ChunkCells returns a copy of chunk k's cells. Unlike ViewChunk this is a
// bulk accessor for export and digest machinery: it does not move the view
// cursor and does not materialize anything. ok is false for absent chunks.
func (g *Grid[T, C]) ChunkCells(k ChunkKey) (cells []T, ok bool) {
	ch, found := g.store.Get(k)
	if !found {
		return nil, false
	}
	out := make([]T, len(ch.Cells))
	copy(out, ch.Cells)
	return out, true
}

// LoadChunk replaces chunk k's cells wholesale, materializing the chunk if
// absent. The bulk counterpart to ChunkCells for import paths; it does not
// move the view cursor. cells must hold exactly size*size entries.
func (g *Grid[T, C]) LoadChunk(k ChunkKey, cells []T) error {
	if len(cells) != g.size*g.size {
		return fmt.Errorf("grid: chunk cells length mismatch: got %d want %d", len(cells), g.size*g.size)
	}
	copy(g.store.Ensure(k).Cells, cells)
	return nil
}

// ViewRect snapshots the world rectangle [origin.X, origin.X+w) x
// [origin.Y, origin.Y+h). Cells in absent chunks read as default; nothing
// is materialized. w and h must be positive.
func (g *Grid[T, C]) ViewRect(origin Vec2i, w, h int) (View[T], error) {
	if w <= 0 || h <= 0 {
		return View[T]{}, fmt.Errorf("%w: %dx%d", ErrEmptyView, w, h)
	}
	if w > math.MaxInt/h {
		return View[T]{}, fmt.Errorf("%w: %dx%d", ErrViewTooLarge, w, h)
	}
	v := newView[T](origin, w, h, g.def)
	// Walk row by row, switching chunks only at chunk boundaries.
	for row := 0; row < h; row++ {
		y := origin.Y + row
		cy := mathx.FloorDiv(y, g.size)
		ly := mathx.Mod(y, g.size)
		for col := 0; col < w; {
			x := origin.X + col
			cx := mathx.FloorDiv(x, g.size)
			lx := mathx.Mod(x, g.size)
			// Columns remaining inside this chunk on this row.
			run := g.size - lx
			if rest := w - col; run > rest {
				run = rest
			}
			if ch, ok := g.store.Get(ChunkKey{CX: cx, CY: cy}); ok {
				src := ch.Cells[lx+ly*g.size:]
				copy(v.cells[row*w+col:row*w+col+run], src[:run])
			}
			col += run
		}
	}
	return v, nil
}
