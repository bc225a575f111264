package grid

// Chunk is one materialized size*size block of cells plus an optional
// lazily-built context value.
type Chunk[T any, C any] struct {
	CX, CY int
	Cells  []T // len = size*size

	size     int
	ctx      C
	ctxBuilt bool
}

func newChunk[T any, C any](k ChunkKey, size int, def T) *Chunk[T, C] {
	cells := make([]T, size*size)
	for i := range cells {
		cells[i] = def
	}
	return &Chunk[T, C]{
		CX:    k.CX,
		CY:    k.CY,
		Cells: cells,
		size:  size,
	}
}

func (c *Chunk[T, C]) index(x, y int) int {
	// x fastest, then y
	if x < 0 || x >= c.size || y < 0 || y >= c.size {
		panic("grid: local coordinate out of chunk bounds")
	}
	return x + y*c.size
}

func (c *Chunk[T, C]) Get(x, y int) T {
	return c.Cells[c.index(x, y)]
}

func (c *Chunk[T, C]) Set(x, y int, v T) {
	c.Cells[c.index(x, y)] = v
}

// Context returns the cached context and whether it has been built.
func (c *Chunk[T, C]) Context() (C, bool) {
	return c.ctx, c.ctxBuilt
}

func (c *Chunk[T, C]) setContext(v C) {
	c.ctx = v
	c.ctxBuilt = true
}
