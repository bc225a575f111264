package grid

// View is a dense read-only snapshot of a rectangular region. It is an
// independent copy: mutating the grid after taking a view does not change
// the view's contents.
type View[T any] struct {
	Origin Vec2i
	W, H   int

	cells []T // row-major, len = W*H
}

func newView[T any](origin Vec2i, w, h int, def T) View[T] {
	cells := make([]T, w*h)
	for i := range cells {
		cells[i] = def
	}
	return View[T]{Origin: origin, W: w, H: h, cells: cells}
}

// At reads the cell at (row, col): row is the offset along the second axis
// from the view origin, col the offset along the first.
func (v View[T]) At(row, col int) T {
	if row < 0 || row >= v.H || col < 0 || col >= v.W {
		panic("grid: view index out of range")
	}
	return v.cells[row*v.W+col]
}

// Rows materializes the view as nested slices, rows outer, columns inner.
func (v View[T]) Rows() [][]T {
	out := make([][]T, v.H)
	for row := 0; row < v.H; row++ {
		r := make([]T, v.W)
		copy(r, v.cells[row*v.W:(row+1)*v.W])
		out[row] = r
	}
	return out
}

// Cells returns a copy of the backing row-major cell slice.
func (v View[T]) Cells() []T {
	out := make([]T, len(v.cells))
	copy(out, v.cells)
	return out
}
