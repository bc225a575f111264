package grid

import "fmt"

// Vec2i is a world coordinate: an unbounded integer cell address.
type Vec2i struct {
	X int
	Y int
}

func (v Vec2i) Add(o Vec2i) Vec2i {
	return Vec2i{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2i) String() string {
	return fmt.Sprintf("vec2i(%d, %d)", v.X, v.Y)
}

// ChunkKey identifies one fixed-size chunk of the grid.
type ChunkKey struct {
	CX int
	CY int
}

func (k ChunkKey) String() string {
	return fmt.Sprintf("chunk(%d, %d)", k.CX, k.CY)
}
