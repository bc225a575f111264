package world

import (
	"chunkfield.dev/internal/sim/grid"
	"chunkfield.dev/internal/sim/logic/mathx"
)

// ChunkInfo is the lazily-built per-chunk context: a deterministic function
// of the seed and the chunk key, computed at most once per chunk lifetime.
type ChunkInfo struct {
	Biome string
	Noise uint64
}

func biomeFrom(noise uint64) string {
	// 3-way split.
	switch noise % 3 {
	case 0:
		return "PLAINS"
	case 1:
		return "FOREST"
	default:
		return "DESERT"
	}
}

// ContextBuilder returns the grid context builder for a given seed.
func ContextBuilder(seed int64) func(grid.ChunkKey) ChunkInfo {
	return func(k grid.ChunkKey) ChunkInfo {
		n := mathx.Hash2(seed, k.CX, k.CY)
		return ChunkInfo{Biome: biomeFrom(n), Noise: n}
	}
}
