package grid

import "sort"

// Store maps chunk keys to materialized chunks. Absent keys read as
// "all cells default, context unbuilt".
type Store[T any, C any] struct {
	size   int
	def    T
	chunks map[ChunkKey]*Chunk[T, C]
}

func newStore[T any, C any](size int, def T) *Store[T, C] {
	return &Store[T, C]{
		size:   size,
		def:    def,
		chunks: map[ChunkKey]*Chunk[T, C]{},
	}
}

// Get looks up a chunk without creating it.
func (s *Store[T, C]) Get(k ChunkKey) (*Chunk[T, C], bool) {
	ch, ok := s.chunks[k]
	return ch, ok
}

// Ensure returns the chunk at k, materializing a default-filled one if absent.
func (s *Store[T, C]) Ensure(k ChunkKey) *Chunk[T, C] {
	if ch, ok := s.chunks[k]; ok {
		return ch
	}
	ch := newChunk[T, C](k, s.size, s.def)
	s.chunks[k] = ch
	return ch
}

// Remove deletes the chunk at k along with its cached context.
// Reports whether anything was removed.
func (s *Store[T, C]) Remove(k ChunkKey) bool {
	if _, ok := s.chunks[k]; !ok {
		return false
	}
	delete(s.chunks, k)
	return true
}

// Clear drops every chunk unconditionally.
func (s *Store[T, C]) Clear() {
	s.chunks = map[ChunkKey]*Chunk[T, C]{}
}

func (s *Store[T, C]) Len() int {
	return len(s.chunks)
}

// Keys returns the materialized chunk keys in (CX, CY) order.
func (s *Store[T, C]) Keys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CY < keys[j].CY
	})
	return keys
}
