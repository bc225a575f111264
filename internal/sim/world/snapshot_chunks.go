package world

import (
	"fmt"

	"chunkfield.dev/internal/persistence/snapshot"
	"chunkfield.dev/internal/sim/grid"
)

// ExportSnapshot copies every loaded chunk into snapshot rows. It reads
// through the grid's bulk accessor so a background snapshot never disturbs
// the session-visible view cursor.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	keys := w.grid.ChunkKeys()
	chunks := make([]snapshot.ChunkV1, 0, len(keys))
	for _, k := range keys {
		cells, ok := w.grid.ChunkCells(k)
		if !ok {
			continue
		}
		chunks = append(chunks, snapshot.ChunkV1{
			CX:    k.CX,
			CY:    k.CY,
			Cells: cells,
		})
	}
	return snapshot.SnapshotV1{
		Header:      snapshot.Header{Version: 1, GridID: w.cfg.ID, Ops: w.ops},
		ChunkSize:   w.cfg.ChunkSize,
		DefaultCell: w.cfg.DefaultCell,
		Seed:        w.cfg.Seed,
		Chunks:      chunks,
	}
}

// ImportSnapshot replaces the grid contents with the snapshot's chunks.
// The snapshot must have been taken with the same chunk size.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.ChunkSize != w.cfg.ChunkSize {
		return fmt.Errorf("snapshot chunk size mismatch: got %d want %d", snap.ChunkSize, w.cfg.ChunkSize)
	}
	size := w.cfg.ChunkSize
	w.grid.Clear()
	for _, ch := range snap.Chunks {
		if len(ch.Cells) != size*size {
			return fmt.Errorf("snapshot chunk cells length mismatch: got %d want %d", len(ch.Cells), size*size)
		}
		if err := w.grid.LoadChunk(grid.ChunkKey{CX: ch.CX, CY: ch.CY}, ch.Cells); err != nil {
			return err
		}
	}
	w.ops = snap.Header.Ops
	return nil
}
