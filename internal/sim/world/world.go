// Package world wraps a concrete chunked grid (uint16 cells) in a
// single-goroutine command loop. The grid itself defines no locking; the
// loop is the serialization point for every session talking to it.
package world

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"chunkfield.dev/internal/persistence/snapshot"
	"chunkfield.dev/internal/protocol"
	"chunkfield.dev/internal/sim/grid"
)

type Config struct {
	ID          string
	ChunkSize   int
	DefaultCell uint16
	Seed        int64

	// MaxViewCells caps w*h for view_rect commands. 0 means no cap.
	MaxViewCells int

	// SnapshotEveryOps triggers OnSnapshot after that many mutating
	// commands. 0 disables periodic snapshots.
	SnapshotEveryOps int
}

// CmdEnvelope is one command from a session plus the channel its RESULT
// goes back on.
type CmdEnvelope struct {
	SessionID string
	Cmd       protocol.CmdMsg
	Out       chan []byte
}

type World struct {
	cfg  Config
	grid *grid.Grid[uint16, ChunkInfo]

	inbox chan CmdEnvelope
	ops   uint64 // mutating commands applied

	logger *log.Logger
	audit  OpSink

	// OnSnapshot receives a full export every SnapshotEveryOps mutations.
	// Called from the world loop goroutine.
	OnSnapshot func(snap snapshot.SnapshotV1)
}

func New(cfg Config, logger *log.Logger, audit OpSink) (*World, error) {
	if cfg.ID == "" {
		cfg.ID = "grid_1"
	}
	g, err := grid.New[uint16, ChunkInfo](cfg.ChunkSize, cfg.DefaultCell, ContextBuilder(cfg.Seed))
	if err != nil {
		return nil, fmt.Errorf("world %s: %w", cfg.ID, err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &World{
		cfg:    cfg,
		grid:   g,
		inbox:  make(chan CmdEnvelope, 256),
		logger: logger,
		audit:  audit,
	}, nil
}

func (w *World) Inbox() chan<- CmdEnvelope { return w.inbox }

func (w *World) Params() protocol.GridParams {
	return protocol.GridParams{
		ChunkSize:   w.cfg.ChunkSize,
		DefaultCell: w.cfg.DefaultCell,
		Seed:        w.cfg.Seed,
	}
}

// Run applies commands until ctx is cancelled. All grid access happens
// here, on one goroutine.
func (w *World) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-w.inbox:
			res := w.Apply(env.SessionID, env.Cmd)
			b, err := json.Marshal(res)
			if err != nil {
				w.logger.Printf("world %s: marshal result: %v", w.cfg.ID, err)
				continue
			}
			select {
			case env.Out <- b:
			default:
				// Session fell behind; it will resync from results it
				// does receive.
			}
		}
	}
}

// Apply runs one command against the grid and records it. Only the world
// loop goroutine may call this while Run is active.
func (w *World) Apply(sessionID string, cmd protocol.CmdMsg) protocol.ResultMsg {
	res := w.apply(cmd)
	w.record(sessionID, cmd, res)
	return res
}

func (w *World) record(sessionID string, cmd protocol.CmdMsg, res protocol.ResultMsg) {
	if !res.OK || !mutates(cmd.Op) {
		return
	}
	w.ops++
	if w.audit != nil {
		w.audit.WriteOp(OpEntry{
			Seq:     w.ops,
			Session: sessionID,
			Op:      cmd.Op,
			Pos:     cmd.Pos,
			Value:   cmd.Value,
			Chunk:   cmd.Chunk,
		})
	}
	if w.cfg.SnapshotEveryOps > 0 && w.ops%uint64(w.cfg.SnapshotEveryOps) == 0 && w.OnSnapshot != nil {
		w.OnSnapshot(w.ExportSnapshot())
	}
}

func mutates(op string) bool {
	switch op {
	case protocol.OpSet, protocol.OpRemoveChunk, protocol.OpClear:
		return true
	}
	return false
}
