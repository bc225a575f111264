package world

import (
	"errors"

	"chunkfield.dev/internal/protocol"
	"chunkfield.dev/internal/sim/encoding"
	"chunkfield.dev/internal/sim/grid"
)

func (w *World) apply(cmd protocol.CmdMsg) protocol.ResultMsg {
	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ID:              cmd.ID,
		Op:              cmd.Op,
	}

	fail := func(code, msg string) protocol.ResultMsg {
		res.OK = false
		res.Code = code
		res.Message = msg
		return res
	}

	switch cmd.Op {
	case protocol.OpGet:
		if cmd.Pos == nil {
			return fail(protocol.ErrBadRequest, "get requires pos")
		}
		v := w.grid.Get(grid.Vec2i{X: cmd.Pos[0], Y: cmd.Pos[1]})
		res.OK = true
		res.Value = &v

	case protocol.OpSet:
		if cmd.Pos == nil || cmd.Value == nil {
			return fail(protocol.ErrBadRequest, "set requires pos and value")
		}
		w.grid.Set(grid.Vec2i{X: cmd.Pos[0], Y: cmd.Pos[1]}, *cmd.Value)
		res.OK = true

	case protocol.OpGetContext:
		if cmd.Chunk == nil {
			return fail(protocol.ErrBadRequest, "get_context requires chunk")
		}
		info := w.grid.Context(grid.ChunkKey{CX: cmd.Chunk[0], CY: cmd.Chunk[1]})
		res.OK = true
		res.Context = &protocol.ChunkCtx{Biome: info.Biome, Noise: info.Noise}

	case protocol.OpWorldToChunk:
		if cmd.Pos == nil {
			return fail(protocol.ErrBadRequest, "world_to_chunk requires pos")
		}
		k, l := w.grid.WorldToChunk(grid.Vec2i{X: cmd.Pos[0], Y: cmd.Pos[1]})
		res.OK = true
		res.Chunk = &[2]int{k.CX, k.CY}
		res.Local = &[2]int{l.X, l.Y}

	case protocol.OpRemoveChunk:
		if cmd.Chunk == nil {
			return fail(protocol.ErrBadRequest, "remove_chunk requires chunk")
		}
		removed := w.grid.RemoveChunk(grid.ChunkKey{CX: cmd.Chunk[0], CY: cmd.Chunk[1]})
		res.OK = true
		res.Removed = &removed

	case protocol.OpClear:
		w.grid.Clear()
		res.OK = true

	case protocol.OpView:
		v, err := w.grid.View()
		if err != nil {
			if errors.Is(err, grid.ErrNoChunkTouched) {
				return fail(protocol.ErrNoCursor, err.Error())
			}
			return fail(protocol.ErrInternal, err.Error())
		}
		res.OK = true
		res.View = viewPayload(v)

	case protocol.OpViewChunk:
		if cmd.Chunk == nil {
			return fail(protocol.ErrBadRequest, "view_chunk requires chunk")
		}
		v := w.grid.ViewChunk(grid.ChunkKey{CX: cmd.Chunk[0], CY: cmd.Chunk[1]})
		res.OK = true
		res.View = viewPayload(v)

	case protocol.OpViewRect:
		if cmd.Pos == nil {
			return fail(protocol.ErrBadRequest, "view_rect requires pos")
		}
		if cmd.W <= 0 || cmd.H <= 0 {
			return fail(protocol.ErrEmptyView, "view dimensions must be positive")
		}
		// Bound each axis before multiplying: cmd.W*cmd.H can wrap for
		// hostile dimensions and slip under the cap.
		if max := w.cfg.MaxViewCells; max > 0 && (cmd.W > max || cmd.H > max || cmd.W*cmd.H > max) {
			return fail(protocol.ErrViewTooLarge, "view exceeds max_view_cells")
		}
		v, err := w.grid.ViewRect(grid.Vec2i{X: cmd.Pos[0], Y: cmd.Pos[1]}, cmd.W, cmd.H)
		if err != nil {
			if errors.Is(err, grid.ErrEmptyView) {
				return fail(protocol.ErrEmptyView, err.Error())
			}
			if errors.Is(err, grid.ErrViewTooLarge) {
				return fail(protocol.ErrViewTooLarge, err.Error())
			}
			return fail(protocol.ErrInternal, err.Error())
		}
		res.OK = true
		res.View = viewPayload(v)

	default:
		return fail(protocol.ErrUnknownOp, "unknown op: "+cmd.Op)
	}

	return res
}

func viewPayload(v grid.View[uint16]) *protocol.ViewPayload {
	return &protocol.ViewPayload{
		Origin:   [2]int{v.Origin.X, v.Origin.Y},
		W:        v.W,
		H:        v.H,
		Encoding: "RLE",
		Data:     encoding.EncodeRLE(v.Cells()),
	}
}
