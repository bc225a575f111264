package world

import (
	"testing"

	"chunkfield.dev/internal/protocol"
	"chunkfield.dev/internal/sim/encoding"
	"chunkfield.dev/internal/sim/grid"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := New(Config{
		ID:          "test",
		ChunkSize:   16,
		DefaultCell: 0,
		Seed:        1337,
	}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func cmd(op string) protocol.CmdMsg {
	return protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              "c",
		Op:              op,
	}
}

func mustApply(t *testing.T, w *World, c protocol.CmdMsg) protocol.ResultMsg {
	t.Helper()
	res := w.Apply("T", c)
	if !res.OK {
		t.Fatalf("apply %s: %s %s", c.Op, res.Code, res.Message)
	}
	return res
}

func set(t *testing.T, w *World, x, y int, v uint16) {
	t.Helper()
	c := cmd(protocol.OpSet)
	c.Pos = &[2]int{x, y}
	c.Value = &v
	mustApply(t, w, c)
}

func get(t *testing.T, w *World, x, y int) uint16 {
	t.Helper()
	c := cmd(protocol.OpGet)
	c.Pos = &[2]int{x, y}
	res := mustApply(t, w, c)
	if res.Value == nil {
		t.Fatalf("get: no value in result")
	}
	return *res.Value
}

func decodeView(t *testing.T, p *protocol.ViewPayload) [][]uint16 {
	t.Helper()
	if p == nil {
		t.Fatalf("no view payload")
	}
	if p.Encoding != "RLE" {
		t.Fatalf("unexpected encoding %q", p.Encoding)
	}
	cells, err := encoding.DecodeRLE(p.Data, p.W*p.H)
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(cells) != p.W*p.H {
		t.Fatalf("view cells: got %d want %d", len(cells), p.W*p.H)
	}
	rows := make([][]uint16, p.H)
	for i := range rows {
		rows[i] = cells[i*p.W : (i+1)*p.W]
	}
	return rows
}

func TestApply_SetGetAcrossChunks(t *testing.T) {
	w := newTestWorld(t)
	set(t, w, 16, 16, 16)
	set(t, w, 15, 16, 15)

	if got := get(t, w, 16, 16); got != 16 {
		t.Fatalf("get (16,16): got %d", got)
	}
	if got := get(t, w, 15, 16); got != 15 {
		t.Fatalf("get (15,16): got %d", got)
	}
	if got := get(t, w, 16, 15); got != 0 {
		t.Fatalf("get (16,15): got %d", got)
	}
}

func TestApply_WorldToChunkAndRemove(t *testing.T) {
	w := newTestWorld(t)
	set(t, w, 15, 16, 15)

	c := cmd(protocol.OpWorldToChunk)
	c.Pos = &[2]int{15, 16}
	res := mustApply(t, w, c)
	if *res.Chunk != [2]int{0, 1} || *res.Local != [2]int{15, 0} {
		t.Fatalf("world_to_chunk: chunk %v local %v", *res.Chunk, *res.Local)
	}

	rm := cmd(protocol.OpRemoveChunk)
	rm.Chunk = res.Chunk
	rmRes := mustApply(t, w, rm)
	if rmRes.Removed == nil || !*rmRes.Removed {
		t.Fatalf("remove_chunk: expected removed=true")
	}
	if got := get(t, w, 15, 16); got != 0 {
		t.Fatalf("after remove: got %d want 0", got)
	}

	rmRes = mustApply(t, w, rm)
	if *rmRes.Removed {
		t.Fatalf("remove_chunk twice: expected removed=false")
	}
}

func TestApply_ContextMatchesBuilder(t *testing.T) {
	w := newTestWorld(t)
	c := cmd(protocol.OpGetContext)
	c.Chunk = &[2]int{1, 1}
	res := mustApply(t, w, c)

	want := ContextBuilder(1337)(grid.ChunkKey{CX: 1, CY: 1})
	if res.Context == nil || res.Context.Biome != want.Biome || res.Context.Noise != want.Noise {
		t.Fatalf("context: got %+v want %+v", res.Context, want)
	}

	// Same answer on repeat (memoized on the chunk).
	again := mustApply(t, w, c)
	if *again.Context != *res.Context {
		t.Fatalf("context changed between calls")
	}
}

func TestApply_ViewFollowsLastTouchedChunk(t *testing.T) {
	w := newTestWorld(t)

	res := w.Apply("T", cmd(protocol.OpView))
	if res.OK || res.Code != protocol.ErrNoCursor {
		t.Fatalf("view before any touch: ok=%v code=%s", res.OK, res.Code)
	}

	set(t, w, 16, 16, 16)
	ctx := cmd(protocol.OpGetContext)
	ctx.Chunk = &[2]int{1, 1}
	mustApply(t, w, ctx)

	view := mustApply(t, w, cmd(protocol.OpView))
	rows := decodeView(t, view.View)
	for i := 0; i < 16; i++ {
		for j := 0; j < 16; j++ {
			var want uint16
			if i == 0 && j == 0 {
				want = 16
			}
			if rows[i][j] != want {
				t.Fatalf("view[%d][%d]: got %d want %d", i, j, rows[i][j], want)
			}
		}
	}
}

func TestApply_ViewRectScenario(t *testing.T) {
	w := newTestWorld(t)
	set(t, w, 16, 16, 16)
	set(t, w, 15, 16, 15)
	rm := cmd(protocol.OpRemoveChunk)
	rm.Chunk = &[2]int{0, 1}
	mustApply(t, w, rm)

	c := cmd(protocol.OpViewRect)
	c.Pos = &[2]int{15, 15}
	c.W, c.H = 4, 4
	res := mustApply(t, w, c)
	rows := decodeView(t, res.View)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var want uint16
			if i == 1 && j == 1 {
				want = 16
			}
			if rows[i][j] != want {
				t.Fatalf("rect[%d][%d]: got %d want %d", i, j, rows[i][j], want)
			}
		}
	}
}

func TestApply_ClearResetsEverything(t *testing.T) {
	w := newTestWorld(t)
	set(t, w, 16, 16, 16)
	set(t, w, 15, 16, 15)
	mustApply(t, w, cmd(protocol.OpClear))
	for _, p := range [][2]int{{16, 16}, {15, 16}, {16, 15}} {
		if got := get(t, w, p[0], p[1]); got != 0 {
			t.Fatalf("after clear, get %v: got %d", p, got)
		}
	}
}

func TestApply_RejectsMalformedCommands(t *testing.T) {
	w := newTestWorld(t)
	cases := []struct {
		name string
		c    protocol.CmdMsg
		code string
	}{
		{"get without pos", cmd(protocol.OpGet), protocol.ErrBadRequest},
		{"set without value", func() protocol.CmdMsg {
			c := cmd(protocol.OpSet)
			c.Pos = &[2]int{0, 0}
			return c
		}(), protocol.ErrBadRequest},
		{"get_context without chunk", cmd(protocol.OpGetContext), protocol.ErrBadRequest},
		{"view_rect zero width", func() protocol.CmdMsg {
			c := cmd(protocol.OpViewRect)
			c.Pos = &[2]int{0, 0}
			c.W, c.H = 0, 4
			return c
		}(), protocol.ErrEmptyView},
		{"unknown op", cmd("teleport"), protocol.ErrUnknownOp},
	}
	for _, tc := range cases {
		res := w.Apply("T", tc.c)
		if res.OK {
			t.Fatalf("%s: expected failure", tc.name)
		}
		if res.Code != tc.code {
			t.Fatalf("%s: got code %s want %s", tc.name, res.Code, tc.code)
		}
		if !protocol.IsKnownCode(res.Code) {
			t.Fatalf("%s: unknown error code %s", tc.name, res.Code)
		}
	}
}

func TestApply_ViewRectCap(t *testing.T) {
	w, err := New(Config{ChunkSize: 16, Seed: 1, MaxViewCells: 64}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := cmd(protocol.OpViewRect)
	c.Pos = &[2]int{0, 0}
	c.W, c.H = 9, 8
	res := w.Apply("T", c)
	if res.OK || res.Code != protocol.ErrViewTooLarge {
		t.Fatalf("oversized rect: ok=%v code=%s", res.OK, res.Code)
	}
	c.W, c.H = 8, 8
	mustApply(t, w, c)
}

func TestApply_ViewRectRejectsWrappingDimensions(t *testing.T) {
	// W*H wraps around int for these dimensions; the cap must still catch
	// them instead of letting the walk start.
	w, err := New(Config{ChunkSize: 16, Seed: 1, MaxViewCells: 64 * 1024}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := cmd(protocol.OpViewRect)
	c.Pos = &[2]int{0, 0}
	c.W, c.H = 1<<32, 1<<32
	res := w.Apply("T", c)
	if res.OK || res.Code != protocol.ErrViewTooLarge {
		t.Fatalf("wrapping rect: ok=%v code=%s", res.OK, res.Code)
	}

	// With no cap configured the grid's own overflow guard must answer.
	w2, err := New(Config{ChunkSize: 16, Seed: 1}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res = w2.Apply("T", c)
	if res.OK || res.Code != protocol.ErrViewTooLarge {
		t.Fatalf("uncapped wrapping rect: ok=%v code=%s", res.OK, res.Code)
	}
}
