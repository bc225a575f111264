package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"chunkfield.dev/internal/sim/world"
)

func TestOpLogger_WritesDecodableLines(t *testing.T) {
	dir := t.TempDir()
	l := NewOpLogger(dir)

	v := uint16(7)
	l.WriteOp(world.OpEntry{Seq: 1, Session: "S1", Op: "set", Pos: &[2]int{3, -4}, Value: &v})
	l.WriteOp(world.OpEntry{Seq: 2, Session: "S1", Op: "clear"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "ops", "ops-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one log file, got %v (err %v)", files, err)
	}

	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var entries []world.OpEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e world.OpEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: got %d want 2", len(entries))
	}
	if entries[0].Op != "set" || entries[0].Pos == nil || entries[0].Pos[1] != -4 {
		t.Fatalf("first entry: %+v", entries[0])
	}
	if entries[1].Op != "clear" || entries[1].Seq != 2 {
		t.Fatalf("second entry: %+v", entries[1])
	}
}
