package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	GridID  string `json:"grid_id"`
	Ops     uint64 `json:"ops"`
}

// SnapshotV1 captures a grid's full materialized state: construction
// parameters plus every loaded chunk.
type SnapshotV1 struct {
	Header Header `json:"header"`

	ChunkSize   int    `json:"chunk_size"`
	DefaultCell uint16 `json:"default_cell"`
	Seed        int64  `json:"seed"`

	Chunks []ChunkV1 `json:"chunks"`
}

type ChunkV1 struct {
	CX    int      `json:"cx"`
	CY    int      `json:"cy"`
	Cells []uint16 `json:"cells"`
}

// WriteSnapshot writes a zstd-compressed file: one JSON header line for
// cheap inspection, then the gob-encoded snapshot body.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Skip the header line; gob carries the header too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// SnapshotPath names a snapshot file by op counter, zero-padded so
// lexicographic order is op order.
func SnapshotPath(dir string, ops uint64) string {
	return filepath.Join(dir, fmt.Sprintf("snap_%020d.zst", ops))
}

// FindLatest returns the newest snapshot file in dir, if any.
func FindLatest(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasPrefix(n, "snap_") && strings.HasSuffix(n, ".zst") {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), true
}
