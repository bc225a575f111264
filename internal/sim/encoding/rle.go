package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE encodes a sequence of cell values into base64(varint pairs).
// The pairs are (cell_value, run_len) repeated. Chunk rows and view
// payloads are long runs of the default cell, so this stays small.
func EncodeRLE(cells []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(cells) {
		v := cells[i]
		run := 1
		for j := i + 1; j < len(cells) && cells[j] == v && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. maxCells bounds the decoded length so a
// hostile payload cannot balloon memory; pass 0 for no bound.
func DecodeRLE(b64 string, maxCells int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint16
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if v > 0xFFFF {
			return nil, fmt.Errorf("cell value too large: %d", v)
		}
		// The encoder never emits empty runs or runs past 1<<31; reject
		// both before the int conversion can wrap.
		if run == 0 || run > 1<<31 {
			return nil, fmt.Errorf("bad run length: %d", run)
		}
		if maxCells > 0 && len(out)+int(run) > maxCells {
			return nil, fmt.Errorf("run overflows %d cells", maxCells)
		}
		for k := 0; k < int(run); k++ {
			out = append(out, uint16(v))
		}
	}
	return out, nil
}
