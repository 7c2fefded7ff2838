package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrRowWidth = errors.New("row width mismatch")

// EncodeRow packs one row of tile type ids as base64 of (type, run) uvarint
// pairs. Rows are short and mostly uniform, so runs stay small.
func EncodeRow(types []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(types); {
		tt := types[i]
		run := 1
		for i+run < len(types) && types[i+run] == tt {
			run++
		}
		n := binary.PutUvarint(tmp[:], uint64(tt))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])
		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRow reverses EncodeRow. The decoded row must have exactly width
// cells.
func DecodeRow(b64 string, width int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, 0, width)
	for i := 0; i < len(raw); {
		tt, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if tt > 0xFFFF {
			return nil, fmt.Errorf("tile type too large: %d", tt)
		}
		if run == 0 || uint64(len(out))+run > uint64(width) {
			return nil, fmt.Errorf("%w: run %d after %d cells, width %d", ErrRowWidth, run, len(out), width)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(tt))
		}
	}
	if len(out) != width {
		return nil, fmt.Errorf("%w: got %d cells, want %d", ErrRowWidth, len(out), width)
	}
	return out, nil
}
