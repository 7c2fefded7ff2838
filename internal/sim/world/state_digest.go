package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

// Digest hashes terrain placements, lighting, projectiles and player counters.
// Visual variants and particle bursts are excluded.
func (w *World) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, w.tick)
	h.Write([]byte{byte(w.state)})
	digestWriteI64(h, &tmp, int64(w.topRow))
	digestWriteI64(h, &tmp, int64(w.bottomRow))
	digestWriteI64(h, &tmp, int64(w.rowsGenerated))

	tiles := w.tiles.Digest()
	h.Write(tiles[:])

	digestWriteU64(h, &tmp, uint64(len(w.pending)))
	for _, c := range w.pending {
		digestWriteI64(h, &tmp, int64(c.X))
		digestWriteI64(h, &tmp, int64(c.Y))
	}
	digestWriteU64(h, &tmp, uint64(len(w.sources)))
	for _, s := range w.sources {
		digestWriteF64(h, &tmp, s.X)
		digestWriteF64(h, &tmp, s.Y)
		digestWriteF64(h, &tmp, s.Radius)
	}

	digestWriteU64(h, &tmp, uint64(len(w.projectiles)))
	for _, p := range w.projectiles {
		digestWriteI64(h, &tmp, int64(p.ID))
		digestWriteI64(h, &tmp, int64(p.Cell.X))
		digestWriteI64(h, &tmp, int64(p.Cell.Y))
		digestWriteI64(h, &tmp, int64(p.ExplodeTick))
		h.Write([]byte{byte(p.Desc.Type), boolByte(p.Visible)})
	}

	if p := w.player; p != nil {
		h.Write([]byte{1, boolByte(p.Dead), boolByte(p.OnLadder)})
		digestWriteI64(h, &tmp, int64(p.HP))
		digestWriteI64(h, &tmp, int64(p.Bombs))
		digestWriteI64(h, &tmp, int64(p.Gold))
		digestWriteI64(h, &tmp, int64(p.Crystals))
		digestWriteI64(h, &tmp, int64(p.Cell.X))
		digestWriteI64(h, &tmp, int64(p.Cell.Y))
	} else {
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hashWriter, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
