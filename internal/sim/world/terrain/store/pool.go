package store

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"
	"sort"
)

var ErrOccupied = errors.New("cell already occupied")

// Pool indexes the instances of one layer by row, then column. At most one
// instance occupies a cell.
type Pool struct {
	Layer Layer

	rows map[int]map[int]*Tile
	n    int
}

func NewPool(layer Layer) *Pool {
	return &Pool{Layer: layer, rows: map[int]map[int]*Tile{}}
}

func (p *Pool) Add(t *Tile) error {
	row := p.rows[t.Cell.Y]
	if row == nil {
		row = map[int]*Tile{}
		p.rows[t.Cell.Y] = row
	}
	if _, ok := row[t.Cell.X]; ok {
		return ErrOccupied
	}
	row[t.Cell.X] = t
	p.n++
	return nil
}

// Get returns nil for an empty cell.
func (p *Pool) Get(x, y int) *Tile {
	return p.rows[y][x]
}

// Remove detaches and returns the instance at (x,y), or nil.
func (p *Pool) Remove(x, y int) *Tile {
	row := p.rows[y]
	t, ok := row[x]
	if !ok {
		return nil
	}
	delete(row, x)
	if len(row) == 0 {
		delete(p.rows, y)
	}
	p.n--
	return t
}

// EvictAbove drops every instance whose row is < top and returns how many
// were dropped.
func (p *Pool) EvictAbove(top int) int {
	dropped := 0
	for y, row := range p.rows {
		if y < top {
			dropped += len(row)
			delete(p.rows, y)
		}
	}
	p.n -= dropped
	return dropped
}

func (p *Pool) Len() int { return p.n }

// Rows lists occupied rows in ascending order.
func (p *Pool) Rows() []int {
	out := make([]int, 0, len(p.rows))
	for y := range p.rows {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// Row returns the instances of row y ordered by column.
func (p *Pool) Row(y int) []*Tile {
	row := p.rows[y]
	out := make([]*Tile, 0, len(row))
	for _, t := range row {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell.X < out[j].Cell.X })
	return out
}

// Each visits every instance in row-major order. fn must not add or remove
// instances.
func (p *Pool) Each(fn func(*Tile)) {
	for _, y := range p.Rows() {
		for _, t := range p.Row(y) {
			fn(t)
		}
	}
}

// ExportRow flattens row y over columns [0, width) into tile type codes, 0
// for empty cells.
func (p *Pool) ExportRow(y, width int) []uint16 {
	out := make([]uint16, width)
	for x, t := range p.rows[y] {
		if x >= 0 && x < width {
			out[x] = uint16(t.Type())
		}
	}
	return out
}

func (p *Pool) writeDigest(h io.Writer) {
	var tmp [8]byte
	p.Each(func(t *Tile) {
		binary.LittleEndian.PutUint32(tmp[0:4], uint32(int32(t.Cell.X)))
		binary.LittleEndian.PutUint32(tmp[4:8], uint32(int32(t.Cell.Y)))
		h.Write(tmp[:])
		lit := byte(0)
		if t.Lit {
			lit = 1
		}
		h.Write([]byte{byte(p.Layer), byte(t.Type()), lit})
		binary.LittleEndian.PutUint32(tmp[0:4], uint32(int32(t.Data.FlowLeft)))
		h.Write(tmp[0:4])
	})
}

// Store holds the three disjoint layers of placed tiles.
type Store struct {
	Foreground *Pool
	Background *Pool
	Dynamic    *Pool
}

func New() *Store {
	return &Store{
		Foreground: NewPool(Foreground),
		Background: NewPool(Background),
		Dynamic:    NewPool(Dynamic),
	}
}

func (s *Store) Pool(l Layer) *Pool {
	switch l {
	case Foreground:
		return s.Foreground
	case Background:
		return s.Background
	case Dynamic:
		return s.Dynamic
	}
	return nil
}

func (s *Store) Pools() [3]*Pool {
	return [3]*Pool{s.Foreground, s.Background, s.Dynamic}
}

func (s *Store) EvictAbove(top int) int {
	n := 0
	for _, p := range s.Pools() {
		n += p.EvictAbove(top)
	}
	return n
}

// LitRow packs the lit state of row y into one value per column: bit 0 for
// the foreground tile, bit 1 for the background, bit 2 for the dynamic tile.
// Empty layers leave their bit clear.
func (s *Store) LitRow(y, width int) []uint16 {
	out := make([]uint16, width)
	for i, p := range s.Pools() {
		for x, t := range p.rows[y] {
			if x >= 0 && x < width && t.Lit {
				out[x] |= 1 << i
			}
		}
	}
	return out
}

func (s *Store) Len() int {
	return s.Foreground.Len() + s.Background.Len() + s.Dynamic.Len()
}

// Digest hashes every placement and its lit state. Visual variants are left
// out since they do not take part in terrain or lighting.
func (s *Store) Digest() [32]byte {
	h := sha256.New()
	for _, p := range s.Pools() {
		p.writeDigest(h)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
