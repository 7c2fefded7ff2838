package store

import (
	"crystalmaster.io/internal/sim/catalogs"
)

// DarkTexture is shown in place of a variant while a tile is unlit.
const DarkTexture = "spr_dark"

type Cell struct {
	X int
	Y int
}

type Layer uint8

const (
	Foreground Layer = iota
	Background
	Dynamic
)

func (l Layer) String() string {
	switch l {
	case Foreground:
		return "fg"
	case Background:
		return "bg"
	case Dynamic:
		return "dyn"
	}
	return "?"
}

// TileData is the per-instance mutable bag.
type TileData struct {
	FlowLeft int `json:"flow_left,omitempty"`
}

// Tile is one placed instance. It is owned by exactly one Pool.
type Tile struct {
	Desc    *catalogs.Descriptor
	Cell    Cell
	PixelX  int
	PixelY  int
	Variant string
	Data    TileData

	// Lit is written by the lighting pass only.
	Lit bool
}

func NewTile(desc *catalogs.Descriptor, c Cell, tileSize int, variant string) *Tile {
	return &Tile{
		Desc:    desc,
		Cell:    c,
		PixelX:  c.X * tileSize,
		PixelY:  c.Y * tileSize,
		Variant: variant,
		Lit:     true,
	}
}

func (t *Tile) Type() catalogs.TileType {
	if t == nil || t.Desc == nil {
		return catalogs.None
	}
	return t.Desc.Type
}

// Texture is what a renderer should draw right now. Background tiles are
// tinted instead; callers that care use Lit directly.
func (t *Tile) Texture() string {
	if !t.Lit {
		return DarkTexture
	}
	return t.Variant
}
