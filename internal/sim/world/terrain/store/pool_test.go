package store

import (
	"errors"
	"testing"

	"crystalmaster.io/internal/sim/catalogs"
)

func tile(reg *catalogs.Registry, tt catalogs.TileType, x, y int) *Tile {
	return NewTile(reg.Foreground[tt], Cell{X: x, Y: y}, 8, "v")
}

func TestPoolAddGetRemove(t *testing.T) {
	reg := catalogs.Defaults()
	p := NewPool(Foreground)
	if err := p.Add(tile(reg, catalogs.Stone, 3, 4)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Add(tile(reg, catalogs.Gold, 3, 4)); !errors.Is(err, ErrOccupied) {
		t.Fatalf("expected ErrOccupied, got %v", err)
	}
	got := p.Get(3, 4)
	if got == nil || got.Type() != catalogs.Stone {
		t.Fatalf("Get: %+v", got)
	}
	if got.PixelX != 24 || got.PixelY != 32 {
		t.Fatalf("pixel position: %d,%d", got.PixelX, got.PixelY)
	}
	if p.Get(4, 4) != nil || p.Get(3, 5) != nil {
		t.Fatalf("expected lookup miss")
	}
	if p.Remove(9, 9) != nil {
		t.Fatalf("remove on empty cell must return nil")
	}
	if p.Remove(3, 4) == nil || p.Len() != 0 {
		t.Fatalf("remove failed, len=%d", p.Len())
	}
	if len(p.Rows()) != 0 {
		t.Fatalf("empty row left behind: %v", p.Rows())
	}
}

func TestPoolEvictAbove(t *testing.T) {
	reg := catalogs.Defaults()
	p := NewPool(Foreground)
	for y := 0; y < 6; y++ {
		for x := 0; x < 3; x++ {
			if err := p.Add(tile(reg, catalogs.Dirt, x, y)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if n := p.EvictAbove(4); n != 12 {
		t.Fatalf("evicted %d", n)
	}
	if p.Len() != 6 {
		t.Fatalf("len=%d", p.Len())
	}
	p.Each(func(tl *Tile) {
		if tl.Cell.Y < 4 {
			t.Fatalf("row %d survived eviction", tl.Cell.Y)
		}
	})
}

func TestPoolEachOrder(t *testing.T) {
	reg := catalogs.Defaults()
	p := NewPool(Foreground)
	cells := []Cell{{2, 1}, {0, 3}, {1, 1}, {5, 0}, {0, 1}}
	for _, c := range cells {
		if err := p.Add(tile(reg, catalogs.Stone, c.X, c.Y)); err != nil {
			t.Fatal(err)
		}
	}
	var got []Cell
	p.Each(func(tl *Tile) { got = append(got, tl.Cell) })
	want := []Cell{{5, 0}, {0, 1}, {1, 1}, {2, 1}, {0, 3}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestExportRow(t *testing.T) {
	reg := catalogs.Defaults()
	p := NewPool(Foreground)
	_ = p.Add(tile(reg, catalogs.Gold, 1, 2))
	_ = p.Add(tile(reg, catalogs.Stone, 3, 2))
	_ = p.Add(tile(reg, catalogs.Stone, 7, 2))
	row := p.ExportRow(2, 4)
	want := []uint16{0, uint16(catalogs.Gold), 0, uint16(catalogs.Stone)}
	for i := range want {
		if row[i] != want[i] {
			t.Fatalf("row=%v want %v", row, want)
		}
	}
}

func TestLitRowPacksLayers(t *testing.T) {
	reg := catalogs.Defaults()
	s := New()
	_ = s.Foreground.Add(tile(reg, catalogs.Stone, 0, 5))
	_ = s.Background.Add(NewTile(reg.Background[catalogs.Stone], Cell{X: 0, Y: 5}, 8, "v"))
	_ = s.Background.Add(NewTile(reg.Background[catalogs.Stone], Cell{X: 1, Y: 5}, 8, "v"))
	_ = s.Dynamic.Add(NewTile(reg.Dynamic[catalogs.Pot], Cell{X: 2, Y: 5}, 8, "v"))
	dark := tile(reg, catalogs.Gold, 3, 5)
	dark.Lit = false
	_ = s.Foreground.Add(dark)
	_ = s.Foreground.Add(tile(reg, catalogs.Stone, 9, 5))

	row := s.LitRow(5, 5)
	want := []uint16{3, 2, 4, 0, 0}
	for i := range want {
		if row[i] != want[i] {
			t.Fatalf("lit row=%v want %v", row, want)
		}
	}
}

func TestTextureFollowsLit(t *testing.T) {
	reg := catalogs.Defaults()
	tl := tile(reg, catalogs.Stone, 0, 0)
	if tl.Texture() != "v" {
		t.Fatalf("lit texture: %q", tl.Texture())
	}
	tl.Lit = false
	if tl.Texture() != DarkTexture {
		t.Fatalf("dark texture: %q", tl.Texture())
	}
}

func TestStoreDigestTracksLitAndPlacement(t *testing.T) {
	reg := catalogs.Defaults()
	a, b := New(), New()
	for _, s := range []*Store{a, b} {
		_ = s.Foreground.Add(tile(reg, catalogs.Stone, 1, 1))
		_ = s.Background.Add(NewTile(reg.Background[catalogs.Stone], Cell{1, 1}, 8, "x"))
	}
	b.Background.Get(1, 1).Variant = "y"
	if a.Digest() != b.Digest() {
		t.Fatalf("variant must not affect digest")
	}
	b.Foreground.Get(1, 1).Lit = false
	if a.Digest() == b.Digest() {
		t.Fatalf("lit state must affect digest")
	}
	if a.Len() != 2 || a.EvictAbove(2) != 2 || a.Len() != 0 {
		t.Fatalf("store eviction failed")
	}
}
