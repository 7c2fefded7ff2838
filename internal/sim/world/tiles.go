package world

import (
	"fmt"

	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/world/terrain/store"
)

// AddTile places a foreground tile. It fails with store.ErrOccupied when the
// cell already holds one.
func (w *World) AddTile(x, y int, tt catalogs.TileType) (*store.Tile, error) {
	return w.addTo(w.tiles.Foreground, w.reg.Foreground[tt], tt, x, y)
}

func (w *World) AddBgTile(x, y int, tt catalogs.TileType) (*store.Tile, error) {
	return w.addTo(w.tiles.Background, w.reg.Background[tt], tt, x, y)
}

func (w *World) AddDynamicTile(x, y int, tt catalogs.TileType) (*store.Tile, error) {
	return w.addTo(w.tiles.Dynamic, w.reg.Dynamic[tt], tt, x, y)
}

func (w *World) addTo(p *store.Pool, desc *catalogs.Descriptor, tt catalogs.TileType, x, y int) (*store.Tile, error) {
	if desc == nil {
		return nil, fmt.Errorf("%s layer: %w: %s", p.Layer, catalogs.ErrUnknownTile, tt)
	}
	t := store.NewTile(desc, store.Cell{X: x, Y: y}, w.tune.TileSize, desc.PickVariant(w.cosmetic))
	if err := p.Add(t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTile returns nil for an empty cell.
func (w *World) GetTile(x, y int) *store.Tile        { return w.tiles.Foreground.Get(x, y) }
func (w *World) GetBgTile(x, y int) *store.Tile      { return w.tiles.Background.Get(x, y) }
func (w *World) GetDynamicTile(x, y int) *store.Tile { return w.tiles.Dynamic.Get(x, y) }

// RemoveBgTile is a no-op on an empty cell.
func (w *World) RemoveBgTile(x, y int) {
	w.tiles.Background.Remove(x, y)
}
