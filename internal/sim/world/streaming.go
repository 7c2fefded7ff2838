package world

import (
	"github.com/sirupsen/logrus"

	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/world/logic/mathx"
	"crystalmaster.io/internal/sim/world/terrain/gen"
	"crystalmaster.io/internal/sim/world/terrain/store"
)

// stream generates every missing row in [0, bottom) and then evicts all
// rows above top. Generated rows always form a prefix, so a high-water mark
// stands in for the set of generated rows.
func (w *World) stream(cam Rect) {
	ts := w.tune.TileSize
	buf := w.tune.RowBuffer
	w.topRow = mathx.CellOf(cam.Y, ts) - buf
	w.bottomRow = mathx.CellOf(cam.Y+cam.H, ts) + buf

	for y := w.rowsGenerated; y < w.bottomRow; y++ {
		w.generateRow(y)
		w.res.RowsGenerated = append(w.res.RowsGenerated, y)
		w.rowsGenerated = y + 1
	}

	if n := w.tiles.EvictAbove(w.topRow); n > 0 {
		w.res.Evicted += n
	}
}

func (w *World) generateRow(y int) {
	width := w.tune.WidthTiles()
	for x := 0; x < width; x++ {
		w.place(x, y, w.gen.Generate(x, y, false))
		w.pending = append(w.pending, store.Cell{X: x, Y: y})
	}
}

func (w *World) place(x, y int, p gen.Placement) {
	if p.Bg != catalogs.None {
		if t, err := w.AddBgTile(x, y, p.Bg); err == nil {
			t.Data = p.BgData
		} else {
			w.warnPlace(store.Background, p.Bg, x, y, err)
		}
	}
	if p.Dynamic != catalogs.None {
		if _, err := w.AddDynamicTile(x, y, p.Dynamic); err != nil {
			w.warnPlace(store.Dynamic, p.Dynamic, x, y, err)
		}
	}
	if p.Tile != catalogs.None {
		if _, err := w.AddTile(x, y, p.Tile); err != nil {
			w.warnPlace(store.Foreground, p.Tile, x, y, err)
		}
	}
}

func (w *World) warnPlace(l store.Layer, tt catalogs.TileType, x, y int, err error) {
	w.log.WithFields(logrus.Fields{"layer": l.String(), "tile": tt.String(), "x": x, "y": y}).WithError(err).Warn("generated placement skipped")
}

// RowGenerated reports whether row y has ever been generated. Evicted rows
// still count.
func (w *World) RowGenerated(y int) bool {
	return y >= 0 && y < w.rowsGenerated
}

// GeneratedRows is the number of rows generated so far, starting at row 0.
func (w *World) GeneratedRows() int { return w.rowsGenerated }

func (w *World) TopRow() int    { return w.topRow }
func (w *World) BottomRow() int { return w.bottomRow }
