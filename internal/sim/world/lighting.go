package world

import (
	"math"

	"crystalmaster.io/internal/sim/world/logic/mathx"
	"crystalmaster.io/internal/sim/world/terrain/store"
)

// LightSource lights every cell strictly within Radius of (X,Y), in cells.
type LightSource struct {
	X      float64
	Y      float64
	Radius float64
}

// AddLightSource registers an extra source. It is pruned like the others once
// it scrolls above the top row.
func (w *World) AddLightSource(s *LightSource) {
	if s != nil {
		w.sources = append(w.sources, s)
	}
}

func (w *World) LightSources() []*LightSource { return w.sources }

// PendingLighting is the number of lighting records not yet pruned.
func (w *World) PendingLighting() int { return len(w.pending) }

// updateLighting darkens every recorded cell, then relights the disc of each
// source. Lighting always ends the tick, so a cell inside any disc is lit.
func (w *World) updateLighting() {
	top := w.topRow

	kept := w.pending[:0]
	for _, c := range w.pending {
		w.setLit(c.X, c.Y, false)
		if c.Y >= top {
			kept = append(kept, c)
		}
	}
	w.pending = kept

	sources := w.sources[:0]
	for _, s := range w.sources {
		w.illuminate(s)
		if s.Y >= float64(top) {
			sources = append(sources, s)
		} else if w.player != nil && s == w.player.light {
			w.player.light = nil
		}
	}
	for i := len(sources); i < len(w.sources); i++ {
		w.sources[i] = nil
	}
	w.sources = sources
}

func (w *World) illuminate(s *LightSource) {
	x0 := int(math.Floor(s.X - s.Radius))
	x1 := int(math.Ceil(s.X + s.Radius))
	y0 := int(math.Floor(s.Y - s.Radius))
	y1 := int(math.Ceil(s.Y + s.Radius))
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			if mathx.WithinRadius(s.X, s.Y, x, y, s.Radius) {
				w.setLit(x, y, true)
			}
		}
	}
}

func (w *World) setLit(x, y int, lit bool) {
	for _, p := range w.tiles.Pools() {
		if t := p.Get(x, y); t != nil {
			t.Lit = lit
		}
	}
	c := store.Cell{X: x, Y: y}
	for _, p := range w.projectiles {
		if p.Cell == c {
			p.Visible = lit
		}
	}
}
