package world

import (
	"fmt"
	"math"

	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/world/logic/mathx"
	"crystalmaster.io/internal/sim/world/terrain/store"
)

// Projectile is a thrown object. Position and velocity belong to the physics
// collaborator; the world only reads them to find the projectile's cell.
type Projectile struct {
	ID      int
	Desc    *catalogs.ProjectileDescriptor
	Variant string

	X  float64
	Y  float64
	VX float64
	VY float64

	Cell        store.Cell
	ExplodeTick int
	Visible     bool
}

// Effect is a short-lived visual left behind by an explosion.
type Effect struct {
	ID        int
	Key       string
	X         float64
	Y         float64
	ExpiresAt uint64
}

const explosionEffectKey = "spr_part_explosion"

// AddProjectile spawns a projectile at pixel position (x,y).
func (w *World) AddProjectile(x, y float64, pt catalogs.ProjectileType, vx, vy float64) (*Projectile, error) {
	desc := w.reg.Projectiles[pt]
	if desc == nil {
		return nil, fmt.Errorf("projectile: %w: %s", catalogs.ErrUnknownTile, pt)
	}
	w.nextProjectile++
	p := &Projectile{
		ID:      w.nextProjectile,
		Desc:    desc,
		Variant: desc.PickVariant(w.cosmetic),
		X:       x,
		Y:       y,
		VX:      vx,
		VY:      vy,
		Visible: true,
	}
	p.Cell = w.cellAt(x, y)
	w.projectiles = append(w.projectiles, p)
	return p, nil
}

// Projectiles returns the live projectiles in spawn order.
func (w *World) Projectiles() []*Projectile { return w.projectiles }

// Effects returns the explosion effects that have not expired yet.
func (w *World) Effects() []*Effect { return w.effects }

func (w *World) cellAt(x, y float64) store.Cell {
	return store.Cell{X: mathx.CellOf(x, w.tune.TileSize), Y: mathx.CellOf(y, w.tune.TileSize)}
}

func (w *World) updateProjectiles() {
	kept := w.projectiles[:0]
	for _, p := range w.projectiles {
		p.Cell = w.cellAt(p.X, p.Y)
		if p.Desc.Explodes {
			p.ExplodeTick++
			if p.ExplodeTick >= p.Desc.ExplodeDelay {
				w.explode(p)
				continue
			}
		}
		if w.outOfBounds(p) {
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(w.projectiles); i++ {
		w.projectiles[i] = nil
	}
	w.projectiles = kept
}

func (w *World) outOfBounds(p *Projectile) bool {
	widthPx := float64(w.tune.WidthTiles() * w.tune.TileSize)
	return p.X < 0 || p.X >= widthPx || p.Cell.Y < w.topRow
}

func (w *World) explode(p *Projectile) {
	w.nextEffect++
	fx := &Effect{ID: w.nextEffect, Key: explosionEffectKey, X: p.X, Y: p.Y}
	delay := w.tune.MsToTicks(w.tune.Explosion.EffectMs)
	fx.ExpiresAt = w.tick + delay
	w.effects = append(w.effects, fx)
	w.schedule(delay, timerEffectExpire, fx.ID)

	r := p.Desc.ExplosionRadius
	ex := Explosion{X: p.X, Y: p.Y, Cell: p.Cell, Radius: r}
	if p.Desc.DamagesTiles {
		cx, cy := float64(p.Cell.X), float64(p.Cell.Y)
		for x := p.Cell.X - r; x <= p.Cell.X+r; x++ {
			for y := p.Cell.Y - r; y <= p.Cell.Y+r; y++ {
				if !mathx.WithinRadius(cx, cy, x, y, float64(r)) {
					continue
				}
				ex.Cells = append(ex.Cells, store.Cell{X: x, Y: y})
				w.RemoveTile(x, y, RemoveOptions{NaturalBreak: true, SpawnExtraDebris: true})
			}
		}
	}
	w.res.Explosions = append(w.res.Explosions, ex)

	if pl := w.player; pl != nil && !pl.Dead {
		d := math.Hypot(float64(pl.Cell.X-p.Cell.X), float64(pl.Cell.Y-p.Cell.Y))
		if d < w.tune.Explosion.DamageDistance {
			w.damagePlayer(w.tune.Explosion.PlayerDamage)
		}
	}
}

func (w *World) expireEffect(id int) {
	for i, fx := range w.effects {
		if fx.ID == id {
			w.effects = append(w.effects[:i], w.effects[i+1:]...)
			return
		}
	}
}
