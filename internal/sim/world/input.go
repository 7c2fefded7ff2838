package world

import (
	"github.com/sirupsen/logrus"

	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/world/logic/mathx"
)

// applyInput resolves the held keys against the tile index: pointer breaks,
// ladder placement and climbing, drilling and bomb throws.
func (w *World) applyInput(in Input) {
	p := w.player
	if p.Dead {
		p.OnLadder = false
		p.fireTick = 0
		return
	}

	if in.Break != nil {
		ts := w.tune.TileSize
		w.RemoveTile(mathx.CellOf(in.Break.X, ts), mathx.CellOf(in.Break.Y, ts), RemoveOptions{NaturalBreak: true})
	}

	cx, cy := p.Cell.X, p.Cell.Y
	dyn := w.tiles.Dynamic.Get(cx, cy)
	if dyn == nil {
		p.OnLadder = false
	}
	if in.Up {
		if dyn == nil {
			if _, err := w.AddDynamicTile(cx, cy, catalogs.Ladder); err != nil {
				w.log.WithFields(logrus.Fields{"x": cx, "y": cy}).WithError(err).Warn("ladder placement failed")
			}
		} else if dyn.Type() == catalogs.Ladder {
			p.OnLadder = true
		}
	}

	if in.Drill {
		opts := RemoveOptions{NaturalBreak: true, SpawnExtraDebris: true, RewardPlayer: true}
		if w.tiles.Foreground.Get(cx, cy+1) != nil {
			w.RemoveDynamicTile(cx, cy, opts)
		}
		w.RemoveTile(cx, cy+1, opts)
	}

	if !in.Fire {
		p.fireTick = 0
		return
	}
	if p.fireTick < w.tune.Player.FireDelayTicks {
		p.fireTick++
		return
	}
	p.fireTick = 0
	if p.Bombs <= 0 {
		return
	}
	vx := float64(in.MoveH) * w.tune.Player.ThrowSpeedX
	if _, err := w.AddProjectile(p.State.X, p.State.Y, catalogs.Bomb, vx, w.tune.Player.ThrowVelocityY); err != nil {
		w.log.WithError(err).Warn("bomb throw failed")
		return
	}
	p.Bombs--
	w.emit(EventSubtractBomb, 1)
}
