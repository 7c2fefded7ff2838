package world

import (
	"math"

	"github.com/sirupsen/logrus"

	"crystalmaster.io/internal/sim/tuning"
	"crystalmaster.io/internal/sim/world/logic/mathx"
	"crystalmaster.io/internal/sim/world/terrain/store"
)

// Player is the world-side record of the player. Body state is mirrored from
// the physics collaborator each tick; counters are owned here.
type Player struct {
	State PlayerState
	Cell  store.Cell

	HP       int
	Bombs    int
	Gold     int
	Crystals int
	Dead     bool
	OnLadder bool

	lastOnGround bool
	fallStartRow int
	jumpVX       float64
	fireTick     int
	winScheduled bool
	light        *LightSource
}

func newPlayer(t tuning.Tuning, ps PlayerState) *Player {
	p := &Player{
		State: ps,
		HP:    t.Player.HP,
		Bombs: t.Player.StartingBombs,
	}
	p.Cell = store.Cell{X: mathx.CellOf(ps.X, t.TileSize), Y: mathx.CellOf(ps.Y, t.TileSize)}
	p.fallStartRow = p.Cell.Y
	return p
}

// sync copies the physics sample in, remembering the previous ground contact
// so landings can be detected.
func (p *Player) sync(ps PlayerState, tileSize int) {
	p.lastOnGround = p.State.OnGround
	p.State = ps
	p.Cell = store.Cell{X: mathx.CellOf(ps.X, tileSize), Y: mathx.CellOf(ps.Y, tileSize)}
}

// updateVitals applies off-screen and fall damage.
func (w *World) updateVitals(cam Rect) {
	p := w.player
	pt := w.tune.Player

	if !p.Dead && p.State.Y > cam.Y+cam.H+pt.OffscreenMargin {
		w.damagePlayer(pt.OffscreenDamage)
	}

	switch {
	case p.lastOnGround && !p.State.OnGround:
		p.fallStartRow = p.Cell.Y
	case !p.lastOnGround && p.State.OnGround:
		if p.Cell.Y-p.fallStartRow > pt.FallDamageRows {
			w.damagePlayer(pt.FallDamage)
			p.fallStartRow = p.Cell.Y
		}
	}
}

func (w *World) damagePlayer(amount int) {
	p := w.player
	if p == nil || p.Dead || amount <= 0 {
		return
	}
	w.emit(EventSubtractHp, amount)
	p.HP -= amount
	if p.HP <= 0 {
		p.HP = 0
		p.Dead = true
		w.schedule(w.tune.MsToTicks(w.tune.GameOverDelayMs), timerGameOver, 0)
		w.log.WithFields(logrus.Fields{"tick": w.tick, "row": p.Cell.Y}).Info("player died")
	}
}

// steer writes the velocities the player's body should take next.
func (w *World) steer(in Input) {
	p := w.player
	if p.Dead {
		p.State.VX, p.State.VY = 0, 0
		return
	}
	pt := w.tune.Player

	spaceAbove := w.tiles.Foreground.Get(p.Cell.X, p.Cell.Y-1) == nil
	if in.Jump && p.State.OnGround && spaceAbove {
		p.State.VY = pt.JumpVelocity
		p.jumpVX = p.State.VX
	}
	if p.OnLadder {
		p.State.VY = pt.JumpVelocity
	}

	hspeed := pt.WalkSpeed
	if !p.State.OnGround && !p.OnLadder {
		hspeed = math.Abs(p.jumpVX)
	}
	switch {
	case in.MoveH < 0:
		if p.State.VX > -hspeed {
			p.State.VX -= pt.Accel
		}
	case in.MoveH > 0:
		if p.State.VX < hspeed {
			p.State.VX += pt.Accel
		}
	default:
		p.State.VX = 0
	}
}
