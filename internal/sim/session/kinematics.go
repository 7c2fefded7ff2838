package session

import (
	"crystalmaster.io/internal/sim/world"
	"crystalmaster.io/internal/sim/world/logic/mathx"
)

// SolidFunc reports whether a cell blocks movement.
type SolidFunc func(x, y int) bool

// Kinematics is a minimal stand-in for a physics engine: point bodies with a
// half-tile extent, gravity, and axis-separated collision against solid cells.
// It exists so the headless server has something to sample each tick.
type Kinematics struct {
	tileSize int
	half     float64
	widthPx  float64
	gravity  float64
	dt       float64
	solid    SolidFunc
}

func NewKinematics(tileSize, widthTiles, tickRateHz int, gravity float64, solid SolidFunc) *Kinematics {
	return &Kinematics{
		tileSize: tileSize,
		half:     float64(tileSize) * 0.5,
		widthPx:  float64(widthTiles * tileSize),
		gravity:  gravity,
		dt:       1 / float64(tickRateHz),
		solid:    solid,
	}
}

func (k *Kinematics) cell(px float64) int { return mathx.CellOf(px, k.tileSize) }

// StepBody integrates one tick for the player body. The body cannot leave the
// horizontal extent of the world.
func (k *Kinematics) StepBody(b *world.PlayerState) { k.step(b, true) }

func (k *Kinematics) step(b *world.PlayerState, clamp bool) {
	b.VY += k.gravity * k.dt

	if b.VX != 0 {
		nx := b.X + b.VX*k.dt
		edge := nx + k.half - 0.001
		if b.VX < 0 {
			edge = nx - k.half
		}
		switch {
		case clamp && nx < k.half:
			b.X, b.VX = k.half, 0
		case clamp && nx > k.widthPx-k.half:
			b.X, b.VX = k.widthPx-k.half, 0
		case k.solid(k.cell(edge), k.cell(b.Y)):
			b.VX = 0
		default:
			b.X = nx
		}
	}

	b.OnGround = false
	ny := b.Y + b.VY*k.dt
	switch {
	case b.VY > 0:
		foot := ny + k.half
		if cy := k.cell(foot); k.solid(k.cell(b.X), cy) {
			b.Y = float64(cy*k.tileSize) - k.half
			b.VY = 0
			b.OnGround = true
			return
		}
	case b.VY < 0:
		head := ny - k.half
		if cy := k.cell(head); k.solid(k.cell(b.X), cy) {
			b.Y = float64((cy+1)*k.tileSize) + k.half
			b.VY = 0
			return
		}
	}
	b.Y = ny
}

// StepProjectile integrates a thrown object. Landing kills vertical speed and
// bleeds off horizontal speed; walls stop it. Projectiles may leave the world
// sideways.
func (k *Kinematics) StepProjectile(p *world.Projectile) {
	b := world.PlayerState{X: p.X, Y: p.Y, VX: p.VX, VY: p.VY}
	k.step(&b, false)
	if b.OnGround {
		b.VX *= 0.8
	}
	p.X, p.Y, p.VX, p.VY = b.X, b.Y, b.VX, b.VY
}
