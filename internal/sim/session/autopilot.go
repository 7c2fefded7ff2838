package session

import (
	"crystalmaster.io/internal/sim/world"
	"crystalmaster.io/internal/sim/world/logic/mathx"
)

// Autopilot plays unattended runs: it drills straight down, wanders between
// columns, and throws a bomb whenever it has one and is stuck.
type Autopilot struct {
	rng        *mathx.Rand
	widthTiles int

	targetX   int
	retarget  uint64
	lastY     int
	stuckFor  int
	firing    int
	fireTicks int
}

func NewAutopilot(seed int64, widthTiles, fireDelayTicks int) *Autopilot {
	return &Autopilot{
		rng:        mathx.NewRand(seed ^ 0xa070),
		widthTiles: widthTiles,
		targetX:    widthTiles / 2,
		fireTicks:  fireDelayTicks + 1,
	}
}

// Next picks the held keys for the coming tick from the player's current
// record. p may be nil before the world spawns a player.
func (a *Autopilot) Next(tick uint64, p *world.Player) world.Input {
	if p == nil || p.Dead {
		return world.Input{}
	}
	if tick >= a.retarget {
		a.targetX = a.rng.Between(1, a.widthTiles-2)
		a.retarget = tick + uint64(a.rng.Between(120, 360))
	}

	if p.Cell.Y == a.lastY {
		a.stuckFor++
	} else {
		a.stuckFor = 0
		a.lastY = p.Cell.Y
	}

	in := world.Input{Drill: true}
	switch {
	case p.Cell.X < a.targetX:
		in.MoveH = 1
	case p.Cell.X > a.targetX:
		in.MoveH = -1
	}
	if in.MoveH != 0 && p.State.OnGround && a.stuckFor > 30 {
		in.Jump = true
	}

	if a.firing == 0 && p.Bombs > 0 && a.stuckFor > 120 {
		a.firing = a.fireTicks
	}
	if a.firing > 0 {
		in.Fire = true
		in.MoveH = 0
		a.firing--
	}
	return in
}
