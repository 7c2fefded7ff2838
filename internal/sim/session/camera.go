package session

import (
	"crystalmaster.io/internal/sim/tuning"
	"crystalmaster.io/internal/sim/world"
)

// AutoScroll is the downward-drifting camera. Its velocity grows by a fixed
// step every tick until it reaches the cap.
type AutoScroll struct {
	Y  float64
	VY float64

	w, h  float64
	accel float64
	max   float64
	dt    float64
}

func NewAutoScroll(t tuning.Tuning) *AutoScroll {
	return &AutoScroll{
		w:     float64(t.ScreenWidth / t.Zoom),
		h:     float64(t.ScreenHeight / t.Zoom),
		accel: t.Camera.ScrollAccel,
		max:   t.Camera.ScrollMax,
		dt:    1 / float64(t.TickRateHz),
	}
}

// Rect is the viewport for the coming tick.
func (c *AutoScroll) Rect() world.Rect {
	return world.Rect{X: 0, Y: c.Y, W: c.w, H: c.h}
}

// Advance moves the camera by one tick.
func (c *AutoScroll) Advance() {
	if c.VY < c.max {
		c.VY += c.accel
	}
	c.Y += c.VY * c.dt
}
