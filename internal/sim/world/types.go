package world

import (
	"crystalmaster.io/internal/sim/world/terrain/store"
)

// Rect is the camera viewport in world pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// PlayerState is what the physics collaborator knows about the player body.
// Positions are world pixels, velocities pixels per second.
type PlayerState struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
	OnGround bool    `json:"on_ground"`
}

// Point is a pointer position in world pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Input is the held-key state for one tick.
type Input struct {
	MoveH int  `json:"move_h,omitempty"`
	Jump  bool `json:"jump,omitempty"`
	Up    bool `json:"up,omitempty"`
	Drill bool `json:"drill,omitempty"`
	Fire  bool `json:"fire,omitempty"`

	// Break, when set, removes the foreground tile under the pointer.
	Break *Point `json:"break,omitempty"`
}

type State uint8

const (
	StatePlaying State = iota
	StateWon
	StateGameOver
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "PLAYING"
	case StateWon:
		return "WON"
	case StateGameOver:
		return "GAME_OVER"
	}
	return "UNKNOWN"
}

// Burst describes one particle emission. Rendering is left to the caller.
type Burst struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Key        string  `json:"key"`
	Count      int     `json:"count"`
	SpeedMin   float64 `json:"speed_min"`
	SpeedMax   float64 `json:"speed_max"`
	ScaleStart float64 `json:"scale_start"`
	ScaleEnd   float64 `json:"scale_end"`
	LifespanMs int     `json:"lifespan_ms"`
	GravityY   float64 `json:"gravity_y"`
}

// Explosion records one resolved blast and every cell it covered.
type Explosion struct {
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Cell   store.Cell   `json:"cell"`
	Radius int          `json:"radius"`
	Cells  []store.Cell `json:"-"`
}

// StepResult is everything one Update changed that collaborators may want to
// react to. Player carries the steered velocities to hand back to physics.
type StepResult struct {
	Tick          uint64
	State         State
	TopRow        int
	BottomRow     int
	RowsGenerated []int
	Evicted       int
	Events        []Event
	Bursts        []Burst
	Explosions    []Explosion
	Player        PlayerState
}
