package session

import (
	"time"

	"crystalmaster.io/internal/sim/hud"
	"crystalmaster.io/internal/sim/tuning"
	"crystalmaster.io/internal/sim/world"
)

// RunHeader is the first record of a run's tick log. Seed, tuning and the
// catalog digest are everything needed to rebuild the world.
type RunHeader struct {
	RunID         string        `json:"run_id"`
	Seed          int64         `json:"seed"`
	Tuning        tuning.Tuning `json:"tuning"`
	CatalogDigest string        `json:"catalog_digest"`
	Autopilot     bool          `json:"autopilot"`
	StartedAt     time.Time     `json:"started_at"`
}

// TickLogEntry records the collaborator samples fed into one Update and the
// resulting digest.
type TickLogEntry struct {
	Tick        uint64            `json:"tick"`
	Cam         world.Rect        `json:"cam"`
	Player      world.PlayerState `json:"player"`
	Projectiles []BodySample      `json:"projectiles,omitempty"`
	Input       world.Input       `json:"input"`
	State       string            `json:"state"`
	Events      []world.Event     `json:"events,omitempty"`
	Digest      string            `json:"digest"`
}

// BodySample is a projectile's physics state as fed into one Update.
type BodySample struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// Sink receives the run header once, then every tick in order. Sinks are
// called on the simulation goroutine and must not block for long.
type Sink interface {
	WriteHeader(RunHeader) error
	WriteTick(TickLogEntry) error
}

// Metrics is a thread-safe read-only view of the session. It is stored by
// the loop goroutine and read from HTTP handlers.
type Metrics struct {
	RunID string `json:"run_id"`
	Seed  int64  `json:"seed"`
	Tick  uint64 `json:"tick"`
	State string `json:"state"`

	TopRow        int `json:"top_row"`
	BottomRow     int `json:"bottom_row"`
	RowsGenerated int `json:"rows_generated"`

	Tiles        int `json:"tiles"`
	Pending      int `json:"pending_lighting"`
	LightSources int `json:"light_sources"`
	Projectiles  int `json:"projectiles"`
	Observers    int `json:"observers"`

	HUD hud.Counters `json:"hud"`

	CameraY float64 `json:"camera_y"`
	StepMS  float64 `json:"step_ms"`
	Digest  string  `json:"digest"`
}
