package world

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/noise"
	"crystalmaster.io/internal/sim/tuning"
	"crystalmaster.io/internal/sim/world/logic/mathx"
	"crystalmaster.io/internal/sim/world/terrain/gen"
	"crystalmaster.io/internal/sim/world/terrain/store"
)

// World is a single-threaded terrain simulation. All state must be accessed
// only from the goroutine that calls Update.
type World struct {
	cfg  Config
	tune tuning.Tuning
	reg  *catalogs.Registry
	log  logrus.FieldLogger

	noise    noise.Factory
	subSeeds noise.SubSeeds
	gen      *gen.Generator
	tiles    *store.Store

	// Gameplay rolls are seeded from the world seed; cosmetic rolls are not
	// part of the determinism contract.
	rng      *mathx.Rand
	cosmetic catalogs.Betweener

	tick  uint64
	state State

	topRow        int
	bottomRow     int
	rowsGenerated int

	pending []store.Cell
	sources []*LightSource

	projectiles    []*Projectile
	nextProjectile int
	effects        []*Effect
	nextEffect     int
	timers         []timer
	timerSeq       uint64

	player *Player

	listeners []Listener
	res       StepResult
}

func New(cfg Config, reg *catalogs.Registry, opts ...Option) (*World, error) {
	if reg == nil {
		return nil, fmt.Errorf("world: nil registry")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	subs, err := noise.DeriveSubSeeds(cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("world: seed %d: %w", cfg.Seed, err)
	}
	for _, tt := range []catalogs.TileType{catalogs.Grass, catalogs.Dirt, catalogs.Stone, catalogs.Gold, catalogs.EnergyCrystal} {
		if reg.Foreground[tt] == nil {
			return nil, fmt.Errorf("world: registry missing foreground %s", tt)
		}
	}
	for _, tt := range []catalogs.TileType{catalogs.Stone, catalogs.WaterfallOpening, catalogs.Waterfall} {
		if reg.Background[tt] == nil {
			return nil, fmt.Errorf("world: registry missing background %s", tt)
		}
	}
	for _, tt := range []catalogs.TileType{catalogs.Pot, catalogs.Ladder} {
		if reg.Dynamic[tt] == nil {
			return nil, fmt.Errorf("world: registry missing dynamic %s", tt)
		}
	}

	w := &World{
		cfg:      cfg,
		tune:     cfg.Tuning,
		reg:      reg,
		log:      defaultLogger(),
		subSeeds: subs,
		tiles:    store.New(),
		rng:      mathx.NewRand(cfg.Seed),
		cosmetic: mathx.NewRand(cfg.Seed ^ 0x5eed),
		state:    StatePlaying,
	}
	for _, o := range opts {
		o(w)
	}

	wg := cfg.Tuning.WorldGen
	w.gen = gen.New(gen.Config{
		Seed:        cfg.Seed,
		HeightTiles: w.tune.HeightTiles(),
		DirtBandMin: wg.DirtBandMin,
		DirtBandMax: wg.DirtBandMax,
		Amplifier:   wg.TerrainAmplifier,
		Divisor:     wg.TerrainDivisor,
	}, noise.NewChannels(subs, w.noise), w.tiles.Background)

	w.sources = append(w.sources, &LightSource{
		X:      float64(w.tune.WidthTiles()) * 0.5,
		Y:      0,
		Radius: w.tune.AmbientLightRadius,
	})

	w.log.WithFields(logrus.Fields{
		"seed":      cfg.Seed,
		"stone":     subs.Stone,
		"crystal":   subs.Crystal,
		"gold":      subs.Gold,
		"amplifier": w.gen.Amplifier(),
		"divisor":   w.gen.Divisor(),
	}).Info("world created")
	return w, nil
}

// GenerateWorld spawns the player and its light. Terrain itself streams in
// on Update.
func (w *World) GenerateWorld() {
	if w.player != nil {
		return
	}
	ts := float64(w.tune.TileSize)
	x := float64(w.tune.ScreenWidth/w.tune.Zoom) * 0.5
	y := ts * 4
	w.player = newPlayer(w.tune, PlayerState{X: x, Y: y})
	w.player.light = &LightSource{
		X:      float64(mathx.CellOf(x, w.tune.TileSize)),
		Y:      float64(mathx.CellOf(y, w.tune.TileSize)),
		Radius: w.tune.PlayerLightRadius,
	}
	w.sources = append(w.sources, w.player.light)
}

// Update advances the simulation by one tick. cam and ps are this tick's
// samples from the camera and physics collaborators.
func (w *World) Update(cam Rect, ps PlayerState, in Input) StepResult {
	if w.state != StatePlaying {
		return StepResult{Tick: w.tick, State: w.state, TopRow: w.topRow, BottomRow: w.bottomRow, Player: ps}
	}
	w.tick++

	if w.player != nil {
		w.player.sync(ps, w.tune.TileSize)
		w.applyInput(in)
		w.updateVitals(cam)
	}

	w.stream(cam)
	w.updateProjectiles()

	if w.player != nil && w.player.light != nil {
		w.player.light.X = float64(w.player.Cell.X)
		w.player.light.Y = float64(w.player.Cell.Y)
	}
	if w.tune.LightingEnabled {
		w.updateLighting()
	}

	if w.player != nil {
		w.steer(in)
	}
	w.runTimers()

	res := w.res
	w.res = StepResult{}
	res.Tick = w.tick
	res.State = w.state
	res.TopRow = w.topRow
	res.BottomRow = w.bottomRow
	if w.player != nil {
		res.Player = w.player.State
	} else {
		res.Player = ps
	}
	w.log.WithFields(logrus.Fields{
		"tick":      w.tick,
		"top":       w.topRow,
		"bottom":    w.bottomRow,
		"generated": len(res.RowsGenerated),
		"evicted":   res.Evicted,
		"tiles":     w.tiles.Len(),
		"pending":   len(w.pending),
		"sources":   len(w.sources),
	}).Debug("tick")
	return res
}

func (w *World) CurrentTick() uint64 { return w.tick }
func (w *World) State() State        { return w.state }

func (w *World) Seed() int64                  { return w.cfg.Seed }
func (w *World) SubSeeds() noise.SubSeeds     { return w.subSeeds }
func (w *World) Tuning() tuning.Tuning        { return w.tune }
func (w *World) Registry() *catalogs.Registry { return w.reg }
func (w *World) Amplifier() int               { return w.gen.Amplifier() }
func (w *World) Divisor() int                 { return w.gen.Divisor() }

// Tiles exposes the placed-tile index read-only by convention.
func (w *World) Tiles() *store.Store { return w.tiles }

// Player returns nil before GenerateWorld.
func (w *World) Player() *Player { return w.player }

// Generator returns the terrain generator, e.g. for lookahead queries.
func (w *World) Generator() *gen.Generator { return w.gen }
