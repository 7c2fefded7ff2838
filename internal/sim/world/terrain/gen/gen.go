// Package gen decides what occupies a grid cell. Decisions are a pure
// function of the world seed and the cell, apart from waterfall flow which
// continues whatever background already sits in the row above.
package gen

import (
	"math"

	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/noise"
	"crystalmaster.io/internal/sim/world/logic/mathx"
	"crystalmaster.io/internal/sim/world/terrain/store"
)

const (
	saltDirtBand = 0x6469
	saltFlow     = 0x666c
)

type Config struct {
	Seed        int64
	HeightTiles int

	DirtBandMin int
	DirtBandMax int

	// Zero draws the value from the seed: amplifier in [10,200], divisor in
	// [50,500].
	Amplifier int
	Divisor   int
}

// BackgroundReader is the read-only view of placed background tiles used for
// waterfall flow. *store.Pool satisfies it.
type BackgroundReader interface {
	Get(x, y int) *store.Tile
}

// Placement is the decision for one cell. catalogs.None marks an empty layer.
type Placement struct {
	Tile    catalogs.TileType
	Bg      catalogs.TileType
	Dynamic catalogs.TileType
	BgData  store.TileData
}

func (p Placement) Empty() bool {
	return p.Tile == catalogs.None && p.Bg == catalogs.None && p.Dynamic == catalogs.None
}

type Options struct {
	PredictOnly bool
	// DirtBand overrides the column's own band when > 0.
	DirtBand int
}

type Generator struct {
	seed      int64
	ch        noise.Channels
	bg        BackgroundReader
	baseline  float64
	amplifier int
	divisor   int
	dirtMin   int
	dirtMax   int
}

// New builds a generator. bg may be nil, in which case waterfalls never flow
// past their opening.
func New(cfg Config, ch noise.Channels, bg BackgroundReader) *Generator {
	g := &Generator{
		seed:      cfg.Seed,
		ch:        ch,
		bg:        bg,
		baseline:  float64(cfg.HeightTiles) * 0.25,
		amplifier: cfg.Amplifier,
		divisor:   cfg.Divisor,
		dirtMin:   cfg.DirtBandMin,
		dirtMax:   cfg.DirtBandMax,
	}
	r := mathx.NewRand(cfg.Seed)
	amp := r.Between(10, 200)
	div := r.Between(50, 500)
	if g.amplifier <= 0 {
		g.amplifier = amp
	}
	if g.divisor <= 0 {
		g.divisor = div
	}
	if g.dirtMin <= 0 {
		g.dirtMin = 5
	}
	if g.dirtMax < g.dirtMin {
		g.dirtMax = g.dirtMin
	}
	return g
}

func (g *Generator) Amplifier() int { return g.amplifier }
func (g *Generator) Divisor() int   { return g.divisor }

// SurfaceHeight is the grass row of column x.
func (g *Generator) SurfaceHeight(x int) int {
	n := g.ch.Stone.Noise2D(float64(x)/float64(g.divisor), 0)
	return int(math.Floor(g.baseline + n*n*float64(g.amplifier)))
}

// DirtBand is the dirt thickness below the surface of column x.
func (g *Generator) DirtBand(x int) int {
	return mathx.HashBetween(mathx.Hash3(g.seed, x, 0, saltDirtBand), g.dirtMin, g.dirtMax)
}

func (g *Generator) Generate(x, y int, predictOnly bool) Placement {
	return g.GenerateOpts(x, y, Options{PredictOnly: predictOnly})
}

// GenerateOpts never writes anything. With PredictOnly set it also ignores
// already placed tiles and skips dynamic spawns, so repeated calls for the
// same cell always agree.
func (g *Generator) GenerateOpts(x, y int, o Options) Placement {
	var p Placement

	surface := g.SurfaceHeight(x)
	band := o.DirtBand
	if band <= 0 {
		band = g.DirtBand(x)
	}

	if y == surface {
		p.Tile = catalogs.Grass
	}
	if y > surface && y < surface+band {
		p.Bg = catalogs.Stone
		p.Tile = catalogs.Dirt
	}
	if y < surface+band-1 {
		return p
	}

	fx, fy := float64(x), float64(y)
	p2 := g.ch.Stone.Noise2D(fx/10, fy/10)
	gold := g.ch.Gold.Noise2D(fx/10, fy/10)
	crystal := g.ch.Crystal.Noise2D(fx/50, fy/50)

	p.Bg = catalogs.Stone
	if w := p2 + gold/3; w > 0.4 && w < 0.43 {
		p.Bg = catalogs.WaterfallOpening
		p.BgData.FlowLeft = mathx.HashBetween(mathx.Hash3(g.seed, x, y, saltFlow), 4, 10)
	}
	if p2 > 0 {
		p.Tile = catalogs.Stone
		if gold >= 0.1 && gold <= 0.2 {
			p.Tile = catalogs.Gold
		}
		if crystal >= 0.01 && crystal <= 0.013 {
			p.Tile = catalogs.EnergyCrystal
		}
	}

	if o.PredictOnly {
		return p
	}

	if w := p2 + gold/2; w > 0.01 && w < 0.03 {
		air := g.GenerateOpts(x, y, Options{PredictOnly: true, DirtBand: band}).Tile == catalogs.None
		solidBelow := g.GenerateOpts(x, y+1, Options{PredictOnly: true, DirtBand: band}).Tile != catalogs.None
		if air && solidBelow {
			p.Dynamic = catalogs.Pot
		}
	}

	if g.bg != nil {
		if above := g.bg.Get(x, y-1); above != nil && above.Type().IsWaterfall() && above.Data.FlowLeft > 0 {
			p.Bg = catalogs.Waterfall
			p.BgData.FlowLeft = above.Data.FlowLeft - 1
		}
	}
	return p
}
