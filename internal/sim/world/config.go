package world

import (
	"github.com/sirupsen/logrus"

	"crystalmaster.io/internal/logging"
	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/noise"
	"crystalmaster.io/internal/sim/tuning"
)

// Config fixes everything that influences terrain. Two worlds built from equal
// Configs and fed the same camera/player/input samples stay bit-identical.
type Config struct {
	Seed   int64
	Tuning tuning.Tuning
}

type Option func(*World)

// WithLogger sets the world logger. Nil keeps the discard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(w *World) {
		if l != nil {
			w.log = l
		}
	}
}

// WithNoise replaces the Perlin noise used for all three channels.
func WithNoise(f noise.Factory) Option {
	return func(w *World) { w.noise = f }
}

// WithCosmeticRand sets the source for visual variants and particle counts.
// It never influences terrain, rewards or lighting.
func WithCosmeticRand(r catalogs.Betweener) Option {
	return func(w *World) {
		if r != nil {
			w.cosmetic = r
		}
	}
}

func defaultLogger() logrus.FieldLogger {
	return logging.Discard()
}
