// Package noise provides the seeded coherent-noise fields used by terrain
// generation and the sub-seed derivation that decorrelates them.
package noise

import (
	"errors"
	"strconv"

	"github.com/aquilax/go-perlin"
)

// Field is a deterministic 2D coherent-noise function with values in [-1,1].
type Field interface {
	Noise2D(x, y float64) float64
}

// Factory builds a Field for a seed.
type Factory func(seed int64) Field

// Perlin returns single-octave gradient noise for seed.
func Perlin(seed int64) Field {
	return perlin.NewPerlin(2, 2, 1, seed)
}

var ErrSeedTooShort = errors.New("noise: seed must be a positive integer of at least 4 digits")

// SubSeeds are the three independent noise channels of a world.
type SubSeeds struct {
	Stone   int64 `json:"stone"`
	Crystal int64 `json:"crystal"`
	Gold    int64 `json:"gold"`
}

// DeriveSubSeeds slices the decimal form of seed: stone takes 4 digits from
// index 0, crystal 5 digits from index 1, gold 6 digits from index 2. Slices
// are clamped at the end of the string.
func DeriveSubSeeds(seed int64) (SubSeeds, error) {
	if seed < 1000 {
		return SubSeeds{}, ErrSeedTooShort
	}
	s := strconv.FormatInt(seed, 10)
	return SubSeeds{
		Stone:   digits(s, 0, 4),
		Crystal: digits(s, 1, 5),
		Gold:    digits(s, 2, 6),
	}, nil
}

func digits(s string, start, length int) int64 {
	if start >= len(s) {
		return 0
	}
	end := start + length
	if end > len(s) {
		end = len(s)
	}
	v, _ := strconv.ParseInt(s[start:end], 10, 64)
	return v
}

// Betweener draws uniform integers in [min, max].
type Betweener interface {
	Between(min, max int) int
}

// RandomSeed draws a fresh master seed the way new worlds pick one.
func RandomSeed(r Betweener) int64 {
	var seed int64
	for i := 0; i < 4; i++ {
		seed += int64(r.Between(1000, 9999))
	}
	return seed
}

// Channels holds one Field per sub-seed.
type Channels struct {
	Stone   Field
	Crystal Field
	Gold    Field
}

func NewChannels(s SubSeeds, f Factory) Channels {
	if f == nil {
		f = Perlin
	}
	return Channels{
		Stone:   f(s.Stone),
		Crystal: f(s.Crystal),
		Gold:    f(s.Gold),
	}
}
