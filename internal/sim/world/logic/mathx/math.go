package mathx

import (
	"math"
	"math/rand"
)

// CellOf maps a pixel coordinate to its grid cell for the given tile size.
func CellOf(px float64, tileSize int) int {
	return int(math.Floor(px / float64(tileSize)))
}

// WithinRadius reports whether (x,y) lies strictly inside the disc of radius r
// centred on (cx,cy). Uses squared distances only.
func WithinRadius(cx, cy float64, x, y int, r float64) bool {
	dx := cx - float64(x)
	dy := cy - float64(y)
	return dx*dx+dy*dy < r*r
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash3(seed int64, x, y, salt int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	us := uint64(uint32(int32(salt)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (us * 0xbf58476d1ce4e5b9))
}

// HashBetween maps a hash into the inclusive range [min, max].
func HashBetween(h uint64, min, max int) int {
	if max <= min {
		return min
	}
	return min + int(h%uint64(max-min+1))
}

// Rand is the uniform integer source handed to the simulation. Between is
// inclusive on both ends.
type Rand struct {
	r *rand.Rand
}

func NewRand(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

func (r *Rand) Between(min, max int) int {
	if max <= min {
		return min
	}
	return min + r.r.Intn(max-min+1)
}
