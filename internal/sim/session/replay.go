package session

import (
	"fmt"

	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/world"
)

// Mismatch is the first tick whose recomputed digest differs from the log.
type Mismatch struct {
	Tick uint64
	Want string
	Got  string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("digest mismatch at tick %d: got %s want %s", m.Tick, m.Got, m.Want)
}

type ReplayResult struct {
	Ticks      int
	LastTick   uint64
	LastDigest string
	State      world.State
}

// Replayer rebuilds a world from a run header and re-applies logged samples.
type Replayer struct {
	w *world.World
	n int
}

func NewReplayer(h RunHeader, reg *catalogs.Registry, opts ...world.Option) (*Replayer, error) {
	if reg == nil {
		return nil, fmt.Errorf("replay: nil registry")
	}
	if h.CatalogDigest != "" && h.CatalogDigest != reg.Digest {
		return nil, fmt.Errorf("replay: catalog digest %s does not match run %s", reg.Digest, h.CatalogDigest)
	}
	w, err := world.New(world.Config{Seed: h.Seed, Tuning: h.Tuning}, reg, opts...)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	w.GenerateWorld()
	return &Replayer{w: w}, nil
}

// Apply feeds one logged tick and checks its digest. It returns a *Mismatch
// error on divergence.
func (r *Replayer) Apply(e TickLogEntry) error {
	applySamples(r.w, e.Projectiles)
	res := r.w.Update(e.Cam, e.Player, e.Input)
	r.n++
	if res.Tick != e.Tick {
		return fmt.Errorf("replay: logged tick %d replayed as %d", e.Tick, res.Tick)
	}
	if got := r.w.Digest(); got != e.Digest {
		return &Mismatch{Tick: e.Tick, Want: e.Digest, Got: got}
	}
	return nil
}

func (r *Replayer) Result() ReplayResult {
	return ReplayResult{
		Ticks:      r.n,
		LastTick:   r.w.CurrentTick(),
		LastDigest: r.w.Digest(),
		State:      r.w.State(),
	}
}

func (r *Replayer) World() *world.World { return r.w }
