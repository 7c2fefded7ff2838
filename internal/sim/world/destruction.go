package world

import (
	"github.com/sirupsen/logrus"

	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/world/terrain/store"
)

type RemoveOptions struct {
	NaturalBreak     bool
	SpawnExtraDebris bool
	RewardPlayer     bool
}

type rewardFunc func(w *World, t *store.Tile)

var foregroundRewards = map[catalogs.TileType]rewardFunc{
	catalogs.EnergyCrystal: (*World).collectCrystal,
	catalogs.Gold:          (*World).collectGold,
}

var dynamicRewards = map[catalogs.TileType]rewardFunc{
	catalogs.Pot: (*World).rollContainerReward,
}

// RemoveTile destroys the foreground tile at (x,y). A fragile dynamic tile
// resting on it goes first. Empty cells are a no-op apart from that cascade.
func (w *World) RemoveTile(x, y int, opts RemoveOptions) {
	if above := w.tiles.Dynamic.Get(x, y-1); above != nil && above.Desc.Fragile {
		w.RemoveDynamicTile(x, y-1, RemoveOptions{})
	}

	t := w.tiles.Foreground.Get(x, y)
	if t == nil {
		return
	}
	if opts.NaturalBreak {
		w.naturalBurst(t)
	}
	if opts.SpawnExtraDebris {
		w.debrisBurst(t)
	}
	if opts.RewardPlayer && w.player != nil {
		if fn := foregroundRewards[t.Type()]; fn != nil {
			fn(w, t)
		}
	}
	w.tiles.Foreground.Remove(x, y)
}

// RemoveDynamicTile destroys the dynamic tile at (x,y), rolling a reward for
// containers when asked to.
func (w *World) RemoveDynamicTile(x, y int, opts RemoveOptions) {
	t := w.tiles.Dynamic.Get(x, y)
	if t == nil {
		return
	}
	if opts.RewardPlayer && w.player != nil {
		if fn := dynamicRewards[t.Type()]; fn != nil {
			fn(w, t)
		}
	}
	w.tiles.Dynamic.Remove(x, y)
}

func (w *World) naturalBurst(t *store.Tile) {
	key := t.Desc.PickParticle(w.cosmetic)
	if key == "" {
		return
	}
	half := float64(w.tune.TileSize) * 0.5
	w.res.Bursts = append(w.res.Bursts, Burst{
		X:          float64(t.PixelX) + half,
		Y:          float64(t.PixelY) + half,
		Key:        key,
		Count:      10,
		SpeedMin:   -40,
		SpeedMax:   40,
		ScaleStart: float64(w.tune.Zoom),
		LifespanMs: 300,
		GravityY:   400,
	})
}

func (w *World) debrisBurst(t *store.Tile) {
	key := t.Desc.PickParticle(w.cosmetic)
	if key == "" {
		return
	}
	ts := float64(w.tune.TileSize)
	w.res.Bursts = append(w.res.Bursts, Burst{
		X:          float64(t.PixelX) + ts,
		Y:          float64(t.PixelY) + ts,
		Key:        key,
		Count:      w.cosmetic.Between(20, 30),
		SpeedMin:   -120,
		SpeedMax:   120,
		ScaleStart: float64(w.tune.Zoom * 2),
		LifespanMs: 300,
		GravityY:   400,
	})
}

func (w *World) collectCrystal(*store.Tile) {
	p := w.player
	p.Crystals++
	w.emit(EventAddEnergyCrystal, 1)
	if p.Crystals >= w.tune.WinCrystals && !p.winScheduled {
		p.winScheduled = true
		w.schedule(w.tune.MsToTicks(w.tune.WinDelayMs), timerWin, 0)
		w.log.WithFields(logrus.Fields{"tick": w.tick, "crystals": p.Crystals}).Info("win threshold reached")
	}
}

func (w *World) collectGold(*store.Tile) {
	w.player.Gold++
	w.emit(EventAddGold, 1)
}

// rollContainerReward: 40% of breaks pay out; of those a quarter give 1-3
// bombs and the rest a 3-in-4 chance at 1-5 gold.
func (w *World) rollContainerReward(*store.Tile) {
	if w.rng.Between(0, 100) <= 60 {
		return
	}
	if w.rng.Between(0, 100) > 75 {
		n := w.rng.Between(1, 3)
		w.player.Bombs += n
		w.emit(EventAddBomb, n)
		return
	}
	if w.rng.Between(0, 100) > 25 {
		n := w.rng.Between(1, 5)
		w.player.Gold += n
		w.emit(EventAddGold, n)
	}
}
