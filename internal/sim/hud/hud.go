package hud

import (
	"sync"

	"crystalmaster.io/internal/sim/world"
)

// Counters is what the heads-up display shows.
type Counters struct {
	HP             int `json:"hp"`
	EnergyCrystals int `json:"energy_crystals"`
	Gold           int `json:"gold"`
	Bombs          int `json:"bombs"`
}

// HUD mirrors world events into display counters. Handle runs on the
// simulation goroutine; Snapshot may be called from anywhere.
type HUD struct {
	mu sync.Mutex
	c  Counters
}

func New(hp, bombs int) *HUD {
	return &HUD{c: Counters{HP: hp, Bombs: bombs}}
}

// Attach creates a HUD seeded from the world's tuning and subscribes it.
func Attach(w *world.World) *HUD {
	t := w.Tuning()
	h := New(t.Player.HP, t.Player.StartingBombs)
	w.Subscribe(h.Handle)
	return h
}

func (h *HUD) Handle(ev world.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch ev.Kind {
	case world.EventAddEnergyCrystal:
		h.c.EnergyCrystals += ev.Amount
	case world.EventAddGold:
		h.c.Gold += ev.Amount
	case world.EventAddBomb:
		h.c.Bombs += ev.Amount
	case world.EventSubtractBomb:
		h.c.Bombs -= ev.Amount
		if h.c.Bombs < 0 {
			h.c.Bombs = 0
		}
	case world.EventSubtractHp:
		h.c.HP -= ev.Amount
		if h.c.HP < 0 {
			h.c.HP = 0
		}
	}
}

func (h *HUD) Snapshot() Counters {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.c
}
