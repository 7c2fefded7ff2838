package hud

import (
	"testing"

	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/tuning"
	"crystalmaster.io/internal/sim/world"
)

func TestHandleClampsCounters(t *testing.T) {
	h := New(3, 1)
	for _, ev := range []world.Event{
		{Kind: world.EventSubtractHp, Amount: 2},
		{Kind: world.EventSubtractHp, Amount: 10},
		{Kind: world.EventSubtractBomb, Amount: 1},
		{Kind: world.EventSubtractBomb, Amount: 1},
		{Kind: world.EventAddGold, Amount: 4},
		{Kind: world.EventAddEnergyCrystal, Amount: 1},
		{Kind: world.EventAddBomb, Amount: 2},
		{Kind: world.EventWin, Amount: 1},
	} {
		h.Handle(ev)
	}
	got := h.Snapshot()
	want := Counters{HP: 0, EnergyCrystals: 1, Gold: 4, Bombs: 2}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestAttachFollowsWorld(t *testing.T) {
	tune := tuning.Defaults()
	tune.Player.StartingBombs = 2
	w, err := world.New(world.Config{Seed: 1234567890, Tuning: tune}, catalogs.Defaults())
	if err != nil {
		t.Fatal(err)
	}
	w.GenerateWorld()
	h := Attach(w)
	if got := h.Snapshot(); got.HP != 3 || got.Bombs != 2 {
		t.Fatalf("initial %+v", got)
	}

	if _, err := w.AddTile(1, 40, catalogs.Gold); err != nil {
		t.Fatal(err)
	}
	w.RemoveTile(1, 40, world.RemoveOptions{RewardPlayer: true})
	if got := h.Snapshot(); got.Gold != 1 || got.Gold != w.Player().Gold {
		t.Fatalf("gold %+v vs player %d", got, w.Player().Gold)
	}
}
