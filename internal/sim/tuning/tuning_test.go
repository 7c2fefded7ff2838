package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadShippedTuning(t *testing.T) {
	tune, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tune.WidthTiles() != 32 || tune.HeightTiles() != 30 {
		t.Fatalf("unexpected screen in tiles: %dx%d", tune.WidthTiles(), tune.HeightTiles())
	}
	if tune.AmbientLightRadius != 22 || tune.PlayerLightRadius != 7 {
		t.Fatalf("unexpected light radii: %v %v", tune.AmbientLightRadius, tune.PlayerLightRadius)
	}
	if tune.WinCrystals != 10 {
		t.Fatalf("win_crystals=%d", tune.WinCrystals)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("win_crystals: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tune, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tune.WinCrystals != 3 {
		t.Fatalf("override lost: %d", tune.WinCrystals)
	}
	if tune.TileSize != 8 || tune.Player.HP != 3 {
		t.Fatalf("defaults lost: %+v", tune)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("tile_size: 0\nworldgen:\n  dirt_band_min: 6\n  dirt_band_max: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestMsToTicks(t *testing.T) {
	tune := Defaults()
	if got := tune.MsToTicks(500); got != 30 {
		t.Fatalf("500ms=%d ticks", got)
	}
	if got := tune.MsToTicks(1000); got != 60 {
		t.Fatalf("1000ms=%d ticks", got)
	}
	if got := tune.MsToTicks(1); got != 1 {
		t.Fatalf("1ms=%d ticks", got)
	}
	if got := tune.MsToTicks(0); got != 0 {
		t.Fatalf("0ms=%d ticks", got)
	}
}
