package catalogs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadShippedTiles(t *testing.T) {
	reg, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Defaults()
	if len(reg.Foreground) != len(def.Foreground) || len(reg.Background) != len(def.Background) ||
		len(reg.Dynamic) != len(def.Dynamic) || len(reg.Projectiles) != len(def.Projectiles) {
		t.Fatalf("shipped tiles.json diverges from Defaults()")
	}
	if !reg.Dynamic[Pot].Fragile {
		t.Fatalf("POT must be fragile")
	}
	if reg.Dynamic[Ladder].Fragile {
		t.Fatalf("LADDER must not be fragile")
	}
	bomb := reg.Projectiles[Bomb]
	if bomb == nil || !bomb.Explodes || bomb.ExplosionRadius != 5 || bomb.ExplodeDelay != 60 {
		t.Fatalf("unexpected BOMB: %+v", bomb)
	}
	if reg.Digest == "" {
		t.Fatalf("expected digest")
	}
}

func TestParseRejectsUnknownTile(t *testing.T) {
	raw := []byte(`{"foreground":[{"id":"LAVA","variants":["spr_lava"]}],"background":[],"dynamic":[],"projectiles":[]}`)
	_, err := Parse(raw)
	if !errors.Is(err, ErrUnknownTile) {
		t.Fatalf("expected ErrUnknownTile, got %v", err)
	}
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"missing layer":  `{"foreground":[],"background":[],"dynamic":[]}`,
		"no variants":    `{"foreground":[{"id":"GRASS","variants":[]}],"background":[],"dynamic":[],"projectiles":[]}`,
		"unknown field":  `{"foreground":[{"id":"GRASS","variants":["a"],"glow":true}],"background":[],"dynamic":[],"projectiles":[]}`,
		"negative delay": `{"foreground":[],"background":[],"dynamic":[],"projectiles":[{"id":"BOMB","variants":["b"],"explode_delay":-1}]}`,
		"duplicate":      `{"foreground":[{"id":"GOLD","variants":["a"]},{"id":"GOLD","variants":["b"]}],"background":[],"dynamic":[],"projectiles":[]}`,
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

type fixedRand int

func (f fixedRand) Between(min, max int) int {
	v := int(f)
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func TestPickVariant(t *testing.T) {
	reg := Defaults()
	if got := reg.Foreground[Stone].PickVariant(fixedRand(2)); got != "spr_stone2" {
		t.Fatalf("PickVariant: %q", got)
	}
	if got := reg.Foreground[Gold].PickVariant(fixedRand(5)); got != "spr_gold" {
		t.Fatalf("single variant: %q", got)
	}
	if got := reg.Background[Waterfall].PickParticle(fixedRand(0)); got != "" {
		t.Fatalf("expected no particle, got %q", got)
	}
}

func TestTileTypeNames(t *testing.T) {
	for tt := Grass; tt <= Ladder; tt++ {
		back, err := ParseTileType(tt.String())
		if err != nil || back != tt {
			t.Fatalf("%v: round trip failed (%v, %v)", tt, back, err)
		}
	}
	if _, err := ParseTileType("NONE"); err == nil {
		t.Fatalf("NONE must not parse")
	}
	if !WaterfallOpening.IsWaterfall() || !Waterfall.IsWaterfall() || Stone.IsWaterfall() {
		t.Fatalf("IsWaterfall mismatch")
	}
}
