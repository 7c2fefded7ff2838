package catalogs

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var ErrUnknownTile = errors.New("unknown tile type")

//go:embed tiles.schema.json
var tilesSchema string

// Descriptor is the registry entry for one tile type in one layer.
type Descriptor struct {
	Type      TileType
	Variants  []string
	Particles []string
	Animated  bool
	Fragile   bool
}

type ProjectileDescriptor struct {
	Type            ProjectileType
	Variants        []string
	Animated        bool
	Throwable       bool
	Explodes        bool
	DamagesTiles    bool
	ExplosionRadius int
	ExplodeDelay    int
}

// Registry is built once and shared read-only by the generator and world.
type Registry struct {
	Foreground  map[TileType]*Descriptor
	Background  map[TileType]*Descriptor
	Dynamic     map[TileType]*Descriptor
	Projectiles map[ProjectileType]*ProjectileDescriptor

	Digest string
}

// Betweener draws uniform integers in [min, max].
type Betweener interface {
	Between(min, max int) int
}

// PickVariant selects one visual variant uniformly.
func (d *Descriptor) PickVariant(r Betweener) string {
	return pick(d.Variants, r)
}

// PickParticle selects one particle key, or "" when the tile has none.
func (d *Descriptor) PickParticle(r Betweener) string {
	return pick(d.Particles, r)
}

func (d *ProjectileDescriptor) PickVariant(r Betweener) string {
	return pick(d.Variants, r)
}

func pick(keys []string, r Betweener) string {
	switch len(keys) {
	case 0:
		return ""
	case 1:
		return keys[0]
	}
	return keys[r.Between(0, len(keys)-1)]
}

type fileV1 struct {
	Foreground  []tileDefV1       `json:"foreground"`
	Background  []tileDefV1       `json:"background"`
	Dynamic     []tileDefV1       `json:"dynamic"`
	Projectiles []projectileDefV1 `json:"projectiles"`
}

type tileDefV1 struct {
	ID        string   `json:"id"`
	Variants  []string `json:"variants"`
	Particles []string `json:"particles,omitempty"`
	Animated  bool     `json:"animated,omitempty"`
	Fragile   bool     `json:"fragile,omitempty"`
}

type projectileDefV1 struct {
	ID              string   `json:"id"`
	Variants        []string `json:"variants"`
	Animated        bool     `json:"animated,omitempty"`
	Throwable       bool     `json:"throwable,omitempty"`
	Explodes        bool     `json:"explodes,omitempty"`
	DamagesTiles    bool     `json:"damages_tiles,omitempty"`
	ExplosionRadius int      `json:"explosion_radius,omitempty"`
	ExplodeDelay    int      `json:"explode_delay,omitempty"`
}

// Load reads <configDir>/tiles.json.
func Load(configDir string) (*Registry, error) {
	raw, err := os.ReadFile(filepath.Join(configDir, "tiles.json"))
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse validates raw against the tiles schema and builds a Registry.
func Parse(raw []byte) (*Registry, error) {
	schema, err := jsonschema.CompileString("tiles.schema.json", tilesSchema)
	if err != nil {
		return nil, fmt.Errorf("tiles schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("tiles.json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("tiles.json: %w", err)
	}

	var f fileV1
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("tiles.json: %w", err)
	}
	reg, err := build(f)
	if err != nil {
		return nil, err
	}
	reg.Digest = sha256Hex(raw)
	return reg, nil
}

func build(f fileV1) (*Registry, error) {
	reg := &Registry{
		Foreground:  map[TileType]*Descriptor{},
		Background:  map[TileType]*Descriptor{},
		Dynamic:     map[TileType]*Descriptor{},
		Projectiles: map[ProjectileType]*ProjectileDescriptor{},
	}
	layers := []struct {
		name string
		defs []tileDefV1
		out  map[TileType]*Descriptor
	}{
		{"foreground", f.Foreground, reg.Foreground},
		{"background", f.Background, reg.Background},
		{"dynamic", f.Dynamic, reg.Dynamic},
	}
	for _, l := range layers {
		for _, d := range l.defs {
			tt, err := ParseTileType(d.ID)
			if err != nil {
				return nil, fmt.Errorf("tiles.json %s: %w", l.name, err)
			}
			if len(d.Variants) == 0 {
				return nil, fmt.Errorf("tiles.json %s: %s has no variants", l.name, d.ID)
			}
			if _, dup := l.out[tt]; dup {
				return nil, fmt.Errorf("tiles.json %s: duplicate %s", l.name, d.ID)
			}
			l.out[tt] = &Descriptor{
				Type:      tt,
				Variants:  d.Variants,
				Particles: d.Particles,
				Animated:  d.Animated,
				Fragile:   d.Fragile,
			}
		}
	}
	for _, d := range f.Projectiles {
		pt, err := ParseProjectileType(d.ID)
		if err != nil {
			return nil, fmt.Errorf("tiles.json projectiles: %w", err)
		}
		reg.Projectiles[pt] = &ProjectileDescriptor{
			Type:            pt,
			Variants:        d.Variants,
			Animated:        d.Animated,
			Throwable:       d.Throwable,
			Explodes:        d.Explodes,
			DamagesTiles:    d.DamagesTiles,
			ExplosionRadius: d.ExplosionRadius,
			ExplodeDelay:    d.ExplodeDelay,
		}
	}
	return reg, nil
}

// Defaults returns the built-in registry shipped in configs/tiles.json.
func Defaults() *Registry {
	dirt := []string{"spr_part_dirt0", "spr_part_dirt1", "spr_part_dirt2"}
	stone := []string{"spr_part_stone0", "spr_part_stone1", "spr_part_stone2", "spr_part_stone3"}
	f := fileV1{
		Foreground: []tileDefV1{
			{ID: "GRASS", Variants: []string{"spr_grass"}, Particles: dirt},
			{ID: "DIRT", Variants: []string{"spr_dirt"}, Particles: dirt},
			{ID: "STONE", Variants: []string{"spr_stone", "spr_stone1", "spr_stone2"}, Particles: stone},
			{ID: "ENERGY_CRYSTAL", Variants: []string{"spr_energy_crystal"}, Animated: true, Particles: stone},
			{ID: "GOLD", Variants: []string{"spr_gold"}, Particles: stone},
		},
		Background: []tileDefV1{
			{ID: "STONE", Variants: []string{"spr_bg_stone", "spr_bg_stone1"}},
			{ID: "WATERFALL_OPENING", Variants: []string{"spr_bg_waterfall_opening"}, Animated: true},
			{ID: "WATERFALL", Variants: []string{"spr_bg_waterfall"}, Animated: true},
		},
		Dynamic: []tileDefV1{
			{ID: "POT", Variants: []string{"spr_pot", "spr_pot1", "spr_pot2"}, Fragile: true},
			{ID: "LADDER", Variants: []string{"spr_ladder"}},
		},
		Projectiles: []projectileDefV1{
			{ID: "BOMB", Variants: []string{"spr_proj_bomb"}, Animated: true, Throwable: true,
				Explodes: true, DamagesTiles: true, ExplosionRadius: 5, ExplodeDelay: 60},
		},
	}
	reg, err := build(f)
	if err != nil {
		panic(err)
	}
	raw, _ := json.Marshal(f)
	reg.Digest = sha256Hex(raw)
	return reg
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
