package catalogs

import "fmt"

// TileType identifies a tile kind across all three layers. The zero value is
// air (no tile).
type TileType uint8

const (
	None TileType = iota
	Grass
	Dirt
	Stone
	Gold
	EnergyCrystal
	WaterfallOpening
	Waterfall
	Pot
	Ladder
)

var tileNames = [...]string{
	None:             "NONE",
	Grass:            "GRASS",
	Dirt:             "DIRT",
	Stone:            "STONE",
	Gold:             "GOLD",
	EnergyCrystal:    "ENERGY_CRYSTAL",
	WaterfallOpening: "WATERFALL_OPENING",
	Waterfall:        "WATERFALL",
	Pot:              "POT",
	Ladder:           "LADDER",
}

func (t TileType) String() string {
	if int(t) < len(tileNames) {
		return tileNames[t]
	}
	return fmt.Sprintf("TileType(%d)", uint8(t))
}

// IsWaterfall reports whether t carries a waterfall flow counter.
func (t TileType) IsWaterfall() bool {
	return t == WaterfallOpening || t == Waterfall
}

func ParseTileType(name string) (TileType, error) {
	for i, n := range tileNames {
		if i == int(None) {
			continue
		}
		if n == name {
			return TileType(i), nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownTile, name)
}

type ProjectileType uint8

const (
	NoProjectile ProjectileType = iota
	Bomb
)

func (p ProjectileType) String() string {
	switch p {
	case Bomb:
		return "BOMB"
	default:
		return fmt.Sprintf("ProjectileType(%d)", uint8(p))
	}
}

func ParseProjectileType(name string) (ProjectileType, error) {
	if name == "BOMB" {
		return Bomb, nil
	}
	return NoProjectile, fmt.Errorf("%w: %q", ErrUnknownTile, name)
}
