package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	TileSize     int `yaml:"tile_size"`
	Zoom         int `yaml:"zoom"`
	ScreenWidth  int `yaml:"screen_width"`
	ScreenHeight int `yaml:"screen_height"`
	RowBuffer    int `yaml:"row_buffer"`

	LightingEnabled    bool    `yaml:"lighting_enabled"`
	AmbientLightRadius float64 `yaml:"ambient_light_radius"`
	PlayerLightRadius  float64 `yaml:"player_light_radius"`

	WorldGen WorldGen `yaml:"worldgen"`

	WinCrystals     int `yaml:"win_crystals"`
	WinDelayMs      int `yaml:"win_delay_ms"`
	GameOverDelayMs int `yaml:"game_over_delay_ms"`

	Player    Player    `yaml:"player"`
	Explosion Explosion `yaml:"explosion"`
	Camera    Camera    `yaml:"camera"`

	ObserverMaxQueue int `yaml:"observer_max_queue"`
}

type WorldGen struct {
	DirtBandMin int `yaml:"dirt_band_min"`
	DirtBandMax int `yaml:"dirt_band_max"`

	// Zero means "derive from the seed".
	TerrainAmplifier int `yaml:"terrain_amplifier"`
	TerrainDivisor   int `yaml:"terrain_divisor"`
}

type Player struct {
	HP              int     `yaml:"hp"`
	Accel           float64 `yaml:"accel"`
	WalkSpeed       float64 `yaml:"walk_speed"`
	JumpVelocity    float64 `yaml:"jump_velocity"`
	FallDamageRows  int     `yaml:"fall_damage_rows"`
	FallDamage      int     `yaml:"fall_damage"`
	OffscreenMargin float64 `yaml:"offscreen_margin_px"`
	OffscreenDamage int     `yaml:"offscreen_damage"`
	FireDelayTicks  int     `yaml:"fire_delay_ticks"`
	ThrowSpeedX     float64 `yaml:"throw_speed_x"`
	ThrowVelocityY  float64 `yaml:"throw_velocity_y"`
	StartingBombs   int     `yaml:"starting_bombs"`
}

type Explosion struct {
	PlayerDamage   int     `yaml:"player_damage"`
	DamageDistance float64 `yaml:"damage_distance"`
	EffectMs       int     `yaml:"effect_ms"`
}

type Camera struct {
	ScrollAccel float64 `yaml:"scroll_accel"`
	ScrollMax   float64 `yaml:"scroll_max"`
	Gravity     float64 `yaml:"gravity"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         60,
		TileSize:           8,
		Zoom:               2,
		ScreenWidth:        512,
		ScreenHeight:       480,
		RowBuffer:          2,
		LightingEnabled:    true,
		AmbientLightRadius: 22,
		PlayerLightRadius:  7,
		WorldGen: WorldGen{
			DirtBandMin: 5,
			DirtBandMax: 10,
		},
		WinCrystals:     10,
		WinDelayMs:      500,
		GameOverDelayMs: 1000,
		Player: Player{
			HP:              3,
			Accel:           2,
			WalkSpeed:       40,
			JumpVelocity:    -40 * 1.15,
			FallDamageRows:  10,
			FallDamage:      2,
			OffscreenMargin: 128,
			OffscreenDamage: 10,
			FireDelayTicks:  30,
			ThrowSpeedX:     30,
			ThrowVelocityY:  -20,
		},
		Explosion: Explosion{
			PlayerDamage:   3,
			DamageDistance: 4,
			EffectMs:       1000,
		},
		Camera: Camera{
			ScrollAccel: 0.01,
			ScrollMax:   20,
			Gravity:     100,
		},
		ObserverMaxQueue: 64,
	}
}

// Load reads a tuning.yaml. Keys missing from the file keep their Defaults()
// value.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0 (got %d)", name, v))
		}
	}
	positive("tick_rate_hz", t.TickRateHz)
	positive("tile_size", t.TileSize)
	positive("zoom", t.Zoom)
	positive("screen_width", t.ScreenWidth)
	positive("screen_height", t.ScreenHeight)
	positive("win_crystals", t.WinCrystals)
	positive("player.hp", t.Player.HP)
	if t.RowBuffer < 0 {
		errs = append(errs, fmt.Errorf("row_buffer must be >= 0 (got %d)", t.RowBuffer))
	}
	if t.WorldGen.DirtBandMin < 1 || t.WorldGen.DirtBandMax < t.WorldGen.DirtBandMin {
		errs = append(errs, fmt.Errorf("worldgen dirt band [%d,%d] is empty", t.WorldGen.DirtBandMin, t.WorldGen.DirtBandMax))
	}
	if t.WorldGen.TerrainAmplifier < 0 || t.WorldGen.TerrainDivisor < 0 {
		errs = append(errs, errors.New("worldgen terrain overrides must be >= 0"))
	}
	return errors.Join(errs...)
}

// WidthTiles is the number of generated columns.
func (t Tuning) WidthTiles() int { return t.ScreenWidth / (t.TileSize * t.Zoom) }

// HeightTiles is the number of visible rows.
func (t Tuning) HeightTiles() int { return t.ScreenHeight / (t.TileSize * t.Zoom) }

// MsToTicks converts a delay to whole ticks, rounding up.
func (t Tuning) MsToTicks(ms int) uint64 {
	if ms <= 0 || t.TickRateHz <= 0 {
		return 0
	}
	return uint64((ms*t.TickRateHz + 999) / 1000)
}
