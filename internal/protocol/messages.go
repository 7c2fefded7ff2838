package protocol

// HELLO (observer -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ObserverName    string `json:"observer_name"`

	// Controller asks to drive the player. Only one observer may hold it.
	Controller bool `json:"controller,omitempty"`
}

// WELCOME (server -> observer)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	RunID           string      `json:"run_id"`
	Controller      bool        `json:"controller"`
	World           WorldParams `json:"world"`
	CatalogDigest   string      `json:"catalog_digest"`
}

type WorldParams struct {
	Seed       int64    `json:"seed"`
	SubSeeds   SubSeeds `json:"sub_seeds"`
	TickRateHz int      `json:"tick_rate_hz"`
	TileSize   int      `json:"tile_size"`
	WidthTiles int      `json:"width_tiles"`
	Amplifier  int      `json:"amplifier"`
	Divisor    int      `json:"divisor"`
}

type SubSeeds struct {
	Stone   int64 `json:"stone"`
	Crystal int64 `json:"crystal"`
	Gold    int64 `json:"gold"`
}

// FRAME (server -> observer), one per tick.
type FrameMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	State           string     `json:"state"`
	TopRow          int        `json:"top_row"`
	BottomRow       int        `json:"bottom_row"`
	Rows            []RowObs   `json:"rows"`
	Events          []EventObs `json:"events"`
	Explosions      []CellObs  `json:"explosions,omitempty"`
	Projectiles     []CellObs  `json:"projectiles,omitempty"`
	Player          *PlayerObs `json:"player,omitempty"`
	Digest          string     `json:"digest"`
}

// RowObs carries one visible row, each layer as RLE of tile type ids. Lit
// is the RLE of per-column lit bits (1 fg, 2 bg, 4 dyn).
type RowObs struct {
	Y   int    `json:"y"`
	FG  string `json:"fg"`
	BG  string `json:"bg"`
	Dyn string `json:"dyn"`
	Lit string `json:"lit"`
}

type EventObs struct {
	Kind   string `json:"kind"`
	Amount int    `json:"amount"`
}

type CellObs struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type PlayerObs struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	HP       int     `json:"hp"`
	Bombs    int     `json:"bombs"`
	Gold     int     `json:"gold"`
	Crystals int     `json:"crystals"`
}

// INPUT (observer -> server). Replaces the held-key state until the next
// INPUT arrives.
type InputMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	MoveH           int       `json:"move_h"`
	Jump            bool      `json:"jump"`
	Up              bool      `json:"up"`
	Drill           bool      `json:"drill"`
	Fire            bool      `json:"fire"`
	Break           *PointObs `json:"break,omitempty"`
}

type PointObs struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ERROR (server -> observer)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
