package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"crystalmaster.io/internal/protocol"
)

var digest = strings.Repeat("ab", 32)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// validateValue runs v through JSON so struct tags are what gets checked.
func validateValue(t *testing.T, s *jsonschema.Schema, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(doc); err != nil {
		t.Fatalf("validate %s: %v", b, err)
	}
}

func TestSchemas_ValidateSamples(t *testing.T) {
	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "observer_name":"viewer1"
	}`), &hello)
	if err := compile(t, "hello.schema.json").Validate(hello); err != nil {
		t.Fatalf("hello: %v", err)
	}

	var frame any
	_ = json.Unmarshal([]byte(`{
	  "type":"FRAME",
	  "protocol_version":"1.0",
	  "tick":12,
	  "state":"PLAYING",
	  "top_row":-2,
	  "bottom_row":32,
	  "rows":[{"y":0,"fg":"AyA=","bg":"ACA=","dyn":"ACA=","lit":"ASA="}],
	  "events":[{"kind":"addGold","amount":2}],
	  "player":{"x":132,"y":36,"hp":3,"bombs":0,"gold":2,"crystals":0},
	  "digest":"`+digest+`"
	}`), &frame)
	if err := compile(t, "frame.schema.json").Validate(frame); err != nil {
		t.Fatalf("frame: %v", err)
	}
}

func TestSchemas_GoMessagesConform(t *testing.T) {
	validateValue(t, compile(t, "hello.schema.json"), protocol.HelloMsg{
		Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ObserverName: "viewer", Controller: true,
	})
	validateValue(t, compile(t, "welcome.schema.json"), protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "S1",
		RunID:           "R1",
		World: protocol.WorldParams{
			Seed:       1234567890,
			SubSeeds:   protocol.SubSeeds{Stone: 1234, Crystal: 5678, Gold: 9012},
			TickRateHz: 60,
			TileSize:   8,
			WidthTiles: 32,
			Amplifier:  40,
			Divisor:    120,
		},
		CatalogDigest: digest,
	})
	validateValue(t, compile(t, "frame.schema.json"), protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Tick:            1,
		State:           "GAME_OVER",
		Rows:            []protocol.RowObs{{Y: 3, FG: "AyA=", BG: "", Dyn: "", Lit: "ASA="}},
		Events:          []protocol.EventObs{{Kind: "subtractHp", Amount: 3}},
		Explosions:      []protocol.CellObs{{X: 1, Y: 2}},
		Player:          &protocol.PlayerObs{HP: 0},
		Digest:          digest,
	})
	validateValue(t, compile(t, "input.schema.json"), protocol.InputMsg{
		Type: protocol.TypeInput, ProtocolVersion: protocol.Version, MoveH: -1, Fire: true,
		Break: &protocol.PointObs{X: 10, Y: 20},
	})
	validateValue(t, compile(t, "error.schema.json"), protocol.NewError(protocol.ErrProtoVersion, "want 1.0"))
}

func TestSchemas_RejectBadInput(t *testing.T) {
	s := compile(t, "input.schema.json")
	var in any
	_ = json.Unmarshal([]byte(`{"type":"INPUT","protocol_version":"1.0","move_h":2,"jump":false,"up":false,"drill":false,"fire":false}`), &in)
	if err := s.Validate(in); err == nil {
		t.Fatalf("move_h out of range accepted")
	}
}
