package session

import (
	"encoding/json"

	"crystalmaster.io/internal/protocol"
	"crystalmaster.io/internal/sim/encoding"
	"crystalmaster.io/internal/sim/world"
	"crystalmaster.io/internal/sim/world/terrain/store"
)

func (s *Session) encodeWelcome(observerID string, controller bool) ([]byte, error) {
	w := s.w
	t := w.Tuning()
	subs := w.SubSeeds()
	msg := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       observerID,
		RunID:           s.runID,
		Controller:      controller,
		World: protocol.WorldParams{
			Seed:       w.Seed(),
			SubSeeds:   protocol.SubSeeds{Stone: subs.Stone, Crystal: subs.Crystal, Gold: subs.Gold},
			TickRateHz: t.TickRateHz,
			TileSize:   t.TileSize,
			WidthTiles: t.WidthTiles(),
			Amplifier:  w.Amplifier(),
			Divisor:    w.Divisor(),
		},
		CatalogDigest: w.Registry().Digest,
	}
	return json.Marshal(msg)
}

// BuildFrame renders the visible, generated rows and this tick's results.
func BuildFrame(w *world.World, res world.StepResult, digest string) protocol.FrameMsg {
	f := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Tick:            res.Tick,
		State:           res.State.String(),
		TopRow:          res.TopRow,
		BottomRow:       res.BottomRow,
		Rows:            []protocol.RowObs{},
		Events:          []protocol.EventObs{},
		Digest:          digest,
	}

	width := w.Tuning().WidthTiles()
	tiles := w.Tiles()
	for y := max(res.TopRow, 0); y < res.BottomRow && w.RowGenerated(y); y++ {
		f.Rows = append(f.Rows, protocol.RowObs{
			Y:   y,
			FG:  encoding.EncodeRow(tiles.Pool(store.Foreground).ExportRow(y, width)),
			BG:  encoding.EncodeRow(tiles.Pool(store.Background).ExportRow(y, width)),
			Dyn: encoding.EncodeRow(tiles.Pool(store.Dynamic).ExportRow(y, width)),
			Lit: encoding.EncodeRow(tiles.LitRow(y, width)),
		})
	}

	for _, ev := range res.Events {
		f.Events = append(f.Events, protocol.EventObs{Kind: string(ev.Kind), Amount: ev.Amount})
	}
	for _, ex := range res.Explosions {
		f.Explosions = append(f.Explosions, protocol.CellObs{X: ex.Cell.X, Y: ex.Cell.Y})
	}
	for _, p := range w.Projectiles() {
		if p.Visible {
			f.Projectiles = append(f.Projectiles, protocol.CellObs{X: p.Cell.X, Y: p.Cell.Y})
		}
	}
	if p := w.Player(); p != nil {
		f.Player = &protocol.PlayerObs{
			X:        p.State.X,
			Y:        p.State.Y,
			HP:       p.HP,
			Bombs:    p.Bombs,
			Gold:     p.Gold,
			Crystals: p.Crystals,
		}
	}
	return f
}

func (s *Session) broadcast(res world.StepResult, digest string) {
	b, err := json.Marshal(BuildFrame(s.w, res, digest))
	if err != nil {
		s.log.WithError(err).Error("encode frame")
		return
	}
	for _, out := range s.observers {
		sendLatest(out, b)
	}
}

func sampleProjectiles(ps []*world.Projectile) []BodySample {
	if len(ps) == 0 {
		return nil
	}
	out := make([]BodySample, 0, len(ps))
	for _, p := range ps {
		out = append(out, BodySample{ID: p.ID, X: p.X, Y: p.Y, VX: p.VX, VY: p.VY})
	}
	return out
}

// applySamples moves live projectiles to the recorded physics state.
func applySamples(w *world.World, samples []BodySample) {
	if len(samples) == 0 {
		return
	}
	byID := make(map[int]BodySample, len(samples))
	for _, s := range samples {
		byID[s.ID] = s
	}
	for _, p := range w.Projectiles() {
		if s, ok := byID[p.ID]; ok {
			p.X, p.Y, p.VX, p.VY = s.X, s.Y, s.VX, s.VY
		}
	}
}
