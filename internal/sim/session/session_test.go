package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"crystalmaster.io/internal/protocol"
	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/encoding"
	"crystalmaster.io/internal/sim/tuning"
	"crystalmaster.io/internal/sim/world"
	"crystalmaster.io/internal/sim/world/terrain/store"
)

const testSeed = 1234567890

type recorder struct {
	header  *RunHeader
	entries []TickLogEntry
}

func (r *recorder) WriteHeader(h RunHeader) error {
	r.header = &h
	return nil
}

func (r *recorder) WriteTick(e TickLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func newTestSession(t *testing.T, mutate func(*Config)) *Session {
	t.Helper()
	cfg := Config{
		World:    world.Config{Seed: testSeed, Tuning: tuning.Defaults()},
		Registry: catalogs.Defaults(),
		RunID:    "run-test",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestStepAdvancesWorldAndMetrics(t *testing.T) {
	s := newTestSession(t, nil)
	if m := s.Metrics(); m.Tick != 0 || m.RunID != "run-test" || m.HUD.HP != 3 {
		t.Fatalf("initial metrics %+v", m)
	}
	var last TickLogEntry
	for i := 0; i < 10; i++ {
		last = s.Step()
	}
	if last.Tick != 10 || s.World().CurrentTick() != 10 {
		t.Fatalf("tick=%d", last.Tick)
	}
	m := s.Metrics()
	if m.Tick != 10 || m.Digest != last.Digest || m.RowsGenerated == 0 || m.CameraY <= 0 {
		t.Fatalf("metrics %+v", m)
	}
	if last.Cam.W != 256 || last.Cam.H != 240 {
		t.Fatalf("camera %+v", last.Cam)
	}
}

func TestPlayerFallsUnderStandInPhysics(t *testing.T) {
	s := newTestSession(t, nil)
	y0 := s.body.Y
	for i := 0; i < 30; i++ {
		s.Step()
	}
	if s.body.Y <= y0 {
		t.Fatalf("player did not fall: %v -> %v", y0, s.body.Y)
	}
}

func TestSinksReceiveHeaderThenTicks(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, func(c *Config) { c.Sinks = []Sink{rec} })
	for i := 0; i < 5; i++ {
		s.Step()
	}
	if rec.header == nil || rec.header.Seed != testSeed || rec.header.RunID != "run-test" {
		t.Fatalf("header %+v", rec.header)
	}
	if rec.header.CatalogDigest != catalogs.Defaults().Digest {
		t.Fatalf("catalog digest not recorded")
	}
	if len(rec.entries) != 5 {
		t.Fatalf("entries=%d", len(rec.entries))
	}
	for i, e := range rec.entries {
		if e.Tick != uint64(i+1) || e.Digest == "" || e.State != "PLAYING" {
			t.Fatalf("entry %d: %+v", i, e)
		}
	}
}

func recordRun(t *testing.T, ticks int) *recorder {
	t.Helper()
	rec := &recorder{}
	s := newTestSession(t, func(c *Config) {
		c.Sinks = []Sink{rec}
		c.World.Tuning.Player.StartingBombs = 3
	})
	for i := 0; i < ticks && !s.Finished(); i++ {
		switch {
		case i < 200:
			s.held = world.Input{Drill: true, Fire: true}
		case i < 260:
			s.held = world.Input{MoveH: 1, Jump: true}
		default:
			s.held = world.Input{MoveH: -1, Drill: true, Up: i%50 == 0}
		}
		s.Step()
	}
	return rec
}

func TestReplayReproducesRun(t *testing.T) {
	rec := recordRun(t, 400)
	threw := false
	for _, e := range rec.entries {
		if len(e.Projectiles) > 0 {
			threw = true
		}
	}
	if !threw {
		t.Fatalf("run never had a projectile in flight")
	}

	r, err := NewReplayer(*rec.header, catalogs.Defaults())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range rec.entries {
		if err := r.Apply(e); err != nil {
			t.Fatalf("replay: %v", err)
		}
	}
	res := r.Result()
	last := rec.entries[len(rec.entries)-1]
	if res.Ticks != len(rec.entries) || res.LastDigest != last.Digest {
		t.Fatalf("result %+v", res)
	}
}

func TestReplayDetectsDivergence(t *testing.T) {
	rec := recordRun(t, 40)
	rec.entries[20].Cam.Y += 400

	r, err := NewReplayer(*rec.header, catalogs.Defaults())
	if err != nil {
		t.Fatal(err)
	}
	var mm *Mismatch
	for _, e := range rec.entries {
		if err := r.Apply(e); err != nil {
			if !errors.As(err, &mm) {
				t.Fatalf("unexpected error %v", err)
			}
			break
		}
	}
	if mm == nil || mm.Tick != 21 {
		t.Fatalf("mismatch %+v", mm)
	}
}

func TestReplayRejectsOtherCatalog(t *testing.T) {
	rec := recordRun(t, 1)
	h := *rec.header
	h.CatalogDigest = "deadbeef"
	if _, err := NewReplayer(h, catalogs.Defaults()); err == nil {
		t.Fatalf("expected catalog digest error")
	}
}

func joinAsync(s *Session, name string, controller bool, out chan []byte) <-chan JoinResponse {
	ch := make(chan JoinResponse, 1)
	go func() {
		resp, err := s.Join(context.Background(), name, controller, out)
		if err == nil {
			ch <- resp
		}
		close(ch)
	}()
	return ch
}

func waitJoin(t *testing.T, s *Session, ch <-chan JoinResponse) JoinResponse {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case resp, ok := <-ch:
			if !ok {
				t.Fatalf("join failed")
			}
			return resp
		case <-deadline:
			t.Fatalf("join timed out")
		default:
			s.drain()
			time.Sleep(time.Millisecond)
		}
	}
}

func TestObserversAndControl(t *testing.T) {
	s := newTestSession(t, nil)
	out := make(chan []byte, 1)
	ctl := waitJoin(t, s, joinAsync(s, "driver", true, out))
	if !ctl.Controller || ctl.ObserverID == "" {
		t.Fatalf("first controller request denied: %+v", ctl)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(ctl.Welcome, &welcome); err != nil {
		t.Fatal(err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.World.Seed != testSeed || welcome.RunID != "run-test" || welcome.World.WidthTiles != 32 {
		t.Fatalf("welcome %+v", welcome)
	}

	other := waitJoin(t, s, joinAsync(s, "viewer", true, nil))
	if other.Controller {
		t.Fatalf("second controller granted")
	}

	if !s.Submit(other.ObserverID, world.Input{MoveH: -1}) || !s.Submit(ctl.ObserverID, world.Input{MoveH: 1}) {
		t.Fatalf("inbox full")
	}
	s.Step()
	if s.held.MoveH != 1 {
		t.Fatalf("held input %+v", s.held)
	}

	var frame protocol.FrameMsg
	select {
	case b := <-out:
		if err := json.Unmarshal(b, &frame); err != nil {
			t.Fatal(err)
		}
	default:
		t.Fatalf("no frame delivered")
	}
	if frame.Type != protocol.TypeFrame || frame.Tick != 1 || len(frame.Rows) != 32 || frame.Player == nil {
		t.Fatalf("frame tick=%d rows=%d", frame.Tick, len(frame.Rows))
	}
	for _, r := range frame.Rows {
		if _, err := encoding.DecodeRow(r.FG, 32); err != nil {
			t.Fatalf("row %d: %v", r.Y, err)
		}
	}

	// A slow observer only keeps the latest frame.
	s.Step()
	s.Step()
	if len(out) != 1 {
		t.Fatalf("queued frames=%d", len(out))
	}

	s.Leave(ctl.ObserverID)
	s.Step()
	if s.held != (world.Input{}) || s.controller != "" {
		t.Fatalf("control kept after leaving")
	}
	if m := s.Metrics(); m.Observers != 0 {
		t.Fatalf("observers=%d", m.Observers)
	}
}

func TestAutopilotDeniesControl(t *testing.T) {
	s := newTestSession(t, func(c *Config) { c.Autopilot = true })
	resp := waitJoin(t, s, joinAsync(s, "driver", true, nil))
	if resp.Controller {
		t.Fatalf("control granted while the autopilot drives")
	}
	for i := 0; i < 10; i++ {
		if e := s.Step(); !e.Input.Drill {
			t.Fatalf("autopilot not drilling at tick %d", e.Tick)
		}
	}
}

func TestRunStopsAtMaxTicks(t *testing.T) {
	s := newTestSession(t, func(c *Config) { c.MaxTicks = 3 })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m := s.Metrics(); m.Tick != 3 {
		t.Fatalf("stopped at tick %d", m.Tick)
	}
}

func TestRunHonoursContextAndStop(t *testing.T) {
	s := newTestSession(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run after cancel: %v", err)
	}

	s2 := newTestSession(t, nil)
	s2.Stop()
	s2.Stop()
	if err := s2.Run(context.Background()); err != nil {
		t.Fatalf("Run after Stop: %v", err)
	}
	if _, err := s2.Join(context.Background(), "late", false, nil); !errors.Is(err, ErrStopped) {
		t.Fatalf("join after stop: %v", err)
	}
}

func TestBuildFrameLitMaskMatchesTiles(t *testing.T) {
	w, err := world.New(world.Config{Seed: testSeed, Tuning: tuning.Defaults()}, catalogs.Defaults())
	if err != nil {
		t.Fatal(err)
	}
	res := w.Update(world.Rect{W: 256, H: 240}, world.PlayerState{}, world.Input{})
	f := BuildFrame(w, res, w.Digest())
	if len(f.Rows) != 32 {
		t.Fatalf("rows=%d", len(f.Rows))
	}

	lit, dark := 0, 0
	for _, r := range f.Rows {
		mask, err := encoding.DecodeRow(r.Lit, 32)
		if err != nil {
			t.Fatalf("row %d: %v", r.Y, err)
		}
		for x, m := range mask {
			for bit, tl := range []*store.Tile{w.GetTile(x, r.Y), w.GetBgTile(x, r.Y), w.GetDynamicTile(x, r.Y)} {
				got := m&(1<<bit) != 0
				want := tl != nil && tl.Lit
				if got != want {
					t.Fatalf("(%d,%d) layer %d: lit bit %v want %v", x, r.Y, bit, got, want)
				}
				if tl != nil {
					if tl.Lit {
						lit++
					} else {
						dark++
					}
				}
			}
		}
	}
	if lit == 0 || dark == 0 {
		t.Fatalf("expected both lit and dark tiles: lit=%d dark=%d", lit, dark)
	}
}
