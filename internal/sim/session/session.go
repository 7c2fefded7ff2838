package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crystalmaster.io/internal/logging"
	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/hud"
	"crystalmaster.io/internal/sim/world"
)

var ErrStopped = errors.New("session stopped")

type Config struct {
	World    world.Config
	Registry *catalogs.Registry

	// RunID defaults to a fresh UUID.
	RunID     string
	Autopilot bool
	// MaxTicks ends the run after that many ticks; 0 runs until the game ends.
	MaxTicks uint64

	Logger       logrus.FieldLogger
	Sinks        []Sink
	WorldOptions []world.Option
}

type JoinRequest struct {
	Name       string
	Controller bool
	Out        chan []byte
	Resp       chan JoinResponse
}

type JoinResponse struct {
	ObserverID string
	Controller bool
	Welcome    []byte
}

type inputReq struct {
	from string
	in   world.Input
}

// Session owns one World and drives it: it samples the camera and the
// kinematic stand-in, applies held input, and fans results out to sinks and
// observers. All world access happens on the goroutine running Run (or the
// caller of Step when Run is not used).
type Session struct {
	cfg   Config
	runID string
	log   logrus.FieldLogger

	w     *world.World
	hud   *hud.HUD
	cam   *AutoScroll
	phys  *Kinematics
	pilot *Autopilot

	body       world.PlayerState
	held       world.Input
	controller string
	observers  map[string]chan []byte

	inbox chan inputReq
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	stopOnce sync.Once
	metrics  atomic.Value
}

func New(cfg Config) (*Session, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("session: nil registry")
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	log = log.WithField("run_id", runID)

	opts := append([]world.Option{world.WithLogger(log.WithField("component", "world"))}, cfg.WorldOptions...)
	w, err := world.New(cfg.World, cfg.Registry, opts...)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	w.GenerateWorld()

	t := w.Tuning()
	s := &Session{
		cfg:       cfg,
		runID:     runID,
		log:       log,
		w:         w,
		hud:       hud.Attach(w),
		cam:       NewAutoScroll(t),
		body:      w.Player().State,
		observers: map[string]chan []byte{},
		inbox:     make(chan inputReq, 64),
		join:      make(chan JoinRequest, 16),
		leave:     make(chan string, 16),
		stop:      make(chan struct{}),
	}
	s.phys = NewKinematics(t.TileSize, t.WidthTiles(), t.TickRateHz, t.Camera.Gravity, func(x, y int) bool {
		return w.GetTile(x, y) != nil
	})
	if cfg.Autopilot {
		s.pilot = NewAutopilot(cfg.World.Seed, t.WidthTiles(), t.Player.FireDelayTicks)
	}

	h := RunHeader{
		RunID:         runID,
		Seed:          cfg.World.Seed,
		Tuning:        t,
		CatalogDigest: cfg.Registry.Digest,
		Autopilot:     cfg.Autopilot,
		StartedAt:     time.Now().UTC(),
	}
	for _, sink := range cfg.Sinks {
		if err := sink.WriteHeader(h); err != nil {
			return nil, fmt.Errorf("session: write header: %w", err)
		}
	}
	s.storeMetrics(0, w.Digest())
	log.WithFields(logrus.Fields{"seed": cfg.World.Seed, "autopilot": cfg.Autopilot}).Info("session created")
	return s, nil
}

func (s *Session) RunID() string { return s.runID }

// World returns the simulated world. Only safe on the loop goroutine.
func (s *Session) World() *world.World { return s.w }

// Finished reports whether the game reached a terminal state or the tick cap.
func (s *Session) Finished() bool {
	if s.w.State() != world.StatePlaying {
		return true
	}
	return s.cfg.MaxTicks > 0 && s.w.CurrentTick() >= s.cfg.MaxTicks
}

func (s *Session) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.w.Tuning().TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case req := <-s.join:
			s.handleJoin(req)
		case id := <-s.leave:
			s.handleLeave(id)
		case <-ticker.C:
			s.Step()
			if s.Finished() {
				m := s.Metrics()
				s.log.WithFields(logrus.Fields{"tick": m.Tick, "state": m.State, "gold": m.HUD.Gold, "crystals": m.HUD.EnergyCrystals}).Info("run finished")
				return nil
			}
		}
	}
}

func (s *Session) Stop() { s.stopOnce.Do(func() { close(s.stop) }) }

// Step advances one tick: it feeds this tick's samples into the world, then
// moves bodies and the camera for the next one.
// Once the game has ended Step only services joins and returns the final
// tick without logging it again.
func (s *Session) Step() TickLogEntry {
	start := time.Now()
	s.drain()
	if s.w.State() != world.StatePlaying {
		return TickLogEntry{Tick: s.w.CurrentTick(), State: s.w.State().String(), Digest: s.w.Digest()}
	}

	in := s.held
	if s.pilot != nil {
		in = s.pilot.Next(s.w.CurrentTick(), s.w.Player())
	}
	entry := TickLogEntry{
		Cam:         s.cam.Rect(),
		Player:      s.body,
		Input:       in,
		Projectiles: sampleProjectiles(s.w.Projectiles()),
	}

	res := s.w.Update(entry.Cam, entry.Player, in)
	entry.Tick = res.Tick
	entry.State = res.State.String()
	entry.Events = res.Events
	entry.Digest = s.w.Digest()

	s.body = res.Player
	s.phys.StepBody(&s.body)
	for _, p := range s.w.Projectiles() {
		s.phys.StepProjectile(p)
	}
	s.cam.Advance()

	for _, sink := range s.cfg.Sinks {
		if err := sink.WriteTick(entry); err != nil {
			s.log.WithError(err).WithField("tick", entry.Tick).Warn("tick sink write failed")
		}
	}
	if len(s.observers) > 0 {
		s.broadcast(res, entry.Digest)
	}
	s.storeMetrics(time.Since(start), entry.Digest)
	return entry
}

func (s *Session) drain() {
	for {
		select {
		case req := <-s.join:
			s.handleJoin(req)
		case id := <-s.leave:
			s.handleLeave(id)
		case r := <-s.inbox:
			if r.from != "" && r.from == s.controller {
				s.held = r.in
			}
		default:
			return
		}
	}
}

// Join registers an observer. Out receives one encoded FRAME per tick; slow
// readers only ever see the latest frame.
func (s *Session) Join(ctx context.Context, name string, controller bool, out chan []byte) (JoinResponse, error) {
	req := JoinRequest{Name: name, Controller: controller, Out: out, Resp: make(chan JoinResponse, 1)}
	select {
	case s.join <- req:
	case <-ctx.Done():
		return JoinResponse{}, ctx.Err()
	case <-s.stop:
		return JoinResponse{}, ErrStopped
	}
	select {
	case resp := <-req.Resp:
		return resp, nil
	case <-ctx.Done():
		return JoinResponse{}, ctx.Err()
	case <-s.stop:
		return JoinResponse{}, ErrStopped
	}
}

func (s *Session) Leave(id string) {
	select {
	case s.leave <- id:
	case <-s.stop:
	}
}

// Submit replaces the held input if id holds control. It never blocks; a
// full inbox drops the update.
func (s *Session) Submit(id string, in world.Input) bool {
	select {
	case s.inbox <- inputReq{from: id, in: in}:
		return true
	default:
		return false
	}
}

func (s *Session) handleJoin(req JoinRequest) {
	id := uuid.NewString()
	ctl := req.Controller && s.controller == "" && s.pilot == nil
	if ctl {
		s.controller = id
	}
	if req.Out != nil {
		s.observers[id] = req.Out
	}
	welcome, err := s.encodeWelcome(id, ctl)
	if err != nil {
		s.log.WithError(err).Error("encode welcome")
	}
	s.log.WithFields(logrus.Fields{"observer": id, "name": req.Name, "controller": ctl}).Info("observer joined")
	req.Resp <- JoinResponse{ObserverID: id, Controller: ctl, Welcome: welcome}
}

func (s *Session) handleLeave(id string) {
	if _, ok := s.observers[id]; !ok && id != s.controller {
		return
	}
	delete(s.observers, id)
	if id == s.controller {
		s.controller = ""
		s.held = world.Input{}
	}
	s.log.WithField("observer", id).Info("observer left")
}

// Metrics returns the last snapshot stored by the loop.
func (s *Session) Metrics() Metrics {
	v := s.metrics.Load()
	if v == nil {
		return Metrics{}
	}
	m, _ := v.(Metrics)
	return m
}

func (s *Session) storeMetrics(step time.Duration, digest string) {
	w := s.w
	m := Metrics{
		RunID:         s.runID,
		Seed:          w.Seed(),
		Tick:          w.CurrentTick(),
		State:         w.State().String(),
		TopRow:        w.TopRow(),
		BottomRow:     w.BottomRow(),
		RowsGenerated: w.GeneratedRows(),
		Tiles:         w.Tiles().Len(),
		Pending:       w.PendingLighting(),
		LightSources:  len(w.LightSources()),
		Projectiles:   len(w.Projectiles()),
		Observers:     len(s.observers),
		HUD:           s.hud.Snapshot(),
		CameraY:       s.cam.Y,
		StepMS:        float64(step.Microseconds()) / 1000,
		Digest:        digest,
	}
	s.metrics.Store(m)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
