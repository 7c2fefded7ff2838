package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crystalmaster.io/internal/logging"
	persistlog "crystalmaster.io/internal/persistence/log"
	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/session"
	"crystalmaster.io/internal/sim/tuning"
	"crystalmaster.io/internal/sim/world"
	"crystalmaster.io/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.Int64("seed", 0, "world seed, at least 4 digits (0 picks one)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite run index")
		autopilot  = flag.Bool("autopilot", false, "drive the player with the built-in autopilot")
		maxTicks   = flag.Uint64("max_ticks", 0, "stop after this many ticks (0 runs until the game ends)")
	)
	flag.Parse()

	logging.Init()
	logger := logging.For("server")

	reg, err := catalogs.Load(*configDir)
	if err != nil {
		logger.WithError(err).Fatal("load catalogs")
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WithError(err).Fatal("load tuning")
		}
		logger.WithField("path", tp).Warn("tuning not found; using defaults")
		tune = tuning.Defaults()
	}

	if *seed == 0 {
		*seed = pickSeed()
	}
	runID := uuid.NewString()
	logger = logger.WithFields(logrus.Fields{"run_id": runID, "seed": *seed})
	runDir := filepath.Join(*dataDir, "runs", runID)

	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.WithError(err).Fatal("open index backend")
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, reg, tune); err != nil {
			logger.WithError(err).Warn("index backend: upsert catalogs")
		}
	}

	tickLog := persistlog.NewTickLogger(runDir)
	defer tickLog.Close()
	sinks := []session.Sink{tickLog}
	if idx != nil {
		sinks = append(sinks, idx)
	}

	sess, err := session.New(session.Config{
		World:     world.Config{Seed: *seed, Tuning: tune},
		Registry:  reg,
		RunID:     runID,
		Autopilot: *autopilot,
		MaxTicks:  *maxTicks,
		Logger:    logging.For("session"),
		Sinks:     sinks,
	})
	if err != nil {
		logger.WithError(err).Fatal("session")
	}

	ctx, cancel := signalContext()
	defer cancel()

	a := &app{
		sess:  sess,
		idx:   idx,
		ws:    ws.NewServer(sess, tune.ObserverMaxQueue, logging.For("ws")).Handler(),
		log:   logging.For("http"),
		admin: envBool("CM_ENABLE_ADMIN_HTTP", true),
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 5 * time.Second,
	}

	simDone := make(chan struct{})
	go func() {
		defer close(simDone)
		if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Warn("session stopped")
		}
		// Refuse new observers once the run is over.
		sess.Stop()
	}()

	go func() {
		select {
		case <-ctx.Done():
		case <-simDone:
		}
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.WithField("addr", *addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("ListenAndServe")
	}
	cancel()
	<-simDone

	m := sess.Metrics()
	logger.WithFields(logrus.Fields{
		"tick":     m.Tick,
		"state":    m.State,
		"digest":   m.Digest,
		"run_dir":  runDir,
		"crystals": m.HUD.EnergyCrystals,
		"gold":     m.HUD.Gold,
	}).Info("shutdown")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// pickSeed returns a ten-digit seed from the clock.
func pickSeed() int64 {
	return 1_000_000_000 + time.Now().UnixNano()%9_000_000_000
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
