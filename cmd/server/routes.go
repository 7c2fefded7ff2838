package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"crystalmaster.io/internal/persistence/indexdb"
	"crystalmaster.io/internal/sim/session"
)

type app struct {
	sess *session.Session
	idx  *indexdb.SQLiteIndex
	ws   http.HandlerFunc
	log  logrus.FieldLogger

	// Admin routes answer loopback clients only.
	admin bool
}

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(a.log))

	r.Get("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	r.Get("/metrics", a.metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", a.state)
		r.Get("/ws", a.ws)
	})
	if a.admin {
		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(loopbackOnly)
			r.Get("/runs", a.runs)
			r.Get("/runs/{runID}/events", a.runEvents)
		})
	}
	return r
}

func (a *app) state(rw http.ResponseWriter, r *http.Request) {
	resp := struct {
		session.Metrics
		Index *indexdb.Stats `json:"index,omitempty"`
	}{Metrics: a.sess.Metrics()}
	if a.idx != nil {
		st := a.idx.Stats()
		resp.Index = &st
	}
	respondJSON(rw, http.StatusOK, resp)
}

func (a *app) runs(rw http.ResponseWriter, r *http.Request) {
	if a.idx == nil {
		respondJSON(rw, http.StatusNotFound, map[string]string{"error": "index disabled"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := a.idx.Runs(r.Context(), limit)
	if err != nil {
		respondJSON(rw, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respondJSON(rw, http.StatusOK, runs)
}

func (a *app) runEvents(rw http.ResponseWriter, r *http.Request) {
	if a.idx == nil {
		respondJSON(rw, http.StatusNotFound, map[string]string{"error": "index disabled"})
		return
	}
	evs, err := a.idx.Events(r.Context(), chi.URLParam(r, "runID"), r.URL.Query().Get("kind"))
	if err != nil {
		respondJSON(rw, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respondJSON(rw, http.StatusOK, evs)
}

// metrics writes the minimal Prometheus exposition format.
func (a *app) metrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	m := a.sess.Metrics()
	gauge := func(name, help string, v any) {
		fmt.Fprintf(rw, "# HELP crystalmaster_%s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE crystalmaster_%s gauge\n", name)
		fmt.Fprintf(rw, "crystalmaster_%s{run=%q} %v\n", name, m.RunID, v)
	}
	gauge("tick", "Current simulation tick.", m.Tick)
	gauge("rows_generated", "Rows generated so far.", m.RowsGenerated)
	gauge("tiles", "Resident tile instances across all layers.", m.Tiles)
	gauge("pending_lighting", "Tiles waiting for a lighting pass.", m.Pending)
	gauge("light_sources", "Registered light sources.", m.LightSources)
	gauge("projectiles", "Projectiles in flight.", m.Projectiles)
	gauge("observers", "Connected observers.", m.Observers)
	gauge("step_ms", "Last tick step duration in milliseconds.", fmt.Sprintf("%.3f", m.StepMS))
	gauge("hp", "Player hit points.", m.HUD.HP)
	gauge("gold", "Gold collected.", m.HUD.Gold)
	gauge("energy_crystals", "Energy crystals collected.", m.HUD.EnergyCrystals)

	if a.idx != nil {
		st := a.idx.Stats()
		fmt.Fprintf(rw, "# HELP crystalmaster_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(rw, "# TYPE crystalmaster_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "crystalmaster_index_queue_depth %d\n", st.QueueDepth)
		fmt.Fprintf(rw, "# HELP crystalmaster_index_dropped_total Index writes dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE crystalmaster_index_dropped_total counter\n")
		fmt.Fprintf(rw, "crystalmaster_index_dropped_total %d\n", st.DropHeaderTotal+st.DropTickTotal)
	}
}

func respondJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
				"status": ww.Status(),
				"dur_ms": time.Since(start).Milliseconds(),
			}).Debug("http")
		})
	}
}

func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(rw, r)
	})
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
