package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/session"
	"crystalmaster.io/internal/sim/tuning"
)

// SQLiteIndex is a queryable read model of recorded runs. Writes are queued
// and applied by one goroutine in batched transactions; the tick logs remain
// the source of truth.
type SQLiteIndex struct {
	db *sql.DB
	// ro serves queries so they never wait on the writer's open transaction.
	ro *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	// Set by WriteHeader; read by WriteTick on the same goroutine.
	runID string

	dropHeaderTotal atomic.Uint64
	dropTickTotal   atomic.Uint64
}

type reqKind int

const (
	reqHeader reqKind = iota + 1
	reqTick
)

type req struct {
	kind  reqKind
	runID string

	header session.RunHeader
	tick   session.TickLogEntry
}

type Stats struct {
	QueueDepth      int    `json:"queue_depth"`
	QueueCapacity   int    `json:"queue_capacity"`
	DropHeaderTotal uint64 `json:"drop_header_total"`
	DropTickTotal   uint64 `json:"drop_tick_total"`
}

type RunRow struct {
	RunID         string `json:"run_id"`
	Seed          int64  `json:"seed"`
	CatalogDigest string `json:"catalog_digest"`
	Autopilot     bool   `json:"autopilot"`
	StartedAt     string `json:"started_at"`
	LastTick      uint64 `json:"last_tick"`
	State         string `json:"state"`
	Digest        string `json:"digest"`
}

type EventRow struct {
	Tick   uint64 `json:"tick"`
	Kind   string `json:"kind"`
	Amount int    `json:"amount"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	ro, err := sql.Open("sqlite", path)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	ro.SetMaxOpenConns(4)
	if _, err := ro.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		_ = ro.Close()
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ro: ro,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			catalog_digest TEXT NOT NULL,
			autopilot INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			tuning_json TEXT NOT NULL,
			last_tick INTEGER NOT NULL DEFAULT 0,
			state TEXT NOT NULL DEFAULT 'PLAYING',
			digest TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			digest TEXT NOT NULL,
			state TEXT NOT NULL,
			events INTEGER NOT NULL,
			input_json TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			amount INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(run_id, kind, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
		if rerr := s.ro.Close(); err == nil {
			err = rerr
		}
	})
	return err
}

func (s *SQLiteIndex) WriteHeader(h session.RunHeader) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.runID = h.RunID
	select {
	case s.ch <- req{kind: reqHeader, runID: h.RunID, header: h}:
	default:
		s.dropHeaderTotal.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteTick(e session.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, runID: s.runID, tick: e}:
	default:
		// Drop if the indexer falls behind.
		s.dropTickTotal.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:      len(s.ch),
		QueueCapacity:   cap(s.ch),
		DropHeaderTotal: s.dropHeaderTotal.Load(),
		DropTickTotal:   s.dropTickTotal.Load(),
	}
}

// UpsertCatalogs records the registry and tuning a server started with.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, reg *catalogs.Registry, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" && reg != nil {
		if b, err := os.ReadFile(filepath.Join(configDir, "tiles.json")); err == nil {
			rows = append(rows, kv{name: "tiles", digest: reg.Digest, json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) Runs(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.ro.QueryContext(ctx, `SELECT run_id,seed,catalog_digest,autopilot,started_at,last_tick,state,digest
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRow
	for rows.Next() {
		var r RunRow
		var auto int
		var last int64
		if err := rows.Scan(&r.RunID, &r.Seed, &r.CatalogDigest, &auto, &r.StartedAt, &last, &r.State, &r.Digest); err != nil {
			return nil, err
		}
		r.Autopilot = auto != 0
		r.LastTick = uint64(last)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Events lists a run's events in tick order, optionally filtered by kind.
func (s *SQLiteIndex) Events(ctx context.Context, runID, kind string) ([]EventRow, error) {
	q := `SELECT tick,kind,amount FROM events WHERE run_id=?`
	args := []any{runID}
	if kind != "" {
		q += ` AND kind=?`
		args = append(args, kind)
	}
	q += ` ORDER BY tick, seq`
	rows, err := s.ro.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventRow
	for rows.Next() {
		var r EventRow
		var tick int64
		if err := rows.Scan(&tick, &r.Kind, &r.Amount); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,seed,catalog_digest,autopilot,started_at,tuning_json) VALUES(?,?,?,?,?,?)`)
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(run_id,tick,digest,state,events,input_json) VALUES(?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(run_id,tick,seq,kind,amount) VALUES(?,?,?,?,?)`)
	updateRun, _ := s.db.Prepare(`UPDATE runs SET last_tick=?, state=?, digest=? WHERE run_id=?`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, insertTick, insertEvent, updateRun} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	handle := func(r req) {
		begin()
		if tx == nil {
			return
		}
		switch r.kind {
		case reqHeader:
			h := r.header
			tj, _ := json.Marshal(h.Tuning)
			auto := 0
			if h.Autopilot {
				auto = 1
			}
			exec(insertRun, h.RunID, h.Seed, h.CatalogDigest, auto, h.StartedAt.UTC().Format(time.RFC3339Nano), string(tj))
			// Headers start a run; make them visible right away.
			commit()
			return

		case reqTick:
			e := r.tick
			in, _ := json.Marshal(e.Input)
			if !exec(insertTick, r.runID, int64(e.Tick), e.Digest, e.State, len(e.Events), string(in)) {
				return
			}
			for i, ev := range e.Events {
				if !exec(insertEvent, r.runID, int64(e.Tick), i, string(ev.Kind), ev.Amount) {
					return
				}
			}
			exec(updateRun, int64(e.Tick), e.State, e.Digest, r.runID)
			if e.State != "PLAYING" {
				commit()
				return
			}
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	idle := time.NewTicker(commitMaxWait)
	defer idle.Stop()
	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			handle(r)
		case <-idle.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		}
	}
}
