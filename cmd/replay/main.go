package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	persistlog "crystalmaster.io/internal/persistence/log"
	"crystalmaster.io/internal/sim/catalogs"
	"crystalmaster.io/internal/sim/session"
)

func main() {
	var (
		runDir    = flag.String("run", "", "run directory containing ticks/ticks-*.jsonl.zst")
		configDir = flag.String("configs", "./configs", "config directory")
		toTick    = flag.Uint64("to_tick", 0, "stop after this tick (inclusive, optional)")
	)
	flag.Parse()

	if *runDir == "" {
		fmt.Fprintln(os.Stderr, "missing -run")
		os.Exit(2)
	}
	reg, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}

	res, err := replay(*runDir, reg, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks last_tick=%d state=%s digest=%s\n", res.Ticks, res.LastTick, res.State, res.LastDigest)
}

func replay(runDir string, reg *catalogs.Registry, toTick uint64) (session.ReplayResult, error) {
	r, err := persistlog.OpenTickLog(runDir)
	if err != nil {
		return session.ReplayResult{}, err
	}
	defer r.Close()

	h := r.Header()
	fmt.Printf("run=%s seed=%d autopilot=%v started=%s\n", h.RunID, h.Seed, h.Autopilot, h.StartedAt.Format("2006-01-02T15:04:05Z07:00"))

	rp, err := session.NewReplayer(h, reg)
	if err != nil {
		return session.ReplayResult{}, err
	}
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rp.Result(), err
		}
		if err := rp.Apply(e); err != nil {
			return rp.Result(), err
		}
		if toTick != 0 && e.Tick >= toTick {
			break
		}
	}
	return rp.Result(), nil
}
