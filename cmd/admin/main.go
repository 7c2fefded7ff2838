package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"crystalmaster.io/internal/persistence/indexdb"
	persistlog "crystalmaster.io/internal/persistence/log"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "events":
			eventsCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints every recorded run directory with its header.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	lines, err := listRuns(filepath.Join(*dataDir, "runs"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, l := range lines {
		fmt.Println(l)
	}
}

func listRuns(base string) ([]string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		r, err := persistlog.OpenTickLog(filepath.Join(base, e.Name()))
		if err != nil {
			out = append(out, fmt.Sprintf("%s\t(unreadable: %v)", e.Name(), err))
			continue
		}
		h := r.Header()
		_ = r.Close()
		out = append(out, fmt.Sprintf("%s\tseed=%d\tautopilot=%v\tstarted=%s", h.RunID, h.Seed, h.Autopilot, h.StartedAt.Format("2006-01-02T15:04:05Z07:00")))
	}
	sort.Strings(out)
	return out, nil
}

// dbCmd queries the sqlite run index directly.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	runID := fs.String("run", "", "run id (lists events when set)")
	kind := fs.String("kind", "", "event kind filter")
	limit := fs.Int("limit", 20, "max runs")
	_ = fs.Parse(args)

	idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "runs.sqlite"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx := context.Background()
	var v any
	if *runID != "" {
		v, err = idx.Events(ctx, *runID, *kind)
	} else {
		v, err = idx.Runs(ctx, *limit)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
