package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tealeaf.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	vessel := fs.String("vessel", "", "vessel id filter (interactions)")
	actor := fs.String("actor", "", "actor id filter (interactions)")
	since := fs.Uint64("since_tick", 0, "first tick (interactions)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()
	ctx := context.Background()

	switch q {
	case "snapshots":
		rows, err := idx.Snapshots(ctx, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}
	case "interactions":
		rows, err := idx.Interactions(ctx, indexdb.InteractionFilter{Vessel: *vessel, Actor: *actor, FromTick: *since, Limit: *limit})
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}
	case "catalogs":
		for _, name := range []string{"items_defs", "items_palette", "colours", "brew", "tuning"} {
			d, err := idx.CatalogDigest(ctx, name)
			if err != nil {
				fmt.Fprintln(os.Stderr, "query:", err)
				os.Exit(1)
			}
			printJSON(map[string]string{"name": name, "digest": d})
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown query (want snapshots|interactions|catalogs):", q)
		os.Exit(2)
	}
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
