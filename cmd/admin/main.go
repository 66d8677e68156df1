package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tealeaf.ai/internal/i18n"
	persistlog "tealeaf.ai/internal/persistence/log"
	"tealeaf.ai/internal/persistence/snapshot"
	"tealeaf.ai/internal/protocol"
	"tealeaf.ai/internal/sim/catalogs"
	"tealeaf.ai/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "vessels":
			vesselsCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "clear":
			clearCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			remoteCmd("state", os.Args[2:])
			return
		case "snapshot":
			remoteCmd("snapshot", os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

// vesselsCmd loads a snapshot into an offline world and prints every station as a client would see it.
func vesselsCmd(args []string) {
	fs := flag.NewFlagSet("vessels", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	configDir := fs.String("configs", "./configs", "config directory")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	locale := fs.String("locale", i18n.BaseLocale, "label locale")
	_ = fs.Parse(args)

	snap, snapFile := mustLoadSnapshot(*dataDir, *worldID, *snapPath)
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load locales:", err)
		os.Exit(1)
	}

	w, err := world.New(world.WorldConfig{ID: snap.Header.WorldID, TickRateHz: snap.TickRate, MaxLevel: snap.MaxLevel, Seed: snap.Seed}, world.Deps{
		Catalogs:   cats,
		Translator: bundle.Printer(*locale),
		Logger:     log.New(&bytes.Buffer{}, "", 0),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}
	if err := w.ImportSnapshot(snap); err != nil {
		fmt.Fprintln(os.Stderr, "import snapshot:", err)
		os.Exit(1)
	}

	resp := make(chan protocol.VesselMsg, len(snap.Vessels))
	views := make([]world.ViewRequest, 0, len(snap.Vessels))
	for _, v := range snap.Vessels {
		views = append(views, world.ViewRequest{Msg: protocol.ViewMsg{RequestID: v.ID, Pos: v.Pos}, Resp: resp})
	}
	w.StepOnce(nil, views)
	close(resp)

	fmt.Printf("snapshot=%s world=%s tick=%d vessels=%d\n", filepath.Base(snapFile), snap.Header.WorldID, snap.Header.Tick, len(snap.Vessels))
	for v := range resp {
		printJSON(v)
	}
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	aabb := fs.String("aabb", "", "AABB filter: x1,y1,z1:x2,y2,z2 (optional)")
	sinceTick := fs.Uint64("since_tick", 0, "first tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "last tick (inclusive, 0 = no limit)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	box, hasBox, err := parseOptionalAABB(*aabb)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -aabb:", err)
		os.Exit(2)
	}

	files, err := persistlog.AuditFiles(filepath.Join(*dataDir, "worlds", *worldID))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list audit:", err)
		os.Exit(1)
	}
	n := 0
	for _, f := range files {
		entries, err := persistlog.ReadAudit(f)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read audit:", err)
			os.Exit(1)
		}
		for _, e := range entries {
			if e.Tick < *sinceTick || (*toTick > 0 && e.Tick > *toTick) {
				continue
			}
			if hasBox && !box.contains(e.Pos) {
				continue
			}
			printJSON(e)
			n++
		}
	}
	fmt.Fprintf(os.Stderr, "%d entries from %d files\n", n, len(files))
}

// clearCmd writes a copy of a snapshot with every vessel inside the box removed.
func clearCmd(args []string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	aabb := fs.String("aabb", "", "AABB filter: x1,y1,z1:x2,y2,z2 (required)")
	outPath := fs.String("out", "", "output snapshot path (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*aabb) == "" {
		fmt.Fprintln(os.Stderr, "missing -aabb")
		os.Exit(2)
	}
	box, err := parseAABB(*aabb)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -aabb:", err)
		os.Exit(2)
	}
	snap, snapFile := mustLoadSnapshot(*dataDir, *worldID, *snapPath)

	removed := clearVessels(&snap, box)

	if strings.TrimSpace(*outPath) == "" {
		*outPath = filepath.Join(filepath.Dir(snapFile), fmt.Sprintf("%d.cleared.snap.zst", snap.Header.Tick))
	}
	if err := snapshot.WriteSnapshot(*outPath, snap); err != nil {
		fmt.Fprintln(os.Stderr, "write snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("clear ok: snapshot=%s tick=%d aabb=%s removed=%d kept=%d out=%s\n",
		filepath.Base(snapFile), snap.Header.Tick, *aabb, removed, len(snap.Vessels), *outPath)
}

func clearVessels(snap *snapshot.SnapshotV1, box aabbBox) int {
	kept := snap.Vessels[:0]
	removed := 0
	for _, v := range snap.Vessels {
		if box.contains(v.Pos) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	snap.Vessels = kept
	return removed
}

func mustLoadSnapshot(dataDir, worldID, path string) (snapshot.SnapshotV1, string) {
	p := strings.TrimSpace(path)
	if p == "" {
		if strings.TrimSpace(worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -snapshot")
			os.Exit(2)
		}
		var err error
		p, err = snapshot.Latest(filepath.Join(dataDir, "worlds", worldID, "snapshots"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "scan snapshots:", err)
			os.Exit(1)
		}
		if p == "" {
			fmt.Fprintln(os.Stderr, "no snapshot found; provide -snapshot or run server until it writes one")
			os.Exit(2)
		}
	}
	snap, err := snapshot.ReadSnapshot(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	return snap, p
}

type aabbBox struct{ min, max [3]int }

func (b aabbBox) contains(pos [3]int) bool {
	for i := 0; i < 3; i++ {
		if pos[i] < b.min[i] || pos[i] > b.max[i] {
			return false
		}
	}
	return true
}

func parseOptionalAABB(s string) (aabbBox, bool, error) {
	if strings.TrimSpace(s) == "" {
		return aabbBox{}, false, nil
	}
	b, err := parseAABB(s)
	return b, err == nil, err
}

func parseAABB(s string) (aabbBox, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return aabbBox{}, fmt.Errorf("expected x1,y1,z1:x2,y2,z2")
	}
	a, err := parseVec3(parts[0])
	if err != nil {
		return aabbBox{}, err
	}
	b, err := parseVec3(parts[1])
	if err != nil {
		return aabbBox{}, err
	}
	var box aabbBox
	for i := 0; i < 3; i++ {
		box.min[i], box.max[i] = min(a[i], b[i]), max(a[i], b[i])
	}
	return box, nil
}

func parseVec3(s string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected x,y,z")
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, err
		}
		out[i] = n
	}
	return out, nil
}
