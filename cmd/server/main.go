package main

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tealeaf.ai/internal/i18n"
	"tealeaf.ai/internal/metrics"
	persistlog "tealeaf.ai/internal/persistence/log"
	"tealeaf.ai/internal/persistence/snapshot"
	"tealeaf.ai/internal/protocol"
	"tealeaf.ai/internal/sim/catalogs"
	"tealeaf.ai/internal/sim/tuning"
	"tealeaf.ai/internal/sim/world"
	"tealeaf.ai/internal/transport/ws"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	cats, err := catalogs.Load(cfg.ConfigDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	worldDir := cfg.worldDir()
	_ = os.MkdirAll(worldDir, 0o755)
	snapDir := filepath.Join(worldDir, "snapshots")

	snapshotToLoad := strings.TrimSpace(cfg.SnapshotPath)
	if snapshotToLoad == "" && cfg.LoadLatest {
		if snapshotToLoad, err = snapshot.Latest(snapDir); err != nil {
			logger.Fatalf("scan snapshots: %v", err)
		}
	}

	tune, err := tuning.Load(cfg.TuningPath)
	if err != nil {
		if snapshotToLoad == "" || !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", cfg.TuningPath)
		tune = tuning.Defaults()
	}
	if tune.ProtocolVersion != protocol.Version {
		logger.Fatalf("tuning protocol_version=%s, server speaks %s", tune.ProtocolVersion, protocol.Version)
	}

	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		logger.Fatalf("load locales: %v", err)
	}
	locale := cfg.Locale
	if locale == "" {
		locale = tune.Locale
	}
	printer := bundle.Printer(locale)
	logger.Printf("labels rendered in %s", printer.Locale())

	idx, err := openRuntimeIndex(worldDir, cfg.IndexBackend)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cfg.ConfigDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	auditLog := persistlog.NewAuditLogger(worldDir)
	defer auditLog.Close()
	sinks := []world.AuditSink{auditLog}
	if idx != nil {
		sinks = append(sinks, idx)
	}

	m := metrics.NewStation(cfg.WorldID)

	wcfg := world.WorldConfig{
		ID:                 cfg.WorldID,
		TickRateHz:         tune.TickRateHz,
		MaxLevel:           tune.MaxLevel,
		Seed:               tune.Seed,
		SnapshotEveryTicks: tune.SnapshotEveryTicks,
	}
	var snap snapshot.SnapshotV1
	if snapshotToLoad != "" {
		if snap, err = snapshot.ReadSnapshot(snapshotToLoad); err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != cfg.WorldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", cfg.WorldID, snap.Header.WorldID)
		}
		// The snapshot carries the rules the stored vessels were brewed under.
		wcfg.TickRateHz, wcfg.MaxLevel, wcfg.Seed = snap.TickRate, snap.MaxLevel, snap.Seed
	}

	w, err := world.New(wcfg, world.Deps{
		Catalogs:   cats,
		Translator: printer,
		Audit:      sinks,
		Metrics:    m,
		Logger:     log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds),
	})
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	if snapshotToLoad != "" {
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-snapCh:
				path := snapshot.PathForTick(snapDir, s.Header.Tick)
				if err := snapshot.WriteSnapshot(path, s); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, s)
				}
			}
		}
	}()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	validator, err := protocol.NewValidator()
	if err != nil {
		logger.Fatalf("protocol schemas: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())
	if cfg.EnableAdmin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]any{
				"world_id": w.ID(),
				"tick":     w.CurrentTick(),
				"locale":   printer.Locale(),
			})
		})
		mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			rc, err := w.RequestSnapshot(ctx2)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": rc.Tick, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": rc.Tick, "vessels": rc.Vessels, "ingredients": rc.Ingredients})
		})
	} else {
		logger.Printf("admin endpoints disabled (TEALEAF_ENABLE_ADMIN_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(w, validator, log.New(os.Stdout, "[ws] ", log.LstdFlags)).Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s world=%s", cfg.Addr, cfg.WorldID)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
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
