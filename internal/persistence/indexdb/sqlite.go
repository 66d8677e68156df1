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
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"tealeaf.ai/internal/persistence/snapshot"
	"tealeaf.ai/internal/sim/catalogs"
	"tealeaf.ai/internal/sim/tuning"
	"tealeaf.ai/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index over the audit trail and snapshots.
// Writes are queued and applied by a single goroutine; the JSONL audit files stay
// the source of truth, so a full queue drops rows instead of stalling the world.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqSnapshot
	reqFlush
)

type req struct {
	kind reqKind

	audit    world.AuditEntry
	snapshot snapshotRow
	done     chan struct{}
}

type snapshotRow struct {
	Tick    uint64
	Path    string
	WorldID string
	Seed    int64
	Vessels int
	Fill    int
}

// Interaction is one indexed audit row.
type Interaction struct {
	Tick   uint64
	Seq    int
	Actor  string
	Vessel string
	Pos    [3]int
	Item   string
	Result string
	Level  int
	Reason string
}

// SnapshotInfo describes one recorded snapshot file.
type SnapshotInfo struct {
	Tick    uint64
	Path    string
	WorldID string
	Seed    int64
	Vessels int
	Fill    int
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropAuditTotal    uint64
	DropSnapshotTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
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

	s := &SQLiteIndex{db: db, ch: make(chan req, queue)}
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
		`CREATE TABLE IF NOT EXISTS interactions (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			vessel TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			item TEXT NOT NULL,
			result TEXT NOT NULL,
			level INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_vessel_tick ON interactions(vessel, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_actor_tick ON interactions(actor, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			world_id TEXT NOT NULL,
			seed INTEGER NOT NULL,
			vessels INTEGER NOT NULL,
			fill INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// WriteAudit queues one interaction row. It never blocks the caller.
func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:    snap.Header.Tick,
		Path:    path,
		WorldID: snap.Header.WorldID,
		Seed:    snap.Seed,
		Vessels: len(snap.Vessels),
	}
	for _, v := range snap.Vessels {
		if lvl, ok := v.State["level"].(int); ok {
			r.Fill += lvl
		}
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// Flush waits until every row queued before the call is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertCatalogs stores the catalogs and tuning the server started with.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
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
	readRaw := func(name, file, digest string) {
		if configDir == "" {
			return
		}
		if b, err := os.ReadFile(filepath.Join(configDir, file)); err == nil {
			rows = append(rows, kv{name: name, digest: digest, json: b})
		}
	}
	readRaw("items_defs", "items.json", cats.Items.DefsDigest)
	readRaw("colours", "colours.json", cats.Colours.Digest)
	readRaw("brew", "brew.json", cats.Brew.Digest)
	if b, _ := json.Marshal(cats.Items.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "items_palette", digest: cats.Items.PaletteDigest, json: b})
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

// CatalogDigest returns the stored digest for a catalog name, or "" when absent.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name = ?`, name).Scan(&d)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return d, err
}

type InteractionFilter struct {
	Vessel   string
	Actor    string
	FromTick uint64
	Limit    int
}

// Interactions lists indexed rows in (tick, seq) order.
func (s *SQLiteIndex) Interactions(ctx context.Context, f InteractionFilter) ([]Interaction, error) {
	where := []string{"tick >= ?"}
	args := []any{int64(f.FromTick)}
	if f.Vessel != "" {
		where = append(where, "vessel = ?")
		args = append(args, f.Vessel)
	}
	if f.Actor != "" {
		where = append(where, "actor = ?")
		args = append(args, f.Actor)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	q := `SELECT tick,seq,actor,vessel,x,y,z,item,result,level,COALESCE(reason,'') FROM interactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY tick, seq LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var it Interaction
		var tick int64
		if err := rows.Scan(&tick, &it.Seq, &it.Actor, &it.Vessel, &it.Pos[0], &it.Pos[1], &it.Pos[2],
			&it.Item, &it.Result, &it.Level, &it.Reason); err != nil {
			return nil, err
		}
		it.Tick = uint64(tick)
		out = append(out, it)
	}
	return out, rows.Err()
}

// Snapshots lists recorded snapshots, newest first.
func (s *SQLiteIndex) Snapshots(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick,path,world_id,seed,vessels,fill FROM snapshots ORDER BY tick DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var si SnapshotInfo
		var tick int64
		if err := rows.Scan(&tick, &si.Path, &si.WorldID, &si.Seed, &si.Vessels, &si.Fill); err != nil {
			return nil, err
		}
		si.Tick = uint64(tick)
		out = append(out, si)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertInteraction, _ := s.db.Prepare(`INSERT OR REPLACE INTO interactions(tick,seq,actor,vessel,x,y,z,item,result,level,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,world_id,seed,vessels,fill) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertInteraction != nil {
			_ = insertInteraction.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 1000
		commitMaxWait = 2 * time.Second

		lastTick uint64
		seq      int
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

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAudit:
			a := r.audit
			if a.Tick != lastTick {
				lastTick = a.Tick
				seq = 0
			}
			raw, _ := json.Marshal(a)
			if insertInteraction != nil {
				if _, err := tx.Stmt(insertInteraction).Exec(
					int64(a.Tick), seq, a.Actor, a.Vessel,
					a.Pos[0], a.Pos[1], a.Pos[2],
					a.Item, a.Result, a.Level, a.Reason, string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			seq++

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					int64(sn.Tick), sn.Path, sn.WorldID, sn.Seed, sn.Vessels, sn.Fill,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
