package main

import (
	"fmt"
	"path/filepath"

	"tealeaf.ai/internal/persistence/indexdb"
	"tealeaf.ai/internal/persistence/snapshot"
	"tealeaf.ai/internal/sim/catalogs"
	"tealeaf.ai/internal/sim/tuning"
	"tealeaf.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.AuditSink
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
}

func openRuntimeIndex(worldDir, backend string) (runtimeIndex, error) {
	switch backend {
	case "", "sqlite":
		return indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
	case "none", "off", "disabled":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", backend)
	}
}
