package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// serverConfig is read from the environment first; flags given on the command line win.
type serverConfig struct {
	Addr         string `env:"TEALEAF_ADDR"          envDefault:":8080"`
	WorldID      string `env:"TEALEAF_WORLD"         envDefault:"world_1"`
	ConfigDir    string `env:"TEALEAF_CONFIGS"       envDefault:"./configs"`
	DataDir      string `env:"TEALEAF_DATA"          envDefault:"./data"`
	TuningPath   string `env:"TEALEAF_TUNING"`
	Locale       string `env:"TEALEAF_LOCALE"`
	IndexBackend string `env:"TEALEAF_INDEX_BACKEND" envDefault:"sqlite"`
	LoadLatest   bool   `env:"TEALEAF_LOAD_LATEST"   envDefault:"true"`
	SnapshotPath string `env:"TEALEAF_SNAPSHOT"`
	EnableAdmin  bool   `env:"TEALEAF_ENABLE_ADMIN_HTTP" envDefault:"true"`
}

func loadConfig(args []string) (serverConfig, error) {
	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "http listen address")
	fs.StringVar(&cfg.WorldID, "world", cfg.WorldID, "world id")
	fs.StringVar(&cfg.ConfigDir, "configs", cfg.ConfigDir, "config directory")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "runtime data directory")
	fs.StringVar(&cfg.TuningPath, "tuning", cfg.TuningPath, "path to tuning.yaml (default: <configs>/tuning.yaml)")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "label locale (default: tuning locale)")
	fs.StringVar(&cfg.IndexBackend, "index", cfg.IndexBackend, "index backend: sqlite|none")
	fs.BoolVar(&cfg.LoadLatest, "load_latest_snapshot", cfg.LoadLatest, "resume from the latest snapshot in the data dir")
	fs.StringVar(&cfg.SnapshotPath, "snapshot", cfg.SnapshotPath, "snapshot to load (overrides -load_latest_snapshot)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.WorldID = strings.TrimSpace(cfg.WorldID)
	if cfg.WorldID == "" {
		return cfg, fmt.Errorf("empty world id")
	}
	if strings.TrimSpace(cfg.TuningPath) == "" {
		cfg.TuningPath = filepath.Join(cfg.ConfigDir, "tuning.yaml")
	}
	cfg.IndexBackend = strings.ToLower(strings.TrimSpace(cfg.IndexBackend))
	return cfg, nil
}

func (c serverConfig) worldDir() string { return filepath.Join(c.DataDir, "worlds", c.WorldID) }
