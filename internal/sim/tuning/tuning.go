package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int    `yaml:"tick_rate_hz"`
	MaxLevel           int    `yaml:"max_level"`
	Seed               int64  `yaml:"seed"`
	Locale             string `yaml:"locale"`
	SnapshotEveryTicks int    `yaml:"snapshot_every_ticks"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         20,
		MaxLevel:           3,
		Seed:               1337,
		Locale:             "en-US",
		SnapshotEveryTicks: 6000,
	}
}

// Load overlays the file on Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.TickRateHz <= 0 {
		return t, fmt.Errorf("tuning.yaml: tick_rate_hz must be positive")
	}
	if t.MaxLevel <= 0 {
		return t, fmt.Errorf("tuning.yaml: max_level must be positive")
	}
	return t, nil
}
