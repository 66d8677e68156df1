package world

import (
	"fmt"
	"sort"

	"tealeaf.ai/internal/persistence/snapshot"
	"tealeaf.ai/internal/sim/brew/codec"
	"tealeaf.ai/internal/sim/brew/vessel"
	"tealeaf.ai/internal/sim/world/logic/ids"
)

func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	keys := make([]string, 0, len(w.vessels))
	for id := range w.vessels {
		keys = append(keys, id)
	}
	sort.Strings(keys)

	vessels := make([]snapshot.VesselV1, 0, len(keys))
	for _, id := range keys {
		_, x, y, z, _ := ids.ParseContainerID(id)
		vessels = append(vessels, snapshot.VesselV1{
			ID:    id,
			Pos:   [3]int{x, y, z},
			State: codec.Encode(w.vessels[id]),
		})
	}

	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: 1,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		Seed:     w.cfg.Seed,
		TickRate: w.cfg.TickRateHz,
		MaxLevel: w.cfg.MaxLevel,
		Vessels:  vessels,
	}
}

// ImportSnapshot replaces all vessels. It must be called before Run starts.
// Vessels whose state decodes to empty are dropped.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != 1 {
		return fmt.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}
	if s.Header.WorldID != "" && w.cfg.ID != "" && s.Header.WorldID != w.cfg.ID {
		return fmt.Errorf("snapshot world %q does not match %q", s.Header.WorldID, w.cfg.ID)
	}

	vessels := make(map[string]*vessel.Vessel, len(s.Vessels))
	for _, sv := range s.Vessels {
		v := codec.Decode(sv.State, w.cfg.MaxLevel)
		if v.Level() == 0 {
			w.log.Printf("snapshot: dropping empty or unreadable vessel %s", sv.ID)
			continue
		}
		vessels[ids.VesselID(w.block, sv.Pos)] = v
	}
	w.vessels = vessels
	w.tick.Store(s.Header.Tick + 1)
	return nil
}
