package world

import (
	"context"
	"errors"
)

// SnapshotReceipt describes a snapshot handed to the writer on an admin request.
type SnapshotReceipt struct {
	Tick        uint64 `json:"tick"`
	Vessels     int    `json:"vessels"`
	Ingredients int    `json:"ingredients"`
}

type adminSnapshotReq struct {
	Resp chan adminSnapshotResp
}

type adminSnapshotResp struct {
	Receipt SnapshotReceipt
	Err     string
}

var errAdminUnavailable = errors.New("admin snapshot not available")

// RequestSnapshot asks the world loop to export the stations and queue them for the
// snapshot writer. Safe to call from HTTP handlers.
func (w *World) RequestSnapshot(ctx context.Context) (SnapshotReceipt, error) {
	if w == nil || w.admin == nil {
		return SnapshotReceipt{}, errAdminUnavailable
	}
	resp := make(chan adminSnapshotResp, 1)

	select {
	case w.admin <- adminSnapshotReq{Resp: resp}:
	case <-ctx.Done():
		return SnapshotReceipt{}, ctx.Err()
	}

	select {
	case r := <-resp:
		if r.Err != "" {
			return r.Receipt, errors.New(r.Err)
		}
		return r.Receipt, nil
	case <-ctx.Done():
		return SnapshotReceipt{}, ctx.Err()
	}
}

// handleAdminSnapshotRequests serves every pending request with one export; the
// snapshot is labelled with the last completed tick.
func (w *World) handleAdminSnapshotRequests(reqs []adminSnapshotReq) {
	if len(reqs) == 0 {
		return
	}
	var rc SnapshotReceipt
	if cur := w.tick.Load(); cur > 0 {
		rc.Tick = cur - 1
	}

	errStr := ""
	if w.snapshotSink == nil {
		errStr = "snapshot sink not configured"
	} else {
		snap := w.ExportSnapshot(rc.Tick)
		select {
		case w.snapshotSink <- snap:
			rc.Vessels = len(snap.Vessels)
			for _, v := range w.vessels {
				rc.Ingredients += len(v.Records())
			}
		default:
			errStr = "snapshot writer busy"
		}
	}
	if errStr != "" {
		w.log.Printf("admin snapshot tick=%d: %s", rc.Tick, errStr)
	}

	for _, r := range reqs {
		if r.Resp != nil {
			r.Resp <- adminSnapshotResp{Receipt: rc, Err: errStr}
		}
	}
}
