package world

import (
	"context"
	"time"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingInteractions []InteractEnvelope
	var pendingViews []ViewRequest
	var pendingAdmin []adminSnapshotReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case env := <-w.inbox:
			pendingInteractions = append(pendingInteractions, env)
		case req := <-w.views:
			pendingViews = append(pendingViews, req)
		case <-ticker.C:
			w.step(pendingInteractions, pendingViews)
			w.handleAdminSnapshotRequests(pendingAdmin)
			pendingInteractions = pendingInteractions[:0]
			pendingViews = pendingViews[:0]
			pendingAdmin = pendingAdmin[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering semantics as the server.
// It is primarily intended for deterministic replays/tests.
func (w *World) StepOnce(interactions []InteractEnvelope, views []ViewRequest) uint64 {
	tick := w.tick.Load()
	w.step(interactions, views)
	return tick
}

// step applies interactions in arrival order, then answers views so they observe this tick's state.
func (w *World) step(interactions []InteractEnvelope, views []ViewRequest) {
	nowTick := w.tick.Load()

	for _, env := range interactions {
		res := w.applyInteraction(nowTick, env.ActorID, env.Msg)
		if env.Resp != nil {
			select {
			case env.Resp <- res:
			default:
			}
		}
	}
	for _, req := range views {
		msg := w.view(nowTick, req.Msg)
		if req.Resp != nil {
			select {
			case req.Resp <- msg:
			default:
			}
		}
	}

	w.metrics.Vessels(len(w.vessels))
	w.metrics.Tick()

	if every := uint64(w.cfg.SnapshotEveryTicks); every > 0 && nowTick > 0 && nowTick%every == 0 && w.snapshotSink != nil {
		select {
		case w.snapshotSink <- w.ExportSnapshot(nowTick):
		default:
			w.log.Printf("snapshot sink busy; skipping tick %d", nowTick)
		}
	}

	w.tick.Add(1)
}
