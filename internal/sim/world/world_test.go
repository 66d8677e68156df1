package world

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"testing"
	"time"

	"tealeaf.ai/internal/i18n"
	"tealeaf.ai/internal/persistence/snapshot"
	"tealeaf.ai/internal/protocol"
	"tealeaf.ai/internal/sim/catalogs"
)

type memAudit struct{ entries []AuditEntry }

func (m *memAudit) WriteAudit(e AuditEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func newTestWorld(t *testing.T) (*World, *memAudit) {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		t.Fatalf("load locales: %v", err)
	}
	audit := &memAudit{}
	w, err := New(WorldConfig{ID: "w1", TickRateHz: 50, MaxLevel: 3, Seed: 1}, Deps{
		Catalogs:   cats,
		Translator: bundle.Printer("en-US"),
		Audit:      []AuditSink{audit},
		Logger:     log.New(&bytes.Buffer{}, "", 0),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w, audit
}

func intp(v int) *int { return &v }

var pos = [3]int{4, 64, -2}

func pour(item string, strength *int) protocol.InteractMsg {
	return protocol.InteractMsg{
		Type: protocol.TypeInteract, ProtocolVersion: protocol.Version, Pos: pos,
		Held: protocol.ItemStack{Item: "TEA_BOTTLE", Payload: &protocol.IngredientPayload{ID: item, Strength: strength}},
	}
}

func draw() protocol.InteractMsg {
	return protocol.InteractMsg{
		Type: protocol.TypeInteract, ProtocolVersion: protocol.Version, Pos: pos,
		Held: protocol.ItemStack{Item: "GLASS_BOTTLE"},
	}
}

func step(w *World, msgs ...protocol.InteractMsg) []protocol.ResultMsg {
	resp := make(chan protocol.ResultMsg, len(msgs))
	envs := make([]InteractEnvelope, 0, len(msgs))
	for _, m := range msgs {
		envs = append(envs, InteractEnvelope{ActorID: "A1", Msg: m, Resp: resp})
	}
	w.StepOnce(envs, nil)
	out := make([]protocol.ResultMsg, 0, len(msgs))
	for range msgs {
		out = append(out, <-resp)
	}
	return out
}

func viewAt(w *World) protocol.VesselMsg {
	resp := make(chan protocol.VesselMsg, 1)
	w.StepOnce(nil, []ViewRequest{{Msg: protocol.ViewMsg{Pos: pos}, Resp: resp}})
	return <-resp
}

func TestPourCreatesVesselAndView(t *testing.T) {
	w, audit := newTestWorld(t)

	res := step(w, pour("MINT", intp(6)), pour("MINT", intp(6)), pour("ROSE", nil))
	for i, r := range res {
		if r.Result != "APPLIED" || r.Level != i+1 {
			t.Fatalf("pour %d: %+v", i, r)
		}
		if r.Held == nil || r.Held.Item != "GLASS_BOTTLE" {
			t.Fatalf("pour %d should hand back a glass bottle: %+v", i, r.Held)
		}
	}

	v := viewAt(w)
	if v.State != "FULL" || v.Level != 3 {
		t.Fatalf("unexpected view state: %+v", v)
	}
	if v.Dominant == nil || v.Dominant.ID != "MINT" {
		t.Fatalf("expected MINT dominant, got %+v", v.Dominant)
	}
	// average strength (6+6+1)/3 = 4.33 -> round(2.17)-1 = 1
	if v.Tier != 1 || v.Label != "Bottle of Medium Mint Tea" {
		t.Fatalf("unexpected tier/label: %d %q", v.Tier, v.Label)
	}
	if v.Colour != "CLEAR" {
		t.Fatalf("untagged ingredients should keep the default colour, got %q", v.Colour)
	}
	if len(audit.entries) != 3 || audit.entries[0].Details["cues"] == nil {
		t.Fatalf("expected three audited pours with cues, got %+v", audit.entries)
	}
}

func TestRejectedInteractions(t *testing.T) {
	w, audit := newTestWorld(t)

	res := step(w, draw(), pour("DIRT", nil), protocol.InteractMsg{Pos: pos, Held: protocol.ItemStack{Item: "STICK"}})
	codes := []string{protocol.ErrEmpty, protocol.ErrNotIngredient, protocol.ErrNoBehaviour}
	for i, r := range res {
		if r.Result != "IGNORED" || r.Code != codes[i] || r.Held != nil || r.Level != 0 {
			t.Fatalf("interaction %d: %+v", i, r)
		}
	}
	if len(w.vessels) != 0 {
		t.Fatalf("ignored interactions must not create vessels")
	}
	if audit.entries[0].Reason != protocol.ErrEmpty {
		t.Fatalf("expected audit reason, got %+v", audit.entries[0])
	}

	step(w, pour("MINT", nil), pour("MINT", nil), pour("MINT", nil))
	if r := step(w, pour("MINT", nil))[0]; r.Code != protocol.ErrFull {
		t.Fatalf("expected E_FULL, got %+v", r)
	}
}

func TestDrawEmptiesAndRemovesVessel(t *testing.T) {
	w, _ := newTestWorld(t)
	step(w, pour("ROSE", intp(2)))

	r := step(w, draw())[0]
	if r.Result != "APPLIED" || r.Level != 0 {
		t.Fatalf("unexpected draw result: %+v", r)
	}
	if r.Held == nil || r.Held.Item != "TEA_BOTTLE" || r.Held.Payload == nil || r.Held.Payload.ID != "ROSE" {
		t.Fatalf("draw should produce a rose tea bottle, got %+v", r.Held)
	}
	if len(w.vessels) != 0 {
		t.Fatalf("empty vessel should be removed")
	}
	if v := viewAt(w); v.State != "EMPTY" || v.Label != "" {
		t.Fatalf("unexpected empty view: %+v", v)
	}

	// The product can be poured straight back.
	back := protocol.InteractMsg{Pos: pos, Held: *r.Held}
	if res := step(w, back)[0]; res.Result != "APPLIED" {
		t.Fatalf("expected re-pour to apply, got %+v", res)
	}
}

func TestViewsRecomputeOncePerMutation(t *testing.T) {
	w, _ := newTestWorld(t)
	for i := 1; i <= 3; i++ {
		step(w, pour("MINT", nil))
		viewAt(w)
		viewAt(w)
		v := w.vessels[firstVesselID(w)]
		if v.Recomputes() != i {
			t.Fatalf("after pour %d expected %d recomputes, got %d", i, i, v.Recomputes())
		}
	}
}

func firstVesselID(w *World) string {
	for id := range w.vessels {
		return id
	}
	return ""
}

func TestSnapshotRoundTrip(t *testing.T) {
	w, _ := newTestWorld(t)
	step(w, pour("MINT", intp(4)), pour("ROSE", nil))
	before := viewAt(w)

	snap := w.ExportSnapshot(w.CurrentTick())
	p := snapshot.PathForTick(t.TempDir(), snap.Header.Tick)
	if err := snapshot.WriteSnapshot(p, snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	loaded, err := snapshot.ReadSnapshot(p)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}

	w2, _ := newTestWorld(t)
	if err := w2.ImportSnapshot(loaded); err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	after := viewAt(w2)
	before.Tick, after.Tick = 0, 0
	if after.Label != before.Label || after.Level != before.Level || after.Dominant.ID != before.Dominant.ID || after.Tier != before.Tier {
		t.Fatalf("restored view differs:\n%+v\n%+v", before, after)
	}
	if w2.CurrentTick() <= snap.Header.Tick {
		t.Fatalf("tick should resume after the snapshot tick")
	}
}

func TestImportSnapshotRejectsOtherWorld(t *testing.T) {
	w, _ := newTestWorld(t)
	if err := w.ImportSnapshot(snapshot.SnapshotV1{Header: snapshot.Header{Version: 1, WorldID: "other"}}); err == nil {
		t.Fatalf("expected world mismatch error")
	}
	if err := w.ImportSnapshot(snapshot.SnapshotV1{Header: snapshot.Header{Version: 9}}); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestRunServesJoinAndSnapshot(t *testing.T) {
	w, _ := newTestWorld(t)
	sink := make(chan snapshot.SnapshotV1, 1)
	w.SetSnapshotSink(sink)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	joinResp := make(chan JoinResponse, 1)
	w.Join() <- JoinRequest{Name: "bot", Resp: joinResp}
	welcome := (<-joinResp).Welcome
	if welcome.ActorID != "A1" || welcome.WorldID != "w1" || welcome.MaxLevel != 3 {
		t.Fatalf("unexpected welcome: %+v", welcome)
	}

	resp := make(chan protocol.ResultMsg, 1)
	w.Inbox() <- InteractEnvelope{ActorID: welcome.ActorID, Msg: pour("MINT", nil), Resp: resp}
	if r := <-resp; r.Result != "APPLIED" {
		t.Fatalf("unexpected result: %+v", r)
	}

	rc, err := w.RequestSnapshot(ctx)
	if err != nil {
		t.Fatalf("RequestSnapshot: %v", err)
	}
	if rc.Vessels != 1 || rc.Ingredients != 1 {
		t.Fatalf("unexpected receipt: %+v", rc)
	}
	if snap := <-sink; len(snap.Vessels) != 1 {
		t.Fatalf("expected one vessel in snapshot, got %d", len(snap.Vessels))
	}

	w.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRequestSnapshotWithoutWriter(t *testing.T) {
	w, _ := newTestWorld(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	rc, err := w.RequestSnapshot(ctx)
	if err == nil || rc.Vessels != 0 {
		t.Fatalf("expected an error and an empty receipt, got %+v err=%v", rc, err)
	}

	w.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
