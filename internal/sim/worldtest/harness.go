package worldtest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"testing"

	"tealeaf.ai/internal/i18n"
	"tealeaf.ai/internal/persistence/snapshot"
	"tealeaf.ai/internal/protocol"
	"tealeaf.ai/internal/sim/catalogs"
	world "tealeaf.ai/internal/sim/world"
)

// Harness drives a world through its exported APIs only, one StepOnce per call:
// - Join() issues a JoinRequest via the world loop
// - Pour()/Draw()/Interact() each run one tick with a single INTERACT
// - View() runs one tick with a single VIEW
// - Digest() hashes the exported snapshot for determinism checks
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	ActorID string
}

// LoadCatalogs reads the repository configs relative to this package.
func LoadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func NewHarness(t *testing.T, cfg world.WorldConfig, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		t.Fatalf("load locales: %v", err)
	}
	w, err := world.New(cfg, world.Deps{
		Catalogs:   cats,
		Translator: bundle.Printer(i18n.BaseLocale),
		Logger:     log.New(&bytes.Buffer{}, "", 0),
	})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewHarnessWithWorld(t, w, cats)
}

// NewHarnessWithWorld wraps an already-constructed world, e.g. one restored from a snapshot.
func NewHarnessWithWorld(t *testing.T, w *world.World, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	return &Harness{T: t, Cats: cats, W: w, ActorID: "A0"}
}

// Join issues a join through the world loop. Joins are only served by Run,
// so a loop is started for the duration of the request.
func (h *Harness) Join(name string) protocol.WelcomeMsg {
	h.T.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.W.Run(ctx) }()

	resp := make(chan world.JoinResponse, 1)
	h.W.Join() <- world.JoinRequest{Name: name, Resp: resp}
	jr := <-resp
	cancel()
	<-done

	h.ActorID = jr.Welcome.ActorID
	return jr.Welcome
}

func (h *Harness) Interact(pos [3]int, held protocol.ItemStack) protocol.ResultMsg {
	h.T.Helper()
	resp := make(chan protocol.ResultMsg, 1)
	h.W.StepOnce([]world.InteractEnvelope{{
		ActorID: h.ActorID,
		Msg:     protocol.InteractMsg{Type: protocol.TypeInteract, ProtocolVersion: protocol.Version, Pos: pos, Held: held},
		Resp:    resp,
	}}, nil)
	select {
	case r := <-resp:
		return r
	default:
		h.T.Fatalf("no RESULT for interaction at %v", pos)
		return protocol.ResultMsg{}
	}
}

func (h *Harness) Pour(pos [3]int, id string, strength *int) protocol.ResultMsg {
	h.T.Helper()
	station := h.Cats.Brew.Station
	return h.Interact(pos, protocol.ItemStack{Item: station.FilledItem, Payload: &protocol.IngredientPayload{ID: id, Strength: strength}})
}

func (h *Harness) Draw(pos [3]int) protocol.ResultMsg {
	h.T.Helper()
	return h.Interact(pos, protocol.ItemStack{Item: h.Cats.Brew.Station.EmptyItem})
}

func (h *Harness) View(pos [3]int) protocol.VesselMsg {
	h.T.Helper()
	resp := make(chan protocol.VesselMsg, 1)
	h.W.StepOnce(nil, []world.ViewRequest{{Msg: protocol.ViewMsg{Pos: pos}, Resp: resp}})
	select {
	case v := <-resp:
		return v
	default:
		h.T.Fatalf("no VESSEL for view at %v", pos)
		return protocol.VesselMsg{}
	}
}

func (h *Harness) Snapshot() snapshot.SnapshotV1 {
	return h.W.ExportSnapshot(h.W.CurrentTick())
}

// Digest is a stable hash of all station state, independent of the current tick.
func (h *Harness) Digest() string {
	h.T.Helper()
	snap := h.Snapshot()
	snap.Header.Tick = 0
	b, err := json.Marshal(snap)
	if err != nil {
		h.T.Fatalf("marshal snapshot: %v", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
