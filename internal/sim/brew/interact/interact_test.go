package interact

import (
	"bytes"
	"errors"
	"log"
	"math/rand"
	"strings"
	"testing"

	"tealeaf.ai/internal/sim/brew/derive"
	"tealeaf.ai/internal/sim/brew/ingredient"
	"tealeaf.ai/internal/sim/brew/vessel"
)

type allowList map[string]bool

func (a allowList) IsValidIngredient(item string) bool { return a[item] }

type recordingActor struct{ swaps [][2]Stack }

func (a *recordingActor) ExchangeHeld(consumed, produced Stack) {
	a.swaps = append(a.swaps, [2]Stack{consumed, produced})
}

type recordingCues struct{ kinds []CueKind }

func (c *recordingCues) Cue(kind CueKind, _ string) { c.kinds = append(c.kinds, kind) }

var items = StationItems{Filled: "TEA_BOTTLE", Empty: "GLASS_BOTTLE"}

func newDispatcher(t *testing.T) (*Dispatcher, *recordingCues, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cues := &recordingCues{}
	rules := vessel.Rules{MaxLevel: 2, Allow: allowList{"MINT": true}, Rand: rand.New(rand.NewSource(3)), Flairs: 3}
	agg := &derive.Aggregator{Tiers: []string{"weak", "medium", "strong"}}
	return NewDispatcher(StandardTable(items), rules, agg, cues, log.New(&buf, "", 0)), cues, &buf
}

func tea(item string) Stack {
	return Stack{Item: items.Filled, Payload: &ingredient.Draft{Item: item}}
}

func TestPourApplies(t *testing.T) {
	d, cues, _ := newDispatcher(t)
	actor := &recordingActor{}
	v := d.Rules().NewVessel()

	res, err := d.Handle("V1", v, tea("MINT"), actor)
	if res != Applied || err != nil {
		t.Fatalf("expected APPLIED, got %s err=%v", res, err)
	}
	if v.Level() != 1 {
		t.Fatalf("expected level 1, got %d", v.Level())
	}
	if len(actor.swaps) != 1 || actor.swaps[0][1].Item != items.Empty {
		t.Fatalf("expected swap to empty bottle, got %#v", actor.swaps)
	}
	if len(cues.kinds) != 1 || cues.kinds[0] != CueFill {
		t.Fatalf("expected fill cue, got %#v", cues.kinds)
	}
}

func TestDrawOnEmptyIgnored(t *testing.T) {
	d, cues, _ := newDispatcher(t)
	actor := &recordingActor{}
	v := d.Rules().NewVessel()

	res, err := d.Handle("V1", v, Stack{Item: items.Empty}, actor)
	if res != Ignored || !errors.Is(err, vessel.ErrEmpty) {
		t.Fatalf("expected IGNORED/ErrEmpty, got %s %v", res, err)
	}
	if v.Level() != 0 || v.Dirty() || len(actor.swaps) != 0 || len(cues.kinds) != 0 {
		t.Fatalf("ignored interaction had side effects")
	}
}

func TestDrawCarriesDominantIngredient(t *testing.T) {
	d, cues, _ := newDispatcher(t)
	actor := &recordingActor{}
	v := d.Rules().NewVessel()
	_, _ = d.Handle("V1", v, tea("MINT"), actor)

	res, _ := d.Handle("V1", v, Stack{Item: items.Empty}, actor)
	if res != Applied {
		t.Fatalf("expected APPLIED, got %s", res)
	}
	if v.State() != vessel.Empty {
		t.Fatalf("expected EMPTY after draining, got %s", v.State())
	}
	out := actor.swaps[1][1]
	if out.Item != items.Filled || out.Payload == nil || out.Payload.Item != "MINT" {
		t.Fatalf("unexpected product: %#v", out)
	}
	if out.Payload.Intensity == nil || *out.Payload.Intensity != 1 {
		t.Fatalf("product should keep the finalized intensity")
	}
	if cues.kinds[len(cues.kinds)-1] != CueDrain {
		t.Fatalf("expected drain cue, got %#v", cues.kinds)
	}
}

func TestPourRejections(t *testing.T) {
	d, _, buf := newDispatcher(t)
	actor := &recordingActor{}
	v := d.Rules().NewVessel()

	if res, err := d.Handle("V1", v, tea("DIRT"), actor); res != Ignored || !errors.Is(err, ingredient.ErrInvalidIngredient) {
		t.Fatalf("expected invalid ingredient to be ignored, got %s %v", res, err)
	}
	if !strings.Contains(buf.String(), "warn:") {
		t.Fatalf("expected warning log, got %q", buf.String())
	}
	if res, err := d.Handle("V1", v, Stack{Item: items.Filled}, actor); res != Ignored || !errors.Is(err, ErrNoPayload) {
		t.Fatalf("expected missing payload to be ignored, got %s %v", res, err)
	}

	_, _ = d.Handle("V1", v, tea("MINT"), actor)
	_, _ = d.Handle("V1", v, tea("MINT"), actor)
	if res, err := d.Handle("V1", v, tea("MINT"), actor); res != Ignored || !errors.Is(err, vessel.ErrFull) {
		t.Fatalf("expected full vessel to ignore, got %s %v", res, err)
	}
	if len(actor.swaps) != 2 {
		t.Fatalf("expected only two exchanges, got %d", len(actor.swaps))
	}
}

func TestUnknownItemIgnored(t *testing.T) {
	d, _, _ := newDispatcher(t)
	v := d.Rules().NewVessel()
	if res, err := d.Handle("V1", v, Stack{Item: "STICK"}, nil); res != Ignored || !errors.Is(err, ErrNoBehaviour) {
		t.Fatalf("expected IGNORED/ErrNoBehaviour, got %s %v", res, err)
	}
	if d.Accepts("STICK") || !d.Accepts(items.Empty) {
		t.Fatalf("unexpected Accepts result")
	}
}

func TestTablesAreInstanceScoped(t *testing.T) {
	custom := Table{"SPOON": func(c *Context) error { return nil }}
	d := NewDispatcher(custom, vessel.Rules{}, nil, nil, nil)
	if d.Accepts(items.Filled) || !d.Accepts("SPOON") {
		t.Fatalf("dispatcher should only know its own table")
	}
}
