package codec

import (
	"encoding/json"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"tealeaf.ai/internal/sim/brew/ingredient"
	"tealeaf.ai/internal/sim/brew/vessel"
)

type allowAll struct{}

func (allowAll) IsValidIngredient(string) bool { return true }

func filled(t *testing.T) *vessel.Vessel {
	t.Helper()
	r := vessel.Rules{MaxLevel: 3, Allow: allowAll{}, Rand: rand.New(rand.NewSource(9)), Flairs: 4}
	v := r.NewVessel()
	strong := 6
	for _, d := range []ingredient.Draft{
		{Item: "MINT"},
		{Item: "ROSE", Intensity: &strong, Colour: "PINK"},
	} {
		if err := v.Deposit(r, d); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	return v
}

func TestRoundTrip(t *testing.T) {
	v := filled(t)
	tree := Encode(v)
	back := Decode(tree, 3)
	if !reflect.DeepEqual(Encode(back), tree) {
		t.Fatalf("round trip mismatch:\n%#v\n%#v", Encode(back), tree)
	}
	if back.Level() != 2 || !back.Dirty() {
		t.Fatalf("unexpected restored state: level=%d dirty=%v", back.Level(), back.Dirty())
	}
}

func TestRoundTripThroughJSON(t *testing.T) {
	v := filled(t)
	raw, err := json.Marshal(Encode(v))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var tree Tree
	if err := json.Unmarshal(raw, &tree); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	back := Decode(tree, 3)
	if !reflect.DeepEqual(back.Records(), v.Records()) || back.Level() != v.Level() {
		t.Fatalf("json round trip mismatch: %#v vs %#v", back.Records(), v.Records())
	}
}

func TestRoundTripEmpty(t *testing.T) {
	v := vessel.New(3)
	tree := Encode(v)
	if _, ok := tree[KeyIngredients]; ok {
		t.Fatalf("empty vessel should not encode ingredients")
	}
	if !reflect.DeepEqual(Encode(Decode(tree, 3)), tree) {
		t.Fatalf("empty round trip mismatch")
	}
}

func TestDecodeCorruptDefaultsSafely(t *testing.T) {
	cases := []Tree{
		nil,
		{},
		{KeyLevel: "two"},
		{KeyLevel: 2},
		{KeyLevel: 2, KeyIngredients: "nope"},
		{KeyLevel: 2, KeyIngredients: []any{42, map[string]any{KeyFlair: 1}}},
	}
	for i, tree := range cases {
		v := Decode(tree, 3)
		if v.Level() != 0 || v.Records() != nil {
			t.Fatalf("case %d: expected empty vessel, got level=%d records=%v", i, v.Level(), v.Records())
		}
	}
}

func TestDecodeFillsMissingStrength(t *testing.T) {
	v := Decode(Tree{
		KeyLevel:       json.Number("1"),
		KeyIngredients: []map[string]any{{KeyID: "MINT", KeyFlair: float64(2)}},
	}, 3)
	recs := v.Records()
	if v.Level() != 1 || len(recs) != 1 {
		t.Fatalf("unexpected vessel: level=%d records=%v", v.Level(), recs)
	}
	if recs[0] != (ingredient.Record{Item: "MINT", Intensity: 1, Flair: 2}) {
		t.Fatalf("unexpected record: %+v", recs[0])
	}
}

func TestDecodeOutOfRangeNumbersFallBack(t *testing.T) {
	for _, level := range []any{1e300, -1e300, 1.5, float64(math.MaxInt32) + 1, json.Number("1e40"), int64(math.MaxInt64)} {
		v := Decode(Tree{KeyLevel: level, KeyIngredients: []any{map[string]any{KeyID: "MINT"}}}, 3)
		if v.Level() != 0 || v.Records() != nil {
			t.Fatalf("level %v: expected empty vessel, got level=%d records=%v", level, v.Level(), v.Records())
		}
	}

	v := Decode(Tree{KeyLevel: float64(3), KeyIngredients: []any{
		map[string]any{KeyID: "MINT", KeyStrength: 1e12, KeyFlair: -1e20},
		map[string]any{KeyID: "ROSE", KeyStrength: 2.5, KeyFlair: json.Number("9999999999")},
		map[string]any{KeyID: "CHAMOMILE", KeyStrength: math.NaN(), KeyFlair: math.Inf(1)},
	}}, 3)
	want := []ingredient.Record{
		{Item: "MINT", Intensity: 1},
		{Item: "ROSE", Intensity: 1},
		{Item: "CHAMOMILE", Intensity: 1},
	}
	if v.Level() != 3 || !reflect.DeepEqual(v.Records(), want) {
		t.Fatalf("unexpected vessel: level=%d records=%+v", v.Level(), v.Records())
	}
}
