package ingredient

import (
	"errors"
	"testing"
)

type allowList map[string]bool

func (a allowList) IsValidIngredient(item string) bool { return a[item] }

type fixedRand struct {
	n     int
	calls int
	bound int
}

func (r *fixedRand) Intn(n int) int {
	r.calls++
	r.bound = n
	return r.n
}

func intp(v int) *int { return &v }

func testEnv() (Env, *fixedRand) {
	rng := &fixedRand{n: 2}
	return Env{Allow: allowList{"MINT": true, "ROSE": true, "SUGAR": true}, Rand: rng, Flairs: 5}, rng
}

func TestAddFillsDefaults(t *testing.T) {
	env, rng := testEnv()
	l := NewLedger()
	r, err := l.Add(Draft{Item: "MINT"}, env)
	if err != nil {
		t.Fatalf("Add err: %v", err)
	}
	if r.Intensity != DefaultIntensity || r.Flair != 2 {
		t.Fatalf("unexpected defaults: %+v", r)
	}
	if rng.calls != 1 || rng.bound != 5 {
		t.Fatalf("expected one Intn(5) call, got calls=%d bound=%d", rng.calls, rng.bound)
	}
}

func TestAddKeepsExplicitValues(t *testing.T) {
	env, rng := testEnv()
	l := NewLedger()
	r, err := l.Add(Draft{Item: "ROSE", Intensity: intp(7), Flair: intp(0), Colour: "PINK"}, env)
	if err != nil {
		t.Fatalf("Add err: %v", err)
	}
	if r != (Record{Item: "ROSE", Intensity: 7, Flair: 0, Colour: "PINK"}) {
		t.Fatalf("explicit values overwritten: %+v", r)
	}
	if rng.calls != 0 {
		t.Fatalf("rand consulted for explicit flair")
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	env, _ := testEnv()
	l := NewLedger()
	if _, err := l.Add(Draft{Item: "DIRT"}, env); !errors.Is(err, ErrInvalidIngredient) {
		t.Fatalf("expected ErrInvalidIngredient, got %v", err)
	}
	if _, err := l.Add(Draft{}, env); !errors.Is(err, ErrEmptyIngredient) {
		t.Fatalf("expected ErrEmptyIngredient, got %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("rejected records were appended: %d", l.Len())
	}
}

func TestPrimaryByCount(t *testing.T) {
	a := Record{Item: "A", Intensity: 1}
	b := Record{Item: "B", Intensity: 1}
	got, ok := NewLedger(a, b, a).Primary()
	if !ok || got != a {
		t.Fatalf("expected A, got %+v ok=%v", got, ok)
	}
}

func TestPrimaryTieBreakFirstToReachMax(t *testing.T) {
	a := Record{Item: "A", Intensity: 1}
	b := Record{Item: "B", Intensity: 1}

	if got, _ := NewLedger(a, b).Primary(); got != a {
		t.Fatalf("expected A on 1:1 tie, got %+v", got)
	}
	// B reaches two before A does.
	if got, _ := NewLedger(a, b, b, a).Primary(); got != b {
		t.Fatalf("expected B, got %+v", got)
	}
}

func TestPrimaryDistinguishesFields(t *testing.T) {
	weak := Record{Item: "A", Intensity: 1}
	strong := Record{Item: "A", Intensity: 3}
	got, _ := NewLedger(weak, strong, strong).Primary()
	if got != strong {
		t.Fatalf("expected strong record, got %+v", got)
	}
}

func TestPrimaryEmpty(t *testing.T) {
	if _, ok := NewLedger().Primary(); ok {
		t.Fatalf("expected no primary for empty ledger")
	}
	var l *Ledger
	if _, ok := l.Primary(); ok {
		t.Fatalf("expected no primary for nil ledger")
	}
}

func TestOverallIntensityTier(t *testing.T) {
	cases := []struct {
		name        string
		intensities []int
		want        int
	}{
		{"empty", nil, 0},
		{"weak", []int{1, 1, 1}, 0},
		{"medium", []int{4, 4}, 1},
		{"strong", []int{6}, 2},
		{"clamped high", []int{40}, 2},
		{"negative", []int{-8}, 0},
		{"rounds half up", []int{3}, 1},
	}
	for _, tc := range cases {
		l := NewLedger()
		for _, n := range tc.intensities {
			l.records = append(l.records, Record{Item: "A", Intensity: n})
		}
		if got := l.OverallIntensityTier(3); got != tc.want {
			t.Fatalf("%s: expected tier %d, got %d", tc.name, tc.want, got)
		}
	}
	if got := NewLedger(Record{Item: "A", Intensity: 9}).OverallIntensityTier(0); got != 0 {
		t.Fatalf("expected tier 0 without tiers, got %d", got)
	}
}

func TestRecordsIsCopy(t *testing.T) {
	l := NewLedger(Record{Item: "A"})
	rs := l.Records()
	rs[0].Item = "B"
	if l.Records()[0].Item != "A" {
		t.Fatalf("Records leaked internal slice")
	}
}

func TestFlairTableToken(t *testing.T) {
	ft := FlairTable{"plain", "swirl", "sparkle"}
	if ft.Token(1) != "swirl" {
		t.Fatalf("unexpected token %q", ft.Token(1))
	}
	if ft.Token(9) != "plain" || ft.Token(-1) != "plain" {
		t.Fatalf("out-of-range flair should fall back to first token")
	}
	if (FlairTable{}).Token(0) != "" {
		t.Fatalf("empty table should yield empty token")
	}
}
