package colour

import "testing"

func testPalette() *Palette {
	return NewPalette(map[string]RGB{
		"RED":    {255, 0, 0},
		"BLUE":   {0, 0, 255},
		"PURPLE": {128, 0, 128},
		"GREEN":  {0, 200, 0},
	}, "CLEAR")
}

func TestBlendFallbackWithoutColours(t *testing.T) {
	p := testPalette()
	if got := p.Blend(nil); got != "CLEAR" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := p.Blend([]string{"UNKNOWN"}); got != "CLEAR" {
		t.Fatalf("expected fallback for unknown ids, got %q", got)
	}
}

func TestBlendSingleColour(t *testing.T) {
	if got := testPalette().Blend([]string{"GREEN"}); got != "GREEN" {
		t.Fatalf("expected GREEN, got %q", got)
	}
}

func TestBlendMix(t *testing.T) {
	if got := testPalette().Blend([]string{"RED", "BLUE"}); got != "PURPLE" {
		t.Fatalf("expected PURPLE, got %q", got)
	}
}

func TestBlendIsMultiset(t *testing.T) {
	if got := testPalette().Blend([]string{"RED", "RED", "RED", "RED", "BLUE"}); got != "RED" {
		t.Fatalf("expected weighted blend to stay RED, got %q", got)
	}
}
