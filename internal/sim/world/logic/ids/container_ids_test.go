package ids

import "testing"

func TestContainerIDRoundTrip(t *testing.T) {
	id := VesselID("STILL_CAULDRON", [3]int{12, 0, -9})
	typ, x, y, z, ok := ParseContainerID(id)
	if !ok {
		t.Fatalf("ParseContainerID failed for %q", id)
	}
	if typ != "STILL_CAULDRON" || x != 12 || y != 0 || z != -9 {
		t.Fatalf("unexpected parse result: typ=%q x=%d y=%d z=%d", typ, x, y, z)
	}
}

func TestParseContainerIDRejectsInvalid(t *testing.T) {
	tests := []string{
		"",
		"STILL_CAULDRON",
		"@1,2,3",
		"STILL_CAULDRON@1,2",
		"STILL_CAULDRON@1,2,x",
	}
	for _, tc := range tests {
		if _, _, _, _, ok := ParseContainerID(tc); ok {
			t.Fatalf("expected parse failure for %q", tc)
		}
	}
}

func TestActorIDRoundTrip(t *testing.T) {
	n, ok := ParseUintAfterPrefix("A", ActorID(17))
	if !ok || n != 17 {
		t.Fatalf("unexpected actor id parse: %d %v", n, ok)
	}
	if _, ok := ParseUintAfterPrefix("A", "B3"); ok {
		t.Fatalf("expected prefix mismatch")
	}
}
