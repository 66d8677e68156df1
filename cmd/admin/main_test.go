package main

import (
	"testing"

	"tealeaf.ai/internal/persistence/snapshot"
)

func TestParseAABB(t *testing.T) {
	box, err := parseAABB("5,70,-1:-2,60,3")
	if err != nil {
		t.Fatalf("parseAABB: %v", err)
	}
	if box.min != [3]int{-2, 60, -1} || box.max != [3]int{5, 70, 3} {
		t.Fatalf("corners not normalized: %+v", box)
	}
	for _, bad := range []string{"", "1,2,3", "1,2:3,4,5", "a,b,c:1,2,3"} {
		if _, err := parseAABB(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if _, ok, err := parseOptionalAABB(" "); ok || err != nil {
		t.Fatalf("blank box should be absent, got ok=%v err=%v", ok, err)
	}
}

func TestClearVessels(t *testing.T) {
	snap := snapshot.SnapshotV1{Vessels: []snapshot.VesselV1{
		{ID: "a", Pos: [3]int{0, 64, 0}},
		{ID: "b", Pos: [3]int{10, 64, 0}},
		{ID: "c", Pos: [3]int{1, 65, 1}},
	}}
	box, _ := parseAABB("0,60,0:2,70,2")
	if n := clearVessels(&snap, box); n != 2 {
		t.Fatalf("removed=%d want 2", n)
	}
	if len(snap.Vessels) != 1 || snap.Vessels[0].ID != "b" {
		t.Fatalf("unexpected kept vessels: %+v", snap.Vessels)
	}
}
