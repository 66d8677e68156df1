package protocol_test

import (
	"encoding/json"
	"testing"

	"tealeaf.ai/internal/protocol"
)

func newValidator(t *testing.T) *protocol.Validator {
	t.Helper()
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestSchemas_ValidateSamples(t *testing.T) {
	v := newValidator(t)
	samples := []string{
		`{"type":"HELLO","protocol_version":"1.0","actor_name":"bot1","max_queue":8}`,
		`{"type":"INTERACT","protocol_version":"1.0","request_id":"r1","pos":[1,64,-3],
		  "held":{"item":"TEA_BOTTLE","payload":{"id":"MINT","strength":4,"colour":"GREEN"}}}`,
		`{"type":"INTERACT","protocol_version":"1.0","pos":[0,0,0],"held":{"item":"GLASS_BOTTLE"}}`,
		`{"type":"VIEW","protocol_version":"1.0","pos":[0,0,0]}`,
	}
	for _, s := range samples {
		if _, err := v.Validate([]byte(s)); err != nil {
			t.Fatalf("validate %s: %v", s, err)
		}
	}
}

func TestSchemas_ServerMessages(t *testing.T) {
	v := newValidator(t)
	res := protocol.ResultMsg{
		Type: protocol.TypeResult, ProtocolVersion: protocol.Version,
		Tick: 3, Pos: [3]int{1, 2, 3}, Result: "IGNORED", Code: protocol.ErrEmpty,
	}
	ves := protocol.VesselMsg{
		Type: protocol.TypeVessel, ProtocolVersion: protocol.Version,
		Tick: 3, Pos: [3]int{1, 2, 3}, Level: 2, State: "FILLING", Tier: 1, Label: "Bottle of Medium Mint Tea",
	}
	for _, m := range []any{res, ves} {
		b, _ := json.Marshal(m)
		if _, err := v.Validate(b); err != nil {
			t.Fatalf("validate %s: %v", b, err)
		}
	}
}

func TestSchemas_RejectInvalid(t *testing.T) {
	v := newValidator(t)
	bad := []string{
		`{"type":"INTERACT","protocol_version":"1.0","pos":[0,0],"held":{"item":"TEA_BOTTLE"}}`,
		`{"type":"INTERACT","protocol_version":"1.0","pos":[0,0,0],"held":{"item":""}}`,
		`{"type":"INTERACT","protocol_version":"1.0","pos":[0,0,0],"held":{"item":"TEA_BOTTLE","payload":{"flair":1}}}`,
		`{"type":"NOPE","protocol_version":"1.0"}`,
		`not json`,
	}
	for _, s := range bad {
		if _, err := v.Validate([]byte(s)); err == nil {
			t.Fatalf("expected validation failure for %s", s)
		}
	}
}
