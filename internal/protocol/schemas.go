package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://tealeaf.ai/schemas/"

var schemaFiles = map[string]string{
	TypeHello:    "hello.schema.json",
	TypeInteract: "interact.schema.json",
	TypeView:     "view.schema.json",
	TypeResult:   "result.schema.json",
	TypeVessel:   "vessel.schema.json",
}

// Validator checks raw messages against the embedded JSON schemas, keyed by message type.
type Validator struct {
	byType map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	for _, name := range schemaFiles {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBaseURL+name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	v := &Validator{byType: make(map[string]*jsonschema.Schema, len(schemaFiles))}
	for typ, name := range schemaFiles {
		s, err := c.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		v.byType[typ] = s
	}
	return v, nil
}

// Validate decodes the message type and checks the body against its schema.
func (v *Validator) Validate(raw []byte) (BaseMessage, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return BaseMessage{}, err
	}
	base, err := DecodeBase(raw)
	if err != nil {
		return base, err
	}
	s := v.byType[base.Type]
	if s == nil {
		return base, fmt.Errorf("unknown message type %q", base.Type)
	}
	if err := s.Validate(doc); err != nil {
		return base, err
	}
	return base, nil
}
