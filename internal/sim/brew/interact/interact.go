package interact

import (
	"errors"
	"fmt"
	"log"

	"tealeaf.ai/internal/sim/brew/derive"
	"tealeaf.ai/internal/sim/brew/ingredient"
	"tealeaf.ai/internal/sim/brew/vessel"
)

var (
	ErrNoBehaviour = errors.New("item has no behaviour for this station")
	ErrNoPayload   = errors.New("held item carries no ingredient")
)

type Result int

const (
	Ignored Result = iota
	Applied
)

func (r Result) String() string {
	if r == Applied {
		return "APPLIED"
	}
	return "IGNORED"
}

// Stack is the item an actor holds. Payload is the ingredient a filled container carries.
type Stack struct {
	Item    string            `json:"item"`
	Payload *ingredient.Draft `json:"payload,omitempty"`
}

type Actor interface {
	ExchangeHeld(consumed, produced Stack)
}

type CueKind string

const (
	CueFill  CueKind = "FILL"
	CueDrain CueKind = "DRAIN"
)

type Cues interface {
	Cue(kind CueKind, vesselID string)
}

// Context is handed to a Behaviour. Produce and Cue only take effect if the behaviour succeeds.
type Context struct {
	VesselID   string
	Vessel     *vessel.Vessel
	Rules      vessel.Rules
	Aggregator *derive.Aggregator
	Held       Stack

	produced *Stack
	cue      CueKind
}

func (c *Context) Produce(s Stack) { c.produced = &s }
func (c *Context) Cue(k CueKind)   { c.cue = k }

// Behaviour applies one transition. A non-nil error means the interaction did not apply and the
// behaviour must have left the vessel untouched.
type Behaviour func(c *Context) error

type Table map[string]Behaviour

type Dispatcher struct {
	table Table
	rules vessel.Rules
	agg   *derive.Aggregator
	cues  Cues
	log   *log.Logger
}

func NewDispatcher(table Table, rules vessel.Rules, agg *derive.Aggregator, cues Cues, logger *log.Logger) *Dispatcher {
	if table == nil {
		table = Table{}
	}
	return &Dispatcher{table: table, rules: rules, agg: agg, cues: cues, log: logger}
}

func (d *Dispatcher) Accepts(item string) bool {
	_, ok := d.table[item]
	return ok
}

func (d *Dispatcher) Rules() vessel.Rules { return d.rules }

func (d *Dispatcher) Aggregator() *derive.Aggregator { return d.agg }

// Handle resolves held.Item to a behaviour and applies it to v. Ignored interactions have no side
// effects; the returned error says why.
func (d *Dispatcher) Handle(id string, v *vessel.Vessel, held Stack, actor Actor) (Result, error) {
	b, ok := d.table[held.Item]
	if !ok || v == nil {
		return Ignored, fmt.Errorf("%s: %w", held.Item, ErrNoBehaviour)
	}

	c := &Context{VesselID: id, Vessel: v, Rules: d.rules, Aggregator: d.agg, Held: held}
	if err := b(c); err != nil {
		if errors.Is(err, ingredient.ErrInvalidIngredient) && d.log != nil {
			d.log.Printf("warn: %s: %v; skipping", id, err)
		}
		return Ignored, err
	}

	if actor != nil && c.produced != nil {
		actor.ExchangeHeld(held, *c.produced)
	}
	if d.cues != nil && c.cue != "" {
		d.cues.Cue(c.cue, id)
	}
	return Applied, nil
}
