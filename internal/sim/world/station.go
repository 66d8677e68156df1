package world

import (
	"errors"

	"tealeaf.ai/internal/protocol"
	"tealeaf.ai/internal/sim/brew/ingredient"
	"tealeaf.ai/internal/sim/brew/interact"
	"tealeaf.ai/internal/sim/brew/vessel"
	"tealeaf.ai/internal/sim/world/logic/ids"
)

// heldSwap is the actor side of an interaction: it remembers what the actor ends up holding.
type heldSwap struct {
	produced *interact.Stack
}

func (h *heldSwap) ExchangeHeld(_, produced interact.Stack) { h.produced = &produced }

func (w *World) handleJoin(req JoinRequest) {
	id := ids.ActorID(w.nextActor.Add(1) - 1)
	if req.Resp == nil {
		return
	}
	req.Resp <- JoinResponse{Welcome: protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ActorID:         id,
		WorldID:         w.cfg.ID,
		Tick:            w.tick.Load(),
		MaxLevel:        w.cfg.MaxLevel,
		Catalogs: protocol.CatalogDigests{
			ItemPalette: w.catalogs.Items.PaletteDigest,
			Items:       w.catalogs.Items.DefsDigest,
			Colours:     w.catalogs.Colours.Digest,
			Brew:        w.catalogs.Brew.Digest,
		},
	}}
}

func (w *World) applyInteraction(nowTick uint64, actorID string, msg protocol.InteractMsg) protocol.ResultMsg {
	id := ids.VesselID(w.block, msg.Pos)
	v := w.vessels[id]
	if v == nil {
		// A station comes into existence with its first pour.
		v = w.dispatcher.Rules().NewVessel()
	}
	recomputesBefore := v.Recomputes()

	w.draw.at(id, len(v.Records()))
	actor := &heldSwap{}
	res, err := w.dispatcher.Handle(id, v, stackFromProto(msg.Held), actor)

	if v.Level() > 0 {
		w.vessels[id] = v
	} else {
		delete(w.vessels, id)
	}
	w.metrics.Recomputed(v.Recomputes() - recomputesBefore)
	w.metrics.Interaction(msg.Held.Item, res.String())

	out := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		RequestID:       msg.RequestID,
		Tick:            nowTick,
		Pos:             msg.Pos,
		Result:          res.String(),
		Level:           v.Level(),
	}
	entry := AuditEntry{
		Tick:   nowTick,
		Actor:  actorID,
		Action: "INTERACT",
		Vessel: id,
		Pos:    msg.Pos,
		Item:   msg.Held.Item,
		Result: res.String(),
		Level:  v.Level(),
	}
	if err != nil {
		out.Code = codeFor(err)
		out.Message = err.Error()
		entry.Reason = out.Code
	}
	if actor.produced != nil {
		held := stackToProto(*actor.produced)
		out.Held = &held
	}
	if cues := w.cues.take(); len(cues) > 0 {
		entry.Details = map[string]any{"cues": cues}
	}
	w.writeAudit(entry)
	return out
}

func (w *World) view(nowTick uint64, msg protocol.ViewMsg) protocol.VesselMsg {
	out := protocol.VesselMsg{
		Type:            protocol.TypeVessel,
		ProtocolVersion: protocol.Version,
		RequestID:       msg.RequestID,
		Tick:            nowTick,
		Pos:             msg.Pos,
		State:           vessel.Empty.String(),
	}
	v := w.vessels[ids.VesselID(w.block, msg.Pos)]
	if v == nil {
		return out
	}
	out.Level = v.Level()
	out.State = v.State().String()

	before := v.Recomputes()
	p, ok := v.Derived(w.dispatcher.Aggregator())
	w.metrics.Recomputed(v.Recomputes() - before)
	if !ok {
		return out
	}
	out.Tier = p.Tier
	out.Colour = p.Colour
	out.Label = p.Label.Render(w.translator)
	if p.HasDominant {
		payload := payloadToProto(p.Dominant.Draft())
		out.Dominant = payload
		out.Flair = w.flairs.Token(p.Dominant.Flair)
		if w.translator != nil {
			out.Flair = w.translator.Translate(out.Flair)
		}
	}
	return out
}

func (w *World) writeAudit(e AuditEntry) {
	for _, sink := range w.audit {
		if err := sink.WriteAudit(e); err != nil {
			w.log.Printf("audit write: %v", err)
		}
	}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, interact.ErrNoBehaviour):
		return protocol.ErrNoBehaviour
	case errors.Is(err, interact.ErrNoPayload), errors.Is(err, ingredient.ErrEmptyIngredient):
		return protocol.ErrBadRequest
	case errors.Is(err, ingredient.ErrInvalidIngredient):
		return protocol.ErrNotIngredient
	case errors.Is(err, vessel.ErrFull):
		return protocol.ErrFull
	case errors.Is(err, vessel.ErrEmpty):
		return protocol.ErrEmpty
	default:
		return protocol.ErrInternal
	}
}

func stackFromProto(s protocol.ItemStack) interact.Stack {
	out := interact.Stack{Item: s.Item}
	if p := s.Payload; p != nil {
		out.Payload = &ingredient.Draft{Item: p.ID, Intensity: p.Strength, Flair: p.Flair, Colour: p.Colour}
	}
	return out
}

func stackToProto(s interact.Stack) protocol.ItemStack {
	out := protocol.ItemStack{Item: s.Item}
	if s.Payload != nil {
		out.Payload = payloadToProto(*s.Payload)
	}
	return out
}

func payloadToProto(d ingredient.Draft) *protocol.IngredientPayload {
	return &protocol.IngredientPayload{ID: d.Item, Strength: d.Intensity, Flair: d.Flair, Colour: d.Colour}
}
