package interact

import "tealeaf.ai/internal/sim/brew/vessel"

// StationItems names the two containers a still cauldron trades in.
type StationItems struct {
	// Filled is poured in and handed out as the finished product.
	Filled string
	// Empty is returned for a pour and consumed to draw a serving.
	Empty string
}

func StandardTable(items StationItems) Table {
	return Table{
		items.Filled: func(c *Context) error { return Pour(c, items.Empty) },
		items.Empty:  func(c *Context) error { return Draw(c, items.Filled) },
	}
}

// Pour deposits the held payload and gives back an empty container.
func Pour(c *Context, emptyItem string) error {
	if c.Held.Payload == nil {
		return ErrNoPayload
	}
	if err := c.Vessel.Deposit(c.Rules, *c.Held.Payload); err != nil {
		return err
	}
	c.Produce(Stack{Item: emptyItem})
	c.Cue(CueFill)
	return nil
}

// Draw takes one serving; the product carries the dominant ingredient so it can be poured back.
func Draw(c *Context, filledItem string) error {
	if c.Vessel.State() == vessel.Empty {
		return vessel.ErrEmpty
	}
	out := Stack{Item: filledItem}
	if c.Aggregator != nil {
		if p, ok := c.Vessel.Derived(c.Aggregator); ok && p.HasDominant {
			d := p.Dominant.Draft()
			out.Payload = &d
		}
	}
	if err := c.Vessel.Withdraw(); err != nil {
		return err
	}
	c.Produce(out)
	c.Cue(CueDrain)
	return nil
}
