package derive

import "tealeaf.ai/internal/sim/brew/ingredient"

// Cache holds the last computed Properties for one ledger. It is not safe for concurrent use;
// the owning vessel serializes access.
type Cache struct {
	dirty      bool
	cached     *Properties
	recomputes int
}

func (c *Cache) Dirty() bool { return c.dirty }

func (c *Cache) Invalidate() { c.dirty = true }

// Reset drops the cached value and leaves the dirty flag as given.
func (c *Cache) Reset(dirty bool) {
	c.cached = nil
	c.dirty = dirty
}

func (c *Cache) Recomputes() int { return c.recomputes }

func (c *Cache) Get(a *Aggregator, l *ingredient.Ledger) Properties {
	if !c.dirty && c.cached != nil {
		return *c.cached
	}
	p := a.Compute(l)
	c.cached = &p
	c.dirty = false
	c.recomputes++
	return p
}
