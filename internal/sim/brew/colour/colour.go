package colour

import "sort"

type RGB [3]int

// Palette blends colour ids by averaging their RGB values and snapping to the nearest palette entry.
type Palette struct {
	byID     map[string]RGB
	ids      []string
	fallback string
}

func NewPalette(colours map[string]RGB, fallback string) *Palette {
	p := &Palette{byID: make(map[string]RGB, len(colours)), fallback: fallback}
	for id, rgb := range colours {
		p.byID[id] = rgb
		p.ids = append(p.ids, id)
	}
	sort.Strings(p.ids)
	return p
}

func (p *Palette) Lookup(id string) (RGB, bool) {
	rgb, ok := p.byID[id]
	return rgb, ok
}

// Blend treats colours as a multiset; unknown ids are skipped.
func (p *Palette) Blend(colours []string) string {
	var sum RGB
	n := 0
	for _, id := range colours {
		rgb, ok := p.byID[id]
		if !ok {
			continue
		}
		for i := range sum {
			sum[i] += rgb[i]
		}
		n++
	}
	if n == 0 {
		return p.fallback
	}
	avg := RGB{sum[0] / n, sum[1] / n, sum[2] / n}
	return p.nearest(avg)
}

func (p *Palette) nearest(c RGB) string {
	best := p.fallback
	bestD := -1
	// ids are sorted, so equal distances resolve to the lexically smallest id.
	for _, id := range p.ids {
		rgb := p.byID[id]
		d := 0
		for i := range c {
			x := c[i] - rgb[i]
			d += x * x
		}
		if bestD < 0 || d < bestD {
			best, bestD = id, d
		}
	}
	return best
}
