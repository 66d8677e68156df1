package ingredient

import (
	"errors"
	"fmt"
	"math"
)

const DefaultIntensity = 1

var (
	ErrInvalidIngredient = errors.New("not a tea ingredient")
	ErrEmptyIngredient   = errors.New("ingredient has no item id")
)

// Draft is a contribution as presented by the caller. Nil fields are filled in by Ledger.Add.
type Draft struct {
	Item      string
	Intensity *int
	Flair     *int
	Colour    string
}

// Record is one finalized contribution. Records compare with ==.
type Record struct {
	Item      string `json:"item"`
	Intensity int    `json:"intensity"`
	Flair     int    `json:"flair"`
	Colour    string `json:"colour,omitempty"`
}

func (r Record) Draft() Draft {
	intensity, flair := r.Intensity, r.Flair
	return Draft{Item: r.Item, Intensity: &intensity, Flair: &flair, Colour: r.Colour}
}

type AllowSet interface {
	IsValidIngredient(item string) bool
}

type Rand interface {
	Intn(n int) int
}

// Env carries the collaborators consulted when a record is added.
type Env struct {
	Allow  AllowSet
	Rand   Rand
	Flairs int
}

type Ledger struct {
	records []Record
}

func NewLedger(records ...Record) *Ledger {
	l := &Ledger{records: make([]Record, 0, len(records))}
	l.records = append(l.records, records...)
	return l
}

func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.records)
}

func (l *Ledger) Records() []Record {
	if l == nil {
		return nil
	}
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	return NewLedger(l.records...)
}

func (l *Ledger) Add(d Draft, env Env) (Record, error) {
	if d.Item == "" {
		return Record{}, ErrEmptyIngredient
	}
	if env.Allow == nil || !env.Allow.IsValidIngredient(d.Item) {
		return Record{}, fmt.Errorf("%s: %w", d.Item, ErrInvalidIngredient)
	}

	r := Record{Item: d.Item, Intensity: DefaultIntensity, Colour: d.Colour}
	if d.Intensity != nil {
		r.Intensity = *d.Intensity
	}
	if d.Flair != nil {
		r.Flair = *d.Flair
	} else if env.Rand != nil && env.Flairs > 0 {
		r.Flair = env.Rand.Intn(env.Flairs)
	}

	l.records = append(l.records, r)
	return r, nil
}

// Primary returns the most frequent record. On equal counts the record that reached the
// maximum first while scanning in ledger order wins.
func (l *Ledger) Primary() (Record, bool) {
	if l.Len() == 0 {
		return Record{}, false
	}
	counts := make(map[Record]int, len(l.records))
	var best Record
	bestN := 0
	for _, r := range l.records {
		counts[r]++
		if n := counts[r]; n > bestN {
			best, bestN = r, n
		}
	}
	return best, true
}

// OverallIntensityTier buckets the average intensity into [0, tiers).
func (l *Ledger) OverallIntensityTier(tiers int) int {
	if l.Len() == 0 || tiers <= 0 {
		return 0
	}
	sum := 0.0
	for _, r := range l.records {
		sum += float64(r.Intensity)
	}
	tier := int(math.Round(sum/float64(len(l.records))/2)) - 1
	if tier < 0 {
		return 0
	}
	if tier >= tiers {
		return tiers - 1
	}
	return tier
}
