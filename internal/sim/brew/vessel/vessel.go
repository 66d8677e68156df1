package vessel

import (
	"errors"

	"tealeaf.ai/internal/sim/brew/derive"
	"tealeaf.ai/internal/sim/brew/ingredient"
)

const DefaultMaxLevel = 3

var (
	ErrFull  = errors.New("vessel is full")
	ErrEmpty = errors.New("vessel is empty")
)

type State int

const (
	Empty State = iota
	Filling
	Full
)

func (s State) String() string {
	switch s {
	case Empty:
		return "EMPTY"
	case Filling:
		return "FILLING"
	case Full:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// Rules are the station parameters a vessel is filled under.
type Rules struct {
	MaxLevel int
	Allow    ingredient.AllowSet
	Rand     ingredient.Rand
	Flairs   int
}

func (r Rules) NewVessel() *Vessel { return New(r.MaxLevel) }

func (r Rules) env() ingredient.Env {
	return ingredient.Env{Allow: r.Allow, Rand: r.Rand, Flairs: r.Flairs}
}

// Vessel is a fillable station. The ledger exists iff level > 0.
type Vessel struct {
	level    int
	maxLevel int
	ledger   *ingredient.Ledger
	cache    derive.Cache
}

func New(maxLevel int) *Vessel {
	if maxLevel <= 0 {
		maxLevel = DefaultMaxLevel
	}
	return &Vessel{maxLevel: maxLevel}
}

// Restore rebuilds a vessel from persisted state, repairing anything that breaks the
// level/ledger invariant.
func Restore(maxLevel, level int, records []ingredient.Record, dirty bool) *Vessel {
	v := New(maxLevel)
	// Nothing is cached after a load, so the first read recomputes regardless of the flag.
	v.cache.Reset(dirty)
	if level > v.maxLevel {
		level = v.maxLevel
	}
	if level <= 0 || len(records) == 0 {
		return v
	}
	v.level = level
	v.ledger = ingredient.NewLedger(records...)
	return v
}

func (v *Vessel) Level() int    { return v.level }
func (v *Vessel) MaxLevel() int { return v.maxLevel }

func (v *Vessel) State() State {
	switch {
	case v.level <= 0:
		return Empty
	case v.level >= v.maxLevel:
		return Full
	default:
		return Filling
	}
}

func (v *Vessel) Records() []ingredient.Record { return v.ledger.Records() }

func (v *Vessel) Dirty() bool { return v.cache.Dirty() }

func (v *Vessel) Recomputes() int { return v.cache.Recomputes() }

func (v *Vessel) Deposit(r Rules, d ingredient.Draft) error {
	if v.State() == Full {
		return ErrFull
	}

	ledger := v.ledger
	if ledger == nil {
		ledger = ingredient.NewLedger()
	}
	if _, err := ledger.Add(d, r.env()); err != nil {
		return err
	}

	v.ledger = ledger
	v.level++
	if v.level > v.maxLevel {
		v.level = v.maxLevel
	}
	v.cache.Invalidate()
	return nil
}

// Withdraw lowers the level by one. Ledger entries are provenance and are kept until the
// vessel empties.
func (v *Vessel) Withdraw() error {
	if v.State() == Empty {
		return ErrEmpty
	}
	v.level--
	if v.level == 0 {
		v.ledger = nil
		v.cache.Reset(true)
	}
	return nil
}

// Derived returns the display properties, recomputing only after a ledger mutation.
func (v *Vessel) Derived(a *derive.Aggregator) (derive.Properties, bool) {
	if v.State() == Empty {
		return derive.Properties{}, false
	}
	return v.cache.Get(a, v.ledger), true
}
