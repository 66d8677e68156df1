package world

import (
	"errors"
	"log"
	"sync/atomic"

	"tealeaf.ai/internal/metrics"
	"tealeaf.ai/internal/persistence/snapshot"
	"tealeaf.ai/internal/protocol"
	"tealeaf.ai/internal/sim/brew/derive"
	"tealeaf.ai/internal/sim/brew/ingredient"
	"tealeaf.ai/internal/sim/brew/interact"
	"tealeaf.ai/internal/sim/brew/vessel"
	"tealeaf.ai/internal/sim/catalogs"
)

type WorldConfig struct {
	ID                 string
	TickRateHz         int
	MaxLevel           int
	Seed               int64
	SnapshotEveryTicks int
}

type JoinRequest struct {
	Name string
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

type InteractEnvelope struct {
	ActorID string
	Msg     protocol.InteractMsg
	Resp    chan<- protocol.ResultMsg
}

type ViewRequest struct {
	Msg  protocol.ViewMsg
	Resp chan<- protocol.VesselMsg
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"` // "INTERACT"
	Vessel  string         `json:"vessel"`
	Pos     [3]int         `json:"pos"`
	Item    string         `json:"item"`
	Result  string         `json:"result"`
	Level   int            `json:"level"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type AuditSink interface {
	WriteAudit(AuditEntry) error
}

type Deps struct {
	Catalogs *catalogs.Catalogs
	// Translator renders labels for VESSEL replies; labels stay symbolic without one.
	Translator derive.Translator
	Audit      []AuditSink
	Metrics    *metrics.Station
	Logger     *log.Logger
}

// World is a single-threaded authoritative simulation of brewing stations.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg        WorldConfig
	catalogs   *catalogs.Catalogs
	block      string
	dispatcher *interact.Dispatcher
	translator derive.Translator
	flairs     ingredient.FlairTable
	draw       *flairDraw

	tick      atomic.Uint64
	nextActor atomic.Uint64

	vessels map[string]*vessel.Vessel

	inbox chan InteractEnvelope
	views chan ViewRequest
	join  chan JoinRequest
	admin chan adminSnapshotReq
	stop  chan struct{}

	snapshotSink chan<- snapshot.SnapshotV1

	audit   []AuditSink
	metrics *metrics.Station
	log     *log.Logger
	cues    *cueLog
}

func New(cfg WorldConfig, d Deps) (*World, error) {
	if d.Catalogs == nil {
		return nil, errors.New("world: catalogs required")
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	if cfg.MaxLevel <= 0 {
		cfg.MaxLevel = vessel.DefaultMaxLevel
	}
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[world] ", log.LstdFlags)
	}

	cats := d.Catalogs
	station := cats.Brew.Station
	draw := &flairDraw{seed: cfg.Seed}
	rules := vessel.Rules{
		MaxLevel: cfg.MaxLevel,
		Allow:    cats.Items.TagSet(station.IngredientTag),
		Rand:     draw,
		Flairs:   len(cats.Brew.Flairs),
	}
	agg := &derive.Aggregator{
		Tiers:     append([]string(nil), cats.Brew.Strengths...),
		Blender:   cats.Colours.Palette(),
		ItemToken: cats.Items.TranslationKey,
	}
	cues := &cueLog{}
	table := interact.StandardTable(interact.StationItems{Filled: station.FilledItem, Empty: station.EmptyItem})

	w := &World{
		cfg:        cfg,
		catalogs:   cats,
		block:      station.Block,
		dispatcher: interact.NewDispatcher(table, rules, agg, cues, logger),
		translator: d.Translator,
		flairs:     cats.Brew.FlairTable(),
		draw:       draw,
		vessels:    map[string]*vessel.Vessel{},
		inbox:      make(chan InteractEnvelope, 1024),
		views:      make(chan ViewRequest, 1024),
		join:       make(chan JoinRequest, 64),
		admin:      make(chan adminSnapshotReq, 8),
		stop:       make(chan struct{}),
		audit:      d.Audit,
		metrics:    d.Metrics,
		log:        logger,
		cues:       cues,
	}
	w.nextActor.Store(1)
	return w, nil
}

func (w *World) Inbox() chan<- InteractEnvelope { return w.inbox }
func (w *World) Views() chan<- ViewRequest      { return w.views }
func (w *World) Join() chan<- JoinRequest       { return w.join }

func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

// cueLog collects audio/visual cues issued during one interaction for the audit trail.
type cueLog struct {
	last []string
}

func (c *cueLog) Cue(kind interact.CueKind, _ string) { c.last = append(c.last, string(kind)) }

func (c *cueLog) take() []string {
	out := c.last
	c.last = nil
	return out
}
