package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Station collects per-world brewing metrics on its own registry.
type Station struct {
	reg *prometheus.Registry

	interactions *prometheus.CounterVec
	recomputes   prometheus.Counter
	vessels      prometheus.Gauge
	ticks        prometheus.Counter
}

func NewStation(worldID string) *Station {
	labels := prometheus.Labels{"world": worldID}
	s := &Station{
		reg: prometheus.NewRegistry(),
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tealeaf_interactions_total",
			Help:        "Vessel interactions by held item and result.",
			ConstLabels: labels,
		}, []string{"item", "result"}),
		recomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tealeaf_derived_recomputes_total",
			Help:        "Derived property recomputations across all vessels.",
			ConstLabels: labels,
		}),
		vessels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "tealeaf_vessels",
			Help:        "Non-empty vessels in the world.",
			ConstLabels: labels,
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tealeaf_ticks_total",
			Help:        "World ticks executed.",
			ConstLabels: labels,
		}),
	}
	s.reg.MustRegister(s.interactions, s.recomputes, s.vessels, s.ticks)
	return s
}

func (s *Station) Interaction(item, result string) {
	if s == nil {
		return
	}
	s.interactions.WithLabelValues(item, result).Inc()
}

func (s *Station) Recomputed(n int) {
	if s == nil || n <= 0 {
		return
	}
	s.recomputes.Add(float64(n))
}

func (s *Station) Vessels(n int) {
	if s == nil {
		return
	}
	s.vessels.Set(float64(n))
}

func (s *Station) Tick() {
	if s == nil {
		return
	}
	s.ticks.Inc()
}

func (s *Station) Registry() *prometheus.Registry { return s.reg }

func (s *Station) Handler() http.Handler {
	return promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})
}
