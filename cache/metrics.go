package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the cache's Prometheus collectors.
type Metrics struct {
	Hits            prometheus.Counter
	Misses          prometheus.Counter
	Invalidations   prometheus.Counter
	PreloadDuration prometheus.Histogram
	Entries         prometheus.Gauge
	Dirty           prometheus.Gauge
}

// NewMetrics builds the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roster", Subsystem: "cache", Name: "hits_total",
			Help: "Grid lookups answered from the cache.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roster", Subsystem: "cache", Name: "misses_total",
			Help: "Grid lookups for dates not in the cache.",
		}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roster", Subsystem: "cache", Name: "invalidations_total",
			Help: "Dates marked dirty.",
		}),
		PreloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "roster", Subsystem: "cache", Name: "preload_seconds",
			Help:    "Time to compute one month of grid entries.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5},
		}),
		Entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roster", Subsystem: "cache", Name: "entries",
			Help: "Dates currently cached.",
		}),
		Dirty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roster", Subsystem: "cache", Name: "dirty_dates",
			Help: "Dates waiting for refresh.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Hits, m.Misses, m.Invalidations, m.PreloadDuration, m.Entries, m.Dirty)
	}
	return m
}
