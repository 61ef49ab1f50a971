// Package metrics exposes Prometheus collectors for a harvest run.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inatscraper"

// Species outcome and photo status label values
const (
	LabelSkipped   = "skipped"
	LabelCompleted = "completed"
	LabelFailed    = "failed"
	LabelSaved     = "saved"
	LabelRejected  = "rejected"
)

// Harvest holds every collector of a run. A nil *Harvest is valid and
// records nothing, so callers never need to check whether metrics are on.
type Harvest struct {
	registry *prometheus.Registry

	APIRequests   prometheus.Counter
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	SpeciesTotal  prometheus.Gauge
	SpeciesDone   *prometheus.CounterVec
	Photos        *prometheus.CounterVec
	PhotoDuration prometheus.Histogram
	RateLimitWait prometheus.Counter
}

// NewHarvest creates the collectors on a private registry
func NewHarvest() (*Harvest, error) {
	m := &Harvest{registry: prometheus.NewRegistry()}

	m.APIRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Observation queries sent to the iNaturalist API.",
	})
	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Observation responses served from the response cache.",
	})
	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Observation lookups that missed the response cache.",
	})
	m.SpeciesTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "species_total",
		Help:      "Species scheduled in this run.",
	})
	m.SpeciesDone = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "species_done_total",
		Help:      "Species finished, by outcome.",
	}, []string{"status"})
	m.Photos = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "photos_total",
		Help:      "Photo downloads, by result.",
	}, []string{"status"})
	m.PhotoDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "photo_download_duration_seconds",
		Help:      "Duration of photo downloads in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	m.RateLimitWait = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_wait_seconds_total",
		Help:      "Time spent blocked on the API rate limiter.",
	})

	for _, c := range []prometheus.Collector{
		m.APIRequests, m.CacheHits, m.CacheMisses, m.SpeciesTotal,
		m.SpeciesDone, m.Photos, m.PhotoDuration, m.RateLimitWait,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register harvest metrics: %w", err)
		}
	}
	return m, nil
}

// Registry returns the registry the collectors live on
func (m *Harvest) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Harvest) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

func (m *Harvest) IncAPIRequests() {
	if m != nil {
		m.APIRequests.Inc()
	}
}

func (m *Harvest) IncCacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Harvest) IncCacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *Harvest) SetSpeciesTotal(n int) {
	if m != nil {
		m.SpeciesTotal.Set(float64(n))
	}
}

// ObserveSpecies counts one finished species under status
func (m *Harvest) ObserveSpecies(status string) {
	if m != nil {
		m.SpeciesDone.WithLabelValues(status).Inc()
	}
}

// ObservePhoto counts one photo result and, when it was saved, its duration
func (m *Harvest) ObservePhoto(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.Photos.WithLabelValues(status).Inc()
	if status == LabelSaved {
		m.PhotoDuration.Observe(d.Seconds())
	}
}

// AddRateLimitWait records time spent waiting for a rate limit window
func (m *Harvest) AddRateLimitWait(d time.Duration) {
	if m != nil {
		m.RateLimitWait.Add(d.Seconds())
	}
}
