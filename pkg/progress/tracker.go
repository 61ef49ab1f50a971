// Package progress keeps the run-wide harvest counters.
package progress

import (
	"sync"

	"inatscraper/pkg/logger"
	"inatscraper/pkg/metrics"
)

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	RequestsIssued   int
	SpeciesCompleted int
	SpeciesTotal     int
}

// Percent returns completed/total as a percentage, 0 when total is unknown
func (s Snapshot) Percent() float64 {
	if s.SpeciesTotal <= 0 {
		return 0
	}
	return float64(s.SpeciesCompleted) / float64(s.SpeciesTotal) * 100
}

// Tracker counts API requests and finished species for one run. It is
// created once and handed to every processor; one mutex guards all fields.
type Tracker struct {
	mu       sync.Mutex
	counters Snapshot
	metrics  *metrics.Harvest
	logger   logger.Logger
}

// NewTracker creates a tracker. m may be nil.
func NewTracker(m *metrics.Harvest, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Tracker{
		metrics: m,
		logger:  log.WithField("component", "progress"),
	}
}

// RecordRequest counts one observation query sent to the API
func (t *Tracker) RecordRequest() {
	t.mu.Lock()
	t.counters.RequestsIssued++
	t.mu.Unlock()
	t.metrics.IncAPIRequests()
}

// RecordSpeciesDone counts one finished species, whatever its outcome
func (t *Tracker) RecordSpeciesDone() {
	t.mu.Lock()
	t.counters.SpeciesCompleted++
	t.mu.Unlock()
}

// SetTotal sets the number of species scheduled for the run
func (t *Tracker) SetTotal(n int) {
	t.mu.Lock()
	t.counters.SpeciesTotal = n
	t.mu.Unlock()
	t.metrics.SetSpeciesTotal(n)
}

// Snapshot returns a copy of the counters
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters
}

// Report logs the counters and completion percentage
func (t *Tracker) Report() {
	s := t.Snapshot()
	logger.LogHarvestProgress(t.logger, s.RequestsIssued, s.SpeciesCompleted, s.SpeciesTotal)
}
