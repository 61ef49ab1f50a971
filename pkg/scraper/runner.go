package scraper

import (
	"context"
	"time"

	"inatscraper/internal/downloader"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/progress"
	"inatscraper/pkg/species"
)

// DefaultSpeciesWorkers is the species pool size
const DefaultSpeciesWorkers = 20

// Summary aggregates a run
type Summary struct {
	Results     []SpeciesResult
	Completed   int
	Skipped     int
	Failed      int
	PhotosSaved int
	Requests    int
	Duration    time.Duration
}

// Summarize folds results and the tracker's request count into a Summary
func Summarize(results []SpeciesResult, tracker *progress.Tracker, elapsed time.Duration) *Summary {
	s := &Summary{Results: results, Duration: elapsed}
	for _, r := range results {
		switch r.Status {
		case StatusCompleted:
			s.Completed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
		s.PhotosSaved += r.Downloaded
	}
	if tracker != nil {
		s.Requests = tracker.Snapshot().RequestsIssued
	}
	return s
}

// Processor handles one species
type Processor interface {
	Process(ctx context.Context, sp species.Species) SpeciesResult
}

// SpeciesBatchRunner runs a Processor over many species
type SpeciesBatchRunner struct {
	processor Processor
	tracker   *progress.Tracker
	workers   int
	logger    logger.Logger
}

// NewSpeciesBatchRunner creates a runner with a species pool of workers
func NewSpeciesBatchRunner(processor Processor, tracker *progress.Tracker, workers int, log logger.Logger) *SpeciesBatchRunner {
	if workers <= 0 {
		workers = DefaultSpeciesWorkers
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &SpeciesBatchRunner{
		processor: processor,
		tracker:   tracker,
		workers:   workers,
		logger:    log.WithField("component", "species_runner"),
	}
}

// Run processes list with bounded concurrency and returns the results in
// list order
func (r *SpeciesBatchRunner) Run(ctx context.Context, list []species.Species) []SpeciesResult {
	r.tracker.SetTotal(len(list))
	r.logger.InfoWithFields("Processing species", map[string]interface{}{
		"species": len(list),
		"workers": r.workers,
	})

	return downloader.Run(ctx, "species", r.workers, list, func(ctx context.Context, _ int, sp species.Species) SpeciesResult {
		return r.processor.Process(ctx, sp)
	}, r.logger)
}

// RunNamed resolves and processes names one after another. The first name
// that cannot be resolved stops the run; results for the names before it
// are returned along with the error.
func (r *SpeciesBatchRunner) RunNamed(ctx context.Context, lister SpeciesLister, names []string) ([]SpeciesResult, error) {
	r.tracker.SetTotal(len(names))

	results := make([]SpeciesResult, 0, len(names))
	for _, name := range names {
		sp, err := lister.Lookup(ctx, name)
		if err != nil {
			r.logger.WithError(err).WithField("query", name).Error("Species could not be resolved")
			return results, err
		}
		results = append(results, r.processor.Process(ctx, sp))
	}
	return results, nil
}
