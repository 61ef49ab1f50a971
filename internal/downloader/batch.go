package downloader

import (
	"context"

	"inatscraper/pkg/inaturalist"
	"inatscraper/pkg/logger"
)

// Fetcher downloads a single photo
type Fetcher interface {
	Fetch(ctx context.Context, url, folderKey string, index int) PhotoResult
}

// PhotoBatchRunner fans one species' photo references out over a fresh pool
type PhotoBatchRunner struct {
	fetcher Fetcher
	workers int
	logger  logger.Logger
}

// NewPhotoBatchRunner creates a runner. workers <= 0 gives every reference
// its own worker.
func NewPhotoBatchRunner(fetcher Fetcher, workers int, log logger.Logger) *PhotoBatchRunner {
	if log == nil {
		log = logger.GetLogger()
	}
	return &PhotoBatchRunner{
		fetcher: fetcher,
		workers: workers,
		logger:  log,
	}
}

// Run downloads every reference and returns the results in reference order
func (r *PhotoBatchRunner) Run(ctx context.Context, folderKey string, refs []inaturalist.PhotoReference) []PhotoResult {
	return Run(ctx, "photos:"+folderKey, r.workers, refs, func(ctx context.Context, _ int, ref inaturalist.PhotoReference) PhotoResult {
		return r.fetcher.Fetch(ctx, ref.URL, folderKey, ref.Index)
	}, r.logger)
}

// CountSaved returns how many results were written to disk
func CountSaved(results []PhotoResult) int {
	n := 0
	for _, r := range results {
		if r.Saved() {
			n++
		}
	}
	return n
}
