package scraper

import (
	"context"
	"fmt"
	"time"

	"inatscraper/internal/downloader"
	"inatscraper/pkg/cache"
	"inatscraper/pkg/config"
	"inatscraper/pkg/inaturalist"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/metrics"
	"inatscraper/pkg/progress"
	"inatscraper/pkg/ratelimit"
	"inatscraper/pkg/retry"
	"inatscraper/pkg/species"
	"inatscraper/pkg/storage"
)

// Harvester wires the pipeline from configuration and runs it
type Harvester struct {
	config    *config.Config
	client    *inaturalist.Client
	source    SpeciesLister
	storage   *storage.Manager
	tracker   *progress.Tracker
	processor *SpeciesProcessor
	runner    *SpeciesBatchRunner
	logger    logger.Logger
}

// New builds a Harvester. store may be nil to run without a response cache,
// m may be nil to run without metrics.
func New(cfg *config.Config, store cache.ResponseCache, m *metrics.Harvest, log logger.Logger) (*Harvester, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	client := inaturalist.NewClient(cfg.API.BaseURL, cfg.API.Timeout, log)
	if cfg.API.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.API.UserAgent)
	}
	client.SetToken(cfg.API.Token)

	limiter, err := ratelimit.New(ratelimit.Options{
		Strategy: cfg.RateLimit.Strategy,
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		OnThrottle: func(wait time.Duration) {
			logger.LogRateLimit(log, wait)
			m.AddRateLimitWait(wait)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	storageManager, err := storage.NewManager(cfg.Harvest.RootDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	photoDownloader := downloader.NewPhotoDownloader(storageManager, cfg.Download.PhotoTimeout, log)
	photoDownloader.SetUserAgent(cfg.API.UserAgent)
	photoDownloader.SetMaxBytes(cfg.Download.MaxPhotoBytes)
	photoDownloader.SetMetrics(m)

	tracker := progress.NewTracker(m, log)

	processor, err := NewSpeciesProcessor(ProcessorDeps{
		Client:  client,
		Cache:   store,
		Limiter: limiter,
		Tracker: tracker,
		Storage: storageManager,
		Photos:  downloader.NewPhotoBatchRunner(photoDownloader, cfg.Download.PhotoWorkers, log),
		Metrics: m,
		Logger:  log,
	}, cfg.Harvest.ImagesPerSpecies, cfg.Harvest.SatisfiedThreshold)
	if err != nil {
		return nil, err
	}

	source := species.NewSource(client, inaturalist.SpeciesCountsQuery{
		Latitude:   cfg.Source.Latitude,
		Longitude:  cfg.Source.Longitude,
		Radius:     cfg.Source.Radius,
		IconicTaxa: cfg.Source.IconicTaxa,
		PerPage:    cfg.Source.PerPage,
	}, nil, retry.FromSettings(cfg.Retry, log), log)

	return &Harvester{
		config:    cfg,
		client:    client,
		source:    source,
		storage:   storageManager,
		tracker:   tracker,
		processor: processor,
		runner:    NewSpeciesBatchRunner(processor, tracker, cfg.Harvest.SpeciesWorkers, log),
		logger:    log,
	}, nil
}

// Tracker returns the run's progress counters
func (h *Harvester) Tracker() *progress.Tracker {
	return h.tracker
}

// Run harvests names one by one when given, otherwise every species of the
// configured bulk query. Only an unresolvable name or a failed species
// listing is returned as an error; per-species failures are in the summary.
func (h *Harvester) Run(ctx context.Context, names []string) (*Summary, error) {
	start := time.Now()

	if removed, err := h.storage.CleanPartials(); err != nil {
		h.logger.WithError(err).Warn("Failed to clean partial downloads")
	} else if removed > 0 {
		h.logger.InfoWithFields("Removed partial downloads from a previous run", map[string]interface{}{
			"files": removed,
		})
	}

	logger.LogComponentStart(h.logger, "harvester", map[string]interface{}{
		"root":             h.storage.Root(),
		"images":           h.config.Harvest.ImagesPerSpecies,
		"species_workers":  h.config.Harvest.SpeciesWorkers,
		"photo_workers":    h.config.Download.PhotoWorkers,
		"rate_limit":       h.config.RateLimit.Strategy,
		"single_mode":      len(names) > 0,
		"requested_names":  len(names),
		"api_base_url":     h.client.BaseURL(),
		"satisfied_at":     h.config.Harvest.SatisfiedThreshold,
		"rate_limit_quota": h.config.RateLimit.Requests,
	})

	var (
		results []SpeciesResult
		err     error
	)
	if len(names) > 0 {
		results, err = h.runner.RunNamed(ctx, h.source, names)
	} else {
		var list []species.Species
		list, err = h.source.Bulk(ctx)
		if err == nil {
			h.logger.InfoWithFields("Total species to process", map[string]interface{}{
				"species": len(list),
			})
			results = h.runner.Run(ctx, list)
		}
	}

	summary := Summarize(results, h.tracker, time.Since(start))
	h.logger.InfoWithFields("Harvest finished", map[string]interface{}{
		"completed":    summary.Completed,
		"skipped":      summary.Skipped,
		"failed":       summary.Failed,
		"photos_saved": summary.PhotosSaved,
		"requests":     summary.Requests,
		"duration":     summary.Duration,
	})
	return summary, err
}
