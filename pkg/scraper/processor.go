package scraper

import (
	"context"
	"fmt"

	"inatscraper/internal/downloader"
	"inatscraper/pkg/cache"
	errs "inatscraper/pkg/errors"
	"inatscraper/pkg/inaturalist"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/metrics"
	"inatscraper/pkg/progress"
	"inatscraper/pkg/ratelimit"
	"inatscraper/pkg/species"
	"inatscraper/pkg/storage"
)

// Species outcomes
const (
	StatusSkipped   = "skipped"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	// DefaultSatisfiedThreshold is the file count at which a species folder
	// is considered done and never revisited
	DefaultSatisfiedThreshold = 30

	// DefaultImagesPerSpecies is the per-species photo target
	DefaultImagesPerSpecies = 100
)

// SpeciesResult is the outcome of processing one species. Files is the
// on-disk count after processing; Downloaded counts photos saved this run.
// A failed species carries Err and still counts as done.
type SpeciesResult struct {
	Species    species.Species
	Status     string
	Files      int
	Downloaded int
	Err        error
}

// ProcessorDeps are the shared collaborators of every SpeciesProcessor call
type ProcessorDeps struct {
	Client  ObservationClient
	Cache   cache.ResponseCache
	Limiter ratelimit.Limiter
	Tracker *progress.Tracker
	Storage *storage.Manager
	Photos  PhotoRunner
	Metrics *metrics.Harvest
	Logger  logger.Logger
}

// SpeciesProcessor harvests photos for a single species
type SpeciesProcessor struct {
	client    ObservationClient
	cache     cache.ResponseCache
	limiter   ratelimit.Limiter
	tracker   *progress.Tracker
	storage   *storage.Manager
	photos    PhotoRunner
	metrics   *metrics.Harvest
	logger    logger.Logger
	target    int
	satisfied int
}

// NewSpeciesProcessor creates a processor aiming for target photos per
// species. A satisfied threshold of zero uses DefaultSatisfiedThreshold.
func NewSpeciesProcessor(deps ProcessorDeps, target, satisfied int) (*SpeciesProcessor, error) {
	if deps.Client == nil || deps.Limiter == nil || deps.Tracker == nil || deps.Storage == nil || deps.Photos == nil {
		return nil, fmt.Errorf("species processor requires client, limiter, tracker, storage and photo runner")
	}
	if target <= 0 {
		target = DefaultImagesPerSpecies
	}
	if target > inaturalist.MaxObservationsPerPage {
		return nil, errs.Configuration("images per species %d exceeds the API page size of %d", target, inaturalist.MaxObservationsPerPage)
	}
	if satisfied <= 0 {
		satisfied = DefaultSatisfiedThreshold
	}
	if deps.Cache == nil {
		deps.Cache = cache.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.GetLogger()
	}

	return &SpeciesProcessor{
		client:    deps.Client,
		cache:     deps.Cache,
		limiter:   deps.Limiter,
		tracker:   deps.Tracker,
		storage:   deps.Storage,
		photos:    deps.Photos,
		metrics:   deps.Metrics,
		logger:    deps.Logger.WithField("component", "species_processor"),
		target:    target,
		satisfied: satisfied,
	}, nil
}

// Process runs one species from the satisfied check to the final recount.
// Failures are contained in the returned result; the tracker is updated
// exactly once whatever the outcome.
func (p *SpeciesProcessor) Process(ctx context.Context, sp species.Species) SpeciesResult {
	res := SpeciesResult{Species: sp}
	log := p.logger.WithFields(map[string]interface{}{
		"species":   sp.Name,
		"taxon_id":  sp.TaxonID,
		"folder":    sp.FolderKey,
		"target":    p.target,
		"satisfied": p.satisfied,
	})

	count, err := p.storage.CountFiles(sp.FolderKey)
	if err != nil {
		return p.finish(log, res, StatusFailed, err)
	}
	if count >= p.satisfied {
		res.Files = count
		log.DebugWithFields("Species already satisfied, skipping", map[string]interface{}{
			"files": count,
		})
		return p.finish(log, res, StatusSkipped, nil)
	}

	if _, err := p.storage.EnsureSpeciesDir(sp.FolderKey); err != nil {
		return p.finish(log, res, StatusFailed, err)
	}

	result, err := p.observations(ctx, log, sp)
	if err != nil {
		res.Files, _ = p.storage.CountFiles(sp.FolderKey)
		return p.finish(log, res, StatusFailed, err)
	}

	count, err = p.storage.CountFiles(sp.FolderKey)
	if err != nil {
		return p.finish(log, res, StatusFailed, err)
	}

	if count < p.target && count < result.TotalResults {
		existing, err := p.storage.PhotoIndexes(sp.FolderKey)
		if err != nil {
			return p.finish(log, res, StatusFailed, err)
		}
		refs := missingRefs(result.PhotoReferences(), existing, p.target-count)
		log.DebugWithFields("Dispatching photo batch", map[string]interface{}{
			"files":         count,
			"total_results": result.TotalResults,
			"photos":        len(refs),
		})
		if len(refs) > 0 {
			res.Downloaded = downloader.CountSaved(p.photos.Run(ctx, sp.FolderKey, refs))
		}
	}

	res.Files, err = p.storage.CountFiles(sp.FolderKey)
	if err != nil {
		return p.finish(log, res, StatusFailed, err)
	}
	return p.finish(log, res, StatusCompleted, nil)
}

// missingRefs drops references whose photo is already on disk and keeps at
// most limit of the rest, so a re-run fills gaps instead of overwriting
func missingRefs(refs []inaturalist.PhotoReference, existing map[int]bool, limit int) []inaturalist.PhotoReference {
	out := make([]inaturalist.PhotoReference, 0, limit)
	for _, ref := range refs {
		if len(out) == limit {
			break
		}
		if existing[ref.Index] {
			continue
		}
		out = append(out, ref)
	}
	return out
}

// observations returns the parsed observations for sp, from the cache when
// possible. A fetched body is cached once it parses, whatever it contains;
// a cached body that no longer parses is refetched.
func (p *SpeciesProcessor) observations(ctx context.Context, log logger.Logger, sp species.Species) (*inaturalist.ObservationResult, error) {
	raw, ok, err := p.cache.Get(ctx, sp.FolderKey)
	if err != nil {
		log.WithError(err).Warn("Response cache read failed, fetching from API")
	}
	if ok {
		result, err := inaturalist.ParseObservationResult(raw)
		if err == nil {
			p.metrics.IncCacheHit()
			log.Info("Cache used for species")
			return result, nil
		}
		log.WithError(err).Warn("Cached observations unreadable, fetching again")
	}
	p.metrics.IncCacheMiss()

	if err := p.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	p.tracker.RecordRequest()

	raw, err = p.client.ObservationsRaw(ctx, inaturalist.NewObservationQuery(sp.TaxonID, p.target))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observations for %s: %w", sp.Name, err)
	}

	result, err := inaturalist.ParseObservationResult(raw)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "observations for %s", sp.Name)
	}

	if err := p.cache.Put(ctx, sp.FolderKey, raw); err != nil {
		log.WithError(err).Warn("Failed to store observations in response cache")
	}
	return result, nil
}

func (p *SpeciesProcessor) finish(log logger.Logger, res SpeciesResult, status string, err error) SpeciesResult {
	res.Status = status
	res.Err = err

	p.tracker.RecordSpeciesDone()
	p.metrics.ObserveSpecies(status)

	switch status {
	case StatusFailed:
		log.WithError(err).WithField("files", res.Files).Error("Species failed")
	case StatusCompleted:
		log.InfoWithFields("Species done", map[string]interface{}{
			"files":      res.Files,
			"downloaded": res.Downloaded,
		})
	}
	if status != StatusSkipped {
		p.tracker.Report()
	}
	return res
}
