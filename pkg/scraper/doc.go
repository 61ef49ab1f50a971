// Package scraper runs the species photo harvest.
//
// A harvest has two levels of concurrency. The SpeciesBatchRunner drives a
// pool of species workers over the species list; each worker runs a
// SpeciesProcessor, which starts its own short-lived pool of photo workers
// for that species' downloads.
//
// For every species the processor:
//   - skips the species outright when its folder already holds enough files
//   - reads the observation response from the cache, or takes a rate
//     limiter slot and queries the API, caching whatever comes back
//   - dispatches at most target minus on-disk count photo references
//   - recounts the folder and records the species as done
//
// Usage:
//
//	cfg, err := config.Load("", nil)
//	if err != nil {
//		return err
//	}
//	store, err := cache.Open(cfg.Cache.Path, cfg.Cache.SizeLimit, cfg.Cache.MemoryTTL, cfg.Cache.Disabled)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	h, err := scraper.New(cfg, store, nil, logger.GetLogger())
//	if err != nil {
//		return err
//	}
//	summary, err := h.Run(ctx, []string{"Ocean Triggerfish"})
//
// Per-species failures never abort a run. They are logged and returned in
// the summary. Only a species name that cannot be resolved, or a bulk
// species listing that cannot be fetched, ends a run with an error.
package scraper
