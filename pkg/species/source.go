package species

import (
	"context"
	"fmt"
	"strings"

	errs "inatscraper/pkg/errors"
	"inatscraper/pkg/inaturalist"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/ratelimit"
	"inatscraper/pkg/retry"
)

// API is the part of the iNaturalist client the source needs
type API interface {
	SpeciesCounts(ctx context.Context, q inaturalist.SpeciesCountsQuery, page int) (*inaturalist.SpeciesCountsPage, error)
	SearchTaxa(ctx context.Context, name string) (*inaturalist.SearchPage, error)
}

// Source produces the list of species to harvest
type Source struct {
	api     API
	query   inaturalist.SpeciesCountsQuery
	limiter ratelimit.Limiter
	retry   *retry.Config
	logger  logger.Logger
}

// NewSource creates a source. limiter and retryCfg may be nil.
func NewSource(api API, query inaturalist.SpeciesCountsQuery, limiter ratelimit.Limiter, retryCfg *retry.Config, log logger.Logger) *Source {
	if log == nil {
		log = logger.GetLogger()
	}
	if retryCfg == nil {
		retryCfg = &retry.Config{MaxAttempts: 1}
	}
	return &Source{
		api:     api,
		query:   query,
		limiter: limiter,
		retry:   retryCfg,
		logger:  log.WithField("component", "species_source"),
	}
}

func (s *Source) acquire(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Acquire(ctx)
}

// Bulk pages through species_counts until every reported taxon has been
// collected or a page comes back empty. Species sharing a folder key are
// kept once, first occurrence wins.
func (s *Source) Bulk(ctx context.Context) ([]Species, error) {
	var (
		list     []Species
		seen     = make(map[string]int)
		received int
	)

	for page := 1; ; page++ {
		result, err := retry.DoWithResult(ctx, func(ctx context.Context) (*inaturalist.SpeciesCountsPage, error) {
			if err := s.acquire(ctx); err != nil {
				return nil, err
			}
			return s.api.SpeciesCounts(ctx, s.query, page)
		}, s.retry)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch species page %d: %w", page, err)
		}

		if len(result.Results) == 0 {
			break
		}
		received += len(result.Results)

		for _, row := range result.Results {
			name := strings.TrimSpace(row.Taxon.Name)
			if name == "" {
				continue
			}
			sp := New(row.Taxon.ID, name)
			if prev, dup := seen[sp.FolderKey]; dup {
				s.logger.WarnWithFields("duplicate folder key, keeping first taxon", map[string]interface{}{
					"folder_key":    sp.FolderKey,
					"kept_taxon":    prev,
					"skipped_taxon": sp.TaxonID,
				})
				continue
			}
			seen[sp.FolderKey] = sp.TaxonID
			list = append(list, sp)
		}

		s.logger.DebugWithFields("species page fetched", map[string]interface{}{
			"page":          page,
			"received":      received,
			"total_results": result.TotalResults,
		})

		if received >= result.TotalResults {
			break
		}
	}

	s.logger.InfoWithFields("species list loaded", map[string]interface{}{
		"species": len(list),
	})
	return list, nil
}

// Lookup resolves a species name through taxa search, taking the first hit.
// A name with no hit yields a resolution error.
func (s *Source) Lookup(ctx context.Context, name string) (Species, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Species{}, errs.Resolution(name)
	}

	result, err := retry.DoWithResult(ctx, func(ctx context.Context) (*inaturalist.SearchPage, error) {
		if err := s.acquire(ctx); err != nil {
			return nil, err
		}
		return s.api.SearchTaxa(ctx, name)
	}, s.retry)
	if err != nil {
		return Species{}, errs.Wrap(errs.ErrorTypeResolution, err, "lookup of %q failed: %v", name, err)
	}

	if len(result.Results) == 0 || result.Results[0].Record.ID == 0 {
		return Species{}, errs.Resolution(name)
	}

	record := result.Results[0].Record
	s.logger.DebugWithFields("species resolved", map[string]interface{}{
		"query":    name,
		"taxon_id": record.ID,
		"name":     record.Name,
	})
	return New(record.ID, record.Name), nil
}
