package scraper

import (
	"context"

	"inatscraper/internal/downloader"
	"inatscraper/pkg/inaturalist"
	"inatscraper/pkg/species"
)

// ObservationClient defines the iNaturalist operation a processor needs
type ObservationClient interface {
	ObservationsRaw(ctx context.Context, q inaturalist.ObservationQuery) ([]byte, error)
}

// PhotoRunner downloads one species' photo batch
type PhotoRunner interface {
	Run(ctx context.Context, folderKey string, refs []inaturalist.PhotoReference) []downloader.PhotoResult
}

// SpeciesLister enumerates and resolves species
type SpeciesLister interface {
	Bulk(ctx context.Context) ([]species.Species, error)
	Lookup(ctx context.Context, name string) (species.Species, error)
}
