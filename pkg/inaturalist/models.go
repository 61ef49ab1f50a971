package inaturalist

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Taxon is the subset of a taxon record the harvester needs
type Taxon struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	Rank                string `json:"rank,omitempty"`
	PreferredCommonName string `json:"preferred_common_name,omitempty"`
}

// Photo is one photo attached to an observation
type Photo struct {
	ID          int    `json:"id"`
	URL         string `json:"url"`
	Attribution string `json:"attribution,omitempty"`
}

// ObservationPhoto links a photo to an observation in display order
type ObservationPhoto struct {
	ID       int   `json:"id"`
	Position int   `json:"position"`
	Photo    Photo `json:"photo"`
}

// Observation is one observation record. The API returns the same photos
// twice: ordered under observation_photos and flattened under photos.
type Observation struct {
	ID                int                `json:"id"`
	ObservationPhotos []ObservationPhoto `json:"observation_photos"`
	Photos            []Photo            `json:"photos,omitempty"`
}

// FirstPhotoURL returns the URL of the observation's first photo, taken from
// observation_photos and falling back to photos when that list is absent
func (o Observation) FirstPhotoURL() string {
	if len(o.ObservationPhotos) > 0 {
		return o.ObservationPhotos[0].Photo.URL
	}
	if len(o.Photos) > 0 {
		return o.Photos[0].URL
	}
	return ""
}

// ObservationResult is the body of an observations query
type ObservationResult struct {
	TotalResults int           `json:"total_results"`
	Page         int           `json:"page"`
	PerPage      int           `json:"per_page"`
	Results      []Observation `json:"results"`
}

// PhotoReference is a downloadable photo and its position in the species batch
type PhotoReference struct {
	URL   string
	Index int
}

// SpeciesCount is one row of a species_counts page
type SpeciesCount struct {
	Count int   `json:"count"`
	Taxon Taxon `json:"taxon"`
}

// SpeciesCountsPage is one page of species_counts results
type SpeciesCountsPage struct {
	TotalResults int            `json:"total_results"`
	Page         int            `json:"page"`
	PerPage      int            `json:"per_page"`
	Results      []SpeciesCount `json:"results"`
}

// SearchResult is one hit of the site-wide search
type SearchResult struct {
	Type   string `json:"type"`
	Record Taxon  `json:"record"`
}

// SearchPage is the body of a search query
type SearchPage struct {
	TotalResults int            `json:"total_results"`
	Results      []SearchResult `json:"results"`
}

// ParseObservationResult decodes a raw observations body, as fetched or as cached
func ParseObservationResult(raw []byte) (*ObservationResult, error) {
	var result ObservationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse observation result: %w", err)
	}
	return &result, nil
}

// MediumURL swaps the first "square" size token for "medium"
func MediumURL(photoURL string) string {
	return strings.Replace(photoURL, "square", "medium", 1)
}

// PhotoReferences takes the first photo of each observation, in result order.
// Observations without photos are skipped and do not consume an index.
func (r *ObservationResult) PhotoReferences() []PhotoReference {
	refs := make([]PhotoReference, 0, len(r.Results))
	for _, obs := range r.Results {
		photoURL := obs.FirstPhotoURL()
		if photoURL == "" {
			continue
		}
		refs = append(refs, PhotoReference{
			URL:   MediumURL(photoURL),
			Index: len(refs),
		})
	}
	return refs
}
