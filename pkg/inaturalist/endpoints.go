package inaturalist

import (
	"net/url"
	"strconv"
)

const (
	// DefaultBaseURL is the versioned root of the public API
	DefaultBaseURL = "https://api.inaturalist.org/v1"

	// ObservationsEndpoint lists observations
	ObservationsEndpoint = "/observations"

	// SpeciesCountsEndpoint lists taxa with observation counts for a query
	SpeciesCountsEndpoint = "/observations/species_counts"

	// SearchEndpoint is the site-wide search
	SearchEndpoint = "/search"

	// MaxObservationsPerPage is the largest per_page the observations endpoint honours
	MaxObservationsPerPage = 200

	// MaxSpeciesCountsPerPage is the largest per_page species_counts honours
	MaxSpeciesCountsPerPage = 500
)

// ObservationQuery selects the photos harvested for one taxon
type ObservationQuery struct {
	TaxonID        int
	QualityGrade   string
	OrderBy        string
	PhotosRequired bool
	PerPage        int
}

// NewObservationQuery returns the research-grade, most-voted query for a taxon
func NewObservationQuery(taxonID, perPage int) ObservationQuery {
	if perPage <= 0 || perPage > MaxObservationsPerPage {
		perPage = MaxObservationsPerPage
	}
	return ObservationQuery{
		TaxonID:        taxonID,
		QualityGrade:   "research",
		OrderBy:        "votes",
		PhotosRequired: true,
		PerPage:        perPage,
	}
}

// Values encodes the query; photo_license is always "any"
func (q ObservationQuery) Values() url.Values {
	params := url.Values{}
	params.Set("taxon_id", strconv.Itoa(q.TaxonID))
	params.Set("order_by", q.OrderBy)
	params.Set("quality_grade", q.QualityGrade)
	params.Set("photo_license", "any")
	params.Set("photos", strconv.FormatBool(q.PhotosRequired))
	params.Set("per_page", strconv.Itoa(q.PerPage))
	return params
}

// SpeciesCountsQuery is the geographic query behind bulk mode
type SpeciesCountsQuery struct {
	Latitude   float64
	Longitude  float64
	Radius     float64
	IconicTaxa string
	PerPage    int
}

// Values encodes the query for the given 1-based page
func (q SpeciesCountsQuery) Values(page int) url.Values {
	perPage := q.PerPage
	if perPage <= 0 || perPage > MaxSpeciesCountsPerPage {
		perPage = MaxSpeciesCountsPerPage
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	params.Set("lng", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	params.Set("radius", strconv.FormatFloat(q.Radius, 'f', -1, 64))
	if q.IconicTaxa != "" {
		params.Set("iconic_taxa", q.IconicTaxa)
	}
	params.Set("captive", "false")
	params.Set("spam", "false")
	params.Set("verifiable", "true")
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))
	return params
}

// SearchValues encodes a taxa-only search for name
func SearchValues(name string) url.Values {
	params := url.Values{}
	params.Set("q", name)
	params.Set("sources", "taxa")
	return params
}
