package inaturalist

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "inatscraper/pkg/errors"
	"inatscraper/pkg/logger"
)

const testBaseURL = "https://api.test/v1"

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

func newTestClient() *Client {
	return NewClient(testBaseURL, 5*time.Second, logger.NewNopLogger())
}

const triggerfishBody = `{
  "total_results": 3,
  "page": 1,
  "per_page": 5,
  "results": [
    {"id": 11, "photos": [{"id": 1, "url": "https://static.test/photos/1/square.jpg"}, {"id": 2, "url": "https://static.test/photos/2/square.jpg"}]},
    {"id": 12, "photos": []},
    {"id": 13, "photos": [{"id": 3, "url": "https://static.test/square/3/square.jpeg"}]}
  ]
}`

func TestObservationsRaw(t *testing.T) {
	setupHTTPMock(t)

	httpmock.RegisterResponderWithQuery(http.MethodGet, testBaseURL+ObservationsEndpoint,
		map[string]string{
			"taxon_id":      "47226",
			"order_by":      "votes",
			"quality_grade": "research",
			"photo_license": "any",
			"photos":        "true",
			"per_page":      "5",
		},
		httpmock.NewStringResponder(http.StatusOK, triggerfishBody))

	client := newTestClient()
	raw, err := client.ObservationsRaw(context.Background(), NewObservationQuery(47226, 5))
	require.NoError(t, err)
	assert.JSONEq(t, triggerfishBody, string(raw))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	result, err := ParseObservationResult(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalResults)
	assert.Len(t, result.Results, 3)
}

func TestPhotoReferences(t *testing.T) {
	result, err := ParseObservationResult([]byte(triggerfishBody))
	require.NoError(t, err)

	refs := result.PhotoReferences()
	require.Len(t, refs, 2)

	// First photo only, photo-less observations consume no index
	assert.Equal(t, PhotoReference{URL: "https://static.test/photos/1/medium.jpg", Index: 0}, refs[0])
	// Only the first "square" is replaced
	assert.Equal(t, PhotoReference{URL: "https://static.test/medium/3/square.jpeg", Index: 1}, refs[1])
}

func TestPhotoReferencesPrefersObservationPhotos(t *testing.T) {
	result, err := ParseObservationResult([]byte(`{
  "total_results": 3,
  "results": [
    {"id": 21,
     "observation_photos": [{"id": 7, "position": 0, "photo": {"id": 70, "url": "https://static.test/photos/70/square.jpg"}}],
     "photos": [{"id": 71, "url": "https://static.test/photos/71/square.jpg"}]},
    {"id": 22, "observation_photos": []},
    {"id": 23, "observation_photos": [{"id": 8, "photo": {"id": 80, "url": "https://static.test/photos/80/square.png"}}]}
  ]
}`))
	require.NoError(t, err)

	assert.Equal(t, []PhotoReference{
		{URL: "https://static.test/photos/70/medium.jpg", Index: 0},
		{URL: "https://static.test/photos/80/medium.png", Index: 1},
	}, result.PhotoReferences())
}

func TestParseObservationResultZeroResults(t *testing.T) {
	result, err := ParseObservationResult([]byte(`{"total_results":0,"page":1,"per_page":100,"results":[]}`))
	require.NoError(t, err)
	assert.Zero(t, result.TotalResults)
	assert.Empty(t, result.PhotoReferences())

	_, err = ParseObservationResult([]byte(`<html>`))
	assert.Error(t, err)
}

func TestHTTPErrors(t *testing.T) {
	setupHTTPMock(t)

	tests := []struct {
		name       string
		statusCode int
		wantType   errs.ErrorType
	}{
		{"unauthorized", http.StatusUnauthorized, errs.ErrorTypeAuth},
		{"forbidden", http.StatusForbidden, errs.ErrorTypeAuth},
		{"not_found", http.StatusNotFound, errs.ErrorTypeNotFound},
		{"too_many_requests", http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{"internal_server_error", http.StatusInternalServerError, errs.ErrorTypeServerError},
		{"service_unavailable", http.StatusServiceUnavailable, errs.ErrorTypeServerError},
		{"bad_request", http.StatusBadRequest, errs.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpmock.Reset()
			httpmock.RegisterResponder(http.MethodGet, testBaseURL+ObservationsEndpoint,
				httpmock.NewStringResponder(tt.statusCode, `{"error":"nope"}`))

			_, err := newTestClient().ObservationsRaw(context.Background(), NewObservationQuery(1, 10))
			require.Error(t, err)
			assert.Equal(t, tt.wantType, errs.TypeOf(err))

			var typed *errs.Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, tt.statusCode, typed.Code)
		})
	}
}

func TestNetworkError(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+ObservationsEndpoint,
		httpmock.NewErrorResponder(assert.AnError))

	_, err := newTestClient().ObservationsRaw(context.Background(), NewObservationQuery(1, 10))
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestInvalidJSON(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+SearchEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{invalid json`))

	_, err := newTestClient().SearchTaxa(context.Background(), "Blue Tang")
	assert.True(t, errs.IsType(err, errs.ErrorTypeParsing))
}

func TestSpeciesCounts(t *testing.T) {
	setupHTTPMock(t)

	query := SpeciesCountsQuery{
		Latitude:   -15.760536148501288,
		Longitude:  77.64325073204107,
		Radius:     4054.037977613122,
		IconicTaxa: "Actinopterygii",
		PerPage:    500,
	}
	httpmock.RegisterResponderWithQuery(http.MethodGet, testBaseURL+SpeciesCountsEndpoint,
		map[string]string{
			"lat":         "-15.760536148501288",
			"lng":         "77.64325073204107",
			"radius":      "4054.037977613122",
			"iconic_taxa": "Actinopterygii",
			"captive":     "false",
			"spam":        "false",
			"verifiable":  "true",
			"per_page":    "500",
			"page":        "2",
		},
		httpmock.NewStringResponder(http.StatusOK,
			`{"total_results":501,"page":2,"per_page":500,"results":[{"count":7,"taxon":{"id":47226,"name":"Balistes capriscus","rank":"species"}}]}`))

	page, err := newTestClient().SpeciesCounts(context.Background(), query, 2)
	require.NoError(t, err)
	assert.Equal(t, 501, page.TotalResults)
	require.Len(t, page.Results, 1)
	assert.Equal(t, 47226, page.Results[0].Taxon.ID)
	assert.Equal(t, "Balistes capriscus", page.Results[0].Taxon.Name)
}

func TestSearchTaxaSendsToken(t *testing.T) {
	setupHTTPMock(t)

	httpmock.RegisterResponderWithQuery(http.MethodGet, testBaseURL+SearchEndpoint,
		map[string]string{"q": "Ocean Triggerfish", "sources": "taxa"},
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "secret-jwt", req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(http.StatusOK,
				`{"total_results":1,"results":[{"type":"Taxon","record":{"id":47226,"name":"Canthidermis maculata"}}]}`), nil
		})

	client := newTestClient()
	client.SetToken("secret-jwt")

	page, err := client.SearchTaxa(context.Background(), "Ocean Triggerfish")
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, 47226, page.Results[0].Record.ID)

	client.SetToken("")
	_, ok := client.headers["Authorization"]
	assert.False(t, ok)
}

func TestNewObservationQueryClampsPerPage(t *testing.T) {
	assert.Equal(t, MaxObservationsPerPage, NewObservationQuery(1, 0).PerPage)
	assert.Equal(t, MaxObservationsPerPage, NewObservationQuery(1, 1000).PerPage)
	assert.Equal(t, 30, NewObservationQuery(1, 30).PerPage)
}
