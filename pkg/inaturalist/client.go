package inaturalist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "inatscraper/pkg/errors"
	"inatscraper/pkg/logger"
)

// Client talks to the iNaturalist v1 JSON API
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a client rooted at baseURL; every request is bounded by timeout
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"Accept": "application/json",
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetToken attaches an API token; an empty token removes it
func (c *Client) SetToken(token string) {
	if token == "" {
		delete(c.headers, "Authorization")
		return
	}
	c.headers["Authorization"] = token
}

// BaseURL returns the API root requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetRaw performs a GET against endpoint and returns the body of a 2xx response
func (c *Client) GetRaw(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.LogRequest(c.logger, req.Method, reqURL, 0, time.Since(start))
		return nil, errs.Network(err, "GET %s", endpoint)
	}
	defer resp.Body.Close()
	logger.LogRequest(c.logger, req.Method, reqURL, resp.StatusCode, time.Since(start))

	if err := checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Network(err, "failed to read response body")
	}
	return body, nil
}

// GetJSON performs a GET and decodes the JSON body into target
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, target interface{}) error {
	body, err := c.GetRaw(ctx, endpoint, params)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"endpoint":     endpoint,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse JSON from %s", endpoint)
	}
	return nil
}

// checkResponseStatus maps HTTP status codes onto typed errors
func checkResponseStatus(resp *http.Response) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	var t errs.ErrorType
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		t = errs.ErrorTypeAuth
	case code == http.StatusNotFound:
		t = errs.ErrorTypeNotFound
	case code == http.StatusTooManyRequests:
		t = errs.ErrorTypeRateLimit
	case code >= 500:
		t = errs.ErrorTypeServerError
	default:
		t = errs.ErrorTypeUnknown
	}
	return &errs.Error{
		Type:    t,
		Message: fmt.Sprintf("unexpected status %d from %s", code, resp.Request.URL.Path),
		Code:    code,
	}
}

// ObservationsRaw runs an observations query and returns the body untouched,
// so it can be cached byte-for-byte
func (c *Client) ObservationsRaw(ctx context.Context, q ObservationQuery) ([]byte, error) {
	return c.GetRaw(ctx, ObservationsEndpoint, q.Values())
}

// SpeciesCounts fetches one page of the species_counts listing
func (c *Client) SpeciesCounts(ctx context.Context, q SpeciesCountsQuery, page int) (*SpeciesCountsPage, error) {
	var result SpeciesCountsPage
	if err := c.GetJSON(ctx, SpeciesCountsEndpoint, q.Values(page), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchTaxa runs a taxa-only search for name
func (c *Client) SearchTaxa(ctx context.Context, name string) (*SearchPage, error) {
	var result SearchPage
	if err := c.GetJSON(ctx, SearchEndpoint, SearchValues(name), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
