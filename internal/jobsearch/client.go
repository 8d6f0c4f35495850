package jobsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrJobNotFound is returned by Details when the API has no such listing.
var ErrJobNotFound = errors.New("job not found")

// maxErrorBody caps how much of an error response is kept in the error text.
const maxErrorBody = 512

// ClientConfig holds configuration for the JSearch client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	Host       string
	HTTPClient *http.Client
}

// Client calls the JSearch REST API.
type Client struct {
	apiKey  string
	baseURL string
	host    string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a JSearch client.
func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("jsearch API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("jsearch base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		host:    cfg.Host,
		http:    httpClient,
		logger:  logger,
	}, nil
}

// Search returns listings matching q.
func (c *Client) Search(ctx context.Context, q Query) ([]Job, error) {
	params := url.Values{}
	params.Set("query", q.Query)
	params.Set("page", "1")
	params.Set("num_pages", strconv.Itoa(max(q.NumPages, 1)))
	params.Set("country", defaultString(q.Country, "us"))
	params.Set("date_posted", defaultString(q.DatePosted, "all"))
	if q.EmploymentTypes != "" {
		params.Set("employment_types", q.EmploymentTypes)
	}
	if q.JobRequirements != "" {
		params.Set("job_requirements", q.JobRequirements)
	}
	if q.WorkFromHome {
		params.Set("work_from_home", "true")
	}

	var resp searchResponse
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("jsearch search complete", "query", q.Query, "results", len(resp.Data))
	if resp.Data == nil {
		return []Job{}, nil
	}
	return resp.Data, nil
}

// Details returns the listing with the given id.
func (c *Client) Details(ctx context.Context, jobID, country string) (*Job, error) {
	params := url.Values{}
	params.Set("job_id", jobID)
	params.Set("country", defaultString(country, "us"))

	var resp searchResponse
	if err := c.get(ctx, "/job-details", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return &resp.Data[0], nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build jsearch request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	if c.host != "" {
		req.Header.Set("X-RapidAPI-Host", c.host)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("jsearch %s request failed: %w", path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close jsearch response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("jsearch %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode jsearch %s response: %w", path, err)
	}
	return nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
