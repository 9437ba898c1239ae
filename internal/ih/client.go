package ih

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the public Index Herbariorum API.
	DefaultBaseURL = "http://sweetgum.nybg.org/science/api/v1"

	defaultTimeout     = 60 * time.Second
	maxRetries         = 3
	initialRetryDelay  = 1 * time.Second
	retryBackoffFactor = 2
)

// Client interfaces with the Index Herbariorum API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Index Herbariorum API client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// listResponse is the envelope every IH list endpoint uses.
type listResponse[T any] struct {
	Meta struct {
		Hits int `json:"hits"`
		Code int `json:"code"`
	} `json:"meta"`
	Data []T `json:"data"`
}

// FetchInstitutions retrieves the full institution directory.
func (c *Client) FetchInstitutions(ctx context.Context) ([]Institution, error) {
	var resp listResponse[Institution]
	if err := c.getJSON(ctx, c.baseURL+"/institutions", &resp); err != nil {
		return nil, fmt.Errorf("fetch institutions: %w", err)
	}
	return resp.Data, nil
}

// FetchStaff retrieves the staff list for one institution code.
func (c *Client) FetchStaff(ctx context.Context, code string) ([]Staff, error) {
	u := fmt.Sprintf("%s/staff/search?code=%s", c.baseURL, url.QueryEscape(code))
	var resp listResponse[Staff]
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetch staff for %s: %w", code, err)
	}
	return resp.Data, nil
}

// FetchCountries retrieves the distinct free-text country strings the
// directory uses, for coverage reporting.
func (c *Client) FetchCountries(ctx context.Context) ([]string, error) {
	var resp listResponse[string]
	if err := c.getJSON(ctx, c.baseURL+"/countries", &resp); err != nil {
		return nil, fmt.Errorf("fetch countries: %w", err)
	}
	return resp.Data, nil
}

// getJSON performs a GET with retry on transient failures and decodes the
// response into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	var lastErr error
	delay := initialRetryDelay

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= retryBackoffFactor
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = &ServerError{StatusCode: resp.StatusCode}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("giving up after %d attempts: %w", maxRetries, lastErr)
}
