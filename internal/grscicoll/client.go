package grscicoll

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/grscicoll/ihsync/internal/entities"
	"github.com/grscicoll/ihsync/internal/sync"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultPageLimit   = 1000
	maxRetries         = 3
	initialRetryDelay  = 1 * time.Second
	retryBackoffFactor = 2
)

// Client interfaces with the GrSciColl registry API. It implements
// sync.RegistryWriter and provides the paged snapshot listings the diff run
// starts from.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a registry client. token is sent on every write; read
// endpoints are public.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// pageResponse is the envelope every registry list endpoint uses.
type pageResponse[T any] struct {
	Count        int  `json:"count"`
	Offset       int  `json:"offset"`
	EndOfRecords bool `json:"endOfRecords"`
	Results      []T  `json:"results"`
}

// ListInstitutions pages through every institution in the registry.
func (c *Client) ListInstitutions(ctx context.Context) ([]*entities.Institution, error) {
	return listAll[*entities.Institution](ctx, c, "/grscicoll/institution")
}

// ListCollections pages through every collection in the registry.
func (c *Client) ListCollections(ctx context.Context) ([]*entities.Collection, error) {
	return listAll[*entities.Collection](ctx, c, "/grscicoll/collection")
}

func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var all []T
	offset := 0

	for {
		u := fmt.Sprintf("%s%s?limit=%d&offset=%d", c.baseURL, path, defaultPageLimit, offset)
		var page pageResponse[T]
		if err := c.getJSON(ctx, u, &page); err != nil {
			return nil, fmt.Errorf("list %s at offset %d: %w", path, offset, err)
		}

		all = append(all, page.Results...)

		if page.EndOfRecords || len(page.Results) == 0 {
			break
		}
		offset += len(page.Results)
	}

	return all, nil
}

// CreateInstitution registers a new institution and returns its key.
func (c *Client) CreateInstitution(ctx context.Context, institution *entities.Institution) (uuid.UUID, error) {
	key, err := c.postEntity(ctx, "/grscicoll/institution", institution)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create institution %q: %w", institution.Name, err)
	}
	return key, nil
}

// UpdateInstitution overwrites an existing institution.
func (c *Client) UpdateInstitution(ctx context.Context, institution *entities.Institution) error {
	path := fmt.Sprintf("/grscicoll/institution/%s", institution.Key)
	if err := c.send(ctx, http.MethodPut, path, institution, nil); err != nil {
		return fmt.Errorf("update institution %s: %w", institution.Key, err)
	}
	return nil
}

// UpdateCollection overwrites an existing collection.
func (c *Client) UpdateCollection(ctx context.Context, collection *entities.Collection) error {
	path := fmt.Sprintf("/grscicoll/collection/%s", collection.Key)
	if err := c.send(ctx, http.MethodPut, path, collection, nil); err != nil {
		return fmt.Errorf("update collection %s: %w", collection.Key, err)
	}
	return nil
}

// CreatePerson registers a new person and links it as a contact of the given
// entity.
func (c *Client) CreatePerson(ctx context.Context, kind sync.EntityKind, entityKey uuid.UUID, person *entities.Person) (uuid.UUID, error) {
	key, err := c.postEntity(ctx, "/grscicoll/person", person)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create person %s %s: %w", person.FirstName, person.LastName, err)
	}

	path := fmt.Sprintf("/grscicoll/%s/%s/contact", url.PathEscape(string(kind)), entityKey)
	if err := c.send(ctx, http.MethodPost, path, key.String(), nil); err != nil {
		return uuid.Nil, fmt.Errorf("link person %s to %s %s: %w", key, kind, entityKey, err)
	}

	return key, nil
}

// UpdatePerson overwrites an existing person.
func (c *Client) UpdatePerson(ctx context.Context, person *entities.Person) error {
	path := fmt.Sprintf("/grscicoll/person/%s", person.Key)
	if err := c.send(ctx, http.MethodPut, path, person, nil); err != nil {
		return fmt.Errorf("update person %s: %w", person.Key, err)
	}
	return nil
}

// DeletePerson removes a person. The registry drops its contact links.
func (c *Client) DeletePerson(ctx context.Context, key uuid.UUID) error {
	path := fmt.Sprintf("/grscicoll/person/%s", key)
	if err := c.send(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete person %s: %w", key, err)
	}
	return nil
}

// postEntity creates an entity and decodes the returned key. The registry
// answers create calls with the bare key as a JSON string.
func (c *Client) postEntity(ctx context.Context, path string, body any) (uuid.UUID, error) {
	var raw string
	if err := c.send(ctx, http.MethodPost, path, body, &raw); err != nil {
		return uuid.Nil, err
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("unexpected create response %q: %w", raw, err)
	}
	return key, nil
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

// send performs an authenticated write. Writes are not retried: the registry
// does not guarantee idempotent creates.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Basic "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 500 {
		return &ServerError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
