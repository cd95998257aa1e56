// Package rickapi is the remote data source: a thin client for the public
// Rick and Morty REST API returning raw DTOs.
package rickapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://rickandmortyapi.com/api"

// Config holds configuration for the API client.
type Config struct {
	BaseURL string
	// Timeout bounds a single request when the caller's context carries no deadline.
	Timeout time.Duration
}

// CharacterFilter narrows the character list endpoint. Zero values are omitted.
type CharacterFilter struct {
	Name   string
	Status string
}

// Client performs one HTTP request per operation and is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewClient creates a new API client. A nil httpClient uses http.DefaultClient.
func NewClient(cfg *Config, httpClient *http.Client, logger zerolog.Logger) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", raw, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q: scheme and host are required", raw)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		timeout:    cfg.Timeout,
		logger:     logger.With().Str("component", "RickAPIClient").Logger(),
	}, nil
}

// Character fetches a single character.
func (c *Client) Character(ctx context.Context, id int) (CharacterDTO, error) {
	var dto CharacterDTO
	err := c.get(ctx, "character", "character/"+strconv.Itoa(id), nil, &dto)
	return dto, err
}

// Characters fetches several characters in one request. The API answers a
// single id with an object rather than an array, so that case is delegated
// to Character.
func (c *Client) Characters(ctx context.Context, ids []int) ([]CharacterDTO, error) {
	switch len(ids) {
	case 0:
		return nil, nil
	case 1:
		dto, err := c.Character(ctx, ids[0])
		if err != nil {
			return nil, err
		}
		return []CharacterDTO{dto}, nil
	}
	var dtos []CharacterDTO
	err := c.get(ctx, "characters", "character/"+joinIDs(ids), nil, &dtos)
	return dtos, err
}

// CharacterPage fetches one page of the character list.
func (c *Client) CharacterPage(ctx context.Context, page int, filter CharacterFilter) (CharacterPageDTO, error) {
	query := url.Values{"page": {strconv.Itoa(page)}}
	if filter.Name != "" {
		query.Set("name", filter.Name)
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	var dto CharacterPageDTO
	err := c.get(ctx, "character page", "character", query, &dto)
	return dto, err
}

// Episode fetches a single episode.
func (c *Client) Episode(ctx context.Context, id int) (EpisodeDTO, error) {
	var dto EpisodeDTO
	err := c.get(ctx, "episode", "episode/"+strconv.Itoa(id), nil, &dto)
	return dto, err
}

// Episodes fetches several episodes in one request.
func (c *Client) Episodes(ctx context.Context, ids []int) ([]EpisodeDTO, error) {
	switch len(ids) {
	case 0:
		return nil, nil
	case 1:
		dto, err := c.Episode(ctx, ids[0])
		if err != nil {
			return nil, err
		}
		return []EpisodeDTO{dto}, nil
	}
	var dtos []EpisodeDTO
	err := c.get(ctx, "episodes", "episode/"+joinIDs(ids), nil, &dtos)
	return dtos, err
}

// EpisodePage fetches one page of the episode list.
func (c *Client) EpisodePage(ctx context.Context, page int) (EpisodePageDTO, error) {
	var dto EpisodePageDTO
	err := c.get(ctx, "episode page", "episode", url.Values{"page": {strconv.Itoa(page)}}, &dto)
	return dto, err
}

func (c *Client) get(ctx context.Context, op, resource string, query url.Values, out any) error {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL.JoinPath(resource)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug().
		Str("url", u.String()).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("API request completed.")

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
		return &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    body.Error,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// IDFromURL extracts the trailing numeric id of a resource URL such as
// "https://rickandmortyapi.com/api/episode/28".
func IDFromURL(resourceURL string) (int, bool) {
	if resourceURL == "" {
		return 0, false
	}
	u, err := url.Parse(resourceURL)
	if err != nil {
		return 0, false
	}
	id, err := strconv.Atoi(path.Base(strings.TrimSuffix(u.Path, "/")))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// IDsFromURLs maps resource URLs to ids, skipping any that do not end in one.
func IDsFromURLs(resourceURLs []string) []int {
	ids := make([]int, 0, len(resourceURLs))
	for _, u := range resourceURLs {
		if id, ok := IDFromURL(u); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
