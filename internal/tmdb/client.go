// Package tmdb talks to The Movie Database HTTP API.  Every outbound call
// passes through a shared three-slot admission gate, and remote failures
// are classified into ErrBadParams, ErrUpstream and ErrInvalidPayload.
package tmdb

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

	"golang.org/x/sync/semaphore"

	"github.com/iliyamo/movies-from-a-hat/internal/config"
	"github.com/iliyamo/movies-from-a-hat/internal/utils"
)

// MaxConcurrent is the number of TMDB requests allowed in flight.
const MaxConcurrent = 3

var (
	// ErrBadParams reports a 4xx answer: the caller's input was rejected.
	ErrBadParams = errors.New("tmdb rejected request params")
	// ErrUpstream reports a 5xx answer or a transport failure.
	ErrUpstream = errors.New("tmdb upstream unavailable")
	// ErrInvalidPayload reports a body that could not be decoded or lacked
	// required fields.
	ErrInvalidPayload = errors.New("invalid TMDB payload")
)

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	gate    *semaphore.Weighted
}

// New builds a client from the application config.
func New(cfg config.Config) *Client {
	return NewClient(cfg.TMDBAPIURL, cfg.TMDBAPIKey, cfg.TMDBTimeout)
}

// NewClient builds a client against baseURL (no trailing slash needed).
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		gate:    semaphore.NewWeighted(MaxConcurrent),
	}
}

// Search queries /search/movie.  Adult titles are always excluded.  year
// and page are sent only when set.
func (c *Client) Search(ctx context.Context, query string, year *int, page int) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("query", query)
	q.Set("include_adult", "false")
	if year != nil {
		q.Set("year", strconv.Itoa(*year))
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}

	body, err := c.get(ctx, "/search/movie", q)
	if err != nil {
		return nil, err
	}
	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		slog.Error("tmdb search decode failed", "err", err, "body", truncate(body))
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if out.Results == nil {
		out.Results = []SearchResult{}
	}
	return out.Results, nil
}

// FetchDetail loads /movie/{id} with release dates appended and returns
// the movie fields, its rating and its genre names.
func (c *Client) FetchDetail(ctx context.Context, id int) (*MovieDetail, *string, []string, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("append_to_response", "release_dates")

	body, err := c.get(ctx, "/movie/"+strconv.Itoa(id), q)
	if err != nil {
		return nil, nil, nil, err
	}
	var raw detailResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		slog.Error("tmdb detail decode failed", "tmdb_id", id, "err", err, "body", truncate(body))
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	detail, err := raw.validate()
	if err != nil {
		slog.Error("tmdb detail invalid", "tmdb_id", id, "err", err, "body", truncate(body))
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	rating := RatingFromReleaseDates(*raw.ReleaseDates, RatingRegion)
	genres := make([]string, 0, len(raw.Genres))
	for _, g := range raw.Genres {
		genres = append(genres, g.Name)
	}
	return detail, rating, genres, nil
}

// get performs one GET while holding a gate slot and returns the body of a
// 2xx answer.
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.gate.Release(1)

	u := c.baseURL + path + "?" + q.Encode()
	safeURL := utils.RedactSecrets(u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build tmdb request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Error("tmdb request failed", "url", safeURL, "err", err)
		return nil, fmt.Errorf("%w: %s", ErrUpstream, utils.RedactSecrets(err.Error()))
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		slog.Error("tmdb read failed", "url", safeURL, "err", err)
		return nil, fmt.Errorf("%w: %s", ErrUpstream, utils.RedactSecrets(err.Error()))
	}

	slog.Debug("tmdb request", "url", safeURL, "status", resp.StatusCode, "duration", time.Since(start))

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		slog.Error("tmdb rejected request", "url", safeURL, "status", resp.StatusCode, "body", truncate(body))
		return nil, ErrBadParams
	case resp.StatusCode >= 300:
		slog.Error("tmdb upstream error", "url", safeURL, "status", resp.StatusCode, "body", truncate(body))
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return body, nil
}

func truncate(b []byte) string {
	const n = 512
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
