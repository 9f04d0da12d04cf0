// Package client is the HTTP boundary to the remote recommender: text
// recommendations, image and voice uploads, and the admin surface. The
// ranking itself runs on the backend; nothing here re-sorts results.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sethvargo/go-retry"

	"github.com/seyard/shopquery/internal/logger"
	"github.com/seyard/shopquery/pkg/suggest"
)

// DefaultTopK is the user-facing recommend depth.
const DefaultTopK = 5

// SuggestTopK is the fixed candidate count for suggestion fetches.
const SuggestTopK = 8

// DefaultTimeout bounds a single recommend call. Uploads get their own,
// longer bound since the backend runs ASR or vision models on them.
const DefaultTimeout = 60 * time.Second

// Client talks to one recommender base URL. Safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *log.Logger
}

// New creates a client for baseURL, e.g. "http://127.0.0.1:18081".
// A non-positive timeout falls back to DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger.Default("client"),
	}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// recommendRequest is the POST /recommend body.
type recommendRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Recommend runs the primary text recommend action. Any non-2xx response or
// transport error is returned to the caller; this channel never retries.
func (c *Client) Recommend(ctx context.Context, query string, topK int) (*RecommendResponse, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	body, err := json.Marshal(recommendRequest{Query: query, TopK: topK})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recommend", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out RecommendResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchSuggestions implements suggest.Fetcher on top of Recommend with the
// fixed candidate count. Errors propagate to the engine, which swallows them
// into an empty dropdown; nothing reaches the primary error channel.
func (c *Client) FetchSuggestions(ctx context.Context, query string, limit int) ([]suggest.Suggestion, error) {
	if limit <= 0 {
		limit = SuggestTopK
	}
	res, err := c.Recommend(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	list := make([]suggest.Suggestion, 0, len(res.Items))
	for _, p := range res.Items {
		list = append(list, suggest.Suggestion{ID: p.ID, Name: p.Name, Score: p.Score})
	}
	return list, nil
}

// Reload asks the backend to reload products.json and rebuild its index.
func (c *Client) Reload(ctx context.Context) (*ReloadResponse, error) {
	var out ReloadResponse
	if err := c.postJSON(ctx, "/admin/reload", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats fetches product and category-mapper statistics.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/stats", nil)
	if err != nil {
		return nil, err
	}
	var out StatsResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearCategoryCache flushes the backend's LLM category-mapping cache.
func (c *Client) ClearCategoryCache(ctx context.Context) (*ClearCacheResponse, error) {
	var out ClearCacheResponse
	if err := c.postJSON(ctx, "/admin/clear_category_cache", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CategoryCacheStats reads the category-mapper cache statistics.
func (c *Client) CategoryCacheStats(ctx context.Context) (*CategoryMapperStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/category_cache_stats", nil)
	if err != nil {
		return nil, err
	}
	var out CategoryMapperStats
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks whether a recommender answers at the base URL.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/stats", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
	return nil
}

// DefaultPorts are probed in order during discovery, matching the ops
// scripts that launch the backend on one of these.
var DefaultPorts = []string{"18081", "8081", "8080", "19000"}

// Discover probes host on the candidate ports until one answers, retrying
// the full sweep with fibonacci backoff while the backend warms up. When no
// ports are given, a RECO_PORT env value is probed before the defaults.
// Returns the base URL of the first responder.
func Discover(ctx context.Context, host string, ports []string, probeTimeout time.Duration) (string, error) {
	if len(ports) == 0 {
		ports = DefaultPorts
		if env := os.Getenv("RECO_PORT"); env != "" {
			ports = append([]string{env}, ports...)
		}
	}
	if probeTimeout <= 0 {
		probeTimeout = 1 * time.Second
	}

	var found string
	b := retry.NewFibonacci(500 * time.Millisecond)
	err := retry.Do(ctx, retry.WithMaxRetries(4, b), func(ctx context.Context) error {
		for _, port := range ports {
			base := fmt.Sprintf("http://%s:%s", host, port)
			probe := New(base, probeTimeout)
			if err := probe.Ping(ctx); err != nil {
				log.Debugf("No recommender at %s: %v", base, err)
				continue
			}
			found = base
			return nil
		}
		return retry.RetryableError(ErrNoServerFound)
	})
	if err != nil {
		return "", ErrNoServerFound
	}
	return found, nil
}

// postJSON POSTs an empty body and decodes the JSON response into out.
func (c *Client) postJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// do executes the request and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debugf("%s %s -> %s", req.Method, req.URL.Path, resp.Status)
		return fmt.Errorf("%w: %s: %s", ErrBadStatus, resp.Status, bytes.TrimSpace(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	c.logger.Debugf("%s %s took %v", req.Method, req.URL.Path, time.Since(start))
	return nil
}
