// Package resources fetches the dashboard's JSON resources.
package resources

import (
	"anthrometer/config"
	"anthrometer/internal/snapshot"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Resource file names under the data base URL.
const (
	ResourceIndex      = "gti.json"
	ResourceStatus     = "status.json"
	ResourceCategories = "categories.json"
	ResourceSources    = "sources.json"
	ResourceEvents     = "events.json"
	ResourceSummaries  = "summaries.json"
)

// maxBody caps a single resource read.
const maxBody = 16 << 20

// Client reads resources from a base URL. Besides http and https, file://
// URLs are served from the local filesystem.
type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	now        func() time.Time
}

// NewClient creates a resource client.
func NewClient(logger *zap.Logger, cfg *config.Config) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))

	timeout := cfg.Data.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		logger: logger,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		baseURL: strings.TrimRight(cfg.Data.BaseURL, "/"),
		now:     time.Now,
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// resourceURL builds the cache-defeating URL for one resource.
func (c *Client) resourceURL(name string) string {
	q := url.Values{}
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))
	return c.baseURL + "/" + name + "?" + q.Encode()
}

// FetchAll fetches every resource concurrently and merges the results into
// one snapshot. It never fails: a resource that cannot be fetched or parsed
// is logged and replaced by its empty value.
func (c *Client) FetchAll(ctx context.Context) *snapshot.Snapshot {
	start := c.now()

	var (
		index      snapshot.IndexDocument
		status     *snapshot.Status
		categories *snapshot.Categories
		sources    *snapshot.Sources
		events     snapshot.YearText
		summaries  snapshot.YearText
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var doc snapshot.IndexDocument
		if !c.fetchOptional(gctx, ResourceIndex, &doc) {
			return nil
		}
		if err := doc.Series.Validate(); err != nil {
			c.fallback(ResourceIndex, err)
			return nil
		}
		index = doc
		return nil
	})
	g.Go(func() error {
		var st snapshot.Status
		if c.fetchOptional(gctx, ResourceStatus, &st) {
			status = &st
		}
		return nil
	})
	g.Go(func() error {
		var cats snapshot.Categories
		if c.fetchOptional(gctx, ResourceCategories, &cats) {
			categories = &cats
		}
		return nil
	})
	g.Go(func() error {
		var src snapshot.Sources
		if c.fetchOptional(gctx, ResourceSources, &src) {
			sources = &src
		}
		return nil
	})
	g.Go(func() error {
		var ev snapshot.YearText
		if c.fetchOptional(gctx, ResourceEvents, &ev) {
			events = ev
		}
		return nil
	})
	g.Go(func() error {
		var sum snapshot.YearText
		if c.fetchOptional(gctx, ResourceSummaries, &sum) {
			summaries = sum
		}
		return nil
	})

	// Every goroutine swallows its own failure.
	_ = g.Wait()

	if events == nil {
		events = snapshot.YearText{}
	}
	if summaries == nil {
		summaries = snapshot.YearText{}
	}

	snap := &snapshot.Snapshot{
		Updated:    index.Updated,
		Series:     index.Series,
		Events:     events,
		Summaries:  summaries,
		Status:     status,
		Categories: categories,
		Sources:    sources,
		FetchedAt:  c.now(),
	}

	c.logger.Debug("fetched resources",
		zap.Int("points", len(snap.Series)),
		zap.Int("events", len(events)),
		zap.Int("summaries", len(summaries)),
		zap.Bool("status", status != nil),
		zap.String("token", snap.Token()),
		zap.Duration("elapsed", c.now().Sub(start)),
	)
	return snap
}

// FetchStatus fetches only the status resource.
func (c *Client) FetchStatus(ctx context.Context) (*snapshot.Status, error) {
	var st snapshot.Status
	if err := c.getJSON(ctx, ResourceStatus, &st); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ResourceStatus, err)
	}
	return &st, nil
}

func (c *Client) fetchOptional(ctx context.Context, name string, dest any) bool {
	if err := c.getJSON(ctx, name, dest); err != nil {
		c.fallback(name, err)
		return false
	}
	return true
}

func (c *Client) fallback(name string, err error) {
	c.logger.Warn("resource unavailable, using empty value",
		zap.String("resource", name),
		zap.Error(err),
	)
}

// getJSON performs a cache-defeating GET and decodes the JSON body.
func (c *Client) getJSON(ctx context.Context, name string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resourceURL(name), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
