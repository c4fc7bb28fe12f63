// Package noaa fetches the real-time solar wind text feed and layers caching
// and synthetic fallback on top of it.
package noaa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/couchcryptid/space-weather-etl/internal/observability"
)

// DefaultFeedURL is the SWPC one-minute real-time solar wind product.
const DefaultFeedURL = "https://services.swpc.noaa.gov/text/rtsw/data/rtsw_wind_1m.txt"

// maxFeedBytes caps the response body read from the feed.
const maxFeedBytes = 8 << 20

// ErrEmptyFeed is returned when the feed responds with no content.
var ErrEmptyFeed = errors.New("empty feed")

// Client fetches feed text over HTTP.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a feed client with the given request timeout.
func NewClient(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Key identifies this feed in caches.
func (c *Client) Key() string {
	return c.url
}

// Fetch performs one GET of the feed URL.
func (c *Client) Fetch(ctx context.Context) (domain.RawFeed, error) {
	start := time.Now()
	feed, err := c.fetch(ctx)
	c.metrics.FeedFetchDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrEmptyFeed):
		c.metrics.FeedFetches.WithLabelValues("empty").Inc()
	case err != nil:
		c.metrics.FeedFetches.WithLabelValues("error").Inc()
	default:
		c.metrics.FeedFetches.WithLabelValues("success").Inc()
		c.logger.Debug("feed fetched", "url", c.url, "bytes", len(feed.Text))
	}
	return feed, err
}

func (c *Client) fetch(ctx context.Context) (domain.RawFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return domain.RawFeed{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawFeed{}, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.RawFeed{}, fmt.Errorf("feed error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return domain.RawFeed{}, fmt.Errorf("read feed body: %w", err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return domain.RawFeed{}, ErrEmptyFeed
	}

	return domain.RawFeed{
		Text:      string(body),
		Source:    c.url,
		FetchedAt: time.Now().UTC(),
	}, nil
}
