package noaa

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/couchcryptid/space-weather-etl/internal/observability"
	"github.com/couchcryptid/space-weather-etl/internal/simulate"
	"github.com/jonboulle/clockwork"
)

// Source yields the current feed text.
type Source interface {
	Fetch(ctx context.Context) (domain.RawFeed, error)
}

// CachedSource serves feeds from a cache while they are fresh and refetches
// otherwise. Cache failures degrade to a direct fetch.
type CachedSource struct {
	inner   Source
	cache   FeedCache
	key     string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedSource wraps inner with cache under key.
func NewCachedSource(inner Source, cache FeedCache, key string, metrics *observability.Metrics, logger *slog.Logger) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   cache,
		key:     key,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *CachedSource) Fetch(ctx context.Context) (domain.RawFeed, error) {
	feed, ok, err := s.cache.Get(ctx, s.key)
	switch {
	case err != nil:
		s.metrics.FeedCache.WithLabelValues("error").Inc()
		s.logger.Warn("feed cache lookup failed", "key", s.key, "error", err)
	case ok:
		s.metrics.FeedCache.WithLabelValues("hit").Inc()
		return feed, nil
	default:
		s.metrics.FeedCache.WithLabelValues("miss").Inc()
	}

	feed, err = s.inner.Fetch(ctx)
	if err != nil {
		return domain.RawFeed{}, err
	}
	if err := s.cache.Set(ctx, s.key, feed); err != nil {
		s.logger.Warn("feed cache store failed", "key", s.key, "error", err)
	}
	return feed, nil
}

// Clear empties the underlying cache.
func (s *CachedSource) Clear(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear feed cache: %w", err)
	}
	return nil
}

// FallbackSource returns synthetic feed text when the primary source fails.
type FallbackSource struct {
	primary Source
	window  time.Duration
	step    time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger

	mu  sync.Mutex
	gen *simulate.Generator
}

// NewFallbackSource wraps primary. Synthetic feeds cover window at one-minute
// resolution, ending at the current time.
func NewFallbackSource(primary Source, gen *simulate.Generator, window time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *FallbackSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FallbackSource{
		primary: primary,
		window:  window,
		step:    time.Minute,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
		gen:     gen,
	}
}

func (s *FallbackSource) Fetch(ctx context.Context) (domain.RawFeed, error) {
	feed, err := s.primary.Fetch(ctx)
	if err == nil {
		return feed, nil
	}
	// Shutting down is not a feed outage.
	if ctx.Err() != nil {
		return domain.RawFeed{}, err
	}

	s.metrics.FeedFallbacks.Inc()
	s.logger.Warn("feed unavailable, serving synthetic data", "error", err)
	return s.synthetic(), nil
}

func (s *FallbackSource) synthetic() domain.RawFeed {
	now := s.clock.Now().UTC().Truncate(s.step)
	n := max(int(s.window/s.step), 1)

	s.mu.Lock()
	text := s.gen.FeedText(now.Add(-time.Duration(n-1)*s.step), n, s.step)
	s.mu.Unlock()

	return domain.RawFeed{
		Text:      text,
		Source:    simulate.SourceTag,
		FetchedAt: now,
	}
}
