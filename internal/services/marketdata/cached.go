package marketdata

import (
	"context"
	"time"

	"StockSim/internal/domain/models"
	"StockSim/internal/domain/repository"
	"StockSim/pkg/cache"
	"StockSim/pkg/logger"
)

// CachedSource memoizes another PriceSource. Monthly data changes at most daily,
// so a TTL of hours is typical.
type CachedSource struct {
	next  repository.PriceSource
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachedSource(next repository.PriceSource, c cache.Service, ttl time.Duration, l *logger.Logger) *CachedSource {
	if l == nil {
		l = logger.Nop()
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &CachedSource{next: next, cache: c, ttl: ttl, log: l}
}

func seriesKey(ticker string, years int) string {
	return cache.GenerateKeyWithParams("series", ticker, years)
}

func (s *CachedSource) FetchMonthly(ctx context.Context, ticker string, years int) (models.PriceSeries, error) {
	series, hit, err := cache.Remember(ctx, s.cache, seriesKey(ticker, years), s.ttl,
		func(ctx context.Context) (models.PriceSeries, error) {
			return s.next.FetchMonthly(ctx, ticker, years)
		})
	if err != nil {
		return series, err
	}
	s.log.Debug("price series", logger.String("ticker", ticker), logger.Bool("cache_hit", hit), logger.Int("points", series.Len()))
	return series, nil
}

// Invalidate drops every cached window for ticker.
func (s *CachedSource) Invalidate(ctx context.Context, ticker string) error {
	return s.cache.DeleteByPattern(ctx, cache.BuildPattern(cache.GenerateKey("series", ticker)+":"))
}

var _ repository.PriceSource = (*CachedSource)(nil)
