package marketdata

import (
	"context"
	"fmt"

	"StockSim/internal/domain/models"
	"StockSim/internal/domain/repository"
	"StockSim/pkg/logger"
)

// BackfillSource reads from a PriceStore and, when the stored history is shorter
// than minPoints, fetches it from upstream and writes it back.
type BackfillSource struct {
	store     repository.PriceStore
	upstream  repository.PriceSource
	minPoints int
	log       *logger.Logger
	onStored  func(ctx context.Context, ticker string)
}

type BackfillOption func(*BackfillSource)

// WithOnStored runs after a successful write, e.g. to invalidate a cache.
func WithOnStored(fn func(ctx context.Context, ticker string)) BackfillOption {
	return func(s *BackfillSource) { s.onStored = fn }
}

func WithBackfillLogger(l *logger.Logger) BackfillOption {
	return func(s *BackfillSource) {
		if l != nil {
			s.log = l
		}
	}
}

func NewBackfillSource(store repository.PriceStore, upstream repository.PriceSource, minPoints int, opts ...BackfillOption) *BackfillSource {
	s := &BackfillSource{store: store, upstream: upstream, minPoints: minPoints, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BackfillSource) FetchMonthly(ctx context.Context, ticker string, years int) (models.PriceSeries, error) {
	stored, err := s.store.FetchMonthly(ctx, ticker, years)
	if err == nil && stored.Len() >= s.minPoints {
		return stored, nil
	}
	if err != nil {
		s.log.Warn("price store read failed, using upstream", logger.String("ticker", ticker), logger.Error(err))
	}

	fresh, err := s.upstream.FetchMonthly(ctx, ticker, years)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("backfill %s: %w", ticker, err)
	}
	if err := s.store.StoreMonthly(ctx, fresh); err != nil {
		s.log.Warn("price store write failed", logger.String("ticker", ticker), logger.Error(err))
		return fresh, nil
	}
	s.log.Info("price history backfilled", logger.String("ticker", ticker), logger.Int("points", fresh.Len()))
	if s.onStored != nil {
		s.onStored(ctx, ticker)
	}
	return fresh, nil
}

var _ repository.PriceSource = (*BackfillSource)(nil)
