package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSim/internal/domain/models"
	"StockSim/internal/services/analytics"
	"StockSim/internal/services/forecast"
	"StockSim/pkg/cache"
)

type stubSource struct {
	mu     sync.Mutex
	series models.PriceSeries
	err    error
	calls  int
}

func (s *stubSource) FetchMonthly(_ context.Context, ticker string, _ int) (models.PriceSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	out := s.series
	out.Ticker = ticker
	return out, s.err
}

type stubPublisher struct {
	published []*models.SimulationResult
	err       error
}

func (p *stubPublisher) PublishResult(_ context.Context, r *models.SimulationResult) error {
	p.published = append(p.published, r)
	return p.err
}

func (p *stubPublisher) Close() error { return nil }

type stubMetrics struct {
	mu       sync.Mutex
	outcomes []string
	errors   []string
	mae      map[string]float64
}

func (m *stubMetrics) RecordSimulation(_, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *stubMetrics) RecordModelError(_, model string, mae float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mae == nil {
		m.mae = map[string]float64{}
	}
	m.mae[model] = mae
}

func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}

func (m *stubMetrics) RecordLatency(string, float64) {}

// linearSeries is n monthly closes 100, 101, ... starting January 2019.
func linearSeries(n int) models.PriceSeries {
	s := models.PriceSeries{Currency: "USD"}
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Points = append(s.Points, models.PricePoint{
			Month: start.AddDate(0, i, 0).Format("2006-01"),
			Close: float64(100 + i),
		})
	}
	return s
}

type fixture struct {
	uc        *SimulateUseCase
	source    *stubSource
	publisher *stubPublisher
	metrics   *stubMetrics
	cache     *cache.MemoryCache
}

func newFixture(t *testing.T, n int, registry *forecast.Registry) *fixture {
	t.Helper()
	if registry == nil {
		registry = forecast.NewDefaultRegistry(forecast.DefaultEMAPeriod)
	}
	f := &fixture{
		source:    &stubSource{series: linearSeries(n)},
		publisher: &stubPublisher{},
		metrics:   &stubMetrics{},
		cache:     cache.NewMemoryCache(),
	}
	t.Cleanup(func() { _ = f.cache.Close() })
	f.uc = NewSimulateUseCase(f.source, registry, f.cache, f.publisher, f.metrics, nil, SimulateConfig{
		Tickers:  []string{"AAPL", "MSFT"},
		Horizons: []int{6, 12},
	})
	return f
}

func TestRunRejectsInvalidArguments(t *testing.T) {
	f := newFixture(t, 60, nil)
	ctx := context.Background()

	_, err := f.uc.Run(ctx, SimulateParams{Ticker: "DOGE", Horizon: 6})
	assert.ErrorIs(t, err, forecast.ErrInvalidArgument)

	_, err = f.uc.Run(ctx, SimulateParams{Ticker: "AAPL", Horizon: 3})
	assert.ErrorIs(t, err, forecast.ErrInvalidArgument)

	_, err = f.uc.Run(ctx, SimulateParams{Ticker: "AAPL", Horizon: 6, Models: []string{"arima"}})
	assert.ErrorIs(t, err, forecast.ErrInvalidArgument)

	assert.Equal(t, 0, f.source.calls)
	assert.Equal(t, []string{"invalid", "invalid", "invalid"}, f.metrics.outcomes)
}

func TestRunInsufficientData(t *testing.T) {
	f := newFixture(t, 47, nil)
	_, err := f.uc.Run(context.Background(), SimulateParams{Ticker: "AAPL", Horizon: 6})
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Equal(t, []string{"insufficient_data"}, f.metrics.outcomes)
	assert.Empty(t, f.publisher.published)
}

func TestRunSourceError(t *testing.T) {
	f := newFixture(t, 60, nil)
	f.source.err = errors.New("yahoo down")
	_, err := f.uc.Run(context.Background(), SimulateParams{Ticker: "AAPL", Horizon: 6})
	assert.EqualError(t, err, "fetch AAPL: yahoo down")
	assert.Equal(t, []string{"fetch_prices"}, f.metrics.errors)
	assert.Equal(t, []string{"error"}, f.metrics.outcomes)
}

func TestRunProducesFullResult(t *testing.T) {
	f := newFixture(t, 60, nil)
	res, err := f.uc.Run(context.Background(), SimulateParams{Ticker: " aapl ", Horizon: 6})
	require.NoError(t, err)

	md := res.Metadata
	assert.Equal(t, "AAPL", md.Ticker)
	assert.Equal(t, 6, md.Horizon)
	assert.Equal(t, 159.0, md.CurrentPrice)
	assert.Equal(t, "2019-01 to 2023-12", md.DateRange)
	assert.Equal(t, 60, md.NPoints)
	assert.Equal(t, []string{"Historical Average", "Last Price Hold", "Trend Projection", "Exponential Smoothing"}, md.Models)

	require.Len(t, res.Accuracy, 4)
	assert.Equal(t, "Trend Projection", res.Accuracy[0].ModelName)
	assert.InDelta(t, 0, res.Accuracy[0].MAE, 1e-9)
	assert.Equal(t, "Last Price Hold", res.Accuracy[1].ModelName)
	assert.InDelta(t, 3.5, res.Accuracy[1].MAE, 1e-9)
	assert.Len(t, res.Accuracy[0].Folds, 4)
	assert.Equal(t, "Trend Projection", res.BestModel())

	require.Len(t, res.Scenarios, 6)
	assert.Equal(t, "2024-01", res.Scenarios[0].Month)
	assert.Equal(t, "2024-06", res.Scenarios[5].Month)
	assert.Equal(t, 129.5, res.Scenarios[0].Bearish)
	assert.Equal(t, 160.0, res.Scenarios[0].Bullish)
	assert.Equal(t, 165.0, res.Scenarios[5].Bullish)
	for _, s := range res.Scenarios {
		assert.LessOrEqual(t, s.Bearish, s.Stable)
		assert.LessOrEqual(t, s.Stable, s.Bullish)
	}

	require.Len(t, res.ModelForecast, 4)
	last := res.ModelForecast[1]
	assert.Equal(t, forecast.KeyLast, last.Key)
	assert.Equal(t, models.ScenarioStep{Month: "2024-01", Bearish: 159, Stable: 159, Bullish: 159}, last.Steps[0])

	require.Len(t, res.BacktestChart, 24)
	first := res.BacktestChart[0]
	assert.Equal(t, "2022-01", first.Month)
	assert.Equal(t, 136.0, first.Actual)
	assert.Len(t, first.Predictions, 4)
	assert.Equal(t, 136.0, first.Predictions["Trend Projection"])
	assert.Equal(t, 135.0, first.Predictions["Last Price Hold"])
	assert.Equal(t, "2023-12", res.BacktestChart[23].Month)

	assert.Len(t, res.Historical, 18)
	assert.Equal(t, "2023-12", res.Historical[17].Month)
	assert.Len(t, res.PriceStats, 26)
	assert.Nil(t, res.Errors)

	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, []string{"ok"}, f.metrics.outcomes)
	assert.InDelta(t, 3.5, f.metrics.mae["Last Price Hold"], 1e-9)
}

func TestRunHorizon12PriceStats(t *testing.T) {
	f := newFixture(t, 60, nil)
	res, err := f.uc.Run(context.Background(), SimulateParams{Ticker: "MSFT", Horizon: 12})
	require.NoError(t, err)
	assert.Len(t, res.PriceStats, 12)
	assert.Len(t, res.Scenarios, 12)
	assert.Len(t, res.Accuracy[0].Folds, 2)
}

func TestRunServesCachedResult(t *testing.T) {
	f := newFixture(t, 60, nil)
	ctx := context.Background()

	first, err := f.uc.Run(ctx, SimulateParams{Ticker: "AAPL", Horizon: 6})
	require.NoError(t, err)
	second, err := f.uc.Run(ctx, SimulateParams{Ticker: "AAPL", Horizon: 6})
	require.NoError(t, err)

	assert.Equal(t, first.Scenarios, second.Scenarios)
	assert.Equal(t, 1, f.source.calls)
	assert.Len(t, f.publisher.published, 1)
	assert.Equal(t, []string{"ok", "cached"}, f.metrics.outcomes)

	_, err = f.uc.Run(ctx, SimulateParams{Ticker: "AAPL", Horizon: 6, Models: []string{"last"}})
	require.NoError(t, err)
	assert.Equal(t, 2, f.source.calls, "a different model set is a different cache entry")
}

func TestRunModelSubset(t *testing.T) {
	f := newFixture(t, 60, nil)
	res, err := f.uc.Run(context.Background(), SimulateParams{
		Ticker: "AAPL", Horizon: 6, Models: []string{"trend", "last", "trend"},
	})
	require.NoError(t, err)
	require.Len(t, res.Accuracy, 2)
	assert.Equal(t, []string{"Last Price Hold", "Trend Projection"}, res.Metadata.Models)
	assert.Equal(t, 159.0, res.Scenarios[0].Bearish)
	assert.Equal(t, 160.0, res.Scenarios[0].Bullish)
	assert.Equal(t, 159.5, res.Scenarios[0].Stable)
}

func TestRunPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, 60, nil)
	f.publisher.err = errors.New("broker unavailable")

	_, err := f.uc.Run(context.Background(), SimulateParams{Ticker: "AAPL", Horizon: 6})
	require.NoError(t, err)
	assert.Equal(t, []string{"publish_result"}, f.metrics.errors)
}

type degradedModel struct{ forecast.LastPriceHoldModel }

func (degradedModel) Name() string { return "Remote Stub" }
func (degradedModel) Err() error   { return errors.New("model service timeout") }

func TestRunReportsDegradedModels(t *testing.T) {
	reg := forecast.NewRegistry()
	require.NoError(t, reg.Register("last", forecast.NewLastPriceHoldModel))
	require.NoError(t, reg.Register("remote", func() forecast.Model { return &degradedModel{} }))
	f := newFixture(t, 60, reg)

	res, err := f.uc.Run(context.Background(), SimulateParams{Ticker: "AAPL", Horizon: 6})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"remote": "model service timeout"}, res.Errors)
	require.Len(t, res.Accuracy, 2)
	assert.Equal(t, "Remote Stub", res.Accuracy[1].ModelName)
	assert.True(t, res.Accuracy[1].Degraded)
	assert.False(t, res.Accuracy[0].Degraded)
}

// flakyModelService extends the training series by +1 a month, failing the first
// failFirst calls. It records the contexts it was called with.
type flakyModelService struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	ctxs      []context.Context
}

func (s *flakyModelService) Forecast(ctx context.Context, _ string, train []float64, horizon int) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.ctxs = append(s.ctxs, ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.calls <= s.failFirst {
		return nil, errors.New("arima unavailable")
	}
	out := make([]float64, horizon)
	for i := range out {
		out[i] = train[len(train)-1] + float64(i+1)
	}
	return out, nil
}

func remoteRegistry(t *testing.T, svc *flakyModelService) *forecast.Registry {
	t.Helper()
	reg := forecast.NewRegistry()
	require.NoError(t, reg.Register("last", forecast.NewLastPriceHoldModel))
	require.NoError(t, reg.Register("arima", analytics.NewRemoteFactory(svc, "arima", "ARIMA", 12)))
	return reg
}

func TestRunFlagsModelsThatFailDuringBacktest(t *testing.T) {
	svc := &flakyModelService{failFirst: 1}
	f := newFixture(t, 60, remoteRegistry(t, svc))

	res, err := f.uc.Run(context.Background(), SimulateParams{Ticker: "AAPL", Horizon: 6})
	require.NoError(t, err)
	assert.Equal(t, 5, svc.calls, "four folds and the final fit")

	// The first fold held the last price, so ARIMA scores 21/24 against 3.5 for
	// last-price-hold, yet it must not be ranked as the best model.
	require.Len(t, res.Accuracy, 2)
	assert.Equal(t, "Last Price Hold", res.BestModel())
	assert.False(t, res.Accuracy[0].Degraded)
	assert.Equal(t, "ARIMA", res.Accuracy[1].ModelName)
	assert.True(t, res.Accuracy[1].Degraded)
	assert.InDelta(t, 0.875, res.Accuracy[1].MAE, 1e-9)

	assert.Equal(t, map[string]string{"arima": "backtest: arima unavailable"}, res.Errors)
}

func TestRunHealthyRemoteModelIsNotDegraded(t *testing.T) {
	svc := &flakyModelService{}
	f := newFixture(t, 60, remoteRegistry(t, svc))

	res, err := f.uc.Run(context.Background(), SimulateParams{Ticker: "AAPL", Horizon: 6})
	require.NoError(t, err)
	assert.Equal(t, "ARIMA", res.BestModel())
	assert.Zero(t, res.Accuracy[0].MAE)
	for _, bt := range res.Accuracy {
		assert.False(t, bt.Degraded, bt.ModelName)
	}
	assert.Nil(t, res.Errors)
}

func TestRunPassesRequestContextToRemoteModels(t *testing.T) {
	type key struct{}
	svc := &flakyModelService{}
	f := newFixture(t, 60, remoteRegistry(t, svc))
	ctx := context.WithValue(context.Background(), key{}, "req-7")

	_, err := f.uc.Run(ctx, SimulateParams{Ticker: "AAPL", Horizon: 6})
	require.NoError(t, err)
	require.NotEmpty(t, svc.ctxs)
	for _, c := range svc.ctxs {
		assert.Equal(t, "req-7", c.Value(key{}))
		_, ok := c.Deadline()
		assert.True(t, ok, "use-case timeout applies")
	}
}

func TestRunCancelledContextStopsRemoteCalls(t *testing.T) {
	svc := &flakyModelService{}
	f := newFixture(t, 60, remoteRegistry(t, svc))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.uc.Run(ctx, SimulateParams{Ticker: "AAPL", Horizon: 6})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, svc.calls)
	assert.Empty(t, f.publisher.published)
}

func TestRankByMAETiesByName(t *testing.T) {
	ranked := rankByMAE([]models.BacktestResult{
		{ModelName: "b", MAE: 1},
		{ModelName: "a", MAE: 1},
		{ModelName: "c", MAE: 0.5},
	})
	assert.Equal(t, "c", ranked[0].ModelName)
	assert.Equal(t, "a", ranked[1].ModelName)
	assert.Equal(t, "b", ranked[2].ModelName)
}

func TestRankByMAEPutsDegradedLast(t *testing.T) {
	ranked := rankByMAE([]models.BacktestResult{
		{ModelName: "remote", MAE: 0.1, Degraded: true},
		{ModelName: "last", MAE: 3},
		{ModelName: "trend", MAE: 1},
	})
	assert.Equal(t, "trend", ranked[0].ModelName)
	assert.Equal(t, "last", ranked[1].ModelName)
	assert.Equal(t, "remote", ranked[2].ModelName)
}

func TestSimulationRequestHandler(t *testing.T) {
	f := newFixture(t, 60, nil)
	h := NewSimulationRequestHandler("simulation.requests", f.uc, f.cache, nil)
	ctx := context.Background()

	assert.Equal(t, "simulation.requests", h.Topic())
	require.NoError(t, h.Handle(ctx, []byte(`{"ticker":"msft","horizonMonths":12}`)))
	assert.Equal(t, 1, f.source.calls)
	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, 12, f.publisher.published[0].Metadata.Horizon)

	ok, err := f.cache.Exists(ctx, "lock:simulation:MSFT:12")
	require.NoError(t, err)
	assert.False(t, ok, "lock released after run")

	assert.Error(t, h.Handle(ctx, []byte(`{not json`)))
	assert.ErrorIs(t, h.Handle(ctx, []byte(`{"ticker":"DOGE"}`)), forecast.ErrInvalidArgument)
}

func TestSimulationRequestHandlerSkipsWhenLocked(t *testing.T) {
	f := newFixture(t, 60, nil)
	h := NewSimulationRequestHandler("simulation.requests", f.uc, f.cache, nil)
	ctx := context.Background()

	locked, err := f.cache.TryLock(ctx, "lock:simulation:AAPL:6", time.Minute)
	require.NoError(t, err)
	require.True(t, locked)

	require.NoError(t, h.Handle(ctx, []byte(`{"ticker":"AAPL"}`)))
	assert.Equal(t, 0, f.source.calls)
}
