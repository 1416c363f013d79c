package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"StockSim/internal/domain/models"
	domrepo "StockSim/internal/domain/repository"
	"StockSim/internal/services/features"
	"StockSim/internal/services/forecast"
	"StockSim/pkg/cache"
	"StockSim/pkg/logger"
	"StockSim/pkg/util"
)

// ErrInsufficientData means the price history is too short to backtest.
var ErrInsufficientData = errors.New("insufficient price history")

// SimulateConfig carries the engine settings from pkg/config.
type SimulateConfig struct {
	Tickers      []string
	Horizons     []int
	MinPoints    int
	MinTrainSize int
	HistoryYears int
	HistoryTail  int
	Timeout      time.Duration
	ResultTTL    time.Duration
}

func (c *SimulateConfig) setDefaults() {
	if c.MinPoints <= 0 {
		c.MinPoints = 48
	}
	if c.MinTrainSize <= 0 {
		c.MinTrainSize = forecast.DefaultMinTrainSize
	}
	if c.HistoryYears <= 0 {
		c.HistoryYears = 10
	}
	if c.HistoryTail <= 0 {
		c.HistoryTail = 18
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.ResultTTL <= 0 {
		c.ResultTTL = time.Hour
	}
	if len(c.Horizons) == 0 {
		c.Horizons = []int{int(models.Horizon6), int(models.Horizon12)}
	}
}

// SimulateUseCase backtests and forecasts a ticker with every requested model.
type SimulateUseCase struct {
	source    domrepo.PriceSource
	registry  *forecast.Registry
	cache     cache.Service
	publisher domrepo.ResultPublisher
	metrics   domrepo.Metrics
	log       *logger.Logger
	cfg       SimulateConfig
	now       func() time.Time
}

// NewSimulateUseCase wires the use case. cache, publisher and metrics may be nil.
func NewSimulateUseCase(
	source domrepo.PriceSource,
	registry *forecast.Registry,
	c cache.Service,
	publisher domrepo.ResultPublisher,
	metrics domrepo.Metrics,
	l *logger.Logger,
	cfg SimulateConfig,
) *SimulateUseCase {
	cfg.setDefaults()
	if l == nil {
		l = logger.Nop()
	}
	return &SimulateUseCase{
		source:    source,
		registry:  registry,
		cache:     c,
		publisher: publisher,
		metrics:   metrics,
		log:       l,
		cfg:       cfg,
		now:       time.Now,
	}
}

type SimulateParams struct {
	Ticker  string
	Horizon int
	Models  []string
}

// Tickers returns the allow-list.
func (uc *SimulateUseCase) Tickers() []string {
	return append([]string(nil), uc.cfg.Tickers...)
}

// Models returns every registered model in registration order.
func (uc *SimulateUseCase) Models() []forecast.Entry {
	return uc.registry.Entries()
}

// Run executes a simulation, serving a cached result when one is fresh.
func (uc *SimulateUseCase) Run(ctx context.Context, p SimulateParams) (*models.SimulationResult, error) {
	start := uc.now()
	ticker := util.NormalizeTicker(p.Ticker)
	entries, err := uc.validate(ticker, p)
	if err != nil {
		uc.record(ticker, "invalid")
		return nil, err
	}

	key := resultKey(ticker, p.Horizon, entries, len(p.Models) == 0)
	result, hit, err := cache.Remember(ctx, uc.cache, key, uc.cfg.ResultTTL,
		func(ctx context.Context) (*models.SimulationResult, error) {
			return uc.simulate(ctx, ticker, p.Horizon, entries)
		})
	switch {
	case errors.Is(err, ErrInsufficientData):
		uc.record(ticker, "insufficient_data")
		return nil, err
	case err != nil:
		uc.record(ticker, "error")
		return nil, err
	}

	outcome := "ok"
	if hit {
		outcome = "cached"
	} else {
		uc.publish(ctx, result)
	}
	uc.record(ticker, outcome)
	if uc.metrics != nil {
		uc.metrics.RecordLatency("simulate", uc.now().Sub(start).Seconds())
	}
	uc.log.Info("simulation finished",
		logger.String("ticker", ticker),
		logger.Int("horizon", p.Horizon),
		logger.Bool("cache_hit", hit),
		logger.String("best_model", result.BestModel()),
		logger.Duration("duration_ms", uc.now().Sub(start)),
	)
	return result, nil
}

func (uc *SimulateUseCase) validate(ticker string, p SimulateParams) ([]forecast.Entry, error) {
	if !contains(uc.cfg.Tickers, ticker) {
		return nil, fmt.Errorf("ticker %q not supported, choose from %s: %w",
			p.Ticker, strings.Join(uc.cfg.Tickers, ", "), forecast.ErrInvalidArgument)
	}
	if !containsInt(uc.cfg.Horizons, p.Horizon) {
		return nil, fmt.Errorf("horizon %d not supported: %w", p.Horizon, forecast.ErrInvalidArgument)
	}
	entries, err := uc.registry.Resolve(p.Models)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no models registered: %w", forecast.ErrInvalidArgument)
	}
	return entries, nil
}

func (uc *SimulateUseCase) simulate(ctx context.Context, ticker string, horizon int, entries []forecast.Entry) (*models.SimulationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	series, err := uc.source.FetchMonthly(ctx, ticker, uc.cfg.HistoryYears)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.RecordError("fetch_prices")
		}
		return nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	if series.Len() < uc.cfg.MinPoints {
		return nil, fmt.Errorf("%s has %d monthly closes, need %d: %w",
			ticker, series.Len(), uc.cfg.MinPoints, ErrInsufficientData)
	}
	closes := series.Closes()
	labels := series.Labels()
	last, _ := series.Last()

	backtests, foldErrs, err := uc.backtest(ctx, closes, horizon, entries)
	if err != nil {
		return nil, err
	}

	res := &models.SimulationResult{
		Accuracy:      rankByMAE(backtests),
		BacktestChart: backtestChart(labels, backtests),
		Historical:    features.HistoricalTail(series.Points, uc.cfg.HistoryTail),
		PriceStats:    features.PriceStats(series.Points, models.Horizon(horizon).PriceStatsRows()),
		Errors:        map[string]string{},
	}

	fitted := make([]forecast.Model, 0, len(entries))
	for i, e := range entries {
		m := forecast.WithContext(ctx, e.Factory)()
		m.Fit(closes)
		switch {
		case modelErr(m) != nil:
			res.Errors[e.Key] = modelErr(m).Error()
		case foldErrs[i] != nil:
			res.Errors[e.Key] = "backtest: " + foldErrs[i].Error()
		}
		steps, err := forecast.AggregateScenarios([]forecast.Model{m}, horizon, last.Month)
		if err != nil {
			return nil, err
		}
		res.ModelForecast = append(res.ModelForecast, models.ModelScenario{Key: e.Key, Name: m.Name(), Steps: steps})
		fitted = append(fitted, m)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("forecast %s: %w", ticker, err)
	}
	if res.Scenarios, err = forecast.AggregateScenarios(fitted, horizon, last.Month); err != nil {
		return nil, err
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	res.Metadata = models.SimulationMetadata{
		Ticker:       ticker,
		Horizon:      horizon,
		CurrentPrice: forecast.Round2(last.Close),
		DateRange:    util.DateRange(labels[0], last.Month),
		NPoints:      series.Len(),
		Models:       names,
		GeneratedAt:  uc.now().UTC(),
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	if uc.metrics != nil {
		for _, bt := range backtests {
			uc.metrics.RecordModelError(ticker, bt.ModelName, bt.MAE)
		}
	}
	return res, nil
}

// backtest runs one walk-forward backtest per model concurrently; results keep entry
// order. A model whose fold fits reported an error is marked Degraded and its first
// fold error is returned at the same index.
func (uc *SimulateUseCase) backtest(ctx context.Context, closes []float64, horizon int, entries []forecast.Entry) ([]models.BacktestResult, []error, error) {
	out := make([]models.BacktestResult, len(entries))
	foldErrs := make([]error, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var built []forecast.Model
			factory := func() forecast.Model {
				m := e.Factory()
				built = append(built, m)
				return m
			}
			r, err := forecast.WalkForwardBacktestContext(gctx, closes, factory, horizon, uc.cfg.MinTrainSize)
			if err != nil {
				return fmt.Errorf("backtest %s: %w", e.Key, err)
			}
			if foldErrs[i] = firstModelErr(built); foldErrs[i] != nil {
				r.Degraded = true
				uc.log.Warn("backtest degraded",
					logger.String("model", e.Key), logger.Error(foldErrs[i]))
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("backtest: %w", err)
	}
	return out, foldErrs, nil
}

// modelErr returns the fit error of models that can fail, such as remote ones.
func modelErr(m forecast.Model) error {
	if fe, ok := m.(interface{ Err() error }); ok {
		return fe.Err()
	}
	return nil
}

func firstModelErr(ms []forecast.Model) error {
	for _, m := range ms {
		if err := modelErr(m); err != nil {
			return err
		}
	}
	return nil
}

func (uc *SimulateUseCase) publish(ctx context.Context, res *models.SimulationResult) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishResult(ctx, res); err != nil {
		if uc.metrics != nil {
			uc.metrics.RecordError("publish_result")
		}
		uc.log.Warn("publish simulation result",
			logger.String("ticker", res.Metadata.Ticker),
			logger.Error(err),
		)
	}
}

func (uc *SimulateUseCase) record(ticker, outcome string) {
	if uc.metrics != nil {
		uc.metrics.RecordSimulation(ticker, outcome)
	}
}

// rankByMAE orders a copy of results by ascending MAE, ties by model name. Degraded
// results rank after every healthy one.
func rankByMAE(results []models.BacktestResult) []models.BacktestResult {
	ranked := append([]models.BacktestResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Degraded != ranked[j].Degraded {
			return !ranked[i].Degraded
		}
		if ranked[i].MAE != ranked[j].MAE {
			return ranked[i].MAE < ranked[j].MAE
		}
		return ranked[i].ModelName < ranked[j].ModelName
	})
	return ranked
}

// backtestChart lines up every model's out-of-sample predictions by month. All
// results share one fold layout because they ran over the same series and horizon.
func backtestChart(labels []string, results []models.BacktestResult) []models.BacktestPoint {
	if len(results) == 0 {
		return nil
	}
	var out []models.BacktestPoint
	for fi, fold := range results[0].Folds {
		for j, actual := range fold.Actual {
			idx := fold.Start + j
			if idx >= len(labels) {
				break
			}
			pt := models.BacktestPoint{
				Month:       labels[idx],
				Actual:      forecast.Round2(actual),
				Predictions: make(map[string]float64, len(results)),
			}
			for _, r := range results {
				if fi < len(r.Folds) && j < len(r.Folds[fi].Predicted) {
					pt.Predictions[r.ModelName] = forecast.Round2(r.Folds[fi].Predicted[j])
				}
			}
			out = append(out, pt)
		}
	}
	return out
}

func resultKey(ticker string, horizon int, entries []forecast.Entry, all bool) string {
	set := "all"
	if !all {
		keys := make([]string, len(entries))
		for i, e := range entries {
			keys[i] = e.Key
		}
		set = strings.Join(keys, ",")
	}
	return cache.GenerateKeyWithParams("simulation", ticker, horizon, set)
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
