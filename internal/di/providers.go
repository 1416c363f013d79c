package di

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"StockSim/internal/domain/repository"
	"StockSim/internal/handler/api"
	internalrepo "StockSim/internal/repository"
	"StockSim/internal/service/ratelimit"
	"StockSim/internal/services/analytics"
	"StockSim/internal/services/forecast"
	"StockSim/internal/services/marketdata"
	"StockSim/internal/usecase"
	"StockSim/pkg/cache"
	pkgch "StockSim/pkg/clickhouse"
	"StockSim/pkg/config"
	xhttp "StockSim/pkg/http"
	pkgkafka "StockSim/pkg/kafka"
	applogger "StockSim/pkg/logger"
	"StockSim/pkg/metrics"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", "stocksim")), nil
}

// ProvideCache returns an in-process cache, or a memory-over-Redis layered cache
// when Redis is enabled.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
		return mc, func() { _ = mc.Close() }, nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	lc := cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredL1TTL(time.Minute),
	)
	l.Info("redis cache connected", applogger.String("addr", cfg.Cache.Redis.Addr))
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogDigest attaches a warn/error digest shipped to Kafka. Nil when disabled.
func ProvideLogDigest(cfg *config.Config, l *applogger.Logger, producer *pkgkafka.Producer) *applogger.Digest {
	if !cfg.Log.Digest.Enabled || producer == nil {
		return nil
	}
	d := applogger.NewDigest(applogger.DigestConfig{
		Interval:  cfg.Log.Digest.Interval,
		MaxUnique: cfg.Log.Digest.MaxUnique,
		Topic:     cfg.Log.Digest.Topic,
		Source:    "stocksim",
		Sink:      producer,
	})
	l.AttachDigest(d)
	return d
}

// ProvideResultPublisher publishes completed simulations to Kafka when a producer exists.
func ProvideResultPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.ResultPublisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultsTopic)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvidePriceSource builds the market data chain: Yahoo, optionally behind a
// ClickHouse store that backfills from Yahoo, all behind the cache.
func ProvidePriceSource(cfg *config.Config, c cache.Service, l *applogger.Logger) (repository.PriceSource, func(), error) {
	yahoo := marketdata.NewYahooSource(
		marketdata.WithYahooBaseURL(cfg.MarketData.YahooBaseURL),
		marketdata.WithYahooClient(xhttp.NewClient(
			xhttp.WithTimeout(cfg.MarketData.Timeout),
			xhttp.WithUserAgent("Mozilla/5.0 (compatible; stocksim/1.0)"),
		)),
	)

	switch cfg.MarketData.Source {
	case "", "yahoo":
		return marketdata.NewCachedSource(yahoo, c, cfg.MarketData.CacheTTL, l), func() {}, nil
	case "clickhouse":
	default:
		return nil, nil, fmt.Errorf("market_data.source %q not supported", cfg.MarketData.Source)
	}

	ch, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	store := internalrepo.NewCHPriceStore(ch, "")
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	var cached *marketdata.CachedSource
	backfill := marketdata.NewBackfillSource(store, yahoo, cfg.Engine.MinPoints,
		marketdata.WithBackfillLogger(l),
		marketdata.WithOnStored(func(ctx context.Context, ticker string) {
			if err := cached.Invalidate(ctx, ticker); err != nil {
				l.Warn("invalidate cached series", applogger.String("ticker", ticker), applogger.Error(err))
			}
		}),
	)
	cached = marketdata.NewCachedSource(backfill, c, cfg.MarketData.CacheTTL, l)
	l.Info("clickhouse price store ready", applogger.String("database", ch.Database()))
	return cached, func() { _ = ch.Close() }, nil
}

// ProvideModelRegistry registers the built-in models and any remote models served
// by the model service.
func ProvideModelRegistry(cfg *config.Config, l *applogger.Logger) (*forecast.Registry, error) {
	reg := forecast.NewDefaultRegistry(cfg.Engine.EMAPeriod)
	if cfg.Analytics.ModelServiceURL == "" || len(cfg.Analytics.RemoteModels) == 0 {
		return reg, nil
	}

	maxHorizon := 0
	for _, h := range cfg.Engine.Horizons {
		if h > maxHorizon {
			maxHorizon = h
		}
	}
	svc := analytics.NewHTTPModelService(cfg.Analytics.ModelServiceURL, cfg.Analytics.Timeout, cfg.Analytics.Retries+1)
	for _, rm := range cfg.Analytics.RemoteModels {
		f := analytics.NewRemoteFactory(svc, rm.Key, rm.Name, maxHorizon,
			analytics.WithRemoteTimeout(cfg.Analytics.Timeout),
			analytics.WithRemoteLogger(l),
		)
		if err := reg.Register(rm.Key, f); err != nil {
			return nil, fmt.Errorf("remote model: %w", err)
		}
	}
	l.Info("remote models registered", applogger.Strings("models", reg.Keys()))
	return reg, nil
}

// ProvideSimulateUseCase creates the simulation use case.
func ProvideSimulateUseCase(
	cfg *config.Config,
	source repository.PriceSource,
	registry *forecast.Registry,
	c cache.Service,
	publisher repository.ResultPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.SimulateUseCase {
	return usecase.NewSimulateUseCase(source, registry, c, publisher, m, l, usecase.SimulateConfig{
		Tickers:      cfg.Tickers,
		Horizons:     cfg.Engine.Horizons,
		MinPoints:    cfg.Engine.MinPoints,
		MinTrainSize: cfg.Engine.MinTrainSize,
		HistoryYears: cfg.Engine.HistoryYears,
		HistoryTail:  cfg.Engine.HistoryTail,
		Timeout:      cfg.Engine.Timeout,
		ResultTTL:    cfg.Engine.ResultTTL,
	})
}

// ProvideRateLimiter returns the per-IP limiter, or nil when disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.Window)
}

// ProvideHTTPHandler creates the API route handler.
func ProvideHTTPHandler(uc *usecase.SimulateUseCase, limiter *ratelimit.Limiter, l *applogger.Logger) xhttp.Handler {
	return api.NewSimulationHandler(uc, limiter, l)
}

// ProvideHTTPServer creates the Echo server with the standard middleware chain.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideKafkaConsumer creates the simulation request consumer, or nil when disabled.
func ProvideKafkaConsumer(
	cfg *config.Config,
	uc *usecase.SimulateUseCase,
	c cache.Service,
	l *applogger.Logger,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewSimulationRequestHandler(cfg.Kafka.RequestsTopic, uc, c, l))
	consumer.SetHook(pkgkafka.NewHookChain(
		pkgkafka.TraceHook{},
		pkgkafka.HookFuncs{
			Err: func(ctx context.Context, km kafka.Message, err error) {
				l.Warn("simulation request failed",
					applogger.String("trace_id", pkgkafka.TraceID(ctx)),
					applogger.String("key", string(km.Key)),
					applogger.Error(err),
				)
			},
		},
	))
	return consumer, nil
}
