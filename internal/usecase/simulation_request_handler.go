package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StockSim/internal/domain/models"
	"StockSim/pkg/cache"
	pkgkafka "StockSim/pkg/kafka"
	"StockSim/pkg/logger"
	"StockSim/pkg/util"
)

// SimulationRequestHandler runs simulations requested over Kafka. Results reach
// consumers through the use case's publisher and cache.
type SimulationRequestHandler struct {
	topic   string
	uc      *SimulateUseCase
	locks   cache.Service
	lockTTL time.Duration
	log     *logger.Logger
}

// NewSimulationRequestHandler builds the handler. locks may be nil to disable de-duplication.
func NewSimulationRequestHandler(topic string, uc *SimulateUseCase, locks cache.Service, l *logger.Logger) *SimulationRequestHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &SimulationRequestHandler{
		topic:   topic,
		uc:      uc,
		locks:   locks,
		lockTTL: uc.cfg.Timeout + 5*time.Second,
		log:     l.With(logger.String("handler", "simulation_requests")),
	}
}

func (h *SimulationRequestHandler) Topic() string { return h.topic }

// Handle decodes {ticker, horizonMonths, models}. A request already running on
// another worker for the same ticker and horizon is skipped.
func (h *SimulationRequestHandler) Handle(ctx context.Context, b []byte) error {
	var msg models.SimulationRequestMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		return fmt.Errorf("decode simulation request: %w", err)
	}
	msg.Ticker = util.NormalizeTicker(msg.Ticker)
	if msg.HorizonMonths == 0 {
		msg.HorizonMonths = int(models.DefaultHorizon())
	}

	if h.locks != nil {
		lockKey := cache.GenerateKeyWithParams("lock:simulation", msg.Ticker, msg.HorizonMonths)
		ok, err := h.locks.TryLock(ctx, lockKey, h.lockTTL)
		if err != nil {
			h.log.Warn("simulation lock unavailable", logger.Error(err))
		} else if !ok {
			h.log.Debug("simulation already running", logger.String("ticker", msg.Ticker))
			return nil
		} else {
			defer func() { _ = h.locks.Unlock(context.Background(), lockKey) }()
		}
	}

	res, err := h.uc.Run(ctx, SimulateParams{Ticker: msg.Ticker, Horizon: msg.HorizonMonths, Models: msg.Models})
	if err != nil {
		return fmt.Errorf("simulate %s/%d: %w", msg.Ticker, msg.HorizonMonths, err)
	}
	h.log.Info("simulation request handled",
		logger.String("ticker", res.Metadata.Ticker),
		logger.String("trace_id", pkgkafka.TraceID(ctx)),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*SimulationRequestHandler)(nil)
