package analytics

import (
	"context"
	"time"

	domsvc "StockSim/internal/domain/service"
	"StockSim/internal/services/forecast"
	"StockSim/pkg/logger"
)

// RemoteModel adapts a ModelService to forecast.Model. Fit fetches a path of
// maxHorizon months; when the service fails it holds the last training price.
type RemoteModel struct {
	key        string
	name       string
	maxHorizon int
	timeout    time.Duration
	svc        domsvc.ModelService
	log        *logger.Logger
	ctx        context.Context

	path []float64
	err  error
}

// RemoteOption configures RemoteModel factories.
type RemoteOption func(*RemoteModel)

func WithRemoteTimeout(d time.Duration) RemoteOption {
	return func(m *RemoteModel) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func WithRemoteLogger(l *logger.Logger) RemoteOption {
	return func(m *RemoteModel) {
		if l != nil {
			m.log = l
		}
	}
}

// NewRemoteFactory returns a factory of remote models for key, displayed as name.
func NewRemoteFactory(svc domsvc.ModelService, key, name string, maxHorizon int, opts ...RemoteOption) forecast.Factory {
	proto := RemoteModel{
		key:        key,
		name:       name,
		maxHorizon: maxHorizon,
		timeout:    20 * time.Second,
		svc:        svc,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(&proto)
	}
	return func() forecast.Model {
		m := proto
		return &m
	}
}

func (m *RemoteModel) Name() string { return m.name }

// BindContext makes ctx the parent of every service call made by Fit.
func (m *RemoteModel) BindContext(ctx context.Context) { m.ctx = ctx }

func (m *RemoteModel) Fit(train []float64) {
	m.path, m.err = nil, nil
	if len(train) == 0 {
		return
	}

	parent := m.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, m.timeout)
	defer cancel()
	path, err := m.svc.Forecast(ctx, m.key, train, m.maxHorizon)
	if err != nil {
		m.err = err
		m.log.Warn("remote model unavailable, holding last price",
			logger.String("model", m.key), logger.Error(err))
		path = []float64{train[len(train)-1]}
	}
	m.path = path
}

// Predict truncates or extends the fitted path by repeating its last value. Values are floored at 0.
func (m *RemoteModel) Predict(steps int) []float64 {
	if steps <= 0 {
		return []float64{}
	}
	out := make([]float64, steps)
	if len(m.path) == 0 {
		return out
	}
	for i := range out {
		v := m.path[len(m.path)-1]
		if i < len(m.path) {
			v = m.path[i]
		}
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}

// Err is the error from the last Fit, if the service could not be reached.
func (m *RemoteModel) Err() error { return m.err }

var (
	_ forecast.Model         = (*RemoteModel)(nil)
	_ forecast.ContextBinder = (*RemoteModel)(nil)
)
