package analytics

import (
	"context"
	"fmt"
	"net/url"
	"time"

	domsvc "StockSim/internal/domain/service"
	svcmetrics "StockSim/internal/service/metrics"
)

// HTTPModelService calls an external forecasting service, one endpoint per model key.
type HTTPModelService struct {
	base     *HTTPServiceBase
	attempts int
}

func NewHTTPModelService(baseURL string, timeout time.Duration, attempts int) *HTTPModelService {
	return &HTTPModelService{base: NewHTTPServiceBase(baseURL, timeout), attempts: attempts}
}

type forecastReq struct {
	Series  []float64 `json:"series"`
	Horizon int       `json:"horizon"`
}

type forecastResp struct {
	Forecast []float64 `json:"forecast"`
	Model    string    `json:"model,omitempty"`
}

// Forecast posts the training series and returns the predicted path for horizon months.
func (s *HTTPModelService) Forecast(ctx context.Context, key string, train []float64, horizon int) ([]float64, error) {
	start := time.Now()
	var resp forecastResp
	err := s.base.PostJSONWithRetry(ctx, "/forecast/"+url.PathEscape(key),
		forecastReq{Series: train, Horizon: horizon}, &resp, s.attempts)

	result := "ok"
	if err != nil {
		result = "error"
	}
	svcmetrics.ModelServiceLatency.WithLabelValues(key, result).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("forecast %s: %w", key, err)
	}
	if len(resp.Forecast) == 0 {
		return nil, fmt.Errorf("forecast %s: empty path", key)
	}
	return resp.Forecast, nil
}

var _ domsvc.ModelService = (*HTTPModelService)(nil)
