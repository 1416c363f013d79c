package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "StockSim/internal/domain/models"
	"StockSim/internal/service/ratelimit"
	"StockSim/internal/services/forecast"
	"StockSim/internal/usecase"
)

type fakeSource struct {
	n   int
	err error
}

func (f *fakeSource) FetchMonthly(_ context.Context, ticker string, _ int) (models.PriceSeries, error) {
	if f.err != nil {
		return models.PriceSeries{}, f.err
	}
	s := models.PriceSeries{Ticker: ticker, Currency: "USD"}
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < f.n; i++ {
		s.Points = append(s.Points, models.PricePoint{
			Month: start.AddDate(0, i, 0).Format("2006-01"),
			Close: float64(100 + i),
		})
	}
	return s, nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestEcho(src *fakeSource, limiter *ratelimit.Limiter) *echo.Echo {
	uc := usecase.NewSimulateUseCase(src, forecast.NewDefaultRegistry(forecast.DefaultEMAPeriod),
		nil, nil, nil, nil, usecase.SimulateConfig{
			Tickers:  []string{"AAPL", "MSFT"},
			Horizons: []int{6, 12},
		})
	e := echo.New()
	NewSimulationHandler(uc, limiter, nil).RegisterRoutes(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestSimulateOK(t *testing.T) {
	e := newTestEcho(&fakeSource{n: 60}, nil)
	rec, env := doJSON(t, e, http.MethodPost, "/api/simulate", `{"ticker":"aapl"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.SimulationResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "AAPL", res.Metadata.Ticker)
	assert.Equal(t, 6, res.Metadata.Horizon)
	assert.Len(t, res.Scenarios, 6)
	assert.Equal(t, "Trend Projection", res.Accuracy[0].ModelName)
}

func TestSimulateErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    *fakeSource
		body   string
		status int
	}{
		{"missing ticker", &fakeSource{n: 60}, `{"horizonMonths":6}`, http.StatusBadRequest},
		{"bad horizon", &fakeSource{n: 60}, `{"ticker":"AAPL","horizonMonths":9}`, http.StatusBadRequest},
		{"malformed body", &fakeSource{n: 60}, `{"ticker":`, http.StatusBadRequest},
		{"unsupported ticker", &fakeSource{n: 60}, `{"ticker":"DOGE"}`, http.StatusBadRequest},
		{"unknown model", &fakeSource{n: 60}, `{"ticker":"AAPL","models":["arima"]}`, http.StatusBadRequest},
		{"short history", &fakeSource{n: 20}, `{"ticker":"AAPL"}`, http.StatusUnprocessableEntity},
		{"upstream failure", &fakeSource{err: errors.New("boom")}, `{"ticker":"AAPL"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho(tt.src, nil)
			rec, env := doJSON(t, e, http.MethodPost, "/api/simulate", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.status, env.Status)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "boom")
			}
		})
	}
}

func TestSimulateRateLimited(t *testing.T) {
	e := newTestEcho(&fakeSource{n: 60}, ratelimit.New(1, time.Minute))

	rec, _ := doJSON(t, e, http.MethodPost, "/api/simulate", `{"ticker":"AAPL"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doJSON(t, e, http.MethodPost, "/api/simulate", `{"ticker":"AAPL"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, string(env.Data), "ERR_RATE_LIMITED")

	req := httptest.NewRequest(http.MethodPost, "/api/simulate", strings.NewReader(`{"ticker":"AAPL"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	other := httptest.NewRecorder()
	e.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code, "limits are per client")
}

func TestTickersAndModels(t *testing.T) {
	e := newTestEcho(&fakeSource{n: 60}, nil)

	rec, env := doJSON(t, e, http.MethodGet, "/api/tickers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tickers struct {
		Rows  []string `json:"rows"`
		Total int64    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tickers))
	assert.Equal(t, []string{"AAPL", "MSFT"}, tickers.Rows)
	assert.EqualValues(t, 2, tickers.Total)

	rec, env = doJSON(t, e, http.MethodGet, "/api/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries struct {
		Rows []forecast.Entry `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries.Rows, 4)
	assert.Equal(t, "average", entries.Rows[0].Key)
	assert.Equal(t, "Exponential Smoothing", entries.Rows[3].Name)
}

func TestStreamScenarios(t *testing.T) {
	srv := httptest.NewServer(newTestEcho(&fakeSource{n: 60}, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/scenarios/stream?ticker=MSFT&horizonMonths=12&models=last,trend"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 12; i++ {
		var step models.ScenarioStep
		require.NoError(t, conn.ReadJSON(&step))
		assert.LessOrEqual(t, step.Bearish, step.Stable)
		assert.LessOrEqual(t, step.Stable, step.Bullish)
		if i == 0 {
			assert.Equal(t, "2024-01", step.Month)
			assert.Equal(t, 159.0, step.Bearish)
			assert.Equal(t, 160.0, step.Bullish)
		}
	}
	var done map[string]bool
	require.NoError(t, conn.ReadJSON(&done))
	assert.True(t, done["done"])
}

func TestStreamScenariosRejectsBeforeUpgrade(t *testing.T) {
	srv := httptest.NewServer(newTestEcho(&fakeSource{n: 60}, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/scenarios/stream?ticker=DOGE"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
