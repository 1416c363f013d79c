package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	models "StockSim/internal/domain/models"
	"StockSim/internal/service/metrics"
	"StockSim/internal/service/ratelimit"
	"StockSim/internal/services/forecast"
	"StockSim/internal/usecase"
	xhttp "StockSim/pkg/http"
	xlogger "StockSim/pkg/logger"
	"StockSim/pkg/util"
)

const streamWriteTimeout = 10 * time.Second

// SimulationHandler serves the simulation API over Echo.
type SimulationHandler struct {
	uc       *usecase.SimulateUseCase
	limiter  *ratelimit.Limiter
	logger   *xlogger.Logger
	upgrader websocket.Upgrader
}

// NewSimulationHandler builds the handler. A nil limiter disables throttling.
func NewSimulationHandler(uc *usecase.SimulateUseCase, limiter *ratelimit.Limiter, logger *xlogger.Logger) *SimulationHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SimulationHandler{
		uc:      uc,
		limiter: limiter,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *SimulationHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/simulate", h.Simulate)
	g.GET("/tickers", h.Tickers)
	g.GET("/models", h.Models)
	g.GET("/scenarios/stream", h.StreamScenarios)
}

// Simulate runs a full simulation and returns the complete result.
func (h *SimulationHandler) Simulate(c echo.Context) error {
	const endpoint = "simulate"
	start := time.Now()
	defer func() { metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if err := h.throttle(c); err != nil {
		return h.fail(c, endpoint, err)
	}
	req := &models.SimulateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint, "400").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Run(c.Request().Context(), usecase.SimulateParams{
		Ticker:  req.Ticker,
		Horizon: req.HorizonMonths,
		Models:  req.Models,
	})
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SimulationHandler) Tickers(c echo.Context) error {
	tickers := h.uc.Tickers()
	return xhttp.ListResponse(c, tickers, int64(len(tickers)))
}

func (h *SimulationHandler) Models(c echo.Context) error {
	entries := h.uc.Models()
	return xhttp.ListResponse(c, entries, int64(len(entries)))
}

// StreamScenarios runs a simulation and then sends each scenario step as its own
// websocket frame, followed by {"done":true}. Errors before the upgrade are plain
// JSON responses with the same status codes as Simulate.
func (h *SimulationHandler) StreamScenarios(c echo.Context) error {
	const endpoint = "scenarios_stream"
	start := time.Now()
	defer func() { metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if err := h.throttle(c); err != nil {
		return h.fail(c, endpoint, err)
	}
	req := &models.ScenarioStreamRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint, "400").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Run(c.Request().Context(), usecase.SimulateParams{
		Ticker:  req.Ticker,
		Horizon: req.HorizonMonths,
		Models:  util.SplitCSV(req.Models),
	})
	if err != nil {
		return h.fail(c, endpoint, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	for _, step := range res.Scenarios {
		if err := h.writeFrame(conn, step); err != nil {
			h.logger.Warn("scenario stream write", xlogger.String("ticker", res.Metadata.Ticker), xlogger.Error(err))
			return nil
		}
	}
	if err := h.writeFrame(conn, map[string]bool{"done": true}); err != nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return nil
}

func (h *SimulationHandler) writeFrame(conn *websocket.Conn, v interface{}) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

func (h *SimulationHandler) throttle(c echo.Context) error {
	if h.limiter == nil {
		return nil
	}
	ip := xhttp.ClientIP(c.Request())
	ok, wait := h.limiter.Reserve(ip)
	if ok {
		return nil
	}
	secs := int(wait.Seconds() + 0.999)
	if secs < 1 {
		secs = 1
	}
	c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
	h.logger.Warn("rate limited", xlogger.String("ip", ip))
	return xhttp.TooManyRequestsError("too many requests, retry later").WithParam("retryAfter", secs)
}

// fail maps use case errors onto the AppError envelope and counts them.
func (h *SimulationHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	metrics.EndpointErrors.WithLabelValues(endpoint, strconv.Itoa(appErr.Status)).Inc()
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" failed", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, forecast.ErrInvalidArgument), errors.Is(err, forecast.ErrParse):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrInsufficientData):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("simulation failed").WithError(err)
	}
}

var _ xhttp.Handler = (*SimulationHandler)(nil)
