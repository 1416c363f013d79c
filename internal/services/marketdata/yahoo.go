package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"StockSim/internal/domain/models"
	"StockSim/internal/domain/repository"
	"StockSim/internal/services/features"
	xhttp "StockSim/pkg/http"
	"StockSim/pkg/util"
)

const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// ErrNoData is returned when the upstream has no usable closes for a ticker.
var ErrNoData = errors.New("marketdata: no data")

// YahooSource reads monthly closes from the Yahoo Finance v8 chart API.
type YahooSource struct {
	baseURL string
	client  *xhttp.Client
	now     func() time.Time
}

type YahooOption func(*YahooSource)

func WithYahooBaseURL(u string) YahooOption {
	return func(s *YahooSource) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithYahooClient(c *xhttp.Client) YahooOption {
	return func(s *YahooSource) {
		if c != nil {
			s.client = c
		}
	}
}

func NewYahooSource(opts ...YahooOption) *YahooSource {
	s := &YahooSource{
		baseURL: DefaultYahooBaseURL,
		client: xhttp.NewClient(
			xhttp.WithTimeout(15*time.Second),
			xhttp.WithUserAgent("Mozilla/5.0 (compatible; stocksim/1.0)"),
		),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Currency string `json:"currency"`
		Symbol   string `json:"symbol"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// FetchMonthly returns adjusted monthly closes for the last years years. The
// oldest point is dropped because it has no previous close to compute a return from.
func (s *YahooSource) FetchMonthly(ctx context.Context, ticker string, years int) (models.PriceSeries, error) {
	if years <= 0 {
		years = 10
	}
	now := s.now().UTC()
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(util.YearsBefore(now, years).Unix(), 10))
	q.Set("period2", strconv.FormatInt(now.Unix(), 10))
	q.Set("interval", "1mo")
	q.Set("events", "div,splits")

	var resp chartResponse
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    s.baseURL + "/v8/finance/chart/" + url.PathEscape(ticker) + "?" + q.Encode(),
	}, &resp)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}
	if e := resp.Chart.Error; e != nil {
		return models.PriceSeries{}, fmt.Errorf("yahoo chart %s: %s: %s", ticker, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return models.PriceSeries{}, fmt.Errorf("yahoo chart %s: %w", ticker, ErrNoData)
	}

	r := resp.Chart.Result[0]
	points := monthlyPoints(r)
	if len(points) < 2 {
		return models.PriceSeries{}, fmt.Errorf("yahoo chart %s: %w", ticker, ErrNoData)
	}
	return models.PriceSeries{
		Ticker:   ticker,
		Currency: r.Meta.Currency,
		Points:   features.WithReturns(points)[1:],
	}, nil
}

// monthlyPoints prefers adjclose, skips nulls, sorts by time and keeps the latest
// quote when two timestamps fall in the same month.
func monthlyPoints(r chartResult) []models.PricePoint {
	var closes []*float64
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) > 0 {
		closes = r.Indicators.AdjClose[0].AdjClose
	} else if len(r.Indicators.Quote) > 0 {
		closes = r.Indicators.Quote[0].Close
	}

	type row struct {
		ts    int64
		close float64
	}
	rows := make([]row, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		rows = append(rows, row{ts: ts, close: *closes[i]})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts < rows[j].ts })

	points := make([]models.PricePoint, 0, len(rows))
	for _, rw := range rows {
		label := util.MonthLabelUnix(rw.ts)
		if n := len(points); n > 0 && points[n-1].Month == label {
			points[n-1].Close = rw.close
			continue
		}
		points = append(points, models.PricePoint{Month: label, Close: rw.close})
	}
	return points
}

var _ repository.PriceSource = (*YahooSource)(nil)
