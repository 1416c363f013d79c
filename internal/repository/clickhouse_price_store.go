package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockSim/internal/domain/models"
	domrepo "StockSim/internal/domain/repository"
	"StockSim/internal/services/features"
	pkgch "StockSim/pkg/clickhouse"
	applogger "StockSim/pkg/logger"
	"StockSim/pkg/util"
)

const DefaultPriceTable = "monthly_closes"

// CHPriceStore keeps monthly closes in a ReplacingMergeTree keyed by (ticker, month),
// so re-storing a month replaces the older row.
type CHPriceStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
}

func NewCHPriceStore(ch *pkgch.Client, table string) *CHPriceStore {
	if table == "" {
		table = DefaultPriceTable
	}
	return &CHPriceStore{db: ch.DB(), table: table, l: applogger.Nop(), now: time.Now}
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CHPriceStore) schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            ticker     LowCardinality(String),
            month      Date,
            close      Float64,
            currency   LowCardinality(String),
            updated_at DateTime DEFAULT now()
        )
        ENGINE = ReplacingMergeTree(updated_at)
        ORDER BY (ticker, month)`, s.table)}
}

func (s *CHPriceStore) Init(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init %s: %w", s.table, err)
		}
	}
	return nil
}

func (s *CHPriceStore) FetchMonthly(ctx context.Context, ticker string, years int) (models.PriceSeries, error) {
	start := time.Now()
	since := util.YearsBefore(s.now().UTC(), years)
	q := fmt.Sprintf(`
        SELECT formatDateTime(month, '%%Y-%%m') AS m, argMax(close, updated_at), any(currency)
        FROM %s
        WHERE ticker = ? AND month >= ?
        GROUP BY month
        ORDER BY month ASC`, s.table)

	rows, err := s.db.QueryContext(ctx, q, ticker, since)
	if err != nil {
		s.l.Error("clickhouse fetch_monthly query error",
			applogger.String("table", s.table),
			applogger.String("ticker", ticker),
			applogger.Error(err),
		)
		return models.PriceSeries{}, fmt.Errorf("fetch monthly %s: %w", ticker, err)
	}
	defer rows.Close()

	series := models.PriceSeries{Ticker: ticker}
	for rows.Next() {
		var p models.PricePoint
		var currency string
		if err := rows.Scan(&p.Month, &p.Close, &currency); err != nil {
			return models.PriceSeries{}, fmt.Errorf("scan monthly close: %w", err)
		}
		series.Currency = currency
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return models.PriceSeries{}, fmt.Errorf("rows: %w", err)
	}
	series.Points = features.WithReturns(series.Points)

	s.l.Debug("clickhouse fetch_monthly ok",
		applogger.String("ticker", ticker),
		applogger.Int("rows", series.Len()),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return series, nil
}

// StoreMonthly upserts every point of series in one multi-row INSERT.
func (s *CHPriceStore) StoreMonthly(ctx context.Context, series models.PriceSeries) error {
	q, args, err := buildInsert(s.table, series)
	if err != nil || q == "" {
		return err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store monthly %s: %w", series.Ticker, err)
	}
	return nil
}

func buildInsert(table string, series models.PriceSeries) (string, []interface{}, error) {
	if len(series.Points) == 0 {
		return "", nil, nil
	}
	values := make([]string, 0, len(series.Points))
	args := make([]interface{}, 0, len(series.Points)*4)
	for _, p := range series.Points {
		month, err := time.Parse(util.MonthLayout, p.Month)
		if err != nil {
			return "", nil, fmt.Errorf("store monthly %s: bad month %q: %w", series.Ticker, p.Month, err)
		}
		values = append(values, "(?, ?, ?, ?)")
		args = append(args, series.Ticker, month, p.Close, series.Currency)
	}
	q := fmt.Sprintf("INSERT INTO %s (ticker, month, close, currency) VALUES %s", table, strings.Join(values, ","))
	return q, args, nil
}

func (s *CHPriceStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to the clickhouse client.
func (s *CHPriceStore) Close() error { return nil }

var _ domrepo.PriceStore = (*CHPriceStore)(nil)
