package models

import "time"

// SimulationMetadata describes the input series of a simulation.
type SimulationMetadata struct {
	Ticker       string    `json:"ticker"`
	Horizon      int       `json:"horizonMonths"`
	CurrentPrice float64   `json:"currentPrice"`
	DateRange    string    `json:"dateRange"`
	NPoints      int       `json:"nPoints"`
	Models       []string  `json:"models"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// ModelScenario is the forecast path of a single model.
type ModelScenario struct {
	Key   string         `json:"key"`
	Name  string         `json:"name"`
	Steps []ScenarioStep `json:"steps"`
}

// BacktestPoint is one month of the backtest chart: the realised close and each
// model's out-of-sample prediction for it, keyed by model name.
type BacktestPoint struct {
	Month       string             `json:"month"`
	Actual      float64            `json:"actual"`
	Predictions map[string]float64 `json:"predictions"`
}

// HistoricalPrice is a rounded close for charting.
type HistoricalPrice struct {
	Month string  `json:"month"`
	Price float64 `json:"price"`
}

// PriceStat is a monthly row where Open is the previous month's close.
type PriceStat struct {
	Period    string  `json:"period"`
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"changePct"`
}

// SimulationResult is the complete output of a simulation run.
type SimulationResult struct {
	Metadata      SimulationMetadata `json:"metadata"`
	Scenarios     []ScenarioStep     `json:"scenarios"`
	ModelForecast []ModelScenario    `json:"modelForecasts"`
	Accuracy      []BacktestResult   `json:"accuracy"`
	BacktestChart []BacktestPoint    `json:"backtestChart"`
	Historical    []HistoricalPrice  `json:"historical"`
	PriceStats    []PriceStat        `json:"priceStats"`
	Errors        map[string]string  `json:"errors,omitempty"`
}

// BestModel returns the name of the lowest-MAE model, or "" when nothing was scored.
// Accuracy is expected to be ranked already.
func (r *SimulationResult) BestModel() string {
	if r == nil || len(r.Accuracy) == 0 {
		return ""
	}
	return r.Accuracy[0].ModelName
}

// SimulationCompleted is the event published after a successful run.
type SimulationCompleted struct {
	Ticker       string       `json:"ticker"`
	Horizon      int          `json:"horizonMonths"`
	CurrentPrice float64      `json:"currentPrice"`
	BestModel    string       `json:"bestModel"`
	BestMAE      float64      `json:"bestMae"`
	Final        ScenarioStep `json:"final"`
	GeneratedAt  time.Time    `json:"generatedAt"`
}
