package models

// Fold is one walk-forward evaluation window. TrainEnd is the exclusive end of the
// training prefix; Start is the series index of Actual[0].
type Fold struct {
	TrainEnd  int       `json:"trainEnd"`
	Start     int       `json:"start"`
	Actual    []float64 `json:"actual"`
	Predicted []float64 `json:"predicted"`
}

// BacktestResult scores one model over every fold of a walk-forward backtest.
// Degraded means at least one fold was predicted by a stand-in after the model failed.
type BacktestResult struct {
	ModelName string  `json:"modelName"`
	MAE       float64 `json:"mae"`
	RMSE      float64 `json:"rmse"`
	Folds     []Fold  `json:"folds"`
	Degraded  bool    `json:"degraded,omitempty"`
}

// ScenarioStep is the price band for one forecast month.
type ScenarioStep struct {
	Month   string  `json:"month"`
	Bearish float64 `json:"bearish"`
	Stable  float64 `json:"stable"`
	Bullish float64 `json:"bullish"`
}
