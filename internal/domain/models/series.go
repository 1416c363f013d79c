package models

// PricePoint is one monthly close. Month is "YYYY-MM" and ReturnPct is the percent
// change from the previous close.
type PricePoint struct {
	Month     string  `json:"month"`
	Close     float64 `json:"close"`
	ReturnPct float64 `json:"returnPct"`
}

// PriceSeries is a chronologically ordered monthly history for one ticker.
type PriceSeries struct {
	Ticker   string       `json:"ticker"`
	Currency string       `json:"currency,omitempty"`
	Points   []PricePoint `json:"points"`
}

func (s PriceSeries) Len() int { return len(s.Points) }

// Closes returns the close prices in order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Labels returns the month labels in order.
func (s PriceSeries) Labels() []string {
	out := make([]string, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Month
	}
	return out
}

// Last returns the most recent point, or false when the series is empty.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}
