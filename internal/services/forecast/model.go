package forecast

import "context"

// Model is a stateful forecaster. Fit replaces any previous state; Predict is a pure
// function of that state and must return exactly steps values (none when steps <= 0).
// Predict before Fit returns zero-valued forecasts.
type Model interface {
	Name() string
	Fit(train []float64)
	Predict(steps int) []float64
}

// Factory builds a fresh, un-fitted model.
type Factory func() Model

// ContextBinder is implemented by models whose Fit does blocking work.
type ContextBinder interface {
	BindContext(ctx context.Context)
}

// WithContext returns a factory whose models are bound to ctx when they implement
// ContextBinder. Other models are returned as built.
func WithContext(ctx context.Context, f Factory) Factory {
	return func() Model {
		m := f()
		if b, ok := m.(ContextBinder); ok {
			b.BindContext(ctx)
		}
		return m
	}
}

func repeat(v float64, steps int) []float64 {
	if steps <= 0 {
		return []float64{}
	}
	out := make([]float64, steps)
	for i := range out {
		out[i] = v
	}
	return out
}
