package forecast

import "fmt"

// Built-in model keys.
const (
	KeyAverage = "average"
	KeyLast    = "last"
	KeyTrend   = "trend"
	KeyEMA     = "ema"
)

// Entry binds a request key to a model factory.
type Entry struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Factory Factory `json:"-"`
}

// Registry resolves model keys to factories in registration order.
// It is populated at startup and read-only afterwards.
type Registry struct {
	entries []Entry
	index   map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a factory under key. The display name is taken from a fresh instance.
func (r *Registry) Register(key string, f Factory) error {
	if key == "" || f == nil {
		return fmt.Errorf("register model %q: %w", key, ErrInvalidArgument)
	}
	if _, ok := r.index[key]; ok {
		return fmt.Errorf("model %q already registered: %w", key, ErrInvalidArgument)
	}
	r.index[key] = len(r.entries)
	r.entries = append(r.entries, Entry{Key: key, Name: f().Name(), Factory: f})
	return nil
}

// Get returns the factory registered under key.
func (r *Registry) Get(key string) (Factory, bool) {
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.entries[i].Factory, true
}

// Entries returns a copy of all entries in registration order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

func (r *Registry) Keys() []string {
	keys := make([]string, len(r.entries))
	for i, e := range r.entries {
		keys[i] = e.Key
	}
	return keys
}

// Resolve maps requested keys to entries, keeping registration order and dropping
// duplicates. No keys means every registered model.
func (r *Registry) Resolve(keys []string) ([]Entry, error) {
	if len(keys) == 0 {
		return r.Entries(), nil
	}
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := r.index[k]; !ok {
			return nil, fmt.Errorf("unknown model %q: %w", k, ErrInvalidArgument)
		}
		want[k] = struct{}{}
	}
	out := make([]Entry, 0, len(want))
	for _, e := range r.entries {
		if _, ok := want[e.Key]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Baselines returns the three reference models.
func Baselines() []Entry {
	return []Entry{
		{Key: KeyAverage, Name: "Historical Average", Factory: NewHistoricalAverageModel},
		{Key: KeyLast, Name: "Last Price Hold", Factory: NewLastPriceHoldModel},
		{Key: KeyTrend, Name: "Trend Projection", Factory: NewTrendProjectionModel},
	}
}

// NewDefaultRegistry registers the baselines followed by the EMA model.
func NewDefaultRegistry(emaPeriod int) *Registry {
	r := NewRegistry()
	for _, e := range Baselines() {
		_ = r.Register(e.Key, e.Factory)
	}
	_ = r.Register(KeyEMA, NewExponentialSmoothingModel(emaPeriod))
	return r
}
