package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry(DefaultEMAPeriod)
	assert.Equal(t, []string{KeyAverage, KeyLast, KeyTrend, KeyEMA}, r.Keys())

	f, ok := r.Get(KeyTrend)
	require.True(t, ok)
	assert.Equal(t, "Trend Projection", f().Name())

	_, ok = r.Get("arima")
	assert.False(t, ok)
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("avg", NewHistoricalAverageModel))
	assert.ErrorIs(t, r.Register("avg", NewLastPriceHoldModel), ErrInvalidArgument)
	assert.ErrorIs(t, r.Register("", NewLastPriceHoldModel), ErrInvalidArgument)
	assert.ErrorIs(t, r.Register("x", nil), ErrInvalidArgument)
	assert.Equal(t, "Historical Average", r.Entries()[0].Name)
}

func TestRegistryResolve(t *testing.T) {
	r := NewDefaultRegistry(DefaultEMAPeriod)

	all, err := r.Resolve(nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	some, err := r.Resolve([]string{KeyEMA, KeyAverage, KeyEMA})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, KeyAverage, some[0].Key)
	assert.Equal(t, KeyEMA, some[1].Key)

	_, err = r.Resolve([]string{"prophet"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBaselinesMatchFactories(t *testing.T) {
	for _, e := range Baselines() {
		assert.Equal(t, e.Name, e.Factory().Name(), e.Key)
	}
}
