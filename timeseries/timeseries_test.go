package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestBuildKey(t *testing.T) {
	testData := map[string]struct {
		dims     []string
		expected string
		err      error
	}{
		"no dimensions": {
			err: ErrNoSeriesDimensions,
		},
		"single dimension": {
			dims:     []string{"2"},
			expected: "2",
		},
		"store and item": {
			dims:     []string{"2", "17"},
			expected: "2_17",
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			key, err := BuildKey(td.dims...)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, key)
		})
	}
}

func TestNewSeries(t *testing.T) {
	testData := map[string]struct {
		t        []time.Time
		y        []float64
		expected Series
		err      error
	}{
		"no observations": {
			err: ErrNoObservations,
		},
		"length mismatch": {
			t:   []time.Time{date(2017, 1, 1)},
			y:   []float64{1, 2},
			err: ErrSeriesLenMismatch,
		},
		"non increasing time": {
			t:   []time.Time{date(2017, 1, 2), date(2017, 1, 1)},
			y:   []float64{1, 2},
			err: ErrNonMonotonic,
		},
		"duplicate time": {
			t:   []time.Time{date(2017, 1, 1), date(2017, 1, 1)},
			y:   []float64{1, 2},
			err: ErrNonMonotonic,
		},
		"valid": {
			t: []time.Time{date(2017, 1, 1), date(2017, 1, 2)},
			y: []float64{1, 2},
			expected: Series{
				Key: "1_1",
				T:   []time.Time{date(2017, 1, 1), date(2017, 1, 2)},
				Y:   []float64{1, 2},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			series, err := NewSeries("1_1", td.t, td.y)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, series)
		})
	}
}

func TestSeriesCopy(t *testing.T) {
	series, err := NewSeries("1_1", []time.Time{date(2017, 1, 1), date(2017, 1, 2)}, []float64{3, 4})
	require.Nil(t, err)

	next := series.Copy()
	require.Equal(t, series, next)

	series.Y[0] = 99
	assert.NotEqual(t, next.Y[0], series.Y[0])
}

func TestExtract(t *testing.T) {
	cutoff := date(2017, 1, 3)

	testData := map[string]struct {
		obs      []Observation
		expected []Series
		err      error
	}{
		"no observations": {
			err: ErrNoObservations,
		},
		"groups and sorts by key": {
			obs: []Observation{
				{Key: "2_1", T: date(2017, 1, 2), Value: 20},
				{Key: "1_1", T: date(2017, 1, 2), Value: 12},
				{Key: "1_1", T: date(2017, 1, 1), Value: 11},
				{Key: "2_1", T: date(2017, 1, 1), Value: 19},
			},
			expected: []Series{
				{Key: "1_1", T: []time.Time{date(2017, 1, 1), date(2017, 1, 2)}, Y: []float64{11, 12}},
				{Key: "2_1", T: []time.Time{date(2017, 1, 1), date(2017, 1, 2)}, Y: []float64{19, 20}},
			},
		},
		"cutoff is inclusive": {
			obs: []Observation{
				{Key: "1_1", T: date(2017, 1, 3), Value: 13},
				{Key: "1_1", T: date(2017, 1, 4), Value: 14},
			},
			expected: []Series{
				{Key: "1_1", T: []time.Time{date(2017, 1, 3)}, Y: []float64{13}},
			},
		},
		"duplicate timestamp last wins": {
			obs: []Observation{
				{Key: "1_1", T: date(2017, 1, 1), Value: 1},
				{Key: "1_1", T: date(2017, 1, 1), Value: 7},
			},
			expected: []Series{
				{Key: "1_1", T: []time.Time{date(2017, 1, 1)}, Y: []float64{7}},
			},
		},
		"all observations past cutoff": {
			obs: []Observation{
				{Key: "1_1", T: date(2017, 2, 1), Value: 1},
			},
			expected: []Series{},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			series, err := Extract(td.obs, cutoff)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, series)
		})
	}
}
