// Package timeseries holds the observation and series types shared across the
// batch forecasting pipeline along with the extraction step that groups a
// long (key, timestamp, value) table into per-series histories.
package timeseries

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// KeySeparator joins the dimension values that identify a series. Callers
// must guarantee the separator does not occur inside a dimension value.
const KeySeparator = "_"

var (
	ErrNoObservations     = errors.New("no observations")
	ErrNonMonotonic       = errors.New("series timestamps are not monotonically increasing")
	ErrSeriesLenMismatch  = errors.New("series timestamps have a different length than values")
	ErrNoSeriesDimensions = errors.New("no series dimensions to build a key from")
)

// Observation is a single (series key, timestamp, value) row from the input
// table.
type Observation struct {
	Key   string
	T     time.Time
	Value float64
}

// Series is the ordered history for one forecasting unit. Timestamps are
// strictly increasing and aligned with Y.
type Series struct {
	Key string
	T   []time.Time
	Y   []float64
}

// NewSeries validates and copies the given timestamps and values into a
// Series.
func NewSeries(key string, t []time.Time, y []float64) (Series, error) {
	if len(y) == 0 {
		return Series{}, fmt.Errorf("series %q, %w", key, ErrNoObservations)
	}
	if len(t) != len(y) {
		return Series{}, fmt.Errorf(
			"series %q has %d timestamps, but %d values, %w",
			key, len(t), len(y), ErrSeriesLenMismatch,
		)
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		if !t[i].After(lastT) {
			return Series{}, fmt.Errorf("series %q non-monotonic at %d, %w", key, i, ErrNonMonotonic)
		}
		lastT = t[i]
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	return Series{Key: key, T: tSeries, Y: ySeries}, nil
}

// Len returns the number of observations in the series.
func (s Series) Len() int {
	return len(s.T)
}

// Copy returns a deep copy of the series.
func (s Series) Copy() Series {
	tSeries := make([]time.Time, len(s.T))
	ySeries := make([]float64, len(s.Y))
	copy(tSeries, s.T)
	copy(ySeries, s.Y)
	return Series{Key: s.Key, T: tSeries, Y: ySeries}
}

// BuildKey builds a stable series key from the natural dimension values of a
// row, e.g. BuildKey("2", "17") for store 2, item 17.
func BuildKey(dims ...string) (string, error) {
	if len(dims) == 0 {
		return "", ErrNoSeriesDimensions
	}
	return strings.Join(dims, KeySeparator), nil
}

// ForecastPoint is one forecasted row for a series at a single timestamp.
// Lower <= Forecast <= Upper is the common case but is not guaranteed by the
// model and is passed through untouched.
type ForecastPoint struct {
	Key      string
	T        time.Time
	Forecast float64
	Lower    float64
	Upper    float64
}

// Extract groups observations by series key, keeps timestamps at or before
// cutoff, and returns one ordered Series per key sorted by key. Duplicate
// timestamps within a key resolve to the last observation seen, matching the
// supersede semantics of re-delivered upstream exports.
func Extract(obs []Observation, cutoff time.Time) ([]Series, error) {
	if len(obs) == 0 {
		return nil, ErrNoObservations
	}

	grouped := make(map[string]map[time.Time]float64)
	for _, o := range obs {
		if o.T.After(cutoff) {
			continue
		}
		byTime, exists := grouped[o.Key]
		if !exists {
			byTime = make(map[time.Time]float64)
			grouped[o.Key] = byTime
		}
		byTime[o.T] = o.Value
	}

	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	series := make([]Series, 0, len(keys))
	for _, key := range keys {
		byTime := grouped[key]
		t := make([]time.Time, 0, len(byTime))
		for ts := range byTime {
			t = append(t, ts)
		}
		sort.Slice(t, func(i, j int) bool { return t[i].Before(t[j]) })

		y := make([]float64, 0, len(t))
		for _, ts := range t {
			y = append(y, byTime[ts])
		}
		series = append(series, Series{Key: key, T: t, Y: y})
	}
	return series, nil
}
