package salescast

import (
	"errors"
	"fmt"
	"math"

	"github.com/salescast/salescast/timeseries"
)

var ErrNonFiniteForecast = errors.New("non-finite forecast value")

// Flatten expands per-series bundles into one row per (series key,
// timestamp), preserving each bundle's emitted timestamp order. Every row is
// stamped with its bundle's key so no series can pick up another's rows. A
// bundle containing a NaN or infinite forecast field drops in full and is
// reported as that series' failure; the remaining bundles are unaffected.
func Flatten(bundles []Bundle) ([]timeseries.ForecastPoint, []SeriesFailure) {
	n := 0
	for _, b := range bundles {
		n += len(b.Points)
	}

	points := make([]timeseries.ForecastPoint, 0, n)
	var failures []SeriesFailure
	for _, b := range bundles {
		if err := validateBundle(b); err != nil {
			failures = append(failures, SeriesFailure{Key: b.Key, Err: err})
			continue
		}
		for _, p := range b.Points {
			p.Key = b.Key
			points = append(points, p)
		}
	}
	return points, failures
}

func validateBundle(b Bundle) error {
	for _, p := range b.Points {
		for _, v := range [3]float64{p.Forecast, p.Lower, p.Upper} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("series %q at %s, %w", b.Key, p.T.Format("2006-01-02"), ErrNonFiniteForecast)
			}
		}
	}
	return nil
}
