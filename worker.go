package salescast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/go-forecaster"
	"github.com/aouyang1/go-forecaster/forecast/options"
	"github.com/rickar/cal/v2"
	"github.com/salescast/salescast/timeseries"
)

var ErrInsufficientHistory = errors.New("insufficient history to fit seasonal components")

// FitError records a model fit or predict failure for a single series.
type FitError struct {
	Key string
	Err error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("series %q fit failed, %s", e.Key, e.Err.Error())
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// Bundle is the forecast output for one series covering every historical
// timestamp plus the configured horizon.
type Bundle struct {
	Key    string
	Points []timeseries.ForecastPoint
}

// Worker fits one forecast model per series and emits that series' bundle.
// The model is fit on the series' own history alone; the only cross-series
// input is the fixed holiday regressor set shared by every series. A Worker
// holds no mutable state and is safe for concurrent use.
type Worker struct {
	horizon    int
	freq       time.Duration
	minHistory int
	holidays   []*cal.Holiday
}

// NewWorker creates a Worker from the batch options. The region code is
// resolved to its holiday set up front so an unknown region fails before any
// per-series work starts.
func NewWorker(opt *Options) (*Worker, error) {
	holidays, err := RegionHolidays(opt.Region)
	if err != nil {
		return nil, err
	}
	return &Worker{
		horizon:    opt.Horizon,
		freq:       opt.Frequency,
		minHistory: opt.MinHistory,
		holidays:   holidays,
	}, nil
}

// Forecast fits the model on the series history and predicts over the full
// output grid. The model fit itself is not interruptible, so cancellation is
// observed before the fit and again before assembling the result.
func (w *Worker) Forecast(ctx context.Context, series timeseries.Series) (Bundle, error) {
	if series.Len() < w.minHistory {
		return Bundle{}, fmt.Errorf(
			"series %q has %d of %d required observations, %w",
			series.Key, series.Len(), w.minHistory, ErrInsufficientHistory,
		)
	}
	if err := ctx.Err(); err != nil {
		return Bundle{}, &FitError{Key: series.Key, Err: err}
	}

	f, err := forecaster.New(w.modelOptions(series))
	if err != nil {
		return Bundle{}, &FitError{Key: series.Key, Err: err}
	}
	if err := f.Fit(series.T, series.Y); err != nil {
		return Bundle{}, &FitError{Key: series.Key, Err: err}
	}

	grid := w.grid(series)
	res, err := f.Predict(grid)
	if err != nil {
		return Bundle{}, &FitError{Key: series.Key, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return Bundle{}, &FitError{Key: series.Key, Err: err}
	}

	points := make([]timeseries.ForecastPoint, 0, len(res.T))
	for i := 0; i < len(res.T); i++ {
		points = append(points, timeseries.ForecastPoint{
			Key:      series.Key,
			T:        res.T[i],
			Forecast: res.Forecast[i],
			Lower:    res.Lower[i],
			Upper:    res.Upper[i],
		})
	}
	return Bundle{Key: series.Key, Points: points}, nil
}

// grid returns every historical timestamp followed by horizon future steps
// at the configured frequency after the last observation.
func (w *Worker) grid(series timeseries.Series) []time.Time {
	t := make([]time.Time, 0, series.Len()+w.horizon)
	t = append(t, series.T...)

	last := series.T[series.Len()-1]
	for i := 1; i <= w.horizon; i++ {
		t = append(t, last.Add(time.Duration(i)*w.freq))
	}
	return t
}

func (w *Worker) modelOptions(series timeseries.Series) *forecaster.Options {
	start := series.T[0]
	end := series.T[series.Len()-1].Add(time.Duration(w.horizon) * w.freq)

	var events []options.Event
	for _, hol := range w.holidays {
		events = append(events, options.Holiday(hol, start, end, 0, 0)...)
	}

	return &forecaster.Options{
		SeriesOptions: &forecaster.SeriesOptions{
			ForecastOptions: &options.Options{
				Regularization: []float64{0.0, 1.0, 10.0},
				SeasonalityOptions: options.SeasonalityOptions{
					SeasonalityConfigs: []options.SeasonalityConfig{
						options.NewWeeklySeasonalityConfig(3),
						options.NewSeasonalityConfig("yearly", 365*24*time.Hour, 10),
					},
				},
				Iterations: 500,
				Tolerance:  1e-3,
				WeekendOptions: options.WeekendOptions{
					Enabled: true,
				},
				EventOptions: options.EventOptions{
					Events: events,
				},
			},
			OutlierOptions: &forecaster.OutlierOptions{
				NumPasses:       3,
				TukeyFactor:     1.5,
				LowerPercentile: 0.25,
				UpperPercentile: 0.75,
			},
		},
		UncertaintyOptions: &forecaster.UncertaintyOptions{
			ForecastOptions: &options.Options{
				Regularization: []float64{1.0},
				SeasonalityOptions: options.SeasonalityOptions{
					SeasonalityConfigs: []options.SeasonalityConfig{
						options.NewWeeklySeasonalityConfig(2),
					},
				},
				Iterations: 250,
				Tolerance:  1e-2,
			},
			ResidualWindow: 30,
			ResidualZscore: 4.0,
		},
	}
}
