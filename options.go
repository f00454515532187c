package salescast

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoCutoff           = errors.New("no train/test cutoff date set")
	ErrNonPositiveHorizon = errors.New("horizon must be at least one step")
	ErrNonPositiveFreq    = errors.New("forecast frequency must be positive")
	ErrMinHistoryTooSmall = errors.New("minimum history must be at least 2 observations")
)

// Options configures a batch run. All values are supplied by the caller up
// front; there is no interactive surface.
type Options struct {
	// Horizon is the number of future steps to forecast past the last
	// observation of each series.
	Horizon int

	// Frequency is the spacing between forecast steps.
	Frequency time.Duration

	// Cutoff bounds the training window and splits evaluation rows into
	// TRAIN and TEST. The boundary itself is TRAIN.
	Cutoff time.Time

	// Region selects the public holiday set used as calendar-event
	// regressors, e.g. "US".
	Region string

	// MinHistory is the fewest observations a series may have and still be
	// fit. Series below it are skipped and recorded as failures.
	MinHistory int

	// Parallelization caps concurrent series fits. Zero or negative uses
	// GOMAXPROCS.
	Parallelization int

	// PerSeriesTimeout bounds a single series' fit. Zero disables it. A
	// series that exceeds the bound is recorded as a failure without
	// affecting other series.
	PerSeriesTimeout time.Duration
}

// NewDefaultOptions returns options for daily retail sales: a 90 day
// horizon and a minimum of one full yearly seasonal cycle of history.
func NewDefaultOptions() *Options {
	return &Options{
		Horizon:    90,
		Frequency:  24 * time.Hour,
		Region:     "US",
		MinHistory: 365,
	}
}

func (o *Options) Validate() error {
	if o.Horizon < 1 {
		return fmt.Errorf("got %d, %w", o.Horizon, ErrNonPositiveHorizon)
	}
	if o.Frequency <= 0 {
		return fmt.Errorf("got %s, %w", o.Frequency, ErrNonPositiveFreq)
	}
	if o.Cutoff.IsZero() {
		return ErrNoCutoff
	}
	if o.MinHistory < 2 {
		return fmt.Errorf("got %d, %w", o.MinHistory, ErrMinHistoryTooSmall)
	}
	if _, err := RegionHolidays(o.Region); err != nil {
		return err
	}
	return nil
}
