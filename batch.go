// Package salescast runs per-series batch forecasts over a long
// (date, series key, value) sales table. Each series is fit independently
// and in parallel, per-series bundles are flattened back into one evaluable
// table, and forecasts are scored against withheld actuals per train/test
// partition. The decomposition model itself is delegated to
// github.com/aouyang1/go-forecaster; this package is the harness around it.
package salescast

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/salescast/salescast/evaluate"
	"github.com/salescast/salescast/timeseries"
)

// SeriesFailure records one series excluded from the batch output and why.
type SeriesFailure struct {
	Key string
	Err error
}

// RunResult is the full output of one batch run: the flattened evaluation
// rows, partition and per-series accuracy summaries, the series that were
// skipped, and the run diagnostics.
type RunResult struct {
	Rows         []evaluate.Row
	Summaries    []evaluate.Summary
	KeySummaries []evaluate.Summary
	Failures     []SeriesFailure
	Diagnostics  Diagnostics
}

// Batch fans the forecast worker out across series keys. Results are
// identical regardless of how many series run concurrently.
type Batch struct {
	opt    *Options
	worker *Worker
}

// New validates the options and creates a Batch ready to run.
func New(opt *Options) (*Batch, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	worker, err := NewWorker(opt)
	if err != nil {
		return nil, err
	}
	return &Batch{opt: opt, worker: worker}, nil
}

// Run extracts series from the observations, forecasts each one
// independently, flattens the bundles, and evaluates them against the full
// set of actuals. Per-series failures never abort the run; they reduce
// coverage and are surfaced in the result.
func (b *Batch) Run(ctx context.Context, obs []timeseries.Observation) (*RunResult, error) {
	diag := NewDiagnostics()
	start := time.Now()

	series, err := timeseries.Extract(obs, b.opt.Cutoff)
	if err != nil {
		return nil, err
	}
	slog.Info("extracted series", "run_id", diag.RunID, "series", len(series), "observations", len(obs))

	bundles, failures := b.forecastAll(ctx, series)

	points, flattenFailures := Flatten(bundles)
	failures = append(failures, flattenFailures...)
	sort.Slice(failures, func(i, j int) bool { return failures[i].Key < failures[j].Key })

	rows := evaluate.Evaluate(points, obs, b.opt.Cutoff)

	diag.record(len(series), failures, time.Since(start))
	slog.Info("batch complete",
		"run_id", diag.RunID,
		"series_forecast", diag.SeriesForecast,
		"series_failed", diag.SeriesFailed,
		"rows", len(rows),
		"elapsed", diag.Elapsed,
	)

	return &RunResult{
		Rows:         rows,
		Summaries:    evaluate.Summarize(rows),
		KeySummaries: evaluate.SummarizeByKey(rows),
		Failures:     failures,
		Diagnostics:  diag,
	}, nil
}

// forecastAll applies the worker to every series with a semaphore-bounded
// pool. No series observes another's outcome or timing; the assembled
// bundles are sorted by key so schedule and pool width never change the
// result.
func (b *Batch) forecastAll(ctx context.Context, series []timeseries.Series) ([]Bundle, []SeriesFailure) {
	width := b.opt.Parallelization
	if width < 1 {
		width = runtime.GOMAXPROCS(0)
	}

	sem := make(chan struct{}, width)
	var wg sync.WaitGroup

	var mu sync.Mutex
	bundles := make([]Bundle, 0, len(series))
	var failures []SeriesFailure

	for _, s := range series {
		sem <- struct{}{}
		wg.Add(1)

		go func(s timeseries.Series) {
			defer func() {
				wg.Done()
				<-sem
			}()

			runCtx := ctx
			if b.opt.PerSeriesTimeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(ctx, b.opt.PerSeriesTimeout)
				defer cancel()
			}

			bundle, err := b.worker.Forecast(runCtx, s)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("skipping series", "key", s.Key, "error", err.Error())
				failures = append(failures, SeriesFailure{Key: s.Key, Err: err})
				return
			}
			bundles = append(bundles, bundle)
		}(s)
	}
	wg.Wait()

	sort.Slice(bundles, func(i, j int) bool { return bundles[i].Key < bundles[j].Key })
	return bundles, failures
}
