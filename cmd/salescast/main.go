// Command salescast runs one batch forecast over a sales table in a sqlite
// database, overwrites the evaluation tables, and writes the HTML report and
// diagnostics summary.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/profile"

	"github.com/salescast/salescast"
	"github.com/salescast/salescast/report"
	"github.com/salescast/salescast/store"
)

func main() {
	var (
		dbPath     = flag.String("db", "sales.db", "path to the sqlite database holding the sales table")
		table      = flag.String("table", "sales", "input table name")
		dateCol    = flag.String("date-col", "date", "input date column, formatted YYYY-MM-DD")
		valueCol   = flag.String("value-col", "sales", "input value column")
		keyCols    = flag.String("key-cols", "store,item", "comma separated dimension columns forming the series key")
		horizon    = flag.Int("horizon", 90, "future steps to forecast per series")
		freq       = flag.Duration("freq", 24*time.Hour, "forecast step frequency")
		cutoffStr  = flag.String("cutoff", "", "train/test cutoff date, YYYY-MM-DD (required)")
		region     = flag.String("region", "US", "holiday calendar region code")
		minHistory = flag.Int("min-history", 365, "fewest observations a series may have and still be fit")
		parallel   = flag.Int("parallel", 0, "max concurrent series fits, 0 for GOMAXPROCS")
		timeout    = flag.Duration("series-timeout", 0, "per-series fit timeout, 0 to disable")
		reportPath = flag.String("report", "forecast.html", "HTML report output path, empty to skip")
		diagPath   = flag.String("diagnostics", "diagnostics.json", "diagnostics JSON output path, empty to skip")
		configPath = flag.String("config", "", "optional JSON run config, overridden by explicit flags")
		cpuProfile = flag.Bool("cpuprofile", false, "write a CPU profile to the working directory")
	)
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if *cpuProfile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	opt, err := buildOptions(*configPath, *horizon, *freq, *cutoffStr, *region, *minHistory, *parallel, *timeout)
	if err != nil {
		slog.Error("invalid run options", "error", err.Error())
		os.Exit(1)
	}

	if err := run(context.Background(), opt, *dbPath, *table, *dateCol, *valueCol, splitCols(*keyCols), *reportPath, *diagPath); err != nil {
		slog.Error("batch run failed", "error", err.Error())
		os.Exit(1)
	}
}

// buildOptions layers defaults, then the config file, then any explicitly
// set flags.
func buildOptions(configPath string, horizon int, freq time.Duration, cutoffStr, region string, minHistory, parallel int, timeout time.Duration) (*salescast.Options, error) {
	opt := salescast.NewDefaultOptions()

	if configPath != "" {
		cfg, err := salescast.LoadRunConfig(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Apply(opt); err != nil {
			return nil, err
		}
	}

	set := make(map[string]struct{})
	flag.Visit(func(f *flag.Flag) { set[f.Name] = struct{}{} })
	if _, ok := set["horizon"]; ok {
		opt.Horizon = horizon
	}
	if _, ok := set["freq"]; ok {
		opt.Frequency = freq
	}
	if _, ok := set["region"]; ok {
		opt.Region = region
	}
	if _, ok := set["min-history"]; ok {
		opt.MinHistory = minHistory
	}
	if _, ok := set["parallel"]; ok {
		opt.Parallelization = parallel
	}
	if _, ok := set["series-timeout"]; ok {
		opt.PerSeriesTimeout = timeout
	}
	if _, ok := set["cutoff"]; ok {
		cutoff, err := time.Parse("2006-01-02", cutoffStr)
		if err != nil {
			return nil, err
		}
		opt.Cutoff = cutoff
	}

	return opt, opt.Validate()
}

func splitCols(cols string) []string {
	var out []string
	for _, col := range strings.Split(cols, ",") {
		if col = strings.TrimSpace(col); col != "" {
			out = append(out, col)
		}
	}
	return out
}

func run(ctx context.Context, opt *salescast.Options, dbPath, table, dateCol, valueCol string, keyCols []string, reportPath, diagPath string) error {
	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	obs, err := db.LoadObservations(ctx, table, dateCol, valueCol, keyCols)
	if err != nil {
		return err
	}

	batch, err := salescast.New(opt)
	if err != nil {
		return err
	}
	res, err := batch.Run(ctx, obs)
	if err != nil {
		return err
	}

	if err := db.SaveEvaluation(ctx, res.Rows); err != nil {
		return err
	}
	if err := db.SaveSummaries(ctx, append(res.Summaries, res.KeySummaries...)); err != nil {
		return err
	}

	if reportPath != "" {
		file, err := os.Create(reportPath)
		if err != nil {
			return err
		}
		defer file.Close()
		if err := report.Write(file, res.Rows, res.Summaries); err != nil {
			return err
		}
	}

	if diagPath != "" {
		file, err := os.Create(diagPath)
		if err != nil {
			return err
		}
		defer file.Close()
		if err := res.Diagnostics.WriteJSON(file); err != nil {
			return err
		}
	}
	return nil
}
