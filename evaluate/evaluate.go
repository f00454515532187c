// Package evaluate joins flattened forecasts against withheld actuals and
// scores forecast accuracy per train/test partition.
package evaluate

import (
	"math"
	"sort"
	"time"

	"github.com/salescast/salescast/timeseries"
	"gonum.org/v1/gonum/floats"
)

// Partition labels a row as in-sample training data or held-out test data.
type Partition string

const (
	Train Partition = "TRAIN"
	Test  Partition = "TEST"
)

// PartitionFor assigns the partition for a timestamp. The cutoff itself is
// TRAIN.
func PartitionFor(t, cutoff time.Time) Partition {
	if !t.After(cutoff) {
		return Train
	}
	return Test
}

// Row is one forecast point joined with its actual value where observed.
// Actual, Err, and AbsErr are NaN for future timestamps with no observation.
type Row struct {
	Key       string
	T         time.Time
	Forecast  float64
	Lower     float64
	Upper     float64
	Actual    float64
	Err       float64
	AbsErr    float64
	Partition Partition
}

// Summary aggregates accuracy over one partition, optionally scoped to a
// single series key. Accuracy is NaN when the partition's actuals sum to
// zero since a zero-sales period is a valid business outcome, not an error.
type Summary struct {
	Key       string
	Partition Partition
	N         int
	SumActual float64
	SumAbsErr float64
	Accuracy  float64
	MAPE      float64
	MSE       float64
}

// Evaluate left-joins forecast points to actual observations on
// (key, timestamp) and labels each row's partition against the cutoff.
// Rows come out in the order the points came in.
func Evaluate(points []timeseries.ForecastPoint, actuals []timeseries.Observation, cutoff time.Time) []Row {
	type joinKey struct {
		key string
		t   time.Time
	}
	observed := make(map[joinKey]float64, len(actuals))
	for _, o := range actuals {
		observed[joinKey{o.Key, o.T}] = o.Value
	}

	rows := make([]Row, 0, len(points))
	for _, p := range points {
		row := Row{
			Key:       p.Key,
			T:         p.T,
			Forecast:  p.Forecast,
			Lower:     p.Lower,
			Upper:     p.Upper,
			Actual:    math.NaN(),
			Err:       math.NaN(),
			AbsErr:    math.NaN(),
			Partition: PartitionFor(p.T, cutoff),
		}
		if actual, exists := observed[joinKey{p.Key, p.T}]; exists {
			row.Actual = actual
			row.Err = actual - p.Forecast
			row.AbsErr = math.Abs(row.Err)
		}
		rows = append(rows, row)
	}
	return rows
}

// Accuracy computes 1 - sum(abs_error)/sum(actual), returning NaN when the
// denominator is zero.
func Accuracy(sumAbsErr, sumActual float64) float64 {
	if sumActual == 0 {
		return math.NaN()
	}
	return 1.0 - sumAbsErr/sumActual
}

// Summarize aggregates rows into one summary per partition. Rows without an
// observed actual are excluded from all sums.
func Summarize(rows []Row) []Summary {
	return summarize(rows, func(r Row) string { return "" })
}

// SummarizeByKey aggregates rows into one summary per (series key,
// partition).
func SummarizeByKey(rows []Row) []Summary {
	return summarize(rows, func(r Row) string { return r.Key })
}

func summarize(rows []Row, scope func(Row) string) []Summary {
	type group struct {
		key       string
		partition Partition
	}
	actuals := make(map[group][]float64)
	absErrs := make(map[group][]float64)
	sqErrs := make(map[group][]float64)

	for _, r := range rows {
		if math.IsNaN(r.Actual) {
			continue
		}
		g := group{scope(r), r.Partition}
		actuals[g] = append(actuals[g], r.Actual)
		absErrs[g] = append(absErrs[g], r.AbsErr)
		sqErrs[g] = append(sqErrs[g], r.Err*r.Err)
	}

	summaries := make([]Summary, 0, len(actuals))
	for g, act := range actuals {
		sumActual := floats.Sum(act)
		sumAbsErr := floats.Sum(absErrs[g])
		summaries = append(summaries, Summary{
			Key:       g.key,
			Partition: g.partition,
			N:         len(act),
			SumActual: sumActual,
			SumAbsErr: sumAbsErr,
			Accuracy:  Accuracy(sumAbsErr, sumActual),
			MAPE:      mape(absErrs[g], act),
			MSE:       floats.Sum(sqErrs[g]) / float64(len(act)),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Key != summaries[j].Key {
			return summaries[i].Key < summaries[j].Key
		}
		return summaries[i].Partition < summaries[j].Partition
	})
	return summaries
}

// mape skips zero actuals the same way the underlying model scores its own
// fit, since the percent error is undefined there.
func mape(absErrs, actuals []float64) float64 {
	total := 0.0
	for i := 0; i < len(actuals); i++ {
		if actuals[i] == 0 {
			continue
		}
		total += absErrs[i] / math.Abs(actuals[i])
	}
	return total / float64(len(actuals))
}
