// Package report renders the batch run as a single HTML page using Apache
// Echarts: one fit chart per series plus the partition accuracy summary.
package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/salescast/salescast/evaluate"
)

// Write renders all series charts and the summary onto one page.
func Write(w io.Writer, rows []evaluate.Row, summaries []evaluate.Summary) error {
	page := components.NewPage()
	page.AddCharts(summaryBar(summaries))
	for _, key := range seriesKeys(rows) {
		page.AddCharts(lineSeries(key, rows))
	}
	return page.Render(w)
}

func seriesKeys(rows []evaluate.Row) []string {
	var keys []string
	seen := make(map[string]struct{})
	for _, r := range rows {
		if _, exists := seen[r.Key]; exists {
			continue
		}
		seen[r.Key] = struct{}{}
		keys = append(keys, r.Key)
	}
	return keys
}

// lineSeries plots the actual values along with the forecasted, upper, and
// lower values for one series. Future rows have no actual and leave a gap.
func lineSeries(key string, rows []evaluate.Row) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: fmt.Sprintf("Series %s", key),
			},
		),
	)

	t := make([]time.Time, 0, len(rows))
	lineDataActual := make([]opts.LineData, 0, len(rows))
	lineDataForecast := make([]opts.LineData, 0, len(rows))
	lineDataUpper := make([]opts.LineData, 0, len(rows))
	lineDataLower := make([]opts.LineData, 0, len(rows))

	for _, r := range rows {
		if r.Key != key {
			continue
		}
		t = append(t, r.T)
		if math.IsNaN(r.Actual) {
			lineDataActual = append(lineDataActual, opts.LineData{Value: nil})
		} else {
			lineDataActual = append(lineDataActual, opts.LineData{Value: r.Actual})
		}
		lineDataForecast = append(lineDataForecast, opts.LineData{Value: r.Forecast})
		lineDataUpper = append(lineDataUpper, opts.LineData{Value: r.Upper})
		lineDataLower = append(lineDataLower, opts.LineData{Value: r.Lower})
	}

	line.SetXAxis(t).
		AddSeries("Actual", lineDataActual).
		AddSeries("Forecast", lineDataForecast).
		AddSeries("Upper", lineDataUpper).
		AddSeries("Lower", lineDataLower)
	return line
}

// summaryBar charts accuracy per partition. Undefined accuracy renders as a
// missing bar rather than a zero.
func summaryBar(summaries []evaluate.Summary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: "Accuracy by partition",
			},
		),
	)

	labels := make([]string, 0, len(summaries))
	barData := make([]opts.BarData, 0, len(summaries))
	for _, s := range summaries {
		labels = append(labels, string(s.Partition))
		if math.IsNaN(s.Accuracy) {
			barData = append(barData, opts.BarData{Value: nil})
			continue
		}
		barData = append(barData, opts.BarData{Value: s.Accuracy})
	}

	bar.SetXAxis(labels).AddSeries("Accuracy", barData)
	return bar
}
