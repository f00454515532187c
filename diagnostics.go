package salescast

import (
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Diagnostics summarizes one batch run for operators: how many series were
// forecast, which ones were skipped and why, and how long the run took.
type Diagnostics struct {
	RunID          string          `json:"run_id"`
	StartedAt      time.Time       `json:"started_at"`
	Elapsed        string          `json:"elapsed"`
	SeriesTotal    int             `json:"series_total"`
	SeriesForecast int             `json:"series_forecast"`
	SeriesFailed   int             `json:"series_failed"`
	Failures       []FailureDetail `json:"failures,omitempty"`
}

// FailureDetail identifies a skipped series and the reason it was skipped.
type FailureDetail struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

func NewDiagnostics() Diagnostics {
	return Diagnostics{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
}

func (d *Diagnostics) record(seriesTotal int, failures []SeriesFailure, elapsed time.Duration) {
	d.SeriesTotal = seriesTotal
	d.SeriesFailed = len(failures)
	d.SeriesForecast = seriesTotal - len(failures)
	d.Elapsed = elapsed.String()
	for _, f := range failures {
		d.Failures = append(d.Failures, FailureDetail{Key: f.Key, Reason: f.Err.Error()})
	}
}

// WriteJSON writes the diagnostics as indented JSON.
func (d Diagnostics) WriteJSON(w io.Writer) error {
	bytes, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(bytes)
	return err
}
