package salescast

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// RunConfig is the JSON file form of Options. Durations are strings like
// "24h" and the cutoff is a date like "2017-09-30". Fields omitted from the
// file leave the corresponding option untouched, so partial configs are safe.
type RunConfig struct {
	Horizon          *int    `json:"horizon,omitempty"`
	Frequency        *string `json:"frequency,omitempty"`
	Cutoff           *string `json:"cutoff,omitempty"`
	Region           *string `json:"region,omitempty"`
	MinHistory       *int    `json:"min_history,omitempty"`
	Parallelization  *int    `json:"parallelization,omitempty"`
	PerSeriesTimeout *string `json:"per_series_timeout,omitempty"`
}

// LoadRunConfig reads a RunConfig from a JSON file.
func LoadRunConfig(path string) (*RunConfig, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read run config, %w", err)
	}
	var cfg RunConfig
	if err := json.Unmarshal(bytes, &cfg); err != nil {
		return nil, fmt.Errorf("unable to parse run config, %w", err)
	}
	return &cfg, nil
}

// Apply overlays the config file values onto the given options.
func (c *RunConfig) Apply(opt *Options) error {
	if c.Horizon != nil {
		opt.Horizon = *c.Horizon
	}
	if c.Frequency != nil {
		freq, err := time.ParseDuration(*c.Frequency)
		if err != nil {
			return fmt.Errorf("unable to parse frequency, %w", err)
		}
		opt.Frequency = freq
	}
	if c.Cutoff != nil {
		cutoff, err := time.Parse("2006-01-02", *c.Cutoff)
		if err != nil {
			return fmt.Errorf("unable to parse cutoff date, %w", err)
		}
		opt.Cutoff = cutoff
	}
	if c.Region != nil {
		opt.Region = *c.Region
	}
	if c.MinHistory != nil {
		opt.MinHistory = *c.MinHistory
	}
	if c.Parallelization != nil {
		opt.Parallelization = *c.Parallelization
	}
	if c.PerSeriesTimeout != nil {
		timeout, err := time.ParseDuration(*c.PerSeriesTimeout)
		if err != nil {
			return fmt.Errorf("unable to parse per series timeout, %w", err)
		}
		opt.PerSeriesTimeout = timeout
	}
	return nil
}
