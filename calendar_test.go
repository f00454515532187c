package salescast

import (
	"testing"

	"github.com/aouyang1/go-forecaster/forecast/options"
	"github.com/rickar/cal/v2/us"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionHolidays(t *testing.T) {
	testData := map[string]struct {
		region string
		err    error
	}{
		"default":    {region: ""},
		"us":         {region: "US"},
		"lower case": {region: "us"},
		"gb":         {region: "GB"},
		"ca":         {region: "CA"},
		"de":         {region: "DE"},
		"fr":         {region: "FR"},
		"unknown":    {region: "XX", err: ErrUnknownRegion},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			holidays, err := RegionHolidays(td.region)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.NotEmpty(t, holidays)
		})
	}
}

func TestHolidayEventsCoverWindow(t *testing.T) {
	// a window containing Dec 25 must produce at least one christmas event
	events := options.Holiday(us.ChristmasDay, date(2017, 1, 1), date(2018, 2, 4), 0, 0)
	require.NotEmpty(t, events)
	for _, ev := range events {
		assert.Nil(t, ev.Valid())
	}
}
