package salescast

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/us"
)

var ErrUnknownRegion = errors.New("unknown calendar region")

// RegionHolidays maps an ISO 3166-1 alpha-2 region code to the public
// holiday set injected as calendar-event regressors into every series fit.
// An empty region defaults to US.
func RegionHolidays(region string) ([]*cal.Holiday, error) {
	switch strings.ToUpper(region) {
	case "", "US":
		return us.Holidays, nil
	case "GB":
		return gb.Holidays, nil
	case "CA":
		return ca.Holidays, nil
	case "DE":
		return de.Holidays, nil
	case "FR":
		return fr.Holidays, nil
	}
	return nil, fmt.Errorf("%q, %w", region, ErrUnknownRegion)
}
