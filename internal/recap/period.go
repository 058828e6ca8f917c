package recap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Recap periods are calendar years. Riot match history reaches back to 2010;
// the upper bound just guards against garbled input.
const (
	minPeriodYear = 2010
	maxPeriodYear = 2100
)

// ErrInvalidPeriod is returned when a period string is not a usable calendar
// year.
var ErrInvalidPeriod = errors.New("invalid period")

// ParsePeriod validates a period string and returns it as a year.
func ParsePeriod(period string) (int, error) {
	period = strings.TrimSpace(period)

	year, err := strconv.Atoi(period)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a year", ErrInvalidPeriod, period)
	}

	if year < minPeriodYear || year > maxPeriodYear {
		return 0, fmt.Errorf("%w: year %d outside %d-%d", ErrInvalidPeriod, year, minPeriodYear, maxPeriodYear)
	}

	return year, nil
}
