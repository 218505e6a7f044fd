package engine

import "fmt"

// =============================================================================
// PERIOD KEYS - String bucket identifiers for calendar aggregation
// =============================================================================

// Granularity selects how dates are bucketed into periods.
type Granularity string

const (
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
	GranularityWeek  Granularity = "week"
)

// ParseGranularity validates a groupBy value from the outside world.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GranularityMonth, GranularityYear, GranularityWeek:
		return Granularity(s), nil
	default:
		return "", &UnsupportedGranularityError{Value: s}
	}
}

// PeriodKey maps a date to its period bucket key:
//
//	month -> "2025-03"
//	year  -> "2025"
//	week  -> "2025-W09" (ISO 8601 week-based year)
//
// Week keys use the week-based year, not the calendar year, so that days
// near a year boundary land in the correct week bucket (Dec 31 can belong
// to week 1 of the following week-based year).
func PeriodKey(d Date, g Granularity) (string, error) {
	switch g {
	case GranularityMonth:
		return d.Time.Format("2006-01"), nil
	case GranularityYear:
		return d.Time.Format("2006"), nil
	case GranularityWeek:
		isoYear, isoWeek := d.Time.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", isoYear, isoWeek), nil
	default:
		return "", &UnsupportedGranularityError{Value: string(g)}
	}
}

// MustPeriodKey is PeriodKey for a granularity already validated by
// ParseGranularity. Panics on an unknown granularity.
func MustPeriodKey(d Date, g Granularity) string {
	key, err := PeriodKey(d, g)
	if err != nil {
		panic(err)
	}
	return key
}

// EnumeratePeriods returns every period key touched by [from, to], in
// chronological order with no duplicates. Partial boundary periods are
// included. Walking day by day keeps week enumeration correct across
// month and year boundaries.
func EnumeratePeriods(from, to Date, g Granularity) ([]string, error) {
	if _, err := PeriodKey(from, g); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: period range end %s before start %s", ErrInvalidArgument, to, from)
	}

	var keys []string
	last := ""
	for cur := from; cur.BeforeOrEqual(to); cur = cur.AddDays(1) {
		key := MustPeriodKey(cur, g)
		if key != last {
			keys = append(keys, key)
			last = key
		}
	}
	return keys, nil
}
