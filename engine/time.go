package engine

import (
	"strings"
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date (the engine never cares about clocks)
// =============================================================================

// Date is a calendar date, normalized to UTC midnight. Every quantity in
// this system is attributed to whole calendar days, so day granularity is
// the only granularity the engine supports.
type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary timestamp to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// ParseDate parses a "YYYY-MM-DD" date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func Today() Date {
	return DateOf(time.Now())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// MarshalJSON writes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON reads a "YYYY-MM-DD" date.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Min/Max
func (d Date) Min(other Date) Date {
	if other.Before(d) {
		return other
	}
	return d
}

func (d Date) Max(other Date) Date {
	if other.After(d) {
		return other
	}
	return d
}

// DaysBetween returns the number of whole days from one date to another.
// Negative when to is before from.
func DaysBetween(from, to Date) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }

// =============================================================================
// SPAN - Inclusive date range [Start, End]
// =============================================================================

// Span is an inclusive date range. Leaves and holidays occupy spans;
// query windows are spans. A single-day span has Start == End.
type Span struct {
	Start Date
	End   Date
}

func NewSpan(start, end Date) Span { return Span{Start: start, End: end} }

// Valid reports whether End is on or after Start.
func (s Span) Valid() bool { return s.End.AfterOrEqual(s.Start) }

// Len returns the inclusive day count of the span.
func (s Span) Len() int { return DaysBetween(s.Start, s.End) + 1 }

// Contains reports whether the date falls within [Start, End].
func (s Span) Contains(d Date) bool {
	return d.AfterOrEqual(s.Start) && d.BeforeOrEqual(s.End)
}

// Clip returns the intersection of the span with a query window.
// ok is false when the two do not overlap; the zero contribution case.
func (s Span) Clip(window Span) (Span, bool) {
	start := s.Start.Max(window.Start)
	end := s.End.Min(window.End)
	if end.Before(start) {
		return Span{}, false
	}
	return Span{Start: start, End: end}, true
}

// Overlaps reports whether the span shares at least one day with other.
func (s Span) Overlaps(other Span) bool {
	_, ok := s.Clip(other)
	return ok
}

// YearWindow returns the [Jan 1, Dec 31] span for a calendar year.
func YearWindow(year int) Span {
	return Span{Start: StartOfYear(year), End: EndOfYear(year)}
}

func (s Span) String() string {
	return "[" + s.Start.String() + ", " + s.End.String() + "]"
}
