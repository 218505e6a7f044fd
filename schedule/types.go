/*
Package schedule builds the unified calendar views: the daily view that
overlays holidays, leaves, and office visits onto one row per date, and
the periodic aggregation view grouped by month, year, or ISO week.

Both views are pure read-then-compute pipelines. They hold no locks,
persist nothing, and are safe to run with unbounded read concurrency.
*/
package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// DAY LABEL - What a calendar day primarily is
// =============================================================================

// DayLabel classifies a calendar day. Precedence is HOLIDAY > LEAVE >
// VISIT > NONE, applied by overlay order, not by comparing ranks.
type DayLabel string

const (
	LabelNone    DayLabel = "none"
	LabelHoliday DayLabel = "holiday"
	LabelLeave   DayLabel = "leave"
	LabelVisit   DayLabel = "visit"
)

// =============================================================================
// CALENDAR DAY - One row of the daily view
// =============================================================================

// CalendarDay is the merged view of a single date. Built fresh per
// request, never persisted.
type CalendarDay struct {
	Date      engine.Date
	DayOfWeek time.Weekday
	Label     DayLabel

	// Holiday overlay
	HolidayName string

	// Leave overlay
	LeaveID      engine.LeaveID
	LeavePolicy  engine.PolicyID
	LeaveDayPart engine.DayPart
	LeaveNotes   string

	// Visit overlay
	VisitID   string
	VisitType engine.VisitType
}

// =============================================================================
// PERIOD AGGREGATE - One row of the periodic view
// =============================================================================

// PeriodAggregate summarizes one period bucket. LeaveDays is rounded to
// an integer at this display boundary only; all internal math keeps
// fractional precision.
type PeriodAggregate struct {
	Period string

	WFOCount    int
	WFHCount    int
	HybridCount int
	OtherCount  int

	LeaveDays    int
	HolidayCount int
}

// roundLeaveDays discards fractional precision for display, half up.
func roundLeaveDays(d decimal.Decimal) int {
	return int(d.Round(0).IntPart())
}
