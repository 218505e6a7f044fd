package schedule

import (
	"context"
	"fmt"

	"github.com/warp/attendance-engine/engine"
)

// DefaultMaxWindowDays caps daily view windows at one leap year.
const DefaultMaxWindowDays = 366

// DefaultMaxAggregateDays caps aggregate windows at roughly ten years.
// Aggregation walks day by day, so the window must stay bounded even
// though each period collapses to one row.
const DefaultMaxAggregateDays = 3660

// =============================================================================
// VIEWER - Read-only calendar merge engine
// =============================================================================

// Viewer builds the daily and periodic calendar views from the three
// independent event sources.
type Viewer struct {
	Holidays engine.HolidayStore
	Leaves   engine.LeaveStore
	Visits   engine.VisitStore

	// MaxWindowDays caps the daily view window; zero means
	// DefaultMaxWindowDays.
	MaxWindowDays int

	// MaxAggregateDays caps the periodic view window; zero means
	// DefaultMaxAggregateDays.
	MaxAggregateDays int
}

func NewViewer(holidays engine.HolidayStore, leaves engine.LeaveStore, visits engine.VisitStore) *Viewer {
	return &Viewer{Holidays: holidays, Leaves: leaves, Visits: visits}
}

func (v *Viewer) maxWindow() int {
	if v.MaxWindowDays > 0 {
		return v.MaxWindowDays
	}
	return DefaultMaxWindowDays
}

func (v *Viewer) maxAggregateWindow() int {
	if v.MaxAggregateDays > 0 {
		return v.MaxAggregateDays
	}
	return DefaultMaxAggregateDays
}

// DailyView builds one CalendarDay per date in [from, to] for a user.
//
// The overlay order is fixed and must not be reordered:
//  1. holidays - set holiday fields and label unconditionally
//  2. leaves   - label only days still unlabeled (holiday wins)
//  3. visits   - label only days still unlabeled
func (v *Viewer) DailyView(ctx context.Context, userID engine.UserID, from, to engine.Date) ([]CalendarDay, error) {
	window := engine.Span{Start: from, End: to}
	if !window.Valid() {
		return nil, fmt.Errorf("%w: window end %s before start %s", engine.ErrInvalidArgument, to, from)
	}
	if window.Len() > v.maxWindow() {
		return nil, &engine.RangeTooLargeError{Days: window.Len(), Max: v.maxWindow()}
	}

	holidays, err := v.Holidays.FindHolidays(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	leaves, err := v.Leaves.FindLeavesOverlapping(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load leaves: %w", err)
	}
	visits, err := v.Visits.FindVisits(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load visits: %w", err)
	}

	days := make([]CalendarDay, 0, window.Len())
	index := make(map[engine.Date]int, window.Len())
	for cur := from; cur.BeforeOrEqual(to); cur = cur.AddDays(1) {
		index[cur] = len(days)
		days = append(days, CalendarDay{
			Date:      cur,
			DayOfWeek: cur.Weekday(),
			Label:     LabelNone,
		})
	}

	// 1. Holidays overwrite whatever was there.
	for _, h := range holidays {
		i, ok := index[h.Date]
		if !ok {
			continue
		}
		days[i].Label = LabelHoliday
		days[i].HolidayName = h.Name
	}

	// 2. Leaves fill days the holidays left unlabeled.
	for _, rec := range leaves {
		clipped, ok := rec.Span().Clip(window)
		if !ok {
			continue
		}
		for cur := clipped.Start; cur.BeforeOrEqual(clipped.End); cur = cur.AddDays(1) {
			i := index[cur]
			days[i].LeaveID = rec.ID
			days[i].LeavePolicy = rec.PolicyID
			days[i].LeaveDayPart = rec.DayPart
			days[i].LeaveNotes = rec.Notes
			if days[i].Label == LabelNone {
				days[i].Label = LabelLeave
			}
		}
	}

	// 3. Visits fill what's left.
	for _, visit := range visits {
		i, ok := index[visit.Date]
		if !ok {
			continue
		}
		days[i].VisitID = visit.ID
		days[i].VisitType = engine.NormalizeVisitType(string(visit.Type))
		if days[i].Label == LabelNone {
			days[i].Label = LabelVisit
		}
	}

	return days, nil
}
