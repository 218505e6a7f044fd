package schedule

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/engine"
)

// PeriodAggregates summarizes the window grouped by the given
// granularity. Every period touched by [from, to] appears exactly once,
// in chronological order, even when it holds no events.
//
// Leave days use the same clip + per-day-share + bucket pipeline as the
// balance ledger, so the two subsystems never disagree about how many
// days a leave counts for in a period. Rounding to an integer happens
// only here, at the display boundary.
//
// Empty userID aggregates across all users.
func (v *Viewer) PeriodAggregates(ctx context.Context, userID engine.UserID, from, to engine.Date, groupBy engine.Granularity) ([]PeriodAggregate, error) {
	window := engine.Span{Start: from, End: to}
	if !window.Valid() {
		return nil, fmt.Errorf("%w: window end %s before start %s", engine.ErrInvalidArgument, to, from)
	}
	if window.Len() > v.maxAggregateWindow() {
		return nil, &engine.RangeTooLargeError{Days: window.Len(), Max: v.maxAggregateWindow()}
	}

	keys, err := engine.EnumeratePeriods(from, to, groupBy)
	if err != nil {
		return nil, err
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

	aggs := make([]PeriodAggregate, len(keys))
	index := make(map[string]int, len(keys))
	for i, key := range keys {
		aggs[i] = PeriodAggregate{Period: key}
		index[key] = i
	}

	for _, visit := range visits {
		i, ok := index[engine.MustPeriodKey(visit.Date, groupBy)]
		if !ok {
			continue
		}
		switch engine.NormalizeVisitType(string(visit.Type)) {
		case engine.VisitWFO:
			aggs[i].WFOCount++
		case engine.VisitWFH:
			aggs[i].WFHCount++
		case engine.VisitHybrid:
			aggs[i].HybridCount++
		default:
			aggs[i].OtherCount++
		}
	}

	leaveDays := make(map[string]decimal.Decimal, len(keys))
	for _, rec := range leaves {
		for key, share := range engine.DistributeByPeriod(rec.Span(), rec.TotalDays, window, groupBy) {
			leaveDays[key] = leaveDays[key].Add(share)
		}
	}
	for key, total := range leaveDays {
		if i, ok := index[key]; ok {
			aggs[i].LeaveDays = roundLeaveDays(total)
		}
	}

	for _, h := range holidays {
		if i, ok := index[engine.MustPeriodKey(h.Date, groupBy)]; ok {
			aggs[i].HolidayCount++
		}
	}

	return aggs, nil
}
