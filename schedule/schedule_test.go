package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/engine/store"
	"github.com/warp/attendance-engine/schedule"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestViewer(t *testing.T) (*schedule.Viewer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return schedule.NewViewer(mem, mem, mem), mem
}

func addLeave(t *testing.T, mem *store.Memory, id string, start, end engine.Date, total float64) {
	t.Helper()
	require.NoError(t, mem.CreateLeave(context.Background(), engine.LeaveRecord{
		ID:        engine.LeaveID(id),
		UserID:    "alice",
		PolicyID:  "annual",
		StartDate: start,
		EndDate:   end,
		TotalDays: decimal.NewFromFloat(total),
		DayPart:   engine.DayPartFull,
		Notes:     "trip",
	}))
}

// =============================================================================
// DAILY VIEW TESTS
// =============================================================================

func TestDailyView_EveryDayPresent(t *testing.T) {
	// An empty window still yields one row per day, all unlabeled.
	viewer, _ := newTestViewer(t)

	from := engine.NewDate(2025, time.March, 3)
	to := engine.NewDate(2025, time.March, 9)
	days, err := viewer.DailyView(context.Background(), "alice", from, to)
	require.NoError(t, err)

	require.Len(t, days, 7)
	assert.Equal(t, "2025-03-03", days[0].Date.String())
	assert.Equal(t, time.Monday, days[0].DayOfWeek)
	for _, day := range days {
		assert.Equal(t, schedule.LabelNone, day.Label)
	}
}

func TestDailyView_HolidayBeatsLeaveBeatsVisit(t *testing.T) {
	// GIVEN: A holiday, a leave, and a visit all on March 10
	viewer, mem := newTestViewer(t)
	ctx := context.Background()

	day := engine.NewDate(2025, time.March, 10)
	require.NoError(t, mem.SaveHoliday(ctx, engine.Holiday{ID: "h1", Date: day, Name: "Founders Day"}))
	addLeave(t, mem, "l1", day, day, 1)
	require.NoError(t, mem.SaveVisit(ctx, engine.OfficeVisit{ID: "v1", UserID: "alice", Date: day, Type: engine.VisitWFO}))

	// WHEN: The daily view is built
	days, err := viewer.DailyView(ctx, "alice", day, day)
	require.NoError(t, err)
	require.Len(t, days, 1)

	// THEN: The label is holiday, but leave and visit details are kept
	got := days[0]
	assert.Equal(t, schedule.LabelHoliday, got.Label)
	assert.Equal(t, "Founders Day", got.HolidayName)
	assert.Equal(t, engine.LeaveID("l1"), got.LeaveID)
	assert.Equal(t, "v1", got.VisitID)
	assert.Equal(t, engine.VisitWFO, got.VisitType)
}

func TestDailyView_LeaveBeatsVisit(t *testing.T) {
	viewer, mem := newTestViewer(t)
	ctx := context.Background()

	day := engine.NewDate(2025, time.March, 11)
	addLeave(t, mem, "l1", day, day, 1)
	require.NoError(t, mem.SaveVisit(ctx, engine.OfficeVisit{ID: "v1", UserID: "alice", Date: day, Type: engine.VisitWFH}))

	days, err := viewer.DailyView(ctx, "alice", day, day)
	require.NoError(t, err)
	assert.Equal(t, schedule.LabelLeave, days[0].Label)
	assert.Equal(t, engine.VisitWFH, days[0].VisitType)
}

func TestDailyView_LeaveClippedToWindow(t *testing.T) {
	// GIVEN: A leave extending past both window edges
	viewer, mem := newTestViewer(t)
	ctx := context.Background()

	addLeave(t, mem, "l1",
		engine.NewDate(2025, time.March, 8), engine.NewDate(2025, time.March, 20), 13)

	from := engine.NewDate(2025, time.March, 10)
	to := engine.NewDate(2025, time.March, 12)
	days, err := viewer.DailyView(ctx, "alice", from, to)
	require.NoError(t, err)

	// THEN: Every window day is labeled, nothing panics at the edges
	require.Len(t, days, 3)
	for _, day := range days {
		assert.Equal(t, schedule.LabelLeave, day.Label)
		assert.Equal(t, engine.LeaveID("l1"), day.LeaveID)
	}
}

func TestDailyView_OtherUsersEventsExcluded(t *testing.T) {
	viewer, mem := newTestViewer(t)
	ctx := context.Background()

	day := engine.NewDate(2025, time.March, 10)
	require.NoError(t, mem.CreateLeave(ctx, engine.LeaveRecord{
		ID: "l-bob", UserID: "bob", PolicyID: "annual",
		StartDate: day, EndDate: day,
		TotalDays: decimal.NewFromInt(1), DayPart: engine.DayPartFull,
	}))
	require.NoError(t, mem.SaveVisit(ctx, engine.OfficeVisit{ID: "v-bob", UserID: "bob", Date: day, Type: engine.VisitWFO}))

	days, err := viewer.DailyView(ctx, "alice", day, day)
	require.NoError(t, err)
	assert.Equal(t, schedule.LabelNone, days[0].Label)
	assert.Empty(t, days[0].LeaveID)
	assert.Empty(t, days[0].VisitID)
}

func TestDailyView_InvalidWindow(t *testing.T) {
	viewer, _ := newTestViewer(t)

	from := engine.NewDate(2025, time.March, 10)
	to := engine.NewDate(2025, time.March, 9)
	_, err := viewer.DailyView(context.Background(), "alice", from, to)
	assert.ErrorIs(t, err, engine.ErrInvalidArgument)
}

func TestDailyView_WindowTooLarge(t *testing.T) {
	viewer, _ := newTestViewer(t)

	from := engine.NewDate(2025, time.January, 1)
	to := engine.NewDate(2026, time.June, 1)
	_, err := viewer.DailyView(context.Background(), "alice", from, to)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrRangeTooLarge)
}

// =============================================================================
// PERIOD AGGREGATE TESTS
// =============================================================================

func TestPeriodAggregates_ZeroFilledPeriods(t *testing.T) {
	// GIVEN: Events only in January of a three-month window
	viewer, mem := newTestViewer(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveVisit(ctx, engine.OfficeVisit{
		ID: "v1", UserID: "alice", Date: engine.NewDate(2025, time.January, 6), Type: engine.VisitWFO,
	}))

	aggs, err := viewer.PeriodAggregates(ctx, "alice",
		engine.NewDate(2025, time.January, 1), engine.NewDate(2025, time.March, 31),
		engine.GranularityMonth)
	require.NoError(t, err)

	// THEN: February and March still appear, zero-valued
	require.Len(t, aggs, 3)
	assert.Equal(t, "2025-01", aggs[0].Period)
	assert.Equal(t, 1, aggs[0].WFOCount)
	assert.Equal(t, "2025-02", aggs[1].Period)
	assert.Equal(t, schedule.PeriodAggregate{Period: "2025-02"}, aggs[1])
	assert.Equal(t, schedule.PeriodAggregate{Period: "2025-03"}, aggs[2])
}

func TestPeriodAggregates_VisitTypeBuckets(t *testing.T) {
	viewer, mem := newTestViewer(t)
	ctx := context.Background()

	visits := []engine.OfficeVisit{
		{ID: "v1", UserID: "alice", Date: engine.NewDate(2025, time.March, 3), Type: engine.VisitWFO},
		{ID: "v2", UserID: "alice", Date: engine.NewDate(2025, time.March, 4), Type: engine.VisitWFH},
		{ID: "v3", UserID: "alice", Date: engine.NewDate(2025, time.March, 5), Type: engine.VisitHybrid},
		{ID: "v4", UserID: "alice", Date: engine.NewDate(2025, time.March, 6), Type: engine.VisitType("onsite-client")},
	}
	for _, v := range visits {
		require.NoError(t, mem.SaveVisit(ctx, v))
	}

	aggs, err := viewer.PeriodAggregates(ctx, "alice",
		engine.NewDate(2025, time.March, 1), engine.NewDate(2025, time.March, 31),
		engine.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, aggs, 1)

	// Unknown types land in the others bucket.
	assert.Equal(t, 1, aggs[0].WFOCount)
	assert.Equal(t, 1, aggs[0].WFHCount)
	assert.Equal(t, 1, aggs[0].HybridCount)
	assert.Equal(t, 1, aggs[0].OtherCount)
}

func TestPeriodAggregates_LeaveDaysSplitAcrossMonths(t *testing.T) {
	// GIVEN: 4 leave days straddling January/February
	viewer, mem := newTestViewer(t)
	ctx := context.Background()

	addLeave(t, mem, "l1",
		engine.NewDate(2025, time.January, 30), engine.NewDate(2025, time.February, 2), 4)

	aggs, err := viewer.PeriodAggregates(ctx, "alice",
		engine.NewDate(2025, time.January, 1), engine.NewDate(2025, time.February, 28),
		engine.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, aggs, 2)

	// THEN: 2 days in each month after display rounding
	assert.Equal(t, 2, aggs[0].LeaveDays)
	assert.Equal(t, 2, aggs[1].LeaveDays)
}

func TestPeriodAggregates_HolidaysCounted(t *testing.T) {
	viewer, mem := newTestViewer(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveHoliday(ctx, engine.Holiday{
		ID: "h1", Date: engine.NewDate(2025, time.January, 1), Name: "New Year's Day",
	}))
	require.NoError(t, mem.SaveHoliday(ctx, engine.Holiday{
		ID: "h2", Date: engine.NewDate(2025, time.January, 6), Name: "Epiphany",
	}))

	aggs, err := viewer.PeriodAggregates(ctx, "alice",
		engine.NewDate(2025, time.January, 1), engine.NewDate(2025, time.January, 31),
		engine.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, 2, aggs[0].HolidayCount)
}

func TestPeriodAggregates_WeekGrouping(t *testing.T) {
	// GIVEN: A window crossing the ISO year boundary
	viewer, mem := newTestViewer(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveVisit(ctx, engine.OfficeVisit{
		ID: "v1", UserID: "alice", Date: engine.NewDate(2024, time.December, 30), Type: engine.VisitWFO,
	}))

	aggs, err := viewer.PeriodAggregates(ctx, "alice",
		engine.NewDate(2024, time.December, 30), engine.NewDate(2025, time.January, 8),
		engine.GranularityWeek)
	require.NoError(t, err)

	// THEN: Dec 30 lands in 2025-W01 with its visit
	require.Len(t, aggs, 2)
	assert.Equal(t, "2025-W01", aggs[0].Period)
	assert.Equal(t, 1, aggs[0].WFOCount)
	assert.Equal(t, "2025-W02", aggs[1].Period)
}

func TestPeriodAggregates_WindowTooLarge(t *testing.T) {
	// Aggregation collapses periods to single rows but still walks the
	// window day by day, so the cap applies here too.
	viewer, _ := newTestViewer(t)

	_, err := viewer.PeriodAggregates(context.Background(), "alice",
		engine.NewDate(2000, time.January, 1), engine.NewDate(2020, time.December, 31),
		engine.GranularityYear)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrRangeTooLarge)
}

func TestPeriodAggregates_MultiYearWithinCap(t *testing.T) {
	// A multi-year window inside the cap stays valid; year grouping is
	// the whole point of the larger aggregate limit.
	viewer, _ := newTestViewer(t)

	aggs, err := viewer.PeriodAggregates(context.Background(), "alice",
		engine.NewDate(2023, time.January, 1), engine.NewDate(2025, time.December, 31),
		engine.GranularityYear)
	require.NoError(t, err)
	require.Len(t, aggs, 3)
	assert.Equal(t, "2023", aggs[0].Period)
	assert.Equal(t, "2025", aggs[2].Period)
}

func TestPeriodAggregates_UnsupportedGranularity(t *testing.T) {
	viewer, _ := newTestViewer(t)

	_, err := viewer.PeriodAggregates(context.Background(), "alice",
		engine.NewDate(2025, time.January, 1), engine.NewDate(2025, time.January, 31),
		engine.Granularity("quarter"))
	assert.ErrorIs(t, err, engine.ErrUnsupportedGranularity)
}
