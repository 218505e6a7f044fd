package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// PERIOD KEY TESTS
// =============================================================================

func TestPeriodKey_Month(t *testing.T) {
	key, err := engine.PeriodKey(engine.NewDate(2025, time.March, 7), engine.GranularityMonth)
	require.NoError(t, err)
	assert.Equal(t, "2025-03", key)
}

func TestPeriodKey_Year(t *testing.T) {
	key, err := engine.PeriodKey(engine.NewDate(2025, time.March, 7), engine.GranularityYear)
	require.NoError(t, err)
	assert.Equal(t, "2025", key)
}

func TestPeriodKey_Week_UsesISOWeekYear(t *testing.T) {
	// GIVEN: Dec 30, 2024 falls in ISO week 1 of week-based year 2025
	key, err := engine.PeriodKey(engine.NewDate(2024, time.December, 30), engine.GranularityWeek)
	require.NoError(t, err)
	assert.Equal(t, "2025-W01", key)

	// AND: Jan 1, 2027 falls in ISO week 53 of week-based year 2026
	key, err = engine.PeriodKey(engine.NewDate(2027, time.January, 1), engine.GranularityWeek)
	require.NoError(t, err)
	assert.Equal(t, "2026-W53", key)
}

func TestParseGranularity_Unsupported(t *testing.T) {
	_, err := engine.ParseGranularity("quarter")
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrUnsupportedGranularity)
}

// =============================================================================
// PERIOD ENUMERATION TESTS
// =============================================================================

func TestEnumeratePeriods_Months(t *testing.T) {
	// GIVEN: A window touching three months, both boundaries partial
	from := engine.NewDate(2024, time.January, 15)
	to := engine.NewDate(2024, time.March, 10)

	keys, err := engine.EnumeratePeriods(from, to, engine.GranularityMonth)
	require.NoError(t, err)

	// THEN: Every touched month appears once, in order
	assert.Equal(t, []string{"2024-01", "2024-02", "2024-03"}, keys)
}

func TestEnumeratePeriods_WeeksAcrossYearBoundary(t *testing.T) {
	// GIVEN: Dec 30, 2024 .. Jan 8, 2025
	from := engine.NewDate(2024, time.December, 30)
	to := engine.NewDate(2025, time.January, 8)

	keys, err := engine.EnumeratePeriods(from, to, engine.GranularityWeek)
	require.NoError(t, err)

	// THEN: Both weeks belong to week-based year 2025
	assert.Equal(t, []string{"2025-W01", "2025-W02"}, keys)
}

func TestEnumeratePeriods_Years(t *testing.T) {
	from := engine.NewDate(2024, time.December, 30)
	to := engine.NewDate(2026, time.January, 2)

	keys, err := engine.EnumeratePeriods(from, to, engine.GranularityYear)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024", "2025", "2026"}, keys)
}

func TestEnumeratePeriods_SingleDay(t *testing.T) {
	d := engine.NewDate(2025, time.June, 1)
	keys, err := engine.EnumeratePeriods(d, d, engine.GranularityMonth)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06"}, keys)
}

func TestEnumeratePeriods_InvalidRange(t *testing.T) {
	from := engine.NewDate(2025, time.June, 2)
	to := engine.NewDate(2025, time.June, 1)

	_, err := engine.EnumeratePeriods(from, to, engine.GranularityMonth)
	assert.ErrorIs(t, err, engine.ErrInvalidArgument)
}

func TestEnumeratePeriods_UnsupportedGranularity(t *testing.T) {
	d := engine.NewDate(2025, time.June, 1)
	_, err := engine.EnumeratePeriods(d, d, engine.Granularity("quarter"))
	assert.ErrorIs(t, err, engine.ErrUnsupportedGranularity)
}
