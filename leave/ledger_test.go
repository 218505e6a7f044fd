package leave_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/engine/store"
	"github.com/warp/attendance-engine/leave"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*leave.BalanceLedger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.SaveUser(ctx, engine.User{ID: "alice", Name: "Alice"}))
	require.NoError(t, mem.SavePolicy(ctx, engine.LeavePolicy{
		ID:                "annual",
		Name:              "Annual Leave",
		DefaultAnnualDays: decimal.NewFromInt(20),
	}))

	return leave.NewBalanceLedger(mem, mem, mem), mem
}

func key(year int) engine.BalanceKey {
	return engine.BalanceKey{UserID: "alice", PolicyID: "annual", Year: year}
}

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// =============================================================================
// ADJUST TESTS
// =============================================================================

func TestLedger_Adjust_SeedsFromPolicyDefault(t *testing.T) {
	// GIVEN: No ledger row exists for (alice, annual, 2025)
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	// WHEN: The first delta arrives
	row, err := ledger.Adjust(ctx, key(2025), d(3))
	require.NoError(t, err)

	// THEN: The row was created from the policy default
	assert.True(t, row.Allocated.Equal(d(20)), "allocated %s", row.Allocated)
	assert.True(t, row.Used.Equal(d(3)), "used %s", row.Used)
	assert.True(t, row.Remaining.Equal(d(17)), "remaining %s", row.Remaining)
}

func TestLedger_Adjust_RemainingEqualsAllocatedMinusUsed(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Adjust(ctx, key(2025), d(2.5))
	require.NoError(t, err)
	row, err := ledger.Adjust(ctx, key(2025), d(1.5))
	require.NoError(t, err)

	assert.True(t, row.Used.Equal(d(4)), "used %s", row.Used)
	assert.True(t, row.Remaining.Equal(row.Allocated.Sub(row.Used)))
}

func TestLedger_Adjust_InsufficientBalance_RowUnchanged(t *testing.T) {
	// GIVEN: 20 allocated, 18 used
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	before, err := ledger.Adjust(ctx, key(2025), d(18))
	require.NoError(t, err)

	// WHEN: A delta of +3 would push remaining below zero
	_, err = ledger.Adjust(ctx, key(2025), d(3))

	// THEN: Rejected, and the row remains exactly as before
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrInsufficientBalance)

	var insufficient *engine.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Shortfall.Equal(d(1)), "shortfall %s", insufficient.Shortfall)

	after, err := ledger.Get(ctx, key(2025))
	require.NoError(t, err)
	assert.True(t, after.Used.Equal(before.Used))
	assert.True(t, after.Remaining.Equal(before.Remaining))
}

func TestLedger_Adjust_NegativeUsedRejected(t *testing.T) {
	// GIVEN: A fresh row with zero used
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Adjust(ctx, key(2025), d(2))
	require.NoError(t, err)

	// WHEN: A negative delta larger than current usage
	_, err = ledger.Adjust(ctx, key(2025), d(-5))

	// THEN: InvalidAdjustment, row unchanged
	assert.ErrorIs(t, err, engine.ErrInvalidAdjustment)

	row, err := ledger.Get(ctx, key(2025))
	require.NoError(t, err)
	assert.True(t, row.Used.Equal(d(2)))
}

func TestLedger_Adjust_ZeroDeltaNeverCreates(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Adjust(ctx, key(2025), decimal.Zero)
	assert.True(t, engine.IsNotFound(err))
}

func TestLedger_Adjust_UnknownPolicy(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	k := engine.BalanceKey{UserID: "alice", PolicyID: "ghost", Year: 2025}
	_, err := ledger.Adjust(ctx, k, d(1))
	assert.True(t, engine.IsNotFound(err))
}

// =============================================================================
// OVERRIDE TESTS
// =============================================================================

func TestLedger_UpsertOverride_CreatesWithDerivedRemaining(t *testing.T) {
	// GIVEN: No row; an override sets allocated and used only
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	alloc := d(25)
	used := d(5)
	row, err := ledger.UpsertOverride(ctx, key(2025), leave.Override{
		Allocated: &alloc,
		Used:      &used,
	})
	require.NoError(t, err)

	// THEN: Remaining defaults to allocated - used
	assert.True(t, row.Allocated.Equal(d(25)))
	assert.True(t, row.Used.Equal(d(5)))
	assert.True(t, row.Remaining.Equal(d(20)))
}

func TestLedger_UpsertOverride_ExplicitRemainingWins(t *testing.T) {
	// Overrides skip validation on purpose: corrections may set
	// quantities the normal path would reject.
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	alloc := d(10)
	used := d(12)
	remaining := d(-2)
	row, err := ledger.UpsertOverride(ctx, key(2025), leave.Override{
		Allocated: &alloc,
		Used:      &used,
		Remaining: &remaining,
	})
	require.NoError(t, err)
	assert.True(t, row.Remaining.Equal(d(-2)))
}

func TestLedger_UpsertOverride_PartialOnExistingRow(t *testing.T) {
	// GIVEN: An existing row from the adjust path
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Adjust(ctx, key(2025), d(4))
	require.NoError(t, err)

	// WHEN: Only allocated is overridden
	alloc := d(30)
	row, err := ledger.UpsertOverride(ctx, key(2025), leave.Override{Allocated: &alloc})
	require.NoError(t, err)

	// THEN: Used is kept and remaining re-derived
	assert.True(t, row.Used.Equal(d(4)))
	assert.True(t, row.Remaining.Equal(d(26)))
}

// =============================================================================
// RECALCULATE TESTS
// =============================================================================

func seedLeave(t *testing.T, mem *store.Memory, id string, start, end engine.Date, total decimal.Decimal) {
	t.Helper()
	require.NoError(t, mem.CreateLeave(context.Background(), engine.LeaveRecord{
		ID:        engine.LeaveID(id),
		UserID:    "alice",
		PolicyID:  "annual",
		StartDate: start,
		EndDate:   end,
		TotalDays: total,
		DayPart:   engine.DayPartFull,
	}))
}

func TestLedger_Recalculate_RebuildsFromRecords(t *testing.T) {
	// GIVEN: Two records, one fully in 2025, one crossing into 2026
	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	seedLeave(t, mem, "l1",
		engine.NewDate(2025, time.July, 7), engine.NewDate(2025, time.July, 11), d(5))
	seedLeave(t, mem, "l2",
		engine.NewDate(2025, time.December, 30), engine.NewDate(2026, time.January, 2), d(4))

	// WHEN: The 2025 row is rebuilt
	row, err := ledger.Recalculate(ctx, key(2025))
	require.NoError(t, err)

	// THEN: Used is 5 + the 2025 share of the crossing record (2)
	assert.True(t, row.Used.Equal(d(7)), "used %s", row.Used)
	assert.True(t, row.Remaining.Equal(d(13)), "remaining %s", row.Remaining)
}

func TestLedger_Recalculate_Idempotent(t *testing.T) {
	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	seedLeave(t, mem, "l1",
		engine.NewDate(2025, time.March, 10), engine.NewDate(2025, time.March, 12), d(3))

	first, err := ledger.Recalculate(ctx, key(2025))
	require.NoError(t, err)
	second, err := ledger.Recalculate(ctx, key(2025))
	require.NoError(t, err)

	assert.True(t, first.Used.Equal(second.Used))
	assert.True(t, first.Remaining.Equal(second.Remaining))
}

func TestLedger_Recalculate_DeficitFloorsRemainingAtZero(t *testing.T) {
	// GIVEN: Records exceeding the allocation (bulk import gone wrong)
	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	seedLeave(t, mem, "l1",
		engine.NewDate(2025, time.January, 6), engine.NewDate(2025, time.January, 31), d(26))

	// WHEN: Rebuilt
	row, err := ledger.Recalculate(ctx, key(2025))

	// THEN: Heals instead of failing; remaining floored at zero
	require.NoError(t, err)
	assert.True(t, row.Used.Equal(d(26)))
	assert.True(t, row.Remaining.IsZero(), "remaining %s", row.Remaining)
}

func TestLedger_Recalculate_IgnoresOtherPolicies(t *testing.T) {
	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, mem.SavePolicy(ctx, engine.LeavePolicy{
		ID: "sick", Name: "Sick Leave", DefaultAnnualDays: d(10),
	}))
	seedLeave(t, mem, "l1",
		engine.NewDate(2025, time.March, 10), engine.NewDate(2025, time.March, 12), d(3))
	require.NoError(t, mem.CreateLeave(ctx, engine.LeaveRecord{
		ID: "l2", UserID: "alice", PolicyID: "sick",
		StartDate: engine.NewDate(2025, time.April, 1),
		EndDate:   engine.NewDate(2025, time.April, 2),
		TotalDays: d(2), DayPart: engine.DayPartFull,
	}))

	row, err := ledger.Recalculate(ctx, key(2025))
	require.NoError(t, err)
	assert.True(t, row.Used.Equal(d(3)), "used %s", row.Used)
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestLedger_ConcurrentAdjusts_NoLostUpdates(t *testing.T) {
	// GIVEN: A 100-day allocation and 100 concurrent +0.5 deltas
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	alloc := d(100)
	_, err := ledger.UpsertOverride(ctx, key(2025), leave.Override{Allocated: &alloc})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Adjust(ctx, key(2025), d(0.5))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// THEN: Every delta is reflected exactly once
	row, err := ledger.Get(ctx, key(2025))
	require.NoError(t, err)
	assert.True(t, row.Used.Equal(d(50)), "used %s", row.Used)
	assert.True(t, row.Remaining.Equal(d(50)), "remaining %s", row.Remaining)
}

func TestLedger_ConcurrentAdjusts_DifferentKeysIndependent(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for year := 2024; year <= 2027; year++ {
		wg.Add(1)
		go func(y int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_, err := ledger.Adjust(ctx, key(y), d(1))
				assert.NoError(t, err)
			}
		}(year)
	}
	wg.Wait()

	for year := 2024; year <= 2027; year++ {
		row, err := ledger.Get(ctx, key(year))
		require.NoError(t, err)
		assert.True(t, row.Used.Equal(d(10)), "year %d used %s", year, row.Used)
	}
}
