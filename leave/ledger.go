/*
Package leave provides the leave balance ledger and the leave record
manager, the two services that own every mutation of leave state.

PURPOSE:
  The BalanceLedger maintains one row per (user, policy, year) holding
  allocated/used/remaining day quantities, with single-writer-per-key
  exclusivity. The Manager (manager.go) owns the leave record lifecycle
  and drives the ledger with per-year deltas on every mutation.

INVARIANTS:
  1. Remaining == Allocated - Used after any successful adjustment
  2. Used never goes negative (InvalidAdjustment)
  3. Remaining never goes negative through Adjust (InsufficientBalance);
     the rejected call leaves the row unchanged
  4. Recalculate never fails on deficit: it is the designated recovery
     path and floors Remaining at zero instead

CONCURRENCY:
  Adjust, UpsertOverride, and Recalculate serialize per ledger key via
  engine.KeyMutex. Writers on different keys do not contend, and Get
  never takes a key lock; it reads committed rows only.

SEE ALSO:
  - engine/distribute.go: the per-day distribution shared with the
    calendar aggregation views
  - manager.go: the only caller of Adjust on the normal request path
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// BALANCE LEDGER
// =============================================================================

// BalanceLedger owns all reads and writes of balance rows.
type BalanceLedger struct {
	Balances  engine.BalanceStore
	Leaves    engine.LeaveStore
	Directory engine.Directory

	locks *engine.KeyMutex
	now   func() time.Time
}

func NewBalanceLedger(balances engine.BalanceStore, leaves engine.LeaveStore, dir engine.Directory) *BalanceLedger {
	return &BalanceLedger{
		Balances:  balances,
		Leaves:    leaves,
		Directory: dir,
		locks:     engine.NewKeyMutex(),
		now:       time.Now,
	}
}

// Get returns the committed row for a key. ErrNotFound when the row has
// never been created.
func (bl *BalanceLedger) Get(ctx context.Context, key engine.BalanceKey) (engine.BalanceRow, error) {
	return bl.Balances.GetBalance(ctx, key)
}

// Adjust applies a used-days delta to a row, creating it lazily from the
// policy's default allocation. This is the only mutation path driven by
// leave create/update/delete.
//
// A zero delta is a read-only fast path and never creates the row.
func (bl *BalanceLedger) Adjust(ctx context.Context, key engine.BalanceKey, delta decimal.Decimal) (engine.BalanceRow, error) {
	if delta.IsZero() {
		return bl.Balances.GetBalance(ctx, key)
	}

	bl.locks.Lock(key)
	defer bl.locks.Unlock(key)

	row, err := bl.loadOrSeed(ctx, key, nil)
	if err != nil {
		return engine.BalanceRow{}, err
	}

	newUsed := row.Used.Add(delta)
	if newUsed.IsNegative() {
		return engine.BalanceRow{}, &engine.InvalidAdjustmentError{
			Key: key, Used: row.Used, Delta: delta, NewUsed: newUsed,
		}
	}
	newRemaining := row.Allocated.Sub(newUsed)
	if newRemaining.IsNegative() {
		return engine.BalanceRow{}, &engine.InsufficientBalanceError{
			Key: key, Allocated: row.Allocated, Requested: newUsed, Shortfall: newRemaining.Neg(),
		}
	}

	row.Used = newUsed
	row.Remaining = newRemaining
	row.UpdatedAt = bl.now()
	if err := bl.Balances.SaveBalance(ctx, row); err != nil {
		return engine.BalanceRow{}, fmt.Errorf("save balance %s: %w", key, err)
	}
	return row, nil
}

// Override is an administrative absolute overwrite for UpsertOverride.
// Nil fields fall back: Allocated to the current (or policy default)
// allocation, Used to zero on a fresh row or the current value, and
// Remaining to Allocated - Used.
type Override struct {
	Allocated *decimal.Decimal
	Used      *decimal.Decimal
	Remaining *decimal.Decimal
}

// UpsertOverride overwrites a row with the given quantities, creating it
// if missing. Manual correction only; never part of the normal
// leave-creation path, and deliberately free of balance validation.
func (bl *BalanceLedger) UpsertOverride(ctx context.Context, key engine.BalanceKey, ov Override) (engine.BalanceRow, error) {
	bl.locks.Lock(key)
	defer bl.locks.Unlock(key)

	row, err := bl.loadOrSeed(ctx, key, ov.Allocated)
	if err != nil {
		return engine.BalanceRow{}, err
	}

	if ov.Allocated != nil {
		row.Allocated = *ov.Allocated
	}
	if ov.Used != nil {
		row.Used = *ov.Used
	}
	if ov.Remaining != nil {
		row.Remaining = *ov.Remaining
	} else {
		row.Remaining = row.Allocated.Sub(row.Used)
	}

	row.UpdatedAt = bl.now()
	if err := bl.Balances.SaveBalance(ctx, row); err != nil {
		return engine.BalanceRow{}, fmt.Errorf("save balance %s: %w", key, err)
	}
	return row, nil
}

// Recalculate rebuilds a row's used days from the leave records that
// overlap the key's calendar year. This is the reconciliation path for
// bulk imports and past bugs: it heals, never validates, so a deficit
// floors Remaining at zero instead of failing.
func (bl *BalanceLedger) Recalculate(ctx context.Context, key engine.BalanceKey) (engine.BalanceRow, error) {
	bl.locks.Lock(key)
	defer bl.locks.Unlock(key)

	window := engine.YearWindow(key.Year)
	recs, err := bl.Leaves.FindLeavesOverlapping(ctx, key.UserID, window.Start, window.End)
	if err != nil {
		return engine.BalanceRow{}, fmt.Errorf("load leaves for %s: %w", key, err)
	}

	used := decimal.Zero
	for _, rec := range recs {
		if rec.PolicyID != key.PolicyID {
			continue
		}
		dist := engine.DistributeByYear(rec.Span(), rec.TotalDays, window)
		used = used.Add(dist[key.Year])
	}

	row, err := bl.loadOrSeed(ctx, key, nil)
	if err != nil {
		return engine.BalanceRow{}, err
	}

	row.Used = used
	row.Remaining = row.Allocated.Sub(used)
	if row.Remaining.IsNegative() {
		row.Remaining = decimal.Zero
	}
	row.UpdatedAt = bl.now()
	if err := bl.Balances.SaveBalance(ctx, row); err != nil {
		return engine.BalanceRow{}, fmt.Errorf("save balance %s: %w", key, err)
	}
	return row, nil
}

// loadOrSeed returns the stored row, or a fresh one seeded from the
// policy's default annual allocation (overridden by allocated when set).
func (bl *BalanceLedger) loadOrSeed(ctx context.Context, key engine.BalanceKey, allocated *decimal.Decimal) (engine.BalanceRow, error) {
	row, err := bl.Balances.GetBalance(ctx, key)
	if err == nil {
		return row, nil
	}
	if !engine.IsNotFound(err) {
		return engine.BalanceRow{}, fmt.Errorf("load balance %s: %w", key, err)
	}

	seed := decimal.Zero
	if allocated != nil {
		seed = *allocated
	} else {
		policy, err := bl.Directory.GetPolicy(ctx, key.PolicyID)
		if err != nil {
			return engine.BalanceRow{}, err
		}
		seed = policy.DefaultAnnualDays
	}

	return engine.BalanceRow{
		UserID:    key.UserID,
		PolicyID:  key.PolicyID,
		Year:      key.Year,
		Allocated: seed,
		Used:      decimal.Zero,
		Remaining: seed,
	}, nil
}
