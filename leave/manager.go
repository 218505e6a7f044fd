/*
manager.go - Leave record lifecycle with ledger consistency

PURPOSE:
  Owns create/update/delete of leave records. Every mutation computes
  the per-year delta between the record's old and new distributions
  (including cross-policy moves) and drives the BalanceLedger with one
  Adjust call per affected year.

ALL-OR-NOTHING:
  No leave record may exist whose days are not reflected in the ledger,
  and no ledger mutation may survive without its record change. Each
  operation therefore compensates on failure: already-applied year
  deltas are reversed before the error propagates. Compensation itself
  is best effort; Recalculate is the designated heal path for anything
  a crash leaves behind.

SEE ALSO:
  - ledger.go: the Adjust primitive and its invariants
  - engine/distribute.go: the per-year distribution formula
*/
package leave

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the leave record lifecycle.
type Manager struct {
	Leaves    engine.LeaveStore
	Ledger    *BalanceLedger
	Directory engine.Directory

	now   func() time.Time
	newID func() engine.LeaveID
}

func NewManager(leaves engine.LeaveStore, ledger *BalanceLedger, dir engine.Directory) *Manager {
	return &Manager{
		Leaves:    leaves,
		Ledger:    ledger,
		Directory: dir,
		now:       time.Now,
		newID:     func() engine.LeaveID { return engine.LeaveID(uuid.NewString()) },
	}
}

// CreateLeave is the input for Create. TotalDays nil means "derive":
// 0.5 for a morning/afternoon day part, otherwise the full inclusive
// span length.
type CreateLeave struct {
	UserID    engine.UserID
	PolicyID  engine.PolicyID
	StartDate engine.Date
	EndDate   engine.Date
	TotalDays *decimal.Decimal
	DayPart   engine.DayPart
	Notes     string
}

// UpdateLeave carries the fields to change. Nil fields keep their
// current values; TotalDays nil re-derives the quantity from the
// record's (possibly changed) span and day part.
type UpdateLeave struct {
	StartDate *engine.Date
	EndDate   *engine.Date
	PolicyID  *engine.PolicyID
	TotalDays *decimal.Decimal
	DayPart   *engine.DayPart
	Notes     *string
}

// Create validates, persists, and books a new leave record, adjusting
// the ledger once per affected calendar year. Any ledger failure undoes
// the whole creation.
func (m *Manager) Create(ctx context.Context, in CreateLeave) (engine.LeaveRecord, error) {
	if err := m.checkUser(ctx, in.UserID); err != nil {
		return engine.LeaveRecord{}, err
	}
	if err := m.checkPolicy(ctx, in.PolicyID); err != nil {
		return engine.LeaveRecord{}, err
	}

	span := engine.Span{Start: in.StartDate, End: in.EndDate}
	if !span.Valid() {
		return engine.LeaveRecord{}, fmt.Errorf("%w: end date %s before start date %s",
			engine.ErrInvalidArgument, in.EndDate, in.StartDate)
	}

	dayPart := in.DayPart
	if dayPart == "" {
		dayPart = engine.DayPartFull
	}
	total, err := resolveTotalDays(span, in.TotalDays, dayPart)
	if err != nil {
		return engine.LeaveRecord{}, err
	}

	now := m.now()
	rec := engine.LeaveRecord{
		ID:        m.newID(),
		UserID:    in.UserID,
		PolicyID:  in.PolicyID,
		StartDate: span.Start,
		EndDate:   span.End,
		TotalDays: total,
		DayPart:   dayPart,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.Leaves.CreateLeave(ctx, rec); err != nil {
		return engine.LeaveRecord{}, fmt.Errorf("create leave: %w", err)
	}

	dist := engine.DistributeByYear(rec.Span(), rec.TotalDays, rec.Span())
	if err := m.applyDeltas(ctx, rec.UserID, rec.PolicyID, dist); err != nil {
		// The record must not outlive a failed booking.
		if delErr := m.Leaves.DeleteLeave(ctx, rec.ID); delErr != nil {
			return engine.LeaveRecord{}, fmt.Errorf("booking failed (%w) and record cleanup failed: %v", err, delErr)
		}
		return engine.LeaveRecord{}, err
	}

	return rec, nil
}

// Update applies field changes to a record and moves the ledger by the
// difference between the old and new per-year distributions. A policy
// change moves the full usage from the old policy's rows to the new
// policy's rows.
func (m *Manager) Update(ctx context.Context, id engine.LeaveID, changes UpdateLeave) (engine.LeaveRecord, error) {
	rec, err := m.Leaves.GetLeave(ctx, id)
	if err != nil {
		return engine.LeaveRecord{}, err
	}

	// Snapshot the old distribution before touching anything.
	oldPolicy := rec.PolicyID
	oldDist := engine.DistributeByYear(rec.Span(), rec.TotalDays, rec.Span())

	quantityTouched := changes.StartDate != nil || changes.EndDate != nil ||
		changes.DayPart != nil || changes.TotalDays != nil

	if changes.StartDate != nil {
		rec.StartDate = *changes.StartDate
	}
	if changes.EndDate != nil {
		rec.EndDate = *changes.EndDate
	}
	if changes.PolicyID != nil && *changes.PolicyID != rec.PolicyID {
		if err := m.checkPolicy(ctx, *changes.PolicyID); err != nil {
			return engine.LeaveRecord{}, err
		}
		rec.PolicyID = *changes.PolicyID
	}
	if changes.DayPart != nil {
		rec.DayPart = *changes.DayPart
	}
	if changes.Notes != nil {
		rec.Notes = *changes.Notes
	}

	span := rec.Span()
	if !span.Valid() {
		return engine.LeaveRecord{}, fmt.Errorf("%w: end date %s before start date %s",
			engine.ErrInvalidArgument, rec.EndDate, rec.StartDate)
	}
	// The stored quantity stands unless the edit touches the span, the
	// day part, or the quantity itself. An edit that changes none of
	// them must not move the ledger.
	if quantityTouched {
		rec.TotalDays, err = resolveTotalDays(span, changes.TotalDays, rec.DayPart)
		if err != nil {
			return engine.LeaveRecord{}, err
		}
	}
	rec.UpdatedAt = m.now()

	newDist := engine.DistributeByYear(span, rec.TotalDays, span)

	if rec.PolicyID == oldPolicy {
		// Same policy: move each touched year by new - old.
		deltas := make(map[int]decimal.Decimal)
		for y, v := range oldDist {
			deltas[y] = deltas[y].Sub(v)
		}
		for y, v := range newDist {
			deltas[y] = deltas[y].Add(v)
		}
		if err := m.applyDeltas(ctx, rec.UserID, rec.PolicyID, deltas); err != nil {
			return engine.LeaveRecord{}, err
		}
		if err := m.Leaves.SaveLeave(ctx, rec); err != nil {
			m.reverseDeltas(ctx, rec.UserID, rec.PolicyID, deltas)
			return engine.LeaveRecord{}, fmt.Errorf("save leave: %w", err)
		}
		return rec, nil
	}

	// Cross-policy move: release the old policy's usage, book the new.
	if err := m.applyDeltas(ctx, rec.UserID, oldPolicy, negate(oldDist)); err != nil {
		return engine.LeaveRecord{}, err
	}
	if err := m.applyDeltas(ctx, rec.UserID, rec.PolicyID, newDist); err != nil {
		m.reverseDeltas(ctx, rec.UserID, oldPolicy, negate(oldDist))
		return engine.LeaveRecord{}, err
	}
	if err := m.Leaves.SaveLeave(ctx, rec); err != nil {
		m.reverseDeltas(ctx, rec.UserID, rec.PolicyID, newDist)
		m.reverseDeltas(ctx, rec.UserID, oldPolicy, negate(oldDist))
		return engine.LeaveRecord{}, fmt.Errorf("save leave: %w", err)
	}
	return rec, nil
}

// Delete reverses a record's per-year distribution in the ledger, then
// removes the record. A failed ledger adjustment blocks the delete.
func (m *Manager) Delete(ctx context.Context, id engine.LeaveID) error {
	rec, err := m.Leaves.GetLeave(ctx, id)
	if err != nil {
		return err
	}

	dist := engine.DistributeByYear(rec.Span(), rec.TotalDays, rec.Span())
	if err := m.applyDeltas(ctx, rec.UserID, rec.PolicyID, negate(dist)); err != nil {
		return err
	}
	if err := m.Leaves.DeleteLeave(ctx, rec.ID); err != nil {
		m.reverseDeltas(ctx, rec.UserID, rec.PolicyID, negate(dist))
		return err
	}
	return nil
}

// ListForUser returns a user's leave records, ordered by start date.
func (m *Manager) ListForUser(ctx context.Context, userID engine.UserID) ([]engine.LeaveRecord, error) {
	if err := m.checkUser(ctx, userID); err != nil {
		return nil, err
	}
	return m.Leaves.FindLeavesByUser(ctx, userID)
}

// =============================================================================
// INTERNALS
// =============================================================================

// resolveTotalDays computes a record's day quantity. A morning or
// afternoon day part forces 0.5 regardless of span length.
func resolveTotalDays(span engine.Span, explicit *decimal.Decimal, dayPart engine.DayPart) (decimal.Decimal, error) {
	if explicit != nil && explicit.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: total days must be positive, got %s",
			engine.ErrInvalidArgument, explicit)
	}
	if dayPart.IsHalfDay() {
		return decimal.NewFromFloat(0.5), nil
	}
	if explicit != nil {
		return *explicit, nil
	}
	return decimal.NewFromInt(int64(span.Len())), nil
}

// applyDeltas adjusts the ledger once per year, in year order, skipping
// zero deltas. On failure the already-applied years are reversed (best
// effort) before the error is returned.
func (m *Manager) applyDeltas(ctx context.Context, userID engine.UserID, policyID engine.PolicyID, deltas map[int]decimal.Decimal) error {
	var applied []int
	for _, year := range sortedYears(deltas) {
		delta := deltas[year]
		if delta.IsZero() {
			continue
		}
		key := engine.BalanceKey{UserID: userID, PolicyID: policyID, Year: year}
		if _, err := m.Ledger.Adjust(ctx, key, delta); err != nil {
			for i := len(applied) - 1; i >= 0; i-- {
				y := applied[i]
				k := engine.BalanceKey{UserID: userID, PolicyID: policyID, Year: y}
				m.Ledger.Adjust(ctx, k, deltas[y].Neg())
			}
			return err
		}
		applied = append(applied, year)
	}
	return nil
}

// reverseDeltas undoes a fully-applied delta set. Best effort.
func (m *Manager) reverseDeltas(ctx context.Context, userID engine.UserID, policyID engine.PolicyID, deltas map[int]decimal.Decimal) {
	for _, year := range sortedYears(deltas) {
		if deltas[year].IsZero() {
			continue
		}
		key := engine.BalanceKey{UserID: userID, PolicyID: policyID, Year: year}
		m.Ledger.Adjust(ctx, key, deltas[year].Neg())
	}
}

func (m *Manager) checkUser(ctx context.Context, id engine.UserID) error {
	ok, err := m.Directory.UserExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check user %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("user %s: %w", id, engine.ErrNotFound)
	}
	return nil
}

func (m *Manager) checkPolicy(ctx context.Context, id engine.PolicyID) error {
	ok, err := m.Directory.PolicyExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check policy %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("policy %s: %w", id, engine.ErrNotFound)
	}
	return nil
}

func negate(dist map[int]decimal.Decimal) map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal, len(dist))
	for y, v := range dist {
		out[y] = v.Neg()
	}
	return out
}

func sortedYears(deltas map[int]decimal.Decimal) []int {
	years := make([]int, 0, len(deltas))
	for y := range deltas {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
