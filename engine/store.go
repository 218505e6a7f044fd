/*
store.go - Persistence interfaces for records, balances, and calendars

PURPOSE:
  Defines the boundary between the domain services and the database.
  Three implementations exist with identical semantics:
  - engine/store:   in-memory, for tests and development
  - store/sqlite:   SQLite, the default single-binary backend
  - store/postgres: Postgres via pgx, for shared deployments

CONTRACTS:
  - Lookups return engine.ErrNotFound (wrapped) for missing rows.
  - FindOverlapping uses inclusive span overlap: a record overlaps
    [from, to] when record.Start <= to AND record.End >= from.
  - BalanceStore.Save upserts on (user, policy, year). Mutual exclusion
    per ledger key is the caller's job (see keylock.go); stores only
    guarantee that individual reads and writes are consistent.

SEE ALSO:
  - engine/store/memory.go:   in-memory implementation
  - store/sqlite/sqlite.go:   SQLite implementation
  - store/postgres/postgres.go: pgx implementation
*/
package engine

import "context"

// LeaveStore persists leave records.
type LeaveStore interface {
	// CreateLeave persists a new record.
	CreateLeave(ctx context.Context, rec LeaveRecord) error

	// SaveLeave overwrites an existing record.
	SaveLeave(ctx context.Context, rec LeaveRecord) error

	// DeleteLeave removes a record. ErrNotFound when absent.
	DeleteLeave(ctx context.Context, id LeaveID) error

	// GetLeave returns a record by ID. ErrNotFound when absent.
	GetLeave(ctx context.Context, id LeaveID) (LeaveRecord, error)

	// FindLeavesByUser returns all records for a user, ordered by start date.
	FindLeavesByUser(ctx context.Context, userID UserID) ([]LeaveRecord, error)

	// FindLeavesOverlapping returns a user's records overlapping [from, to],
	// ordered by start date. Empty userID means all users.
	FindLeavesOverlapping(ctx context.Context, userID UserID, from, to Date) ([]LeaveRecord, error)
}

// BalanceStore persists ledger rows.
type BalanceStore interface {
	// GetBalance returns the row for a key. ErrNotFound when absent.
	GetBalance(ctx context.Context, key BalanceKey) (BalanceRow, error)

	// SaveBalance upserts a row on its (user, policy, year) key.
	SaveBalance(ctx context.Context, row BalanceRow) error
}

// HolidayStore persists company holidays.
type HolidayStore interface {
	SaveHoliday(ctx context.Context, h Holiday) error
	FindHolidays(ctx context.Context, from, to Date) ([]Holiday, error)
}

// VisitStore persists office visits.
type VisitStore interface {
	SaveVisit(ctx context.Context, v OfficeVisit) error

	// FindVisits returns visits in [from, to], ordered by date.
	// Empty userID means all users.
	FindVisits(ctx context.Context, userID UserID, from, to Date) ([]OfficeVisit, error)
}

// Directory answers existence checks and provides the policy allocation
// seed. In the full back office this is the tenant/user service; the
// engine only needs these three questions answered.
type Directory interface {
	UserExists(ctx context.Context, id UserID) (bool, error)
	PolicyExists(ctx context.Context, id PolicyID) (bool, error)

	// GetPolicy returns the policy (for its DefaultAnnualDays seed).
	// ErrNotFound when absent.
	GetPolicy(ctx context.Context, id PolicyID) (LeavePolicy, error)
}
