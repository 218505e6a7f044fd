/*
Package engine provides the core leave ledger and calendar algorithms.

PURPOSE:
  This package contains the domain types and leaf algorithms for the
  attendance back office: day-granularity dates and spans, period key
  functions, the day-span distributor, and the storage interfaces the
  services above it depend on.

KEY CONCEPTS:
  - Date/Span:    Calendar days and inclusive date ranges (time.go)
  - PeriodKey:    month/year/ISO-week bucket identifiers (period.go)
  - PerDayShare:  totalDays split evenly over a span (distribute.go)
  - BalanceRow:   per (user, policy, year) allocated/used/remaining
  - LeaveRecord:  a single leave request's dates and day quantity

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every day quantity, never float64
  2. Determinism: one distribution formula shared by ledger and calendar
  3. Type safety: distinct ID types for users, policies, and leaves

SEE ALSO:
  - store.go: persistence interfaces implemented by engine/store,
    store/sqlite, and store/postgres
  - errors.go: the error taxonomy shared across the system
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type PolicyID string
type LeaveID string

// BalanceKey identifies one ledger row.
type BalanceKey struct {
	UserID   UserID
	PolicyID PolicyID
	Year     int
}

func (k BalanceKey) String() string {
	return string(k.UserID) + "/" + string(k.PolicyID) + "/" + StartOfYear(k.Year).Time.Format("2006")
}

// =============================================================================
// DAY PART - Which portion of a day a leave occupies
// =============================================================================

type DayPart string

const (
	DayPartFull      DayPart = "full"
	DayPartMorning   DayPart = "morning"
	DayPartAfternoon DayPart = "afternoon"
	DayPartCustom    DayPart = "custom"
)

// ParseDayPart validates a day part from the outside world. The empty
// string means "not specified" and maps to full.
func ParseDayPart(s string) (DayPart, bool) {
	switch DayPart(s) {
	case "":
		return DayPartFull, true
	case DayPartFull, DayPartMorning, DayPartAfternoon, DayPartCustom:
		return DayPart(s), true
	default:
		return "", false
	}
}

// IsHalfDay reports whether the day part forces a 0.5-day quantity.
func (p DayPart) IsHalfDay() bool {
	return p == DayPartMorning || p == DayPartAfternoon
}

// =============================================================================
// VISIT TYPE - Office visit classification
// =============================================================================

type VisitType string

const (
	VisitWFO    VisitType = "wfo"
	VisitWFH    VisitType = "wfh"
	VisitHybrid VisitType = "hybrid"
	VisitOthers VisitType = "others"
)

// NormalizeVisitType maps a raw visit type onto one of the four known
// buckets. Unknown and empty values land in "others"; the default branch
// is deliberate, not a fallthrough.
func NormalizeVisitType(s string) VisitType {
	switch VisitType(s) {
	case VisitWFO:
		return VisitWFO
	case VisitWFH:
		return VisitWFH
	case VisitHybrid:
		return VisitHybrid
	default:
		return VisitOthers
	}
}

// =============================================================================
// LEAVE RECORD - One leave request
// =============================================================================

// LeaveRecord is a single leave request. Start/End are inclusive and
// TotalDays may be fractional (half days, custom allocations). A record
// is owned exclusively by its user; there is no shared mutation.
type LeaveRecord struct {
	ID        LeaveID
	UserID    UserID
	PolicyID  PolicyID
	StartDate Date
	EndDate   Date
	TotalDays decimal.Decimal
	DayPart   DayPart
	Notes     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Span returns the record's inclusive date range.
func (r LeaveRecord) Span() Span { return Span{Start: r.StartDate, End: r.EndDate} }

// =============================================================================
// BALANCE ROW - Per (user, policy, year) ledger state
// =============================================================================

// BalanceRow holds the allocated/used/remaining day quantities for one
// user, policy, and calendar year. Remaining always equals Allocated
// minus Used after a successful adjustment.
type BalanceRow struct {
	UserID    UserID
	PolicyID  PolicyID
	Year      int
	Allocated decimal.Decimal
	Used      decimal.Decimal
	Remaining decimal.Decimal

	UpdatedAt time.Time
}

// Key returns the row's ledger key.
func (b BalanceRow) Key() BalanceKey {
	return BalanceKey{UserID: b.UserID, PolicyID: b.PolicyID, Year: b.Year}
}

// =============================================================================
// CALENDAR SOURCES - Holidays and office visits
// =============================================================================

// Holiday is a company-wide non-working day.
type Holiday struct {
	ID   string
	Date Date
	Name string
}

// OfficeVisit records where a user worked on a given day.
type OfficeVisit struct {
	ID     string
	UserID UserID
	Date   Date
	Type   VisitType
	Notes  string
}

// =============================================================================
// POLICY - External, read-mostly allocation seed
// =============================================================================

// LeavePolicy seeds the allocation of lazily-created ledger rows.
type LeavePolicy struct {
	ID                PolicyID
	Name              string
	DefaultAnnualDays decimal.Decimal
}

// User is the minimal directory entry the engine needs.
type User struct {
	ID   UserID
	Name string
}
