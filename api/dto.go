/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model
  from the wire contract. Request types carry validator/v10 tags;
  business rules beyond field shape are enforced by the domain layer.

NAMING CONVENTION:
  - *DTO:     response types returned to clients
  - *Request: request body types from clients

Day quantities are serialized as strings with two fractional digits;
the extra internal precision is a ledger concern, not a wire concern.
On input, day quantities decode as decimal.Decimal, which accepts both
JSON numbers and quoted strings, so callers can supply exact values
like "0.33333333" without a float round-trip.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/schedule"
)

// =============================================================================
// LEAVE
// =============================================================================

// LeaveDTO represents a leave record in API responses.
type LeaveDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	PolicyID  string `json:"policy_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	TotalDays string `json:"total_days"`
	DayPart   string `json:"day_part"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func toLeaveDTO(rec engine.LeaveRecord) LeaveDTO {
	return LeaveDTO{
		ID:        string(rec.ID),
		UserID:    string(rec.UserID),
		PolicyID:  string(rec.PolicyID),
		StartDate: rec.StartDate.String(),
		EndDate:   rec.EndDate.String(),
		TotalDays: rec.TotalDays.StringFixed(2),
		DayPart:   string(rec.DayPart),
		Notes:     rec.Notes,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateLeaveRequest is the request to create a leave record.
type CreateLeaveRequest struct {
	UserID    string           `json:"user_id" validate:"required"`
	PolicyID  string           `json:"policy_id" validate:"required"`
	StartDate string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string           `json:"end_date" validate:"required,datetime=2006-01-02"`
	TotalDays *decimal.Decimal `json:"total_days,omitempty"`
	DayPart   string           `json:"day_part,omitempty" validate:"omitempty,oneof=full morning afternoon custom"`
	Notes     string           `json:"notes,omitempty"`
}

// UpdateLeaveRequest carries the fields to change; absent fields keep
// their current values.
type UpdateLeaveRequest struct {
	StartDate *string          `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string          `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PolicyID  *string          `json:"policy_id,omitempty"`
	TotalDays *decimal.Decimal `json:"total_days,omitempty"`
	DayPart   *string          `json:"day_part,omitempty" validate:"omitempty,oneof=full morning afternoon custom"`
	Notes     *string          `json:"notes,omitempty"`
}

// =============================================================================
// BALANCE
// =============================================================================

// BalanceDTO represents a ledger row in API responses.
type BalanceDTO struct {
	UserID    string `json:"user_id"`
	PolicyID  string `json:"policy_id"`
	Year      int    `json:"year"`
	Allocated string `json:"allocated_days"`
	Used      string `json:"used_days"`
	Remaining string `json:"remaining_days"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func toBalanceDTO(row engine.BalanceRow) BalanceDTO {
	dto := BalanceDTO{
		UserID:    string(row.UserID),
		PolicyID:  string(row.PolicyID),
		Year:      row.Year,
		Allocated: row.Allocated.StringFixed(2),
		Used:      row.Used.StringFixed(2),
		Remaining: row.Remaining.StringFixed(2),
	}
	if !row.UpdatedAt.IsZero() {
		dto.UpdatedAt = row.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

// AdjustBalanceRequest applies a used-days delta to one ledger row.
type AdjustBalanceRequest struct {
	UserID   string          `json:"user_id" validate:"required"`
	PolicyID string          `json:"policy_id" validate:"required"`
	Year     int             `json:"year" validate:"required"`
	Delta    decimal.Decimal `json:"delta"`
}

// OverrideBalanceRequest is the administrative absolute overwrite.
type OverrideBalanceRequest struct {
	UserID    string           `json:"user_id" validate:"required"`
	PolicyID  string           `json:"policy_id" validate:"required"`
	Year      int              `json:"year" validate:"required"`
	Allocated *decimal.Decimal `json:"allocated_days,omitempty"`
	Used      *decimal.Decimal `json:"used_days,omitempty"`
	Remaining *decimal.Decimal `json:"remaining_days,omitempty"`
}

// RecalculateBalanceRequest rebuilds one ledger row from its leaves.
type RecalculateBalanceRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	PolicyID string `json:"policy_id" validate:"required"`
	Year     int    `json:"year" validate:"required"`
}

// =============================================================================
// CALENDAR
// =============================================================================

// CalendarDayDTO is one row of the daily view.
type CalendarDayDTO struct {
	Date      string `json:"date"`
	DayOfWeek string `json:"day_of_week"`
	Label     string `json:"label"`

	HolidayName string `json:"holiday_name,omitempty"`

	LeaveID      string `json:"leave_id,omitempty"`
	LeavePolicy  string `json:"leave_policy,omitempty"`
	LeaveDayPart string `json:"leave_day_part,omitempty"`
	LeaveNotes   string `json:"leave_notes,omitempty"`

	VisitID   string `json:"visit_id,omitempty"`
	VisitType string `json:"visit_type,omitempty"`
}

func toCalendarDayDTO(day schedule.CalendarDay) CalendarDayDTO {
	return CalendarDayDTO{
		Date:         day.Date.String(),
		DayOfWeek:    day.DayOfWeek.String(),
		Label:        string(day.Label),
		HolidayName:  day.HolidayName,
		LeaveID:      string(day.LeaveID),
		LeavePolicy:  string(day.LeavePolicy),
		LeaveDayPart: string(day.LeaveDayPart),
		LeaveNotes:   day.LeaveNotes,
		VisitID:      day.VisitID,
		VisitType:    string(day.VisitType),
	}
}

// PeriodAggregateDTO is one row of the periodic view.
type PeriodAggregateDTO struct {
	Period       string `json:"period"`
	WFOCount     int    `json:"wfo_count"`
	WFHCount     int    `json:"wfh_count"`
	HybridCount  int    `json:"hybrid_count"`
	OtherCount   int    `json:"other_count"`
	LeaveDays    int    `json:"leave_days"`
	HolidayCount int    `json:"holiday_count"`
}

func toPeriodAggregateDTO(agg schedule.PeriodAggregate) PeriodAggregateDTO {
	return PeriodAggregateDTO{
		Period:       agg.Period,
		WFOCount:     agg.WFOCount,
		WFHCount:     agg.WFHCount,
		HybridCount:  agg.HybridCount,
		OtherCount:   agg.OtherCount,
		LeaveDays:    agg.LeaveDays,
		HolidayCount: agg.HolidayCount,
	}
}

// =============================================================================
// DIRECTORY AND CALENDAR SOURCES
// =============================================================================

// CreateUserRequest registers a directory entry.
type CreateUserRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// CreatePolicyRequest registers a leave policy. DefaultAnnualDays must
// be positive; the handler checks the sign since decimals carry no
// numeric validator tag.
type CreatePolicyRequest struct {
	ID                string          `json:"id" validate:"required"`
	Name              string          `json:"name" validate:"required"`
	DefaultAnnualDays decimal.Decimal `json:"default_annual_days"`
}

// CreateHolidayRequest registers a company holiday.
type CreateHolidayRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Name string `json:"name" validate:"required"`
}

// CreateVisitRequest records an office visit.
type CreateVisitRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Type   string `json:"type,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

