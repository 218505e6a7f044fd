/*
handlers.go - HTTP handlers for the leave ledger and calendar views

PURPOSE:
  Exposes the engine via REST. Handlers parse and validate input,
  delegate to the domain services, and map domain errors onto HTTP
  statuses.

ENDPOINTS:
  Leaves:
    POST   /api/leaves                     Create leave
    GET    /api/leaves/{id}                Get leave
    PUT    /api/leaves/{id}                Update leave
    DELETE /api/leaves/{id}                Delete leave
    GET    /api/users/{id}/leaves          List a user's leaves

  Balances:
    GET    /api/users/{id}/balance         Get ledger row (policy, year)
    POST   /api/balances/adjust            Apply a used-days delta
    POST   /api/balances/override          Administrative overwrite
    POST   /api/balances/recalculate       Rebuild from leave records

  Calendar:
    GET    /api/users/{id}/calendar        Daily merged view (from, to)
    GET    /api/calendar/aggregates        Periodic view (from, to, group_by)

  Sources:
    POST/GET /api/users, /api/policies, /api/holidays, /api/visits
    POST     /api/seed                     Load the demo dataset

ERROR MAPPING:
  400  invalid input, bad ranges, unsupported granularity
  404  missing user/policy/leave/ledger row
  409  business-rule rejections (insufficient balance, invalid adjustment)
  500  everything else

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/leave"
	"github.com/warp/attendance-engine/schedule"
)

// Backend is everything the API layer needs from a storage backend.
// engine/store.Memory, store/sqlite.Store, and store/postgres.Store all
// satisfy it.
type Backend interface {
	engine.LeaveStore
	engine.BalanceStore
	engine.HolidayStore
	engine.VisitStore
	engine.Directory

	SaveUser(ctx context.Context, u engine.User) error
	SavePolicy(ctx context.Context, p engine.LeavePolicy) error
	ListUsers(ctx context.Context) ([]engine.User, error)
	ListPolicies(ctx context.Context) ([]engine.LeavePolicy, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Manager *leave.Manager
	Ledger  *leave.BalanceLedger
	Viewer  *schedule.Viewer

	store    Backend
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHandler wires the domain services on top of a storage backend.
func NewHandler(store Backend, logger *zap.Logger) *Handler {
	ledger := leave.NewBalanceLedger(store, store, store)
	return &Handler{
		Manager:  leave.NewManager(store, ledger, store),
		Ledger:   ledger,
		Viewer:   schedule.NewViewer(store, store, store),
		store:    store,
		logger:   logger,
		validate: validator.New(),
	}
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// CreateLeave creates a leave record and books it into the ledger.
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaveRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, err := engine.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date", err)
		return
	}
	end, err := engine.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date", err)
		return
	}
	dayPart, ok := engine.ParseDayPart(req.DayPart)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid day_part", nil)
		return
	}

	rec, err := h.Manager.Create(r.Context(), leave.CreateLeave{
		UserID:    engine.UserID(req.UserID),
		PolicyID:  engine.PolicyID(req.PolicyID),
		StartDate: start,
		EndDate:   end,
		TotalDays: req.TotalDays,
		DayPart:   dayPart,
		Notes:     req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, "create leave", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(rec))
}

// GetLeave returns a single leave record.
func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	id := engine.LeaveID(chi.URLParam(r, "id"))
	rec, err := h.store.GetLeave(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "get leave", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(rec))
}

// UpdateLeave applies field changes and moves the ledger accordingly.
func (h *Handler) UpdateLeave(w http.ResponseWriter, r *http.Request) {
	id := engine.LeaveID(chi.URLParam(r, "id"))

	var req UpdateLeaveRequest
	if !h.decode(w, r, &req) {
		return
	}

	var changes leave.UpdateLeave
	if req.StartDate != nil {
		d, err := engine.ParseDate(*req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date", err)
			return
		}
		changes.StartDate = &d
	}
	if req.EndDate != nil {
		d, err := engine.ParseDate(*req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date", err)
			return
		}
		changes.EndDate = &d
	}
	if req.PolicyID != nil {
		p := engine.PolicyID(*req.PolicyID)
		changes.PolicyID = &p
	}
	if req.DayPart != nil {
		dp, ok := engine.ParseDayPart(*req.DayPart)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid day_part", nil)
			return
		}
		changes.DayPart = &dp
	}
	changes.TotalDays = req.TotalDays
	changes.Notes = req.Notes

	rec, err := h.Manager.Update(r.Context(), id, changes)
	if err != nil {
		h.writeDomainError(w, "update leave", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(rec))
}

// DeleteLeave reverses a record's ledger distribution and removes it.
func (h *Handler) DeleteLeave(w http.ResponseWriter, r *http.Request) {
	id := engine.LeaveID(chi.URLParam(r, "id"))
	if err := h.Manager.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, "delete leave", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUserLeaves lists a user's leave records.
func (h *Handler) ListUserLeaves(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	recs, err := h.Manager.ListForUser(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, "list leaves", err)
		return
	}
	dtos := make([]LeaveDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toLeaveDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalance returns one ledger row, selected by policy and year query
// parameters.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	policyID := engine.PolicyID(r.URL.Query().Get("policy"))
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if policyID == "" || err != nil {
		writeError(w, http.StatusBadRequest, "policy and year query parameters are required", err)
		return
	}

	row, err := h.Ledger.Get(r.Context(), engine.BalanceKey{UserID: userID, PolicyID: policyID, Year: year})
	if err != nil {
		h.writeDomainError(w, "get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(row))
}

// AdjustBalance applies a used-days delta to one ledger row.
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req AdjustBalanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	key := engine.BalanceKey{
		UserID:   engine.UserID(req.UserID),
		PolicyID: engine.PolicyID(req.PolicyID),
		Year:     req.Year,
	}
	row, err := h.Ledger.Adjust(r.Context(), key, req.Delta)
	if err != nil {
		h.writeDomainError(w, "adjust balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(row))
}

// OverrideBalance performs the administrative absolute overwrite.
func (h *Handler) OverrideBalance(w http.ResponseWriter, r *http.Request) {
	var req OverrideBalanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	key := engine.BalanceKey{
		UserID:   engine.UserID(req.UserID),
		PolicyID: engine.PolicyID(req.PolicyID),
		Year:     req.Year,
	}
	row, err := h.Ledger.UpsertOverride(r.Context(), key, leave.Override{
		Allocated: req.Allocated,
		Used:      req.Used,
		Remaining: req.Remaining,
	})
	if err != nil {
		h.writeDomainError(w, "override balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(row))
}

// RecalculateBalance rebuilds one ledger row from its leave records.
func (h *Handler) RecalculateBalance(w http.ResponseWriter, r *http.Request) {
	var req RecalculateBalanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	key := engine.BalanceKey{
		UserID:   engine.UserID(req.UserID),
		PolicyID: engine.PolicyID(req.PolicyID),
		Year:     req.Year,
	}
	row, err := h.Ledger.Recalculate(r.Context(), key)
	if err != nil {
		h.writeDomainError(w, "recalculate balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(row))
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// GetDailyCalendar returns the merged daily view for a user.
func (h *Handler) GetDailyCalendar(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	from, to, ok := h.parseWindow(w, r)
	if !ok {
		return
	}

	days, err := h.Viewer.DailyView(r.Context(), userID, from, to)
	if err != nil {
		h.writeDomainError(w, "daily view", err)
		return
	}
	dtos := make([]CalendarDayDTO, len(days))
	for i, day := range days {
		dtos[i] = toCalendarDayDTO(day)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPeriodAggregates returns the periodic view, optionally scoped to a
// user via the user query parameter.
func (h *Handler) GetPeriodAggregates(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.parseWindow(w, r)
	if !ok {
		return
	}
	groupBy, err := engine.ParseGranularity(r.URL.Query().Get("group_by"))
	if err != nil {
		h.writeDomainError(w, "period aggregates", err)
		return
	}
	userID := engine.UserID(r.URL.Query().Get("user"))

	aggs, err := h.Viewer.PeriodAggregates(r.Context(), userID, from, to, groupBy)
	if err != nil {
		h.writeDomainError(w, "period aggregates", err)
		return
	}
	dtos := make([]PeriodAggregateDTO, len(aggs))
	for i, agg := range aggs {
		dtos[i] = toPeriodAggregateDTO(agg)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DIRECTORY AND SOURCE HANDLERS
// =============================================================================

// CreateUser registers a directory entry.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.store.SaveUser(r.Context(), engine.User{ID: engine.UserID(req.ID), Name: req.Name}); err != nil {
		writeError(w, http.StatusInternalServerError, "save user", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListUsers returns all directory entries.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CreatePolicy registers a leave policy.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.DefaultAnnualDays.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "default_annual_days must be positive", nil)
		return
	}
	p := engine.LeavePolicy{
		ID:                engine.PolicyID(req.ID),
		Name:              req.Name,
		DefaultAnnualDays: req.DefaultAnnualDays,
	}
	if err := h.store.SavePolicy(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "save policy", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListPolicies returns all policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.store.ListPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list policies", err)
		return
	}
	writeJSON(w, http.StatusOK, policies)
}

// CreateHoliday registers a company holiday.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	holiday := engine.Holiday{ID: uuid.NewString(), Date: date, Name: req.Name}
	if err := h.store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": holiday.ID})
}

// ListHolidays returns holidays inside the requested window.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.parseWindow(w, r)
	if !ok {
		return
	}
	holidays, err := h.store.FindHolidays(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list holidays", err)
		return
	}
	writeJSON(w, http.StatusOK, holidays)
}

// ListVisits returns office visits inside the requested window,
// optionally scoped to one user.
func (h *Handler) ListVisits(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.parseWindow(w, r)
	if !ok {
		return
	}
	userID := engine.UserID(r.URL.Query().Get("user"))
	visits, err := h.store.FindVisits(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list visits", err)
		return
	}
	writeJSON(w, http.StatusOK, visits)
}

// CreateVisit records an office visit. Unknown visit types land in the
// "others" bucket rather than failing.
func (h *Handler) CreateVisit(w http.ResponseWriter, r *http.Request) {
	var req CreateVisitRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	visit := engine.OfficeVisit{
		ID:     uuid.NewString(),
		UserID: engine.UserID(req.UserID),
		Date:   date,
		Type:   engine.NormalizeVisitType(req.Type),
		Notes:  req.Notes,
	}
	if err := h.store.SaveVisit(r.Context(), visit); err != nil {
		writeError(w, http.StatusInternalServerError, "save visit", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": visit.ID})
}

// SeedDemo loads the demo dataset.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	if err := Seed(r.Context(), h.store, h.Manager); err != nil {
		writeError(w, http.StatusInternalServerError, "seed demo data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "seeded"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err)
		return false
	}
	return true
}

func (h *Handler) parseWindow(w http.ResponseWriter, r *http.Request) (engine.Date, engine.Date, bool) {
	from, err := engine.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date", err)
		return engine.Date{}, engine.Date{}, false
	}
	to, err := engine.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date", err)
		return engine.Date{}, engine.Date{}, false
	}
	return from, to, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, op string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(op, zap.Error(err))
	}
	writeError(w, status, err.Error(), nil)
}

func statusForError(err error) int {
	switch {
	case engine.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInsufficientBalance),
		errors.Is(err, engine.ErrInvalidAdjustment):
		return http.StatusConflict
	case engine.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := map[string]string{"error": msg}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}
