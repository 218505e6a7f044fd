/*
seed.go - Demo dataset

PURPOSE:
  Loads a small, deterministic dataset for local development and manual
  testing: two users, two policies, a handful of holidays and visits,
  and leaves that exercise the interesting ledger paths (multi-day,
  half-day, and a year-crossing record).
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/leave"
)

// Seed loads the demo dataset. It is additive; run it against an empty
// store.
func Seed(ctx context.Context, store Backend, mgr *leave.Manager) error {
	users := []engine.User{
		{ID: "alice", Name: "Alice Nguyen"},
		{ID: "bob", Name: "Bob Okafor"},
	}
	for _, u := range users {
		if err := store.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}

	policies := []engine.LeavePolicy{
		{ID: "annual", Name: "Annual Leave", DefaultAnnualDays: decimal.NewFromInt(20)},
		{ID: "sick", Name: "Sick Leave", DefaultAnnualDays: decimal.NewFromInt(10)},
	}
	for _, p := range policies {
		if err := store.SavePolicy(ctx, p); err != nil {
			return fmt.Errorf("seed policy %s: %w", p.ID, err)
		}
	}

	holidays := []engine.Holiday{
		{ID: "h-newyear", Date: engine.NewDate(2025, time.January, 1), Name: "New Year's Day"},
		{ID: "h-mayday", Date: engine.NewDate(2025, time.May, 1), Name: "Labour Day"},
		{ID: "h-xmas", Date: engine.NewDate(2025, time.December, 25), Name: "Christmas Day"},
	}
	for _, h := range holidays {
		if err := store.SaveHoliday(ctx, h); err != nil {
			return fmt.Errorf("seed holiday %s: %w", h.ID, err)
		}
	}

	visits := []engine.OfficeVisit{
		{ID: "v-1", UserID: "alice", Date: engine.NewDate(2025, time.March, 3), Type: engine.VisitWFO},
		{ID: "v-2", UserID: "alice", Date: engine.NewDate(2025, time.March, 4), Type: engine.VisitWFH},
		{ID: "v-3", UserID: "alice", Date: engine.NewDate(2025, time.March, 5), Type: engine.VisitHybrid},
		{ID: "v-4", UserID: "bob", Date: engine.NewDate(2025, time.March, 3), Type: engine.VisitWFO},
	}
	for _, v := range visits {
		if err := store.SaveVisit(ctx, v); err != nil {
			return fmt.Errorf("seed visit %s: %w", v.ID, err)
		}
	}

	leaves := []leave.CreateLeave{
		// Plain multi-day leave.
		{
			UserID:    "alice",
			PolicyID:  "annual",
			StartDate: engine.NewDate(2025, time.July, 7),
			EndDate:   engine.NewDate(2025, time.July, 11),
			Notes:     "summer break",
		},
		// Half day.
		{
			UserID:    "alice",
			PolicyID:  "sick",
			StartDate: engine.NewDate(2025, time.March, 10),
			EndDate:   engine.NewDate(2025, time.March, 10),
			DayPart:   engine.DayPartMorning,
			Notes:     "dentist",
		},
		// Year-crossing leave, split across the 2025 and 2026 ledgers.
		{
			UserID:    "bob",
			PolicyID:  "annual",
			StartDate: engine.NewDate(2025, time.December, 29),
			EndDate:   engine.NewDate(2026, time.January, 2),
			Notes:     "new year trip",
		},
	}
	for _, in := range leaves {
		if _, err := mgr.Create(ctx, in); err != nil {
			return fmt.Errorf("seed leave for %s: %w", in.UserID, err)
		}
	}

	return nil
}
