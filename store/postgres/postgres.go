/*
Package postgres provides the Postgres-backed store implementation via
pgx. Same semantics as store/sqlite; use this backend when more than one
process shares the database.

Schema is auto-migrated on New(), matching the SQLite layout with
NUMERIC columns for day quantities and DATE columns for calendar dates.

SEE ALSO:
  - engine/store.go: interface definitions
  - store/sqlite/sqlite.go: the single-binary sibling
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/engine"
)

// Store implements all storage interfaces on a pgx connection pool.
type Store struct {
	db *pgxpool.Pool
}

// New connects to Postgres and migrates the schema.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	store := &Store{db: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		total_days NUMERIC(12,8) NOT NULL,
		day_part TEXT NOT NULL,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_records_user_dates
		ON leave_records(user_id, start_date, end_date);

	CREATE TABLE IF NOT EXISTS balance_rows (
		user_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		year INT NOT NULL,
		allocated_days NUMERIC(12,8) NOT NULL,
		used_days NUMERIC(12,8) NOT NULL,
		remaining_days NUMERIC(12,8) NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, policy_id, year)
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date DATE NOT NULL,
		name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date ON holidays(date);

	CREATE TABLE IF NOT EXISTS office_visits (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date DATE NOT NULL,
		visit_type TEXT NOT NULL,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_office_visits_user_date
		ON office_visits(user_id, date);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		default_annual_days NUMERIC(12,8) NOT NULL
	);
	`
	_, err := s.db.Exec(ctx, schema)
	return err
}

// =============================================================================
// LEAVE STORE
// =============================================================================

func (s *Store) CreateLeave(ctx context.Context, rec engine.LeaveRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO leave_records
		(id, user_id, policy_id, start_date, end_date, total_days, day_part, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, rec.ID, rec.UserID, rec.PolicyID,
		rec.StartDate.Time, rec.EndDate.Time,
		rec.TotalDays.String(), rec.DayPart, rec.Notes,
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert leave: %w", err)
	}
	return nil
}

func (s *Store) SaveLeave(ctx context.Context, rec engine.LeaveRecord) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE leave_records
		SET user_id = $1, policy_id = $2, start_date = $3, end_date = $4,
		    total_days = $5, day_part = $6, notes = $7, updated_at = $8
		WHERE id = $9
	`, rec.UserID, rec.PolicyID, rec.StartDate.Time, rec.EndDate.Time,
		rec.TotalDays.String(), rec.DayPart, rec.Notes, rec.UpdatedAt.UTC(), rec.ID)
	if err != nil {
		return fmt.Errorf("update leave: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("leave %s: %w", rec.ID, engine.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteLeave(ctx context.Context, id engine.LeaveID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM leave_records WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete leave: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("leave %s: %w", id, engine.ErrNotFound)
	}
	return nil
}

func (s *Store) GetLeave(ctx context.Context, id engine.LeaveID) (engine.LeaveRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, policy_id, start_date, end_date, total_days::text, day_part, notes, created_at, updated_at
		FROM leave_records WHERE id = $1
	`, id)
	if err != nil {
		return engine.LeaveRecord{}, fmt.Errorf("query leave: %w", err)
	}
	recs, err := collectLeaves(rows)
	if err != nil {
		return engine.LeaveRecord{}, err
	}
	if len(recs) == 0 {
		return engine.LeaveRecord{}, fmt.Errorf("leave %s: %w", id, engine.ErrNotFound)
	}
	return recs[0], nil
}

func (s *Store) FindLeavesByUser(ctx context.Context, userID engine.UserID) ([]engine.LeaveRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, policy_id, start_date, end_date, total_days::text, day_part, notes, created_at, updated_at
		FROM leave_records
		WHERE user_id = $1
		ORDER BY start_date, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query leaves: %w", err)
	}
	return collectLeaves(rows)
}

func (s *Store) FindLeavesOverlapping(ctx context.Context, userID engine.UserID, from, to engine.Date) ([]engine.LeaveRecord, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if userID == "" {
		rows, err = s.db.Query(ctx, `
			SELECT id, user_id, policy_id, start_date, end_date, total_days::text, day_part, notes, created_at, updated_at
			FROM leave_records
			WHERE start_date <= $1 AND end_date >= $2
			ORDER BY start_date, id
		`, to.Time, from.Time)
	} else {
		rows, err = s.db.Query(ctx, `
			SELECT id, user_id, policy_id, start_date, end_date, total_days::text, day_part, notes, created_at, updated_at
			FROM leave_records
			WHERE user_id = $1 AND start_date <= $2 AND end_date >= $3
			ORDER BY start_date, id
		`, userID, to.Time, from.Time)
	}
	if err != nil {
		return nil, fmt.Errorf("query leaves: %w", err)
	}
	return collectLeaves(rows)
}

func collectLeaves(rows pgx.Rows) ([]engine.LeaveRecord, error) {
	defer rows.Close()

	var recs []engine.LeaveRecord
	for rows.Next() {
		var (
			rec        engine.LeaveRecord
			start, end time.Time
			total      string
			notes      *string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.PolicyID, &start, &end, &total,
			&rec.DayPart, &notes, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan leave: %w", err)
		}
		rec.StartDate = engine.DateOf(start)
		rec.EndDate = engine.DateOf(end)
		var err error
		if rec.TotalDays, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse total days: %w", err)
		}
		if notes != nil {
			rec.Notes = *notes
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// =============================================================================
// BALANCE STORE
// =============================================================================

func (s *Store) GetBalance(ctx context.Context, key engine.BalanceKey) (engine.BalanceRow, error) {
	var row engine.BalanceRow
	var allocated, used, remaining string
	err := s.db.QueryRow(ctx, `
		SELECT user_id, policy_id, year, allocated_days::text, used_days::text, remaining_days::text, updated_at
		FROM balance_rows
		WHERE user_id = $1 AND policy_id = $2 AND year = $3
	`, key.UserID, key.PolicyID, key.Year).Scan(
		&row.UserID, &row.PolicyID, &row.Year, &allocated, &used, &remaining, &row.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.BalanceRow{}, fmt.Errorf("balance %s: %w", key, engine.ErrNotFound)
	}
	if err != nil {
		return engine.BalanceRow{}, fmt.Errorf("query balance: %w", err)
	}

	if row.Allocated, err = decimal.NewFromString(allocated); err != nil {
		return engine.BalanceRow{}, fmt.Errorf("parse allocated: %w", err)
	}
	if row.Used, err = decimal.NewFromString(used); err != nil {
		return engine.BalanceRow{}, fmt.Errorf("parse used: %w", err)
	}
	if row.Remaining, err = decimal.NewFromString(remaining); err != nil {
		return engine.BalanceRow{}, fmt.Errorf("parse remaining: %w", err)
	}
	return row, nil
}

func (s *Store) SaveBalance(ctx context.Context, row engine.BalanceRow) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO balance_rows (user_id, policy_id, year, allocated_days, used_days, remaining_days, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (user_id, policy_id, year) DO UPDATE SET
			allocated_days = EXCLUDED.allocated_days,
			used_days = EXCLUDED.used_days,
			remaining_days = EXCLUDED.remaining_days,
			updated_at = EXCLUDED.updated_at
	`, row.UserID, row.PolicyID, row.Year,
		row.Allocated.String(), row.Used.String(), row.Remaining.String(),
		row.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

func (s *Store) SaveHoliday(ctx context.Context, h engine.Holiday) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO holidays (id, date, name) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET date = EXCLUDED.date, name = EXCLUDED.name
	`, h.ID, h.Date.Time, h.Name)
	if err != nil {
		return fmt.Errorf("save holiday: %w", err)
	}
	return nil
}

func (s *Store) FindHolidays(ctx context.Context, from, to engine.Date) ([]engine.Holiday, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, date, name FROM holidays
		WHERE date >= $1 AND date <= $2
		ORDER BY date
	`, from.Time, to.Time)
	if err != nil {
		return nil, fmt.Errorf("query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []engine.Holiday
	for rows.Next() {
		var h engine.Holiday
		var date time.Time
		if err := rows.Scan(&h.ID, &date, &h.Name); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		h.Date = engine.DateOf(date)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// VISIT STORE
// =============================================================================

func (s *Store) SaveVisit(ctx context.Context, v engine.OfficeVisit) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO office_visits (id, user_id, date, visit_type, notes)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			date = EXCLUDED.date,
			visit_type = EXCLUDED.visit_type,
			notes = EXCLUDED.notes
	`, v.ID, v.UserID, v.Date.Time, v.Type, v.Notes)
	if err != nil {
		return fmt.Errorf("save visit: %w", err)
	}
	return nil
}

func (s *Store) FindVisits(ctx context.Context, userID engine.UserID, from, to engine.Date) ([]engine.OfficeVisit, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if userID == "" {
		rows, err = s.db.Query(ctx, `
			SELECT id, user_id, date, visit_type, notes FROM office_visits
			WHERE date >= $1 AND date <= $2
			ORDER BY date, id
		`, from.Time, to.Time)
	} else {
		rows, err = s.db.Query(ctx, `
			SELECT id, user_id, date, visit_type, notes FROM office_visits
			WHERE user_id = $1 AND date >= $2 AND date <= $3
			ORDER BY date, id
		`, userID, from.Time, to.Time)
	}
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	var visits []engine.OfficeVisit
	for rows.Next() {
		var v engine.OfficeVisit
		var date time.Time
		var notes *string
		if err := rows.Scan(&v.ID, &v.UserID, &date, &v.Type, &notes); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		v.Date = engine.DateOf(date)
		if notes != nil {
			v.Notes = *notes
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (s *Store) SaveUser(ctx context.Context, u engine.User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, name) VALUES ($1,$2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, u.ID, u.Name)
	return err
}

func (s *Store) SavePolicy(ctx context.Context, p engine.LeavePolicy) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO policies (id, name, default_annual_days) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			default_annual_days = EXCLUDED.default_annual_days
	`, p.ID, p.Name, p.DefaultAnnualDays.String())
	return err
}

func (s *Store) UserExists(ctx context.Context, id engine.UserID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

func (s *Store) PolicyExists(ctx context.Context, id engine.PolicyID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM policies WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

func (s *Store) GetPolicy(ctx context.Context, id engine.PolicyID) (engine.LeavePolicy, error) {
	var p engine.LeavePolicy
	var days string
	err := s.db.QueryRow(ctx,
		"SELECT id, name, default_annual_days::text FROM policies WHERE id = $1", id,
	).Scan(&p.ID, &p.Name, &days)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.LeavePolicy{}, fmt.Errorf("policy %s: %w", id, engine.ErrNotFound)
	}
	if err != nil {
		return engine.LeavePolicy{}, fmt.Errorf("query policy: %w", err)
	}
	if p.DefaultAnnualDays, err = decimal.NewFromString(days); err != nil {
		return engine.LeavePolicy{}, fmt.Errorf("parse default days: %w", err)
	}
	return p, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]engine.User, error) {
	rows, err := s.db.Query(ctx, "SELECT id, name FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []engine.User
	for rows.Next() {
		var u engine.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) ListPolicies(ctx context.Context) ([]engine.LeavePolicy, error) {
	rows, err := s.db.Query(ctx, "SELECT id, name, default_annual_days::text FROM policies ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []engine.LeavePolicy
	for rows.Next() {
		var p engine.LeavePolicy
		var days string
		if err := rows.Scan(&p.ID, &p.Name, &days); err != nil {
			return nil, err
		}
		if p.DefaultAnnualDays, err = decimal.NewFromString(days); err != nil {
			return nil, fmt.Errorf("parse default days: %w", err)
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}
