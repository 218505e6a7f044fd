/*
Package sqlite provides the SQLite-backed store implementation.

PURPOSE:
  Implements every engine storage interface (LeaveStore, BalanceStore,
  HolidayStore, VisitStore, Directory) on a single SQLite database.
  This is the default single-binary backend; store/postgres applies the
  same patterns on Postgres for shared deployments.

KEY TABLES:
  leave_records: one row per leave request
  balance_rows:  one row per (user, policy, year), UNIQUE on the tuple
  holidays:      company holidays
  office_visits: per-user per-day visit records
  users:         directory entries
  policies:      allocation seeds (default_annual_days)

DECIMALS:
  Day quantities are stored as TEXT and parsed with shopspring/decimal,
  so no precision is lost round-tripping through the database.

CONCURRENCY:
  Uses sync.RWMutex for thread safety within the process; ledger-key
  exclusivity lives above this layer (engine.KeyMutex). WAL mode keeps
  readers unblocked by the single writer.

MIGRATION:
  Schema is auto-migrated on New(). For production use a versioned
  migration tool.

SEE ALSO:
  - engine/store.go: interface definitions
  - engine/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/engine"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) a SQLite store. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_days TEXT NOT NULL,
		day_part TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Overlap queries are the hot path for recalculation and calendars.
	CREATE INDEX IF NOT EXISTS idx_leave_records_user_dates
		ON leave_records(user_id, start_date, end_date);

	CREATE TABLE IF NOT EXISTS balance_rows (
		user_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		allocated_days TEXT NOT NULL,
		used_days TEXT NOT NULL,
		remaining_days TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, policy_id, year)
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date ON holidays(date);

	CREATE TABLE IF NOT EXISTS office_visits (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		visit_type TEXT NOT NULL,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_office_visits_user_date
		ON office_visits(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_office_visits_date
		ON office_visits(date);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		default_annual_days TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEAVE STORE (engine.LeaveStore interface)
// =============================================================================

func (s *Store) CreateLeave(ctx context.Context, rec engine.LeaveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_records
		(id, user_id, policy_id, start_date, end_date, total_days, day_part, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.PolicyID,
		rec.StartDate.String(), rec.EndDate.String(),
		rec.TotalDays.String(), rec.DayPart, rec.Notes,
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert leave: %w", err)
	}
	return nil
}

func (s *Store) SaveLeave(ctx context.Context, rec engine.LeaveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE leave_records
		SET user_id = ?, policy_id = ?, start_date = ?, end_date = ?,
		    total_days = ?, day_part = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		rec.UserID, rec.PolicyID,
		rec.StartDate.String(), rec.EndDate.String(),
		rec.TotalDays.String(), rec.DayPart, rec.Notes,
		rec.UpdatedAt.UTC().Format(time.RFC3339),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update leave: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("leave %s: %w", rec.ID, engine.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteLeave(ctx context.Context, id engine.LeaveID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM leave_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete leave: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("leave %s: %w", id, engine.ErrNotFound)
	}
	return nil
}

func (s *Store) GetLeave(ctx context.Context, id engine.LeaveID) (engine.LeaveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, policy_id, start_date, end_date, total_days, day_part, notes, created_at, updated_at
		FROM leave_records WHERE id = ?
	`
	recs, err := s.queryLeaves(ctx, query, id)
	if err != nil {
		return engine.LeaveRecord{}, err
	}
	if len(recs) == 0 {
		return engine.LeaveRecord{}, fmt.Errorf("leave %s: %w", id, engine.ErrNotFound)
	}
	return recs[0], nil
}

func (s *Store) FindLeavesByUser(ctx context.Context, userID engine.UserID) ([]engine.LeaveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, policy_id, start_date, end_date, total_days, day_part, notes, created_at, updated_at
		FROM leave_records
		WHERE user_id = ?
		ORDER BY start_date ASC, id ASC
	`
	return s.queryLeaves(ctx, query, userID)
}

func (s *Store) FindLeavesOverlapping(ctx context.Context, userID engine.UserID, from, to engine.Date) ([]engine.LeaveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Inclusive overlap: start <= to AND end >= from.
	if userID == "" {
		query := `
			SELECT id, user_id, policy_id, start_date, end_date, total_days, day_part, notes, created_at, updated_at
			FROM leave_records
			WHERE start_date <= ? AND end_date >= ?
			ORDER BY start_date ASC, id ASC
		`
		return s.queryLeaves(ctx, query, to.String(), from.String())
	}

	query := `
		SELECT id, user_id, policy_id, start_date, end_date, total_days, day_part, notes, created_at, updated_at
		FROM leave_records
		WHERE user_id = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, id ASC
	`
	return s.queryLeaves(ctx, query, userID, to.String(), from.String())
}

func (s *Store) queryLeaves(ctx context.Context, query string, args ...any) ([]engine.LeaveRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leaves: %w", err)
	}
	defer rows.Close()

	var recs []engine.LeaveRecord
	for rows.Next() {
		rec, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanLeave(rows *sql.Rows) (engine.LeaveRecord, error) {
	var (
		rec                  engine.LeaveRecord
		start, end, total    string
		notes                sql.NullString
		createdAt, updatedAt string
	)
	err := rows.Scan(&rec.ID, &rec.UserID, &rec.PolicyID, &start, &end, &total,
		&rec.DayPart, &notes, &createdAt, &updatedAt)
	if err != nil {
		return rec, fmt.Errorf("scan leave: %w", err)
	}

	rec.StartDate, err = engine.ParseDate(start)
	if err != nil {
		return rec, fmt.Errorf("parse start date: %w", err)
	}
	rec.EndDate, err = engine.ParseDate(end)
	if err != nil {
		return rec, fmt.Errorf("parse end date: %w", err)
	}
	rec.TotalDays, err = decimal.NewFromString(total)
	if err != nil {
		return rec, fmt.Errorf("parse total days: %w", err)
	}
	rec.Notes = notes.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

// =============================================================================
// BALANCE STORE (engine.BalanceStore interface)
// =============================================================================

func (s *Store) GetBalance(ctx context.Context, key engine.BalanceKey) (engine.BalanceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row engine.BalanceRow
	var allocated, used, remaining, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, policy_id, year, allocated_days, used_days, remaining_days, updated_at
		FROM balance_rows
		WHERE user_id = ? AND policy_id = ? AND year = ?
	`, key.UserID, key.PolicyID, key.Year).Scan(
		&row.UserID, &row.PolicyID, &row.Year, &allocated, &used, &remaining, &updatedAt,
	)
	if err == sql.ErrNoRows {
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
	row.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return row, nil
}

func (s *Store) SaveBalance(ctx context.Context, row engine.BalanceRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO balance_rows (user_id, policy_id, year, allocated_days, used_days, remaining_days, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, policy_id, year) DO UPDATE SET
			allocated_days = excluded.allocated_days,
			used_days = excluded.used_days,
			remaining_days = excluded.remaining_days,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		row.UserID, row.PolicyID, row.Year,
		row.Allocated.String(), row.Used.String(), row.Remaining.String(),
		row.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

// =============================================================================
// HOLIDAY STORE (engine.HolidayStore interface)
// =============================================================================

func (s *Store) SaveHoliday(ctx context.Context, h engine.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, date, name)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET date = excluded.date, name = excluded.name
	`
	_, err := s.db.ExecContext(ctx, query, h.ID, h.Date.String(), h.Name)
	if err != nil {
		return fmt.Errorf("save holiday: %w", err)
	}
	return nil
}

func (s *Store) FindHolidays(ctx context.Context, from, to engine.Date) ([]engine.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, name FROM holidays
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []engine.Holiday
	for rows.Next() {
		var h engine.Holiday
		var dateStr string
		if err := rows.Scan(&h.ID, &dateStr, &h.Name); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		if h.Date, err = engine.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("parse holiday date: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// VISIT STORE (engine.VisitStore interface)
// =============================================================================

func (s *Store) SaveVisit(ctx context.Context, v engine.OfficeVisit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO office_visits (id, user_id, date, visit_type, notes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			date = excluded.date,
			visit_type = excluded.visit_type,
			notes = excluded.notes
	`
	_, err := s.db.ExecContext(ctx, query, v.ID, v.UserID, v.Date.String(), v.Type, v.Notes)
	if err != nil {
		return fmt.Errorf("save visit: %w", err)
	}
	return nil
}

func (s *Store) FindVisits(ctx context.Context, userID engine.UserID, from, to engine.Date) ([]engine.OfficeVisit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rows *sql.Rows
		err  error
	)
	if userID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, user_id, date, visit_type, notes FROM office_visits
			WHERE date >= ? AND date <= ?
			ORDER BY date ASC, id ASC
		`, from.String(), to.String())
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, user_id, date, visit_type, notes FROM office_visits
			WHERE user_id = ? AND date >= ? AND date <= ?
			ORDER BY date ASC, id ASC
		`, userID, from.String(), to.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	var visits []engine.OfficeVisit
	for rows.Next() {
		var v engine.OfficeVisit
		var dateStr string
		var notes sql.NullString
		if err := rows.Scan(&v.ID, &v.UserID, &dateStr, &v.Type, &notes); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		if v.Date, err = engine.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("parse visit date: %w", err)
		}
		v.Notes = notes.String
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// =============================================================================
// DIRECTORY (engine.Directory interface)
// =============================================================================

func (s *Store) SaveUser(ctx context.Context, u engine.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, u.ID, u.Name)
	return err
}

func (s *Store) SavePolicy(ctx context.Context, p engine.LeavePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO policies (id, name, default_annual_days) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			default_annual_days = excluded.default_annual_days
	`, p.ID, p.Name, p.DefaultAnnualDays.String())
	return err
}

func (s *Store) UserExists(ctx context.Context, id engine.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE id = ?", id).Scan(&count)
	return count > 0, err
}

func (s *Store) PolicyExists(ctx context.Context, id engine.PolicyID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM policies WHERE id = ?", id).Scan(&count)
	return count > 0, err
}

func (s *Store) GetPolicy(ctx context.Context, id engine.PolicyID) (engine.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p engine.LeavePolicy
	var days string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, default_annual_days FROM policies WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &days)
	if err == sql.ErrNoRows {
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
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM users ORDER BY id")
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
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, default_annual_days FROM policies ORDER BY id")
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

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (tests and demo seeding).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"leave_records", "balance_rows", "holidays", "office_visits", "users", "policies"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
