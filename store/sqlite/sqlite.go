/*
Package sqlite provides a SQLite-backed implementation of the engine's
storage interfaces.

PURPOSE:
  Implements engine.Store and engine.TxStore using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

OPTIMISTIC CONCURRENCY:
  The balances and requests tables carry a version column. Updates run as

    UPDATE ... SET version = version + 1 WHERE ... AND version = ?

  Zero rows affected on an existing row means a stale version, surfaced
  as engine.ErrConcurrentModification. This is what resolves two
  concurrent approvals of the same pending request to exactly one charge.

KEY TABLES:
  users:          Employee records
  user_approvers: Designated approver links (many-to-many)
  leave_types:    The leave type catalog
  holidays:       Public holidays, date UNIQUE system-wide
  balances:       Per (user_id, leave_type_id, year) entitlement buckets
  requests:       Time-off requests with frozen business_days

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  lifecycle := engine.NewRequestLifecycle(st)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tempo/leave-engine/engine"
)

// Store implements engine.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ engine.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'employee',
		manager_id TEXT,
		start_date TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Designated approvers, replaced wholesale on user save.
	CREATE TABLE IF NOT EXISTS user_approvers (
		user_id TEXT NOT NULL,
		approver_id TEXT NOT NULL,
		PRIMARY KEY (user_id, approver_id)
	);

	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT TRUE,
		default_days INTEGER NOT NULL DEFAULT 0,
		color TEXT NOT NULL DEFAULT '#3B82F6',
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	-- At most one holiday per calendar date, system-wide.
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		year INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_year ON holidays(year);

	-- One row per (user, leave type, year) triple.
	CREATE TABLE IF NOT EXISTS balances (
		user_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		total_days INTEGER NOT NULL DEFAULT 0,
		used_days INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (user_id, leave_type_id, year)
	);

	CREATE INDEX IF NOT EXISTS idx_balances_user_year ON balances(user_id, year);

	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		business_days INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		comment TEXT,
		reviewer_id TEXT,
		reviewer_comment TEXT,
		reviewed_at TEXT,
		created_at TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_requests_user ON requests(user_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_range ON requests(start_date, end_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// BALANCES (engine.BalanceStore)
// =============================================================================

func (s *Store) GetBalance(ctx context.Context, userID engine.UserID, typeID engine.LeaveTypeID, year int) (*engine.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBalance(ctx, s.db, userID, typeID, year)
}

func getBalance(ctx context.Context, db dbtx, userID engine.UserID, typeID engine.LeaveTypeID, year int) (*engine.Balance, error) {
	var b engine.Balance
	err := db.QueryRowContext(ctx,
		`SELECT user_id, leave_type_id, year, total_days, used_days, version
		 FROM balances WHERE user_id = ? AND leave_type_id = ? AND year = ?`,
		userID, typeID, year,
	).Scan(&b.UserID, &b.LeaveTypeID, &b.Year, &b.TotalDays, &b.UsedDays, &b.Version)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query balance: %w", err)
	}
	return &b, nil
}

func (s *Store) SaveBalance(ctx context.Context, b *engine.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveBalance(ctx, s.db, b)
}

func saveBalance(ctx context.Context, db dbtx, b *engine.Balance) error {
	if b.Version == 0 {
		_, err := db.ExecContext(ctx,
			`INSERT INTO balances (user_id, leave_type_id, year, total_days, used_days, version)
			 VALUES (?, ?, ?, ?, ?, 1)`,
			b.UserID, b.LeaveTypeID, b.Year, b.TotalDays, b.UsedDays,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return engine.ErrConcurrentModification
			}
			return fmt.Errorf("failed to insert balance: %w", err)
		}
		b.Version = 1
		return nil
	}

	res, err := db.ExecContext(ctx,
		`UPDATE balances SET total_days = ?, used_days = ?, version = version + 1
		 WHERE user_id = ? AND leave_type_id = ? AND year = ? AND version = ?`,
		b.TotalDays, b.UsedDays, b.UserID, b.LeaveTypeID, b.Year, b.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrConcurrentModification
	}
	b.Version++
	return nil
}

func (s *Store) ListBalances(ctx context.Context, userID engine.UserID, year int) ([]engine.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBalances(ctx, s.db, userID, year)
}

func listBalances(ctx context.Context, db dbtx, userID engine.UserID, year int) ([]engine.Balance, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT user_id, leave_type_id, year, total_days, used_days, version
		 FROM balances WHERE user_id = ? AND year = ? ORDER BY leave_type_id`,
		userID, year,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var balances []engine.Balance
	for rows.Next() {
		var b engine.Balance
		if err := rows.Scan(&b.UserID, &b.LeaveTypeID, &b.Year, &b.TotalDays, &b.UsedDays, &b.Version); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// =============================================================================
// REQUESTS (engine.RequestStore)
// =============================================================================

const requestColumns = `id, user_id, leave_type_id, start_date, end_date, business_days,
	status, comment, reviewer_id, reviewer_comment, reviewed_at, created_at, version`

func (s *Store) GetRequest(ctx context.Context, id engine.RequestID) (*engine.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, id)
}

func getRequest(ctx context.Context, db dbtx, id engine.RequestID) (*engine.Request, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query request: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	r, err := scanRequest(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) SaveRequest(ctx context.Context, r *engine.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveRequest(ctx, s.db, r)
}

func saveRequest(ctx context.Context, db dbtx, r *engine.Request) error {
	var reviewerID any
	if r.ReviewerID != nil {
		reviewerID = string(*r.ReviewerID)
	}
	var reviewedAt any
	if r.ReviewedAt != nil {
		reviewedAt = r.ReviewedAt.UTC().Format(time.RFC3339)
	}

	if r.Version == 0 {
		_, err := db.ExecContext(ctx,
			`INSERT INTO requests (`+requestColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			r.ID, r.UserID, r.LeaveTypeID,
			r.StartDate.String(), r.EndDate.String(), r.BusinessDays,
			r.Status, r.Comment, reviewerID, r.ReviewerComment, reviewedAt,
			r.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return engine.ErrConcurrentModification
			}
			return fmt.Errorf("failed to insert request: %w", err)
		}
		r.Version = 1
		return nil
	}

	res, err := db.ExecContext(ctx,
		`UPDATE requests SET status = ?, comment = ?, reviewer_id = ?, reviewer_comment = ?,
			reviewed_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		r.Status, r.Comment, reviewerID, r.ReviewerComment, reviewedAt,
		r.ID, r.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrConcurrentModification
	}
	r.Version++
	return nil
}

func (s *Store) ListRequestsByUser(ctx context.Context, userID engine.UserID) ([]engine.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRequestsByUser(ctx, s.db, userID)
}

func listRequestsByUser(ctx context.Context, db dbtx, userID engine.UserID) ([]engine.Request, error) {
	return queryRequests(ctx, db,
		`SELECT `+requestColumns+` FROM requests WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID)
}

func (s *Store) ListRequestsByStatus(ctx context.Context, status engine.RequestStatus) ([]engine.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRequestsByStatus(ctx, s.db, status)
}

func listRequestsByStatus(ctx context.Context, db dbtx, status engine.RequestStatus) ([]engine.Request, error) {
	return queryRequests(ctx, db,
		`SELECT `+requestColumns+` FROM requests WHERE status = ?
		 ORDER BY created_at ASC, id ASC`,
		status)
}

func (s *Store) ListApprovedOverlapping(ctx context.Context, from, to engine.Date) ([]engine.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listApprovedOverlapping(ctx, s.db, from, to)
}

func listApprovedOverlapping(ctx context.Context, db dbtx, from, to engine.Date) ([]engine.Request, error) {
	// Dates are stored as ISO-8601 strings, so lexical order is date order.
	return queryRequests(ctx, db,
		`SELECT `+requestColumns+` FROM requests
		 WHERE status = 'approved' AND start_date <= ? AND end_date >= ?
		 ORDER BY start_date ASC`,
		to.String(), from.String())
}

func queryRequests(ctx context.Context, db dbtx, query string, args ...any) ([]engine.Request, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []engine.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func scanRequest(rows *sql.Rows) (engine.Request, error) {
	var (
		r               engine.Request
		startDate       string
		endDate         string
		comment         sql.NullString
		reviewerID      sql.NullString
		reviewerComment sql.NullString
		reviewedAt      sql.NullString
		createdAt       string
	)

	err := rows.Scan(
		&r.ID, &r.UserID, &r.LeaveTypeID, &startDate, &endDate, &r.BusinessDays,
		&r.Status, &comment, &reviewerID, &reviewerComment, &reviewedAt, &createdAt, &r.Version,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan request: %w", err)
	}

	r.StartDate, err = engine.ParseDate(startDate)
	if err != nil {
		return r, fmt.Errorf("failed to parse start date: %w", err)
	}
	r.EndDate, err = engine.ParseDate(endDate)
	if err != nil {
		return r, fmt.Errorf("failed to parse end date: %w", err)
	}
	r.Comment = comment.String
	r.ReviewerComment = reviewerComment.String
	if reviewerID.Valid {
		id := engine.UserID(reviewerID.String)
		r.ReviewerID = &id
	}
	if reviewedAt.Valid {
		t, err := time.Parse(time.RFC3339, reviewedAt.String)
		if err != nil {
			return r, fmt.Errorf("failed to parse reviewed_at: %w", err)
		}
		r.ReviewedAt = &t
	}
	r.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return r, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return r, nil
}

// =============================================================================
// HOLIDAYS (engine.HolidayStore)
// =============================================================================

func (s *Store) HolidaysInRange(ctx context.Context, from, to engine.Date) ([]engine.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return holidaysInRange(ctx, s.db, from, to)
}

func holidaysInRange(ctx context.Context, db dbtx, from, to engine.Date) ([]engine.Holiday, error) {
	return queryHolidays(ctx, db,
		`SELECT id, date, name, year FROM holidays
		 WHERE date >= ? AND date <= ? ORDER BY date ASC`,
		from.String(), to.String())
}

func (s *Store) ListHolidays(ctx context.Context, year int) ([]engine.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listHolidays(ctx, s.db, year)
}

func listHolidays(ctx context.Context, db dbtx, year int) ([]engine.Holiday, error) {
	return queryHolidays(ctx, db,
		`SELECT id, date, name, year FROM holidays WHERE year = ? ORDER BY date ASC`, year)
}

func queryHolidays(ctx context.Context, db dbtx, query string, args ...any) ([]engine.Holiday, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []engine.Holiday
	for rows.Next() {
		var h engine.Holiday
		var dateStr string
		if err := rows.Scan(&h.ID, &dateStr, &h.Name, &h.Year); err != nil {
			return nil, err
		}
		h.Date, err = engine.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse holiday date: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *Store) SaveHoliday(ctx context.Context, h engine.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveHoliday(ctx, s.db, h)
}

func saveHoliday(ctx context.Context, db dbtx, h engine.Holiday) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO holidays (id, date, name, year) VALUES (?, ?, ?, ?)`,
		h.ID, h.Date.String(), h.Name, h.Year,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return engine.ErrDuplicateHoliday
		}
		return fmt.Errorf("failed to insert holiday: %w", err)
	}
	return nil
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteHoliday(ctx, s.db, id)
}

func deleteHoliday(ctx context.Context, db dbtx, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	return err
}

// =============================================================================
// LEAVE TYPES (engine.LeaveTypeStore)
// =============================================================================

func (s *Store) GetLeaveType(ctx context.Context, id engine.LeaveTypeID) (*engine.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLeaveType(ctx, s.db, id)
}

func getLeaveType(ctx context.Context, db dbtx, id engine.LeaveTypeID) (*engine.LeaveType, error) {
	var lt engine.LeaveType
	err := db.QueryRowContext(ctx,
		`SELECT id, name, paid, default_days, color, active FROM leave_types WHERE id = ?`, id,
	).Scan(&lt.ID, &lt.Name, &lt.Paid, &lt.DefaultDays, &lt.Color, &lt.Active)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query leave type: %w", err)
	}
	return &lt, nil
}

func (s *Store) ListLeaveTypes(ctx context.Context, includeInactive bool) ([]engine.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listLeaveTypes(ctx, s.db, includeInactive)
}

func listLeaveTypes(ctx context.Context, db dbtx, includeInactive bool) ([]engine.LeaveType, error) {
	query := `SELECT id, name, paid, default_days, color, active FROM leave_types`
	if !includeInactive {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave types: %w", err)
	}
	defer rows.Close()

	var types []engine.LeaveType
	for rows.Next() {
		var lt engine.LeaveType
		if err := rows.Scan(&lt.ID, &lt.Name, &lt.Paid, &lt.DefaultDays, &lt.Color, &lt.Active); err != nil {
			return nil, err
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

func (s *Store) SaveLeaveType(ctx context.Context, lt engine.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveLeaveType(ctx, s.db, lt)
}

func saveLeaveType(ctx context.Context, db dbtx, lt engine.LeaveType) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO leave_types (id, name, paid, default_days, color, active)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			paid = excluded.paid,
			default_days = excluded.default_days,
			color = excluded.color,
			active = excluded.active`,
		lt.ID, lt.Name, lt.Paid, lt.DefaultDays, lt.Color, lt.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to save leave type: %w", err)
	}
	return nil
}

// =============================================================================
// USERS (engine.UserStore)
// =============================================================================

func (s *Store) GetUser(ctx context.Context, id engine.UserID) (*engine.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUser(ctx, s.db, id)
}

func getUser(ctx context.Context, db dbtx, id engine.UserID) (*engine.User, error) {
	var (
		u         engine.User
		managerID sql.NullString
		startDate sql.NullString
		createdAt string
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, email, name, role, manager_id, start_date, active, created_at
		 FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &managerID, &startDate, &u.Active, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if managerID.Valid {
		m := engine.UserID(managerID.String)
		u.ManagerID = &m
	}
	if startDate.Valid {
		d, err := engine.ParseDate(startDate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start date: %w", err)
		}
		u.StartDate = &d
	}
	u.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	u.Approvers, err = loadApprovers(ctx, db, u.ID)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func loadApprovers(ctx context.Context, db dbtx, userID engine.UserID) ([]engine.UserID, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT approver_id FROM user_approvers WHERE user_id = ? ORDER BY approver_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvers: %w", err)
	}
	defer rows.Close()

	var approvers []engine.UserID
	for rows.Next() {
		var a engine.UserID
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		approvers = append(approvers, a)
	}
	return approvers, rows.Err()
}

func (s *Store) SaveUser(ctx context.Context, u engine.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveUser(ctx, s.db, u)
}

func saveUser(ctx context.Context, db dbtx, u engine.User) error {
	var managerID any
	if u.ManagerID != nil {
		managerID = string(*u.ManagerID)
	}
	var startDate any
	if u.StartDate != nil {
		startDate = u.StartDate.String()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, manager_id, start_date, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			role = excluded.role,
			manager_id = excluded.manager_id,
			start_date = excluded.start_date,
			active = excluded.active`,
		u.ID, u.Email, u.Name, u.Role, managerID, startDate, u.Active,
		u.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	// Approver links are replaced wholesale.
	if _, err := db.ExecContext(ctx, `DELETE FROM user_approvers WHERE user_id = ?`, u.ID); err != nil {
		return err
	}
	for _, a := range u.Approvers {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO user_approvers (user_id, approver_id) VALUES (?, ?)`, u.ID, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]engine.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listUsers(ctx, s.db)
}

func listUsers(ctx context.Context, db dbtx) ([]engine.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM users ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	var ids []engine.UserID
	for rows.Next() {
		var id engine.UserID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var users []engine.User
	for _, id := range ids {
		u, err := getUser(ctx, db, id)
		if err != nil {
			return nil, err
		}
		if u != nil {
			users = append(users, *u)
		}
	}
	return users, nil
}

// =============================================================================
// TRANSACTIONS (engine.TxStore)
// =============================================================================

// WithTx executes fn within a database transaction. The transaction is
// rolled back if fn returns an error, committed otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore runs every operation against the open transaction.
type txStore struct {
	tx *sql.Tx
}

var _ engine.Store = (*txStore)(nil)

func (ts *txStore) GetBalance(ctx context.Context, userID engine.UserID, typeID engine.LeaveTypeID, year int) (*engine.Balance, error) {
	return getBalance(ctx, ts.tx, userID, typeID, year)
}

func (ts *txStore) SaveBalance(ctx context.Context, b *engine.Balance) error {
	return saveBalance(ctx, ts.tx, b)
}

func (ts *txStore) ListBalances(ctx context.Context, userID engine.UserID, year int) ([]engine.Balance, error) {
	return listBalances(ctx, ts.tx, userID, year)
}

func (ts *txStore) GetRequest(ctx context.Context, id engine.RequestID) (*engine.Request, error) {
	return getRequest(ctx, ts.tx, id)
}

func (ts *txStore) SaveRequest(ctx context.Context, r *engine.Request) error {
	return saveRequest(ctx, ts.tx, r)
}

func (ts *txStore) ListRequestsByUser(ctx context.Context, userID engine.UserID) ([]engine.Request, error) {
	return listRequestsByUser(ctx, ts.tx, userID)
}

func (ts *txStore) ListRequestsByStatus(ctx context.Context, status engine.RequestStatus) ([]engine.Request, error) {
	return listRequestsByStatus(ctx, ts.tx, status)
}

func (ts *txStore) ListApprovedOverlapping(ctx context.Context, from, to engine.Date) ([]engine.Request, error) {
	return listApprovedOverlapping(ctx, ts.tx, from, to)
}

func (ts *txStore) HolidaysInRange(ctx context.Context, from, to engine.Date) ([]engine.Holiday, error) {
	return holidaysInRange(ctx, ts.tx, from, to)
}

func (ts *txStore) ListHolidays(ctx context.Context, year int) ([]engine.Holiday, error) {
	return listHolidays(ctx, ts.tx, year)
}

func (ts *txStore) SaveHoliday(ctx context.Context, h engine.Holiday) error {
	return saveHoliday(ctx, ts.tx, h)
}

func (ts *txStore) DeleteHoliday(ctx context.Context, id string) error {
	return deleteHoliday(ctx, ts.tx, id)
}

func (ts *txStore) GetLeaveType(ctx context.Context, id engine.LeaveTypeID) (*engine.LeaveType, error) {
	return getLeaveType(ctx, ts.tx, id)
}

func (ts *txStore) ListLeaveTypes(ctx context.Context, includeInactive bool) ([]engine.LeaveType, error) {
	return listLeaveTypes(ctx, ts.tx, includeInactive)
}

func (ts *txStore) SaveLeaveType(ctx context.Context, lt engine.LeaveType) error {
	return saveLeaveType(ctx, ts.tx, lt)
}

func (ts *txStore) GetUser(ctx context.Context, id engine.UserID) (*engine.User, error) {
	return getUser(ctx, ts.tx, id)
}

func (ts *txStore) SaveUser(ctx context.Context, u engine.User) error {
	return saveUser(ctx, ts.tx, u)
}

func (ts *txStore) ListUsers(ctx context.Context) ([]engine.User, error) {
	return listUsers(ctx, ts.tx)
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
