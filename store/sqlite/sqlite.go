/*
Package sqlite provides a SQLite-backed implementation of vacation.Store.

PURPOSE:
  Single source of truth for vacation records. Implements vacation.TxStore
  so the reconciliation engine can run lookup, delete and insert in one
  database transaction.

KEY TABLES:
  vacations: One row per stored vacation window

INDEXES:
  - idx_vacations_employee:       Replace path (delete by employee_id)
  - idx_vacations_employee_start: Dedup path (employee_id, start_date)
  - idx_vacations_start:          Calendar listing order

IDENTIFIERS:
  Record ids are UUID v4 strings generated on insert. created_at is stored
  as fixed-width UTC text so that lexical order matches time order.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety around the shared *sql.DB. Inside
  WithTx the write lock is held for the whole transaction and the tx-bound
  store does not lock again.

USAGE:
  store, err := sqlite.New("./data/vacations.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := vacation.NewEngine(store)

SEE ALSO:
  - vacation/store.go: Interface definitions
  - vacation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/vacation-calendar/vacation"
)

// Store implements vacation.TxStore using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// Compile-time check that Store implements vacation.TxStore
var _ vacation.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	store := NewWithDB(db)
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// NewWithDB wraps an already opened database. The schema is not migrated.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vacations (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		message_text TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vacations_employee
		ON vacations(employee_id);
	CREATE INDEX IF NOT EXISTS idx_vacations_employee_start
		ON vacations(employee_id, start_date);
	CREATE INDEX IF NOT EXISTS idx_vacations_start
		ON vacations(start_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// createdAtLayout is fixed width, unlike time.RFC3339Nano.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectColumns = `SELECT id, employee_id, employee_name, start_date, end_date, message_text, created_at FROM vacations`

// =============================================================================
// VACATION STORE (vacation.Store interface)
// =============================================================================

// FindByEmployee returns the oldest record of the employee, or nil.
func (s *Store) FindByEmployee(ctx context.Context, employeeID string) (*vacation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByEmployee(ctx, s.db, employeeID)
}

// FindByEmployeeAndStart returns the record with both keys, or nil.
func (s *Store) FindByEmployeeAndStart(ctx context.Context, employeeID, startDate string) (*vacation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByEmployeeAndStart(ctx, s.db, employeeID, startDate)
}

// Insert stores a record and assigns its id and creation time.
func (s *Store) Insert(ctx context.Context, rec vacation.Record) (vacation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insert(ctx, s.db, s.stamp(rec))
}

// DeleteByEmployee removes all records of the employee and returns them.
func (s *Store) DeleteByEmployee(ctx context.Context, employeeID string) ([]vacation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteByEmployee(ctx, s.db, employeeID)
}

// DeleteByID removes one record.
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteByID(ctx, s.db, id)
}

// List returns all records ordered by start date.
func (s *Store) List(ctx context.Context) ([]vacation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return list(ctx, s.db)
}

// Reset removes all records. Used by demo seeding.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM vacations")
	return err
}

func (s *Store) stamp(rec vacation.Record) vacation.Record {
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now().UTC()
	return rec
}

// =============================================================================
// TRANSACTIONAL STORE (vacation.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store vacation.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) FindByEmployee(ctx context.Context, employeeID string) (*vacation.Record, error) {
	return findByEmployee(ctx, ts.tx, employeeID)
}

func (ts *txStore) FindByEmployeeAndStart(ctx context.Context, employeeID, startDate string) (*vacation.Record, error) {
	return findByEmployeeAndStart(ctx, ts.tx, employeeID, startDate)
}

func (ts *txStore) Insert(ctx context.Context, rec vacation.Record) (vacation.Record, error) {
	return insert(ctx, ts.tx, ts.parent.stamp(rec))
}

func (ts *txStore) DeleteByEmployee(ctx context.Context, employeeID string) ([]vacation.Record, error) {
	return deleteByEmployee(ctx, ts.tx, employeeID)
}

func (ts *txStore) DeleteByID(ctx context.Context, id string) error {
	return deleteByID(ctx, ts.tx, id)
}

func (ts *txStore) List(ctx context.Context) ([]vacation.Record, error) {
	return list(ctx, ts.tx)
}

// =============================================================================
// QUERIES
// =============================================================================

func findByEmployee(ctx context.Context, q querier, employeeID string) (*vacation.Record, error) {
	row := q.QueryRowContext(ctx,
		selectColumns+` WHERE employee_id = ? ORDER BY created_at ASC LIMIT 1`,
		employeeID,
	)
	return scanOne(row)
}

func findByEmployeeAndStart(ctx context.Context, q querier, employeeID, startDate string) (*vacation.Record, error) {
	row := q.QueryRowContext(ctx,
		selectColumns+` WHERE employee_id = ? AND start_date = ? ORDER BY created_at ASC LIMIT 1`,
		employeeID, startDate,
	)
	return scanOne(row)
}

func insert(ctx context.Context, q querier, rec vacation.Record) (vacation.Record, error) {
	query := `
		INSERT INTO vacations
		(id, employee_id, employee_name, start_date, end_date, message_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		rec.ID,
		rec.EmployeeID,
		rec.EmployeeName,
		rec.StartDate,
		rec.EndDate,
		nullString(rec.MessageText),
		rec.CreatedAt.Format(createdAtLayout),
	)
	if err != nil {
		return vacation.Record{}, fmt.Errorf("failed to insert vacation: %w", err)
	}
	return rec, nil
}

func deleteByEmployee(ctx context.Context, q querier, employeeID string) ([]vacation.Record, error) {
	removed, err := queryRecords(ctx, q,
		selectColumns+` WHERE employee_id = ? ORDER BY created_at ASC`,
		employeeID,
	)
	if err != nil {
		return nil, err
	}
	if len(removed) == 0 {
		return nil, nil
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM vacations WHERE employee_id = ?", employeeID); err != nil {
		return nil, fmt.Errorf("failed to delete vacations: %w", err)
	}
	return removed, nil
}

func deleteByID(ctx context.Context, q querier, id string) error {
	res, err := q.ExecContext(ctx, "DELETE FROM vacations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete vacation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete vacation: %w", err)
	}
	if n == 0 {
		return vacation.ErrNotFound
	}
	return nil
}

func list(ctx context.Context, q querier) ([]vacation.Record, error) {
	return queryRecords(ctx, q, selectColumns+` ORDER BY start_date ASC, created_at ASC`)
}

func queryRecords(ctx context.Context, q querier, query string, args ...any) ([]vacation.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vacations: %w", err)
	}
	defer rows.Close()

	var records []vacation.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (vacation.Record, error) {
	var (
		rec         vacation.Record
		messageText sql.NullString
		createdAt   string
	)

	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.EmployeeName,
		&rec.StartDate, &rec.EndDate, &messageText, &createdAt,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan vacation: %w", err)
	}

	rec.MessageText = messageText.String
	rec.CreatedAt, _ = time.Parse(createdAtLayout, createdAt)
	return rec, nil
}

func scanOne(row *sql.Row) (*vacation.Record, error) {
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
