/*
Package sqlite provides a SQLite-backed implementation of productivity.Store.

PURPOSE:
  Persists master data, the staging batch, committed productivity records,
  settings and the import audit log. The engine only reads master data; the
  Save* helpers exist for seeding and for the external CRUD screens.

INTERFACES IMPLEMENTED:
  productivity.CatalogSource: customers, accounts, tasks, indices, roster
  productivity.StagingStore:  labor_productivity_temp
  productivity.RecordStore:   labor_productivity (append-only)
  productivity.RunLog:        import_runs
  productivity.SettingsStore: system_settings
  productivity.UnitOfWork:    WithTx over one *sql.Tx

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE is ever issued against labor_productivity by this
  package, except Reset which wipes the whole database for demos.

KEY TABLES:
  customers, customer_accounts, account_tasks: the catalog
  account_conversion_index: factors per (account, task) over time
  employees:                roster
  labor_productivity_temp:  staging (one batch)
  labor_productivity:       committed records
  system_settings:          key/value settings
  import_runs:              confirm audit

STORAGE FORMATS:
  Decimals are TEXT (exact round-trip through shopspring/decimal).
  Dates are YYYY-MM-DD TEXT, so range filters are plain string compares.
  A record without a parseable date stores NULL work_date and only shows
  up in fully open ranges.

CONCURRENCY:
  sync.RWMutex serializes writers. The pool is limited to one connection so
  ":memory:" databases are shared by every call.

USAGE:
  store, err := sqlite.New("./data/productivity.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  importer := productivity.NewImporter(store, nil, logger)

SEE ALSO:
  - productivity/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
)

// Store implements productivity.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

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
	-- Catalog
	CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS customer_accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL REFERENCES customers(id),
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		UNIQUE(customer_id, code)
	);

	CREATE TABLE IF NOT EXISTS account_tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES customer_accounts(id),
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		UNIQUE(account_id, code)
	);

	-- Conversion factors, several per (account, task) over time
	CREATE TABLE IF NOT EXISTS account_conversion_index (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES customer_accounts(id),
		task_id INTEGER NOT NULL REFERENCES account_tasks(id),
		factor TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT 'CBM',
		effective_from TEXT NOT NULL,
		effective_to TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_conversion_pair
		ON account_conversion_index(account_id, task_id, effective_from);

	-- Roster
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_code TEXT NOT NULL UNIQUE,
		masl TEXT,
		full_name TEXT NOT NULL,
		employee_type TEXT,
		position TEXT,
		active INTEGER NOT NULL DEFAULT 1
	);

	-- Staging (one in-flight batch)
	CREATE TABLE IF NOT EXISTS labor_productivity_temp (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT,
		container_no TEXT,
		raw_quantity TEXT,
		tally TEXT,
		lift_truck TEXT,
		worker_1 TEXT, worker_2 TEXT, worker_3 TEXT,
		worker_4 TEXT, worker_5 TEXT, worker_6 TEXT,
		task TEXT,
		account TEXT,
		customer TEXT
	);

	-- Committed records (append-only)
	CREATE TABLE IF NOT EXISTS labor_productivity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		work_date TEXT,
		ref_no TEXT,
		raw_quantity TEXT,
		tally_id TEXT,
		lift_truck_id TEXT,
		worker_1_id TEXT, worker_2_id TEXT, worker_3_id TEXT,
		worker_4_id TEXT, worker_5_id TEXT, worker_6_id TEXT,
		task_name TEXT,
		account_name TEXT,
		customer_name TEXT,
		unit TEXT NOT NULL,
		conversion_factor TEXT NOT NULL,
		billable_quantity TEXT,
		import_run_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_productivity_work_date
		ON labor_productivity(work_date);

	CREATE TABLE IF NOT EXISTS system_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS import_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		row_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_import_runs_started
		ON import_runs(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PRODUCTIVITY.STORE - Locking wrappers over the querier functions
// =============================================================================

func (s *Store) LoadCatalog(ctx context.Context) (productivity.CatalogSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadCatalog(ctx, s.db)
}

func (s *Store) ReplaceStaging(ctx context.Context, rows []productivity.StagingRow) error {
	return s.WithTx(ctx, func(tx productivity.Tx) error {
		return tx.ReplaceStaging(ctx, rows)
	})
}

func (s *Store) ListStaging(ctx context.Context) ([]productivity.StagingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listStaging(ctx, s.db)
}

func (s *Store) UpdateStagingRow(ctx context.Context, row productivity.StagingRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateStagingRow(ctx, s.db, row)
}

func (s *Store) DeleteStagingRow(ctx context.Context, id productivity.StagingRowID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteStagingRow(ctx, s.db, id)
}

func (s *Store) ClearStaging(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM labor_productivity_temp`)
	return err
}

func (s *Store) AppendRecords(ctx context.Context, records []productivity.Record) error {
	return s.WithTx(ctx, func(tx productivity.Tx) error {
		return tx.AppendRecords(ctx, records)
	})
}

func (s *Store) ListRecords(ctx context.Context, r generic.DateRange) ([]productivity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRecords(ctx, s.db, r)
}

func (s *Store) SaveImportRun(ctx context.Context, run productivity.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveImportRun(ctx, s.db, run)
}

func (s *Store) ListImportRuns(ctx context.Context, limit int) ([]productivity.ImportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listImportRuns(ctx, s.db, limit)
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSetting(ctx, s.db, key)
}

func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putSetting(ctx, s.db, key, value)
}

// =============================================================================
// TRANSACTION SUPPORT
// =============================================================================

// WithTx executes a function within a database transaction. The transaction
// commits only if fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx productivity.Tx) error) error {
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

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) LoadCatalog(ctx context.Context) (productivity.CatalogSnapshot, error) {
	return loadCatalog(ctx, ts.tx)
}

func (ts *txStore) ReplaceStaging(ctx context.Context, rows []productivity.StagingRow) error {
	if _, err := ts.tx.ExecContext(ctx, `DELETE FROM labor_productivity_temp`); err != nil {
		return err
	}
	for _, row := range rows {
		if err := insertStagingRow(ctx, ts.tx, row); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) ListStaging(ctx context.Context) ([]productivity.StagingRow, error) {
	return listStaging(ctx, ts.tx)
}

func (ts *txStore) UpdateStagingRow(ctx context.Context, row productivity.StagingRow) error {
	return updateStagingRow(ctx, ts.tx, row)
}

func (ts *txStore) DeleteStagingRow(ctx context.Context, id productivity.StagingRowID) error {
	return deleteStagingRow(ctx, ts.tx, id)
}

func (ts *txStore) ClearStaging(ctx context.Context) error {
	_, err := ts.tx.ExecContext(ctx, `DELETE FROM labor_productivity_temp`)
	return err
}

func (ts *txStore) AppendRecords(ctx context.Context, records []productivity.Record) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		if err := insertRecord(ctx, ts.tx, rec, now); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) ListRecords(ctx context.Context, r generic.DateRange) ([]productivity.Record, error) {
	return listRecords(ctx, ts.tx, r)
}

func (ts *txStore) SaveImportRun(ctx context.Context, run productivity.ImportRun) error {
	return saveImportRun(ctx, ts.tx, run)
}

func (ts *txStore) ListImportRuns(ctx context.Context, limit int) ([]productivity.ImportRun, error) {
	return listImportRuns(ctx, ts.tx, limit)
}

func (ts *txStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	return getSetting(ctx, ts.tx, key)
}

func (ts *txStore) PutSetting(ctx context.Context, key, value string) error {
	return putSetting(ctx, ts.tx, key, value)
}

// =============================================================================
// CATALOG
// =============================================================================

func loadCatalog(ctx context.Context, q querier) (productivity.CatalogSnapshot, error) {
	var snap productivity.CatalogSnapshot

	rows, err := q.QueryContext(ctx, `SELECT id, code, name FROM customers ORDER BY id`)
	if err != nil {
		return snap, fmt.Errorf("query customers: %w", err)
	}
	for rows.Next() {
		var c productivity.Customer
		if err := rows.Scan(&c.ID, &c.Code, &c.Name); err != nil {
			rows.Close()
			return snap, err
		}
		snap.Customers = append(snap.Customers, c)
	}
	rows.Close()

	rows, err = q.QueryContext(ctx, `SELECT id, customer_id, code, name, active FROM customer_accounts ORDER BY id`)
	if err != nil {
		return snap, fmt.Errorf("query accounts: %w", err)
	}
	for rows.Next() {
		var a productivity.Account
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.Code, &a.Name, &a.Active); err != nil {
			rows.Close()
			return snap, err
		}
		snap.Accounts = append(snap.Accounts, a)
	}
	rows.Close()

	rows, err = q.QueryContext(ctx, `SELECT id, account_id, code, name FROM account_tasks ORDER BY id`)
	if err != nil {
		return snap, fmt.Errorf("query tasks: %w", err)
	}
	for rows.Next() {
		var t productivity.Task
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Code, &t.Name); err != nil {
			rows.Close()
			return snap, err
		}
		snap.Tasks = append(snap.Tasks, t)
	}
	rows.Close()

	rows, err = q.QueryContext(ctx, `
		SELECT id, account_id, task_id, factor, unit, effective_from, effective_to
		FROM account_conversion_index ORDER BY effective_from, id`)
	if err != nil {
		return snap, fmt.Errorf("query conversion indices: %w", err)
	}
	for rows.Next() {
		var idx productivity.ConversionIndex
		var unit, from string
		var to sql.NullString
		if err := rows.Scan(&idx.ID, &idx.AccountID, &idx.TaskID, &idx.Factor, &unit, &from, &to); err != nil {
			rows.Close()
			return snap, err
		}
		idx.Unit = generic.Unit(unit)
		idx.EffectiveFrom, _ = generic.ParseDate(from)
		if d, ok := generic.ParseDate(to.String); to.Valid && ok {
			idx.EffectiveTo = &d
		}
		snap.Indices = append(snap.Indices, idx)
	}
	rows.Close()

	rows, err = q.QueryContext(ctx, `
		SELECT id, employee_code, masl, full_name, employee_type, position, active
		FROM employees ORDER BY id`)
	if err != nil {
		return snap, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e productivity.RosterEntry
		var masl, empType, position sql.NullString
		if err := rows.Scan(&e.ID, &e.EmployeeCode, &masl, &e.FullName, &empType, &position, &e.Active); err != nil {
			return snap, err
		}
		e.SecondaryCode = masl.String
		e.EmployeeType = empType.String
		e.Position = position.String
		snap.Roster = append(snap.Roster, e)
	}
	return snap, rows.Err()
}

// SaveCustomer inserts or replaces a customer. A zero ID is assigned.
func (s *Store) SaveCustomer(ctx context.Context, c productivity.Customer) (productivity.CustomerID, error) {
	id, err := s.upsert(ctx, int64(c.ID),
		`INSERT INTO customers (code, name) VALUES (?, ?)`,
		`INSERT OR REPLACE INTO customers (id, code, name) VALUES (?, ?, ?)`,
		c.Code, c.Name)
	return productivity.CustomerID(id), err
}

// SaveAccount inserts or replaces an account. A zero ID is assigned.
func (s *Store) SaveAccount(ctx context.Context, a productivity.Account) (productivity.AccountID, error) {
	id, err := s.upsert(ctx, int64(a.ID),
		`INSERT INTO customer_accounts (customer_id, code, name, active) VALUES (?, ?, ?, ?)`,
		`INSERT OR REPLACE INTO customer_accounts (id, customer_id, code, name, active) VALUES (?, ?, ?, ?, ?)`,
		a.CustomerID, a.Code, a.Name, a.Active)
	return productivity.AccountID(id), err
}

// SaveTask inserts or replaces a task. A zero ID is assigned.
func (s *Store) SaveTask(ctx context.Context, t productivity.Task) (productivity.TaskID, error) {
	id, err := s.upsert(ctx, int64(t.ID),
		`INSERT INTO account_tasks (account_id, code, name) VALUES (?, ?, ?)`,
		`INSERT OR REPLACE INTO account_tasks (id, account_id, code, name) VALUES (?, ?, ?, ?)`,
		t.AccountID, t.Code, t.Name)
	return productivity.TaskID(id), err
}

// SaveConversionIndex inserts or replaces an index. A zero ID is assigned.
func (s *Store) SaveConversionIndex(ctx context.Context, idx productivity.ConversionIndex) (productivity.IndexID, error) {
	unit := idx.Unit
	if unit == "" {
		unit = generic.DefaultUnit
	}
	var to any
	if idx.EffectiveTo != nil {
		to = idx.EffectiveTo.String()
	}
	id, err := s.upsert(ctx, int64(idx.ID),
		`INSERT INTO account_conversion_index (account_id, task_id, factor, unit, effective_from, effective_to) VALUES (?, ?, ?, ?, ?, ?)`,
		`INSERT OR REPLACE INTO account_conversion_index (id, account_id, task_id, factor, unit, effective_from, effective_to) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		idx.AccountID, idx.TaskID, idx.Factor.Round(generic.FactorScale).String(), string(unit), idx.EffectiveFrom.String(), to)
	return productivity.IndexID(id), err
}

// SaveEmployee inserts or replaces a roster entry. A zero ID is assigned.
func (s *Store) SaveEmployee(ctx context.Context, e productivity.RosterEntry) (productivity.EmployeeID, error) {
	id, err := s.upsert(ctx, int64(e.ID),
		`INSERT INTO employees (employee_code, masl, full_name, employee_type, position, active) VALUES (?, ?, ?, ?, ?, ?)`,
		`INSERT OR REPLACE INTO employees (id, employee_code, masl, full_name, employee_type, position, active) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.EmployeeCode, nullString(e.SecondaryCode), e.FullName, nullString(e.EmployeeType), nullString(e.Position), e.Active)
	return productivity.EmployeeID(id), err
}

// upsert runs insertSQL for a new row or replaceSQL (id first) for a given ID.
func (s *Store) upsert(ctx context.Context, id int64, insertSQL, replaceSQL string, args ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != 0 {
		_, err := s.db.ExecContext(ctx, replaceSQL, append([]any{id}, args...)...)
		return id, err
	}
	res, err := s.db.ExecContext(ctx, insertSQL, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// =============================================================================
// STAGING
// =============================================================================

const stagingColumns = `id, date, container_no, raw_quantity, tally, lift_truck,
	worker_1, worker_2, worker_3, worker_4, worker_5, worker_6, task, account, customer`

func insertStagingRow(ctx context.Context, q querier, row productivity.StagingRow) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO labor_productivity_temp (date, container_no, raw_quantity, tally, lift_truck,
			worker_1, worker_2, worker_3, worker_4, worker_5, worker_6, task, account, customer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stagingArgs(row)...)
	return err
}

func updateStagingRow(ctx context.Context, q querier, row productivity.StagingRow) error {
	res, err := q.ExecContext(ctx, `
		UPDATE labor_productivity_temp SET date = ?, container_no = ?, raw_quantity = ?, tally = ?, lift_truck = ?,
			worker_1 = ?, worker_2 = ?, worker_3 = ?, worker_4 = ?, worker_5 = ?, worker_6 = ?,
			task = ?, account = ?, customer = ?
		WHERE id = ?`,
		append(stagingArgs(row), row.ID)...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func deleteStagingRow(ctx context.Context, q querier, id productivity.StagingRowID) error {
	res, err := q.ExecContext(ctx, `DELETE FROM labor_productivity_temp WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func stagingArgs(row productivity.StagingRow) []any {
	args := []any{row.Date, row.ContainerNo, row.RawQuantity, row.Tally, row.LiftTruck}
	for _, w := range row.Workers {
		args = append(args, w)
	}
	return append(args, row.Task, row.Account, row.Customer)
}

func listStaging(ctx context.Context, q querier) ([]productivity.StagingRow, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+stagingColumns+` FROM labor_productivity_temp ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []productivity.StagingRow
	for rows.Next() {
		var r productivity.StagingRow
		var cells [14]sql.NullString
		dest := []any{&r.ID}
		for i := range cells {
			dest = append(dest, &cells[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		r.Date, r.ContainerNo, r.RawQuantity = cells[0].String, cells[1].String, cells[2].String
		r.Tally, r.LiftTruck = cells[3].String, cells[4].String
		for i := range r.Workers {
			r.Workers[i] = cells[5+i].String
		}
		r.Task, r.Account, r.Customer = cells[11].String, cells[12].String, cells[13].String
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// RECORDS
// =============================================================================

const recordColumns = `id, work_date, ref_no, raw_quantity,
	tally_id, lift_truck_id, worker_1_id, worker_2_id, worker_3_id, worker_4_id, worker_5_id, worker_6_id,
	task_name, account_name, customer_name, unit, conversion_factor, billable_quantity, import_run_id`

func insertRecord(ctx context.Context, q querier, rec productivity.Record, createdAt string) error {
	args := []any{dateValue(rec.WorkDate), rec.RefNo, rec.RawQuantity}
	for _, s := range rec.Slots {
		args = append(args, nullString(s))
	}
	args = append(args,
		rec.TaskName, rec.AccountName, rec.CustomerName,
		string(rec.Unit), rec.ConversionFactor.String(), rec.BillableQuantity,
		nullString(rec.ImportRunID), createdAt)

	_, err := q.ExecContext(ctx, `
		INSERT INTO labor_productivity (work_date, ref_no, raw_quantity,
			tally_id, lift_truck_id, worker_1_id, worker_2_id, worker_3_id, worker_4_id, worker_5_id, worker_6_id,
			task_name, account_name, customer_name, unit, conversion_factor, billable_quantity, import_run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	return err
}

func listRecords(ctx context.Context, q querier, r generic.DateRange) ([]productivity.Record, error) {
	var where []string
	var args []any
	if r.From != nil {
		where = append(where, "work_date >= ?")
		args = append(args, r.From.String())
	}
	if r.To != nil {
		where = append(where, "work_date <= ?")
		args = append(args, r.To.String())
	}
	query := `SELECT ` + recordColumns + ` FROM labor_productivity`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []productivity.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (productivity.Record, error) {
	var rec productivity.Record
	var workDate, refNo, task, account, customer, runID sql.NullString
	var unit string
	var slots [productivity.RoleSlotCount]sql.NullString

	dest := []any{&rec.ID, &workDate, &refNo, &rec.RawQuantity}
	for i := range slots {
		dest = append(dest, &slots[i])
	}
	dest = append(dest, &task, &account, &customer, &unit, &rec.ConversionFactor, &rec.BillableQuantity, &runID)
	if err := rows.Scan(dest...); err != nil {
		return rec, err
	}

	if d, ok := generic.ParseDate(workDate.String); workDate.Valid && ok {
		rec.WorkDate = d
	}
	rec.RefNo = refNo.String
	for i := range slots {
		rec.Slots[i] = slots[i].String
	}
	rec.TaskName, rec.AccountName, rec.CustomerName = task.String, account.String, customer.String
	rec.Unit = generic.Unit(unit)
	rec.ImportRunID = runID.String
	return rec, nil
}

// =============================================================================
// IMPORT RUNS
// =============================================================================

// runTimeLayout keeps a fixed-width fraction so timestamps sort as text.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func saveImportRun(ctx context.Context, q querier, run productivity.ImportRun) error {
	var completed any
	if !run.CompletedAt.IsZero() {
		completed = run.CompletedAt.UTC().Format(runTimeLayout)
	}
	_, err := q.ExecContext(ctx, `
		INSERT OR REPLACE INTO import_runs (id, started_at, completed_at, row_count, status, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(runTimeLayout), completed,
		run.RowCount, string(run.Status), nullString(run.Error))
	return err
}

func listImportRuns(ctx context.Context, q querier, limit int) ([]productivity.ImportRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, started_at, completed_at, row_count, status, error
		FROM import_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []productivity.ImportRun
	for rows.Next() {
		var run productivity.ImportRun
		var started, status string
		var completed, errText sql.NullString
		if err := rows.Scan(&run.ID, &started, &completed, &run.RowCount, &status, &errText); err != nil {
			return nil, err
		}
		run.StartedAt, _ = time.Parse(runTimeLayout, started)
		if completed.Valid {
			run.CompletedAt, _ = time.Parse(runTimeLayout, completed.String)
		}
		run.Status = productivity.RunStatus(status)
		run.Error = errText.String
		out = append(out, run)
	}
	return out, rows.Err()
}

// =============================================================================
// SETTINGS
// =============================================================================

func getSetting(ctx context.Context, q querier, key string) (string, bool, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT value FROM system_settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func putSetting(ctx context.Context, q querier, key, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO system_settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset wipes every table. Used by the demo scenario loader.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"labor_productivity", "labor_productivity_temp", "import_runs", "system_settings",
		"account_conversion_index", "account_tasks", "customer_accounts", "customers", "employees",
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("reset %s: %w", t, err)
		}
	}
	return nil
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

func dateValue(d generic.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return generic.ErrNotFound
	}
	return nil
}

var _ productivity.Store = (*Store)(nil)
