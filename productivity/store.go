/*
store.go - Persistence interfaces for the productivity engine

PURPOSE:
  Defines the boundary between the engine and the database. The engine only
  reads master data, owns the staging table, and appends committed records.
  Implementations: store/sqlite (production) and store/memory (tests).

KEY INTERFACES:
  CatalogSource: master data snapshot (customers, accounts, tasks, indices, roster)
  StagingStore:  the single in-flight import batch
  RecordStore:   committed productivity records (append + range read)
  RunLog:        audit of confirm attempts
  SettingsStore: key/value settings (exclusion prefixes)
  UnitOfWork:    all-or-nothing execution of a callback

UNIT OF WORK:
  WithTx runs fn against a Tx view. If fn returns an error every write made
  through the Tx is discarded; if it returns nil they become visible together.
  Confirm uses this so record inserts, the staging clear, and the audit row
  land as one unit.

APPEND-ONLY RECORDS:
  RecordStore has no Update or Delete. Corrections belong to the external
  editing screens, not the engine.

SEE ALSO:
  - import.go: Uses UnitOfWork for Stage and Confirm
  - store/sqlite/sqlite.go: SQLite implementation
  - store/memory/memory.go: In-memory implementation with fault injection
*/
package productivity

import (
	"context"

	"github.com/warp/productivity-engine/generic"
)

// CatalogSource loads the master data for one reconciliation or report pass.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) (CatalogSnapshot, error)
}

// StagingStore holds the single in-flight import batch.
type StagingStore interface {
	// ReplaceStaging discards any staged rows and stores rows in order.
	ReplaceStaging(ctx context.Context, rows []StagingRow) error

	// ListStaging returns staged rows in import order.
	ListStaging(ctx context.Context) ([]StagingRow, error)

	// UpdateStagingRow overwrites one staged row. generic.ErrNotFound if absent.
	UpdateStagingRow(ctx context.Context, row StagingRow) error

	// DeleteStagingRow removes one staged row. generic.ErrNotFound if absent.
	DeleteStagingRow(ctx context.Context, id StagingRowID) error

	// ClearStaging removes every staged row.
	ClearStaging(ctx context.Context) error
}

// RecordStore persists committed records. Append-only.
type RecordStore interface {
	AppendRecords(ctx context.Context, records []Record) error

	// ListRecords returns records whose work date is inside r. Records
	// without a work date are only returned for a fully open range.
	ListRecords(ctx context.Context, r generic.DateRange) ([]Record, error)
}

// RunLog stores import run audit rows.
type RunLog interface {
	SaveImportRun(ctx context.Context, run ImportRun) error
	ListImportRuns(ctx context.Context, limit int) ([]ImportRun, error)
}

// SettingsStore is a small key/value table.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Tx is everything a unit of work may touch.
type Tx interface {
	CatalogSource
	StagingStore
	RecordStore
	RunLog
	SettingsStore
}

// UnitOfWork executes fn atomically.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Store is a Tx usable outside a unit of work plus the ability to open one.
type Store interface {
	Tx
	UnitOfWork
}
