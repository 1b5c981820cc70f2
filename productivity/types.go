// Package productivity implements the labor productivity reconciliation engine.
// It resolves staged spreadsheet rows against the master catalog, commits them
// as authoritative records with their billable quantity, and aggregates the
// committed records into per-person and per-customer summaries.
package productivity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/productivity-engine/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CustomerID int64
type AccountID int64
type TaskID int64
type IndexID int64
type EmployeeID int64
type RecordID int64
type StagingRowID int64

// =============================================================================
// MASTER DATA - Read-only inputs, validated unique by the CRUD layer
// =============================================================================

// Customer is a billed customer. Code is unique; Name is the match key.
type Customer struct {
	ID   CustomerID
	Code string
	Name string
}

// Account belongs to exactly one customer. (CustomerID, Code) is unique;
// Name is the match key within the customer.
type Account struct {
	ID         AccountID
	CustomerID CustomerID
	Code       string
	Name       string
	Active     bool
}

// Task belongs to exactly one account. Both Code and Name are match keys.
type Task struct {
	ID        TaskID
	AccountID AccountID
	Code      string
	Name      string
}

// ConversionIndex turns a raw quantity into a billable one for an
// account/task pair. Several may exist per pair over time.
//
// EffectiveTo is stored and displayed but the resolver does not read it:
// the index with the latest EffectiveFrom always wins.
type ConversionIndex struct {
	ID            IndexID
	AccountID     AccountID
	TaskID        TaskID
	Factor        decimal.Decimal
	Unit          generic.Unit
	EffectiveFrom generic.Date
	EffectiveTo   *generic.Date
}

// RosterEntry is an employee. Role-slot values may reference an employee by
// SecondaryCode (the "masl" code), EmployeeCode, or FullName.
type RosterEntry struct {
	ID            EmployeeID
	EmployeeCode  string
	SecondaryCode string
	FullName      string
	EmployeeType  string
	Position      string
	Active        bool
}

// CatalogSnapshot is the raw master data loaded for one pass.
type CatalogSnapshot struct {
	Customers []Customer
	Accounts  []Account
	Tasks     []Task
	Indices   []ConversionIndex
	Roster    []RosterEntry
}

// =============================================================================
// ROLE SLOTS
// =============================================================================

// Role labels a role slot on a record.
type Role string

const (
	RoleTally     Role = "Tally"
	RoleLiftTruck Role = "LiftTruck"
	RoleWorker    Role = "Worker"
)

const (
	// WorkerSlots is the number of worker columns on a row.
	WorkerSlots = 6
	// RoleSlotCount is tally + lift truck + workers.
	RoleSlotCount = 2 + WorkerSlots
)

// RoleSlots is the fixed slot array: tally, lift truck, worker 1..6.
type RoleSlots [RoleSlotCount]string

// SlotRole returns the role label of slot i.
func SlotRole(i int) Role {
	switch i {
	case 0:
		return RoleTally
	case 1:
		return RoleLiftTruck
	default:
		return RoleWorker
	}
}

// roleRank orders roles for display.
func roleRank(r Role) int {
	switch r {
	case RoleTally:
		return 0
	case RoleLiftTruck:
		return 1
	default:
		return 2
	}
}

// =============================================================================
// STAGING ROW - One unconfirmed spreadsheet line
// =============================================================================

// StagingRow holds the free-text cells of one imported line. Nothing here is
// trusted: dates and quantities are parsed leniently at commit time.
type StagingRow struct {
	ID          StagingRowID
	Date        string
	ContainerNo string
	RawQuantity string
	Tally       string
	LiftTruck   string
	Workers     [WorkerSlots]string
	Task        string
	Account     string
	Customer    string
}

// Slots returns the row's role-slot values in slot order.
func (r StagingRow) Slots() RoleSlots {
	var s RoleSlots
	s[0] = r.Tally
	s[1] = r.LiftTruck
	copy(s[2:], r.Workers[:])
	return s
}

// =============================================================================
// PRODUCTIVITY RECORD - Committed, immutable to the engine
// =============================================================================

// Record is a committed productivity line.
//
// TaskName, AccountName and CustomerName are display names captured at commit
// time, not foreign keys. Renaming master data later never changes history.
type Record struct {
	ID               RecordID
	WorkDate         generic.Date
	RefNo            string
	RawQuantity      decimal.NullDecimal
	Slots            RoleSlots
	TaskName         string
	AccountName      string
	CustomerName     string
	Unit             generic.Unit
	ConversionFactor decimal.Decimal
	BillableQuantity decimal.NullDecimal
	ImportRunID      string
}

// =============================================================================
// IMPORT RUN - Audit of confirm attempts
// =============================================================================

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ImportRun records one confirm attempt.
type ImportRun struct {
	ID          string
	StartedAt   time.Time
	CompletedAt time.Time
	RowCount    int
	Status      RunStatus
	Error       string
}
