package productivity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
)

// =============================================================================
// TEST CATALOG
// =============================================================================
//
//   ABC (1)
//     Import (10): Unloading/UNLOAD (100), Loading/LOAD (101)
//     Export (11): no tasks
//   Delta Logistics (2)
//     Import (20): Unloading/UNLOAD (200)
//
//   Indices:
//     10/100  1.0 CBM from 2024-01-01 to 2024-05-31
//     10/100  1.2 CBM from 2024-06-01
//     20/200  0.5 TEU from 2024-01-01
//
//   Roster:
//     E001 / M01 / Nguyen Van A  Time
//     E002 / M02 / Tran Thi B    Shared
//     E003 / M03 / Le Van C      Time  (never works)

func testSnapshot() productivity.CatalogSnapshot {
	may31 := generic.MustParseDate("2024-05-31")
	return productivity.CatalogSnapshot{
		Customers: []productivity.Customer{
			{ID: 1, Code: "C1", Name: "abc"},
			{ID: 2, Code: "C2", Name: "Delta Logistics"},
		},
		Accounts: []productivity.Account{
			{ID: 10, CustomerID: 1, Code: "IMP", Name: "Import", Active: true},
			{ID: 11, CustomerID: 1, Code: "EXP", Name: "Export", Active: true},
			{ID: 20, CustomerID: 2, Code: "IMP", Name: "Import", Active: true},
		},
		Tasks: []productivity.Task{
			{ID: 100, AccountID: 10, Code: "UNLOAD", Name: "Unloading"},
			{ID: 101, AccountID: 10, Code: "LOAD", Name: "Loading"},
			{ID: 200, AccountID: 20, Code: "UNLOAD", Name: "Unloading"},
		},
		Indices: []productivity.ConversionIndex{
			{ID: 2, AccountID: 10, TaskID: 100, Factor: dec("1.2"), Unit: "CBM", EffectiveFrom: generic.MustParseDate("2024-06-01")},
			{ID: 1, AccountID: 10, TaskID: 100, Factor: dec("1.0"), Unit: "CBM", EffectiveFrom: generic.MustParseDate("2024-01-01"), EffectiveTo: &may31},
			{ID: 3, AccountID: 20, TaskID: 200, Factor: dec("0.5"), Unit: "TEU", EffectiveFrom: generic.MustParseDate("2024-01-01")},
		},
		Roster: []productivity.RosterEntry{
			{ID: 1, EmployeeCode: "E001", SecondaryCode: "M01", FullName: "Nguyen Van A", EmployeeType: "Time", Position: "Worker", Active: true},
			{ID: 2, EmployeeCode: "E002", SecondaryCode: "M02", FullName: "Tran Thi B", EmployeeType: "Shared", Position: "Driver", Active: true},
			{ID: 3, EmployeeCode: "E003", SecondaryCode: "M03", FullName: "Le Van C", EmployeeType: "Time", Position: "Worker", Active: true},
		},
	}
}

func testCatalog() *productivity.Catalog {
	return productivity.NewCatalog(testSnapshot())
}

var testCohorts = []productivity.Cohort{
	{Name: "Time rate", EmployeeTypes: []string{"Time"}},
	{Name: "Shared rate", EmployeeTypes: []string{"Shared"}},
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func qty(s string) decimal.NullDecimal {
	return generic.NewQuantity(dec(s))
}

func stagedRow(customer, account, task, raw string, slots ...string) productivity.StagingRow {
	row := productivity.StagingRow{
		Date:        "2024-07-01",
		ContainerNo: "CONT-1",
		RawQuantity: raw,
		Task:        task,
		Account:     account,
		Customer:    customer,
	}
	for i, s := range slots {
		switch i {
		case 0:
			row.Tally = s
		case 1:
			row.LiftTruck = s
		default:
			row.Workers[i-2] = s
		}
	}
	return row
}

func record(date, customer, account string, billable, raw string, slots ...string) productivity.Record {
	rec := productivity.Record{
		WorkDate:         generic.MustParseDate(date),
		CustomerName:     customer,
		AccountName:      account,
		Unit:             generic.DefaultUnit,
		ConversionFactor: generic.One,
	}
	if billable != "" {
		rec.BillableQuantity = qty(billable)
	}
	if raw != "" {
		rec.RawQuantity = qty(raw)
	}
	copy(rec.Slots[:], slots)
	return rec
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}
