package productivity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
)

// =============================================================================
// TEST DATA
// =============================================================================

// julyRecords:
//
//	07-01 abc / Import          billable 12 raw 10  M01 M02 E001 TB001 m01
//	07-05 Delta Logistics/Import billable 2 raw 4   Ghost - M01
//	08-01 (no customer) Export  billable 5 raw 5    M02          (out of range)
//	07-03 (no customer) Export  billable - raw 3    M02
func julyRecords() []productivity.Record {
	r1 := record("2024-07-01", "abc", "Import", "12", "10", "M01", "M02", "E001", "TB001", "m01")
	r1.ID = 1
	r2 := record("2024-07-05", "Delta Logistics", "Import", "2", "4", "Ghost", "", "M01")
	r2.ID = 2
	r3 := record("2024-08-01", "", "Export", "5", "5", "M02")
	r3.ID = 3
	r4 := record("2024-07-03", " ", "Export", "", "3", "M02")
	r4.ID = 4
	return []productivity.Record{r1, r2, r3, r4}
}

func julyConfig() productivity.AggregateConfig {
	return productivity.AggregateConfig{
		Range:             generic.NewDateRange(generic.MustParseDate("2024-07-01"), generic.MustParseDate("2024-07-31")),
		ExclusionPrefixes: []string{"TB", "HB"},
		Cohorts:           testCohorts,
		TopN:              2,
	}
}

type staffKey struct {
	id    string
	role  productivity.Role
	total string
	count int
}

func staffKeys(staff []productivity.StaffBucket) []staffKey {
	out := make([]staffKey, 0, len(staff))
	for _, b := range staff {
		out = append(out, staffKey{b.Identifier, b.Role, b.Total.String(), b.Count})
	}
	return out
}

// =============================================================================
// STAFF BUCKETS
// =============================================================================

func TestAggregate_StaffBuckets(t *testing.T) {
	// GIVEN: July records with duplicates, exclusions and an unknown code
	// WHEN: Aggregating July
	// THEN: One bucket per (identifier, role), sorted by identifier
	agg := productivity.Aggregate(julyRecords(), testCatalog(), julyConfig())

	assert.Equal(t, []staffKey{
		{"E001", productivity.RoleWorker, "12", 1},
		{"Ghost", productivity.RoleTally, "2", 1},
		{"M01", productivity.RoleTally, "12", 1},
		{"M01", productivity.RoleWorker, "2", 1},
		{"M02", productivity.RoleTally, "0", 1},
		{"M02", productivity.RoleLiftTruck, "12", 1},
	}, staffKeys(agg.Staff))
}

func TestAggregate_ExcludedPrefixContributesNowhere(t *testing.T) {
	// GIVEN: Prefixes {TB, HB} and slot value "tb001"
	// THEN: No bucket mentions it
	rec := record("2024-07-01", "abc", "Import", "9", "9", "tb001", "HB-TEMP", "M01")
	agg := productivity.Aggregate([]productivity.Record{rec}, testCatalog(), julyConfig())

	require.Len(t, agg.Staff, 1)
	assert.Equal(t, "M01", agg.Staff[0].Identifier)
}

func TestAggregate_DuplicateSlotsCollapse(t *testing.T) {
	// GIVEN: The same identifier as tally and worker 1 on one record
	// THEN: It counts once, under the first role
	rec := record("2024-07-01", "abc", "Import", "5", "5", "M01", "", " m01 ")
	agg := productivity.Aggregate([]productivity.Record{rec}, testCatalog(), julyConfig())

	require.Len(t, agg.Staff, 1)
	assert.Equal(t, productivity.RoleTally, agg.Staff[0].Role)
	assert.Equal(t, 1, agg.Staff[0].Count)
	assertDecimal(t, "5", agg.Staff[0].Total)
}

func TestAggregate_NotInRosterRemark(t *testing.T) {
	agg := productivity.Aggregate(julyRecords(), testCatalog(), julyConfig())

	for _, b := range agg.Staff {
		if b.Identifier == "Ghost" {
			assert.Equal(t, productivity.RemarkNotInRoster, b.Remark)
			assert.Empty(t, b.EmployeeCode)
		} else {
			assert.Empty(t, b.Remark, b.Identifier)
			assert.NotEmpty(t, b.EmployeeCode, b.Identifier)
		}
	}
}

func TestAggregate_TopN(t *testing.T) {
	// GIVEN: Three buckets tied at 12
	// THEN: The first two to appear win
	agg := productivity.Aggregate(julyRecords(), testCatalog(), julyConfig())

	assert.Equal(t, []staffKey{
		{"M01", productivity.RoleTally, "12", 1},
		{"M02", productivity.RoleLiftTruck, "12", 1},
	}, staffKeys(agg.Top))

	cfg := julyConfig()
	cfg.TopN = 0
	assert.Empty(t, productivity.Aggregate(julyRecords(), testCatalog(), cfg).Top)
}

// =============================================================================
// COHORTS
// =============================================================================

func TestAggregate_CohortsIncludeIdleRoster(t *testing.T) {
	// GIVEN: E003 is in the Time cohort but never appears in records
	// THEN: E003 is listed with zero totals
	agg := productivity.Aggregate(julyRecords(), testCatalog(), julyConfig())

	require.Len(t, agg.Cohorts, 2)
	timeRate := agg.Cohorts[0]
	assert.Equal(t, "Time rate", timeRate.Name)
	require.Len(t, timeRate.People, 2)

	e001 := timeRate.People[0]
	assert.Equal(t, "E001", e001.Entry.EmployeeCode)
	assertDecimal(t, "14", e001.Billable)
	assertDecimal(t, "14", e001.Raw)
	assert.Equal(t, 2, e001.Count, "aliases on one record count once")
	assertDecimal(t, "10", e001.RawByAccount[productivity.AccountKey("abc", "Import")])
	assertDecimal(t, "4", e001.RawByAccount[productivity.AccountKey("Delta Logistics", "Import")])

	e003 := timeRate.People[1]
	assert.Equal(t, "E003", e003.Entry.EmployeeCode)
	assert.True(t, e003.Billable.IsZero())
	assert.Zero(t, e003.Count)

	shared := agg.Cohorts[1]
	require.Len(t, shared.People, 1)
	e002 := shared.People[0]
	assertDecimal(t, "12", e002.Billable)
	assertDecimal(t, "13", e002.Raw)
	assert.Equal(t, 2, e002.Count)
	assertDecimal(t, "10", e002.RawByAccount[productivity.AccountKey("abc", "Import")])
	assertDecimal(t, "3", e002.RawByAccount[productivity.AccountKey("", "Export")])
}

func TestAggregate_AccountColumnsFromIndexedAccounts(t *testing.T) {
	// GIVEN: abc and Delta Logistics each have an indexed account named Import
	// THEN: Each gets its own column, labelled with its customer
	agg := productivity.Aggregate(nil, testCatalog(), julyConfig())
	assert.Equal(t, []productivity.AccountColumn{
		{Key: productivity.AccountKey("abc", "Import"), Label: "Import (abc)"},
		{Key: productivity.AccountKey("Delta Logistics", "Import"), Label: "Import (Delta Logistics)"},
	}, agg.AccountColumns)
}

func TestAggregate_AccountColumnsKeepUniqueNamesPlain(t *testing.T) {
	snap := testSnapshot()
	snap.Indices = snap.Indices[:2]
	agg := productivity.Aggregate(nil, productivity.NewCatalog(snap), julyConfig())
	assert.Equal(t, []productivity.AccountColumn{
		{Key: productivity.AccountKey("abc", "Import"), Label: "Import"},
	}, agg.AccountColumns)
}

func TestAggregate_SameNamedAccountsStaySeparate(t *testing.T) {
	// GIVEN: M01 works 10 on abc/Import and 4 on Delta Logistics/Import
	recs := []productivity.Record{
		record("2024-07-01", "abc", "Import", "12", "10", "M01"),
		record("2024-07-02", "Delta Logistics", "Import", "2", "4", "M01"),
	}

	// WHEN: Aggregating and shaping the report
	rep := productivity.BuildReport(productivity.Aggregate(recs, testCatalog(), julyConfig()))

	// THEN: The two accounts are two columns with their own raw totals
	row := rep.Cohorts[0].Rows[0]
	require.Equal(t, "E001", row.EmployeeCode)
	require.Len(t, row.Accounts, 2)
	assertDecimal(t, "10", row.Accounts[0])
	assertDecimal(t, "4", row.Accounts[1])
}

// =============================================================================
// CUSTOMERS, RANGE, DETAILS
// =============================================================================

func TestAggregate_CustomerSummary(t *testing.T) {
	agg := productivity.Aggregate(julyRecords(), testCatalog(), julyConfig())

	require.Len(t, agg.Customers, 3)
	assert.Equal(t, "abc", agg.Customers[0].Name)
	assertDecimal(t, "12", agg.Customers[0].Total)
	assert.Equal(t, "Delta Logistics", agg.Customers[1].Name)
	assert.Equal(t, productivity.OtherCustomer, agg.Customers[2].Name)
	assert.True(t, agg.Customers[2].Total.IsZero())
	assert.Equal(t, 1, agg.Customers[2].Count)
}

func TestAggregate_RangeFilterAndDetailOrder(t *testing.T) {
	agg := productivity.Aggregate(julyRecords(), testCatalog(), julyConfig())

	var ids []productivity.RecordID
	for _, r := range agg.Records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []productivity.RecordID{2, 4, 1}, ids)
}

func TestAggregate_OpenRangeKeepsUndatedRecords(t *testing.T) {
	undated := record("2024-07-01", "abc", "Import", "1", "1", "M01")
	undated.WorkDate = generic.Date{}

	open := productivity.Aggregate([]productivity.Record{undated}, testCatalog(), productivity.AggregateConfig{})
	assert.Len(t, open.Records, 1)

	closed := productivity.Aggregate([]productivity.Record{undated}, testCatalog(), julyConfig())
	assert.Empty(t, closed.Records)
}

func TestAggregate_Idempotent(t *testing.T) {
	// GIVEN: The same inputs
	// WHEN: Aggregating twice
	// THEN: Identical output, no double counting
	records := julyRecords()
	cat := testCatalog()

	first := productivity.Aggregate(records, cat, julyConfig())
	second := productivity.Aggregate(records, cat, julyConfig())

	assert.Equal(t, staffKeys(first.Staff), staffKeys(second.Staff))
	assert.Equal(t, len(first.Customers), len(second.Customers))
	for i := range first.Customers {
		assert.True(t, first.Customers[i].Total.Equal(second.Customers[i].Total))
	}
	for i := range first.Cohorts {
		for j := range first.Cohorts[i].People {
			assert.True(t, first.Cohorts[i].People[j].Billable.Equal(second.Cohorts[i].People[j].Billable))
		}
	}
	assert.Equal(t, julyRecords(), records, "inputs are not mutated")
}
