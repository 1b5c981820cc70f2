package productivity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
	"github.com/warp/productivity-engine/store/memory"
)

func TestBuildReport_Tables(t *testing.T) {
	agg := productivity.Aggregate(julyRecords(), testCatalog(), julyConfig())
	rep := productivity.BuildReport(agg)

	require.Len(t, rep.Cohorts, 2)
	timeRate := rep.Cohorts[0]
	assert.Equal(t, []string{"Import (abc)", "Import (Delta Logistics)"}, timeRate.AccountColumns)
	require.Len(t, timeRate.Rows, 2)

	row := timeRate.Rows[0]
	assert.Equal(t, "E001", row.EmployeeCode)
	assert.Equal(t, "M01", row.SecondaryCode)
	assert.Equal(t, "Nguyen Van A", row.FullName)
	assert.Equal(t, "Worker", row.Position)
	assertDecimal(t, "14", row.TotalConvertedQuantity)
	assertDecimal(t, "14", row.TotalRawQuantity)
	require.Len(t, row.Accounts, 2)
	assertDecimal(t, "10", row.Accounts[0])
	assertDecimal(t, "4", row.Accounts[1])

	idle := timeRate.Rows[1]
	require.Len(t, idle.Accounts, 2)
	assert.True(t, idle.Accounts[0].IsZero())
	assert.True(t, idle.Accounts[1].IsZero())

	require.Len(t, rep.Customers, 3)
	assert.Equal(t, "abc", rep.Customers[0].CustomerName)
	assert.Equal(t, 1, rep.Customers[0].RecordCount)

	assert.Len(t, rep.Staff, 6)
	assert.Len(t, rep.TopStaff, 2)
	require.Len(t, rep.Details, 3)
	assert.Equal(t, "2024-07-05", rep.Details[0].WorkDate.String())
}

func TestBuildReport_RoundsToThreePlaces(t *testing.T) {
	rec := record("2024-07-01", "abc", "Import", "1.23456", "1.00049", "M01")
	rec.ConversionFactor = dec("1.23456")
	agg := productivity.Aggregate([]productivity.Record{rec}, testCatalog(), julyConfig())
	rep := productivity.BuildReport(agg)

	assert.Equal(t, "1.235", rep.Details[0].BillableQuantity.Decimal.String())
	assert.Equal(t, "1", rep.Details[0].RawQuantity.Decimal.String())
	assert.Equal(t, "1.235", rep.Details[0].ConversionFactor.String())
	assert.Equal(t, "1.235", rep.Staff[0].TotalQuantity.String())
}

func TestBuildReport_AbsentQuantitiesStayAbsent(t *testing.T) {
	rec := record("2024-07-01", "abc", "Import", "", "", "M01")
	rep := productivity.BuildReport(productivity.Aggregate([]productivity.Record{rec}, testCatalog(), julyConfig()))

	assert.False(t, rep.Details[0].RawQuantity.Valid)
	assert.False(t, rep.Details[0].BillableQuantity.Valid)
}

// =============================================================================
// REPORTER
// =============================================================================

func TestReporter_UsesStoredPrefixes(t *testing.T) {
	// GIVEN: Stored exclusion prefixes "M0"
	// WHEN: Building the report
	// THEN: Every M0x identifier is dropped; only Ghost and E001 remain
	ctx := context.Background()
	store := memory.New()
	store.Seed(testSnapshot())
	require.NoError(t, store.AppendRecords(ctx, julyRecords()))
	_, err := productivity.SaveExclusionPrefixes(ctx, store, "m0")
	require.NoError(t, err)

	rep, err := productivity.NewReporter(store, julyConfig(), nil).Build(ctx, julyConfig().Range)
	require.NoError(t, err)

	var ids []string
	for _, s := range rep.Staff {
		ids = append(ids, s.Identifier)
	}
	assert.Equal(t, []string{"E001", "Ghost", "TB001"}, ids)
}

func TestReporter_FallbackPrefixes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.Seed(testSnapshot())
	require.NoError(t, store.AppendRecords(ctx, julyRecords()))

	rep, err := productivity.NewReporter(store, julyConfig(), nil).Build(ctx, julyConfig().Range)
	require.NoError(t, err)
	for _, s := range rep.Staff {
		assert.NotEqual(t, "TB001", s.Identifier)
	}
}

func TestReporter_RejectsInvertedRange(t *testing.T) {
	store := memory.New()
	rng := generic.NewDateRange(generic.MustParseDate("2024-08-01"), generic.MustParseDate("2024-07-01"))

	_, err := productivity.NewReporter(store, julyConfig(), nil).Build(context.Background(), rng)
	assert.ErrorIs(t, err, generic.ErrInvalidRange)
}
