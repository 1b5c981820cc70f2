package productivity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
)

func TestBuildRecord_SnapshotsResolvedNames(t *testing.T) {
	// GIVEN: Staged text in odd case with spaces
	// WHEN: Building the record
	// THEN: The master display names are stored, not the staged text
	row := stagedRow(" ABC ", "import", "unload", "10", " M01 ", "M02")
	row.ContainerNo = " CONT-9 "

	rec := productivity.BuildRecord(row, testCatalog())

	assert.Equal(t, "abc", rec.CustomerName)
	assert.Equal(t, "Import", rec.AccountName)
	assert.Equal(t, "Unloading", rec.TaskName)
	assert.Equal(t, "CONT-9", rec.RefNo)
	assert.Equal(t, "M01", rec.Slots[0])
	assert.Equal(t, "M02", rec.Slots[1])
	assert.Equal(t, "2024-07-01", rec.WorkDate.String())
	assertDecimal(t, "1.2", rec.ConversionFactor)
	require.True(t, rec.BillableQuantity.Valid)
	assertDecimal(t, "12", rec.BillableQuantity.Decimal)
}

func TestBuildRecord_UnresolvedTaskKeepsStagedText(t *testing.T) {
	// GIVEN: A task that does not exist for the account
	// THEN: Staged text kept, default conversion applied
	rec := productivity.BuildRecord(stagedRow("abc", "Import", " Sweeping ", "4.5"), testCatalog())

	assert.Equal(t, "Sweeping", rec.TaskName)
	assert.Equal(t, generic.DefaultUnit, rec.Unit)
	assertDecimal(t, "1", rec.ConversionFactor)
	assertDecimal(t, "4.5", rec.BillableQuantity.Decimal)
}

func TestBuildRecord_BadCellsAreCoerced(t *testing.T) {
	// GIVEN: Unparseable date and quantity
	// THEN: Zero date and absent raw, the row still converts
	row := stagedRow("abc", "Import", "Unloading", "lots")
	row.Date = "someday"

	rec := productivity.BuildRecord(row, testCatalog())

	assert.True(t, rec.WorkDate.IsZero())
	assert.False(t, rec.RawQuantity.Valid)
	assert.False(t, rec.BillableQuantity.Valid, "indexed pair with absent raw leaves billable unset")
}

func TestBuildRecord_CommaDecimalAndDayFirstDate(t *testing.T) {
	row := stagedRow("Delta Logistics", "Import", "UNLOAD", "12,5")
	row.Date = "15/03/2024"

	rec := productivity.BuildRecord(row, testCatalog())

	assert.Equal(t, "2024-03-15", rec.WorkDate.String())
	assertDecimal(t, "12.5", rec.RawQuantity.Decimal)
	assertDecimal(t, "6.25", rec.BillableQuantity.Decimal)
	assert.Equal(t, generic.Unit("TEU"), rec.Unit)
}

func TestBuildRecords_PreservesOrder(t *testing.T) {
	rows := []productivity.StagingRow{
		stagedRow("abc", "Import", "", "1"),
		stagedRow("abc", "Export", "", "2"),
	}
	recs := productivity.BuildRecords(rows, testCatalog())
	require.Len(t, recs, 2)
	assert.Equal(t, "Import", recs[0].AccountName)
	assert.Equal(t, "Export", recs[1].AccountName)
}
