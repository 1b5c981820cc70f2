package productivity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
	"github.com/warp/productivity-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var errDiskFull = errors.New("disk full")

func newTestImporter(t *testing.T) (*productivity.Importer, *memory.Memory) {
	t.Helper()
	store := memory.New()
	store.Seed(testSnapshot())
	clock := generic.FixedClock{At: time.Date(2024, 7, 2, 9, 0, 0, 0, time.UTC)}
	return productivity.NewImporter(store, clock, nil), store
}

func validBatch() []productivity.StagingRow {
	return []productivity.StagingRow{
		stagedRow("ABC ", "Import", "UNLOAD", "10", "M01", "M02"),
		stagedRow("Delta Logistics", "import", "Unloading", "4", "E001"),
		stagedRow("abc", "Export", "", "", "TB001"),
	}
}

// =============================================================================
// CONFIRM
// =============================================================================

func TestImporter_Confirm_CommitsAllAndClearsStaging(t *testing.T) {
	// GIVEN: Three valid staged rows
	// WHEN: Confirming
	// THEN: Three records, empty staging, one completed run
	im, store := newTestImporter(t)
	ctx := context.Background()

	_, err := im.Stage(ctx, validBatch())
	require.NoError(t, err)

	res, err := im.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.NotEmpty(t, res.RunID)

	staged, err := store.ListStaging(ctx)
	require.NoError(t, err)
	assert.Empty(t, staged)

	records := store.Records()
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, res.RunID, r.ImportRunID)
	}
	assertDecimal(t, "12", records[0].BillableQuantity.Decimal)
	assertDecimal(t, "2", records[1].BillableQuantity.Decimal)

	runs, err := im.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, productivity.RunCompleted, runs[0].Status)
	assert.Equal(t, 3, runs[0].RowCount)
}

func TestImporter_Confirm_ValidationFailureCommitsNothing(t *testing.T) {
	// GIVEN: A batch with one unresolvable row
	// WHEN: Confirming
	// THEN: ValidationFailedError, no records, staging untouched
	im, store := newTestImporter(t)
	ctx := context.Background()

	batch := append(validBatch(), stagedRow("Ghost", "Import", "", "1"))
	_, err := im.Stage(ctx, batch)
	require.NoError(t, err)

	_, err = im.Confirm(ctx)
	require.ErrorIs(t, err, generic.ErrValidationFailed)
	var vf *productivity.ValidationFailedError
	require.ErrorAs(t, err, &vf)
	require.Len(t, vf.Errors, 1)
	assert.Equal(t, 4, vf.Errors[0].Row)

	assert.Empty(t, store.Records())
	staged, _ := store.ListStaging(ctx)
	assert.Len(t, staged, 4)
}

func TestImporter_Confirm_EmptyStaging(t *testing.T) {
	im, _ := newTestImporter(t)
	_, err := im.Confirm(context.Background())
	assert.ErrorIs(t, err, generic.ErrStagingEmpty)
}

func TestImporter_Confirm_StorageFaultRollsBack(t *testing.T) {
	// GIVEN: Records write fine but clearing staging fails
	// WHEN: Confirming
	// THEN: ErrCommitFailed, the records write is undone, staging intact,
	//       and a failed run is logged
	im, store := newTestImporter(t)
	ctx := context.Background()

	_, err := im.Stage(ctx, validBatch())
	require.NoError(t, err)
	store.FailOn(memory.OpClearStaging, errDiskFull)

	_, err = im.Confirm(ctx)
	require.ErrorIs(t, err, generic.ErrCommitFailed)
	assert.True(t, generic.IsRetryable(err))
	assert.Contains(t, err.Error(), "disk full")

	assert.Empty(t, store.Records())
	staged, _ := store.ListStaging(ctx)
	assert.Len(t, staged, 3)

	runs, _ := im.Runs(ctx, 0)
	require.Len(t, runs, 1)
	assert.Equal(t, productivity.RunFailed, runs[0].Status)
	assert.Zero(t, runs[0].RowCount)

	// WHEN: The fault clears and the commit is retried
	// THEN: It succeeds with the same batch
	store.FailOn(memory.OpClearStaging, nil)
	res, err := im.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Len(t, store.Records(), 3)
}

func TestImporter_Confirm_AuditFaultRollsBackRecords(t *testing.T) {
	im, store := newTestImporter(t)
	ctx := context.Background()

	_, err := im.Stage(ctx, validBatch())
	require.NoError(t, err)
	store.FailOn(memory.OpSaveImportRun, errDiskFull)

	_, err = im.Confirm(ctx)
	require.ErrorIs(t, err, generic.ErrCommitFailed)
	assert.Empty(t, store.Records())
	staged, _ := store.ListStaging(ctx)
	assert.Len(t, staged, 3)
}

// =============================================================================
// STAGING LIFECYCLE
// =============================================================================

func TestImporter_Stage_ReplacesPreviousBatch(t *testing.T) {
	im, store := newTestImporter(t)
	ctx := context.Background()

	_, err := im.Stage(ctx, validBatch())
	require.NoError(t, err)
	n, err := im.Stage(ctx, validBatch()[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	staged, _ := store.ListStaging(ctx)
	assert.Len(t, staged, 1)
}

func TestImporter_Preview_FlagsRowsInPlace(t *testing.T) {
	im, _ := newTestImporter(t)
	ctx := context.Background()

	_, err := im.Stage(ctx, []productivity.StagingRow{
		stagedRow("abc", "Import", "", "1"),
		stagedRow("abc", "Nope", "", "1"),
	})
	require.NoError(t, err)

	p, err := im.Preview(ctx)
	require.NoError(t, err)
	require.Len(t, p.Rows, 2)
	assert.Nil(t, p.Rows[0].Error)
	require.NotNil(t, p.Rows[1].Error)
	assert.Equal(t, productivity.MsgAccountNotFound, p.Rows[1].Error.Message)
	assert.False(t, p.Valid())
}

func TestImporter_UpdateRow_FixesBatch(t *testing.T) {
	// GIVEN: A staged row with a typo in the account
	// WHEN: The operator fixes it and confirms
	// THEN: The commit goes through
	im, store := newTestImporter(t)
	ctx := context.Background()

	_, err := im.Stage(ctx, []productivity.StagingRow{stagedRow("abc", "Imprt", "", "1")})
	require.NoError(t, err)
	staged, _ := store.ListStaging(ctx)
	row := staged[0]
	row.Account = "Import"
	require.NoError(t, im.UpdateRow(ctx, row))

	p, err := im.Preview(ctx)
	require.NoError(t, err)
	assert.True(t, p.Valid())

	res, err := im.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}

func TestImporter_UpdateAndDelete_MissingRow(t *testing.T) {
	im, _ := newTestImporter(t)
	ctx := context.Background()

	err := im.UpdateRow(ctx, productivity.StagingRow{ID: 99})
	assert.ErrorIs(t, err, generic.ErrNotFound)
	err = im.DeleteRow(ctx, 99)
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestImporter_DeleteRow_ThenCancel(t *testing.T) {
	im, store := newTestImporter(t)
	ctx := context.Background()

	_, err := im.Stage(ctx, validBatch())
	require.NoError(t, err)
	staged, _ := store.ListStaging(ctx)
	require.NoError(t, im.DeleteRow(ctx, staged[1].ID))

	staged, _ = store.ListStaging(ctx)
	assert.Len(t, staged, 2)

	require.NoError(t, im.Cancel(ctx))
	staged, _ = store.ListStaging(ctx)
	assert.Empty(t, staged)
	assert.Empty(t, store.Records())
}
