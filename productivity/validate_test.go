package productivity_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
)

func TestValidate_CollectsEveryRow(t *testing.T) {
	// GIVEN: One good row and three bad ones
	// WHEN: Validating
	// THEN: Every bad row is reported, in order, with its 1-based position
	rows := []productivity.StagingRow{
		stagedRow("ABC", "Import", "Unloading", "10"),
		stagedRow("", "Import", "", "1"),
		stagedRow("Nobody Inc", "Import", "", "1"),
		stagedRow("Delta Logistics", "Export", "", "1"),
	}

	errs := productivity.Validate(rows, testCatalog())

	require.Len(t, errs, 3)
	assert.Equal(t, productivity.RowError{Row: 2, Message: "missing customer or account"}, errs[0])
	assert.Equal(t, productivity.RowError{Row: 3, Message: "customer not found", Value: "Nobody Inc"}, errs[1])
	assert.Equal(t, productivity.RowError{Row: 4, Message: "account not found for this customer", Value: "Export"}, errs[2])
}

func TestValidate_MissingAccountShortCircuits(t *testing.T) {
	// GIVEN: A row with an unknown customer AND a blank account
	// THEN: Only the missing-field error is reported
	errs := productivity.Validate([]productivity.StagingRow{stagedRow("Nobody", "  ", "", "")}, testCatalog())
	require.Len(t, errs, 1)
	assert.Equal(t, productivity.MsgMissingCustomerOrAccount, errs[0].Message)
}

func TestValidate_UnknownTaskIsNotAnError(t *testing.T) {
	rows := []productivity.StagingRow{stagedRow(" abc", "IMPORT ", "Sweeping", "3")}
	assert.Empty(t, productivity.Validate(rows, testCatalog()))
}

func TestValidate_EmptyBatch(t *testing.T) {
	assert.Empty(t, productivity.Validate(nil, testCatalog()))
}

func TestValidationFailedError_MatchesSentinel(t *testing.T) {
	var err error = &productivity.ValidationFailedError{Errors: []productivity.RowError{
		{Row: 1, Message: productivity.MsgCustomerNotFound, Value: "X"},
	}}
	assert.True(t, errors.Is(err, generic.ErrValidationFailed))
	assert.Contains(t, err.Error(), `row 1: customer not found ("X")`)

	var vf *productivity.ValidationFailedError
	require.True(t, errors.As(err, &vf))
	assert.Len(t, vf.Errors, 1)
}
