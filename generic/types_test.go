package generic_test

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/productivity-engine/generic"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"12.5", "12.5", true},
		{" 12.5 ", "12.5", true},
		{"12,5", "12.5", true},
		{"22,75", "22.75", true},
		{"0,125", "0.125", true},
		{"1.234", "1.234", true},
		{"1,234.5", "1234.5", true},
		{"1.234,5", "1234.5", true},
		{"-1.234,5", "-1234.5", true},
		{"1,234,567", "1234567", true},
		{"1.234.567", "1234567", true},
		{"1 234,5", "1234.5", true},
		// A lone comma before three digits reads as both 1234 and 1.234.
		{"1,234", "", false},
		{"1,2,3", "", false},
		{"1,23.4", "", false},
		{"1.234,5,6", "", false},
		{"1,234.5.6", "", false},
		{"-3", "-3", true},
		{"0", "0", true},
		{"", "", false},
		{"   ", "", false},
		{"n/a", "", false},
		{"12.5kg", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := generic.ParseQuantity(tt.in)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(got.Decimal), "got %s", got.Decimal)
			}
		})
	}
}

func TestValueOrZero(t *testing.T) {
	assert.True(t, generic.ValueOrZero(generic.NoQuantity()).IsZero())
	assert.Equal(t, "4.2", generic.ValueOrZero(generic.ParseQuantity("4.2")).String())
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "", generic.FormatQuantity(generic.NoQuantity(), 3))
	assert.Equal(t, "1.235", generic.FormatQuantity(generic.ParseQuantity("1.2345"), 3))
}

func TestErrorHelpers(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("ctx: %w", err) }

	assert.True(t, generic.IsClientError(wrap(generic.ErrValidationFailed)))
	assert.True(t, generic.IsClientError(wrap(generic.ErrStagingEmpty)))
	assert.True(t, generic.IsClientError(wrap(generic.ErrInvalidRange)))
	assert.False(t, generic.IsClientError(wrap(generic.ErrCommitFailed)))

	assert.True(t, generic.IsNotFound(wrap(generic.ErrNotFound)))
	assert.True(t, generic.IsRetryable(wrap(generic.ErrCommitFailed)))
	assert.False(t, generic.IsRetryable(generic.ErrValidationFailed))
}
