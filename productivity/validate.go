package productivity

import (
	"fmt"
	"strings"

	"github.com/warp/productivity-engine/generic"
)

// Resolution failure messages, surfaced verbatim to operators.
const (
	MsgMissingCustomerOrAccount = "missing customer or account"
	MsgCustomerNotFound         = "customer not found"
	MsgAccountNotFound          = "account not found for this customer"
)

// RowError is one resolution problem on a staged row.
type RowError struct {
	// Row is the 1-based position of the row in the batch.
	Row     int
	Message string
	// Value is the offending text, empty for the missing-field case.
	Value string
}

func (e RowError) String() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d: %s (%q)", e.Row, e.Message, e.Value)
}

// ValidationFailedError carries every row error of a rejected batch.
// It matches generic.ErrValidationFailed under errors.Is.
type ValidationFailedError struct {
	Errors []RowError
}

func (e *ValidationFailedError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, re := range e.Errors {
		parts = append(parts, re.String())
	}
	return fmt.Sprintf("%s: %s", generic.ErrValidationFailed, strings.Join(parts, "; "))
}

func (e *ValidationFailedError) Unwrap() error {
	return generic.ErrValidationFailed
}

// resolution is what a staged row maps to in the catalog.
type resolution struct {
	customer    Customer
	account     Account
	task        Task
	hasCustomer bool
	hasAccount  bool
	hasTask     bool
}

// resolveRow walks customer -> account -> task. It stops at the first
// missing link and reports how far it got.
func resolveRow(row StagingRow, cat *Catalog) resolution {
	var r resolution
	r.customer, r.hasCustomer = cat.FindCustomer(Normalize(row.Customer))
	if !r.hasCustomer {
		return r
	}
	r.account, r.hasAccount = cat.FindAccount(r.customer.ID, Normalize(row.Account))
	if !r.hasAccount {
		return r
	}
	r.task, r.hasTask = cat.FindTask(r.account.ID, Normalize(row.Task))
	return r
}

// ValidateRow checks that one row resolves to a customer and one of its
// accounts. pos is the 1-based row number used in the error. A missing task
// is never an error.
func ValidateRow(pos int, row StagingRow, cat *Catalog) (RowError, bool) {
	if strings.TrimSpace(row.Customer) == "" || strings.TrimSpace(row.Account) == "" {
		return RowError{Row: pos, Message: MsgMissingCustomerOrAccount}, false
	}
	r := resolveRow(row, cat)
	if !r.hasCustomer {
		return RowError{Row: pos, Message: MsgCustomerNotFound, Value: strings.TrimSpace(row.Customer)}, false
	}
	if !r.hasAccount {
		return RowError{Row: pos, Message: MsgAccountNotFound, Value: strings.TrimSpace(row.Account)}, false
	}
	return RowError{}, true
}

// Validate checks every row and returns all problems in row order.
// An empty result means the batch is committable.
func Validate(rows []StagingRow, cat *Catalog) []RowError {
	var errs []RowError
	for i, row := range rows {
		if re, ok := ValidateRow(i+1, row, cat); !ok {
			errs = append(errs, re)
		}
	}
	return errs
}
