/*
commit.go - Batch committer: staged rows -> productivity records

PURPOSE:
  Converts validated staged rows into committed records and clears staging,
  all inside the caller's unit of work.

SNAPSHOT-AT-COMMIT:
  A record stores the resolved display names of its customer, account and
  task, never their IDs. Later renames of master data do not touch history.
  When the task cannot be resolved the staged task text is kept as-is and
  the default conversion (factor 1, CBM) applies.

DATA SHAPE:
  Unparseable dates become the zero date and unparseable quantities become
  absent. One bad cell never blocks the batch.

SEE ALSO:
  - import.go: Importer.Confirm wraps CommitRows in WithTx
  - conversion.go: Factor and billable quantity
*/
package productivity

import (
	"context"
	"strings"

	"github.com/warp/productivity-engine/generic"
)

// BuildRecord turns one staged row into a record. The row must have passed
// ValidateRow; a row that did not is still converted with the staged text.
func BuildRecord(row StagingRow, cat *Catalog) Record {
	raw := generic.ParseQuantity(row.RawQuantity)
	r := resolveRow(row, cat)

	rec := Record{
		RefNo:        strings.TrimSpace(row.ContainerNo),
		RawQuantity:  raw,
		TaskName:     strings.TrimSpace(row.Task),
		AccountName:  strings.TrimSpace(row.Account),
		CustomerName: strings.TrimSpace(row.Customer),
	}
	if d, ok := generic.ParseDate(row.Date); ok {
		rec.WorkDate = d
	}
	for i, v := range row.Slots() {
		rec.Slots[i] = strings.TrimSpace(v)
	}
	if r.hasCustomer {
		rec.CustomerName = r.customer.Name
	}
	if r.hasAccount {
		rec.AccountName = r.account.Name
	}

	conv := DefaultConversion(raw)
	if r.hasTask {
		rec.TaskName = r.task.Name
		conv = cat.ResolveConversion(r.account.ID, r.task.ID, raw)
	}
	rec.Unit = conv.Unit
	rec.ConversionFactor = conv.Factor
	rec.BillableQuantity = conv.Billable
	return rec
}

// BuildRecords converts rows in order.
func BuildRecords(rows []StagingRow, cat *Catalog) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, BuildRecord(row, cat))
	}
	return out
}

// CommitRows appends one record per row and clears staging through tx.
// It returns the number of records written. Atomicity comes from the
// surrounding unit of work, so any error here must abort it.
func CommitRows(ctx context.Context, tx Tx, rows []StagingRow, cat *Catalog, runID string) (int, error) {
	records := BuildRecords(rows, cat)
	for i := range records {
		records[i].ImportRunID = runID
	}
	if err := tx.AppendRecords(ctx, records); err != nil {
		return 0, err
	}
	if err := tx.ClearStaging(ctx); err != nil {
		return 0, err
	}
	return len(records), nil
}
