/*
Package sheet adapts spreadsheets to and from the productivity engine.

PURPOSE:
  The engine consumes named-field staging rows and produces plain report
  tables. This package is the outer layer that turns an uploaded workbook
  into staging rows, writes the blank import template, and renders a report
  as a workbook.

READING:
  The first sheet is read. Row 1 is the header; every header is matched to
  a field through an alias table (Vietnamese and English spellings, any
  case, underscores or spaces). Unknown columns are ignored. Fully blank
  rows are skipped. Cells are read raw, so a date cell arrives as an Excel
  serial number and is converted to YYYY-MM-DD here; text dates pass
  through and are parsed leniently at commit time.

  .csv uploads go through the same header mapping.

SEE ALSO:
  - template.go: Import template with dropdowns
  - report.go:   Report workbook
*/
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
	"github.com/xuri/excelize/v2"
)

// ErrMissingColumns is returned when the header lacks customer or account.
var ErrMissingColumns = errors.New("missing required columns")

// ErrUnsupportedFile is returned for uploads that are neither xlsx nor csv.
var ErrUnsupportedFile = errors.New("unsupported file type")

type field int

const (
	fieldDate field = iota
	fieldContainerNo
	fieldRawQuantity
	fieldTally
	fieldLiftTruck
	fieldWorker1
	fieldWorker2
	fieldWorker3
	fieldWorker4
	fieldWorker5
	fieldWorker6
	fieldTask
	fieldAccount
	fieldCustomer
	fieldCount
)

// TemplateHeaders are the canonical import headers, in column order.
var TemplateHeaders = [fieldCount]string{
	"Date", "số cont/xe", "cbm", "tally", "xe nang",
	"cong nhan_1", "cong nhan_2", "cong nhan_3", "cong nhan_4", "cong nhan_5", "cong nhan_6",
	"task", "account", "khách hàng",
}

var headerAliases = map[field][]string{
	fieldDate:        {"date", "ngày", "ngay", "work_date"},
	fieldContainerNo: {"số cont/xe", "so cont/xe", "container_no", "container", "ref_no"},
	fieldRawQuantity: {"cbm", "raw_quantity", "quantity", "sản lượng"},
	fieldTally:       {"tally"},
	fieldLiftTruck:   {"xe nang", "xe nâng", "lift_truck"},
	fieldTask:        {"task"},
	fieldAccount:     {"account"},
	fieldCustomer:    {"khách hàng", "khach hang", "customer"},
}

var aliasIndex = buildAliasIndex()

func buildAliasIndex() map[string]field {
	idx := make(map[string]field)
	for f, names := range headerAliases {
		for _, n := range names {
			idx[headerKey(n)] = f
		}
	}
	for i := 0; i < productivity.WorkerSlots; i++ {
		f := fieldWorker1 + field(i)
		n := strconv.Itoa(i + 1)
		for _, name := range []string{"cong nhan_" + n, "công nhân " + n, "worker_" + n, "cn" + n} {
			idx[headerKey(name)] = f
		}
	}
	return idx
}

// headerKey folds case and treats underscores and runs of spaces alike.
func headerKey(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(productivity.Normalize(s), "_", " ")), " ")
}

// =============================================================================
// ENTRY POINTS
// =============================================================================

// ReadFile dispatches on the file extension.
func ReadFile(r io.Reader, filename string) ([]productivity.StagingRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ReadWorkbook(r)
	case ".csv":
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, filepath.Ext(filename))
	}
}

// ReadWorkbook reads staging rows from the first sheet of an xlsx workbook.
func ReadWorkbook(r io.Reader) ([]productivity.StagingRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return RowsFromTable(rows)
}

// ReadCSV reads staging rows from comma-separated text.
func ReadCSV(r io.Reader) ([]productivity.StagingRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return RowsFromTable(rows)
}

// RowsFromTable maps a header row plus data rows to staging rows.
func RowsFromTable(table [][]string) ([]productivity.StagingRow, error) {
	if len(table) == 0 {
		return nil, nil
	}
	cols := make(map[int]field)
	seen := make(map[field]bool)
	for i, h := range table[0] {
		if f, ok := aliasIndex[headerKey(h)]; ok && !seen[f] {
			cols[i] = f
			seen[f] = true
		}
	}
	if !seen[fieldCustomer] || !seen[fieldAccount] {
		return nil, fmt.Errorf("%w: need %q and %q", ErrMissingColumns, TemplateHeaders[fieldAccount], TemplateHeaders[fieldCustomer])
	}

	var out []productivity.StagingRow
	for _, cells := range table[1:] {
		var values [fieldCount]string
		blank := true
		for i, cell := range cells {
			f, ok := cols[i]
			if !ok {
				continue
			}
			v := strings.TrimSpace(cell)
			if v != "" {
				blank = false
			}
			values[f] = v
		}
		if blank {
			continue
		}
		out = append(out, toStagingRow(values))
	}
	return out, nil
}

func toStagingRow(v [fieldCount]string) productivity.StagingRow {
	row := productivity.StagingRow{
		Date:        coerceSerialDate(v[fieldDate]),
		ContainerNo: v[fieldContainerNo],
		RawQuantity: v[fieldRawQuantity],
		Tally:       v[fieldTally],
		LiftTruck:   v[fieldLiftTruck],
		Task:        v[fieldTask],
		Account:     v[fieldAccount],
		Customer:    v[fieldCustomer],
	}
	for i := range row.Workers {
		row.Workers[i] = v[fieldWorker1+field(i)]
	}
	return row
}

// coerceSerialDate turns an Excel serial day number into YYYY-MM-DD. Any
// other text is returned unchanged.
func coerceSerialDate(s string) string {
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial < 1 || serial > 2958465 {
		return s
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return s
	}
	return generic.DateOf(t).String()
}
