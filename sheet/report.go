package sheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/productivity-engine/productivity"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet   = "Summary"
	TopSheet       = "Top"
	CustomersSheet = "Customers"
	DetailsSheet   = "Details"

	// ContentTypeXLSX is the media type for workbook downloads.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxSheetName = 31
)

// ReportFilename names an exported report after its generation day.
func ReportFilename(day string) string {
	return "report_" + strings.ReplaceAll(day, "-", "") + ".xlsx"
}

// WriteReport renders rep as a workbook: staff summary, top staff, one sheet
// per cohort, customers, and the record details.
func WriteReport(w io.Writer, rep *productivity.Report) error {
	f, err := NewReport(rep)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// NewReport builds the report workbook in memory.
func NewReport(rep *productivity.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return nil, err
	}
	b := &bookWriter{f: f}

	b.table(SummarySheet, []string{"No", "Identifier", "Role", "Total", "Count", "Remark"}, staffCells(rep.Staff))
	b.newSheet(TopSheet)
	b.table(TopSheet, []string{"No", "Identifier", "Role", "Total", "Count", "Remark"}, staffCells(rep.TopStaff))

	used := make(map[string]bool)
	for _, n := range []string{SummarySheet, TopSheet, CustomersSheet, DetailsSheet} {
		used[strings.ToLower(n)] = true
	}
	for _, c := range rep.Cohorts {
		name := uniqueSheetName(c.Name, used)
		b.newSheet(name)
		header := append([]string{"Position", "Employee code", "Secondary code", "Full name", "Converted", "Raw", "Records"}, c.AccountColumns...)
		rows := make([][]interface{}, 0, len(c.Rows))
		for _, p := range c.Rows {
			row := []interface{}{p.Position, p.EmployeeCode, p.SecondaryCode, p.FullName,
				number(p.TotalConvertedQuantity), number(p.TotalRawQuantity), p.RecordCount}
			for _, a := range p.Accounts {
				row = append(row, number(a))
			}
			rows = append(rows, row)
		}
		b.table(name, header, rows)
	}

	b.newSheet(CustomersSheet)
	customers := make([][]interface{}, 0, len(rep.Customers))
	for i, c := range rep.Customers {
		customers = append(customers, []interface{}{i + 1, c.CustomerName, number(c.TotalQuantity), c.RecordCount})
	}
	b.table(CustomersSheet, []string{"No", "Customer", "Total", "Records"}, customers)

	b.newSheet(DetailsSheet)
	header := []string{"Date", "Container", "Task", "Account", "Customer", "Quantity", "Unit", "Factor", "Billable", "Tally", "Lift truck"}
	for i := 1; i <= productivity.WorkerSlots; i++ {
		header = append(header, fmt.Sprintf("Worker %d", i))
	}
	details := make([][]interface{}, 0, len(rep.Details))
	for _, d := range rep.Details {
		row := []interface{}{d.WorkDate.String(), d.RefNo, d.TaskName, d.AccountName, d.CustomerName,
			nullNumber(d.RawQuantity), string(d.Unit), number(d.ConversionFactor), nullNumber(d.BillableQuantity)}
		for _, s := range d.Slots {
			row = append(row, s)
		}
		details = append(details, row)
	}
	b.table(DetailsSheet, header, details)

	if b.err != nil {
		return nil, b.err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// bookWriter keeps the first error so table building reads straight through.
type bookWriter struct {
	f     *excelize.File
	err   error
	style int
}

func (b *bookWriter) newSheet(name string) {
	if b.err != nil {
		return
	}
	_, b.err = b.f.NewSheet(name)
}

func (b *bookWriter) table(sheet string, header []string, rows [][]interface{}) {
	if b.err != nil {
		return
	}
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if b.err = b.f.SetSheetRow(sheet, "A1", &head); b.err != nil {
		return
	}
	if b.style == 0 {
		if b.style, b.err = b.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); b.err != nil {
			return
		}
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		b.err = err
		return
	}
	if b.err = b.f.SetCellStyle(sheet, "A1", last, b.style); b.err != nil {
		return
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			b.err = err
			return
		}
		r := row
		if b.err = b.f.SetSheetRow(sheet, cell, &r); b.err != nil {
			return
		}
	}
}

func staffCells(in []productivity.StaffRow) [][]interface{} {
	out := make([][]interface{}, 0, len(in))
	for i, s := range in {
		out = append(out, []interface{}{i + 1, s.Identifier, string(s.Role), number(s.TotalQuantity), s.Count, s.Remark})
	}
	return out
}

func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// nullNumber leaves the cell blank for an absent quantity.
func nullNumber(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return ""
	}
	return d.Decimal.InexactFloat64()
}

// uniqueSheetName replaces characters Excel rejects and truncates to the
// sheet name limit. Names compare case-insensitively, as Excel does.
func uniqueSheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "Cohort"
	}
	base := truncateRunes(clean, maxSheetName)
	candidate := base
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(clean, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
