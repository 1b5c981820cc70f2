package sheet

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/warp/productivity-engine/productivity"
	"github.com/xuri/excelize/v2"
)

const (
	TemplateSheet = "Template"
	DataListSheet = "DataList"

	// templateLastRow bounds the dropdown ranges.
	templateLastRow = 1000
)

// WriteTemplate writes the blank import workbook. The Template sheet carries
// the canonical headers; customer, account and task columns get dropdowns fed
// from a hidden DataList sheet built from the catalog.
func WriteTemplate(w io.Writer, snap productivity.CatalogSnapshot) error {
	f, err := NewTemplate(snap)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// NewTemplate builds the template workbook in memory.
func NewTemplate(snap productivity.CatalogSnapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), TemplateSheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(TemplateHeaders))
	for i, h := range TemplateHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(TemplateSheet, "A1", &header); err != nil {
		return nil, err
	}
	if err := boldRow(f, TemplateSheet, len(header)); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(DataListSheet); err != nil {
		return nil, err
	}

	var customers, accounts, tasks []string
	for _, c := range snap.Customers {
		customers = append(customers, c.Name)
	}
	for _, a := range snap.Accounts {
		accounts = append(accounts, a.Name)
	}
	for _, t := range snap.Tasks {
		tasks = append(tasks, t.Name)
	}

	lists := []struct {
		source string
		target field
		values []string
	}{
		{"A", fieldCustomer, distinctNames(customers)},
		{"B", fieldAccount, distinctNames(accounts)},
		{"C", fieldTask, distinctNames(tasks)},
	}
	for _, l := range lists {
		for i, v := range l.values {
			if err := f.SetCellValue(DataListSheet, fmt.Sprintf("%s%d", l.source, i+1), v); err != nil {
				return nil, err
			}
		}
		if len(l.values) == 0 {
			continue
		}
		col, err := excelize.ColumnNumberToName(int(l.target) + 1)
		if err != nil {
			return nil, err
		}
		dv := excelize.NewDataValidation(true)
		dv.Sqref = fmt.Sprintf("%s2:%s%d", col, col, templateLastRow)
		dv.SetSqrefDropList(fmt.Sprintf("'%s'!$%s$1:$%s$%d", DataListSheet, l.source, l.source, len(l.values)))
		if err := f.AddDataValidation(TemplateSheet, dv); err != nil {
			return nil, err
		}
	}

	if err := f.SetSheetVisible(DataListSheet, false); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// distinctNames trims, drops blanks and duplicates (normalized), and sorts.
func distinctNames(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := productivity.Normalize(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func boldRow(f *excelize.File, sheet string, cols int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}
