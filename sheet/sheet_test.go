package sheet_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
	"github.com/warp/productivity-engine/sheet"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

// =============================================================================
// READER
// =============================================================================

func TestReadWorkbook_TemplateHeaders(t *testing.T) {
	// GIVEN: An upload with the canonical headers and one blank row
	header := make([]interface{}, len(sheet.TemplateHeaders))
	for i, h := range sheet.TemplateHeaders {
		header[i] = h
	}
	buf := workbook(t, [][]interface{}{
		header,
		{"05/07/2024", "CONT-1", "12.5", "T01", "L01", "W1", "W2", "", "", "", "", "Unloading", "Import", "abc"},
		{},
		{"2024-07-06", "CONT-2", "", "", "", "", "", "", "", "", "W6", "LOAD", "Export", "ABC"},
	})

	// WHEN: Reading it
	rows, err := sheet.ReadFile(buf, "upload.xlsx")
	require.NoError(t, err)

	// THEN: Two staging rows with fields in place
	require.Len(t, rows, 2)
	assert.Equal(t, "05/07/2024", rows[0].Date)
	assert.Equal(t, "CONT-1", rows[0].ContainerNo)
	assert.Equal(t, "12.5", rows[0].RawQuantity)
	assert.Equal(t, "T01", rows[0].Tally)
	assert.Equal(t, "L01", rows[0].LiftTruck)
	assert.Equal(t, [productivity.WorkerSlots]string{"W1", "W2"}, rows[0].Workers)
	assert.Equal(t, "Unloading", rows[0].Task)
	assert.Equal(t, "Import", rows[0].Account)
	assert.Equal(t, "abc", rows[0].Customer)
	assert.Equal(t, "W6", rows[1].Workers[5])
	assert.Equal(t, "", rows[1].RawQuantity)
}

func TestReadWorkbook_SerialDate(t *testing.T) {
	// GIVEN: A date stored as an Excel serial number (45478 = 2024-07-05)
	buf := workbook(t, [][]interface{}{
		{"Date", "account", "customer"},
		{45478, "Import", "abc"},
	})

	rows, err := sheet.ReadWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-07-05", rows[0].Date)
}

func TestReadCSV_AliasHeaders(t *testing.T) {
	// GIVEN: English aliases in mixed case, columns reordered, one extra column
	csv := "Customer,ACCOUNT,Task,Worker_1,Notes,Quantity\n" +
		"abc,Import,UNLOAD,w-01,ignored,3\n"

	rows, err := sheet.ReadFile(strings.NewReader(csv), "upload.CSV")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "abc", rows[0].Customer)
	assert.Equal(t, "Import", rows[0].Account)
	assert.Equal(t, "UNLOAD", rows[0].Task)
	assert.Equal(t, "w-01", rows[0].Workers[0])
	assert.Equal(t, "3", rows[0].RawQuantity)
}

func TestReadFile_Errors(t *testing.T) {
	_, err := sheet.ReadFile(strings.NewReader("x"), "upload.pdf")
	assert.ErrorIs(t, err, sheet.ErrUnsupportedFile)

	_, err = sheet.ReadCSV(strings.NewReader("Date,task\n2024-07-05,UNLOAD\n"))
	assert.ErrorIs(t, err, sheet.ErrMissingColumns)
}

func TestRowsFromTable_Empty(t *testing.T) {
	rows, err := sheet.RowsFromTable(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// =============================================================================
// TEMPLATE
// =============================================================================

func templateSnapshot() productivity.CatalogSnapshot {
	return productivity.CatalogSnapshot{
		Customers: []productivity.Customer{{ID: 1, Name: "abc"}, {ID: 2, Name: "Delta"}},
		Accounts: []productivity.Account{
			{ID: 10, CustomerID: 1, Name: "Import"},
			{ID: 11, CustomerID: 1, Name: "Export"},
			{ID: 20, CustomerID: 2, Name: "Import "},
		},
		Tasks: []productivity.Task{{ID: 100, AccountID: 10, Name: "Unloading"}},
	}
}

func TestNewTemplate(t *testing.T) {
	f, err := sheet.NewTemplate(templateSnapshot())
	require.NoError(t, err)
	defer f.Close()

	// THEN: Headers on the visible Template sheet
	rows, err := f.GetRows(sheet.TemplateSheet)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, sheet.TemplateHeaders[:], rows[0])

	// AND: Distinct sorted names on the hidden DataList sheet
	for cell, want := range map[string]string{
		"A1": "Delta", "A2": "abc", "A3": "",
		"B1": "Export", "B2": "Import", "B3": "",
		"C1": "Unloading", "C2": "",
	} {
		got, err := f.GetCellValue(sheet.DataListSheet, cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}

	visible, err := f.GetSheetVisible(sheet.DataListSheet)
	require.NoError(t, err)
	assert.False(t, visible)

	// AND: Dropdowns on task, account and customer columns
	dvs, err := f.GetDataValidations(sheet.TemplateSheet)
	require.NoError(t, err)
	var refs []string
	for _, dv := range dvs {
		refs = append(refs, dv.Sqref)
	}
	assert.ElementsMatch(t, []string{"L2:L1000", "M2:M1000", "N2:N1000"}, refs)
}

func TestNewTemplate_EmptyCatalogHasNoDropdowns(t *testing.T) {
	f, err := sheet.NewTemplate(productivity.CatalogSnapshot{})
	require.NoError(t, err)
	defer f.Close()

	dvs, err := f.GetDataValidations(sheet.TemplateSheet)
	require.NoError(t, err)
	assert.Empty(t, dvs)
}

func TestTemplate_ReadsBackEmpty(t *testing.T) {
	// GIVEN: The written template is uploaded untouched
	var buf bytes.Buffer
	require.NoError(t, sheet.WriteTemplate(&buf, templateSnapshot()))

	// THEN: Headers are recognized and there are no rows
	rows, err := sheet.ReadFile(&buf, "template.xlsx")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// =============================================================================
// REPORT
// =============================================================================

func sampleReport() *productivity.Report {
	d := decimal.RequireFromString
	return &productivity.Report{
		Cohorts: []productivity.CohortTable{
			{
				Name:           "Time rate",
				AccountColumns: []string{"Import", "Export"},
				Rows: []productivity.PersonRow{{
					EmployeeCode: "E001", FullName: "An",
					TotalConvertedQuantity: d("12.5"), TotalRawQuantity: d("10"), RecordCount: 2,
					Accounts: []decimal.Decimal{d("4"), d("6")},
				}},
			},
			{Name: "Summary", AccountColumns: []string{}},
		},
		Customers: []productivity.CustomerRow{{CustomerName: "abc", TotalQuantity: d("12.5"), RecordCount: 2}},
		Staff: []productivity.StaffRow{
			{Identifier: "E001", Role: productivity.RoleWorker, TotalQuantity: d("12.5"), Count: 2},
			{Identifier: "X9", Role: productivity.RoleTally, TotalQuantity: d("1"), Count: 1, Remark: productivity.RemarkNotInRoster},
		},
		TopStaff: []productivity.StaffRow{{Identifier: "E001", Role: productivity.RoleWorker, TotalQuantity: d("12.5"), Count: 2}},
		Details: []productivity.DetailRow{{
			WorkDate:         generic.MustParseDate("2024-07-05"),
			RefNo:            "CONT-1",
			Unit:             generic.DefaultUnit,
			ConversionFactor: d("1.25"),
			BillableQuantity: generic.NewQuantity(d("12.5")),
			Slots:            productivity.RoleSlots{"T01", "", "E001"},
		}},
	}
}

func TestNewReport_Sheets(t *testing.T) {
	f, err := sheet.NewReport(sampleReport())
	require.NoError(t, err)
	defer f.Close()

	// THEN: Fixed sheets plus one per cohort; the clashing cohort name is suffixed
	assert.Equal(t, []string{"Summary", "Top", "Time rate", "Summary (2)", "Customers", "Details"}, f.GetSheetList())

	staff, err := f.GetRows(sheet.SummarySheet)
	require.NoError(t, err)
	require.Len(t, staff, 3)
	assert.Equal(t, []string{"2", "X9", "Tally", "1", "1", productivity.RemarkNotInRoster}, staff[2])

	cohort, err := f.GetRows("Time rate")
	require.NoError(t, err)
	require.Len(t, cohort, 2)
	assert.Equal(t, []string{"Position", "Employee code", "Secondary code", "Full name", "Converted", "Raw", "Records", "Import", "Export"}, cohort[0])
	assert.Equal(t, "12.5", cohort[1][4])
	assert.Equal(t, "6", cohort[1][8])

	details, err := f.GetRows(sheet.DetailsSheet)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "2024-07-05", details[1][0])
	assert.Equal(t, "", details[1][5])
	assert.Equal(t, "CBM", details[1][6])
	assert.Equal(t, "E001", details[1][11])
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sheet.WriteReport(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	customers, err := f.GetRows(sheet.CustomersSheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "abc", "12.5", "2"}, customers[1])
}

func TestReportFilename(t *testing.T) {
	assert.Equal(t, "report_20240705.xlsx", sheet.ReportFilename("2024-07-05"))
}
