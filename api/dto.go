/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes for the HTTP surface. Domain types stay free of JSON tags;
  these types carry the wire names and the request validation rules.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags and are checked by
  decodeAndValidate in handlers.go before any domain call.

QUANTITIES:
  Decimals are rendered as JSON strings ("12.5") so no precision is lost
  on the way to the client. Absent quantities are null.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
)

// =============================================================================
// IMPORT
// =============================================================================

// StagingRowDTO is one staged spreadsheet line.
type StagingRowDTO struct {
	ID          int64                            `json:"id"`
	Date        string                           `json:"date" validate:"max=64"`
	ContainerNo string                           `json:"container_no" validate:"max=128"`
	RawQuantity string                           `json:"raw_quantity" validate:"max=64"`
	Tally       string                           `json:"tally" validate:"max=128"`
	LiftTruck   string                           `json:"lift_truck" validate:"max=128"`
	Workers     [productivity.WorkerSlots]string `json:"workers" validate:"dive,max=128"`
	Task        string                           `json:"task" validate:"max=255"`
	Account     string                           `json:"account" validate:"max=255"`
	Customer    string                           `json:"customer" validate:"max=255"`
}

// UpdateStagingRowRequest edits one staged row. The ID comes from the path.
type UpdateStagingRowRequest struct {
	StagingRowDTO
}

// RowErrorDTO is one resolution problem.
type RowErrorDTO struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// PreviewRowDTO pairs a staged row with its validity.
type PreviewRowDTO struct {
	StagingRowDTO
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// PreviewDTO is the review screen for the staged batch.
type PreviewDTO struct {
	Rows      []PreviewRowDTO `json:"rows"`
	Errors    []RowErrorDTO   `json:"errors"`
	HasErrors bool            `json:"has_errors"`
}

// StageResponse is returned after an upload.
type StageResponse struct {
	Staged  int        `json:"staged"`
	Preview PreviewDTO `json:"preview"`
}

// CommitResultDTO is returned by a successful confirm.
type CommitResultDTO struct {
	RunID string `json:"run_id"`
	Count int    `json:"count"`
}

// ImportRunDTO is one audit row.
type ImportRunDTO struct {
	ID          string `json:"id"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	RowCount    int    `json:"row_count"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// =============================================================================
// RECORDS AND REPORTS
// =============================================================================

// RecordDTO is a committed productivity record.
type RecordDTO struct {
	ID               int64                            `json:"id"`
	WorkDate         generic.Date                     `json:"work_date"`
	RefNo            string                           `json:"ref_no"`
	RawQuantity      decimal.NullDecimal              `json:"raw_quantity"`
	Tally            string                           `json:"tally"`
	LiftTruck        string                           `json:"lift_truck"`
	Workers          [productivity.WorkerSlots]string `json:"workers"`
	TaskName         string                           `json:"task_name"`
	AccountName      string                           `json:"account_name"`
	CustomerName     string                           `json:"customer_name"`
	Unit             string                           `json:"unit"`
	ConversionFactor decimal.Decimal                  `json:"conversion_factor"`
	BillableQuantity decimal.NullDecimal              `json:"billable_quantity"`
	ImportRunID      string                           `json:"import_run_id,omitempty"`
}

// ReportDTO mirrors productivity.Report.
type ReportDTO struct {
	From      *generic.Date    `json:"from"`
	To        *generic.Date    `json:"to"`
	Cohorts   []CohortTableDTO `json:"cohorts"`
	Customers []CustomerRowDTO `json:"customers"`
	Staff     []StaffRowDTO    `json:"staff"`
	TopStaff  []StaffRowDTO    `json:"top_staff"`
	Details   []RecordDTO      `json:"details"`
}

type CohortTableDTO struct {
	Name           string         `json:"name"`
	AccountColumns []string       `json:"account_columns"`
	Rows           []PersonRowDTO `json:"rows"`
}

type PersonRowDTO struct {
	Position               string            `json:"position"`
	EmployeeCode           string            `json:"employee_code"`
	SecondaryCode          string            `json:"secondary_code"`
	FullName               string            `json:"full_name"`
	TotalConvertedQuantity decimal.Decimal   `json:"total_converted_quantity"`
	TotalRawQuantity       decimal.Decimal   `json:"total_raw_quantity"`
	RecordCount            int               `json:"record_count"`
	Accounts               []decimal.Decimal `json:"accounts"`
}

type CustomerRowDTO struct {
	CustomerName  string          `json:"customer_name"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	RecordCount   int             `json:"record_count"`
}

type StaffRowDTO struct {
	Identifier    string          `json:"identifier"`
	Role          string          `json:"role"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	Count         int             `json:"count"`
	Remark        string          `json:"remark,omitempty"`
}

// =============================================================================
// SETTINGS AND CATALOG
// =============================================================================

// PrefixesDTO is the exclusion-prefix setting.
type PrefixesDTO struct {
	Prefixes []string `json:"prefixes"`
	Value    string   `json:"value"`
}

// UpdatePrefixesRequest sets the exclusion prefixes from free text.
type UpdatePrefixesRequest struct {
	Value string `json:"value" validate:"max=1024"`
}

type CustomerDTO struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type AccountDTO struct {
	ID         int64  `json:"id"`
	CustomerID int64  `json:"customer_id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`
}

type TaskDTO struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"account_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
}

type EmployeeDTO struct {
	ID            int64  `json:"id"`
	EmployeeCode  string `json:"employee_code"`
	SecondaryCode string `json:"secondary_code"`
	FullName      string `json:"full_name"`
	EmployeeType  string `json:"employee_type"`
	Position      string `json:"position"`
	Active        bool   `json:"active"`
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Details   string            `json:"details,omitempty"`
	RowErrors []RowErrorDTO     `json:"row_errors,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toStagingRowDTO(r productivity.StagingRow) StagingRowDTO {
	return StagingRowDTO{
		ID:          int64(r.ID),
		Date:        r.Date,
		ContainerNo: r.ContainerNo,
		RawQuantity: r.RawQuantity,
		Tally:       r.Tally,
		LiftTruck:   r.LiftTruck,
		Workers:     r.Workers,
		Task:        r.Task,
		Account:     r.Account,
		Customer:    r.Customer,
	}
}

func (d StagingRowDTO) toDomain() productivity.StagingRow {
	return productivity.StagingRow{
		ID:          productivity.StagingRowID(d.ID),
		Date:        d.Date,
		ContainerNo: d.ContainerNo,
		RawQuantity: d.RawQuantity,
		Tally:       d.Tally,
		LiftTruck:   d.LiftTruck,
		Workers:     d.Workers,
		Task:        d.Task,
		Account:     d.Account,
		Customer:    d.Customer,
	}
}

func toRowErrorDTOs(errs []productivity.RowError) []RowErrorDTO {
	out := make([]RowErrorDTO, 0, len(errs))
	for _, e := range errs {
		out = append(out, RowErrorDTO{Row: e.Row, Message: e.Message, Value: e.Value})
	}
	return out
}

func toPreviewDTO(p *productivity.Preview) PreviewDTO {
	dto := PreviewDTO{
		Rows:      make([]PreviewRowDTO, 0, len(p.Rows)),
		Errors:    toRowErrorDTOs(p.Errors),
		HasErrors: p.HasErrors(),
	}
	for _, pr := range p.Rows {
		row := PreviewRowDTO{StagingRowDTO: toStagingRowDTO(pr.Row), Valid: pr.Error == nil, Errors: []string{}}
		if pr.Error != nil {
			row.Errors = append(row.Errors, pr.Error.Message)
		}
		dto.Rows = append(dto.Rows, row)
	}
	return dto
}

func toImportRunDTO(r productivity.ImportRun) ImportRunDTO {
	dto := ImportRunDTO{
		ID:        r.ID,
		StartedAt: r.StartedAt.Format(time.RFC3339),
		RowCount:  r.RowCount,
		Status:    string(r.Status),
		Error:     r.Error,
	}
	if !r.CompletedAt.IsZero() {
		dto.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

func toRecordDTO(r productivity.Record) RecordDTO {
	dto := RecordDTO{
		ID:               int64(r.ID),
		WorkDate:         r.WorkDate,
		RefNo:            r.RefNo,
		RawQuantity:      r.RawQuantity,
		Tally:            r.Slots[0],
		LiftTruck:        r.Slots[1],
		TaskName:         r.TaskName,
		AccountName:      r.AccountName,
		CustomerName:     r.CustomerName,
		Unit:             string(r.Unit),
		ConversionFactor: r.ConversionFactor,
		BillableQuantity: r.BillableQuantity,
		ImportRunID:      r.ImportRunID,
	}
	copy(dto.Workers[:], r.Slots[2:])
	return dto
}

func toDetailDTO(d productivity.DetailRow) RecordDTO {
	dto := RecordDTO{
		WorkDate:         d.WorkDate,
		RefNo:            d.RefNo,
		RawQuantity:      d.RawQuantity,
		Tally:            d.Slots[0],
		LiftTruck:        d.Slots[1],
		TaskName:         d.TaskName,
		AccountName:      d.AccountName,
		CustomerName:     d.CustomerName,
		Unit:             string(d.Unit),
		ConversionFactor: d.ConversionFactor,
		BillableQuantity: d.BillableQuantity,
	}
	copy(dto.Workers[:], d.Slots[2:])
	return dto
}

func toStaffDTOs(rows []productivity.StaffRow) []StaffRowDTO {
	out := make([]StaffRowDTO, 0, len(rows))
	for _, s := range rows {
		out = append(out, StaffRowDTO{
			Identifier:    s.Identifier,
			Role:          string(s.Role),
			TotalQuantity: s.TotalQuantity,
			Count:         s.Count,
			Remark:        s.Remark,
		})
	}
	return out
}

func toReportDTO(rep *productivity.Report) ReportDTO {
	dto := ReportDTO{
		From:      rep.Range.From,
		To:        rep.Range.To,
		Cohorts:   make([]CohortTableDTO, 0, len(rep.Cohorts)),
		Customers: make([]CustomerRowDTO, 0, len(rep.Customers)),
		Staff:     toStaffDTOs(rep.Staff),
		TopStaff:  toStaffDTOs(rep.TopStaff),
		Details:   make([]RecordDTO, 0, len(rep.Details)),
	}
	for _, c := range rep.Cohorts {
		t := CohortTableDTO{Name: c.Name, AccountColumns: c.AccountColumns, Rows: make([]PersonRowDTO, 0, len(c.Rows))}
		for _, p := range c.Rows {
			t.Rows = append(t.Rows, PersonRowDTO{
				Position:               p.Position,
				EmployeeCode:           p.EmployeeCode,
				SecondaryCode:          p.SecondaryCode,
				FullName:               p.FullName,
				TotalConvertedQuantity: p.TotalConvertedQuantity,
				TotalRawQuantity:       p.TotalRawQuantity,
				RecordCount:            p.RecordCount,
				Accounts:               p.Accounts,
			})
		}
		dto.Cohorts = append(dto.Cohorts, t)
	}
	for _, c := range rep.Customers {
		dto.Customers = append(dto.Customers, CustomerRowDTO(c))
	}
	for _, d := range rep.Details {
		dto.Details = append(dto.Details, toDetailDTO(d))
	}
	return dto
}
