package productivity

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/productivity-engine/generic"
	"golang.org/x/sync/errgroup"
)

// ReportPlaces is the number of decimals quantities are rounded to for output.
const ReportPlaces int32 = 3

// =============================================================================
// REPORT TABLES
// =============================================================================

// Report is the set of named tables handed to the rendering layer.
type Report struct {
	Range     generic.DateRange
	Cohorts   []CohortTable
	Customers []CustomerRow
	Staff     []StaffRow
	TopStaff  []StaffRow
	Details   []DetailRow
}

// CohortTable is one cohort's person summary. Accounts on every row line up
// with AccountColumns.
type CohortTable struct {
	Name           string
	AccountColumns []string
	Rows           []PersonRow
}

type PersonRow struct {
	Position               string
	EmployeeCode           string
	SecondaryCode          string
	FullName               string
	TotalConvertedQuantity decimal.Decimal
	TotalRawQuantity       decimal.Decimal
	RecordCount            int
	Accounts               []decimal.Decimal
}

type CustomerRow struct {
	CustomerName  string
	TotalQuantity decimal.Decimal
	RecordCount   int
}

type StaffRow struct {
	Identifier    string
	Role          Role
	TotalQuantity decimal.Decimal
	Count         int
	Remark        string
}

// DetailRow passes a committed record through with rounded quantities.
type DetailRow struct {
	WorkDate         generic.Date
	RefNo            string
	RawQuantity      decimal.NullDecimal
	Slots            RoleSlots
	TaskName         string
	AccountName      string
	CustomerName     string
	Unit             generic.Unit
	ConversionFactor decimal.Decimal
	BillableQuantity decimal.NullDecimal
}

// BuildReport shapes an aggregation into output tables. No new totals are
// computed here; only column selection and rounding.
func BuildReport(agg *Aggregation) *Report {
	rep := &Report{Range: agg.Range}

	labels := make([]string, len(agg.AccountColumns))
	for i, c := range agg.AccountColumns {
		labels[i] = c.Label
	}
	for _, cs := range agg.Cohorts {
		t := CohortTable{Name: cs.Name, AccountColumns: labels, Rows: make([]PersonRow, 0, len(cs.People))}
		for _, p := range cs.People {
			row := PersonRow{
				Position:               p.Entry.Position,
				EmployeeCode:           p.Entry.EmployeeCode,
				SecondaryCode:          p.Entry.SecondaryCode,
				FullName:               p.Entry.FullName,
				TotalConvertedQuantity: p.Billable.Round(ReportPlaces),
				TotalRawQuantity:       p.Raw.Round(ReportPlaces),
				RecordCount:            p.Count,
				Accounts:               make([]decimal.Decimal, len(agg.AccountColumns)),
			}
			for i, c := range agg.AccountColumns {
				row.Accounts[i] = p.RawByAccount[c.Key].Round(ReportPlaces)
			}
			t.Rows = append(t.Rows, row)
		}
		rep.Cohorts = append(rep.Cohorts, t)
	}

	for _, c := range agg.Customers {
		rep.Customers = append(rep.Customers, CustomerRow{
			CustomerName:  c.Name,
			TotalQuantity: c.Total.Round(ReportPlaces),
			RecordCount:   c.Count,
		})
	}
	rep.Staff = staffRows(agg.Staff)
	rep.TopStaff = staffRows(agg.Top)

	for _, r := range agg.Records {
		rep.Details = append(rep.Details, DetailRow{
			WorkDate:         r.WorkDate,
			RefNo:            r.RefNo,
			RawQuantity:      roundNull(r.RawQuantity),
			Slots:            r.Slots,
			TaskName:         r.TaskName,
			AccountName:      r.AccountName,
			CustomerName:     r.CustomerName,
			Unit:             r.Unit,
			ConversionFactor: r.ConversionFactor.Round(ReportPlaces),
			BillableQuantity: roundNull(r.BillableQuantity),
		})
	}
	return rep
}

func staffRows(in []StaffBucket) []StaffRow {
	out := make([]StaffRow, 0, len(in))
	for _, b := range in {
		out = append(out, StaffRow{
			Identifier:    b.Identifier,
			Role:          b.Role,
			TotalQuantity: b.Total.Round(ReportPlaces),
			Count:         b.Count,
			Remark:        b.Remark,
		})
	}
	return out
}

func roundNull(q decimal.NullDecimal) decimal.NullDecimal {
	if !q.Valid {
		return q
	}
	return generic.NewQuantity(q.Decimal.Round(ReportPlaces))
}

// =============================================================================
// REPORTER - Loads, aggregates, shapes
// =============================================================================

// ReportSource is what the Reporter reads.
type ReportSource interface {
	CatalogSource
	RecordStore
	SettingsStore
}

// Reporter builds reports from committed records. Base carries cohorts, the
// top-N size and the fallback exclusion prefixes; the stored setting wins
// over the fallback when present.
type Reporter struct {
	store  ReportSource
	base   AggregateConfig
	logger logrus.FieldLogger
}

func NewReporter(store ReportSource, base AggregateConfig, logger logrus.FieldLogger) *Reporter {
	return &Reporter{store: store, base: base, logger: loggerOrDiscard(logger)}
}

// Defaults returns the base configuration the reporter was built with.
func (r *Reporter) Defaults() AggregateConfig {
	return r.base
}

// Aggregate loads records in range, the current catalog and the stored
// prefixes concurrently, then aggregates.
func (r *Reporter) Aggregate(ctx context.Context, rng generic.DateRange) (*Aggregation, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	var (
		prefixes []string
		snap     CatalogSnapshot
		records  []Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prefixes, err = LoadExclusionPrefixes(gctx, r.store, r.base.ExclusionPrefixes)
		return err
	})
	g.Go(func() error {
		var err error
		if snap, err = r.store.LoadCatalog(gctx); err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if records, err = r.store.ListRecords(gctx, rng); err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cfg := r.base
	cfg.Range = rng
	cfg.ExclusionPrefixes = prefixes
	agg := Aggregate(records, NewCatalog(snap), cfg)

	r.logger.WithFields(logrus.Fields{
		"range":     rng.String(),
		"records":   len(agg.Records),
		"staff":     len(agg.Staff),
		"customers": len(agg.Customers),
	}).Debug("aggregated productivity")
	return agg, nil
}

// Build returns the report tables for rng.
func (r *Reporter) Build(ctx context.Context, rng generic.DateRange) (*Report, error) {
	agg, err := r.Aggregate(ctx, rng)
	if err != nil {
		return nil, err
	}
	return BuildReport(agg), nil
}
