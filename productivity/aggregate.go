/*
aggregate.go - Productivity aggregator

PURPOSE:
  Fans each committed record out across its eight role slots and groups the
  contributions into staff buckets, per-cohort person summaries, and
  per-customer summaries. Pure and read-only: the same records and config
  always yield the same Aggregation.

ALGORITHM:
  1. Keep records whose work date is inside cfg.Range.
  2. For each record walk slots tally, lift truck, worker 1..6.
  3. Skip blank values and values whose normalized form starts with an
     exclusion prefix. A value repeated within one record counts once; the
     first slot it appears in decides its role.
  4. Add billable (absent = 0) to the (identifier, role) bucket.
  5. Look the identifier up in the roster. Unknown identifiers get the
     "not in roster" remark. Known ones feed the person summary of their
     cohort, once per record even if several aliases appear.
  6. Group records by customer name ("Other" when blank).

COMPLETE ROSTER:
  Every roster member whose employee type belongs to a cohort appears in
  that cohort's summary, with zero totals if they did no work in range.

ORDERING:
  Staff:     identifier ascending, then role (Tally, LiftTruck, Worker)
  Top:       total descending, first appearance on ties
  Customers: total descending, then name
  Cohort:    employee code ascending
  Records:   work date descending, then ID descending

SEE ALSO:
  - report.go: Shapes an Aggregation into output tables
  - catalog.go: Roster lookups
*/
package productivity

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/productivity-engine/generic"
)

// RemarkNotInRoster flags staff buckets whose identifier has no roster entry.
const RemarkNotInRoster = "not in roster"

// OtherCustomer is the bucket for records without a customer name.
const OtherCustomer = "Other"

// Cohort partitions the roster by employee type.
type Cohort struct {
	Name          string
	EmployeeTypes []string
}

// AggregateConfig is everything the aggregator reads besides records and the
// catalog. Nothing is taken from ambient state.
type AggregateConfig struct {
	Range             generic.DateRange
	ExclusionPrefixes []string
	Cohorts           []Cohort
	// TopN is the size of the top staff ranking. Zero disables it.
	TopN int
}

// StaffBucket accumulates one (identifier, role) pair.
type StaffBucket struct {
	Identifier string
	Role       Role
	Total      decimal.Decimal
	Count      int
	// EmployeeCode is set when the identifier matched the roster.
	EmployeeCode string
	Remark       string
}

// PersonSummary is one roster member's totals within a cohort.
type PersonSummary struct {
	Entry    RosterEntry
	Billable decimal.Decimal
	Raw      decimal.Decimal
	Count    int
	// RawByAccount is keyed by AccountKey(customer, account).
	RawByAccount map[string]decimal.Decimal
}

// CohortSummary lists every member of one cohort.
type CohortSummary struct {
	Name   string
	People []PersonSummary
}

// CustomerSummary totals billable quantity per customer name.
type CustomerSummary struct {
	Name  string
	Total decimal.Decimal
	Count int
}

// AccountColumn is one dynamic per-account breakdown column. Accounts of
// different customers that share a name get separate columns; their labels
// carry the customer name, as in "Import (abc)".
type AccountColumn struct {
	Key   string
	Label string
}

// AccountKey identifies an account across customers for the per-account
// breakdown. Both names are normalized.
func AccountKey(customer, account string) string {
	return Normalize(customer) + "\x00" + Normalize(account)
}

// Aggregation is the aggregator output.
type Aggregation struct {
	Range          generic.DateRange
	Records        []Record
	Staff          []StaffBucket
	Top            []StaffBucket
	Cohorts        []CohortSummary
	Customers      []CustomerSummary
	AccountColumns []AccountColumn
}

type bucketKey struct {
	id   string
	role Role
}

// Aggregate runs the full pass. It never fails; unexpected data degrades to
// zero quantities and unflagged identifiers.
func Aggregate(records []Record, cat *Catalog, cfg AggregateConfig) *Aggregation {
	prefixes := make([]string, 0, len(cfg.ExclusionPrefixes))
	for _, p := range cfg.ExclusionPrefixes {
		if n := Normalize(p); n != "" {
			prefixes = append(prefixes, n)
		}
	}

	agg := &Aggregation{Range: cfg.Range}
	for _, rec := range records {
		if cfg.Range.Contains(rec.WorkDate) {
			agg.Records = append(agg.Records, rec)
		}
	}
	sort.SliceStable(agg.Records, func(i, j int) bool {
		a, b := agg.Records[i], agg.Records[j]
		if !a.WorkDate.Equal(b.WorkDate) {
			return a.WorkDate.After(b.WorkDate)
		}
		return a.ID > b.ID
	})

	cohortOf, people := seedCohorts(cat, cfg.Cohorts)

	buckets := make(map[bucketKey]*StaffBucket)
	var order []*StaffBucket
	customers := make(map[string]*CustomerSummary)
	var customerOrder []*CustomerSummary

	for _, rec := range agg.Records {
		billable := generic.ValueOrZero(rec.BillableQuantity)
		raw := generic.ValueOrZero(rec.RawQuantity)
		column := ""
		if Normalize(rec.AccountName) != "" {
			column = AccountKey(rec.CustomerName, rec.AccountName)
		}

		seenIDs := make(map[string]bool, RoleSlotCount)
		seenPeople := make(map[string]bool, RoleSlotCount)
		for i, v := range rec.Slots {
			display := strings.TrimSpace(v)
			key := Normalize(display)
			if key == "" || seenIDs[key] || hasAnyPrefix(key, prefixes) {
				continue
			}
			seenIDs[key] = true

			bk := bucketKey{key, SlotRole(i)}
			b, ok := buckets[bk]
			if !ok {
				b = &StaffBucket{Identifier: display, Role: bk.role, Total: decimal.Zero}
				if e, found := cat.RosterByIdentifier(key); found {
					b.EmployeeCode = e.EmployeeCode
				} else {
					b.Remark = RemarkNotInRoster
				}
				buckets[bk] = b
				order = append(order, b)
			}
			b.Total = b.Total.Add(billable)
			b.Count++

			if b.EmployeeCode == "" || seenPeople[b.EmployeeCode] {
				continue
			}
			seenPeople[b.EmployeeCode] = true
			ci, inCohort := cohortOf[b.EmployeeCode]
			if !inCohort {
				continue
			}
			p := people[ci][b.EmployeeCode]
			p.Billable = p.Billable.Add(billable)
			p.Raw = p.Raw.Add(raw)
			p.Count++
			if column != "" {
				p.RawByAccount[column] = p.RawByAccount[column].Add(raw)
			}
		}

		name := strings.TrimSpace(rec.CustomerName)
		if name == "" {
			name = OtherCustomer
		}
		ck := Normalize(name)
		cs, ok := customers[ck]
		if !ok {
			cs = &CustomerSummary{Name: name, Total: decimal.Zero}
			customers[ck] = cs
			customerOrder = append(customerOrder, cs)
		}
		cs.Total = cs.Total.Add(billable)
		cs.Count++
	}

	agg.Staff = make([]StaffBucket, 0, len(order))
	for _, b := range order {
		agg.Staff = append(agg.Staff, *b)
	}
	agg.Top = topStaff(agg.Staff, cfg.TopN)
	sort.SliceStable(agg.Staff, func(i, j int) bool {
		a, b := agg.Staff[i], agg.Staff[j]
		if a.Identifier != b.Identifier {
			return a.Identifier < b.Identifier
		}
		return roleRank(a.Role) < roleRank(b.Role)
	})

	for _, cs := range customerOrder {
		agg.Customers = append(agg.Customers, *cs)
	}
	sort.SliceStable(agg.Customers, func(i, j int) bool {
		a, b := agg.Customers[i], agg.Customers[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})

	for i, c := range cfg.Cohorts {
		cs := CohortSummary{Name: c.Name}
		for _, p := range people[i] {
			cs.People = append(cs.People, *p)
		}
		sort.Slice(cs.People, func(a, b int) bool {
			return cs.People[a].Entry.EmployeeCode < cs.People[b].Entry.EmployeeCode
		})
		agg.Cohorts = append(agg.Cohorts, cs)
	}

	agg.AccountColumns = accountColumns(cat)
	return agg
}

// seedCohorts creates a zero summary for every roster member of every cohort.
// A member whose type appears in several cohorts joins the first.
func seedCohorts(cat *Catalog, cohorts []Cohort) (map[string]int, []map[string]*PersonSummary) {
	typeCohort := make(map[string]int)
	for i, c := range cohorts {
		for _, t := range c.EmployeeTypes {
			if _, taken := typeCohort[Normalize(t)]; !taken {
				typeCohort[Normalize(t)] = i
			}
		}
	}

	cohortOf := make(map[string]int)
	people := make([]map[string]*PersonSummary, len(cohorts))
	for i := range people {
		people[i] = make(map[string]*PersonSummary)
	}
	for _, e := range cat.Roster() {
		ci, ok := typeCohort[Normalize(e.EmployeeType)]
		if !ok || e.EmployeeCode == "" {
			continue
		}
		if _, dup := cohortOf[e.EmployeeCode]; dup {
			continue
		}
		cohortOf[e.EmployeeCode] = ci
		people[ci][e.EmployeeCode] = &PersonSummary{
			Entry:        e,
			Billable:     decimal.Zero,
			Raw:          decimal.Zero,
			RawByAccount: make(map[string]decimal.Decimal),
		}
	}
	return cohortOf, people
}

// topStaff ranks buckets by total, keeping first-appearance order on ties.
func topStaff(staff []StaffBucket, n int) []StaffBucket {
	if n <= 0 || len(staff) == 0 {
		return nil
	}
	ranked := append([]StaffBucket(nil), staff...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total.GreaterThan(ranked[j].Total)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// accountColumns lists one column per indexed account. An account name shared
// by several customers is qualified with the customer name.
func accountColumns(cat *Catalog) []AccountColumn {
	type column struct {
		AccountColumn
		name     string
		customer string
	}
	seen := make(map[string]bool)
	nameCount := make(map[string]int)
	var cols []column
	for _, a := range cat.IndexedAccounts() {
		if Normalize(a.Name) == "" {
			continue
		}
		customer, _ := cat.CustomerByID(a.CustomerID)
		k := AccountKey(customer.Name, a.Name)
		if seen[k] {
			continue
		}
		seen[k] = true
		nameCount[Normalize(a.Name)]++
		cols = append(cols, column{AccountColumn{Key: k, Label: a.Name}, a.Name, customer.Name})
	}

	out := make([]AccountColumn, 0, len(cols))
	for _, c := range cols {
		if nameCount[Normalize(c.name)] > 1 {
			c.Label = c.name + " (" + c.customer + ")"
		}
		out = append(out, c.AccountColumn)
	}
	return out
}
