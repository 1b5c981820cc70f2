/*
Package generic provides the domain-agnostic primitives of the productivity engine.

PURPOSE:
  This package contains the small building blocks every other package leans
  on: fixed-point quantities, calendar dates, optional date ranges, a clock,
  and the sentinel errors used across the engine. It knows nothing about
  customers, accounts, or workers.

KEY CONCEPTS IN THIS FILE (types.go):
  - Quantity: decimal.Decimal used for measured and billable amounts
  - Unit: free-text unit label attached to a conversion factor ("CBM")
  - ParseQuantity: lenient spreadsheet-cell parsing into decimal.NullDecimal

DESIGN PRINCIPLES:
  1. Precision: quantities and factors use decimal.Decimal, never float64
  2. Leniency: malformed cells become "absent", they never abort a batch
  3. Optionality: decimal.NullDecimal marks a quantity that was not supplied

USAGE:
  raw := generic.ParseQuantity("12,5")   // Valid=true, 12.5
  bad := generic.ParseQuantity("n/a")    // Valid=false
  total := generic.ValueOrZero(raw).Add(generic.ValueOrZero(bad))

SEE ALSO:
  - time.go: Date type and lenient date parsing
  - period.go: DateRange with open bounds
  - errors.go: Sentinel errors
*/
package generic

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// QUANTITY
// =============================================================================

// Unit labels a billable quantity (e.g. "CBM", "TON", "PALLET").
type Unit string

// DefaultUnit is the unit used when no conversion index applies.
const DefaultUnit Unit = "CBM"

// FactorScale is the number of decimal places a stored conversion factor
// carries.
const FactorScale int32 = 3

// One is the neutral conversion factor.
var One = decimal.NewFromInt(1)

// NewQuantity wraps a decimal as a present optional quantity.
func NewQuantity(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// NoQuantity is the absent optional quantity.
func NoQuantity() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

// ParseQuantity parses a spreadsheet cell into an optional quantity.
// Blank or unparseable input yields an invalid NullDecimal.
//
// Both "." and "," are accepted as the decimal mark. When both appear, the
// rightmost one is the decimal mark and the other must group thousands
// ("1,234.5" and "1.234,5" are both 1234.5). A lone comma is a decimal mark
// unless exactly three digits follow a non-zero integer part: "1,234" could
// mean either reading, so it is rejected rather than guessed. A repeated
// separator with no decimal mark must group thousands ("1,234,567").
func ParseQuantity(s string) decimal.NullDecimal {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return NoQuantity()
	}

	normalized, ok := canonicalNumber(s)
	if !ok {
		return NoQuantity()
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return NoQuantity()
	}
	return NewQuantity(d)
}

// canonicalNumber rewrites s with "." as the only decimal mark and no
// grouping separators.
func canonicalNumber(s string) (string, bool) {
	commas, dots := strings.Count(s, ","), strings.Count(s, ".")
	switch {
	case commas == 0 && dots <= 1:
		return s, true

	case commas > 0 && dots > 0:
		mark, group := ",", "."
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			mark, group = ".", ","
		}
		if strings.Count(s, mark) != 1 {
			return "", false
		}
		i := strings.LastIndex(s, mark)
		whole, frac := s[:i], s[i+1:]
		if !validGrouping(whole, group) {
			return "", false
		}
		return strings.ReplaceAll(whole, group, "") + "." + frac, true

	case commas == 1:
		i := strings.Index(s, ",")
		whole, frac := s[:i], s[i+1:]
		if len(frac) == 3 && isDigits(frac) && strings.TrimLeft(unsigned(whole), "0") != "" {
			return "", false
		}
		return whole + "." + frac, true

	default:
		group := ","
		if commas == 0 {
			group = "."
		}
		if !validGrouping(s, group) {
			return "", false
		}
		return strings.ReplaceAll(s, group, ""), true
	}
}

// validGrouping reports whether whole is a signed integer split into
// thousands by sep: one to three leading digits, then groups of three.
func validGrouping(whole, sep string) bool {
	groups := strings.Split(unsigned(whole), sep)
	if len(groups) < 2 || len(groups[0]) == 0 || len(groups[0]) > 3 || !isDigits(groups[0]) {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !isDigits(g) {
			return false
		}
	}
	return true
}

func unsigned(s string) string {
	return strings.TrimLeft(s, "+-")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// ValueOrZero returns the quantity's value, or zero when absent.
func ValueOrZero(q decimal.NullDecimal) decimal.Decimal {
	if !q.Valid {
		return decimal.Zero
	}
	return q.Decimal
}

// FormatQuantity renders an optional quantity for text output; absent → "".
func FormatQuantity(q decimal.NullDecimal, places int32) string {
	if !q.Valid {
		return ""
	}
	return q.Decimal.StringFixed(places)
}
