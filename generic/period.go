package generic

import "fmt"

// =============================================================================
// DATE RANGE - Inclusive report window with optional bounds
// =============================================================================

// DateRange is an inclusive window [From, To]. A nil bound is open, so the
// zero DateRange matches every date.
//
// Examples:
//   - March 2025:       {From: 2025-03-01, To: 2025-03-31}
//   - Everything since: {From: 2025-01-01, To: nil}
//   - All time:         {}
type DateRange struct {
	From *Date
	To   *Date
}

// NewDateRange builds a closed range.
func NewDateRange(from, to Date) DateRange {
	return DateRange{From: &from, To: &to}
}

// ParseDateRange parses optional ISO bounds. Blank input leaves a bound open;
// an unparseable bound or From after To is an error.
func ParseDateRange(from, to string) (DateRange, error) {
	var r DateRange
	if from != "" {
		d, ok := ParseDate(from)
		if !ok {
			return DateRange{}, fmt.Errorf("%w: from=%q", ErrInvalidRange, from)
		}
		r.From = &d
	}
	if to != "" {
		d, ok := ParseDate(to)
		if !ok {
			return DateRange{}, fmt.Errorf("%w: to=%q", ErrInvalidRange, to)
		}
		r.To = &d
	}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate rejects a range whose From is after its To.
func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return fmt.Errorf("%w: %s after %s", ErrInvalidRange, r.From, r.To)
	}
	return nil
}

// Contains reports whether d falls inside the range. A zero date is only
// inside a range with both bounds open.
func (r DateRange) Contains(d Date) bool {
	if d.IsZero() {
		return r.From == nil && r.To == nil
	}
	if r.From != nil && d.Before(*r.From) {
		return false
	}
	if r.To != nil && d.After(*r.To) {
		return false
	}
	return true
}

// IsOpen reports whether neither bound is set.
func (r DateRange) IsOpen() bool {
	return r.From == nil && r.To == nil
}

// String returns a representation like "[2025-01-01, ...]".
func (r DateRange) String() string {
	from, to := "...", "..."
	if r.From != nil {
		from = r.From.String()
	}
	if r.To != nil {
		to = r.To.String()
	}
	return "[" + from + ", " + to + "]"
}
