package generic

import (
	"encoding/json"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day without time of day
// =============================================================================

// Date is a calendar day in UTC. The zero value means "no date".
type Date struct {
	Time time.Time
}

// DateLayout is the canonical storage and wire format.
const DateLayout = "2006-01-02"

// dateLayouts are tried in order by ParseDate. Slash and dash forms are day
// first, which is how the operation writes dates in its spreadsheets.
var dateLayouts = []string{
	DateLayout,
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006/01/02",
	"02.01.2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// NewDate builds a Date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses s with the accepted layouts. The bool is false for blank
// or unrecognized input; callers store that as a null date.
func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), true
		}
	}
	if len(s) >= 10 {
		if t, err := time.Parse(DateLayout, s[:10]); err == nil {
			return DateOf(t), true
		}
	}
	return Date{}, false
}

// MustParseDate parses an ISO date and panics otherwise. Test and seed helper.
func MustParseDate(s string) Date {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return DateOf(d)
}

// Comparison
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }
func (d Date) IsZero() bool       { return d.Time.IsZero() }

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD" or null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts anything ParseDate accepts; null or "" is the zero date.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*d = Date{}
		return nil
	}
	parsed, _ := ParseDate(*s)
	*d = parsed
	return nil
}

// =============================================================================
// CLOCK
// =============================================================================

// Clock abstracts time.Now so audit timestamps are testable.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }
