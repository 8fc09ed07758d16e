/*
calendar.go - Calendar dates and the business-day calculator

PURPOSE:
  Defines the Date type (calendar day, no time-of-day, no timezone) and the
  pure function that converts an inclusive date range plus a holiday set
  into a chargeable day count.

BUSINESS DAYS:
  A day is chargeable when it is neither a weekend day (Saturday/Sunday)
  nor a public holiday. The count is computed by scanning the inclusive
  range once; full weeks are skipped in O(1) since every week contributes
  exactly five weekdays before holiday subtraction.

PURITY:
  BusinessDays has no state and no I/O. The same (range, holiday set)
  always yields the same count, which is what lets request day counts be
  frozen at submission time.

SEE ALSO:
  - lifecycle.go: Calls BusinessDays once per submission
  - types.go: Holiday entity
*/
package engine

import "time"

// =============================================================================
// DATE - A calendar day
// =============================================================================

// Date is a calendar day with no time-of-day component. All dates are
// normalized to midnight UTC so equality and ordering behave as calendar
// comparisons.
type Date struct {
	t time.Time
}

// NewDate constructs a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.t.Format("2006-01-02") }

// DaysBetween returns the number of calendar days from 'from' to 'to'.
// Negative when 'to' precedes 'from'.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// =============================================================================
// HOLIDAY SET - Membership lookup for the calculator
// =============================================================================

// HolidaySet answers "is this date a holiday?". Keys are Date values, so a
// set built from store rows works directly with BusinessDays.
type HolidaySet map[Date]bool

// NewHolidaySet builds a set from holiday entities.
func NewHolidaySet(holidays []Holiday) HolidaySet {
	set := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		set[h.Date] = true
	}
	return set
}

// Contains reports whether the date is in the set. Safe on a nil set.
func (s HolidaySet) Contains(d Date) bool { return s[d] }

// =============================================================================
// BUSINESS DAY CALCULATOR
// =============================================================================

// BusinessDays returns the count of days in [start, end] (inclusive) that are
// neither weekend days nor holidays. The caller guarantees start <= end; a
// reversed range yields 0.
//
// Full weeks are counted in O(1): seven consecutive days always contain five
// weekdays, so only the holiday subtraction needs the individual dates. The
// remaining partial week is scanned day by day. Results are identical to a
// plain scan of the whole range.
func BusinessDays(start, end Date, holidays HolidaySet) int {
	if start.After(end) {
		return 0
	}

	count := 0
	current := start

	// Whole weeks: five weekdays each, minus weekday holidays inside.
	for DaysBetween(current, end) >= 6 {
		count += 5
		for i := 0; i < 7; i++ {
			d := current.AddDays(i)
			if !d.IsWeekend() && holidays.Contains(d) {
				count--
			}
		}
		current = current.AddDays(7)
	}

	// Trailing partial week.
	for current.BeforeOrEqual(end) {
		if !current.IsWeekend() && !holidays.Contains(current) {
			count++
		}
		current = current.AddDays(1)
	}

	return count
}
