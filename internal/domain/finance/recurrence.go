package finance

import "time"

// Recurrence is the period between consecutive installments of a chain
type Recurrence string

const (
	RecurrenceNone       Recurrence = "NONE"
	RecurrenceMonthly    Recurrence = "MONTHLY"
	RecurrenceBimonthly  Recurrence = "BIMONTHLY"
	RecurrenceQuarterly  Recurrence = "QUARTERLY"
	RecurrenceSemiannual Recurrence = "SEMIANNUAL"
	RecurrenceAnnual     Recurrence = "ANNUAL"
)

var recurrenceMonths = map[Recurrence]int{
	RecurrenceNone:       0,
	RecurrenceMonthly:    1,
	RecurrenceBimonthly:  2,
	RecurrenceQuarterly:  3,
	RecurrenceSemiannual: 6,
	RecurrenceAnnual:     12,
}

// IsValid checks if the recurrence is known
func (r Recurrence) IsValid() bool {
	_, ok := recurrenceMonths[r]
	return ok
}

// String returns the string representation of Recurrence
func (r Recurrence) String() string {
	return string(r)
}

// IsRecurring returns false for NONE
func (r Recurrence) IsRecurring() bool {
	return r.Months() > 0
}

// Months returns the length of one period in calendar months
func (r Recurrence) Months() int {
	return recurrenceMonths[r]
}

// Advance moves date forward by the given number of recurrence periods
func (r Recurrence) Advance(date time.Time, periods int) time.Time {
	return AddMonthsClamped(date, r.Months()*periods)
}

// AddMonthsClamped adds calendar months to t. When the day does not exist in
// the target month it clamps to that month's last day, so Jan 31 + 1 month is
// Feb 28 (or 29), never Mar 2 as time.AddDate would give.
func AddMonthsClamped(t time.Time, months int) time.Time {
	if months == 0 {
		return t
	}
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	// day 1 never overflows, so time.Date normalizes year/month for us
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
