package sjrako

import (
	"fmt"
	"time"

	"sjrako-backend/lib/timezone"
)

// past this hour (portal local time) tomorrow's order is frozen too
const ChangeCutoffHour = 16

// czech genitive month names, as the portal displays them
var monthNames = [13]string{
	"?", "ledna", "února", "března", "dubna", "května", "června",
	"července", "srpna", "září", "října", "listopadu", "prosince",
}

// Date is a calendar day in the portal's timezone. The zero value is
// not a valid date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) (Date, error) {
	if month < time.January || month > time.December {
		return Date{}, fmt.Errorf("%w: month %d is out of range", ErrInvalidDate, month)
	}
	if day < 1 || day > daysInMonth(year, month) {
		return Date{}, fmt.Errorf("%w: day %d is out of range for %s %d", ErrInvalidDate, day, month, year)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

func daysInMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, timezone.Location).Day()
}

func DateOf(t time.Time) Date {
	t = t.In(timezone.Location)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func Today() Date {
	return DateOf(timezone.Now())
}

func Tomorrow() Date {
	return Today().AddDays(1)
}

// ParseISO parses a strict "YYYY-MM-DD" calendar date.
func ParseISO(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, timezone.Location)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q is not an ISO date", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) MonthName() string {
	if d.Month < time.January || d.Month > time.December {
		return monthNames[0]
	}
	return monthNames[d.Month]
}

func (d Date) String() string {
	return fmt.Sprintf("%d. %s %d", d.Day, d.MonthName(), d.Year)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight of the date in the portal's timezone.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, timezone.Location)
}

func (d Date) AddDays(days int) Date {
	return DateOf(d.Time().AddDate(0, 0, days))
}

// Compare orders dates chronologically: -1 when d is earlier than
// other, 0 when equal, 1 when later.
func (d Date) Compare(other Date) int {
	if d.Year != other.Year {
		return sign(d.Year - other.Year)
	}
	if d.Month != other.Month {
		return sign(int(d.Month) - int(other.Month))
	}
	return sign(d.Day - other.Day)
}

func sign(n int) int {
	if n < 0 {
		return -1
	}
	if n > 0 {
		return 1
	}
	return 0
}

func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

// IsChangeable reports whether the intra-day rules still allow
// changing this date's order at the given time: today and past days
// are frozen, and tomorrow freezes at the afternoon cutoff. Whether
// the portal actually has a menu published for the date is portal
// state, queried through the menu repository, not computed here.
func (d Date) IsChangeable(now time.Time) bool {
	today := DateOf(now)
	if !today.Before(d) {
		return false
	}
	if d == today.AddDays(1) && now.In(timezone.Location).Hour() >= ChangeCutoffHour {
		return false
	}
	return true
}
