package records

import (
	"errors"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// Date is a calendar day in YYYY-MM-DD form. Its lexical order is its chronological order,
// which is what every date-keyed lookup in this package relies on.
type Date string

func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date(s), nil
}

func (d Date) String() string {
	return string(d)
}

// Time returns midnight UTC of the day, zero time for an invalid date.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d Date) AddDays(days int) Date {
	return DateOf(d.Time().AddDate(0, 0, days))
}

// DaysUntil returns the number of whole days from d to other (negative if other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

// Week identifies an ISO week.
type Week struct {
	Year int
	Num  int
}

func (d Date) Week() Week {
	y, w := d.Time().ISOWeek()
	return Week{Year: y, Num: w}
}
