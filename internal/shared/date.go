package shared

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// Date is a Jalali calendar date kept in its stored "YYYY/MM/DD" form.
// Values compare lexically, which matches chronological order for well-formed dates.
type Date string

// ParseDate checks the layout of a Jalali date and that the day exists in
// that year's calendar, so Esfand 30 is only accepted in leap years.
func ParseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if _, err := parseJalali(raw); err != nil {
		return "", err
	}
	return Date(raw), nil
}

func parseJalali(raw string) (ptime.Time, error) {
	parts := strings.Split(raw, "/")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return ptime.Time{}, NewValidationError("date", fmt.Sprintf("%q is not in YYYY/MM/DD form", raw))
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1 {
		return ptime.Time{}, NewValidationError("date", fmt.Sprintf("invalid year in %q", raw))
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return ptime.Time{}, NewValidationError("date", fmt.Sprintf("invalid month in %q", raw))
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil || day < 1 || day > 31 {
		return ptime.Time{}, NewValidationError("date", fmt.Sprintf("invalid day in %q", raw))
	}
	pt := ptime.New(ptime.Date(year, ptime.Month(month), day, 0, 0, 0, 0, time.UTC).Time())
	if pt.Year() != year || int(pt.Month()) != month || pt.Day() != day {
		return ptime.Time{}, NewValidationError("date", fmt.Sprintf("%q does not exist in the Jalali calendar", raw))
	}
	return pt, nil
}

// Month returns the "YYYY/MM" prefix.
func (d Date) Month() string {
	if len(d) < 7 {
		return string(d)
	}
	return string(d[:7])
}

// IsZero reports whether the date is empty.
func (d Date) IsZero() bool { return d == "" }

func (d Date) String() string { return string(d) }

// DateRange is an inclusive range of Jalali dates.
type DateRange struct {
	Start Date
	End   Date
}

// NewDateRange validates both ends and their order.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	if e < s {
		return DateRange{}, NewValidationError("end", "end date is before start date")
	}
	return DateRange{Start: s, End: e}, nil
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	return d >= r.Start && d <= r.End
}

// DateOf returns the Jalali date of t in t's location.
func DateOf(t time.Time) Date {
	pt := ptime.New(t)
	return Date(fmt.Sprintf("%04d/%02d/%02d", pt.Year(), int(pt.Month()), pt.Day()))
}

// Today returns a clock reporting the current Jalali date in loc.
func Today(loc *time.Location) func() Date {
	if loc == nil {
		loc = time.UTC
	}
	return func() Date { return DateOf(time.Now().In(loc)) }
}

// Time returns midnight UTC of the Gregorian day d falls on.
func (d Date) Time() (time.Time, error) {
	pt, err := parseJalali(string(d))
	if err != nil {
		return time.Time{}, err
	}
	return pt.Time(), nil
}

// AddDays shifts d by n calendar days.
func (d Date) AddDays(n int) (Date, error) {
	t, err := d.Time()
	if err != nil {
		return "", err
	}
	return DateOf(t.AddDate(0, 0, n)), nil
}

// MonthRange spans every day of the month d falls in.
func (d Date) MonthRange() DateRange {
	m := d.Month()
	return DateRange{Start: Date(m + "/01"), End: Date(m + "/31")}
}
