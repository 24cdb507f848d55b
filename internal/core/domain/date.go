package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrInvalidDate = errors.New("invalid date (must be YYYY-MM-DD)")
)

const (
	DateLayout      = "2006-01-02"
	AvgDaysInMonth  = 30
	DaysInWeek      = 7
	secondsInOneDay = 24 * 60 * 60
)

// Date is a calendar day without time of day or zone. The zero value is the
// zero date and is never a tracked day.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool {
	return d.t.IsZero()
}

func (d Date) Year() int {
	return d.t.Year()
}

func (d Date) Month() time.Month {
	return d.t.Month()
}

func (d Date) Day() int {
	return d.t.Day()
}

func (d Date) Weekday() time.Weekday {
	return d.t.Weekday()
}

func (d Date) Time() time.Time {
	return d.t
}

func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

func (d Date) NextDay() Date {
	return d.AddDays(1)
}

func (d Date) PreviousDay() Date {
	return d.AddDays(-1)
}

// DaysUntil returns the number of days from d to other; negative when other
// is before d.
func (d Date) DaysUntil(other Date) int {
	return int((other.t.Unix() - d.t.Unix()) / secondsInOneDay)
}

func (d Date) WeeksUntil(other Date) int {
	return d.DaysUntil(other) / DaysInWeek
}

func (d Date) MonthsUntil(other Date) int {
	return d.DaysUntil(other) / AvgDaysInMonth
}

func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

func (d Date) Compare(other Date) int {
	return d.t.Compare(other.t)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// PreviousDays returns the n days strictly before d, oldest first.
func (d Date) PreviousDays(n int) []Date {
	days := make([]Date, 0, n)
	for i := n; i >= 1; i-- {
		days = append(days, d.AddDays(-i))
	}
	return days
}

// PreviousDaysInclusive returns the n days ending at d, oldest first.
func (d Date) PreviousDaysInclusive(n int) []Date {
	days := make([]Date, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, d.AddDays(-i))
	}
	return days
}

// DatesBetween returns every day in [from, until), oldest first.
func DatesBetween(from, until Date) []Date {
	var days []Date
	for d := from; d.Before(until); d = d.NextDay() {
		days = append(days, d)
	}
	return days
}

func SortDates(dates []Date) {
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
}

func ContainsDate(dates []Date, d Date) bool {
	for _, candidate := range dates {
		if candidate == d {
			return true
		}
	}
	return false
}

// AvgDaysBetween is the mean gap in days between consecutive dates after
// sorting. It returns 0 for fewer than two dates.
func AvgDaysBetween(dates []Date) float64 {
	if len(dates) < 2 {
		return 0
	}
	sorted := make([]Date, len(dates))
	copy(sorted, dates)
	SortDates(sorted)

	total := 0
	for i := 0; i < len(sorted)-1; i++ {
		total += sorted[i].DaysUntil(sorted[i+1])
	}
	return float64(total) / float64(len(sorted)-1)
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v.UTC())
		return nil
	case string:
		return d.parseInto(v)
	case []byte:
		return d.parseInto(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) parseInto(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	return d.parseInto(string(text))
}
