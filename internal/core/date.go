package core

import (
	"fmt"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	YearMonthLayout = "2006-01"
	TimeLayout      = "03:04 PM"
)

// DayKey returns the storage partition key for t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// YearMonth identifies one calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(YearMonthLayout, s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// YearMonthOf returns the month containing t in loc.
func YearMonthOf(t time.Time, loc *time.Location) YearMonth {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Days returns the partition key of every calendar day in the month, in order.
func (ym YearMonth) Days() []string {
	first := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
	n := first.AddDate(0, 1, -1).Day()
	days := make([]string, 0, n)
	for d := 0; d < n; d++ {
		days = append(days, first.AddDate(0, 0, d).Format(DateLayout))
	}
	return days
}

// Contains reports whether the partition key date falls in the month.
func (ym YearMonth) Contains(date string) bool {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	return t.Year() == ym.Year && t.Month() == ym.Month
}
