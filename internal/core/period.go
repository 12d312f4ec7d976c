package core

import (
	"fmt"
	"strings"
	"time"
)

// Period identifies one tracked calendar month.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// NewPeriod returns the period containing t.
func NewPeriod(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// PeriodOf builds a period from a year and a zero-based month index.
// Indexes outside [0,11] carry into the year.
func PeriodOf(year, monthIndex int) Period {
	return Period{Year: year, Month: time.January}.Shift(monthIndex)
}

// ParsePeriod validates a 1-12 month number.
func ParsePeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("month %d: %w", month, ErrInvalidMonth)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// MonthIndex returns the zero-based month index.
func (p Period) MonthIndex() int {
	return int(p.Month) - 1
}

// MaxMonthShift bounds a single month navigation step to a century either way.
const MaxMonthShift = 1200

// Shift moves the period by delta months, wrapping across year boundaries.
func (p Period) Shift(delta int) Period {
	abs := p.Year*12 + p.MonthIndex() + delta
	year := abs / 12
	idx := abs % 12
	if idx < 0 {
		idx += 12
		year--
	}
	return Period{Year: year, Month: time.Month(idx + 1)}
}

// HabitKey is the document id of the habit tracker month, e.g. "march_2025".
func (p Period) HabitKey() string {
	return fmt.Sprintf("%s_%d", strings.ToLower(p.Month.String()), p.Year)
}

// FinancialKey is the document id of the financial month, e.g. "financial_march_2025".
func (p Period) FinancialKey() string {
	return "financial_" + p.HabitKey()
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// WeekStart returns midnight of the Sunday starting the week that contains t.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// WeekKey is the weekly planner document id for the week containing t.
func WeekKey(t time.Time) string {
	return "week_" + WeekStart(t).Format("2006-01-02")
}

// DayIndex is the zero-based day-of-month of t, used to address habit data.
func DayIndex(t time.Time) int {
	return t.Day() - 1
}
