package core

import (
	"github.com/shopspring/decimal"
)

type Trend string

const (
	Ascending  Trend = "Ascending"
	Descending Trend = "Descending"
)

// WeeksTracked is the number of full weeks shown by the weekly execution series.
const WeeksTracked = 4

type (
	// HabitMetrics is everything derived from a HabitMonth for display.
	HabitMetrics struct {
		HabitCount      int                   `json:"habitCount"`
		PeriodLength    int                   `json:"periodLength"`
		DailyCompletion []int                 `json:"dailyCompletion"`
		DailyDone       []int                 `json:"dailyDone"`
		DailyNotDone    []int                 `json:"dailyNotDone"`
		HabitActual     []int                 `json:"habitActual"`
		HabitProgress   []int                 `json:"habitProgress"`
		Efficiency      float64               `json:"efficiency"`
		WeeklyExecution [WeeksTracked]float64 `json:"weeklyExecution"`
		MoodSeries      []int                 `json:"moodSeries"`
	}

	CategoryTotals struct {
		Plan   float64 `json:"plan"`
		Actual float64 `json:"actual"`
	}

	// FinancialMetrics is everything derived from a FinancialMonth for display.
	FinancialMetrics struct {
		Income         CategoryTotals `json:"income"`
		Expense        CategoryTotals `json:"expense"`
		Debt           CategoryTotals `json:"debt"`
		StartingAmount float64        `json:"startingAmount"`
		BalancePlan    float64        `json:"balancePlan"`
		Balance        float64        `json:"balance"`
		TotalPlan      float64        `json:"totalPlan"`
		TotalActual    float64        `json:"totalActual"`
		DebtTotal      float64        `json:"debtTotal"`
		Growth         float64        `json:"growth"`
		Trend          Trend          `json:"trend"`
	}
)

var hundred = decimal.NewFromInt(100)

// ComputeHabitMetrics derives the habit table footers, progress bars and charts.
func ComputeHabitMetrics(m HabitMonth) HabitMetrics {
	n := len(m.Habits)
	out := HabitMetrics{
		HabitCount:      n,
		PeriodLength:    PeriodLength,
		DailyCompletion: make([]int, PeriodLength),
		DailyDone:       make([]int, PeriodLength),
		DailyNotDone:    make([]int, PeriodLength),
		HabitActual:     make([]int, n),
		HabitProgress:   make([]int, n),
		MoodSeries:      make([]int, PeriodLength),
	}

	total := 0
	for i, h := range m.Habits {
		count := 0
		for day := 0; day < PeriodLength && day < len(h.Data); day++ {
			if h.Data[day] {
				count++
				out.DailyDone[day]++
			}
		}
		total += count
		out.HabitActual[i] = count
		out.HabitProgress[i] = percent(count, h.Goal)
	}

	for day := 0; day < PeriodLength; day++ {
		out.DailyNotDone[day] = n - out.DailyDone[day]
		out.DailyCompletion[day] = percent(out.DailyDone[day], n)
	}

	if n > 0 {
		out.Efficiency = decimal.NewFromInt(int64(total)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(n * PeriodLength))).
			Round(1).
			InexactFloat64()
	}

	for w := 0; w < WeeksTracked; w++ {
		sum := decimal.Zero
		for day := w * 7; day < (w+1)*7; day++ {
			sum = sum.Add(decimal.NewFromInt(int64(out.DailyCompletion[day])))
		}
		out.WeeklyExecution[w] = sum.Div(decimal.NewFromInt(7)).Round(1).InexactFloat64()
	}

	if len(m.Mental) > 0 {
		for day, v := range m.Mental[0].Values {
			if day >= PeriodLength {
				break
			}
			out.MoodSeries[day] = v * 10
		}
	}
	return out
}

// percent is round(100*part/whole), or 0 when whole is not positive.
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(part)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(whole))).
		Round(0).
		IntPart())
}

// ComputeFinancialMetrics derives ledger sums, balances and the growth figure.
func ComputeFinancialMetrics(f FinancialMonth) FinancialMetrics {
	income := sumEntries(f.Income)
	expense := sumEntries(f.Expense)
	debt := sumEntries(f.Debt)
	starting := decimal.NewFromFloat(f.StartingAmount)

	balancePlan := income.plan.Sub(expense.plan)
	balance := income.actual.Sub(expense.actual)

	out := FinancialMetrics{
		Income:         income.totals(),
		Expense:        expense.totals(),
		Debt:           debt.totals(),
		StartingAmount: f.StartingAmount,
		BalancePlan:    balancePlan.InexactFloat64(),
		Balance:        balance.InexactFloat64(),
		TotalPlan:      starting.Add(balancePlan).InexactFloat64(),
		TotalActual:    starting.Add(balance).InexactFloat64(),
		DebtTotal:      debt.plan.InexactFloat64(),
		Trend:          Ascending,
	}

	if balance.IsPositive() {
		base := decimal.Max(starting, decimal.NewFromInt(1))
		out.Growth = balance.Mul(hundred).Div(base).Round(1).InexactFloat64()
	}
	if balance.IsNegative() {
		out.Trend = Descending
	}
	return out
}

type ledgerSum struct {
	plan   decimal.Decimal
	actual decimal.Decimal
}

func (s ledgerSum) totals() CategoryTotals {
	return CategoryTotals{Plan: s.plan.InexactFloat64(), Actual: s.actual.InexactFloat64()}
}

func sumEntries(entries []LedgerEntry) ledgerSum {
	s := ledgerSum{plan: decimal.Zero, actual: decimal.Zero}
	for _, e := range entries {
		s.plan = s.plan.Add(decimal.NewFromFloat(finiteOrZero(e.Plan)))
		s.actual = s.actual.Add(decimal.NewFromFloat(finiteOrZero(e.Actual)))
	}
	return s
}

// TodayHabit is one row of the dashboard's today view.
type TodayHabit struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// TodayMatrix reports each habit's flag for the given zero-based day.
func TodayMatrix(m HabitMonth, day int) []TodayHabit {
	out := make([]TodayHabit, len(m.Habits))
	for i, h := range m.Habits {
		out[i] = TodayHabit{Name: h.Name}
		if day >= 0 && day < len(h.Data) {
			out[i].Done = h.Data[day]
		}
	}
	return out
}
