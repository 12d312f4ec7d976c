package core

import (
	"fmt"
	"math"
	"strings"
)

type Category string

const (
	Income  Category = "income"
	Expense Category = "expense"
	Debt    Category = "debt"
)

// Categories returns the ledger categories in display order.
func Categories() []Category {
	return []Category{Income, Expense, Debt}
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case Income, Expense, Debt:
		return c, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownCategory)
}

type (
	LedgerEntry struct {
		Source string  `json:"source"`
		Plan   float64 `json:"plan"`
		Actual float64 `json:"actual"`
	}

	// FinancialMonth is the planned versus actual ledger of one user for one month.
	FinancialMonth struct {
		Income         []LedgerEntry `json:"income"`
		Expense        []LedgerEntry `json:"expense"`
		Debt           []LedgerEntry `json:"debt"`
		StartingAmount float64       `json:"startingAmount"`
	}
)

func NewFinancialMonth() FinancialMonth {
	return FinancialMonth{
		Income:  []LedgerEntry{},
		Expense: []LedgerEntry{},
		Debt:    []LedgerEntry{},
	}
}

// Entries returns the entries of one category.
func (f FinancialMonth) Entries(c Category) []LedgerEntry {
	switch c {
	case Income:
		return f.Income
	case Expense:
		return f.Expense
	case Debt:
		return f.Debt
	}
	return nil
}

func (f *FinancialMonth) entries(c Category) (*[]LedgerEntry, error) {
	switch c {
	case Income:
		return &f.Income, nil
	case Expense:
		return &f.Expense, nil
	case Debt:
		return &f.Debt, nil
	}
	return nil, fmt.Errorf("%q: %w", c, ErrUnknownCategory)
}

// AddEntry appends a ledger line. Non-finite amounts are stored as 0.
func (f *FinancialMonth) AddEntry(c Category, source string, plan, actual float64) error {
	list, err := f.entries(c)
	if err != nil {
		return err
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return ErrEmptySource
	}
	*list = append(*list, LedgerEntry{Source: source, Plan: finiteOrZero(plan), Actual: finiteOrZero(actual)})
	return nil
}

func (f *FinancialMonth) RemoveEntry(c Category, index int) error {
	list, err := f.entries(c)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*list) {
		return fmt.Errorf("%s entry %d: %w", c, index, ErrIndexOutOfRange)
	}
	*list = append((*list)[:index], (*list)[index+1:]...)
	return nil
}

// SetStartingAmount accepts any finite value, negative included.
func (f *FinancialMonth) SetStartingAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrInvalidAmount
	}
	f.StartingAmount = v
	return nil
}

func (f FinancialMonth) Clone() FinancialMonth {
	return FinancialMonth{
		Income:         append([]LedgerEntry{}, f.Income...),
		Expense:        append([]LedgerEntry{}, f.Expense...),
		Debt:           append([]LedgerEntry{}, f.Debt...),
		StartingAmount: f.StartingAmount,
	}
}

// Fields renders the month as plain document fields.
func (f FinancialMonth) Fields() map[string]any {
	out := map[string]any{"startingAmount": f.StartingAmount}
	for _, c := range Categories() {
		entries := f.Entries(c)
		list := make([]any, len(entries))
		for i, e := range entries {
			list[i] = map[string]any{"source": e.Source, "plan": e.Plan, "actual": e.Actual}
		}
		out[string(c)] = list
	}
	return out
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
