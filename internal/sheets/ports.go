// Package sheets reads the habits and mental metrics a fresh month starts
// with from a spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"lifedash/internal/core"
)

// DefaultGoal is used for seed habits whose goal cell is blank or not a
// positive number.
const DefaultGoal = 30

// SeedReader provides the seed for new habit months.
type SeedReader interface {
	ReadSeed(ctx context.Context) (core.Seed, error)
}

// ParseSeed builds a seed from two ranges: habit rows of (name, goal) and
// mental metric rows of (name). Blank rows and rows starting with '#' are
// skipped; repeated names keep their first occurrence.
func ParseSeed(habitRows, mentalRows [][]any) (core.Seed, error) {
	seed := core.Seed{Habits: []core.SeedHabit{}, Mental: []string{}}

	seen := map[string]struct{}{}
	for _, row := range habitRows {
		name, ok := cell(row, 0)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		seed.Habits = append(seed.Habits, core.SeedHabit{Name: name, Goal: goal(row)})
	}

	seen = map[string]struct{}{}
	for _, row := range mentalRows {
		name, ok := cell(row, 0)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		seed.Mental = append(seed.Mental, name)
	}

	if len(seed.Habits) == 0 && len(seed.Mental) == 0 {
		return core.Seed{}, fmt.Errorf("seed spreadsheet lists no habits or metrics: %w", core.ErrEmptyName)
	}
	return seed, nil
}

func cell(row []any, i int) (string, bool) {
	if i >= len(row) {
		return "", false
	}
	v := strings.TrimSpace(fmt.Sprint(row[i]))
	if v == "" || strings.HasPrefix(v, "#") {
		return "", false
	}
	return v, true
}

func goal(row []any) int {
	v, ok := cell(row, 1)
	if !ok {
		return DefaultGoal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Sheets may hand back numbers as "20.0" depending on the render option.
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return DefaultGoal
		}
		n = int(f)
	}
	if n <= 0 {
		return DefaultGoal
	}
	return n
}
