package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NormalizeHabitMonth turns stored fields into a fully populated month.
// Missing sections fall back to seed, every data and values list is padded or
// truncated to PeriodLength, mental values are clamped, and goals default to DefaultGoal.
func NormalizeHabitMonth(fields map[string]any, seed Seed) HabitMonth {
	fresh := NewHabitMonth(seed)
	out := HabitMonth{}

	rawHabits, ok := fields["habits"]
	if !ok || rawHabits == nil {
		out.Habits = fresh.Habits
	} else {
		out.Habits = []Habit{}
		for _, item := range asList(rawHabits) {
			obj := asMap(item)
			if obj == nil {
				continue
			}
			goal, ok := asInt(obj["goal"])
			if !ok || goal <= 0 {
				goal = DefaultGoal
			}
			data := make([]bool, PeriodLength)
			for i, v := range asList(obj["data"]) {
				if i >= PeriodLength {
					break
				}
				data[i] = asBool(v)
			}
			out.Habits = append(out.Habits, Habit{Name: asString(obj["name"]), Goal: goal, Data: data})
		}
	}

	rawMental, ok := fields["mental"]
	if !ok || rawMental == nil {
		out.Mental = fresh.Mental
	} else {
		out.Mental = []MentalMetric{}
		for _, item := range asList(rawMental) {
			obj := asMap(item)
			if obj == nil {
				continue
			}
			values := filledValues(MentalDefault)
			for i, v := range asList(obj["values"]) {
				if i >= PeriodLength {
					break
				}
				if n, ok := asInt(v); ok {
					values[i] = ClampMental(n)
				}
			}
			out.Mental = append(out.Mental, MentalMetric{Name: asString(obj["name"]), Values: values})
		}
	}
	return out
}

// NormalizeFinancialMonth turns stored fields into a financial month.
// Entries with an empty source are dropped and non-numeric amounts read as 0.
func NormalizeFinancialMonth(fields map[string]any) FinancialMonth {
	out := NewFinancialMonth()
	out.StartingAmount = asFloat(fields["startingAmount"])
	for _, c := range Categories() {
		list, _ := out.entries(c)
		for _, item := range asList(fields[string(c)]) {
			obj := asMap(item)
			if obj == nil {
				continue
			}
			source := strings.TrimSpace(asString(obj["source"]))
			if source == "" {
				continue
			}
			*list = append(*list, LedgerEntry{
				Source: source,
				Plan:   asFloat(obj["plan"]),
				Actual: asFloat(obj["actual"]),
			})
		}
	}
	return out
}

func asList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []bool:
		out := make([]any, len(t))
		for i, b := range t {
			out[i] = b
		}
		return out
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out
	}
	return nil
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int, int32, int64:
		n, _ := asInt(t)
		return strconv.Itoa(n)
	}
	return ""
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	case float64:
		return t != 0
	case int, int32, int64:
		n, _ := asInt(t)
		return n != 0
	}
	return false
}

// asFloat coerces any stored number representation; anything else is 0.
func asFloat(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		f, _ = t.Float64()
	case string:
		f = ParseAmount(t)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case float32:
		return asInt(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return asInt(f)
	case string:
		s := strings.TrimSpace(t)
		if s == "" || numericPrefix(s) == 0 {
			return 0, false
		}
		return int(ParseAmount(s)), true
	}
	return 0, false
}
