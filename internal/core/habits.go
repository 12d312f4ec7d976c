package core

import (
	"fmt"
	"strings"
)

const (
	// PeriodLength is the number of tracked days in every month, independent of the calendar.
	PeriodLength = 30

	DefaultGoal   = 30
	MentalMin     = 1
	MentalMax     = 10
	MentalDefault = 5
)

type (
	Habit struct {
		Name string `json:"name"`
		Goal int    `json:"goal"`
		Data []bool `json:"data"`
	}

	MentalMetric struct {
		Name   string `json:"name"`
		Values []int  `json:"values"`
	}

	// HabitMonth is the habit tracker state of one user for one month.
	HabitMonth struct {
		Habits []Habit        `json:"habits"`
		Mental []MentalMetric `json:"mental"`
	}

	SeedHabit struct {
		Name string `json:"name" yaml:"name"`
		Goal int    `json:"goal" yaml:"goal"`
	}

	// Seed lists the habits and mental metrics a fresh month starts with.
	Seed struct {
		Habits []SeedHabit `json:"habits" yaml:"habits"`
		Mental []string    `json:"mental" yaml:"mental"`
	}
)

// DefaultSeed returns the built-in starting habits and metrics.
func DefaultSeed() Seed {
	return Seed{
		Habits: []SeedHabit{
			{Name: "Wake up at 05:00 ⏰", Goal: DefaultGoal},
			{Name: "Gym 💪", Goal: DefaultGoal},
			{Name: "Reading / Learning 📖", Goal: DefaultGoal},
			{Name: "Day Planning 📝", Goal: DefaultGoal},
		},
		Mental: []string{"Mood", "Motivation"},
	}
}

// NewHabitMonth creates a fresh month from seed with all days unchecked.
func NewHabitMonth(seed Seed) HabitMonth {
	m := HabitMonth{
		Habits: make([]Habit, 0, len(seed.Habits)),
		Mental: make([]MentalMetric, 0, len(seed.Mental)),
	}
	for _, h := range seed.Habits {
		goal := h.Goal
		if goal <= 0 {
			goal = DefaultGoal
		}
		m.Habits = append(m.Habits, Habit{Name: h.Name, Goal: goal, Data: make([]bool, PeriodLength)})
	}
	for _, name := range seed.Mental {
		m.Mental = append(m.Mental, MentalMetric{Name: name, Values: filledValues(MentalDefault)})
	}
	return m
}

func filledValues(v int) []int {
	out := make([]int, PeriodLength)
	for i := range out {
		out[i] = v
	}
	return out
}

// ToggleDay flips the completion flag of one habit day.
func (m *HabitMonth) ToggleDay(habit, day int) error {
	if habit < 0 || habit >= len(m.Habits) {
		return fmt.Errorf("habit %d: %w", habit, ErrIndexOutOfRange)
	}
	data := m.Habits[habit].Data
	if day < 0 || day >= len(data) {
		return fmt.Errorf("day %d: %w", day, ErrIndexOutOfRange)
	}
	data[day] = !data[day]
	return nil
}

// AdjustMental adds delta to one metric value, clamped to [MentalMin, MentalMax]
// for any delta.
func (m *HabitMonth) AdjustMental(metric, day, delta int) error {
	if metric < 0 || metric >= len(m.Mental) {
		return fmt.Errorf("metric %d: %w", metric, ErrIndexOutOfRange)
	}
	values := m.Mental[metric].Values
	if day < 0 || day >= len(values) {
		return fmt.Errorf("day %d: %w", day, ErrIndexOutOfRange)
	}
	// saturate so the sum cannot overflow
	span := MentalMax - MentalMin
	delta = max(-span, min(delta, span))
	values[day] = ClampMental(ClampMental(values[day]) + delta)
	return nil
}

// AddHabit appends a habit with no completed days. A non-positive goal becomes DefaultGoal.
func (m *HabitMonth) AddHabit(name string, goal int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if goal <= 0 {
		goal = DefaultGoal
	}
	m.Habits = append(m.Habits, Habit{Name: name, Goal: goal, Data: make([]bool, PeriodLength)})
	return nil
}

func (m *HabitMonth) RemoveHabit(index int) error {
	if index < 0 || index >= len(m.Habits) {
		return fmt.Errorf("habit %d: %w", index, ErrIndexOutOfRange)
	}
	m.Habits = append(m.Habits[:index], m.Habits[index+1:]...)
	return nil
}

// Clone returns a deep copy safe to hand to other goroutines.
func (m HabitMonth) Clone() HabitMonth {
	out := HabitMonth{
		Habits: make([]Habit, len(m.Habits)),
		Mental: make([]MentalMetric, len(m.Mental)),
	}
	for i, h := range m.Habits {
		out.Habits[i] = Habit{Name: h.Name, Goal: h.Goal, Data: append([]bool(nil), h.Data...)}
	}
	for i, mm := range m.Mental {
		out.Mental[i] = MentalMetric{Name: mm.Name, Values: append([]int(nil), mm.Values...)}
	}
	return out
}

// Fields renders the month as plain document fields.
func (m HabitMonth) Fields() map[string]any {
	habits := make([]any, len(m.Habits))
	for i, h := range m.Habits {
		data := make([]any, len(h.Data))
		for d, v := range h.Data {
			data[d] = v
		}
		habits[i] = map[string]any{"name": h.Name, "goal": h.Goal, "data": data}
	}
	mental := make([]any, len(m.Mental))
	for i, mm := range m.Mental {
		values := make([]any, len(mm.Values))
		for d, v := range mm.Values {
			values[d] = v
		}
		mental[i] = map[string]any{"name": mm.Name, "values": values}
	}
	return map[string]any{"habits": habits, "mental": mental}
}

func ClampMental(v int) int {
	if v < MentalMin {
		return MentalMin
	}
	if v > MentalMax {
		return MentalMax
	}
	return v
}
