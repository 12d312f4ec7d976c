package session

import (
	"context"

	"lifedash/internal/core"
	"lifedash/internal/docstore"
	"lifedash/internal/log"
)

// HabitView is what the habit tracker screen renders.
type HabitView struct {
	Period  core.Period       `json:"period"`
	Key     string            `json:"key"`
	State   core.HabitMonth   `json:"state"`
	Metrics core.HabitMetrics `json:"metrics"`
	Status  Status            `json:"status"`
}

// HabitSession is one user's habit tracker.
type HabitSession struct {
	t        *tracker[core.HabitMonth]
	observer func(HabitView)
}

type HabitOption func(*HabitSession)

// WithHabitObserver registers fn to receive every recomputed view.
func WithHabitObserver(fn func(HabitView)) HabitOption {
	return func(s *HabitSession) { s.observer = fn }
}

// OpenHabitSession creates a session and loads the month of p.
func OpenHabitSession(ctx context.Context, store docstore.Store, userID string, p core.Period, cfg Config, logger *log.Logger, opts ...HabitOption) *HabitSession {
	cfg = cfg.withDefaults()
	seed := cfg.Seed
	c := codec[core.HabitMonth]{
		collection: docstore.CollectionHabits,
		key:        core.Period.HabitKey,
		fresh:      func() core.HabitMonth { return core.NewHabitMonth(seed) },
		decode:     func(f map[string]any) core.HabitMonth { return core.NormalizeHabitMonth(f, seed) },
		encode:     core.HabitMonth.Fields,
		clone:      core.HabitMonth.Clone,
	}
	s := &HabitSession{t: newTracker(store, userID, c, cfg, logger.WithComponent(log.ComponentSession))}
	for _, opt := range opts {
		opt(s)
	}
	s.t.load(ctx, p)
	s.notify(s.View())
	return s
}

func (s *HabitSession) view(p core.Period, m core.HabitMonth) HabitView {
	return HabitView{
		Period:  p,
		Key:     p.HabitKey(),
		State:   m,
		Metrics: core.ComputeHabitMetrics(m),
		Status:  s.t.status.get(),
	}
}

func (s *HabitSession) notify(v HabitView) {
	if s.observer != nil {
		s.observer(v)
	}
}

func (s *HabitSession) View() HabitView {
	p, m := s.t.snapshot()
	return s.view(p, m)
}

func (s *HabitSession) Status() Status {
	return s.t.status.get()
}

func (s *HabitSession) Period() core.Period {
	p, _ := s.t.snapshot()
	return p
}

// Load switches to p, flushing any pending save of the current month first.
func (s *HabitSession) Load(ctx context.Context, p core.Period) HabitView {
	s.t.load(ctx, p)
	v := s.View()
	s.notify(v)
	return v
}

// ChangeMonth moves delta months away from the current one.
func (s *HabitSession) ChangeMonth(ctx context.Context, delta int) HabitView {
	return s.Load(ctx, s.Period().Shift(delta))
}

func (s *HabitSession) edit(op string, fn func(*core.HabitMonth) error) (HabitView, error) {
	p, m, err := s.t.mutate(op, fn)
	v := s.view(p, m)
	if err != nil {
		return v, err
	}
	s.notify(v)
	return v, nil
}

func (s *HabitSession) ToggleHabitDay(habit, day int) (HabitView, error) {
	return s.edit("toggle_habit_day", func(m *core.HabitMonth) error { return m.ToggleDay(habit, day) })
}

func (s *HabitSession) AdjustMentalValue(metric, day, delta int) (HabitView, error) {
	return s.edit("adjust_mental_value", func(m *core.HabitMonth) error { return m.AdjustMental(metric, day, delta) })
}

func (s *HabitSession) AddHabit(name string, goal int) (HabitView, error) {
	return s.edit("add_habit", func(m *core.HabitMonth) error { return m.AddHabit(name, goal) })
}

func (s *HabitSession) RemoveHabit(index int) (HabitView, error) {
	return s.edit("remove_habit", func(m *core.HabitMonth) error { return m.RemoveHabit(index) })
}

// Flush waits for any pending save.
func (s *HabitSession) Flush(ctx context.Context) error {
	return s.t.sched.Flush(ctx)
}

func (s *HabitSession) Close(ctx context.Context) error {
	return s.t.sched.Close(ctx)
}
