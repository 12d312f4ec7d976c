package session

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifedash/internal/core"
	"lifedash/internal/docstore"
	"lifedash/internal/docstore/memory"
	"lifedash/internal/log"
)

var march2025 = core.Period{Year: 2025, Month: time.March}

func testLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard, Component: log.ComponentSession})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Debounce = time.Millisecond
	cfg.SaveTimeout = time.Second
	cfg.LoadTimeout = time.Second
	return cfg
}

type failingStore struct {
	getErr error
	setErr error
}

func (f failingStore) Get(context.Context, docstore.Ref) (docstore.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return nil, docstore.ErrNotFound
}

func (f failingStore) Set(context.Context, docstore.Ref, docstore.Document) error {
	return f.setErr
}

func TestHabitSessionMissingDocumentUsesDefaults(t *testing.T) {
	store := memory.New()
	s := OpenHabitSession(context.Background(), store, "u1", march2025, testConfig(), testLogger())

	v := s.View()
	assert.Equal(t, "march_2025", v.Key)
	require.Len(t, v.State.Habits, 4)
	require.Len(t, v.State.Mental, 2)
	assert.Equal(t, core.PeriodLength, len(v.State.Habits[0].Data))
	assert.Equal(t, core.MentalDefault, v.State.Mental[0].Values[0])
	assert.Equal(t, StateLoaded, s.Status().State)

	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 0, store.Len(), "loading must not write")
}

func TestHabitSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := OpenHabitSession(ctx, store, "u1", march2025, testConfig(), testLogger())

	v, err := s.AddHabit("Test", 30)
	require.NoError(t, err)
	require.Len(t, v.State.Habits, 5)
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, StateSynced, s.Status().State)

	reloaded := OpenHabitSession(ctx, store, "u1", march2025, testConfig(), testLogger())
	habits := reloaded.View().State.Habits
	require.Len(t, habits, 5)
	last := habits[4]
	assert.Equal(t, "Test", last.Name)
	assert.Equal(t, 30, last.Goal)
	assert.Equal(t, make([]bool, core.PeriodLength), last.Data)
}

func TestHabitSessionEditsPersistLatestState(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := OpenHabitSession(ctx, store, "u1", march2025, testConfig(), testLogger())

	_, err := s.ToggleHabitDay(0, 0)
	require.NoError(t, err)
	_, err = s.ToggleHabitDay(0, 1)
	require.NoError(t, err)
	_, err = s.AdjustMentalValue(0, 0, 7)
	require.NoError(t, err)
	v, err := s.RemoveHabit(3)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Metrics.HabitActual[0])
	require.NoError(t, s.Flush(ctx))

	reloaded := OpenHabitSession(ctx, store, "u1", march2025, testConfig(), testLogger()).View()
	require.Len(t, reloaded.State.Habits, 3)
	assert.True(t, reloaded.State.Habits[0].Data[0])
	assert.True(t, reloaded.State.Habits[0].Data[1])
	assert.Equal(t, core.MentalMax, reloaded.State.Mental[0].Values[0])
	assert.Equal(t, 2, reloaded.Metrics.HabitActual[0])
}

func TestHabitSessionRejectedEditsAreNotSaved(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := OpenHabitSession(ctx, store, "u1", march2025, testConfig(), testLogger())

	_, err := s.ToggleHabitDay(99, 0)
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)
	_, err = s.AddHabit("   ", 10)
	assert.ErrorIs(t, err, core.ErrEmptyName)
	_, err = s.RemoveHabit(-1)
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)

	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, 0, store.Len())
	assert.Len(t, s.View().State.Habits, 4)
}

func TestHabitSessionMonthWrap(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := OpenHabitSession(ctx, store, "u1", core.Period{Year: 2024, Month: time.December}, testConfig(), testLogger())

	_, err := s.ToggleHabitDay(1, 4)
	require.NoError(t, err)

	next := s.ChangeMonth(ctx, 1)
	assert.Equal(t, core.Period{Year: 2025, Month: time.January}, next.Period)
	assert.Equal(t, "january_2025", next.Key)
	assert.False(t, next.State.Habits[1].Data[4], "months must not share state")

	back := s.ChangeMonth(ctx, -1)
	assert.Equal(t, "december_2024", back.Key)
	assert.True(t, back.State.Habits[1].Data[4], "pending save flushed before month change")
}

func TestHabitSessionLoadFailureFallsBackToDefaults(t *testing.T) {
	store := failingStore{getErr: errors.New("backend unavailable")}
	s := OpenHabitSession(context.Background(), store, "u1", march2025, testConfig(), testLogger())

	st := s.Status()
	assert.Equal(t, StateLoadFailed, st.State)
	assert.Contains(t, st.Error, "backend unavailable")
	assert.Len(t, s.View().State.Habits, 4)
}

func TestHabitSessionSaveFailureSurfacesInStatus(t *testing.T) {
	ctx := context.Background()
	store := failingStore{setErr: errors.New("write refused")}
	s := OpenHabitSession(ctx, store, "u1", march2025, testConfig(), testLogger())

	_, err := s.ToggleHabitDay(0, 0)
	require.NoError(t, err)
	assert.Error(t, s.Flush(ctx))

	st := s.Status()
	assert.Equal(t, StateSaveFailed, st.State)
	assert.Equal(t, "// Sync Failed", st.Label())
	assert.True(t, s.View().State.Habits[0].Data[0], "in-memory edit survives a failed save")
}

func TestHabitSessionNormalizesStoredDocument(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ref := docstore.Ref{UserID: "u1", Collection: docstore.CollectionHabits, DocID: "march_2025"}
	require.NoError(t, store.Set(ctx, ref, docstore.Document{
		"habits": []any{
			map[string]any{"name": "Short", "goal": 0, "data": []any{true, true}},
		},
		"mental": []any{
			map[string]any{"name": "Mood", "values": []any{15, -3}},
		},
	}))

	v := OpenHabitSession(ctx, store, "u1", march2025, testConfig(), testLogger()).View()
	require.Len(t, v.State.Habits, 1)
	assert.Equal(t, core.DefaultGoal, v.State.Habits[0].Goal)
	assert.Len(t, v.State.Habits[0].Data, core.PeriodLength)
	assert.Equal(t, []int{10, 1, 5}, v.State.Mental[0].Values[:3])
}

func TestHabitSessionObserverReceivesViews(t *testing.T) {
	var mu sync.Mutex
	var seen []HabitView
	s := OpenHabitSession(context.Background(), memory.New(), "u1", march2025, testConfig(), testLogger(),
		WithHabitObserver(func(v HabitView) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, v)
		}))

	_, err := s.AddHabit("Walk", 20)
	require.NoError(t, err)
	_, err = s.AddHabit("", 20)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2, "initial load plus one accepted edit")
	assert.Equal(t, 5, seen[1].Metrics.HabitCount)
}

func TestFinanceSessionLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := OpenFinanceSession(ctx, store, "u1", march2025, testConfig(), testLogger())

	v := s.View()
	assert.Equal(t, "financial_march_2025", v.Key)
	assert.Empty(t, v.State.Income)

	_, err := s.SetStartingAmount(1000)
	require.NoError(t, err)
	_, err = s.AddLedgerEntry(core.Income, "Salary", 3000, 3000)
	require.NoError(t, err)
	_, err = s.AddLedgerEntry(core.Expense, "Rent", 1000, 950)
	require.NoError(t, err)
	v, err = s.AddLedgerEntry(core.Expense, "Food", 500, 550)
	require.NoError(t, err)

	assert.Equal(t, 1500.0, v.Metrics.Expense.Plan)
	assert.Equal(t, 1500.0, v.Metrics.Expense.Actual)
	assert.Equal(t, 1500.0, v.Metrics.Balance)
	assert.Equal(t, 2500.0, v.Metrics.TotalActual)
	assert.Equal(t, 150.0, v.Metrics.Growth)
	assert.Equal(t, core.Ascending, v.Metrics.Trend)

	_, err = s.RemoveLedgerEntry(core.Expense, 1)
	require.NoError(t, err)
	require.NoError(t, s.Flush(ctx))

	reloaded := OpenFinanceSession(ctx, store, "u1", march2025, testConfig(), testLogger()).View()
	assert.Equal(t, 1000.0, reloaded.State.StartingAmount)
	require.Len(t, reloaded.State.Expense, 1)
	assert.Equal(t, "Rent", reloaded.State.Expense[0].Source)
	assert.Equal(t, 950.0, reloaded.Metrics.Expense.Actual)
}

func TestFinanceSessionRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := OpenFinanceSession(ctx, store, "u1", march2025, testConfig(), testLogger())

	_, err := s.SetStartingAmount(math.NaN())
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = s.AddLedgerEntry(core.Income, " ", 1, 1)
	assert.ErrorIs(t, err, core.ErrEmptySource)
	_, err = s.AddLedgerEntry(core.Category("savings"), "x", 1, 1)
	assert.ErrorIs(t, err, core.ErrUnknownCategory)
	_, err = s.RemoveLedgerEntry(core.Debt, 0)
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)

	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, 0, store.Len())
}

func TestRegistryReusesSessionsAndFlushesOnClose(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cfg := testConfig()
	cfg.Debounce = time.Hour
	cfg.Now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	r := NewRegistry(store, cfg, testLogger())

	h := r.Habits(ctx, "u1")
	assert.Same(t, h, r.Habits(ctx, "u1"))
	assert.NotSame(t, h, r.Habits(ctx, "u2"))
	assert.Equal(t, march2025, h.Period())

	f := r.Finance(ctx, "u1")
	assert.Same(t, f, r.Finance(ctx, "u1"))

	_, err := h.AddHabit("Stretch", 10)
	require.NoError(t, err)
	_, err = f.SetStartingAmount(42)
	require.NoError(t, err)

	require.NoError(t, r.CloseAll(ctx))
	assert.Equal(t, 2, store.Len())
}

func TestRegistryFollowsCalendarIntoNewMonth(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	var mu sync.Mutex
	now := time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)
	cfg := testConfig()
	cfg.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	r := NewRegistry(store, cfg, testLogger())

	h := r.Habits(ctx, "u1")
	f := r.Finance(ctx, "u1")
	_, err := h.AddHabit("Stretch", 10)
	require.NoError(t, err)
	assert.Equal(t, march2025, h.Period())

	mu.Lock()
	now = time.Date(2025, 4, 1, 0, 5, 0, 0, time.UTC)
	mu.Unlock()

	april := core.Period{Year: 2025, Month: time.April}
	assert.Same(t, h, r.Habits(ctx, "u1"))
	assert.Equal(t, april, h.Period())
	assert.Equal(t, "april_2025", h.View().Key)
	assert.Equal(t, april, r.Finance(ctx, "u1").Period())
	assert.Equal(t, april, f.Period())

	// the march edit was flushed before the switch
	doc, err := store.Get(ctx, docstore.Ref{UserID: "u1", Collection: docstore.CollectionHabits, DocID: "march_2025"})
	require.NoError(t, err)
	assert.Len(t, doc["habits"], len(core.DefaultSeed().Habits)+1)
}

func TestRegistryKeepsExplicitlyChosenMonth(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	now := time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)
	cfg := testConfig()
	cfg.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	r := NewRegistry(memory.New(), cfg, testLogger())

	h := r.Habits(ctx, "u1")
	h.ChangeMonth(ctx, -2)
	january := core.Period{Year: 2025, Month: time.January}
	require.Equal(t, january, h.Period())

	mu.Lock()
	now = time.Date(2025, 4, 1, 0, 5, 0, 0, time.UTC)
	mu.Unlock()

	assert.Equal(t, january, r.Habits(ctx, "u1").Period())
}

func TestDashboardOverview(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)

	set := func(collection, docID string, doc docstore.Document) {
		require.NoError(t, store.Set(ctx, docstore.Ref{UserID: "u1", Collection: collection, DocID: docID}, doc))
	}
	set(docstore.CollectionHabits, "march_2025", docstore.Document{
		"habits": []any{
			map[string]any{"name": "Gym", "goal": 30, "data": []any{true, true}},
			map[string]any{"name": "Read", "goal": 30, "data": []any{true, false}},
		},
	})
	set(docstore.CollectionFinancial, "financial_march_2025", docstore.Document{
		"income":         []any{map[string]any{"source": "Salary", "plan": 500, "actual": 500}},
		"startingAmount": 0,
	})
	set(docstore.CollectionTasks, "t1", docstore.Document{"status": "completed"})
	set(docstore.CollectionTasks, "t2", docstore.Document{"status": "open"})
	set(docstore.CollectionWeeklyPlanner, "week_2025-03-02", docstore.Document{
		"days": []any{
			[]any{map[string]any{"completed": true}, map[string]any{"completed": false}},
		},
	})

	d := NewDashboard(store, testConfig(), testLogger())
	o := d.Overview(ctx, "u1", now)

	assert.Equal(t, "week_2025-03-02", o.WeekKey)
	require.NotNil(t, o.Habits)
	assert.Equal(t, 2, o.Habits.HabitCount)
	assert.Equal(t, []core.TodayHabit{{Name: "Gym", Done: true}, {Name: "Read", Done: false}}, o.Today)
	assert.Equal(t, 50000.0, o.Finance.Growth)
	assert.Equal(t, core.TaskStats{Total: 2, Completed: 1, Incomplete: 1}, o.Tasks)
	assert.Equal(t, 2, o.Weekly.Total)
	assert.Equal(t, 1, o.Weekly.Completed)
	assert.Empty(t, o.Errors)
}

func TestDashboardSectionFailuresAreIsolated(t *testing.T) {
	d := NewDashboard(failingStore{getErr: errors.New("offline")}, testConfig(), testLogger())
	o := d.Overview(context.Background(), "u1", time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC))

	assert.Nil(t, o.Habits)
	assert.Empty(t, o.Today)
	assert.Equal(t, core.Ascending, o.Finance.Trend)
	assert.Contains(t, o.Errors, docstore.CollectionHabits)
	assert.Contains(t, o.Errors, docstore.CollectionFinancial)
	assert.Contains(t, o.Errors, docstore.CollectionWeeklyPlanner)
	assert.NotContains(t, o.Errors, docstore.CollectionTasks)
}

func TestLoadSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
habits:
  - name: Meditate
    goal: 20
  - name: Journal
mental:
  - Energy
`), 0o600))

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	assert.Equal(t, []core.SeedHabit{{Name: "Meditate", Goal: 20}, {Name: "Journal"}}, seed.Habits)
	assert.Equal(t, []string{"Energy"}, seed.Mental)

	m := core.NewHabitMonth(seed)
	assert.Equal(t, core.DefaultGoal, m.Habits[1].Goal)

	def, err := LoadSeed("")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultSeed(), def)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("habits:\n  - name: \"\"\n"), 0o600))
	_, err = LoadSeed(bad)
	assert.ErrorIs(t, err, core.ErrEmptyName)
}
