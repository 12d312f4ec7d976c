package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"lifedash/internal/core"
	"lifedash/internal/docstore"
	"lifedash/internal/log"
)

// Overview is the home page summary for one user.
type Overview struct {
	Period  core.Period           `json:"period"`
	WeekKey string                `json:"weekKey"`
	Habits  *core.HabitMetrics    `json:"habits,omitempty"`
	Today   []core.TodayHabit     `json:"today"`
	Finance core.FinancialMetrics `json:"finance"`
	Tasks   core.TaskStats        `json:"tasks"`
	Weekly  core.WeeklyStats      `json:"weekly"`
	Errors  map[string]string     `json:"errors,omitempty"`
}

// Dashboard reads the current documents of every tracker without opening sessions.
type Dashboard struct {
	store   docstore.Store
	seed    core.Seed
	timeout time.Duration
	logger  *log.Logger
}

func NewDashboard(store docstore.Store, cfg Config, logger *log.Logger) *Dashboard {
	cfg = cfg.withDefaults()
	return &Dashboard{
		store:   store,
		seed:    cfg.Seed,
		timeout: cfg.LoadTimeout,
		logger:  logger.WithComponent(log.ComponentDashboard),
	}
}

// Overview loads the sections concurrently. A failing section is logged and left empty.
func (d *Dashboard) Overview(ctx context.Context, userID string, now time.Time) Overview {
	p := core.NewPeriod(now)
	out := Overview{
		Period:  p,
		WeekKey: core.WeekKey(now),
		Today:   []core.TodayHabit{},
		Finance: core.ComputeFinancialMetrics(core.NewFinancialMonth()),
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var mu sync.Mutex
	fail := func(section string, err error) {
		d.logger.ErrorContext(ctx, "Dashboard section failed",
			log.FieldUserID, userID,
			log.FieldCollection, section,
			log.FieldError, err.Error())
		mu.Lock()
		defer mu.Unlock()
		if out.Errors == nil {
			out.Errors = make(map[string]string)
		}
		out.Errors[section] = err.Error()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		doc, err := d.get(gctx, userID, docstore.CollectionHabits, p.HabitKey())
		if err != nil {
			fail(docstore.CollectionHabits, err)
			return nil
		}
		if doc == nil {
			return nil
		}
		m := core.NormalizeHabitMonth(doc.Fields(), d.seed)
		metrics := core.ComputeHabitMetrics(m)
		mu.Lock()
		out.Habits = &metrics
		out.Today = core.TodayMatrix(m, core.DayIndex(now))
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		doc, err := d.get(gctx, userID, docstore.CollectionFinancial, p.FinancialKey())
		if err != nil {
			fail(docstore.CollectionFinancial, err)
			return nil
		}
		if doc == nil {
			return nil
		}
		metrics := core.ComputeFinancialMetrics(core.NormalizeFinancialMonth(doc.Fields()))
		mu.Lock()
		out.Finance = metrics
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		lister, ok := d.store.(docstore.Lister)
		if !ok {
			return nil
		}
		docs, err := lister.List(gctx, userID, docstore.CollectionTasks)
		if err != nil {
			if !errors.Is(err, docstore.ErrListUnsupported) {
				fail(docstore.CollectionTasks, err)
			}
			return nil
		}
		tasks := make([]map[string]any, len(docs))
		for i, doc := range docs {
			tasks[i] = doc
		}
		stats := core.ComputeTaskStats(tasks)
		mu.Lock()
		out.Tasks = stats
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		doc, err := d.get(gctx, userID, docstore.CollectionWeeklyPlanner, core.WeekKey(now))
		if err != nil {
			fail(docstore.CollectionWeeklyPlanner, err)
			return nil
		}
		if doc == nil {
			return nil
		}
		stats := core.ComputeWeeklyStats(doc)
		mu.Lock()
		out.Weekly = stats
		mu.Unlock()
		return nil
	})

	_ = g.Wait()
	return out
}

// get returns nil without error when the document does not exist.
func (d *Dashboard) get(ctx context.Context, userID, collection, docID string) (docstore.Document, error) {
	doc, err := d.store.Get(ctx, docstore.Ref{UserID: userID, Collection: collection, DocID: docID})
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	return doc, err
}
