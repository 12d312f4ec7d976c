package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"lifedash/internal/core"
	"lifedash/internal/docstore"
	"lifedash/internal/log"
)

// Registry lazily opens one habit and one finance session per user. A
// session left on the calendar month it was opened for follows the calendar
// into the next month; one the user navigated away from stays where it is.
type Registry struct {
	store  docstore.Store
	cfg    Config
	logger *log.Logger

	group   singleflight.Group
	mu      sync.Mutex
	habits  map[string]*entry[*HabitSession]
	finance map[string]*entry[*FinanceSession]
}

type entry[S any] struct {
	session S

	mu sync.Mutex
	// calendar month at open or at the last rollover
	month core.Period
}

// follow loads now into the session when the calendar has moved past the
// month it was opened for and the session still shows that month.
func (e *entry[S]) follow(ctx context.Context, now core.Period, shown func() core.Period, load func(context.Context, core.Period)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.month == now {
		return
	}
	if shown() == e.month {
		load(ctx, now)
	}
	e.month = now
}

func NewRegistry(store docstore.Store, cfg Config, logger *log.Logger) *Registry {
	return &Registry{
		store:   store,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		habits:  make(map[string]*entry[*HabitSession]),
		finance: make(map[string]*entry[*FinanceSession]),
	}
}

func (r *Registry) current() core.Period {
	return core.NewPeriod(r.cfg.Now())
}

// Habits returns the user's habit session, opening it on the current month.
func (r *Registry) Habits(ctx context.Context, userID string) *HabitSession {
	e := openEntry(r, r.habits, docstore.CollectionHabits, userID, func(p core.Period) *HabitSession {
		return OpenHabitSession(ctx, r.store, userID, p, r.cfg, r.logger)
	})
	s := e.session
	e.follow(ctx, r.current(), s.Period, func(ctx context.Context, p core.Period) {
		r.logger.InfoContext(ctx, "Rolling habit session over to new month",
			log.FieldUserID, userID,
			"period", p.HabitKey())
		s.Load(ctx, p)
	})
	return s
}

// Finance returns the user's finance session, opening it on the current month.
func (r *Registry) Finance(ctx context.Context, userID string) *FinanceSession {
	e := openEntry(r, r.finance, docstore.CollectionFinancial, userID, func(p core.Period) *FinanceSession {
		return OpenFinanceSession(ctx, r.store, userID, p, r.cfg, r.logger)
	})
	s := e.session
	e.follow(ctx, r.current(), s.Period, func(ctx context.Context, p core.Period) {
		r.logger.InfoContext(ctx, "Rolling finance session over to new month",
			log.FieldUserID, userID,
			"period", p.FinancialKey())
		s.Load(ctx, p)
	})
	return s
}

// openEntry returns the user's entry, creating it once on the current month.
func openEntry[S any](r *Registry, sessions map[string]*entry[S], collection, userID string, create func(core.Period) S) *entry[S] {
	r.mu.Lock()
	e, ok := sessions[userID]
	r.mu.Unlock()
	if ok {
		return e
	}
	v, _, _ := r.group.Do(collection+"/"+userID, func() (any, error) {
		r.mu.Lock()
		if e, ok := sessions[userID]; ok {
			r.mu.Unlock()
			return e, nil
		}
		r.mu.Unlock()
		p := r.current()
		e := &entry[S]{session: create(p), month: p}
		r.mu.Lock()
		sessions[userID] = e
		r.mu.Unlock()
		return e, nil
	})
	return v.(*entry[S])
}

type syncer interface {
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// Flush waits for the pending saves of every open session.
func (r *Registry) Flush(ctx context.Context) error {
	return r.each(func(s syncer) error { return s.Flush(ctx) })
}

// CloseAll flushes and closes every session. It reports every failure.
func (r *Registry) CloseAll(ctx context.Context) error {
	err := r.each(func(s syncer) error { return s.Close(ctx) })
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to flush sessions on shutdown",
			log.FieldOperation, log.OpShutdown,
			log.FieldError, err.Error())
	}
	return err
}

func (r *Registry) each(fn func(syncer) error) error {
	r.mu.Lock()
	all := make(map[string]syncer, len(r.habits)+len(r.finance))
	for uid, e := range r.habits {
		all["habits/"+uid] = e.session
	}
	for uid, e := range r.finance {
		all["financial/"+uid] = e.session
	}
	r.mu.Unlock()

	var errs []error
	for name, s := range all {
		if err := fn(s); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
