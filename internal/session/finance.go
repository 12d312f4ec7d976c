package session

import (
	"context"

	"lifedash/internal/core"
	"lifedash/internal/docstore"
	"lifedash/internal/log"
)

// FinanceView is what the financial tracker screen renders.
type FinanceView struct {
	Period  core.Period           `json:"period"`
	Key     string                `json:"key"`
	State   core.FinancialMonth   `json:"state"`
	Metrics core.FinancialMetrics `json:"metrics"`
	Status  Status                `json:"status"`
}

// FinanceSession is one user's planned versus actual ledger.
type FinanceSession struct {
	t        *tracker[core.FinancialMonth]
	observer func(FinanceView)
}

type FinanceOption func(*FinanceSession)

func WithFinanceObserver(fn func(FinanceView)) FinanceOption {
	return func(s *FinanceSession) { s.observer = fn }
}

func OpenFinanceSession(ctx context.Context, store docstore.Store, userID string, p core.Period, cfg Config, logger *log.Logger, opts ...FinanceOption) *FinanceSession {
	cfg = cfg.withDefaults()
	c := codec[core.FinancialMonth]{
		collection: docstore.CollectionFinancial,
		key:        core.Period.FinancialKey,
		fresh:      core.NewFinancialMonth,
		decode:     core.NormalizeFinancialMonth,
		encode:     core.FinancialMonth.Fields,
		clone:      core.FinancialMonth.Clone,
	}
	s := &FinanceSession{t: newTracker(store, userID, c, cfg, logger.WithComponent(log.ComponentSession))}
	for _, opt := range opts {
		opt(s)
	}
	s.t.load(ctx, p)
	s.notify(s.View())
	return s
}

func (s *FinanceSession) view(p core.Period, f core.FinancialMonth) FinanceView {
	return FinanceView{
		Period:  p,
		Key:     p.FinancialKey(),
		State:   f,
		Metrics: core.ComputeFinancialMetrics(f),
		Status:  s.t.status.get(),
	}
}

func (s *FinanceSession) notify(v FinanceView) {
	if s.observer != nil {
		s.observer(v)
	}
}

func (s *FinanceSession) View() FinanceView {
	p, f := s.t.snapshot()
	return s.view(p, f)
}

func (s *FinanceSession) Status() Status {
	return s.t.status.get()
}

func (s *FinanceSession) Period() core.Period {
	p, _ := s.t.snapshot()
	return p
}

func (s *FinanceSession) Load(ctx context.Context, p core.Period) FinanceView {
	s.t.load(ctx, p)
	v := s.View()
	s.notify(v)
	return v
}

func (s *FinanceSession) ChangeMonth(ctx context.Context, delta int) FinanceView {
	return s.Load(ctx, s.Period().Shift(delta))
}

func (s *FinanceSession) edit(op string, fn func(*core.FinancialMonth) error) (FinanceView, error) {
	p, f, err := s.t.mutate(op, fn)
	v := s.view(p, f)
	if err != nil {
		return v, err
	}
	s.notify(v)
	return v, nil
}

func (s *FinanceSession) AddLedgerEntry(c core.Category, source string, plan, actual float64) (FinanceView, error) {
	return s.edit("add_ledger_entry", func(f *core.FinancialMonth) error { return f.AddEntry(c, source, plan, actual) })
}

func (s *FinanceSession) RemoveLedgerEntry(c core.Category, index int) (FinanceView, error) {
	return s.edit("remove_ledger_entry", func(f *core.FinancialMonth) error { return f.RemoveEntry(c, index) })
}

func (s *FinanceSession) SetStartingAmount(v float64) (FinanceView, error) {
	return s.edit("set_starting_amount", func(f *core.FinancialMonth) error { return f.SetStartingAmount(v) })
}

func (s *FinanceSession) Flush(ctx context.Context) error {
	return s.t.sched.Flush(ctx)
}

func (s *FinanceSession) Close(ctx context.Context) error {
	return s.t.sched.Close(ctx)
}
