package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"lifedash/internal/core"
	"lifedash/internal/docstore"
	"lifedash/internal/log"
	"lifedash/internal/telemetry"
)

// codec binds a tracker to one collection and one state type.
type codec[T any] struct {
	collection string
	key        func(core.Period) string
	fresh      func() T
	decode     func(fields map[string]any) T
	encode     func(T) map[string]any
	clone      func(T) T
}

// tracker holds the state of one month and keeps it in sync with the store.
type tracker[T any] struct {
	store  docstore.Store
	userID string
	codec  codec[T]
	cfg    Config
	logger *log.Logger
	status *statusTracker
	sched  *SaveScheduler

	// opMu orders edits and month changes; stateMu guards period and state
	// against the scheduler's snapshot.
	opMu    sync.Mutex
	stateMu sync.Mutex
	period  core.Period
	state   T
	loaded  bool
}

func newTracker[T any](store docstore.Store, userID string, c codec[T], cfg Config, logger *log.Logger) *tracker[T] {
	t := &tracker[T]{
		store:  store,
		userID: userID,
		codec:  c,
		cfg:    cfg,
		logger: logger,
		status: newStatusTracker(cfg.SyncedLinger, cfg.Now),
	}
	t.sched = NewSaveScheduler(t.save, cfg.Debounce, cfg.SaveTimeout)
	return t
}

func (t *tracker[T]) ref(p core.Period) docstore.Ref {
	return docstore.Ref{UserID: t.userID, Collection: t.codec.collection, DocID: t.codec.key(p)}
}

// load replaces the state with the document for p. A missing document yields
// fresh state; any other failure is logged and also yields fresh state.
func (t *tracker[T]) load(ctx context.Context, p core.Period) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	if t.isLoaded() {
		if err := t.sched.Flush(ctx); err != nil {
			t.logger.WarnContext(ctx, "Pending save failed before month change",
				log.FieldUserID, t.userID,
				log.FieldCollection, t.codec.collection,
				log.FieldError, err.Error())
		}
	}

	ref := t.ref(p)
	t.status.set(StateLoading, ref.DocID, nil)

	loadCtx, cancel := context.WithTimeout(ctx, t.cfg.LoadTimeout)
	defer cancel()

	state, loadErr := t.fetch(loadCtx, ref)

	t.stateMu.Lock()
	t.period = p
	t.state = state
	t.loaded = true
	t.stateMu.Unlock()

	if loadErr != nil {
		t.status.set(StateLoadFailed, ref.DocID, loadErr)
		return
	}
	t.status.set(StateLoaded, ref.DocID, nil)
}

func (t *tracker[T]) fetch(ctx context.Context, ref docstore.Ref) (T, error) {
	doc, err := t.store.Get(ctx, ref)
	switch {
	case err == nil:
		telemetry.ObserveLoad(ref.Collection, telemetry.OutcomeOK)
		t.logger.DebugContext(ctx, "Document loaded", log.NewFields().
			WithDocument(ref.UserID, ref.Collection, ref.DocID).
			WithOperation(log.OpLoad).ToSlice()...)
		return t.codec.decode(doc.Fields()), nil
	case errors.Is(err, docstore.ErrNotFound):
		telemetry.ObserveLoad(ref.Collection, telemetry.OutcomeNotFound)
		return t.codec.fresh(), nil
	default:
		outcome := telemetry.OutcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = telemetry.OutcomeTimeout
		}
		telemetry.ObserveLoad(ref.Collection, outcome)
		t.logger.ErrorContext(ctx, "Failed to load document, using defaults", log.NewFields().
			WithDocument(ref.UserID, ref.Collection, ref.DocID).
			WithOperation(log.OpLoad).
			WithError(err).ToSlice()...)
		return t.codec.fresh(), err
	}
}

func (t *tracker[T]) isLoaded() bool {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.loaded
}

// mutate applies fn to the state and requests a save when it succeeds.
// fn must leave the state untouched when it returns an error.
func (t *tracker[T]) mutate(op string, fn func(*T) error) (core.Period, T, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.stateMu.Lock()
	err := fn(&t.state)
	p, snapshot := t.period, t.codec.clone(t.state)
	t.stateMu.Unlock()

	if err != nil {
		telemetry.ObserveMutation(op, telemetry.OutcomeRejected)
		return p, snapshot, err
	}
	telemetry.ObserveMutation(op, telemetry.OutcomeOK)
	t.sched.Request()
	return p, snapshot, nil
}

func (t *tracker[T]) snapshot() (core.Period, T) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.period, t.codec.clone(t.state)
}

// save writes the latest state of the current month as a merge.
func (t *tracker[T]) save(ctx context.Context) error {
	t.stateMu.Lock()
	ref := t.ref(t.period)
	fields := t.codec.encode(t.state)
	t.stateMu.Unlock()

	t.status.set(StateSaving, ref.DocID, nil)
	start := time.Now()
	err := t.store.Set(ctx, ref, docstore.Document(fields))
	took := time.Since(start)

	if err != nil {
		outcome := telemetry.OutcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = telemetry.OutcomeTimeout
		}
		telemetry.ObserveSave(ref.Collection, outcome, took)
		t.status.set(StateSaveFailed, ref.DocID, err)
		t.logger.ErrorContext(ctx, "Failed to save document", log.NewFields().
			WithDocument(ref.UserID, ref.Collection, ref.DocID).
			WithOperation(log.OpSave).
			WithError(err).ToSlice()...)
		return err
	}

	telemetry.ObserveSave(ref.Collection, telemetry.OutcomeOK, took)
	t.status.set(StateSynced, ref.DocID, nil)
	t.logger.DebugContext(ctx, "Document saved",
		log.FieldUserID, ref.UserID,
		log.FieldCollection, ref.Collection,
		log.FieldDocID, ref.DocID,
		log.FieldDuration, took.Milliseconds())
	return nil
}
