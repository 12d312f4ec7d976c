// Package worker mirrors locally stored documents to a remote document store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"lifedash/internal/amqp"
	"lifedash/internal/docstore"
	"lifedash/internal/log"
	"lifedash/internal/storage"
	"lifedash/internal/telemetry"
)

// Source is the versioned local store documents are mirrored from.
type Source interface {
	GetVersioned(ctx context.Context, ref docstore.Ref) (storage.VersionedDocument, error)
	PendingSync(ctx context.Context, limit int) ([]storage.PendingDocument, error)
	MarkSynced(ctx context.Context, ref docstore.Ref, version int64) error
}

// MirrorWorker copies documents from the local store to the mirror store.
// The AMQP consumer and the pending sweep may sync the same document at
// once, so syncs are serialized per document.
type MirrorWorker struct {
	source    Source
	mirror    docstore.Store
	batchSize int
	logger    *log.Logger
	locks     refLocks
}

func NewMirrorWorker(source Source, mirror docstore.Store, batchSize int, logger *log.Logger) *MirrorWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &MirrorWorker{
		source:    source,
		mirror:    mirror,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSyncMessage mirrors the latest version of the document named by msg.
// Messages whose document is already mirrored are acknowledged without writing.
func (w *MirrorWorker) HandleSyncMessage(ctx context.Context, msg *amqp.DocumentSyncMessage) error {
	ref := docstore.Ref{UserID: msg.UserID, Collection: msg.Collection, DocID: msg.DocID}
	if err := ref.Validate(); err != nil {
		// Requeueing an invalid address would loop forever.
		w.logger.WarnContext(ctx, "Dropping sync message with invalid address",
			"message_id", msg.MessageID,
			log.FieldError, err.Error())
		return nil
	}

	w.logger.DebugContext(ctx, "Processing sync message",
		"message_id", msg.MessageID,
		log.FieldDocID, ref.Path(),
		log.FieldVersion, msg.Version)

	synced, err := w.syncDocument(ctx, ref)
	if err != nil {
		return fmt.Errorf("sync document %s: %w", ref, err)
	}
	if !synced {
		w.logger.DebugContext(ctx, "Document version already mirrored",
			log.FieldDocID, ref.Path(),
			log.FieldVersion, msg.Version)
	}
	return nil
}

// ProcessPending mirrors up to limit documents whose latest version lags.
// It is the backup path for lost AMQP messages.
func (w *MirrorWorker) ProcessPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.source.PendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending documents: %w", err)
	}

	synced := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if _, err := w.syncDocument(ctx, p.Ref); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync document", log.NewFields().
				WithDocument(p.Ref.UserID, p.Ref.Collection, p.Ref.DocID).
				WithOperation(log.OpSync).
				WithError(err).ToSlice()...)
			continue
		}
		synced++
	}
	return synced, nil
}

// StartupSyncCheck sweeps a larger batch once when the worker starts.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) error {
	limit := w.batchSize * 5
	pending, err := w.source.PendingSync(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending documents for startup check: %w", err)
	}
	if len(pending) == 0 {
		w.logger.InfoContext(ctx, "No pending documents found on startup")
		return nil
	}

	w.logger.InfoContext(ctx, "Found pending documents on startup, processing...", "count", len(pending))
	synced, err := w.ProcessPending(ctx, limit)
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", len(pending)-synced)
	return nil
}

// syncDocument writes the current document to the mirror and records the
// version that was written. It reports false when nothing needed writing.
func (w *MirrorWorker) syncDocument(ctx context.Context, ref docstore.Ref) (bool, error) {
	unlock := w.locks.lock(ref.Path())
	defer unlock()

	vd, err := w.source.GetVersioned(ctx, ref)
	if errors.Is(err, docstore.ErrNotFound) {
		telemetry.ObserveMirrorSync(telemetry.OutcomeNotFound)
		return false, nil
	}
	if err != nil {
		telemetry.ObserveMirrorSync(telemetry.OutcomeError)
		return false, fmt.Errorf("get document from storage: %w", err)
	}
	if vd.SyncedVersion >= vd.Version {
		return false, nil
	}

	if err := w.mirror.Set(ctx, ref, docstore.Document(vd.Document.Fields())); err != nil {
		telemetry.ObserveMirrorSync(telemetry.OutcomeError)
		return false, fmt.Errorf("write mirror: %w", err)
	}
	telemetry.ObserveMirrorSync(telemetry.OutcomeOK)

	if err := w.source.MarkSynced(ctx, ref, vd.Version); err != nil {
		// The mirror write succeeded; the next sweep rewrites the same content.
		w.logger.ErrorContext(ctx, "Failed to mark document as synced",
			log.FieldDocID, ref.Path(),
			log.FieldVersion, vd.Version,
			log.FieldError, err.Error())
	}

	w.logger.InfoContext(ctx, "Mirrored document",
		log.FieldUserID, ref.UserID,
		log.FieldCollection, ref.Collection,
		log.FieldDocID, ref.DocID,
		log.FieldVersion, vd.Version)
	return true, nil
}

// refLocks hands out one mutex per document path, dropping it once no
// goroutine holds or waits on it.
type refLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	waiters int
}

func (l *refLocks) lock(key string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*refLock)
	}
	rl, ok := l.locks[key]
	if !ok {
		rl = &refLock{}
		l.locks[key] = rl
	}
	rl.waiters++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.waiters--
		if rl.waiters == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
