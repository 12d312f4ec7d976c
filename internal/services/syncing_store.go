package services

import (
	"context"
	"errors"
	"fmt"

	"lifedash/internal/docstore"
	"lifedash/internal/log"
)

// DocumentRepository is the local store that versions every write.
type DocumentRepository interface {
	docstore.Store
	docstore.Lister
	Save(ctx context.Context, ref docstore.Ref, doc docstore.Document) (int64, error)
	Close() error
}

// Publisher announces saved document versions.
type Publisher interface {
	PublishDocumentSync(ctx context.Context, userID, collection, docID string, version int64) error
	Close() error
}

// SyncingStore writes to the local repository first and then announces the
// new version so a worker can mirror it. A failed announcement is only logged;
// the periodic sweep picks the document up later.
type SyncingStore struct {
	repo      DocumentRepository
	publisher Publisher
	logger    *log.Logger
}

// NewSyncingStore builds the store. publisher may be nil to run without a broker.
func NewSyncingStore(repo DocumentRepository, publisher Publisher, logger *log.Logger) *SyncingStore {
	return &SyncingStore{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentStorage),
	}
}

func (s *SyncingStore) Get(ctx context.Context, ref docstore.Ref) (docstore.Document, error) {
	return s.repo.Get(ctx, ref)
}

func (s *SyncingStore) List(ctx context.Context, userID, collection string) ([]docstore.Document, error) {
	return s.repo.List(ctx, userID, collection)
}

func (s *SyncingStore) Set(ctx context.Context, ref docstore.Ref, doc docstore.Document) error {
	version, err := s.repo.Save(ctx, ref, doc)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	if err := s.publishSyncMessage(ctx, ref, version); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message", log.NewFields().
			WithDocument(ref.UserID, ref.Collection, ref.DocID).
			WithOperation(log.OpSync).
			WithError(err).ToSlice()...)
	}
	return nil
}

func (s *SyncingStore) publishSyncMessage(ctx context.Context, ref docstore.Ref, version int64) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping sync message",
			log.FieldDocID, ref.DocID)
		return nil
	}
	return s.publisher.PublishDocumentSync(ctx, ref.UserID, ref.Collection, ref.DocID, version)
}

// Close closes both the repository and the publisher.
func (s *SyncingStore) Close() error {
	var errs []error
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close syncing store: %w", errors.Join(errs...))
	}
	return nil
}
