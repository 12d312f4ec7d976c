package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lifedash/internal/docstore"
	"lifedash/internal/docstore/memory"
)

type versioningRepo struct {
	*memory.Store
	versions map[string]int64
	closed   bool
	saveErr  error
}

func newVersioningRepo() *versioningRepo {
	return &versioningRepo{Store: memory.New(), versions: map[string]int64{}}
}

func (r *versioningRepo) Save(ctx context.Context, ref docstore.Ref, doc docstore.Document) (int64, error) {
	if r.saveErr != nil {
		return 0, r.saveErr
	}
	if err := r.Store.Set(ctx, ref, doc); err != nil {
		return 0, err
	}
	r.versions[ref.Path()]++
	return r.versions[ref.Path()], nil
}

func (r *versioningRepo) Close() error {
	r.closed = true
	return nil
}

type published struct {
	path    string
	version int64
}

type recordingPublisher struct {
	sent   []published
	err    error
	closed bool
}

func (p *recordingPublisher) PublishDocumentSync(_ context.Context, userID, collection, docID string, version int64) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{path: userID + "/" + collection + "/" + docID, version: version})
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

var testRef = docstore.Ref{UserID: "u1", Collection: docstore.CollectionHabits, DocID: "march_2025"}

func TestSyncingStoreSetPublishesEachVersion(t *testing.T) {
	ctx := context.Background()
	repo := newVersioningRepo()
	pub := &recordingPublisher{}
	s := NewSyncingStore(repo, pub, quietLogger())

	for i := 0; i < 2; i++ {
		if err := s.Set(ctx, testRef, docstore.Document{"habits": []any{}}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	if len(pub.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(pub.sent))
	}
	if pub.sent[1] != (published{path: "u1/habits/march_2025", version: 2}) {
		t.Errorf("unexpected second message %+v", pub.sent[1])
	}

	doc, err := s.Get(ctx, testRef)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, ok := doc["habits"]; !ok {
		t.Error("document should carry the written field")
	}
}

func TestSyncingStorePublishFailureIsNotFatal(t *testing.T) {
	repo := newVersioningRepo()
	s := NewSyncingStore(repo, &recordingPublisher{err: errors.New("circuit breaker is open")}, quietLogger())

	if err := s.Set(context.Background(), testRef, docstore.Document{"mental": []any{}}); err != nil {
		t.Fatalf("publish failure must not fail the save: %v", err)
	}
	if repo.Len() != 1 {
		t.Errorf("expected document to be stored, got %d documents", repo.Len())
	}
}

func TestSyncingStoreWithoutPublisher(t *testing.T) {
	s := NewSyncingStore(newVersioningRepo(), nil, quietLogger())

	if err := s.Set(context.Background(), testRef, docstore.Document{"habits": []any{}}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSyncingStoreSaveFailure(t *testing.T) {
	repo := newVersioningRepo()
	repo.saveErr = errors.New("disk full")
	pub := &recordingPublisher{}
	s := NewSyncingStore(repo, pub, quietLogger())

	err := s.Set(context.Background(), testRef, docstore.Document{})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected wrapped save error, got %v", err)
	}
	if len(pub.sent) != 0 {
		t.Error("nothing should be published when the save fails")
	}
}

func TestSyncingStoreCloseClosesBoth(t *testing.T) {
	repo := newVersioningRepo()
	pub := &recordingPublisher{}
	s := NewSyncingStore(repo, pub, quietLogger())

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !repo.closed || !pub.closed {
		t.Errorf("expected both closed, repo=%v publisher=%v", repo.closed, pub.closed)
	}
}
