package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lifedash/internal/docstore"
)

func TestStoreGetMissing(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), docstore.Ref{UserID: "u", Collection: "habits", DocID: "march_2025"})
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreSetMergesAndStamps(t *testing.T) {
	s := New()
	fixed := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()
	ref := docstore.Ref{UserID: "u", Collection: "financial", DocID: "financial_march_2025"}

	if err := s.Set(ctx, ref, docstore.Document{"income": []any{}, "startingAmount": 10}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, ref, docstore.Document{"startingAmount": 20, docstore.FieldLastUpdated: "ignored"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	doc, err := s.Get(ctx, ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["startingAmount"] != float64(20) {
		t.Fatalf("startingAmount = %#v", doc["startingAmount"])
	}
	if _, ok := doc["income"]; !ok {
		t.Fatalf("merge dropped untouched field")
	}
	if !doc.LastUpdated().Equal(fixed) {
		t.Fatalf("lastUpdated = %v, want %v", doc.LastUpdated(), fixed)
	}
}

func TestStoreRejectsInvalidRef(t *testing.T) {
	s := New()
	err := s.Set(context.Background(), docstore.Ref{UserID: "", Collection: "habits", DocID: "x"}, docstore.Document{})
	if !errors.Is(err, docstore.ErrInvalidRef) {
		t.Fatalf("expected ErrInvalidRef, got %v", err)
	}
}

func TestStoreList(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Set(ctx, docstore.Ref{UserID: "u", Collection: "tasks", DocID: "b"}, docstore.Document{"status": "completed"})
	_ = s.Set(ctx, docstore.Ref{UserID: "u", Collection: "tasks", DocID: "a"}, docstore.Document{"status": "open"})
	_ = s.Set(ctx, docstore.Ref{UserID: "v", Collection: "tasks", DocID: "c"}, docstore.Document{"status": "open"})

	docs, err := s.List(ctx, "u", "tasks")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 || docs[0]["status"] != "open" {
		t.Fatalf("unexpected list %v", docs)
	}
}

func TestNewFromDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "u1", "tasks")
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "t1.json"), []byte(`{"status":"completed"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := NewFromDir(dir)
	if err != nil {
		t.Fatalf("NewFromDir: %v", err)
	}
	doc, err := s.Get(context.Background(), docstore.Ref{UserID: "u1", Collection: "tasks", DocID: "t1"})
	if err != nil || doc["status"] != "completed" {
		t.Fatalf("seeded doc = %v, %v", doc, err)
	}

	empty, err := NewFromDir(filepath.Join(dir, "missing"))
	if err != nil || empty.Len() != 0 {
		t.Fatalf("missing dir should give empty store: %v", err)
	}
}
