// Package memory is an in-process document store used as the default backend and in tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"lifedash/internal/docstore"
)

type record struct {
	fields  []byte
	updated time.Time
}

// Store keeps every document as encoded JSON so reads return the same value
// shapes a remote store would.
type Store struct {
	mu   sync.Mutex
	docs map[string]record
	now  func() time.Time
}

func New() *Store {
	return &Store{docs: make(map[string]record), now: time.Now}
}

// NewFromDir seeds the store from JSON files laid out as
// {dir}/{uid}/{collection}/{docId}.json. A missing dir yields an empty store.
func NewFromDir(dir string) (*Store, error) {
	s := New()
	if dir == "" {
		return s, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return s, nil
	}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read seed %s: %w", path, err)
		}
		var doc docstore.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode seed %s: %w", path, err)
		}
		ref := docstore.Ref{UserID: parts[0], Collection: parts[1], DocID: strings.TrimSuffix(parts[2], ".json")}
		return s.Set(context.Background(), ref, doc)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Get(_ context.Context, ref docstore.Ref) (docstore.Document, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	rec, ok := s.docs[ref.Path()]
	s.mu.Unlock()
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return decode(rec)
}

// Set merges doc into the stored fields and stamps the write time.
func (s *Store) Set(_ context.Context, ref docstore.Ref, doc docstore.Document) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ref.Path()
	current := docstore.Document{}
	if rec, ok := s.docs[key]; ok {
		if err := json.Unmarshal(rec.fields, &current); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
	}
	merged := docstore.Merge(current, docstore.Document(doc.Fields()))
	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.docs[key] = record{fields: raw, updated: s.now().UTC()}
	return nil
}

// List returns the documents of one user's collection ordered by document id.
func (s *Store) List(_ context.Context, userID, collection string) ([]docstore.Document, error) {
	prefix := docstore.Ref{UserID: userID, Collection: collection, DocID: ""}.Path()
	s.mu.Lock()
	keys := make([]string, 0)
	for k := range s.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	recs := make([]record, len(keys))
	for i, k := range keys {
		recs[i] = s.docs[k]
	}
	s.mu.Unlock()

	out := make([]docstore.Document, 0, len(recs))
	for _, rec := range recs {
		doc, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func decode(rec record) (docstore.Document, error) {
	doc := docstore.Document{}
	if err := json.Unmarshal(rec.fields, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc[docstore.FieldLastUpdated] = rec.updated
	return doc, nil
}
