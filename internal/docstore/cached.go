package docstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lifedash/internal/cache"
)

var ErrListUnsupported = errors.New("store does not support listing")

// CachedStore is a read-through cache in front of a slower Store.
// Concurrent misses for the same document share one backend read.
// Writes go straight through and invalidate the cached copy. Every write
// bumps the document's generation, and a read only fills the cache when the
// generation it started under is still current.
type CachedStore struct {
	next  Store
	cache *cache.LRUCache[Document]
	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

func NewCachedStore(next Store, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		cache: cache.NewLRUCache[Document](size, ttl),
		gens:  make(map[string]uint64),
	}
}

// Cache exposes the underlying LRU so a cache.Manager can sweep it.
func (s *CachedStore) Cache() *cache.LRUCache[Document] {
	return s.cache
}

func (s *CachedStore) Get(ctx context.Context, ref Ref) (Document, error) {
	key := ref.Path()
	if doc, ok := s.cache.Get(key); ok {
		return doc.Clone(), nil
	}

	gen := s.generation(key)
	v, err, _ := s.group.Do(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		doc, err := s.next.Get(ctx, ref)
		if err != nil {
			return nil, err
		}
		s.fill(key, gen, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Document).Clone(), nil
}

func (s *CachedStore) Set(ctx context.Context, ref Ref, doc Document) error {
	key := ref.Path()
	s.invalidate(key)
	err := s.next.Set(ctx, ref, doc)
	s.invalidate(key)
	return err
}

func (s *CachedStore) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[key]
}

// fill caches doc unless a write to key started after the read did.
func (s *CachedStore) fill(key string, gen uint64, doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[key] == gen {
		s.cache.Set(key, doc.Clone())
	}
}

func (s *CachedStore) invalidate(key string) {
	s.mu.Lock()
	s.gens[key]++
	s.mu.Unlock()
	s.cache.Delete(key)
}

// List is not cached.
func (s *CachedStore) List(ctx context.Context, userID, collection string) ([]Document, error) {
	lister, ok := s.next.(Lister)
	if !ok {
		return nil, fmt.Errorf("list %s: %w", collection, ErrListUnsupported)
	}
	return lister.List(ctx, userID, collection)
}
