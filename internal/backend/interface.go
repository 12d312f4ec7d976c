package backend

import (
	"context"
	"time"

	"lifedash/internal/cache"
	"lifedash/internal/docstore"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// CheckFunc reports whether the backend can serve requests.
type CheckFunc func(ctx context.Context) error

// BackendResult is a ready document store and what it needs on shutdown.
type BackendResult struct {
	Store docstore.Store
	// Cache is set when reads go through a CachedStore, for expiry sweeps.
	Cache   cache.Observed
	Cleanup CleanupFunc
	// Check is nil for backends without a reachability probe.
	Check CheckFunc
}

// Ready runs Check when present.
func (r *BackendResult) Ready(ctx context.Context) error {
	if r == nil || r.Check == nil {
		return nil
	}
	return r.Check(ctx)
}

// Close runs Cleanup when present.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates document stores based on configuration.
type Factory interface {
	// CreateBackend creates the primary store sessions read and write.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateMirror creates the remote store the worker mirrors SQLite documents to.
	CreateMirror(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// SQLite
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// MongoDB
	MongoURL      string
	MongoDatabase string

	// Firestore, credentials come from the environment
	FirestoreProjectID string

	// Memory backend seed directory, empty for an empty store
	DataDirectory string

	// Mirror target for the worker
	MirrorType BackendType

	CacheSize int
	CacheTTL  time.Duration
}

// BackendType names a document store implementation.
type BackendType string

const (
	MemoryBackend    BackendType = "memory"
	SQLiteBackend    BackendType = "sqlite"
	MongoBackend     BackendType = "mongo"
	FirestoreBackend BackendType = "firestore"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, MongoBackend, FirestoreBackend:
		return true
	default:
		return false
	}
}

// IsRemote reports whether the backend can serve as a mirror target.
func (bt BackendType) IsRemote() bool {
	return bt == MongoBackend || bt == FirestoreBackend
}
