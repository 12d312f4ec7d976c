package backend

import (
	"context"
	"fmt"

	"lifedash/internal/amqp"
	"lifedash/internal/docstore"
	"lifedash/internal/docstore/firestore"
	"lifedash/internal/docstore/memory"
	"lifedash/internal/docstore/mongo"
	"lifedash/internal/log"
	"lifedash/internal/services"
	"lifedash/internal/storage"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend builds the primary store and wraps it in a read cache when enabled.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res, err := f.create(ctx, config)
	if err != nil {
		return nil, err
	}

	if config.CacheSize > 0 {
		cached := docstore.NewCachedStore(res.Store, config.CacheSize, config.CacheTTL)
		res.Store = cached
		res.Cache = cached.Cache()
		f.logger.Info("Enabled document read cache",
			"size", config.CacheSize,
			"ttl", config.CacheTTL)
	}
	return res, nil
}

func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*BackendResult, error) {
	m, err := config.mirrorConfig()
	if err != nil {
		return nil, err
	}
	return f.create(ctx, m)
}

func (f *DefaultFactory) create(ctx context.Context, config Config) (*BackendResult, error) {
	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	case FirestoreBackend:
		return f.createFirestoreBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional; without it the worker's periodic sweep still mirrors.
	var publisher services.Publisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", log.FieldError, err.Error())
		} else {
			publisher = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	store := services.NewSyncingStore(repo, publisher, f.logger)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", repo.SchemaVersion(),
		"amqp_enabled", publisher != nil)

	return &BackendResult{Store: store, Cleanup: store.Close, Check: repo.Ping}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := mongo.Connect(ctx, config.MongoURL, config.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
	}

	f.logger.Info("Initialized MongoDB backend", "database", config.MongoDatabase)

	return &BackendResult{
		Store: store,
		Cleanup: func() error {
			return store.Close(context.Background())
		},
		Check: store.Ping,
	}, nil
}

func (f *DefaultFactory) createFirestoreBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := firestore.NewFromEnv(ctx, config.FirestoreProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore client: %w", err)
	}

	f.logger.Info("Initialized Firestore backend", "project", config.FirestoreProjectID)

	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	if config.DataDirectory == "" {
		f.logger.Info("Initialized memory backend")
		return &BackendResult{Store: memory.New()}, nil
	}

	store, err := memory.NewFromDir(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory backend data: %w", err)
	}

	f.logger.Info("Initialized memory backend",
		"data_dir", config.DataDirectory,
		"documents", store.Len())

	return &BackendResult{Store: store}, nil
}
