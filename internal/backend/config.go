package backend

import (
	"fmt"

	"lifedash/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		MongoURL:      appConfig.MongoURL,
		MongoDatabase: appConfig.MongoDatabase,

		FirestoreProjectID: appConfig.FirestoreProjectID,

		DataDirectory: appConfig.DataDirectory,

		MirrorType: BackendType(appConfig.MirrorBackend),

		CacheSize: appConfig.CacheSize,
		CacheTTL:  appConfig.CacheTTL,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		// AMQP is optional
	case MongoBackend:
		if c.MongoURL == "" || c.MongoDatabase == "" {
			return fmt.Errorf("MongoDB URL and database are required for mongo backend")
		}
	case FirestoreBackend:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("Firestore project id is required for firestore backend")
		}
	case MemoryBackend:
	}

	if c.MirrorType != "" && !c.MirrorType.IsRemote() {
		return fmt.Errorf("invalid mirror backend: %s", c.MirrorType)
	}
	return nil
}

// mirrorConfig returns a config whose Type is the mirror target.
func (c Config) mirrorConfig() (Config, error) {
	if c.MirrorType == "" {
		return Config{}, fmt.Errorf("no mirror backend configured")
	}
	if !c.MirrorType.IsRemote() {
		return Config{}, fmt.Errorf("invalid mirror backend: %s", c.MirrorType)
	}
	m := c
	m.Type = c.MirrorType
	m.CacheSize = 0
	return m, m.Validate()
}

func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, MongoBackend, FirestoreBackend}
}

func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
