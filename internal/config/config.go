package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port      string
	LogLevel  string
	LogFormat string

	// Mutating requests allowed per client per minute
	RateLimitPerMinute int
	RateLimitBurst     int

	// Backend selection
	DataBackend string

	// SQLite
	SQLiteDBPath string

	// Memory backend seed directory, optional
	DataDirectory string

	// MongoDB
	MongoURL      string
	MongoDatabase string

	// Firestore
	FirestoreProjectID       string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Spreadsheet the month seed is read from instead of SeedFile, optional
	SeedSpreadsheetID string
	SeedHabitsRange   string
	SeedMentalRange   string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	MirrorBackend string
	SyncBatchSize int
	SyncInterval  time.Duration

	// Sessions
	SaveDebounce  time.Duration
	SaveTimeout   time.Duration
	LoadTimeout   time.Duration
	SeedFile      string
	DefaultUserID string

	// Read cache, disabled when CacheSize is 0
	CacheSize int
	CacheTTL  time.Duration
}

var (
	validBackends       = []string{"memory", "sqlite", "mongo", "firestore"}
	validMirrorBackends = []string{"", "firestore", "mongo"}
	validLogLevels      = []string{"debug", "info", "warn", "warning", "error"}
	validLogFormats     = []string{"text", "json"}
)

func Load() *Config {
	cfg := &Config{
		Port:      getEnv("PORT", "8081"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 30),

		DataBackend:   getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/lifedash.db"),
		DataDirectory: getEnv("MEMORY_DATA_DIR", ""),

		MongoURL:      getEnv("MONGO_URL", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "lifedash"),

		FirestoreProjectID:       getEnv("FIRESTORE_PROJECT_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		SeedSpreadsheetID:        getEnv("SEED_SPREADSHEET_ID", ""),
		SeedHabitsRange:          getEnv("SEED_HABITS_RANGE", "Habits!A2:B"),
		SeedMentalRange:          getEnv("SEED_MENTAL_RANGE", "Mental!A2:A"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "lifedash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_documents"),

		MirrorBackend: getEnv("MIRROR_BACKEND", ""),
		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		SaveDebounce:  getEnvDuration("SAVE_DEBOUNCE", 300*time.Millisecond),
		SaveTimeout:   getEnvDuration("SAVE_TIMEOUT", 10*time.Second),
		LoadTimeout:   getEnvDuration("LOAD_TIMEOUT", 10*time.Second),
		SeedFile:      getEnv("SEED_FILE", ""),
		DefaultUserID: getEnv("DEFAULT_USER_ID", "local"),

		CacheSize: getEnvInt("CACHE_SIZE", 256),
		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),
	}

	return cfg
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		errors = append(errors, c.validateSQLite()...)
	}
	if c.DataBackend == "mongo" || c.MirrorBackend == "mongo" {
		errors = append(errors, c.validateMongo()...)
	}
	if c.DataBackend == "firestore" || c.MirrorBackend == "firestore" {
		errors = append(errors, c.validateFirestore()...)
	}

	if c.DataBackend == "memory" && c.DataDirectory != "" {
		if info, err := os.Stat(c.DataDirectory); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("memory data directory does not exist: %s", c.DataDirectory))
		}
	}

	if !slices.Contains(validMirrorBackends, c.MirrorBackend) {
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of %q", c.MirrorBackend, validMirrorBackends))
	} else if c.MirrorBackend != "" && c.DataBackend != "sqlite" {
		errors = append(errors, fmt.Sprintf("mirror backend '%s' copies the sqlite store: DATA_BACKEND must be sqlite", c.MirrorBackend))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.SaveDebounce < 0 || c.SaveDebounce > 10*time.Second {
		errors = append(errors, fmt.Sprintf("invalid save debounce %v: must be between 0 and 10 seconds", c.SaveDebounce))
	}
	if c.SaveTimeout <= 0 || c.SaveTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid save timeout %v: must be positive and at most 5 minutes", c.SaveTimeout))
	}
	if c.LoadTimeout <= 0 || c.LoadTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid load timeout %v: must be positive and at most 5 minutes", c.LoadTimeout))
	}

	if c.CacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must not be negative", c.CacheSize))
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive when the cache is enabled", c.CacheTTL))
	}

	if strings.TrimSpace(c.DefaultUserID) == "" || strings.Contains(c.DefaultUserID, "/") {
		errors = append(errors, fmt.Sprintf("invalid default user id '%s': must be non-empty and contain no '/'", c.DefaultUserID))
	}

	if c.SeedFile != "" && c.SeedSpreadsheetID != "" {
		errors = append(errors, "set only one of SEED_FILE and SEED_SPREADSHEET_ID")
	}
	if c.SeedSpreadsheetID != "" && (strings.TrimSpace(c.SeedHabitsRange) == "" || strings.TrimSpace(c.SeedMentalRange) == "") {
		errors = append(errors, "seed spreadsheet ranges cannot be empty when SEED_SPREADSHEET_ID is provided")
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("seed file does not exist: %s", c.SeedFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func (c *Config) validateSQLite() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func (c *Config) validateMongo() []string {
	var errors []string
	if c.MongoURL == "" {
		errors = append(errors, "MONGO_URL is required when using mongo")
	} else if u, err := url.Parse(c.MongoURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid MongoDB URL: %v", err))
	} else if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		errors = append(errors, fmt.Sprintf("invalid MongoDB URL scheme '%s': must be 'mongodb' or 'mongodb+srv'", u.Scheme))
	}
	if c.MongoDatabase == "" {
		errors = append(errors, "MONGO_DATABASE cannot be empty when using mongo")
	}
	return errors
}

func (c *Config) validateFirestore() []string {
	var errors []string
	if c.FirestoreProjectID == "" {
		errors = append(errors, "FIRESTORE_PROJECT_ID is required when using firestore")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
