// Package cli implements the lifedash command line: the API server, the
// mirror worker and one-off month reports.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"lifedash/internal/backend"
	"lifedash/internal/cache"
	"lifedash/internal/config"
	"lifedash/internal/core"
	"lifedash/internal/log"
	"lifedash/internal/session"
	"lifedash/internal/sheets"
	"lifedash/internal/sheets/google"
	"lifedash/internal/telemetry"
)

// LoadEnvFile loads KEY=value pairs from path without overriding variables
// that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// LoadAndValidateConfig reads the environment and rejects invalid settings.
func LoadAndValidateConfig(opts *RootOptions) (*config.Config, error) {
	cfg := config.Load()
	if opts != nil && opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from the configured level and
// format and installs it as the slog default.
func SetupLogger(cfg *config.Config, out io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:  log.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: out,
	})
	log.SetDefault(logger)
	return logger
}

// SessionConfig maps the environment onto session timing and the month seed.
// The seed comes from SEED_SPREADSHEET_ID when set, else from SEED_FILE.
func SessionConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (session.Config, error) {
	var reader sheets.SeedReader
	if cfg.SeedSpreadsheetID != "" {
		client, err := google.NewFromCredentials(ctx, google.Config{
			SpreadsheetID: cfg.SeedSpreadsheetID,
			HabitsRange:   cfg.SeedHabitsRange,
			MentalRange:   cfg.SeedMentalRange,
		}, google.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			return session.Config{}, fmt.Errorf("connect seed spreadsheet: %w", err)
		}
		reader = client
	}
	return sessionConfig(ctx, cfg, reader)
}

func sessionConfig(ctx context.Context, cfg *config.Config, reader sheets.SeedReader) (session.Config, error) {
	var (
		seed core.Seed
		err  error
	)
	if reader != nil {
		seed, err = reader.ReadSeed(ctx)
	} else {
		seed, err = session.LoadSeed(cfg.SeedFile)
	}
	if err != nil {
		return session.Config{}, err
	}
	sc := session.DefaultConfig()
	sc.Debounce = cfg.SaveDebounce
	sc.SaveTimeout = cfg.SaveTimeout
	sc.LoadTimeout = cfg.LoadTimeout
	sc.Seed = seed
	return sc, nil
}

// store is an opened primary backend plus its optional cache sweeper.
type store struct {
	*backend.BackendResult
	sweeper *cache.Manager
	logger  *log.Logger
}

// openStore creates the configured primary document store. When reads are
// cached, expired entries are swept once per TTL.
func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*store, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	s := &store{BackendResult: res, logger: logger}
	if res.Cache != nil {
		s.sweeper = cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
		s.sweeper.Register(res.Cache)
		s.sweeper.StartCleanup(cfg.CacheTTL)
		if err := telemetry.WatchCache(prometheus.DefaultRegisterer, res.Cache.Stats); err != nil {
			logger.Warn("Document cache metrics unavailable", log.FieldError, err.Error())
		}
	}
	return s, nil
}

func (s *store) close() {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if err := s.Close(); err != nil {
		s.logger.Error("Failed to close backend", log.FieldError, err.Error())
	}
}

// NotifyShutdown returns a context cancelled on SIGINT or SIGTERM. The
// signal is logged once; a second signal falls back to the default action.
func NotifyShutdown(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
